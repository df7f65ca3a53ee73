package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/grillo/internal/application"
)

// RouterConfig wires handlers into NewRouter. Nil handlers leave their
// routes unregistered.
type RouterConfig struct {
	Audits    *AuditHandler
	Bookings  *BookingHandler
	Events    *EventHandler
	Locations *LocationHandler
	Tokens    *TokenHandler
	Users     *UserHandler
	Config    *ConfigHandler
	// BasePath mounts every route below a prefix such as /api/v1.
	BasePath   string
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	ro := RequireTier(application.TierReadOnly, cfg.Logger)
	rw := RequireTier(application.TierReadWrite, cfg.Logger)
	admin := RequireTier(application.TierAdmin, cfg.Logger)

	routes := chi.NewRouter()
	routes.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		newResponder(cfg.Logger).writeJSON(r.Context(), w, http.StatusOK, map[string]string{"pong": "asd"})
	})

	if h := cfg.Audits; h != nil {
		routes.With(ro).Get("/audits", h.List)
		routes.With(rw).Post("/audits", h.Create)
		routes.With(rw).Patch("/audits", h.Logout)
		routes.With(rw).Post("/audits/toggle", h.Toggle)
		routes.With(ro).Get("/audits/{id}", h.Get)
		routes.With(rw).Patch("/audits/{id}", h.Edit)
		routes.With(rw).Delete("/audits/{id}", h.Delete)
	}

	if h := cfg.Bookings; h != nil {
		routes.With(ro).Get("/bookings", h.List)
		routes.With(rw).Post("/bookings", h.Create)
		routes.With(ro).Get("/bookings/{id}", h.Get)
		routes.With(rw).Post("/bookings/{id}", h.Edit)
		routes.With(rw).Delete("/bookings/{id}", h.Delete)
	}

	if h := cfg.Events; h != nil {
		routes.With(ro).Get("/events", h.List)
		routes.With(admin).Post("/events", h.Create)
		routes.With(ro).Get("/events/{id}", h.Get)
		routes.With(admin).Post("/events/{id}", h.Update)
		routes.With(admin).Delete("/events/{id}", h.Delete)
	}

	if h := cfg.Locations; h != nil {
		routes.With(ro).Get("/locations", h.List)
		routes.With(admin).Post("/locations", h.Create)
		routes.With(ro).Get("/locations/{id}", h.Get)
		routes.With(admin).Patch("/locations/{id}", h.Update)
		routes.With(admin).Post("/locations/{id}", h.Update)
		routes.With(admin).Delete("/locations/{id}", h.Delete)
		routes.With(ro).Get("/locations/{id}/people", h.People)
		routes.With(rw).Post("/locations/{id}/ring", h.Ring)
		routes.With(ro).Get("/locations/{id}/listen", h.Listen)
	}

	if h := cfg.Tokens; h != nil {
		routes.With(admin).Get("/tokens", h.List)
		routes.With(admin).Post("/tokens", h.Create)
		routes.With(admin).Get("/tokens/{id}", h.Get)
		routes.With(admin).Delete("/tokens/{id}", h.Delete)
	}

	if h := cfg.Users; h != nil {
		routes.With(ro).Get("/user", h.Current)
		routes.With(ro).Get("/users", h.List)
		routes.Get("/user/session", h.Login)
		routes.With(ro).Delete("/user/session", h.Logout)
	}

	if h := cfg.Config; h != nil {
		routes.With(ro).Get("/config", h.Get)
		routes.With(admin).Patch("/config", h.Update)
	}

	if cfg.BasePath == "" || cfg.BasePath == "/" {
		r.Mount("/", routes)
	} else {
		r.Mount(cfg.BasePath, routes)
	}
	return r
}
