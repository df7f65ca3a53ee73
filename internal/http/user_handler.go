package http

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/grillo/internal/application"
)

type userService interface {
	List(ctx context.Context, session application.Session) ([]application.User, error)
	All(ctx context.Context) ([]application.User, error)
}

type cookieIssuer interface {
	IssueCookie(ctx context.Context, userID, description string) (string, error)
	RevokeCookie(ctx context.Context, session application.Session) error
}

// UserOptions selects how GET /user/session logs people in.
type UserOptions struct {
	TestMode    bool
	SSORedirect string
}

type UserHandler struct {
	users     userService
	auth      cookieIssuer
	opts      UserOptions
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(users userService, auth cookieIssuer, opts UserOptions, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{users: users, auth: auth, opts: opts, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

// Current describes the caller's session.
func (h *UserHandler) Current(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthenticated)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(session))
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.users == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	users, err := h.users.List(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUserDTOs(users))
}

// Login handles GET /user/session. In test mode ?uid= logs in as that user
// and a bare request lists the accounts to pick from.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.users == nil || h.auth == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	session, authenticated := SessionFromContext(r.Context())
	if !h.opts.TestMode {
		switch {
		case authenticated:
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("Already authenticated"))
		case r.URL.Query().Get("code") == "" && h.opts.SSORedirect != "":
			http.Redirect(w, r, h.opts.SSORedirect, http.StatusFound)
		default:
			h.responder.writeJSON(r.Context(), w, http.StatusNotImplemented, errorResponse{Error: "Single sign-on is not implemented"})
		}
		return
	}

	logger := h.log(r.Context(), "Login")
	if uid := strings.TrimSpace(r.URL.Query().Get("uid")); uid != "" {
		description := r.RemoteAddr + " - " + r.UserAgent()
		value, err := h.auth.IssueCookie(r.Context(), uid, description)
		switch {
		case err == nil:
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    value,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			logger.InfoContext(r.Context(), "test mode login", "user_id", uid)
			// Redirect so a reload does not issue another cookie.
			http.Redirect(w, r, r.URL.Path, http.StatusFound)
			return
		case !errors.Is(err, application.ErrNotFound):
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
	}

	users, err := h.users.All(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	page := pickerPage{}
	if userSession, ok := session.(application.UserSession); ok {
		page.Current = userSession.User.DisplayName()
	}
	for _, user := range users {
		page.Users = append(page.Users, pickerUser{ID: user.ID, Name: user.DisplayName(), Groups: strings.Join(user.Groups, ",")})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pickerTemplate.Execute(w, page); err != nil {
		logger.ErrorContext(r.Context(), "failed to render account picker", "error", err)
	}
}

// Logout revokes the session cookie. API sessions are rejected.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.auth == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := h.auth.RevokeCookie(r.Context(), sessionFrom(r.Context())); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type pickerUser struct {
	ID     string
	Name   string
	Groups string
}

type pickerPage struct {
	Current string
	Users   []pickerUser
}

var pickerTemplate = template.Must(template.New("picker").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>Test mode</title>
</head>
<body>
	{{if .Current}}<h2>Already authenticated as {{.Current}}</h2>{{end}}
	<h2>Select a user to switch account</h2>
	<ul>
	{{range .Users}}<li><a href="?uid={{.ID}}">{{.Name}} ({{.Groups}})</a></li>
	{{end}}</ul>
</body>
</html>
`))

type userDTO struct {
	ID             string   `json:"id"`
	Username       string   `json:"username"`
	Name           string   `json:"name"`
	Surname        string   `json:"surname"`
	Email          string   `json:"email"`
	Groups         []string `json:"groups"`
	HasKey         bool     `json:"hasKey"`
	Locked         bool     `json:"locked"`
	Admin          bool     `json:"admin"`
	Seconds        int64    `json:"seconds"`
	ActiveLocation *string  `json:"activeLocation"`
}

func toUserDTO(user application.User) userDTO {
	groups := user.Groups
	if groups == nil {
		groups = []string{}
	}
	return userDTO{
		ID:             user.ID,
		Username:       user.Username,
		Name:           user.Name,
		Surname:        user.Surname,
		Email:          user.Email,
		Groups:         groups,
		HasKey:         user.HasKey,
		Locked:         user.Locked,
		Admin:          user.Admin,
		Seconds:        user.Seconds,
		ActiveLocation: user.ActiveLocation,
	}
}

func toUserDTOs(users []application.User) []userDTO {
	out := make([]userDTO, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDTO(user))
	}
	return out
}

type sessionDTO struct {
	Type     string    `json:"type"`
	IsAdmin  bool      `json:"isAdmin"`
	ReadOnly bool      `json:"readOnly"`
	User     *userDTO  `json:"user,omitempty"`
	Token    *tokenDTO `json:"token,omitempty"`
}

func toSessionDTO(session application.Session) sessionDTO {
	dto := sessionDTO{IsAdmin: session.IsAdmin(), ReadOnly: session.IsReadOnly()}
	switch s := session.(type) {
	case application.UserSession:
		user := toUserDTO(s.User)
		dto.Type = "user"
		dto.User = &user
	case application.APISession:
		token := toTokenDTO(s.Token)
		dto.Type = "api"
		dto.Token = &token
	}
	return dto
}
