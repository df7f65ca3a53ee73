package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/example/grillo/internal/application"
	"github.com/example/grillo/internal/bell"
	"github.com/example/grillo/internal/config"
	"github.com/example/grillo/internal/directory"
	httptransport "github.com/example/grillo/internal/http"
	"github.com/example/grillo/internal/logging"
	"github.com/example/grillo/internal/persistence/sqlstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.New(logging.Options{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server encountered error", "error", err)
		stop()
		logCloser.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := a.bootstrap(ctx); err != nil {
		return fmt.Errorf("initial roster sync: %w", err)
	}
	a.start(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Rings wait up to RingTimeout for an acknowledgment.
		WriteTimeout: 30*time.Second + cfg.RingTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("grillo API listening", "addr", server.Addr, "base_path", cfg.BasePath, "test_mode", cfg.TestMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// app holds the wired components of the service.
type app struct {
	handler http.Handler
	store   *sqlstore.Store
	cache   *directory.Cache
	syncer  *directory.Syncer
	users   *application.UserService
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	store, err := sqlstore.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	zone := cfg.Location
	if zone == nil {
		zone = time.Local
	}
	now := time.Now

	cache := directory.NewCache()
	syncer := directory.NewSyncer(directory.NewStatic(rosterIdentities(cfg.File.Roster)), cache, cfg.DirectoryInterval, cfg.DirectoryTimeout, logger)
	hub := bell.NewHub(logger)

	userRepo := newUserRepositoryAdapter(store)
	auditRepo := newAuditRepositoryAdapter(store)
	bookingRepo := newBookingRepositoryAdapter(store)
	eventRepo := newEventRepositoryAdapter(store)
	locationRepo := newLocationRepositoryAdapter(store)
	tokenRepo := newTokenRepositoryAdapter(store)
	cookieRepo := newCookieRepositoryAdapter(store)
	settingsRepo := newSettingsRepositoryAdapter(store)

	userService := application.NewUserServiceWithLogger(userRepo, cache, cfg.AdminGroup, logger)
	bookingService := application.NewBookingServiceWithLogger(bookingRepo, locationRepo, now, zone, logger)
	auditService := application.NewAuditServiceWithLogger(auditRepo, locationRepo, settingsRepo, bookingService, now, zone, logger)
	eventService := application.NewEventServiceWithLogger(eventRepo, logger)
	locationService := application.NewLocationServiceWithLogger(locationRepo, settingsRepo, userService, hub, cfg.RingTimeout, logger)
	tokenService := application.NewTokenServiceWithLogger(tokenRepo, application.RandomString, cfg.APIKeyCost, logger)
	authService := application.NewAuthServiceWithLogger(cookieRepo, tokenRepo, userService, application.VerifySecret, newCookieValue, logger)
	settingsService := application.NewSettingsServiceWithLogger(settingsRepo, locationRepo, serviceLinks(cfg.File.ServicesLinks), logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Audits:    httptransport.NewAuditHandler(auditService, zone, logger),
		Bookings:  httptransport.NewBookingHandler(bookingService, zone, logger),
		Events:    httptransport.NewEventHandler(eventService, logger),
		Locations: httptransport.NewLocationHandler(locationService, hub, logger),
		Tokens:    httptransport.NewTokenHandler(tokenService, logger),
		Users:     httptransport.NewUserHandler(userService, authService, httptransport.UserOptions{TestMode: cfg.TestMode, SSORedirect: cfg.SSORedirect}, logger),
		Config:    httptransport.NewConfigHandler(settingsService, logger),
		BasePath:  cfg.BasePath,
		Logger:    logger,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Authenticate(authService, logger),
		},
	})

	return &app{
		handler: router,
		store:   store,
		cache:   cache,
		syncer:  syncer,
		users:   userService,
		logger:  logger,
	}, nil
}

// bootstrap loads the roster once before serving so the first requests
// see a populated directory. A failed fetch leaves the local users untouched.
func (a *app) bootstrap(ctx context.Context) error {
	if err := a.syncer.Refresh(ctx); err != nil {
		a.logger.WarnContext(ctx, "directory unavailable at startup", "error", err)
		return nil
	}
	identities, err := a.cache.Identities(ctx)
	if err != nil {
		return err
	}
	return a.users.ApplyRoster(ctx, identities)
}

// start launches the directory refresh loop and its consumer.
func (a *app) start(ctx context.Context) {
	go a.syncer.Run(ctx)
	go a.users.Run(ctx, a.syncer.Updates())
}

func (a *app) close() error {
	return a.store.Close()
}

func newCookieValue() string {
	return ksuid.New().String()
}

func rosterIdentities(entries []config.RosterEntry) []application.Identity {
	identities := make([]application.Identity, 0, len(entries))
	for _, entry := range entries {
		identities = append(identities, application.Identity{
			ID:       entry.ID,
			Username: entry.Username,
			Name:     entry.Name,
			Surname:  entry.Surname,
			Email:    entry.Email,
			Locked:   entry.Locked,
			HasKey:   entry.HasKey,
			Groups:   entry.Groups,
		})
	}
	return identities
}

func serviceLinks(links []config.ServiceLink) []application.ServiceLink {
	out := make([]application.ServiceLink, 0, len(links))
	for _, link := range links {
		out = append(out, application.ServiceLink(link))
	}
	return out
}
