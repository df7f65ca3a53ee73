package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/grillo/internal/application"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withSession injects a fixed session ahead of the tier checks.
func withSession(session application.Session) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session != nil {
				r = r.WithContext(ContextWithSession(r.Context(), session))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func memberSession(id string) application.Session {
	return application.UserSession{User: application.User{ID: id, Name: "Ada", Groups: []string{"lab"}}, Cookie: "c-" + id}
}

func adminSession(id string) application.Session {
	return application.UserSession{User: application.User{ID: id, Admin: true}, Cookie: "c-" + id}
}

type auditServiceStub struct {
	toggleParams application.ToggleAuditParams
	checkIn      application.CheckInParams
	entry        application.CreateAuditParams
	listParams   application.ListAuditsParams
	err          error
}

func (s *auditServiceStub) Toggle(ctx context.Context, params application.ToggleAuditParams) (application.ToggleResult, error) {
	s.toggleParams = params
	if s.err != nil {
		return application.ToggleResult{}, s.err
	}
	return application.ToggleResult{Audit: application.Audit{ID: 7, UserID: params.UserID, Location: params.LocationID, Start: time.Unix(100, 0)}}, nil
}

func (s *auditServiceStub) CheckIn(ctx context.Context, params application.CheckInParams) (application.CheckInResult, error) {
	s.checkIn = params
	if s.err != nil {
		return application.CheckInResult{}, s.err
	}
	end := time.Unix(90, 0)
	return application.CheckInResult{
		Audit:    application.Audit{ID: 2, UserID: params.UserID, Location: params.LocationID, Start: time.Unix(100, 0)},
		Previous: &application.Audit{ID: 1, UserID: params.UserID, Start: time.Unix(50, 0), End: &end},
	}, nil
}

func (s *auditServiceStub) CreateEntry(ctx context.Context, params application.CreateAuditParams) (application.Audit, error) {
	s.entry = params
	if s.err != nil {
		return application.Audit{}, s.err
	}
	return application.Audit{ID: 3, UserID: params.UserID, Start: params.Start, End: params.End}, nil
}

func (s *auditServiceStub) Logout(ctx context.Context, params application.LogoutParams) (application.Audit, error) {
	return application.Audit{}, s.err
}

func (s *auditServiceStub) Edit(ctx context.Context, params application.EditAuditParams) (application.Audit, error) {
	return application.Audit{ID: params.AuditID}, s.err
}

func (s *auditServiceStub) Delete(ctx context.Context, session application.Session, id int64) error {
	return s.err
}

func (s *auditServiceStub) Get(ctx context.Context, session application.Session, id int64) (application.Audit, error) {
	if s.err != nil {
		return application.Audit{}, s.err
	}
	return application.Audit{ID: id, Start: time.Unix(100, 0)}, nil
}

func (s *auditServiceStub) List(ctx context.Context, params application.ListAuditsParams) ([]application.Audit, error) {
	s.listParams = params
	return nil, s.err
}

type locationServiceStub struct {
	locations map[string]application.Location
	ringErr   error
	rung      []string
}

func (s *locationServiceStub) List(ctx context.Context, session application.Session) ([]application.Location, error) {
	out := make([]application.Location, 0, len(s.locations))
	for _, location := range s.locations {
		out = append(out, location)
	}
	return out, nil
}

func (s *locationServiceStub) Get(ctx context.Context, session application.Session, id string) (application.Location, error) {
	location, ok := s.locations[id]
	if !ok {
		return application.Location{}, application.ErrNotFound
	}
	return location, nil
}

func (s *locationServiceStub) Create(ctx context.Context, session application.Session, id, name string) (application.Location, error) {
	return application.Location{ID: id, Name: name}, nil
}

func (s *locationServiceStub) Update(ctx context.Context, session application.Session, id, name string) (application.Location, error) {
	return application.Location{ID: id, Name: name}, nil
}

func (s *locationServiceStub) Delete(ctx context.Context, session application.Session, id string) error {
	return nil
}

func (s *locationServiceStub) People(ctx context.Context, session application.Session, id string) ([]application.User, error) {
	return []application.User{{ID: "u1", Name: "Ada"}}, nil
}

func (s *locationServiceStub) Ring(ctx context.Context, session application.Session, id string) error {
	s.rung = append(s.rung, id)
	return s.ringErr
}

type userServiceStub struct {
	users []application.User
}

func (s userServiceStub) List(ctx context.Context, session application.Session) ([]application.User, error) {
	return s.users, nil
}

func (s userServiceStub) All(ctx context.Context) ([]application.User, error) {
	return s.users, nil
}

type cookieIssuerStub struct {
	issued  map[string]string
	revoked []application.Session
}

func (s *cookieIssuerStub) IssueCookie(ctx context.Context, userID, description string) (string, error) {
	if userID != "u1" {
		return "", application.ErrNotFound
	}
	if s.issued == nil {
		s.issued = map[string]string{}
	}
	s.issued[userID] = description
	return "cookie-" + userID, nil
}

func (s *cookieIssuerStub) RevokeCookie(ctx context.Context, session application.Session) error {
	if session != nil && session.IsAPI() {
		return application.ErrUnauthorized
	}
	s.revoked = append(s.revoked, session)
	return nil
}

type settingsServiceStub struct {
	settings application.Settings
}

func (s *settingsServiceStub) Get(ctx context.Context, session application.Session) (application.Settings, error) {
	return s.settings, nil
}

func (s *settingsServiceStub) SetDefaultLocation(ctx context.Context, session application.Session, id *string) (application.Settings, error) {
	if id != nil && *id == "missing" {
		return application.Settings{}, &application.ValidationError{FieldErrors: map[string]string{"defaultLocation": "location does not exist"}}
	}
	s.settings.DefaultLocation = id
	return s.settings, nil
}

func serve(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
}

func TestRouter_Ping(t *testing.T) {
	router := NewRouter(RouterConfig{Logger: discardLogger(), BasePath: "/api/v1"})

	rec := serve(router, http.MethodGet, "/api/v1/ping", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["pong"] != "asd" {
		t.Fatalf("unexpected body %v", body)
	}

	if rec := serve(router, http.MethodGet, "/ping", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected routes to live under the base path, got %d", rec.Code)
	}
}

func TestRouter_Tiers(t *testing.T) {
	audits := &auditServiceStub{}
	newRouter := func(session application.Session) http.Handler {
		return NewRouter(RouterConfig{
			Audits:     NewAuditHandler(audits, time.UTC, discardLogger()),
			Tokens:     NewTokenHandler(nil, discardLogger()),
			Logger:     discardLogger(),
			Middleware: []func(http.Handler) http.Handler{withSession(session)},
		})
	}

	cases := []struct {
		name    string
		session application.Session
		method  string
		target  string
		body    string
		status  int
	}{
		{name: "anonymous read", method: http.MethodGet, target: "/audits", status: http.StatusUnauthorized},
		{name: "blocked user", session: application.UserSession{User: application.User{ID: "u1", Locked: true}}, method: http.MethodGet, target: "/audits", status: http.StatusLocked},
		{name: "read only token reads", session: application.APISession{Token: application.APIToken{ID: "ro", ReadOnly: true}}, method: http.MethodGet, target: "/audits", status: http.StatusOK},
		{name: "read only token writes", session: application.APISession{Token: application.APIToken{ID: "ro", ReadOnly: true}}, method: http.MethodPost, target: "/audits/toggle", body: `{}`, status: http.StatusForbidden},
		{name: "member on admin route", session: memberSession("u1"), method: http.MethodGet, target: "/tokens", status: http.StatusForbidden},
		{name: "member toggles", session: memberSession("u1"), method: http.MethodPost, target: "/audits/toggle", body: `{"location":"L1"}`, status: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(newRouter(tc.session), tc.method, tc.target, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAuditHandler_Toggle(t *testing.T) {
	audits := &auditServiceStub{}
	router := NewRouter(RouterConfig{
		Audits:     NewAuditHandler(audits, time.UTC, discardLogger()),
		Logger:     discardLogger(),
		Middleware: []func(http.Handler) http.Handler{withSession(memberSession("u1"))},
	})

	rec := serve(router, http.MethodPost, "/audits/toggle", `{"userId":" u2 ","locationId":"L1","summary":"done","time":"1700000000.6"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	params := audits.toggleParams
	if params.UserID != "u2" || params.LocationID != "L1" || params.Summary != "done" {
		t.Fatalf("unexpected params %+v", params)
	}
	if params.Time == nil || params.Time.Unix() != 1700000001 {
		t.Fatalf("expected the rounded time, got %v", params.Time)
	}
	if params.Session == nil || params.Session.UserID() != "u1" {
		t.Fatalf("expected the caller's session, got %#v", params.Session)
	}

	var body map[string]any
	decodeJSON(t, rec, &body)
	if body["id"] != float64(7) || body["closed"] != false || body["startTime"] != float64(100) || body["endTime"] != nil {
		t.Fatalf("unexpected body %v", body)
	}

	if rec := serve(router, http.MethodPost, "/audits/toggle", `{"time":"soon"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad time, got %d", rec.Code)
	}
}

func TestAuditHandler_Create(t *testing.T) {
	audits := &auditServiceStub{}
	router := NewRouter(RouterConfig{
		Audits:     NewAuditHandler(audits, time.UTC, discardLogger()),
		Logger:     discardLogger(),
		Middleware: []func(http.Handler) http.Handler{withSession(memberSession("u1"))},
	})

	t.Run("login opens a session", func(t *testing.T) {
		rec := serve(router, http.MethodPost, "/audits", `{"login":true,"location":"L1","previousSummary":"earlier"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if audits.checkIn.LocationID != "L1" || audits.checkIn.PreviousSummary != "earlier" {
			t.Fatalf("unexpected params %+v", audits.checkIn)
		}
		var body map[string]any
		decodeJSON(t, rec, &body)
		previous, ok := body["previous"].(map[string]any)
		if !ok || previous["endTime"] != float64(90) {
			t.Fatalf("expected the closed audit, got %v", body)
		}
	})

	t.Run("complete entry", func(t *testing.T) {
		rec := serve(router, http.MethodPost, "/audits", `{"startTime":100,"endTime":"200","summary":"x"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if audits.entry.Start.Unix() != 100 || audits.entry.End == nil || audits.entry.End.Unix() != 200 {
			t.Fatalf("unexpected params %+v", audits.entry)
		}
	})
}

func TestAuditHandler_List(t *testing.T) {
	audits := &auditServiceStub{}
	router := NewRouter(RouterConfig{
		Audits:     NewAuditHandler(audits, time.UTC, discardLogger()),
		Logger:     discardLogger(),
		Middleware: []func(http.Handler) http.Handler{withSession(memberSession("u1"))},
	})

	rec := serve(router, http.MethodGet, "/audits?date=2024-03-06&user=u1,u2&user=u3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected an empty array, got %s", rec.Body.String())
	}
	params := audits.listParams
	if params.Date == nil || !params.Date.Equal(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", params.Date)
	}
	if strings.Join(params.UserIDs, ",") != "u1,u2,u3" {
		t.Fatalf("unexpected users %v", params.UserIDs)
	}

	if rec := serve(router, http.MethodGet, "/audits/abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a non numeric id, got %d", rec.Code)
	}
}

func TestResponder_ServiceErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "unauthenticated", err: application.ErrUnauthenticated, status: http.StatusUnauthorized, message: "Not authenticated"},
		{name: "unauthorized", err: application.ErrUnauthorized, status: http.StatusForbidden, message: "Forbidden"},
		{name: "blocked", err: application.ErrBlocked, status: http.StatusLocked, message: "Account blocked"},
		{name: "not found", err: application.ErrNotFound, status: http.StatusNotFound, message: "Not found"},
		{name: "detailed conflict", err: &application.DetailedError{Kind: application.ErrConflict, Message: "User already logged in"}, status: http.StatusBadRequest, message: "User already logged in"},
		{name: "unavailable", err: application.ErrUnavailable, status: http.StatusServiceUnavailable, message: "Service unavailable"},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, message: "Internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newResponder(discardLogger()).handleServiceError(context.Background(), rec, tc.err)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			var body errorResponse
			decodeJSON(t, rec, &body)
			if body.Error != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, body.Error)
			}
		})
	}

	t.Run("validation", func(t *testing.T) {
		rec := httptest.NewRecorder()
		err := &application.ValidationError{FieldErrors: map[string]string{"summary": "summary is required"}}
		newResponder(discardLogger()).handleServiceError(context.Background(), rec, err)
		var body errorResponse
		decodeJSON(t, rec, &body)
		if rec.Code != http.StatusBadRequest || body.Errors["summary"] != "summary is required" {
			t.Fatalf("unexpected response %d %+v", rec.Code, body)
		}
	})
}

func TestLocationHandler_Ring(t *testing.T) {
	locations := &locationServiceStub{locations: map[string]application.Location{"L1": {ID: "L1"}}}
	router := NewRouter(RouterConfig{
		Locations:  NewLocationHandler(locations, nil, discardLogger()),
		Logger:     discardLogger(),
		Middleware: []func(http.Handler) http.Handler{withSession(memberSession("u1"))},
	})

	if rec := serve(router, http.MethodPost, "/locations/L1/ring", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	locations.ringErr = &application.DetailedError{Kind: application.ErrUnavailable, Message: "Nobody answered the bell"}
	rec := serve(router, http.MethodPost, "/locations/L1/ring", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if len(locations.rung) != 2 || locations.rung[1] != "L1" {
		t.Fatalf("unexpected rings %v", locations.rung)
	}

	if rec := serve(router, http.MethodGet, "/locations/L1/people", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/locations/L1/listen", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a bell, got %d", rec.Code)
	}
}

func TestUserHandler_Session(t *testing.T) {
	users := userServiceStub{users: []application.User{{ID: "u1", Name: "Ada", Surname: "Lovelace", Groups: []string{"lab", "soviet"}}}}

	t.Run("test mode issues a cookie and redirects", func(t *testing.T) {
		auth := &cookieIssuerStub{}
		router := NewRouter(RouterConfig{
			Users:  NewUserHandler(users, auth, UserOptions{TestMode: true}, discardLogger()),
			Logger: discardLogger(),
		})

		rec := serve(router, http.MethodGet, "/user/session?uid=u1", "")
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/user/session" {
			t.Fatalf("expected a redirect, got %d %q", rec.Code, rec.Header().Get("Location"))
		}
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != SessionCookieName || cookies[0].Value != "cookie-u1" {
			t.Fatalf("unexpected cookies %v", cookies)
		}
		if auth.issued["u1"] == "" {
			t.Fatalf("expected a cookie description")
		}
	})

	t.Run("test mode lists accounts", func(t *testing.T) {
		router := NewRouter(RouterConfig{
			Users:  NewUserHandler(users, &cookieIssuerStub{}, UserOptions{TestMode: true}, discardLogger()),
			Logger: discardLogger(),
		})

		rec := serve(router, http.MethodGet, "/user/session?uid=ghost", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body := rec.Body.String(); !strings.Contains(body, "Ada Lovelace (lab,soviet)") || !strings.Contains(body, `href="?uid=u1"`) {
			t.Fatalf("unexpected picker %s", body)
		}
	})

	t.Run("outside test mode", func(t *testing.T) {
		opts := UserOptions{SSORedirect: "https://sso.example.org/login"}
		anonymous := NewRouter(RouterConfig{Users: NewUserHandler(users, &cookieIssuerStub{}, opts, discardLogger()), Logger: discardLogger()})
		if rec := serve(anonymous, http.MethodGet, "/user/session", ""); rec.Code != http.StatusFound || rec.Header().Get("Location") != opts.SSORedirect {
			t.Fatalf("expected the SSO redirect, got %d", rec.Code)
		}
		if rec := serve(anonymous, http.MethodGet, "/user/session?code=abc", ""); rec.Code != http.StatusNotImplemented {
			t.Fatalf("expected 501, got %d", rec.Code)
		}

		authenticated := NewRouter(RouterConfig{
			Users:      NewUserHandler(users, &cookieIssuerStub{}, opts, discardLogger()),
			Logger:     discardLogger(),
			Middleware: []func(http.Handler) http.Handler{withSession(memberSession("u1"))},
		})
		rec := serve(authenticated, http.MethodGet, "/user/session", "")
		var body errorResponse
		decodeJSON(t, rec, &body)
		if rec.Code != http.StatusBadRequest || body.Error != "Already authenticated" {
			t.Fatalf("unexpected response %d %+v", rec.Code, body)
		}
	})

	t.Run("logout", func(t *testing.T) {
		auth := &cookieIssuerStub{}
		router := NewRouter(RouterConfig{
			Users:      NewUserHandler(users, auth, UserOptions{}, discardLogger()),
			Logger:     discardLogger(),
			Middleware: []func(http.Handler) http.Handler{withSession(memberSession("u1"))},
		})
		rec := serve(router, http.MethodDelete, "/user/session", "")
		if rec.Code != http.StatusNoContent || len(auth.revoked) != 1 {
			t.Fatalf("expected the cookie to be revoked, got %d", rec.Code)
		}

		api := NewRouter(RouterConfig{
			Users:      NewUserHandler(users, auth, UserOptions{}, discardLogger()),
			Logger:     discardLogger(),
			Middleware: []func(http.Handler) http.Handler{withSession(application.APISession{Token: application.APIToken{ID: "kiosk"}})},
		})
		if rec := serve(api, http.MethodDelete, "/user/session", ""); rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for API sessions, got %d", rec.Code)
		}
	})

	t.Run("current session", func(t *testing.T) {
		router := NewRouter(RouterConfig{
			Users:      NewUserHandler(users, &cookieIssuerStub{}, UserOptions{}, discardLogger()),
			Logger:     discardLogger(),
			Middleware: []func(http.Handler) http.Handler{withSession(application.APISession{Token: application.APIToken{ID: "kiosk", ReadOnly: true, Hash: "secret"}})},
		})
		rec := serve(router, http.MethodGet, "/user", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "secret") {
			t.Fatalf("token hash leaked: %s", rec.Body.String())
		}
		var body sessionDTO
		decodeJSON(t, rec, &body)
		if body.Type != "api" || !body.ReadOnly || body.Token == nil || body.Token.ID != "kiosk" || body.User != nil {
			t.Fatalf("unexpected session %+v", body)
		}
	})
}

func TestConfigHandler(t *testing.T) {
	settings := &settingsServiceStub{settings: application.Settings{ServicesLinks: []application.ServiceLink{{Link: "https://wiki", Title: "Wiki"}}}}
	router := NewRouter(RouterConfig{
		Config:     NewConfigHandler(settings, discardLogger()),
		Logger:     discardLogger(),
		Middleware: []func(http.Handler) http.Handler{withSession(adminSession("boss"))},
	})

	rec := serve(router, http.MethodPatch, "/config", `{"defaultLocation":"L1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body settingsDTO
	decodeJSON(t, rec, &body)
	if body.DefaultLocation == nil || *body.DefaultLocation != "L1" || len(body.ServicesLinks) != 1 || body.ServicesLinks[0].Title != "Wiki" {
		t.Fatalf("unexpected settings %+v", body)
	}

	if rec := serve(router, http.MethodPatch, "/config", `{"defaultLocation":"missing"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
