package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-seat-booking/internal/auth"
	"github.com/iliyamo/office-seat-booking/internal/model"
	"github.com/iliyamo/office-seat-booking/internal/repository"
	"github.com/iliyamo/office-seat-booking/internal/service"
)

const frontend = "http://127.0.0.1:5173/"

type fakeProvider struct {
	tok   auth.TokenResponse
	err   error
	fault string
}

func (p *fakeProvider) AuthorizeURL(state string) (string, error) {
	return "https://login.w3.example.com/authorize?state=" + url.QueryEscape(state), nil
}

func (p *fakeProvider) Exchange(context.Context, string) (auth.TokenResponse, error) {
	if p.fault != "" {
		panic(p.fault)
	}
	return p.tok, p.err
}

// trackedSessions counts deletes on top of the in-memory store and can be
// told to refuse new sessions.
type trackedSessions struct {
	auth.SessionStore
	mu        sync.Mutex
	createErr error
	deleted   int
}

func (s *trackedSessions) Create(ctx context.Context, id auth.Identity, ttl time.Duration) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	return s.SessionStore.Create(ctx, id, ttl)
}

func (s *trackedSessions) Delete(ctx context.Context, sid string) error {
	s.mu.Lock()
	s.deleted++
	s.mu.Unlock()
	return s.SessionStore.Delete(ctx, sid)
}

type fakeVerifier struct {
	id  auth.Identity
	err error
}

func (v *fakeVerifier) Verify(context.Context, string) (auth.Identity, error) { return v.id, v.err }

// memEmployees keeps the upsert semantics of the SQL directory.
type memEmployees struct {
	mu   sync.Mutex
	rows map[string]model.Employee
	err  error
}

func (m *memEmployees) RecordLogin(_ context.Context, e model.Employee, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if cur, ok := m.rows[e.W3ID]; ok {
		cur.LastLoginAt = now
		m.rows[e.W3ID] = cur
		return nil
	}
	e.FirstLoginAt, e.LastLoginAt = now, now
	m.rows[e.W3ID] = e
	return nil
}

func (m *memEmployees) AddBookedSeat(context.Context, string, int, time.Time) error { return nil }

func (m *memEmployees) GetByW3ID(_ context.Context, w3ID string) (*model.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[w3ID]
	if !ok {
		return nil, repository.ErrEmployeeNotFound
	}
	return &e, nil
}

type authFixture struct {
	e         *echo.Echo
	h         *AuthHandler
	provider  *fakeProvider
	verifier  *fakeVerifier
	employees *memEmployees
	sessions  *trackedSessions
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	signer, err := auth.NewSigner("test-secret")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	f := &authFixture{
		e:         echo.New(),
		provider:  &fakeProvider{tok: auth.TokenResponse{AccessToken: "at", IDToken: "it", ExpiresIn: time.Hour}},
		verifier:  &fakeVerifier{id: auth.Identity{W3ID: "alice", Name: "Alice Example", Email: "alice@ibm.com"}},
		employees: &memEmployees{rows: map[string]model.Employee{}},
		sessions:  &trackedSessions{SessionStore: auth.NewMemorySessionStore()},
	}
	authn := &auth.Authenticator{
		Mode:       auth.ModeSession,
		Sessions:   f.sessions,
		Verifier:   f.verifier,
		Signer:     signer,
		SessionTTL: time.Hour,
	}
	f.h = &AuthHandler{
		Provider:    f.provider,
		Verifier:    f.verifier,
		Auth:        authn,
		Directory:   service.NewDirectory(f.employees),
		FrontendURL: frontend,
	}
	f.e.GET("/auth/login", f.h.Login)
	f.e.GET("/auth/callback", f.h.Callback)
	f.e.POST("/auth/logout", f.h.Logout)
	return f
}

// login runs /auth/login and returns the state and the state cookie.
func (f *authFixture) login(t *testing.T) (string, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("login: expected 302, got %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.StateCookie {
			return loc.Query().Get("state"), c
		}
	}
	t.Fatalf("login did not set the state cookie")
	return "", nil
}

func (f *authFixture) callback(query string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+query, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func redirectError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	return loc.Query().Get("error")
}

func TestCallbackSuccessEstablishesSession(t *testing.T) {
	f := newAuthFixture(t)
	state, cookie := f.login(t)
	rec := f.callback("code=abc&state="+state, cookie)

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != frontend {
		t.Fatalf("expected redirect to front end, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			session = c
		}
	}
	if session == nil || !session.HttpOnly || session.Value == "" {
		t.Fatalf("expected an HttpOnly session cookie, got %+v", rec.Result().Cookies())
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(session)
	id, err := f.h.Auth.Resolve(req)
	if err != nil || id.W3ID != "alice" {
		t.Fatalf("session should resolve to alice: %+v %v", id, err)
	}
}

func TestCallbackTwiceKeepsOneEmployee(t *testing.T) {
	f := newAuthFixture(t)
	state, cookie := f.login(t)
	if msg := redirectError(t, f.callback("code=abc&state="+state, cookie)); msg != "" {
		t.Fatalf("first login failed: %s", msg)
	}
	first := f.employees.rows["alice"].FirstLoginAt

	state, cookie = f.login(t)
	if msg := redirectError(t, f.callback("code=def&state="+state, cookie)); msg != "" {
		t.Fatalf("second login failed: %s", msg)
	}
	if len(f.employees.rows) != 1 {
		t.Fatalf("expected one employee, got %d", len(f.employees.rows))
	}
	e := f.employees.rows["alice"]
	if !e.FirstLoginAt.Equal(first) || e.LastLoginAt.Before(first) {
		t.Fatalf("first_login_at must not change: %v -> %v", first, e.FirstLoginAt)
	}
}

func TestCallbackErrorRedirects(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(f *authFixture)
		query  func(state string) string
		cookie bool
		want   string
	}{
		{"provider error", nil, func(string) string { return "error=access_denied" }, true, "access_denied"},
		{"no code", nil, func(s string) string { return "state=" + s }, true, "no_code"},
		{"state mismatch", nil, func(string) string { return "code=abc&state=forged" }, true, "invalid_state"},
		{"missing state cookie", nil, func(s string) string { return "code=abc&state=" + s }, false, "invalid_state"},
		{"provider down", func(f *authFixture) {
			f.provider.err = fmt.Errorf("%w: 502", auth.ErrServiceUnavailable)
		}, nil, true, "provider_unavailable"},
		{"exchange rejected", func(f *authFixture) {
			f.provider.err = fmt.Errorf("%w: 400", auth.ErrTokenExchange)
		}, nil, true, "token_exchange_failed"},
		{"no id token", func(f *authFixture) {
			f.provider.tok = auth.TokenResponse{AccessToken: "at"}
		}, nil, true, "token_exchange_failed"},
		{"bad signature", func(f *authFixture) {
			f.verifier.err = fmt.Errorf("%w: signature", auth.ErrUnauthenticated)
		}, nil, true, "invalid_token"},
		{"no identity claim", func(f *authFixture) {
			f.verifier.err = fmt.Errorf("%w: %w", auth.ErrUnauthenticated, auth.ErrNoIdentity)
		}, nil, true, "invalid_claims"},
		{"jwks down", func(f *authFixture) {
			f.verifier.err = auth.ErrServiceUnavailable
		}, nil, true, "provider_unavailable"},
		{"directory down", func(f *authFixture) {
			f.employees.err = errors.New("mysql gone")
		}, nil, true, "auth_failed"},
		{"session store down", func(f *authFixture) {
			f.sessions.createErr = errors.New("redis gone")
		}, nil, true, "auth_failed"},
		{"exchange panics", func(f *authFixture) {
			f.provider.fault = "nil map write"
		}, nil, true, "auth_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			state, cookie := f.login(t)
			query := "code=abc&state=" + state
			if tt.query != nil {
				query = tt.query(state)
			}
			if !tt.cookie {
				cookie = nil
			}
			rec := f.callback(query, cookie)
			if got := redirectError(t, rec); got != tt.want {
				t.Fatalf("expected error=%s, got %q", tt.want, got)
			}
			for _, c := range rec.Result().Cookies() {
				if c.Name == auth.SessionCookie && c.Value != "" {
					t.Fatalf("failed login must not set a session")
				}
			}
		})
	}
}

func TestCallbackSessionFailureRecordsNoLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.sessions.createErr = errors.New("redis gone")
	state, cookie := f.login(t)
	if got := redirectError(t, f.callback("code=abc&state="+state, cookie)); got != loginAuthFailed {
		t.Fatalf("expected error=%s, got %q", loginAuthFailed, got)
	}
	if len(f.employees.rows) != 0 {
		t.Fatalf("failed login must not be recorded, got %+v", f.employees.rows)
	}
}

func TestCallbackDirectoryFailureRevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	f.employees.err = errors.New("mysql gone")
	state, cookie := f.login(t)
	if got := redirectError(t, f.callback("code=abc&state="+state, cookie)); got != loginAuthFailed {
		t.Fatalf("expected error=%s, got %q", loginAuthFailed, got)
	}
	if f.sessions.deleted != 1 {
		t.Fatalf("expected the minted session to be revoked, deletes=%d", f.sessions.deleted)
	}
}

func TestCallbackPanicBecomesRedirect(t *testing.T) {
	f := newAuthFixture(t)
	f.provider.fault = "boom"
	state, cookie := f.login(t)
	rec := f.callback("code=abc&state="+state, cookie)
	if got := redirectError(t, rec); got != loginAuthFailed {
		t.Fatalf("expected error=%s, got %q", loginAuthFailed, got)
	}
	if len(f.employees.rows) != 0 {
		t.Fatalf("panicked login must not be recorded")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	f := newAuthFixture(t)
	state, cookie := f.login(t)
	rec := f.callback("code=abc&state="+state, cookie)
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			session = c
		}
	}
	if session == nil {
		t.Fatalf("no session cookie")
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(session)
	out := httptest.NewRecorder()
	f.e.ServeHTTP(out, req)
	if out.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", out.Code)
	}

	check := httptest.NewRequest(http.MethodGet, "/me", nil)
	check.AddCookie(session)
	if _, err := f.h.Auth.Resolve(check); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Fatalf("session should be gone, got %v", err)
	}
}

func TestWithErrorKeepsExistingQuery(t *testing.T) {
	got := withError("http://app.example.com/login?next=%2Fseats", "no_code")
	want := "http://app.example.com/login?error=no_code&next=%2Fseats"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
