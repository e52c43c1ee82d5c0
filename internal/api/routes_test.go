package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MacJediWizard/learning-credentials/internal/api/handlers"
	"github.com/MacJediWizard/learning-credentials/internal/auth"
	"github.com/MacJediWizard/learning-credentials/internal/credentials"
	"github.com/MacJediWizard/learning-credentials/internal/eligibility"
	"github.com/MacJediWizard/learning-credentials/internal/generators"
	"github.com/MacJediWizard/learning-credentials/internal/jobs"
	"github.com/MacJediWizard/learning-credentials/internal/memstore"
	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *Router
	sessions *auth.SessionStore
	store    *memstore.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()
	store := memstore.New()

	queue := jobs.NewQueue(store, jobs.DefaultQueueConfig(), nil, logger)
	svc := credentials.NewService(credentials.Deps{
		Store:      store,
		Retrievers: eligibility.NewRegistry(),
		Generators: generators.NewRegistry(),
		Queue:      queue,
		Paths:      store,
	}, logger)

	sessions, err := auth.NewSessionStore(auth.DefaultSessionConfig([]byte("0123456789abcdef0123456789abcdef"), false), logger)
	if err != nil {
		t.Fatalf("failed to create session store: %v", err)
	}

	router, err := NewRouter(DefaultConfig(), Deps{
		Credentials: svc,
		Jobs:        queue,
		Access:      handlers.NewAccessChecker(nil, store, logger),
		Users:       store,
		Sessions:    sessions,
		Gatherer:    prometheus.NewRegistry(),
	}, logger)
	if err != nil {
		t.Fatalf("failed to create router: %v", err)
	}
	return &testServer{router: router, sessions: sessions, store: store}
}

// login returns the session cookie of u.
func (s *testServer) login(t *testing.T, u *models.User) *http.Cookie {
	t.Helper()
	if err := s.store.UpsertUser(context.Background(), u); err != nil {
		t.Fatalf("failed to store user: %v", err)
	}
	w := httptest.NewRecorder()
	if err := s.sessions.SetUser(httptest.NewRequest(http.MethodGet, "/", nil), w, auth.NewSessionUser(u)); err != nil {
		t.Fatalf("failed to set session user: %v", err)
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}
	return cookies[len(cookies)-1]
}

func (s *testServer) do(method, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	s.router.Engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter_RequiresDeps(t *testing.T) {
	if _, err := NewRouter(DefaultConfig(), Deps{}, zerolog.Nop()); err == nil {
		t.Error("expected error without credentials service and session store")
	}
}

func TestRouter_PublicRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"liveness", "/health/live", http.StatusOK},
		{"readiness without database", "/health", http.StatusServiceUnavailable},
		{"metrics", "/metrics", http.StatusOK},
		{"swagger document", "/api/docs/doc.json", http.StatusOK},
		{"unknown credential metadata", BasePath + "/metadata/" + uuid.NewString() + "/", http.StatusNotFound},
		{"login disabled without OIDC", "/auth/login", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodGet, tt.path, nil)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestRouter_Authentication(t *testing.T) {
	s := newTestServer(t)

	learner := models.NewUser(1, "learner", "learner@example.com")
	staff := models.NewUser(2, "staff", "staff@example.com")
	staff.IsStaff = true

	learnerCookie := s.login(t, learner)
	staffCookie := s.login(t, staff)

	tests := []struct {
		name   string
		method string
		path   string
		cookie *http.Cookie
		status int
	}{
		{"anonymous credential list", http.MethodGet, BasePath + "/credentials/", nil, http.StatusForbidden},
		{"learner credential list", http.MethodGet, BasePath + "/credentials/", learnerCookie, http.StatusOK},
		{"profile disabled without OIDC", http.MethodGet, BasePath + "/me/", learnerCookie, http.StatusNotFound},
		{"learner without course access", http.MethodGet, BasePath + "/configured/course-v1:OpenedX+DemoX+2026/", learnerCookie, http.StatusNotFound},
		{"learner admin", http.MethodGet, BasePath + "/admin/configurations/", learnerCookie, http.StatusForbidden},
		{"staff admin", http.MethodGet, BasePath + "/admin/configurations/", staffCookie, http.StatusOK},
		{"staff job summary", http.MethodGet, BasePath + "/admin/jobs/summary/", staffCookie, http.StatusOK},
		{"staff configuration check", http.MethodGet, BasePath + "/configured/course-v1:OpenedX+DemoX+2026/", staffCookie, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.cookie)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health/live", nil)
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
}
