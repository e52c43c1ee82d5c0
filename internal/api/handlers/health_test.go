package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type fakeDB struct {
	err error
}

func (f *fakeDB) Ping(context.Context) error { return f.err }

func (f *fakeDB) Health(context.Context) map[string]any {
	return map[string]any{"total_conns": 4}
}

type fakeOIDCHealth struct {
	err error
}

func (f *fakeOIDCHealth) HealthCheck(context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		db         DatabaseHealthChecker
		oidc       OIDCHealthChecker
		wantStatus int
		wantBody   []string
	}{
		{name: "all healthy", db: &fakeDB{}, oidc: &fakeOIDCHealth{}, wantStatus: http.StatusOK, wantBody: []string{`"total_conns":4`, `"oidc"`}},
		{name: "oidc not configured", db: &fakeDB{}, wantStatus: http.StatusOK},
		{name: "database down", db: &fakeDB{err: errors.New("refused")}, wantStatus: http.StatusServiceUnavailable, wantBody: []string{"database unreachable"}},
		{name: "database missing", wantStatus: http.StatusServiceUnavailable, wantBody: []string{"database not configured"}},
		{name: "oidc down", db: &fakeDB{}, oidc: &fakeOIDCHealth{err: errors.New("dns")}, wantStatus: http.StatusServiceUnavailable, wantBody: []string{"oidc unreachable"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, tt.oidc, nil, zerolog.Nop())
			r := gin.New()
			h.RegisterPublicRoutes(r)

			w := serve(r, http.MethodGet, "/health")
			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(w.Body.String(), want) {
					t.Errorf("expected body to contain %q, got %s", want, w.Body.String())
				}
			}
		})
	}
}

func TestHealthHandler_LiveAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "learning_credentials_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h := NewHealthHandler(&fakeDB{err: errors.New("down")}, nil, reg, zerolog.Nop())
	r := gin.New()
	h.RegisterPublicRoutes(r)

	if w := serve(r, http.MethodGet, "/health/live"); w.Code != http.StatusOK {
		t.Errorf("expected liveness 200 regardless of dependencies, got %d", w.Code)
	}

	w := serve(r, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "learning_credentials_test_total 1") {
		t.Errorf("expected counter in metrics output, got %s", w.Body.String())
	}
}
