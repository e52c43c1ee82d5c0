package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const healthTimeout = 5 * time.Second

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResult represents the result of one component check.
type HealthCheckResult struct {
	Status   HealthStatus   `json:"status"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status HealthStatus                  `json:"status"`
	Checks map[string]*HealthCheckResult `json:"checks"`
}

// DatabaseHealthChecker checks the database connection.
type DatabaseHealthChecker interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) map[string]any
}

// OIDCHealthChecker checks that the LMS identity provider is reachable.
type OIDCHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves liveness, readiness and metrics endpoints.
type HealthHandler struct {
	db       DatabaseHealthChecker
	oidc     OIDCHealthChecker
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
}

// NewHealthHandler creates a new HealthHandler. oidc and gatherer may be nil.
func NewHealthHandler(db DatabaseHealthChecker, oidc OIDCHealthChecker, gatherer prometheus.Gatherer, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		db:       db,
		oidc:     oidc,
		gatherer: gatherer,
		logger:   logger.With().Str("component", "health_handler").Logger(),
	}
}

// RegisterPublicRoutes registers health and metrics routes.
func (h *HealthHandler) RegisterPublicRoutes(r *gin.Engine) {
	r.GET("/health", h.Overall)
	r.GET("/health/live", h.Live)
	if h.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}
}

// Live reports that the process is serving requests.
//
//	@Summary		Liveness check
//	@Tags			Monitoring
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health/live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": HealthStatusHealthy})
}

// Overall checks every dependency and reports 503 if any is unhealthy.
//
//	@Summary		Readiness check
//	@Tags			Monitoring
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/health [get]
func (h *HealthHandler) Overall(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	response := &HealthResponse{
		Status: HealthStatusHealthy,
		Checks: map[string]*HealthCheckResult{
			"database": h.checkDatabase(ctx),
		},
	}
	if h.oidc != nil {
		response.Checks["oidc"] = h.check(ctx, "oidc", h.oidc.HealthCheck)
	}

	for _, result := range response.Checks {
		if result.Status == HealthStatusUnhealthy {
			response.Status = HealthStatusUnhealthy
		}
	}
	if response.Status == HealthStatusUnhealthy {
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) *HealthCheckResult {
	if h.db == nil {
		return &HealthCheckResult{Status: HealthStatusUnhealthy, Error: "database not configured"}
	}
	result := h.check(ctx, "database", h.db.Ping)
	if result.Status == HealthStatusHealthy {
		result.Details = h.db.Health(ctx)
	}
	return result
}

func (h *HealthHandler) check(ctx context.Context, name string, fn func(context.Context) error) *HealthCheckResult {
	start := time.Now()
	err := fn(ctx)
	result := &HealthCheckResult{
		Status:   HealthStatusHealthy,
		Duration: time.Since(start).String(),
	}
	if err != nil {
		h.logger.Warn().Err(err).Str("check", name).Msg("health check failed")
		result.Status = HealthStatusUnhealthy
		result.Error = name + " unreachable"
	}
	return result
}
