package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/rs/zerolog"
)

// Store defines the reads needed to refresh gauges.
type Store interface {
	ListConfigurations(ctx context.Context) ([]*models.CredentialConfiguration, error)
	GetJobQueueSummary(ctx context.Context) (*models.JobQueueSummary, error)
}

// Collector periodically refreshes gauge metrics from the database.
type Collector struct {
	store    Store
	metrics  *PrometheusMetrics
	interval time.Duration
	logger   zerolog.Logger
	stop     chan struct{}
	done     chan struct{}
}

// NewCollector creates a new Collector.
func NewCollector(store Store, metrics *PrometheusMetrics, interval time.Duration, logger zerolog.Logger) *Collector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Collector{
		store:    store,
		metrics:  metrics,
		interval: interval,
		logger:   logger.With().Str("component", "metrics_collector").Logger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Collect refreshes every gauge once.
func (c *Collector) Collect(ctx context.Context) error {
	configs, err := c.store.ListConfigurations(ctx)
	if err != nil {
		return fmt.Errorf("list configurations: %w", err)
	}
	enabled := 0
	for _, cfg := range configs {
		if cfg.Enabled {
			enabled++
		}
	}
	c.metrics.SetConfigurationCount("enabled", enabled)
	c.metrics.SetConfigurationCount("disabled", len(configs)-enabled)

	summary, err := c.store.GetJobQueueSummary(ctx)
	if err != nil {
		return fmt.Errorf("get job queue summary: %w", err)
	}
	c.metrics.SetQueueDepth(string(models.JobStatusPending), summary.TotalPending)
	c.metrics.SetQueueDepth(string(models.JobStatusRunning), summary.TotalRunning)
	c.metrics.SetQueueDepth(string(models.JobStatusFailed), summary.TotalFailed)
	c.metrics.SetQueueDepth(string(models.JobStatusDeadLetter), summary.TotalDeadLetter)
	return nil
}

// Start begins periodic collection.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)

	if err := c.Collect(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("failed to collect metrics on startup")
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			if err := c.Collect(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("failed to collect metrics")
			}
		}
	}
}

// Stop signals the collector to stop and waits for it to finish.
func (c *Collector) Stop() {
	close(c.stop)
	<-c.done
}
