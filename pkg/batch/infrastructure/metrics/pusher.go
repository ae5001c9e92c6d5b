package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	config "github.com/tigerroll/cropwx/pkg/batch/core/config"
	logger "github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// Pusher sends the collected batch metrics to a Prometheus Pushgateway.
// Batch processes exit before a scrape could reach them.
type Pusher struct {
	url      string
	gatherer prometheus.Gatherer
}

// NewPusher creates a Pusher. An empty pushgateway_url disables pushing.
func NewPusher(cfg *config.MetricsConfig, gatherer prometheus.Gatherer) *Pusher {
	return &Pusher{url: cfg.PushgatewayURL, gatherer: gatherer}
}

// Enabled reports whether a Pushgateway is configured.
func (p *Pusher) Enabled() bool {
	return p != nil && p.url != ""
}

// Push sends all gathered metrics under the given job name.
func (p *Pusher) Push(ctx context.Context, jobName string) error {
	if !p.Enabled() {
		return nil
	}
	if err := push.New(p.url, jobName).Gatherer(p.gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", p.url, err)
	}
	logger.Debugf("Pushed metrics for job '%s' to %s", jobName, p.url)
	return nil
}
