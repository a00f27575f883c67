package duplicates

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/spacebridge-io/spacebridge-mcp/duplicates"

// decisionMetrics holds lazily-initialized OTel instruments. Without a
// configured MeterProvider they are no-ops.
var decisionMetrics struct {
	decisions metric.Int64Counter
}

var decisionMetricsOnce sync.Once

func initDecisionMetrics() {
	m := otel.Meter(meterName)
	decisionMetrics.decisions, _ = m.Int64Counter("spacebridge.duplicates.decisions",
		metric.WithDescription("Duplicate-check verdicts by detector and status"),
		metric.WithUnit("{decision}"),
	)
}

// RecordDecision counts one verdict.
func RecordDecision(ctx context.Context, detector string, status Status) {
	decisionMetricsOnce.Do(initDecisionMetrics)
	if decisionMetrics.decisions == nil {
		return
	}
	decisionMetrics.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("detector", detector),
		attribute.String("status", string(status)),
	))
}
