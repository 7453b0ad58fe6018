package syncengine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// syncMetrics holds OTel metric instruments for the sync engine.
// Instruments are registered against the global delegating provider at init
// time, so they automatically forward to the real provider once telemetry
// is configured at the composition root.
var syncMetrics struct {
	processed metric.Int64Counter
	added     metric.Int64Counter
	skipped   metric.Int64Counter
	errs      metric.Int64Counter
	durationS metric.Float64Histogram
}

func init() {
	m := otel.Meter("github.com/mepuka/bsky-cli-sub001/syncengine")
	syncMetrics.processed, _ = m.Int64Counter("bsky.sync.processed",
		metric.WithDescription("raw posts considered by a sync run"),
		metric.WithUnit("{post}"),
	)
	syncMetrics.added, _ = m.Int64Counter("bsky.sync.added",
		metric.WithDescription("posts committed by a sync run"),
		metric.WithUnit("{post}"),
	)
	syncMetrics.skipped, _ = m.Int64Counter("bsky.sync.skipped",
		metric.WithDescription("posts skipped by a sync run (not matched or already indexed)"),
		metric.WithUnit("{post}"),
	)
	syncMetrics.errs, _ = m.Int64Counter("bsky.sync.errors",
		metric.WithDescription("per-event errors recovered during a sync run"),
		metric.WithUnit("{error}"),
	)
	syncMetrics.durationS, _ = m.Float64Histogram("bsky.sync.duration",
		metric.WithDescription("wall-clock duration of a sync run"),
		metric.WithUnit("s"),
	)
}

func recordRun(ctx context.Context, sourceKey string, r Result) {
	attrs := metric.WithAttributes(attribute.String("bsky.sync.source", sourceKey))
	syncMetrics.added.Add(ctx, int64(r.PostsAdded), attrs)
	syncMetrics.skipped.Add(ctx, int64(r.PostsSkipped), attrs)
	syncMetrics.errs.Add(ctx, int64(len(r.Errors)), attrs)
	syncMetrics.durationS.Record(ctx, r.Duration.Seconds(), attrs)
}
