// Package telemetry provides Prometheus metrics, correlation-id aware logging
// helpers, and OpenTelemetry tracing setup for the feed pipeline.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	PostsGenerated  prometheus.Counter
	PostsEvicted    prometheus.Counter
	CadenceTriggers prometheus.Counter
	ReplyTriggers   prometheus.Counter
	PersistFailures prometheus.Counter

	// Histograms (seconds)
	GenerateDuration prometheus.Observer

	// Gauges
	FeedDepthGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		PostsGenerated = promauto.NewCounter(prometheus.CounterOpts{Name: "feed_posts_generated_total", Help: "Number of posts generated"})
		PostsEvicted = promauto.NewCounter(prometheus.CounterOpts{Name: "feed_posts_evicted_total", Help: "Number of posts evicted by the capacity bound"})
		CadenceTriggers = promauto.NewCounter(prometheus.CounterOpts{Name: "feed_cadence_triggers_total", Help: "Automatic composes fired by the viewer-message cadence"})
		ReplyTriggers = promauto.NewCounter(prometheus.CounterOpts{Name: "feed_reply_triggers_total", Help: "Automatic composes fired by the author-reply heuristic"})
		PersistFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "feed_persist_failures_total", Help: "Settings blob writes that failed (best-effort)"})
		GenerateDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "feed_generate_duration_seconds", Help: "Post generation duration seconds", Buckets: prometheus.DefBuckets})
		FeedDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "feed_depth", Help: "Current number of posts in the feed"})
	})
}

// IncPostsGenerated bumps the generated-posts counter if metrics are up.
func IncPostsGenerated() {
	if PostsGenerated != nil {
		PostsGenerated.Inc()
	}
}

// AddPostsEvicted records n evictions.
func AddPostsEvicted(n int) {
	if PostsEvicted != nil && n > 0 {
		PostsEvicted.Add(float64(n))
	}
}

// IncCadenceTriggers bumps the cadence trigger counter.
func IncCadenceTriggers() {
	if CadenceTriggers != nil {
		CadenceTriggers.Inc()
	}
}

// IncReplyTriggers bumps the reply-heuristic trigger counter.
func IncReplyTriggers() {
	if ReplyTriggers != nil {
		ReplyTriggers.Inc()
	}
}

// IncPersistFailures bumps the swallowed-persist-failure counter.
func IncPersistFailures() {
	if PersistFailures != nil {
		PersistFailures.Inc()
	}
}

// SetFeedDepth records the current feed size.
func SetFeedDepth(n int) {
	if FeedDepthGauge != nil {
		FeedDepthGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records it in obs if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with the corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
