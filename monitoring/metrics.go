package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scans_total",
			Help: "Classified scans per event and outcome",
		},
		[]string{"event_id", "outcome"},
	)

	droppedScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropped_scans_total",
			Help: "Scans dropped by the debounce guard",
		},
		[]string{"event_id", "cause"},
	)

	validationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "validation_duration_seconds",
			Help:    "Duration of remote validation calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"event_id"},
	)

	sessionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scan_sessions_open",
			Help: "Currently open scanning sessions",
		},
	)

	sessionsBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scan_sessions_busy",
			Help: "Scanning sessions with a validation in flight",
		},
	)

	pendingValidations = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "offline_pending_validations",
			Help: "Offline validations queued for replay per event",
		},
		[]string{"event_id"},
	)
)

func RecordScan(eventID, outcome string) {
	scansTotal.WithLabelValues(eventID, outcome).Inc()
}

func RecordDroppedScan(eventID, cause string) {
	droppedScans.WithLabelValues(eventID, cause).Inc()
}

func ObserveValidationDuration(eventID string, d time.Duration) {
	validationDuration.WithLabelValues(eventID).Observe(d.Seconds())
}

// SessionCounter is implemented by the session service.
type SessionCounter interface {
	Counts() (open, busy int)
}

type Monitor struct {
	redis    *redis.Client
	sessions SessionCounter
}

func NewMonitor(redisClient *redis.Client, sessions SessionCounter) *Monitor {
	monitor := &Monitor{redis: redisClient, sessions: sessions}

	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()

		m.collectSessionMetrics()
		m.collectPendingMetrics(ctx)
	}
}

func (m *Monitor) collectSessionMetrics() {
	open, busy := m.sessions.Counts()
	sessionsOpen.Set(float64(open))
	sessionsBusy.Set(float64(busy))
}

func (m *Monitor) collectPendingMetrics(ctx context.Context) {
	keys, _ := m.redis.Keys(ctx, "offline:pending:*").Result()
	for _, key := range keys {
		eventID := key[len("offline:pending:"):]
		length, _ := m.redis.LLen(ctx, key).Result()
		pendingValidations.WithLabelValues(eventID).Set(float64(length))
	}
}
