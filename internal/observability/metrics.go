// Package observability holds Prometheus collectors and OpenTelemetry setup.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// DatabaseQueryLatency records statement latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blog_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// EngagementToggles counts like/bookmark changes. Idempotent repeats are labelled "noop".
	EngagementToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_engagement_toggles_total",
		Help: "Like and bookmark toggles by kind, action and outcome",
	}, []string{"kind", "action", "outcome"})

	// NotificationsSent counts notifications persisted, by trigger.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_notifications_sent_total",
		Help: "Notifications written by trigger",
	}, []string{"trigger"})

	// SlugCollisions counts post creations that needed a numeric suffix or a retry.
	SlugCollisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_slug_collisions_total",
		Help: "Slug collisions by stage (suffix, retry, exhausted)",
	}, []string{"stage"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

const startedAtKey = "observability:started_at"

// DatabaseMetrics records query latency through GORM callbacks.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// Register hooks latency observation around every create, query, update, delete and raw call.
func (m *DatabaseMetrics) Register() error {
	cb := m.db.Callback()
	hooks := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		op := h.op
		if err := h.before("metrics:before_"+op, markStart); err != nil {
			return err
		}
		if err := h.after("metrics:after_"+op, func(tx *gorm.DB) { m.observe(tx, op) }); err != nil {
			return err
		}
	}
	return nil
}

func markStart(tx *gorm.DB) {
	tx.InstanceSet(startedAtKey, time.Now())
}

func (m *DatabaseMetrics) observe(tx *gorm.DB, operation string) {
	v, ok := tx.InstanceGet(startedAtKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	table := "unknown"
	if tx.Statement != nil && tx.Statement.Table != "" {
		table = tx.Statement.Table
	}
	m.ObserveQuery(operation, table, start)
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}
