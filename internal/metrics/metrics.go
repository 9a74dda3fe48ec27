// Package metrics exposes chat-server runtime state as Prometheus
// collectors, grounded on the teacher's connection-pool metrics registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds every Prometheus metric the chat server reports.
type Collector struct {
	Registry *prometheus.Registry

	sessionsActive  prometheus.Gauge
	roomsActive     prometheus.Gauge
	roomsInactive   prometheus.Gauge
	connectionsLive prometheus.Gauge

	messagesTotal    *prometheus.CounterVec
	messagesRejected *prometheus.CounterVec
	broadcastLatency prometheus.Histogram
	broadcastFanout  prometheus.Histogram
	loginsTotal      *prometheus.CounterVec
	kicksTotal       prometheus.Counter

	dbPoolInUse     prometheus.Gauge
	dbPoolAvailable prometheus.Gauge
	dbQueryDuration *prometheus.HistogramVec
	dbQueryErrors   *prometheus.CounterVec
}

// New creates and registers every chat-server metric on an independent
// registry. Safe to call multiple times (e.g. in tests) — each call
// produces a registry that doesn't conflict with any other.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatserver_sessions_active",
			Help: "Number of bearer tokens currently valid",
		}),
		roomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatserver_rooms_active",
			Help: "Number of rooms currently active",
		}),
		roomsInactive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatserver_rooms_inactive",
			Help: "Number of rooms currently deactivated",
		}),
		connectionsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatserver_connections_live",
			Help: "Number of live TCP connections held by the reactor",
		}),
		messagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatserver_messages_total",
				Help: "Chat messages accepted, by room",
			},
			[]string{"room_id"},
		),
		messagesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatserver_messages_rejected_total",
				Help: "Chat messages rejected at the dispatcher boundary, by reason",
			},
			[]string{"reason"},
		),
		broadcastLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatserver_broadcast_duration_seconds",
			Help:    "Time to fan a single broadcast out to all recipients",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		}),
		broadcastFanout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatserver_broadcast_fanout_size",
			Help:    "Number of recipients per broadcast",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		loginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatserver_logins_total",
				Help: "Successful logins, by role",
			},
			[]string{"role"},
		),
		kicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatserver_kicks_total",
			Help: "Connections force-kicked due to concurrent login",
		}),
		dbPoolInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatserver_db_pool_in_use",
			Help: "Gateway pool handles currently checked out",
		}),
		dbPoolAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatserver_db_pool_available",
			Help: "Gateway pool handles currently available",
		}),
		dbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatserver_db_query_duration_seconds",
				Help:    "Duration of gateway query execution",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
			},
			[]string{"op"},
		),
		dbQueryErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatserver_db_query_errors_total",
				Help: "Gateway query failures, by classification",
			},
			[]string{"class"},
		),
	}

	reg.MustRegister(
		c.sessionsActive,
		c.roomsActive,
		c.roomsInactive,
		c.connectionsLive,
		c.messagesTotal,
		c.messagesRejected,
		c.broadcastLatency,
		c.broadcastFanout,
		c.loginsTotal,
		c.kicksTotal,
		c.dbPoolInUse,
		c.dbPoolAvailable,
		c.dbQueryDuration,
		c.dbQueryErrors,
	)

	return c
}

// SetSessionsActive records the current token-store population.
func (c *Collector) SetSessionsActive(n int) { c.sessionsActive.Set(float64(n)) }

// SetRoomCounts records the active/inactive room split.
func (c *Collector) SetRoomCounts(active, inactive int) {
	c.roomsActive.Set(float64(active))
	c.roomsInactive.Set(float64(inactive))
}

// SetConnectionsLive records the reactor's live connection count.
func (c *Collector) SetConnectionsLive(n int) { c.connectionsLive.Set(float64(n)) }

// MessageSent increments the per-room message counter.
func (c *Collector) MessageSent(roomID string) { c.messagesTotal.WithLabelValues(roomID).Inc() }

// MessageRejected increments the rejection counter for a reason.
func (c *Collector) MessageRejected(reason string) {
	c.messagesRejected.WithLabelValues(reason).Inc()
}

// BroadcastCompleted observes a broadcast's wall-clock duration and the
// number of recipients it reached.
func (c *Collector) BroadcastCompleted(d time.Duration, recipients int) {
	c.broadcastLatency.Observe(d.Seconds())
	c.broadcastFanout.Observe(float64(recipients))
}

// LoginSucceeded increments the login counter for a role.
func (c *Collector) LoginSucceeded(role string) { c.loginsTotal.WithLabelValues(role).Inc() }

// ConnectionKicked increments the forced-kick counter.
func (c *Collector) ConnectionKicked() { c.kicksTotal.Inc() }

// UpdateDBPoolStats records the gateway pool's current occupancy.
func (c *Collector) UpdateDBPoolStats(inUse, available int) {
	c.dbPoolInUse.Set(float64(inUse))
	c.dbPoolAvailable.Set(float64(available))
}

// DBQueryCompleted observes a gateway query's duration by operation name.
func (c *Collector) DBQueryCompleted(op string, d time.Duration) {
	c.dbQueryDuration.WithLabelValues(op).Observe(d.Seconds())
}

// DBQueryFailed increments the gateway error counter by classification
// (connection, not_found, internal).
func (c *Collector) DBQueryFailed(class string) { c.dbQueryErrors.WithLabelValues(class).Inc() }
