// Package metrics exposes Prometheus collectors for the HTTP layer and the
// project lifecycle.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"devcollab/platform-backend/internal/notifications"
	"devcollab/platform-backend/pkg/apperr"
)

const namespace = "devcollab"

// Registry holds the platform's collectors. Each Registry owns its own
// prometheus.Registry so tests never share state.
type Registry struct {
	registry *prometheus.Registry

	httpInFlight  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	reputation    *prometheus.CounterVec
	notifications *prometheus.CounterVec
	unread        prometheus.Gauge
	staleUnread   prometheus.Gauge
	unreadUsers   prometheus.Gauge
}

func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "projects",
			Name:      "status_transitions_total",
			Help:      "Committed project status transitions.",
		}, []string{"from", "to"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "projects",
			Name:      "operation_rejections_total",
			Help:      "Lifecycle operations that failed, by error kind.",
		}, []string{"operation", "kind"}),
		reputation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "projects",
			Name:      "reputation_points_total",
			Help:      "Reputation points credited by settlement.",
		}, []string{"reason"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Notifications written to user inboxes.",
		}, []string{"kind"}),
		unread: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "unread",
			Help:      "Unread notifications across all inboxes.",
		}),
		staleUnread: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "stale_unread",
			Help:      "Unread notifications older than the stale window.",
		}),
		unreadUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "users_with_unread",
			Help:      "Users holding at least one unread notification.",
		}),
	}

	r.registry.MustRegister(
		r.httpInFlight,
		r.httpRequests,
		r.httpDuration,
		r.transitions,
		r.rejections,
		r.reputation,
		r.notifications,
		r.unread,
		r.staleUnread,
		r.unreadUsers,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return r
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }

// Handler returns an HTTP handler exposing the registered metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per matched route.
func (r *Registry) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		r.httpInFlight.Inc()
		defer r.httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		r.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Transition, Rejected and ReputationAwarded implement projects.Metrics.

func (r *Registry) Transition(from, to string) {
	r.transitions.WithLabelValues(from, to).Inc()
}

func (r *Registry) Rejected(operation string, kind apperr.Kind) {
	r.rejections.WithLabelValues(operation, string(kind)).Inc()
}

func (r *Registry) ReputationAwarded(reason string, points int) {
	r.reputation.WithLabelValues(reason).Add(float64(points))
}

// NotificationCreated counts a delivered notification.
func (r *Registry) NotificationCreated(kind string) {
	r.notifications.WithLabelValues(kind).Inc()
}

// NotificationBacklog publishes the latest backlog measurement.
func (r *Registry) NotificationBacklog(b notifications.Backlog) {
	r.unread.Set(float64(b.Unread))
	r.staleUnread.Set(float64(b.Stale))
	r.unreadUsers.Set(float64(b.Users))
}

type meteredSink struct {
	next     notifications.Sink
	registry *Registry
}

// WrapSink counts every notification next accepts.
func (r *Registry) WrapSink(next notifications.Sink) notifications.Sink {
	return &meteredSink{next: next, registry: r}
}

func (s *meteredSink) Notify(ctx context.Context, msg notifications.Message) error {
	if err := s.next.Notify(ctx, msg); err != nil {
		return err
	}
	s.registry.NotificationCreated(string(msg.Kind))
	return nil
}
