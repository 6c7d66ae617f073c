// Package metrics exposes Prometheus counters for the taskboard server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	requests         *prometheus.CounterVec
	latency          *prometheus.HistogramVec
	cardsCreated     prometheus.Counter
	cardsDeleted     prometheus.Counter
	commentsCreated  prometheus.Counter
	commentsDeleted  prometheus.Counter
	ongoingConflicts prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskboard_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cardsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_cards_created_total",
			Help: "Cards created.",
		}),
		cardsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_cards_deleted_total",
			Help: "Cards deleted.",
		}),
		commentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_comments_created_total",
			Help: "Comments created.",
		}),
		commentsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_comments_deleted_total",
			Help: "Comments deleted.",
		}),
		ongoingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_ongoing_conflicts_total",
			Help: "Writes rejected because another card is already Ongoing.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.cardsCreated,
		c.cardsDeleted,
		c.commentsCreated,
		c.commentsDeleted,
		c.ongoingConflicts,
	)
	return c
}

func (c *Collector) CardCreated()     { c.cardsCreated.Inc() }
func (c *Collector) CardDeleted()     { c.cardsDeleted.Inc() }
func (c *Collector) CommentCreated()  { c.commentsCreated.Inc() }
func (c *Collector) CommentDeleted()  { c.commentsDeleted.Inc() }
func (c *Collector) OngoingConflict() { c.ongoingConflicts.Inc() }

func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Middleware records every request under its chi route pattern so path ids
// do not explode label cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		// The chi wrapper keeps Hijacker and Flusher so /ws upgrades pass through.
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		c.RecordRequest(r.Method, route, status, time.Since(start))
	})
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
