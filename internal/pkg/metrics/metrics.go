// Package metrics exposes pipeline counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Review results recorded on recruitment_reviews_total.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Collector holds the pipeline metrics. A nil *Collector is valid and records
// nothing.
type Collector struct {
	applicationsCreated prometheus.Counter
	reviews             *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	reportsGenerated    *prometheus.CounterVec
	reopens             prometheus.Counter
	inconsistentState   prometheus.Counter
	reviewDuration      prometheus.Histogram
}

// NewCollector creates the pipeline metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		applicationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recruitment_applications_created_total",
			Help: "Total number of applications created",
		}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recruitment_reviews_total",
			Help: "Total number of reviews by decision and result",
		}, []string{"decision", "result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recruitment_transitions_total",
			Help: "Total number of stage transitions",
		}, []string{"from", "to"}),
		reportsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recruitment_reports_generated_total",
			Help: "Total number of final reports generated by decision",
		}, []string{"decision"}),
		reopens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recruitment_reopens_total",
			Help: "Total number of reopened stage attempts",
		}),
		inconsistentState: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recruitment_inconsistent_state_total",
			Help: "Total number of applications found with a broken active-entry invariant",
		}),
		reviewDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recruitment_review_duration_seconds",
			Help:    "Review processing time in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.applicationsCreated,
		c.reviews,
		c.transitions,
		c.reportsGenerated,
		c.reopens,
		c.inconsistentState,
		c.reviewDuration,
	)

	return c
}

func (c *Collector) ApplicationCreated() {
	if c == nil {
		return
	}
	c.applicationsCreated.Inc()
}

// Review records one review attempt and how long it took.
func (c *Collector) Review(decision, result string, took time.Duration) {
	if c == nil {
		return
	}
	c.reviews.WithLabelValues(decision, result).Inc()
	c.reviewDuration.Observe(took.Seconds())
}

func (c *Collector) Transition(from, to string) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) ReportGenerated(decision string) {
	if c == nil {
		return
	}
	c.reportsGenerated.WithLabelValues(decision).Inc()
}

func (c *Collector) Reopened() {
	if c == nil {
		return
	}
	c.reopens.Inc()
}

func (c *Collector) InconsistentState() {
	if c == nil {
		return
	}
	c.inconsistentState.Inc()
}

// Handler serves the metrics registered on g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
