package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollector(reg)

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.applicationsCreated, "applicationsCreated counter should be initialized")
	assert.NotNil(t, collector.reviews, "reviews counter should be initialized")
	assert.NotNil(t, collector.reviewDuration, "reviewDuration histogram should be initialized")

	assert.Panics(t, func() { NewCollector(reg) }, "registering twice on one registry must fail")
}

func TestCollector_Counts(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	collector.ApplicationCreated()
	collector.ApplicationCreated()
	collector.Review("advance", ResultOK, 20*time.Millisecond)
	collector.Review("advance", ResultRejected, time.Millisecond)
	collector.Transition("admin_selection", "psychotest")
	collector.ReportGenerated("accepted")
	collector.Reopened()
	collector.InconsistentState()

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.applicationsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.reviews.WithLabelValues("advance", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.reviews.WithLabelValues("advance", ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.transitions.WithLabelValues("admin_selection", "psychotest")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.reportsGenerated.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.reopens))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.inconsistentState))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var collector *Collector

	assert.NotPanics(t, func() {
		collector.ApplicationCreated()
		collector.Review("hold", ResultOK, time.Second)
		collector.Transition("a", "b")
		collector.ReportGenerated("rejected")
		collector.Reopened()
		collector.InconsistentState()
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollector(reg)
	collector.Reopened()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "recruitment_reopens_total 1"))
}
