package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"memorybox/internal/badges"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ badges.Recorder = (*Metrics)(nil)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New(nil)
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/groups/{groupId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/groups/"+id, nil))
	}

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/groups/{groupId}", "418"))
	assert.Equal(t, 3.0, got)
}

func TestBadgeRecorder(t *testing.T) {
	m := New(nil)

	m.ObserveEvaluation(badges.OutcomeAwarded, 3*time.Millisecond)
	m.ObserveEvaluation(badges.OutcomeUnchanged, time.Millisecond)
	m.ObserveEvaluation(badges.OutcomeUnchanged, time.Millisecond)
	m.ObserveAwards([]string{badges.TwentyPosts, badges.OneYearOld})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues(badges.OutcomeAwarded)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.evaluations.WithLabelValues(badges.OutcomeUnchanged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.awards.WithLabelValues(badges.TwentyPosts)))
}

func TestObserveSweep(t *testing.T) {
	m := New(nil)
	at := time.Unix(1700000000, 0)

	m.ObserveSweep(10, 0, at)
	m.ObserveSweep(8, 2, at.Add(time.Hour))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepRuns.WithLabelValues("partial")))
	assert.Equal(t, 18.0, testutil.ToFloat64(m.sweepGroups.WithLabelValues("ok")))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.sweepLast))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New(nil)
	m.ObserveAwards([]string{badges.Capacity10000})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `memorybox_badges_awarded_total{badge="capacity_10000"} 1`))
}
