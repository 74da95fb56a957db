package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complaints/internal/analytics"
	"complaints/internal/core"
)

func TestCacheObserver(t *testing.T) {
	m := New()
	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SnapshotCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotCache.WithLabelValues("miss")))
}

func TestSnapshotLoaded_GaugeOnlyOnSuccess(t *testing.T) {
	m := New()
	m.SnapshotLoaded(10*time.Millisecond, 42, nil)
	m.SnapshotLoaded(5*time.Millisecond, 0, errors.New("boom"))

	assert.Equal(t, 42.0, testutil.ToFloat64(m.SnapshotRecord))
	// one series per status
	assert.Equal(t, 2, testutil.CollectAndCount(m.SnapshotLoad))
}

func TestObserveDashboard(t *testing.T) {
	m := New()
	d := &analytics.Dashboard{Errors: map[analytics.Widget]error{
		analytics.WidgetTree:   &core.SchemaError{Missing: []core.Column{core.ColSubIssue}},
		analytics.WidgetTimely: nil,
	}}
	m.ObserveDashboard("page", d, nil)
	m.ObserveDashboard("page", nil, errors.New("load failed"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Renders.WithLabelValues("page", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Renders.WithLabelValues("page", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WidgetErrors.WithLabelValues("tree")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.WidgetErrors))
}

func TestObserveRequest_StatusClasses(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", 200, time.Millisecond)
	m.ObserveRequest("GET", 204, time.Millisecond)
	m.ObserveRequest("GET", 502, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "5xx")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveRefresh("published")
	m.RateLimitHit()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `complaints_refresh_requests_total{result="published"} 1`)
	assert.Contains(t, string(body), "complaints_rate_limit_hits_total 1")
}
