package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveTile(t *testing.T) {
	m := New()

	m.ObserveTile(OutcomeRendered, 0.02, 1024)
	m.ObserveTile(OutcomeEmpty, 0.01, 0)
	m.ObserveTile(OutcomeEmpty, 0.01, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.tiles.WithLabelValues(OutcomeRendered)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tiles.WithLabelValues(OutcomeEmpty)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.tileDuration))
}

func TestMetrics_CacheAndPools(t *testing.T) {
	m := New()
	open := 3
	m.RegisterPoolGauge(func() int { return open })

	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheResults.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheResults.WithLabelValues("miss")))

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "tiles_remote_pools_open 3")
	assert.Contains(t, rr.Body.String(), "tiles_cache_results_total")
}
