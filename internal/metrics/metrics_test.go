package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	require.NotNil(t, collectorFetchesTotal)
	require.NotNil(t, collectorRunsTotal)
	require.NotNil(t, httpRequestsTotal)
}

func TestObserveFetch(t *testing.T) {
	before := testutil.ToFloat64(collectorFetchesWith("sitemap", "http_status"))
	ObserveFetch("sitemap", "http_status", 150*time.Millisecond)
	ObserveFetch("sitemap", "http_status", 250*time.Millisecond)
	require.InDelta(t, before+2, testutil.ToFloat64(collectorFetchesWith("sitemap", "http_status")), 1e-9)
	require.Positive(t, testutil.CollectAndCount(collectorFetchDurationSecond))
}

func TestObserveRunAndCandidates(t *testing.T) {
	Init()
	runsBefore := testutil.ToFloat64(collectorRunsTotal.WithLabelValues("ok"))
	productsBefore := testutil.ToFloat64(collectorProductsTotal)
	candidatesBefore := testutil.ToFloat64(collectorCandidatesTotal.WithLabelValues("seed"))

	ObserveRun("ok", 3)
	ObserveRun("ok", 0)
	ObserveCandidate("seed")

	require.InDelta(t, runsBefore+2, testutil.ToFloat64(collectorRunsTotal.WithLabelValues("ok")), 1e-9)
	require.InDelta(t, productsBefore+3, testutil.ToFloat64(collectorProductsTotal), 1e-9)
	require.InDelta(t, candidatesBefore+1, testutil.ToFloat64(collectorCandidatesTotal.WithLabelValues("seed")), 1e-9)
}

func TestHandlerExposesCollectorMetrics(t *testing.T) {
	ObserveFetch("product", "ok", time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "collector_fetches_total")
}

func collectorFetchesWith(kind, outcome string) prometheus.Counter {
	Init()
	return collectorFetchesTotal.WithLabelValues(kind, outcome)
}
