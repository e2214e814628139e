package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveJobRun(t *testing.T) {
	before := testutil.ToFloat64(jobRuns.WithLabelValues("RECONCILE_RAW_AW1_INGESTED", "SUCCESS"))
	ObserveJobRun("RECONCILE_RAW_AW1_INGESTED", "SUCCESS", 2*time.Second)
	after := testutil.ToFloat64(jobRuns.WithLabelValues("RECONCILE_RAW_AW1_INGESTED", "SUCCESS"))
	assert.Equal(t, before+1, after)
}

func TestGaugesReplaceValue(t *testing.T) {
	ObserveDeltas("AW2", 5)
	ObserveDeltas("AW2", 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(deltas.WithLabelValues("AW2")))
}

func TestHandlerServesRegistry(t *testing.T) {
	Init()
	Init()
	ObserveIncident("MISSING_FILES")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `genomics_incidents_recorded_total{code="MISSING_FILES"}`)
}
