package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/richard-senior/matchpredict/pkg/podds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ podds.Metrics = (*Recorder)(nil)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.RecordRun()
	r.RecordPrediction(podds.StatusOK)
	r.RecordPrediction(podds.StatusOK)
	r.RecordPrediction(podds.StatusError)
	r.RecordError("malformed_fixture")
	r.ObserveSimulation(0.02)
	r.RecordLatency("load", 0.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.predictions.WithLabelValues(podds.StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.predictions.WithLabelValues(podds.StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("malformed_fixture")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs))
	assert.Equal(t, 2, testutil.CollectAndCount(r.latency))
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordRun()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.runs))
}

func TestHandler(t *testing.T) {
	r := New()
	r.RecordPrediction(podds.StatusCancelled)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `matchpredict_fixtures_predicted_total{status="cancelled"} 1`)
}
