package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEvaluation(t *testing.T) {
	before := testutil.ToFloat64(ReadingsEvaluatedTotal.WithLabelValues("moisture", "history"))

	RecordEvaluation("moisture", "history", 3*time.Millisecond)

	after := testutil.ToFloat64(ReadingsEvaluatedTotal.WithLabelValues("moisture", "history"))
	assert.Equal(t, before+1, after)
}

func TestRecordAnomalyAndErrors(t *testing.T) {
	anomalies := testutil.ToFloat64(AnomaliesDetectedTotal.WithLabelValues("heat_stress", "high"))
	errs := testutil.ToFloat64(PipelineErrorsTotal.WithLabelValues("history"))
	skips := testutil.ToFloat64(ReadingsSkippedTotal.WithLabelValues("humidity"))
	msgs := testutil.ToFloat64(MessagesConsumedTotal.WithLabelValues("mqtt", "ok"))

	RecordAnomaly("heat_stress", "high")
	RecordError("history")
	RecordSkip("humidity")
	RecordMessage("mqtt", "ok")

	assert.Equal(t, anomalies+1, testutil.ToFloat64(AnomaliesDetectedTotal.WithLabelValues("heat_stress", "high")))
	assert.Equal(t, errs+1, testutil.ToFloat64(PipelineErrorsTotal.WithLabelValues("history")))
	assert.Equal(t, skips+1, testutil.ToFloat64(ReadingsSkippedTotal.WithLabelValues("humidity")))
	assert.Equal(t, msgs+1, testutil.ToFloat64(MessagesConsumedTotal.WithLabelValues("mqtt", "ok")))
}

func TestServer_ExposesMetrics(t *testing.T) {
	RecordAnomaly("cold_stress", "medium")

	srv := httptest.NewServer(NewServer(":0").Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "cropwatch_anomalies_detected_total")

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
