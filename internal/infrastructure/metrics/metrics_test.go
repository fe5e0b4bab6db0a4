package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.ActiveSessions.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.ActiveSessions))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ActiveSessions))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.EventsProcessed.WithLabelValues("enterEdit", OutcomeOK).Inc()
	m.AdmissionsRejected.WithLabelValues("forbidden").Add(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `picture_collab_events_processed_total{kind="enterEdit",outcome="ok"} 1`)
	assert.Contains(t, string(body), `picture_collab_admissions_rejected_total{reason="forbidden"} 2`)
	assert.Contains(t, string(body), "go_goroutines")
}
