package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	IncDesignOutcome("generated")

	srv := NewServer(":0")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "architect_design_outcomes_total")
}

func TestHelpers(t *testing.T) {
	before := testutil.ToFloat64(Errors.WithLabelValues("relay", "validation"))
	IncError("relay", "validation")
	assert.Equal(t, before+1, testutil.ToFloat64(Errors.WithLabelValues("relay", "validation")))

	before = testutil.ToFloat64(DesignsSubmitted.WithLabelValues("Modern"))
	IncDesignSubmitted("Modern")
	assert.Equal(t, before+1, testutil.ToFloat64(DesignsSubmitted.WithLabelValues("Modern")))
}
