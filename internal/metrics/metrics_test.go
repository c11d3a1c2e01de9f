package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.FilesProcessed.WithLabelValues("KONZUM", "loaded").Add(3)
	m.RowsInserted.WithLabelValues("KONZUM").Add(1200)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.FilesProcessed.WithLabelValues("KONZUM", "loaded")))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), "ingest_rows_inserted_total")
}
