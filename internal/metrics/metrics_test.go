package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector("chitieu")

	c.RecordAppended()
	c.RecordAppended()
	c.RecordRemoved()
	c.RecordsClearedN(3)
	c.RecordsDroppedN(2)
	c.SnapshotSize(7)
	c.PersistFailed("append")
	c.PersistObserved("append", 5*time.Millisecond)
	c.EventPublished("record.created", nil)
	c.EventPublished("record.created", errors.New("closed"))
	c.ObserveHTTP("GET", "/records", 200, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.RecordsAppended))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RecordsRemoved))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.RecordsCleared))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.RecordsDropped))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.SnapshotRecords))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.PersistFailures.WithLabelValues("append")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EventsPublished.WithLabelValues("record.created", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/records", "200")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("chitieu")
	b := NewCollector("chitieu")
	a.RecordAppended()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RecordsAppended))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("chitieu")
	c.RecordAppended()

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "chitieu_records_appended_total 1")
}
