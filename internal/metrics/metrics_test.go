package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordProxyAttempt("direct", nil)
	m.RecordProxyAttempt("direct", errors.New("boom"))
	m.RecordProxyAttempt("direct", errors.New("boom"))
	m.RecordSourceFetch("Example", nil)
	m.RecordImageLookup("cache_hit")
	m.RecordRefresh(time.Second, 42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProxyAttemptsTotal.WithLabelValues("direct", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProxyAttemptsTotal.WithLabelValues("direct", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceFetchesTotal.WithLabelValues("Example", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImageLookupsTotal.WithLabelValues("cache_hit")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.MergedItems))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordProxyAttempt("direct", nil)
		m.RecordSourceFetch("Example", nil)
		m.RecordImageLookup("found")
		m.RecordRefresh(time.Second, 1)
	})
}
