package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveLookup(t *testing.T) {
	m := New()
	m.ObserveLookup("text", LookupHit)
	m.ObserveLookup("text", LookupHit)
	m.ObserveLookup("images", LookupCorrupt)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("text", LookupHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("images", LookupCorrupt)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("text", LookupMiss)))
}

func TestObserveWriteAndProvider(t *testing.T) {
	m := New()
	m.ObserveWrite("text", nil)
	m.ObserveWrite("text", errors.New("disk full"))
	m.ObserveProvider("chat", 150*time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheWrites.WithLabelValues("text", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheWrites.WithLabelValues("text", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderRequests.WithLabelValues("chat", "ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveLookup("text", LookupMiss)
	m.ObserveWrite("text", nil)
	m.ObserveProvider("image", time.Second, nil)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveLookup("text", LookupMiss)

	path := filepath.Join(t.TempDir(), "flowscribe.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `flowscribe_cache_lookups_total{partition="text",result="miss"} 1`))
}
