package metrics

import (
	"strings"
	"testing"
	"time"

	"imgvault/pkg/cache"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCache(t *testing.T) {
	c := cache.New[any](cache.Options{MaxSize: 10})
	c.Set("a", 1, time.Minute)
	c.Get("a")
	c.Get("missing")

	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterCache(reg, "shared", c.Stats))

	expected := `
# HELP imgvault_cache_hits_total Cache lookups that found a live entry
# TYPE imgvault_cache_hits_total counter
imgvault_cache_hits_total{cache="shared"} 1
# HELP imgvault_cache_misses_total Cache lookups that found nothing or an expired entry
# TYPE imgvault_cache_misses_total counter
imgvault_cache_misses_total{cache="shared"} 1
# HELP imgvault_cache_size Current number of entries
# TYPE imgvault_cache_size gauge
imgvault_cache_size{cache="shared"} 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"imgvault_cache_hits_total", "imgvault_cache_misses_total", "imgvault_cache_size")
	assert.NoError(t, err)

	// values are read at scrape time
	c.Set("b", 2, time.Minute)
	count, err := testutil.GatherAndCount(reg, "imgvault_cache_size")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterCacheTwiceFails(t *testing.T) {
	c := cache.New[any](cache.Options{})
	reg := prometheus.NewRegistry()

	require.NoError(t, RegisterCache(reg, "shared", c.Stats))
	assert.Error(t, RegisterCache(reg, "shared", c.Stats))
}

func TestRecordOptimize(t *testing.T) {
	before := testutil.ToFloat64(OptimizeTotal.WithLabelValues("success"))
	RecordOptimize("success", 0.2)
	assert.Equal(t, before+1, testutil.ToFloat64(OptimizeTotal.WithLabelValues("success")))
}
