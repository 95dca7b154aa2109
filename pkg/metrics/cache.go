package metrics

import (
	"imgvault/pkg/cache"

	"github.com/prometheus/client_golang/prometheus"
)

// RegisterCache exposes the lifetime counters and size of a cache.
// Values are read from stats at scrape time.
func RegisterCache(reg prometheus.Registerer, name string, stats func() cache.Stats) error {
	labels := prometheus.Labels{"cache": name}

	counter := func(metric, help string, read func(cache.Stats) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "cache",
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return float64(read(stats())) })
	}
	gauge := func(metric, help string, read func(cache.Stats) int) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "cache",
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return float64(read(stats())) })
	}

	collectors := []prometheus.Collector{
		counter("hits_total", "Cache lookups that found a live entry", func(s cache.Stats) int64 { return s.Hits }),
		counter("misses_total", "Cache lookups that found nothing or an expired entry", func(s cache.Stats) int64 { return s.Misses }),
		counter("sets_total", "Cache writes", func(s cache.Stats) int64 { return s.Sets }),
		counter("deletes_total", "Entries removed by delete, clear or lazy expiry", func(s cache.Stats) int64 { return s.Deletes }),
		counter("evictions_total", "Entries evicted because the cache was full", func(s cache.Stats) int64 { return s.Evictions }),
		gauge("size", "Current number of entries", func(s cache.Stats) int { return s.Size }),
		gauge("max_size", "Configured entry capacity", func(s cache.Stats) int { return s.MaxSize }),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
