package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Hit/miss counters carry a "provider" label so memory and redis backends
// can be told apart in dashboards.
var (
	HitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_hits_total",
			Help: "Total number of platform response cache hits.",
		},
		[]string{"provider"},
	)

	MissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_misses_total",
			Help: "Total number of platform response cache misses.",
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(
		HitsTotal,
		MissesTotal,
	)
}

// instrumentedCache wraps a Cache and records hit/miss metrics so callers
// do not manage instrumentation themselves.
type instrumentedCache struct {
	inner    Cache
	provider string
}

func (c *instrumentedCache) Get(key string) ([]byte, bool) {
	val, ok := c.inner.Get(key)
	if ok {
		HitsTotal.WithLabelValues(c.provider).Inc()
	} else {
		MissesTotal.WithLabelValues(c.provider).Inc()
	}
	return val, ok
}

func (c *instrumentedCache) Set(key string, value []byte) {
	c.inner.Set(key, value)
}

func (c *instrumentedCache) Len() int {
	return c.inner.Len()
}

func (c *instrumentedCache) Close() error {
	return c.inner.Close()
}
