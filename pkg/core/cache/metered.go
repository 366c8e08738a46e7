package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	errors      *prometheus.CounterVec
	invalidated prometheus.Counter
	getDuration prometheus.Histogram
}

func newMetrics(namespace string, reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hits",
			Help:      "Number of cache hits",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "misses",
			Help:      "Number of cache misses",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors",
			Help:      "Number of failed cache operations",
		}, []string{"op"}),
		invalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidated",
			Help:      "Number of keys removed by prefix invalidation",
		}),
		getDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "get_duration_seconds",
			Help:      "Latency of cache reads",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	for _, c := range []prometheus.Collector{m.hits, m.misses, m.errors, m.invalidated, m.getDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Metered counts hits, misses and failures of the wrapped cache.
type Metered struct {
	Cache
	metrics *metrics
}

func NewMetered(namespace string, reg prometheus.Registerer, c Cache) (*Metered, error) {
	m, err := newMetrics(namespace, reg)
	return &Metered{Cache: c, metrics: m}, err
}

func (m *Metered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := m.Cache.Get(ctx, key)
	m.metrics.getDuration.Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		m.metrics.errors.WithLabelValues("get").Inc()
	case ok:
		m.metrics.hits.Inc()
	default:
		m.metrics.misses.Inc()
	}
	return value, ok, err
}

func (m *Metered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := m.Cache.Set(ctx, key, value, ttl)
	if err != nil {
		m.metrics.errors.WithLabelValues("set").Inc()
	}
	return err
}

func (m *Metered) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	n, err := m.Cache.DeleteByPrefix(ctx, prefix)
	if err != nil {
		m.metrics.errors.WithLabelValues("delete").Inc()
	}
	m.metrics.invalidated.Add(float64(n))
	return n, err
}

func (m *Metered) Close() error {
	if closer, ok := m.Cache.(Closer); ok {
		return closer.Close()
	}
	return nil
}
