package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "metacache"

// Collector counts repository cache and store activity per scope. It
// satisfies repositorycache.Metrics.
type Collector struct {
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	cacheErrors      *prometheus.CounterVec
	storeWrites      *prometheus.CounterVec
	rewrites         *prometheus.CounterVec
	partialMutations *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache lookups answered by the cache.",
		}, []string{"scope"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache lookups that fell back to the metadata store.",
		}, []string{"scope"}),
		cacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Cache calls that failed and were ignored.",
		}, []string{"scope", "op"}),
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Writes issued to the metadata store.",
		}, []string{"scope", "op"}),
		rewrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "rewrites_total",
			Help:      "Entities rewritten to restore dense ordering.",
		}, []string{"scope"}),
		partialMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "partial_mutations_total",
			Help:      "Records deleted by a rewrite that could not be inserted again.",
		}, []string{"scope"}),
	}

	for _, collector := range []prometheus.Collector{
		c.cacheHits,
		c.cacheMisses,
		c.cacheErrors,
		c.storeWrites,
		c.rewrites,
		c.partialMutations,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) CacheHit(scope string) {
	c.cacheHits.WithLabelValues(scope).Inc()
}

func (c *Collector) CacheMiss(scope string) {
	c.cacheMisses.WithLabelValues(scope).Inc()
}

func (c *Collector) CacheError(scope, op string) {
	c.cacheErrors.WithLabelValues(scope, op).Inc()
}

func (c *Collector) StoreWrite(scope, op string) {
	c.storeWrites.WithLabelValues(scope, op).Inc()
}

func (c *Collector) Rewrites(scope string, n int) {
	if n <= 0 {
		return
	}
	c.rewrites.WithLabelValues(scope).Add(float64(n))
}

func (c *Collector) PartialMutation(scope string) {
	c.partialMutations.WithLabelValues(scope).Inc()
}
