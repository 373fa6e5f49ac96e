package repositorycache

// Metrics receives repository events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	CacheHit(scope string)
	CacheMiss(scope string)
	CacheError(scope, op string)
	StoreWrite(scope, op string)
	Rewrites(scope string, n int)
	PartialMutation(scope string)
}

type nopMetrics struct{}

func (nopMetrics) CacheHit(string)           {}
func (nopMetrics) CacheMiss(string)          {}
func (nopMetrics) CacheError(string, string) {}
func (nopMetrics) StoreWrite(string, string) {}
func (nopMetrics) Rewrites(string, int)      {}
func (nopMetrics) PartialMutation(string)    {}
