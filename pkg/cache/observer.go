package cache

// Observer receives cache events for metrics. Implementations must be safe
// for concurrent use and must not block.
type Observer interface {
	CacheHit(tier string)
	CacheMiss()
	CacheEviction(tier string, n int)
	CacheSharedError(op string)
	CacheWriteDropped()
}

type nopObserver struct{}

func (nopObserver) CacheHit(string)           {}
func (nopObserver) CacheMiss()                {}
func (nopObserver) CacheEviction(string, int) {}
func (nopObserver) CacheSharedError(string)   {}
func (nopObserver) CacheWriteDropped()        {}
