package daemon

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// algoCache memoizes algorithm-query results (impact/ancestors/cycles/deps)
// keyed by request shape, aged out after cfg.CacheTTL. A single write
// event of any kind invalidates the whole cache rather than tracking
// per-node dependencies, since a commit can change reachability for
// nodes it never touches directly.
type algoCache struct {
	results *expirable.LRU[string, any]
}

func newAlgoCache(size int, ttl time.Duration) *algoCache {
	return &algoCache{results: expirable.NewLRU[string, any](size, nil, ttl)}
}

func (c *algoCache) get(key string) (any, bool) {
	return c.results.Get(key)
}

func (c *algoCache) put(key string, value any) {
	c.results.Add(key, value)
}

func (c *algoCache) invalidateAll() {
	c.results.Purge()
}
