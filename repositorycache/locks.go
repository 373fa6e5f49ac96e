package repositorycache

import (
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// parentLocks serialises mutations per parent scope. Entries are never
// removed; the table grows with the number of distinct parents.
type parentLocks struct {
	locks *xsync.MapOf[string, *sync.Mutex]
}

func newParentLocks() *parentLocks {
	return &parentLocks{locks: xsync.NewMapOf[string, *sync.Mutex]()}
}

// lock acquires the mutex of every distinct parent in sorted order, so two
// callers locking the same pair can not deadlock.
func (p *parentLocks) lock(parents ...string) (unlock func()) {
	keys := make([]string, 0, len(parents))
	seen := make(map[string]struct{}, len(parents))
	for _, parent := range parents {
		if _, ok := seen[parent]; ok {
			continue
		}
		seen[parent] = struct{}{}
		keys = append(keys, parent)
	}
	sort.Strings(keys)

	held := make([]*sync.Mutex, 0, len(keys))
	for _, key := range keys {
		mu, _ := p.locks.LoadOrCompute(key, func() *sync.Mutex {
			return &sync.Mutex{}
		})
		mu.Lock()
		held = append(held, mu)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
