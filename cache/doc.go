// Package cache provides the scoped cache-aside store used by the metadata repositories.
//
// # Overview
//
// A Store keeps two shapes of data, both addressed by a Scope:
//
//   - Entries: one encoded value per (scope, key), usually an entity by id
//   - Lists: an ordered sequence of member keys per (scope, parent)
//
// The cache is never authoritative. Every value must be re-derivable from the
// metadata store, and callers fall back to it whenever a read misses. A list
// that was never cached is reported as a miss, while a cached empty list is a
// valid answer meaning "no children".
//
// # Basic Usage
//
//	backend, err := cache.NewBackend(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	store := cache.NewStore[*meta.Connection](backend)
//
//	if conn, ok, err := store.Get(ctx, "connection", id); err == nil && ok {
//		return conn, nil
//	}
//
// # Membership Index
//
// ListSet and ListAppend record, for every member key, the parents whose
// lists hold it. DeepDelete with DirectionChildToParent consults that index
// so it can remove the key from each of those lists without scanning the
// backend. The index lives in the backend next to the data it describes and
// is invalidated together with it.
//
// ListAppend never creates a list. Appending to an uncached list would turn a
// miss into a partial hit and hide siblings that are only in the store.
//
// # Backends
//
// Two backends are provided:
//
//   - NewBackend: in-process sturdyc client, sharded with TTL based eviction
//   - NewRedisBackend: shared redis database for multi-replica deployments
//
// Values are encoded with msgpack by default, so a caller never shares memory
// with what the cache holds.
//
// # Error Handling
//
// Every error returned by this package belongs to the Error class. Callers in
// the repository layer log and swallow them; a cache failure must never fail
// the surrounding operation.
package cache
