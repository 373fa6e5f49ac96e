package repositorycache

import (
	"context"
	"fmt"

	"github.com/goliatone/go-metacache/cache"
	"github.com/goliatone/go-metacache/metastore"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Entity is a metadata record ordered among the siblings of one parent.
type Entity interface {
	metastore.Record
	SetParentID(parentID string)
	SetOrder(order int)
}

// UpdateMode selects how an existing record is rewritten.
type UpdateMode int

const (
	// UpdateInPlace rewrites records through metastore.Updater when the
	// table implements it, and falls back to UpdateRecreate otherwise.
	UpdateInPlace UpdateMode = iota
	// UpdateRecreate deletes the record and inserts the merged copy under
	// the same id.
	UpdateRecreate
)

// Dependent is implemented by repositories whose entities are owned by
// entities of another repository. DeleteOwned removes every entity owned by
// ownerID.
type Dependent interface {
	DeleteOwned(ctx context.Context, ownerID string) error
}

// Options configures a Repository. Zero values select the "entity" scope,
// a no-op logger, no metrics and in-place updates.
type Options struct {
	Scope      cache.Scope
	Logger     *zap.Logger
	Metrics    Metrics
	UpdateMode UpdateMode
	Dependents []Dependent
}

// Repository keeps a metadata table and its cache coherent and maintains
// dense sibling ordering after every structural change.
type Repository[E Entity] struct {
	table      metastore.Table[E]
	updater    metastore.Updater[E]
	cache      *cache.Store[E]
	scope      cache.Scope
	scopeName  string
	log        *zap.Logger
	metrics    Metrics
	dependents []Dependent
	locks      *parentLocks
	loads      singleflight.Group
}

var _ Dependent = (*Repository[Entity])(nil)

// New creates a repository over table and store.
func New[E Entity](table metastore.Table[E], store *cache.Store[E], opts Options) *Repository[E] {
	if opts.Scope == "" {
		opts.Scope = "entity"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}

	r := &Repository[E]{
		table:      table,
		cache:      store,
		scope:      opts.Scope,
		scopeName:  string(opts.Scope),
		log:        opts.Logger.Named("repository").With(zap.String("scope", string(opts.Scope))),
		metrics:    opts.Metrics,
		dependents: opts.Dependents,
		locks:      newParentLocks(),
	}
	if opts.UpdateMode == UpdateInPlace {
		if updater, ok := table.(metastore.Updater[E]); ok {
			r.updater = updater
		}
	}
	return r
}

// Scope returns the cache scope of the repository.
func (r *Repository[E]) Scope() cache.Scope {
	return r.scope
}

// Create persists record under its parent, caches it and reconciles the
// parent. The returned entity carries the order it ended up with.
func (r *Repository[E]) Create(ctx context.Context, record E) (E, error) {
	var zero E
	parentID := record.GetParentID()

	unlock := r.locks.lock(parentID)
	defer unlock()

	id, err := r.table.Insert(ctx, record)
	if err != nil {
		return zero, ErrStore.Wrap(err)
	}
	r.metrics.StoreWrite(r.scopeName, "insert")
	r.cacheFailed("list_append", parentID, r.cache.ListAppend(ctx, r.scope, parentID, id))

	if _, err := r.refresh(ctx, id); err != nil {
		return zero, err
	}
	if _, err := r.reconcile(ctx, parentID, ""); err != nil {
		return zero, err
	}
	return r.refresh(ctx, id)
}

// Update loads the entity, applies merge to it and persists the result.
// parentID moves the entity to another parent; empty keeps the current one.
// The entity keeps its order during reconciliation unless it must shift to
// close a gap.
func (r *Repository[E]) Update(ctx context.Context, id, parentID string, merge func(E) error) (E, error) {
	var zero E

	current, unlock, err := r.lockEntity(ctx, id, parentID)
	if err != nil {
		return zero, err
	}
	defer unlock()

	previousParent := current.GetParentID()
	if parentID == "" {
		parentID = previousParent
	}

	if merge != nil {
		if err := merge(current); err != nil {
			return zero, ErrInvalid.Wrap(err)
		}
	}
	current.SetID(id)
	current.SetParentID(parentID)

	if err := r.write(ctx, current); err != nil {
		return zero, err
	}
	r.cacheFailed("list_append", parentID, r.cache.ListAppend(ctx, r.scope, parentID, id))

	if _, err := r.refresh(ctx, id); err != nil {
		return zero, err
	}
	if _, err := r.reconcile(ctx, parentID, id); err != nil {
		return zero, err
	}
	if previousParent != parentID {
		if _, err := r.reconcile(ctx, previousParent, ""); err != nil {
			return zero, err
		}
	}
	return r.refresh(ctx, id)
}

// Get returns the entity with id, reading through the cache. Concurrent
// misses for the same id share one load. Get must not be called with a
// parent lock held.
func (r *Repository[E]) Get(ctx context.Context, id string) (E, error) {
	var zero E
	if record, ok := r.cached(ctx, id); ok {
		return record, nil
	}

	v, err, shared := r.loads.Do(id, func() (any, error) {
		return r.load(ctx, id)
	})
	if err != nil {
		return zero, err
	}

	record := v.(E)
	if shared {
		return r.clone(record)
	}
	return record, nil
}

// List returns the children of parentID sorted by order with unset orders
// last. A cached list is used only while all of its members resolve to
// children of parentID; otherwise the store is read again.
func (r *Repository[E]) List(ctx context.Context, parentID string) ([]E, error) {
	records, ok, err := r.listCached(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if records, err = r.loadList(ctx, parentID); err != nil {
			return nil, err
		}
	}

	metastore.SortByOrder(records)
	return records, nil
}

// Delete removes the entity and everything it owns, then reconciles the
// remaining siblings.
func (r *Repository[E]) Delete(ctx context.Context, id string) error {
	record, unlock, err := r.lockEntity(ctx, id, "")
	if err != nil {
		return err
	}
	defer unlock()
	parentID := record.GetParentID()

	if err := r.cascade(ctx, id); err != nil {
		return err
	}
	if err := r.table.Delete(ctx, id); err != nil {
		return ErrStore.Wrap(err)
	}
	r.metrics.StoreWrite(r.scopeName, "delete")
	r.loads.Forget(id)
	r.cacheFailed("deep_delete", id, r.cache.DeepDelete(ctx, r.scope, id, cache.DirectionChildToParent))

	_, err = r.reconcile(ctx, parentID, "")
	return err
}

// DeleteOwned removes every entity whose parent is ownerID. The owner is
// going away, so the vanished sibling set is not reconciled.
func (r *Repository[E]) DeleteOwned(ctx context.Context, ownerID string) error {
	unlock := r.locks.lock(ownerID)
	defer unlock()

	owned, err := r.table.List(ctx, metastore.Filter{ParentID: ownerID})
	if err != nil {
		return ErrStore.Wrap(err)
	}
	for _, record := range owned {
		if err := r.cascade(ctx, record.GetID()); err != nil {
			return err
		}
	}

	if len(owned) > 0 {
		if _, err := r.table.DeleteWhere(ctx, metastore.Filter{ParentID: ownerID}); err != nil {
			return ErrStore.Wrap(err)
		}
		r.metrics.StoreWrite(r.scopeName, "delete")
	}

	for _, record := range owned {
		id := record.GetID()
		r.loads.Forget(id)
		r.cacheFailed("deep_delete", id, r.cache.DeepDelete(ctx, r.scope, id, cache.DirectionChildToParent))
	}
	r.cacheFailed("deep_delete", ownerID, r.cache.DeepDelete(ctx, r.scope, ownerID, cache.DirectionParentToChild))

	r.log.Debug("owned entities deleted", zap.String("owner_id", ownerID), zap.Int("count", len(owned)))
	return nil
}

func (r *Repository[E]) cascade(ctx context.Context, ownerID string) error {
	for _, dependent := range r.dependents {
		if err := dependent.DeleteOwned(ctx, ownerID); err != nil {
			return err
		}
	}
	return nil
}

// lockEntity loads the entity and locks both its current parent and target
// (the current parent alone when target is empty).
// The entity is read again under the lock; if it moved meanwhile the locks
// are released and taken again.
func (r *Repository[E]) lockEntity(ctx context.Context, id, target string) (E, func(), error) {
	var zero E

	current, err := r.Get(ctx, id)
	if err != nil {
		return zero, nil, err
	}
	parentID := current.GetParentID()

	for {
		lockTarget := target
		if lockTarget == "" {
			lockTarget = parentID
		}
		unlock := r.locks.lock(parentID, lockTarget)

		record, ok, err := r.table.Get(ctx, id)
		if err != nil {
			unlock()
			return zero, nil, ErrStore.Wrap(err)
		}
		if !ok {
			unlock()
			return zero, nil, ErrNotFound.New("%s %q", r.scope, id)
		}
		if record.GetParentID() == parentID {
			return record, unlock, nil
		}

		unlock()
		parentID = record.GetParentID()
	}
}

// load reads the record and caches it under its parent lock, so a mutation
// that lands between the read and the cache write cannot be overwritten by
// the older copy. The record is read again once the lock is held; if it
// moved meanwhile the lock of the new parent is taken instead.
func (r *Repository[E]) load(ctx context.Context, id string) (E, error) {
	var zero E
	record, ok, err := r.table.Get(ctx, id)
	if err != nil {
		return zero, ErrStore.Wrap(err)
	}
	if !ok {
		return zero, ErrNotFound.New("%s %q", r.scope, id)
	}

	for {
		parentID := record.GetParentID()
		unlock := r.locks.lock(parentID)

		record, ok, err = r.table.Get(ctx, id)
		if err != nil {
			unlock()
			return zero, ErrStore.Wrap(err)
		}
		if !ok {
			unlock()
			return zero, ErrNotFound.New("%s %q", r.scope, id)
		}
		if record.GetParentID() == parentID {
			r.cacheFailed("set", id, r.cache.Set(ctx, r.scope, id, record))
			unlock()
			return record, nil
		}
		unlock()
	}
}

// loadList reads the children of parentID and caches them under the parent
// lock.
func (r *Repository[E]) loadList(ctx context.Context, parentID string) ([]E, error) {
	unlock := r.locks.lock(parentID)
	defer unlock()

	records, err := r.table.List(ctx, metastore.Filter{ParentID: parentID})
	if err != nil {
		return nil, ErrStore.Wrap(err)
	}
	r.populate(ctx, parentID, records)
	return records, nil
}

// write persists an existing record and drops its cache footprint. Callers
// re-add the record to the caches afterwards.
func (r *Repository[E]) write(ctx context.Context, record E) error {
	id := record.GetID()
	r.loads.Forget(id)

	if r.updater != nil {
		found, err := r.updater.Update(ctx, record)
		if err != nil {
			return ErrStore.Wrap(err)
		}
		if !found {
			return ErrNotFound.New("%s %q", r.scope, id)
		}
		r.metrics.StoreWrite(r.scopeName, "update")
		r.cacheFailed("deep_delete", id, r.cache.DeepDelete(ctx, r.scope, id, cache.DirectionChildToParent))
		return nil
	}

	if err := r.table.Delete(ctx, id); err != nil {
		return ErrStore.Wrap(err)
	}
	r.metrics.StoreWrite(r.scopeName, "delete")
	r.cacheFailed("deep_delete", id, r.cache.DeepDelete(ctx, r.scope, id, cache.DirectionChildToParent))

	if _, err := r.table.Insert(ctx, record); err != nil {
		r.metrics.PartialMutation(r.scopeName)
		r.log.Error("record removed but not inserted again",
			zap.String("id", id),
			zap.String("parent_id", record.GetParentID()),
			zap.Error(err),
		)
		return ErrPartialMutation.Wrap(fmt.Errorf("%s %q lost during rewrite: %w", r.scope, id, err))
	}
	r.metrics.StoreWrite(r.scopeName, "insert")
	return nil
}

// refresh reads the record back from the store and caches it.
func (r *Repository[E]) refresh(ctx context.Context, id string) (E, error) {
	var zero E
	record, ok, err := r.table.Get(ctx, id)
	if err != nil {
		return zero, ErrStore.Wrap(err)
	}
	if !ok {
		return zero, ErrNotFound.New("%s %q", r.scope, id)
	}
	r.cacheFailed("set", id, r.cache.Set(ctx, r.scope, id, record))
	return record, nil
}

func (r *Repository[E]) cached(ctx context.Context, id string) (E, bool) {
	record, ok, err := r.cache.Get(ctx, r.scope, id)
	if err != nil {
		r.cacheFailed("get", id, err)
		return record, false
	}
	if ok {
		r.metrics.CacheHit(r.scopeName)
	} else {
		r.metrics.CacheMiss(r.scopeName)
	}
	return record, ok
}

func (r *Repository[E]) listCached(ctx context.Context, parentID string) ([]E, bool, error) {
	keys, ok, err := r.cache.ListGet(ctx, r.scope, parentID)
	if err != nil {
		r.cacheFailed("list_get", parentID, err)
		return nil, false, nil
	}
	if !ok {
		r.metrics.CacheMiss(r.scopeName)
		return nil, false, nil
	}

	records := make([]E, 0, len(keys))
	for _, id := range keys {
		record, err := r.Get(ctx, id)
		if ErrNotFound.Has(err) {
			return r.staleList(ctx, parentID)
		}
		if err != nil {
			return nil, false, err
		}
		if record.GetParentID() != parentID {
			return r.staleList(ctx, parentID)
		}
		records = append(records, record)
	}

	r.metrics.CacheHit(r.scopeName)
	return records, true, nil
}

func (r *Repository[E]) staleList(ctx context.Context, parentID string) ([]E, bool, error) {
	r.log.Debug("stale list dropped", zap.String("parent_id", parentID))
	r.metrics.CacheMiss(r.scopeName)
	r.cacheFailed("evict_list", parentID, r.cache.EvictList(ctx, r.scope, parentID))
	return nil, false, nil
}

func (r *Repository[E]) populate(ctx context.Context, parentID string, records []E) {
	keys := make([]string, len(records))
	for i, record := range records {
		keys[i] = record.GetID()
		r.cacheFailed("set", keys[i], r.cache.Set(ctx, r.scope, keys[i], record))
	}
	r.cacheFailed("list_set", parentID, r.cache.ListSet(ctx, r.scope, parentID, keys))
}

// cacheFailed logs and counts a failed cache call. Cache failures never
// fail the operation.
func (r *Repository[E]) cacheFailed(op, key string, err error) {
	if err == nil {
		return
	}
	r.metrics.CacheError(r.scopeName, op)
	r.log.Warn("cache operation failed",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err),
	)
}

func (r *Repository[E]) clone(record E) (E, error) {
	var out E
	raw, err := msgpack.Marshal(record)
	if err != nil {
		return out, ErrStore.Wrap(err)
	}
	if err := msgpack.Unmarshal(raw, &out); err != nil {
		return out, ErrStore.Wrap(err)
	}
	return out, nil
}
