package repositorycache

import (
	"context"
	"sort"

	"github.com/goliatone/go-metacache/metastore"
	"go.uber.org/zap"
)

// slot is one sibling during reconciliation. Current is the order held
// before reconciliation (0 when unset); Assigned is the provisional value
// chosen by the assign phase.
type slot struct {
	ID       string
	Current  int
	Assigned int
}

// rewrite is a sibling whose stored order must change.
type rewrite struct {
	ID   string
	From int
	To   int
}

// assignSlots is the first reconciliation phase. The keep sibling, when it
// has an order, is seeded first and keeps it. Every other sibling keeps its
// order unless it is unset or already claimed, in which case it draws the
// smallest positive value no sibling held before reconciliation. taken is
// not extended by draws, so several siblings can draw the same value.
// The result is sorted by assigned value; ties keep fetch order.
func assignSlots(siblings []slot, keepID string) []slot {
	taken := make(map[int]struct{}, len(siblings))
	for _, s := range siblings {
		if s.Current > 0 {
			taken[s.Current] = struct{}{}
		}
	}

	assigned := make([]slot, 0, len(siblings))
	claimed := make(map[int]struct{}, len(siblings))

	seeded := false
	if keepID != "" {
		for _, s := range siblings {
			if s.ID == keepID && s.Current > 0 {
				s.Assigned = s.Current
				assigned = append(assigned, s)
				claimed[s.Current] = struct{}{}
				seeded = true
				break
			}
		}
	}

	next := 1
	for _, s := range siblings {
		if seeded && s.ID == keepID {
			continue
		}
		s.Assigned = s.Current
		_, duplicate := claimed[s.Current]
		if s.Current == 0 || duplicate {
			for {
				if _, ok := taken[next]; !ok {
					break
				}
				next++
			}
			s.Assigned = next
		}
		claimed[s.Assigned] = struct{}{}
		assigned = append(assigned, s)
	}

	sort.SliceStable(assigned, func(i, j int) bool {
		return assigned[i].Assigned < assigned[j].Assigned
	})
	return assigned
}

// packSlots is the second phase: the i-th assigned slot gets position i+1.
// Only slots whose current order differs produce a rewrite, so the keep
// sibling can still shift to close a gap.
func packSlots(assigned []slot) []rewrite {
	var rewrites []rewrite
	for i, s := range assigned {
		position := i + 1
		if s.Current == position {
			continue
		}
		rewrites = append(rewrites, rewrite{ID: s.ID, From: s.Current, To: position})
	}
	return rewrites
}

// ReconcileOrder restores dense ordering 1..N among the children of
// parentID and returns the number of rewritten entities. keepID, when not
// empty, names the sibling whose order wins a collision.
func (r *Repository[E]) ReconcileOrder(ctx context.Context, parentID, keepID string) (int, error) {
	unlock := r.locks.lock(parentID)
	defer unlock()

	return r.reconcile(ctx, parentID, keepID)
}

// reconcile must be called with the parent lock held.
func (r *Repository[E]) reconcile(ctx context.Context, parentID, keepID string) (int, error) {
	siblings, err := r.table.List(ctx, metastore.Filter{ParentID: parentID})
	if err != nil {
		return 0, ErrStore.Wrap(err)
	}

	slots := make([]slot, len(siblings))
	byID := make(map[string]E, len(siblings))
	for i, sibling := range siblings {
		slots[i] = slot{ID: sibling.GetID(), Current: sibling.GetOrder()}
		byID[sibling.GetID()] = sibling
	}

	assigned := assignSlots(slots, keepID)

	written := 0
	for _, rw := range packSlots(assigned) {
		record := byID[rw.ID]
		record.SetOrder(rw.To)
		if err := r.write(ctx, record); err != nil {
			r.metrics.Rewrites(r.scopeName, written)
			return written, err
		}
		r.cacheFailed("set", rw.ID, r.cache.Set(ctx, r.scope, rw.ID, record))
		r.cacheFailed("list_append", parentID, r.cache.ListAppend(ctx, r.scope, parentID, rw.ID))
		r.log.Debug("order rewritten",
			zap.String("id", rw.ID),
			zap.String("parent_id", parentID),
			zap.Int("from", rw.From),
			zap.Int("to", rw.To),
		)
		written++
	}

	keys := make([]string, len(assigned))
	for i, s := range assigned {
		keys[i] = s.ID
	}
	r.cacheFailed("list_set", parentID, r.cache.ListSet(ctx, r.scope, parentID, keys))

	r.metrics.Rewrites(r.scopeName, written)
	return written, nil
}
