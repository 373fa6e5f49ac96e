// Package repositorycache keeps metadata entities coherent between a
// relational table and a scoped cache, and keeps sibling entities densely
// ordered.
//
// # Overview
//
// A Repository wraps a metastore.Table and a cache.Store. Reads are
// cache-aside: a miss falls back to the table and repopulates the cache.
// Writes go to the table first, then refresh the cache footprint of the
// entity and its parent's list. The cache is never authoritative; a failed
// cache call is logged and counted but never fails the operation.
//
// # Basic Usage
//
//	table := metastore.NewBunTable(db, newConnection, metastore.TableOptions{ParentColumn: "project_id"})
//	store := cache.NewStore[*Connection](backend)
//
//	repo := repositorycache.New(table, store, repositorycache.Options{
//		Scope:  "connection",
//		Logger: logger,
//	})
//
//	conn, err := repo.Create(ctx, &Connection{ProjectID: "p1", Alias: "warehouse"})
//	conns, err := repo.List(ctx, "p1")
//
// # Ordering
//
// Every Create, Update and Delete ends with a reconciliation of the parent:
// the orders of the siblings are rewritten to exactly 1..N. Reconciliation
// runs in two phases:
//
//  1. assign: siblings keep their order unless it is unset or already
//     claimed; those draw the smallest free value. The keep sibling (the
//     entity being updated) is seeded first so it wins collisions.
//  2. pack: the assigned list is sorted and walked, position i is written
//     only where the stored order differs.
//
// The keep sibling is protected from reassignment, not from shifting down
// to close a gap in the pack phase.
//
// Mutations of one parent are serialised by a per-parent lock held across
// the write and its reconciliation.
//
// # Updates
//
// When the table implements metastore.Updater and the repository runs in
// UpdateInPlace mode, records are rewritten in place. Otherwise they are
// deleted and inserted again under the same id. If the insert fails after
// the delete succeeded, the record is lost: the failure is logged at error
// level and returned as ErrPartialMutation.
//
// # Cascading Deletes
//
// Repositories whose entities are owned by another repository's entities
// are passed to the owner as Dependents. Deleting an owner removes its owned
// entities first, recursively.
//
// # Error Handling
//
// Errors are classified with errs classes: ErrNotFound, ErrStore,
// ErrPartialMutation and ErrInvalid. Store errors stay reachable through
// errors.Is and errors.As.
package repositorycache
