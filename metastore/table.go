package metastore

import (
	"context"
	"sort"
	"time"

	"github.com/zeebo/errs"
)

// Error is the class of failures raised by metadata tables.
var Error = errs.Class("metastore")

// Record is implemented by every persisted metadata entity.
// Implementations are pointer types; the zero order value means "unset".
type Record interface {
	GetID() string
	SetID(id string)
	GetParentID() string
	GetOrder() int
	// Touch stamps timestamps before a write. inserting is true for inserts.
	Touch(now time.Time, inserting bool)
}

// Filter narrows List and DeleteWhere. Zero fields match everything.
type Filter struct {
	ParentID string
	IDs      []string
}

// Table is the relational persistence contract for one metadata table.
// Insert assigns an id when the record carries none. Get reports a missing
// record with ok == false. List returns records ordered by order ascending
// with unset orders last, ties in insertion order.
type Table[E Record] interface {
	Insert(ctx context.Context, record E) (string, error)
	Get(ctx context.Context, id string) (E, bool, error)
	List(ctx context.Context, filter Filter) ([]E, error)
	Delete(ctx context.Context, id string) error
	DeleteWhere(ctx context.Context, filter Filter) (int, error)
}

// Updater is implemented by tables that can rewrite a record in place.
// found is false when no record with the record's id exists.
type Updater[E Record] interface {
	Update(ctx context.Context, record E) (found bool, err error)
}

// SortByOrder sorts records by order ascending with unset orders last.
// The sort is stable so equal orders keep their incoming sequence.
func SortByOrder[E Record](records []E) {
	sort.SliceStable(records, func(i, j int) bool {
		return orderLess(records[i].GetOrder(), records[j].GetOrder())
	})
}

func orderLess(a, b int) bool {
	switch {
	case a == 0:
		return false
	case b == 0:
		return true
	default:
		return a < b
	}
}

func stamp(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Microsecond)
}
