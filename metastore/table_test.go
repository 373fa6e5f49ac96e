package metastore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets,alias:w" msgpack:"-"`

	ID        string    `bun:"id,pk"`
	GroupID   string    `bun:"group_id"`
	Name      string    `bun:"name"`
	Order     int       `bun:"order,nullzero"`
	CreatedAt time.Time `bun:"created_at"`
	UpdatedAt time.Time `bun:"updated_at"`
}

func (w *widget) GetID() string       { return w.ID }
func (w *widget) SetID(id string)     { w.ID = id }
func (w *widget) GetParentID() string { return w.GroupID }
func (w *widget) GetOrder() int       { return w.Order }

func (w *widget) Touch(now time.Time, inserting bool) {
	if inserting && w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
}

func newWidget() *widget { return &widget{} }

// tickingClock returns strictly increasing timestamps so insertion ties sort
// deterministically.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

type tableUnderTest interface {
	Table[*widget]
	Updater[*widget]
}

func tableFactories() map[string]func(t *testing.T) tableUnderTest {
	return map[string]func(t *testing.T) tableUnderTest{
		"memory": func(t *testing.T) tableUnderTest {
			tbl := NewMemoryTable(newWidget)
			tbl.now = tickingClock()
			return tbl
		},
		"sqlite": func(t *testing.T) tableUnderTest {
			ctx := context.Background()
			db, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "meta.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })

			tbl := NewBunTable(db, newWidget, TableOptions{ParentColumn: "group_id"})
			tbl.now = tickingClock()
			require.NoError(t, tbl.CreateTable(ctx))
			return tbl
		},
	}
}

func ids(records []*widget) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestTable_InsertGet(t *testing.T) {
	for name, factory := range tableFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tbl := factory(t)

			in := &widget{GroupID: "g1", Name: "first", Order: 2}
			id, err := tbl.Insert(ctx, in)
			require.NoError(t, err)
			require.NotEmpty(t, id)
			assert.Equal(t, id, in.ID)
			assert.False(t, in.CreatedAt.IsZero())

			got, ok, err := tbl.Get(ctx, id)
			require.NoError(t, err)
			require.True(t, ok)
			if diff := cmp.Diff(in, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}

			_, ok, err = tbl.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestTable_InsertKeepsProvidedID(t *testing.T) {
	for name, factory := range tableFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tbl := factory(t)

			id, err := tbl.Insert(ctx, &widget{ID: "w-1", GroupID: "g1"})
			require.NoError(t, err)
			assert.Equal(t, "w-1", id)

			_, err = tbl.Insert(ctx, &widget{ID: "w-1", GroupID: "g1"})
			assert.Error(t, err, "duplicate primary key")
		})
	}
}

func TestTable_ListOrdering(t *testing.T) {
	for name, factory := range tableFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tbl := factory(t)

			for _, w := range []*widget{
				{ID: "unset-1", GroupID: "g1"},
				{ID: "third", GroupID: "g1", Order: 3},
				{ID: "first", GroupID: "g1", Order: 1},
				{ID: "unset-2", GroupID: "g1"},
				{ID: "other", GroupID: "g2", Order: 1},
				{ID: "also-third", GroupID: "g1", Order: 3},
			} {
				_, err := tbl.Insert(ctx, w)
				require.NoError(t, err)
			}

			list, err := tbl.List(ctx, Filter{ParentID: "g1"})
			require.NoError(t, err)
			assert.Equal(t, []string{"first", "third", "also-third", "unset-1", "unset-2"}, ids(list))

			list, err = tbl.List(ctx, Filter{IDs: []string{"other", "first"}})
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"other", "first"}, ids(list))

			list, err = tbl.List(ctx, Filter{ParentID: "nobody"})
			require.NoError(t, err)
			assert.NotNil(t, list)
			assert.Empty(t, list)
		})
	}
}

func TestTable_Update(t *testing.T) {
	for name, factory := range tableFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tbl := factory(t)

			in := &widget{GroupID: "g1", Name: "before"}
			id, err := tbl.Insert(ctx, in)
			require.NoError(t, err)
			created := in.CreatedAt

			in.Name = "after"
			in.Order = 7
			found, err := tbl.Update(ctx, in)
			require.NoError(t, err)
			assert.True(t, found)

			got, ok, err := tbl.Get(ctx, id)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "after", got.Name)
			assert.Equal(t, 7, got.Order)
			assert.True(t, got.CreatedAt.Equal(created))
			assert.True(t, got.UpdatedAt.After(created))

			found, err = tbl.Update(ctx, &widget{ID: "missing"})
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestTable_Delete(t *testing.T) {
	for name, factory := range tableFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tbl := factory(t)

			for _, w := range []*widget{
				{ID: "a", GroupID: "g1"},
				{ID: "b", GroupID: "g1"},
				{ID: "c", GroupID: "g2"},
				{ID: "d", GroupID: "g2"},
			} {
				_, err := tbl.Insert(ctx, w)
				require.NoError(t, err)
			}

			require.NoError(t, tbl.Delete(ctx, "a"))
			require.NoError(t, tbl.Delete(ctx, "a"), "deleting twice is not an error")

			_, ok, err := tbl.Get(ctx, "a")
			require.NoError(t, err)
			assert.False(t, ok)

			n, err := tbl.DeleteWhere(ctx, Filter{ParentID: "g2"})
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			list, err := tbl.List(ctx, Filter{})
			require.NoError(t, err)
			assert.Equal(t, []string{"b"}, ids(list))

			n, err = tbl.DeleteWhere(ctx, Filter{})
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestMemoryTable_DoesNotAliasRecords(t *testing.T) {
	ctx := context.Background()
	tbl := NewMemoryTable(newWidget)

	in := &widget{GroupID: "g1", Name: "original"}
	id, err := tbl.Insert(ctx, in)
	require.NoError(t, err)

	in.Name = "changed"
	got, _, err := tbl.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Name)
	assert.Equal(t, 1, tbl.Len())
}

func TestSortByOrder(t *testing.T) {
	records := []*widget{
		{ID: "x"},
		{ID: "b", Order: 2},
		{ID: "y"},
		{ID: "a", Order: 1},
		{ID: "b2", Order: 2},
	}
	SortByOrder(records)
	assert.Equal(t, []string{"a", "b", "b2", "x", "y"}, ids(records))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "")
	require.Error(t, err)
	assert.True(t, Error.Has(err))
}
