package repositorycache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func assignedOrders(slots []slot) map[string]int {
	out := make(map[string]int, len(slots))
	for _, s := range slots {
		out[s.ID] = s.Assigned
	}
	return out
}

func slotIDs(slots []slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.ID
	}
	return out
}

func TestAssignSlots(t *testing.T) {
	tests := []struct {
		name     string
		siblings []slot
		keepID   string
		wantIDs  []string
		want     map[string]int
	}{
		{
			name:     "new sibling draws next free value",
			siblings: []slot{{ID: "a", Current: 1}, {ID: "b", Current: 2}, {ID: "c", Current: 3}, {ID: "d"}},
			wantIDs:  []string{"a", "b", "c", "d"},
			want:     map[string]int{"a": 1, "b": 2, "c": 3, "d": 4},
		},
		{
			name:     "gap is kept by assign",
			siblings: []slot{{ID: "a", Current: 1}, {ID: "c", Current: 3}},
			wantIDs:  []string{"a", "c"},
			want:     map[string]int{"a": 1, "c": 3},
		},
		{
			name:     "unset siblings draw the same value in fetch order",
			siblings: []slot{{ID: "a", Current: 2}, {ID: "x"}, {ID: "y"}},
			wantIDs:  []string{"x", "y", "a"},
			want:     map[string]int{"x": 1, "y": 1, "a": 2},
		},
		{
			name:     "drawn values sort ahead of higher held orders",
			siblings: []slot{{ID: "a", Current: 1}, {ID: "b", Current: 3}, {ID: "c"}, {ID: "d"}},
			wantIDs:  []string{"a", "c", "d", "b"},
			want:     map[string]int{"a": 1, "c": 2, "d": 2, "b": 3},
		},
		{
			name:     "duplicate order goes to the later sibling",
			siblings: []slot{{ID: "a", Current: 2}, {ID: "b", Current: 2}},
			wantIDs:  []string{"b", "a"},
			want:     map[string]int{"b": 1, "a": 2},
		},
		{
			name:     "keep sibling wins a collision",
			siblings: []slot{{ID: "a", Current: 1}, {ID: "b", Current: 2}, {ID: "c", Current: 1}},
			keepID:   "c",
			wantIDs:  []string{"c", "b", "a"},
			want:     map[string]int{"c": 1, "b": 2, "a": 3},
		},
		{
			name:     "keep sibling without order is treated like the others",
			siblings: []slot{{ID: "a", Current: 1}, {ID: "k"}},
			keepID:   "k",
			wantIDs:  []string{"a", "k"},
			want:     map[string]int{"a": 1, "k": 2},
		},
		{
			name:     "unknown keep id is ignored",
			siblings: []slot{{ID: "a", Current: 1}},
			keepID:   "ghost",
			wantIDs:  []string{"a"},
			want:     map[string]int{"a": 1},
		},
		{
			name:    "no siblings",
			wantIDs: []string{},
			want:    map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := assignSlots(tt.siblings, tt.keepID)
			assert.Equal(t, tt.wantIDs, slotIDs(got))
			assert.Equal(t, tt.want, assignedOrders(got))
		})
	}
}

func TestPackSlots(t *testing.T) {
	t.Run("only changed positions are rewritten", func(t *testing.T) {
		assigned := assignSlots([]slot{{ID: "a", Current: 1}, {ID: "c", Current: 3}}, "")
		assert.Equal(t, []rewrite{{ID: "c", From: 3, To: 2}}, packSlots(assigned))
	})

	t.Run("dense input needs no rewrites", func(t *testing.T) {
		assigned := assignSlots([]slot{{ID: "a", Current: 1}, {ID: "b", Current: 2}}, "")
		assert.Empty(t, packSlots(assigned))
	})

	t.Run("unset orders are always written", func(t *testing.T) {
		assigned := assignSlots([]slot{{ID: "a"}}, "")
		assert.Equal(t, []rewrite{{ID: "a", From: 0, To: 1}}, packSlots(assigned))
	})

	t.Run("siblings sharing a drawn value are packed in fetch order", func(t *testing.T) {
		assigned := assignSlots([]slot{{ID: "a", Current: 1}, {ID: "b", Current: 3}, {ID: "c"}, {ID: "d"}}, "")
		assert.Equal(t, []rewrite{
			{ID: "c", From: 0, To: 2},
			{ID: "d", From: 0, To: 3},
			{ID: "b", From: 3, To: 4},
		}, packSlots(assigned))
	})

	t.Run("keep sibling can still shift to close a gap", func(t *testing.T) {
		assigned := assignSlots([]slot{{ID: "a", Current: 1}, {ID: "k", Current: 3}}, "k")
		assert.Equal(t, []rewrite{{ID: "k", From: 3, To: 2}}, packSlots(assigned))
	})
}
