package metastore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// MemoryTable is a Table kept in process memory. Records are stored encoded,
// so callers never share memory with the table.
type MemoryTable[E Record] struct {
	mu        sync.RWMutex
	newRecord func() E
	rows      map[string][]byte
	sequence  []string
	now       func() time.Time
}

var (
	_ Table[Record]   = (*MemoryTable[Record])(nil)
	_ Updater[Record] = (*MemoryTable[Record])(nil)
)

// NewMemoryTable creates an empty in-memory table.
func NewMemoryTable[E Record](newRecord func() E) *MemoryTable[E] {
	return &MemoryTable[E]{
		newRecord: newRecord,
		rows:      make(map[string][]byte),
		now:       time.Now,
	}
}

func (m *MemoryTable[E]) Insert(ctx context.Context, record E) (string, error) {
	if record.GetID() == "" {
		record.SetID(uuid.NewString())
	}
	record.Touch(stamp(m.now), true)

	raw, err := msgpack.Marshal(record)
	if err != nil {
		return "", Error.Wrap(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := record.GetID()
	if _, exists := m.rows[id]; exists {
		return "", Error.New("duplicate id %q", id)
	}
	m.rows[id] = raw
	m.sequence = append(m.sequence, id)
	return id, nil
}

func (m *MemoryTable[E]) Get(ctx context.Context, id string) (E, bool, error) {
	m.mu.RLock()
	raw, ok := m.rows[id]
	m.mu.RUnlock()

	if !ok {
		var zero E
		return zero, false, nil
	}
	record, err := m.decode(raw)
	if err != nil {
		var zero E
		return zero, false, err
	}
	return record, true, nil
}

func (m *MemoryTable[E]) List(ctx context.Context, filter Filter) ([]E, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]E, 0)
	for _, id := range m.sequence {
		if len(filter.IDs) > 0 && !contains(filter.IDs, id) {
			continue
		}
		record, err := m.decode(m.rows[id])
		if err != nil {
			return nil, err
		}
		if filter.ParentID != "" && record.GetParentID() != filter.ParentID {
			continue
		}
		records = append(records, record)
	}

	SortByOrder(records)
	return records, nil
}

func (m *MemoryTable[E]) Update(ctx context.Context, record E) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := record.GetID()
	if _, ok := m.rows[id]; !ok {
		return false, nil
	}
	record.Touch(stamp(m.now), false)

	raw, err := msgpack.Marshal(record)
	if err != nil {
		return false, Error.Wrap(err)
	}
	m.rows[id] = raw
	return true, nil
}

func (m *MemoryTable[E]) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.remove(id)
	return nil
}

func (m *MemoryTable[E]) DeleteWhere(ctx context.Context, filter Filter) (int, error) {
	matches, err := m.List(ctx, filter)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range matches {
		m.remove(record.GetID())
	}
	return len(matches), nil
}

// Len reports the number of stored records.
func (m *MemoryTable[E]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func (m *MemoryTable[E]) remove(id string) {
	if _, ok := m.rows[id]; !ok {
		return
	}
	delete(m.rows, id)
	for i, seqID := range m.sequence {
		if seqID == id {
			m.sequence = append(m.sequence[:i], m.sequence[i+1:]...)
			break
		}
	}
}

func (m *MemoryTable[E]) decode(raw []byte) (E, error) {
	record := m.newRecord()
	if err := msgpack.Unmarshal(raw, record); err != nil {
		var zero E
		return zero, Error.Wrap(err)
	}
	return record, nil
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
