package cache

import (
	"context"
	"sync"

	"github.com/zeebo/errs"
)

// Scope is a logical namespace for one class of cached object.
type Scope string

// Direction selects how far DeepDelete reaches beyond the addressed entry.
type Direction int

const (
	// DirectionNone removes only the entry itself.
	DirectionNone Direction = iota
	// DirectionChildToParent also removes the key from every list that holds it.
	DirectionChildToParent
	// DirectionParentToChild removes the list owned by the key and every listed entry.
	DirectionParentToChild
)

const (
	listSegment    = "list"
	parentsSegment = "parents"
)

// Store is the scoped cache-aside contract used by the entity repositories.
// Entries hold one value per (scope, key); lists hold ordered member keys per
// (scope, parent). A list that was never cached reports ok == false, while
// a cached empty list reports ok == true with no members.
type Store[V any] struct {
	backend Backend
	codec   Codec
	keys    KeySerializer

	// mu serializes read-modify-write cycles on lists and the membership index.
	mu sync.Mutex
}

// Option customizes a Store.
type Option func(*storeOptions)

type storeOptions struct {
	codec Codec
	keys  KeySerializer
}

// WithCodec overrides the msgpack codec.
func WithCodec(codec Codec) Option {
	return func(o *storeOptions) {
		if codec != nil {
			o.codec = codec
		}
	}
}

// WithKeySerializer overrides the default key serializer.
func WithKeySerializer(keys KeySerializer) Option {
	return func(o *storeOptions) {
		if keys != nil {
			o.keys = keys
		}
	}
}

// NewStore creates a Store writing through the given backend.
func NewStore[V any](backend Backend, opts ...Option) *Store[V] {
	o := storeOptions{
		codec: NewMsgpackCodec(),
		keys:  NewDefaultKeySerializer(""),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[V]{
		backend: backend,
		codec:   o.codec,
		keys:    o.keys,
	}
}

// Get returns the entry cached for key. ok is false when nothing is cached.
func (s *Store[V]) Get(ctx context.Context, scope Scope, key string) (value V, ok bool, err error) {
	raw, ok, err := s.backend.Get(ctx, s.entryKey(scope, key))
	if err != nil || !ok {
		return value, false, Error.Wrap(err)
	}
	if err := s.codec.Unmarshal(raw, &value); err != nil {
		var zero V
		return zero, false, Error.Wrap(err)
	}
	return value, true, nil
}

// Set overwrites the entry cached for key.
func (s *Store[V]) Set(ctx context.Context, scope Scope, key string, value V) error {
	raw, err := s.codec.Marshal(value)
	if err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(s.backend.Set(ctx, s.entryKey(scope, key), raw))
}

// ListGet returns the member keys cached under parent.
func (s *Store[V]) ListGet(ctx context.Context, scope Scope, parent string) ([]string, bool, error) {
	return s.readKeys(ctx, s.listKey(scope, parent))
}

// ListSet replaces the list cached under parent.
func (s *Store[V]) ListSet(ctx context.Context, scope Scope, parent string, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeKeys(ctx, s.listKey(scope, parent), keys); err != nil {
		return err
	}

	var group errs.Group
	for _, key := range keys {
		group.Add(s.addMembership(ctx, scope, key, parent))
	}
	return Error.Wrap(group.Err())
}

// ListAppend adds key to the end of the list cached under parent.
// A list that is not cached stays uncached: appending to it would turn a
// miss into a partial hit. A key already listed is left where it is.
func (s *Store[V]) ListAppend(ctx context.Context, scope Scope, parent, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listKey := s.listKey(scope, parent)
	members, ok, err := s.readKeys(ctx, listKey)
	if err != nil || !ok {
		return err
	}
	if indexOf(members, key) < 0 {
		if err := s.writeKeys(ctx, listKey, append(members, key)); err != nil {
			return err
		}
	}
	return s.addMembership(ctx, scope, key, parent)
}

// DeepDelete removes the entry for key and, depending on dir, the references
// around it. It is safe to call when nothing is cached.
func (s *Store[V]) DeepDelete(ctx context.Context, scope Scope, key string, dir Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var group errs.Group

	switch dir {
	case DirectionChildToParent:
		indexKey := s.parentsKey(scope, key)
		parents, _, err := s.readKeys(ctx, indexKey)
		group.Add(err)
		for _, parent := range parents {
			listKey := s.listKey(scope, parent)
			members, ok, err := s.readKeys(ctx, listKey)
			if err != nil {
				group.Add(err)
				continue
			}
			if !ok {
				continue
			}
			if i := indexOf(members, key); i >= 0 {
				members = append(members[:i], members[i+1:]...)
				group.Add(s.writeKeys(ctx, listKey, members))
			}
		}
		group.Add(s.backend.Delete(ctx, indexKey))

	case DirectionParentToChild:
		listKey := s.listKey(scope, key)
		members, _, err := s.readKeys(ctx, listKey)
		group.Add(err)
		doomed := []string{listKey}
		for _, member := range members {
			doomed = append(doomed, s.entryKey(scope, member), s.parentsKey(scope, member))
		}
		group.Add(s.backend.Delete(ctx, doomed...))
	}

	group.Add(s.backend.Delete(ctx, s.entryKey(scope, key)))
	return Error.Wrap(group.Err())
}

// Evict drops the entry for key without touching any list.
func (s *Store[V]) Evict(ctx context.Context, scope Scope, key string) error {
	return Error.Wrap(s.backend.Delete(ctx, s.entryKey(scope, key)))
}

// EvictList drops the list cached under parent, returning it to the uncached state.
func (s *Store[V]) EvictList(ctx context.Context, scope Scope, parent string) error {
	return Error.Wrap(s.backend.Delete(ctx, s.listKey(scope, parent)))
}

func (s *Store[V]) addMembership(ctx context.Context, scope Scope, key, parent string) error {
	indexKey := s.parentsKey(scope, key)
	parents, _, err := s.readKeys(ctx, indexKey)
	if err != nil {
		return err
	}
	if indexOf(parents, parent) >= 0 {
		return nil
	}
	return s.writeKeys(ctx, indexKey, append(parents, parent))
}

func (s *Store[V]) readKeys(ctx context.Context, key string) ([]string, bool, error) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, Error.Wrap(err)
	}
	var keys []string
	if err := s.codec.Unmarshal(raw, &keys); err != nil {
		return nil, false, Error.Wrap(err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, true, nil
}

func (s *Store[V]) writeKeys(ctx context.Context, key string, keys []string) error {
	if keys == nil {
		keys = []string{}
	}
	raw, err := s.codec.Marshal(keys)
	if err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(s.backend.Set(ctx, key, raw))
}

func (s *Store[V]) entryKey(scope Scope, key string) string {
	return s.keys.SerializeKey(scope, key)
}

func (s *Store[V]) listKey(scope Scope, parent string) string {
	return s.keys.SerializeKey(scope, listSegment, parent)
}

func (s *Store[V]) parentsKey(scope Scope, key string) string {
	return s.keys.SerializeKey(scope, parentsSegment, key)
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}
