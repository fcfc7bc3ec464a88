// Package memstore is an in-memory document store.
//
// Documents are kept JSON-encoded, so callers never share mutable state with
// the store, and every query works on a snapshot taken when it is
// subscribed.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	rferrors "github.com/vnykmshr/reactflow/pkg/common/errors"
	"github.com/vnykmshr/reactflow/pkg/store"
	"github.com/vnykmshr/reactflow/pkg/streaming/stream"
)

// FailureFunc decides whether an operation on a collection fails. It is
// consulted before every operation; a non-nil error is reported as a
// persistence failure.
type FailureFunc func(collection, op string) error

// Option configures a Store.
type Option func(*Store)

// WithFailure installs a failure hook, mainly for tests.
func WithFailure(f FailureFunc) Option {
	return func(s *Store) { s.failure = f }
}

// Store holds any number of named collections.
type Store struct {
	mu      sync.RWMutex
	tables  map[string]*table
	failure FailureFunc
}

type table struct {
	order []string
	docs  map[string][]byte
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{tables: make(map[string]*table)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping implements store.Pinger.
func (s *Store) Ping(context.Context) error {
	return s.fail("", "ping")
}

// Len returns the number of documents in the named collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tables[collection]; ok {
		return len(t.order)
	}
	return 0
}

func (s *Store) fail(collection, op string) error {
	if s.failure == nil {
		return nil
	}
	if err := s.failure(collection, op); err != nil {
		return rferrors.Persistence(op+" "+collection, err)
	}
	return nil
}

func (s *Store) put(collection, id string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[collection]
	if !ok {
		t = &table{docs: make(map[string][]byte)}
		s.tables[collection] = t
	}
	if _, exists := t.docs[id]; !exists {
		t.order = append(t.order, id)
	}
	t.docs[id] = data
}

func (s *Store) snapshot(collection string) [][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[collection]
	if !ok {
		return nil
	}
	out := make([][]byte, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.docs[id])
	}
	return out
}

// Collection is a typed view of one collection of a Store.
type Collection[T store.Document[T]] struct {
	store *Store
	name  string
}

// NewCollection returns the collection called name in s.
func NewCollection[T store.Document[T]](s *Store, name string) *Collection[T] {
	return &Collection[T]{store: s, name: name}
}

func (c *Collection[T]) Name() string {
	return c.name
}

// Ping implements store.Pinger.
func (c *Collection[T]) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

func (c *Collection[T]) Save(doc T) stream.Single[T] {
	return stream.DeferSingle(func(context.Context) (stream.Single[T], error) {
		if err := c.store.fail(c.name, "save"); err != nil {
			return stream.Single[T]{}, err
		}

		doc := store.AssignID(doc)
		data, err := json.Marshal(doc)
		if err != nil {
			return stream.Single[T]{}, rferrors.Persistence("save "+c.name, fmt.Errorf("encode document: %w", err))
		}
		c.store.put(c.name, doc.DocumentID(), data)
		return stream.Just(doc), nil
	})
}

func (c *Collection[T]) FindAll() stream.Many[T] {
	return c.find("findAll", func([]byte) (bool, error) { return true, nil })
}

func (c *Collection[T]) FindWhere(field string, value any) stream.Many[T] {
	encoded, err := store.EncodeValue(value)
	if err != nil {
		return stream.Fail[T](rferrors.Persistence("findWhere "+c.name, err))
	}
	return c.find("findWhere", func(data []byte) (bool, error) {
		return store.Matches(data, field, encoded)
	})
}

func (c *Collection[T]) FindOneWhere(field string, value any) stream.Single[T] {
	return stream.First[T](c.FindWhere(field, value))
}

func (c *Collection[T]) find(op string, keep func([]byte) (bool, error)) stream.Many[T] {
	return stream.Defer(func(context.Context) (stream.Stream[T], error) {
		if err := c.store.fail(c.name, op); err != nil {
			return nil, err
		}

		var docs []T
		for _, data := range c.store.snapshot(c.name) {
			ok, err := keep(data)
			if err != nil {
				return nil, rferrors.Persistence(op+" "+c.name, err)
			}
			if !ok {
				continue
			}
			var doc T
			if err := json.Unmarshal(data, &doc); err != nil {
				return nil, rferrors.Persistence(op+" "+c.name, fmt.Errorf("decode document: %w", err))
			}
			docs = append(docs, doc)
		}
		return stream.FromSlice(docs), nil
	})
}
