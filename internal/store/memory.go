package store

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

type memoryCollection struct {
	order []string
	docs  map[string]map[string]interface{}
}

// MemoryStore is an in-process DocumentStore. Query results follow insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	watchers    *watchers
	closed      bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memoryCollection),
		watchers:    newWatchers(),
	}
}

func (s *MemoryStore) collection(name string) *memoryCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{docs: make(map[string]map[string]interface{})}
		s.collections[name] = c
	}
	return c
}

// Create stores a document under a new UUID
func (s *MemoryStore) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := uuid.New().String()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Set creates or replaces a document
func (s *MemoryStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	normalized, err := normalizeData(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	c := s.collection(collection)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = normalized
	s.mu.Unlock()

	s.watchers.notify(collection)
	return nil
}

// Get reads a document by id
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	c, ok := s.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	data, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{ID: id, Data: copyData(data)}, nil
}

// Update merges fields into an existing document
func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	normalized, err := normalizeData(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	c, ok := s.collections[collection]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	data, ok := c.docs[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	for k, v := range normalized {
		data[k] = v
	}
	s.mu.Unlock()

	s.watchers.notify(collection)
	return nil
}

// Delete removes a document
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	c, ok := s.collections[collection]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if _, ok := c.docs[id]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(c.docs, id)
	for i, docID := range c.order {
		if docID == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.watchers.notify(collection)
	return nil
}

// Query returns matching documents in insertion order
func (s *MemoryStore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	filters, err := normalizeFilters(q.Filters)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	c, ok := s.collections[q.Collection]
	if !ok {
		return []Document{}, nil
	}

	docs := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		data := c.docs[id]
		if matchesFilters(data, filters) {
			docs = append(docs, Document{ID: id, Data: copyData(data)})
		}
	}
	return docs, nil
}

// Subscribe re-runs q after every write to its collection
func (s *MemoryStore) Subscribe(ctx context.Context, q Query, fn func(Snapshot)) (Unsubscribe, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	return s.watchers.add(ctx, q, fn, s.Query), nil
}

// Close cancels all subscriptions and rejects further calls
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.watchers.closeAll()
	return nil
}

func normalizeData(data map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

func normalizeFilters(filters []Filter) ([]Filter, error) {
	out := make([]Filter, len(filters))
	for i, f := range filters {
		v, err := normalize(f.Value)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", f.Field, err)
		}
		if f.Op == OpIn {
			if _, ok := v.([]interface{}); !ok {
				return nil, fmt.Errorf("filter %q: %q requires a slice value", f.Field, OpIn)
			}
		}
		out[i] = Filter{Field: f.Field, Op: f.Op, Value: v}
	}
	return out, nil
}

func matchesFilters(data map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		value, ok := data[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if !reflect.DeepEqual(value, f.Value) {
				return false
			}
		case OpIn:
			found := false
			for _, candidate := range f.Value.([]interface{}) {
				if reflect.DeepEqual(value, candidate) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func copyData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
