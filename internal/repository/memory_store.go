package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore keeps documents in process memory. It backs deployments
// that run without CouchDB and is the store used by tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]map[string]interface{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]map[string]interface{}),
	}
}

func (s *MemoryStore) Find(ctx context.Context, query Query) ([]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, exists := s.docs[query.Collection]
	if !exists {
		return nil, nil
	}

	if query.ID != "" {
		if doc, ok := coll[query.ID]; ok {
			return []map[string]interface{}{doc}, nil
		}
		return nil, nil
	}

	var results []map[string]interface{}
	for _, doc := range coll {
		if matchesFilter(doc, query.Filter) {
			results = append(results, doc)
		}
	}
	return results, nil
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, doc interface{}) error {
	fields, err := toFields(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]map[string]interface{})
	}
	if _, exists := s.docs[collection][id]; exists {
		return fmt.Errorf("document already exists: %s/%s", collection, id)
	}
	s.docs[collection][id] = fields
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, doc interface{}) error {
	fields, err := toFields(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]map[string]interface{})
	}
	s.docs[collection][id] = fields
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, exists := s.docs[collection]
	if !exists {
		return nil
	}
	delete(coll, id)
	return nil
}

func matchesFilter(doc map[string]interface{}, filter map[string]interface{}) bool {
	for k, want := range filter {
		if doc[k] != want {
			return false
		}
	}
	return true
}

// toFields round-trips through JSON so stored documents look the same
// regardless of backing store.
func toFields(doc interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
