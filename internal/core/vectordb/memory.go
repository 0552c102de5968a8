package vectordb

import (
	"context"
	"fmt"
	"sync"

	"github.com/anydocai/docpipe/internal/core"
)

var _ core.VectorStore = (*MemoryStore)(nil)

// MemoryStore keeps collections in process memory. Used for tests and local
// development without a running vector database.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	schema  core.CollectionSchema
	records map[string]core.VectorRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *MemoryStore) CreateCollection(ctx context.Context, schema core.CollectionSchema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[schema.Name]; ok {
		return core.ErrCollectionExists
	}
	s.collections[schema.Name] = &memoryCollection{
		schema:  schema,
		records: make(map[string]core.VectorRecord),
	}
	return nil
}

func (s *MemoryStore) BatchWrite(ctx context.Context, collection string, records []core.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("collection %s not found", collection)
	}
	if col.schema.VectorDim > 0 {
		for _, r := range records {
			if len(r.Vector) != col.schema.VectorDim {
				return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(r.Vector), col.schema.VectorDim)
			}
		}
	}
	for _, r := range records {
		col.records[r.ID] = r
	}
	return nil
}

// Count reports how many records a collection holds. Test helper.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[collection]
	if !ok {
		return 0
	}
	return len(col.records)
}

// Records returns a copy of a collection's records. Test helper.
func (s *MemoryStore) Records(collection string) []core.VectorRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[collection]
	if !ok {
		return nil
	}
	out := make([]core.VectorRecord, 0, len(col.records))
	for _, r := range col.records {
		out = append(out, r)
	}
	return out
}
