// Package tenant maps owner identifiers to per-tenant vector collections
// and guarantees a collection's schema exists before the first write.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/anydocai/docpipe/internal/core"
	"github.com/anydocai/docpipe/internal/models"
)

// prefixLen bounds the sanitized owner fragment appended to the base name,
// keeping names legal as both Postgres identifiers and Weaviate classes.
const prefixLen = 12

const schemaVersion = 1

// Resolver resolves owners to collections. The schema-existence cache lives
// for the process lifetime and is safe for concurrent use; creation for a
// given collection runs at most once at a time, with concurrent callers
// sharing the outcome.
type Resolver struct {
	store core.VectorStore
	base  string
	dim   int

	mu    sync.RWMutex
	ready map[string]struct{}
	group singleflight.Group
}

func NewResolver(store core.VectorStore, base string, dim int) *Resolver {
	return &Resolver{
		store: store,
		base:  base,
		dim:   dim,
		ready: make(map[string]struct{}),
	}
}

// CollectionName derives the deterministic collection name for an owner:
// non-alphanumeric characters stripped, truncated to prefixLen, appended to
// the configured base. No lookup table; the same owner always resolves to
// the same name.
func (r *Resolver) CollectionName(ownerID string) string {
	var b strings.Builder
	for _, ch := range ownerID {
		if ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
		if b.Len() >= prefixLen {
			break
		}
	}
	suffix := b.String()
	if suffix == "" {
		suffix = "default"
	}
	return fmt.Sprintf("%s_%s", r.base, suffix)
}

// EnsureSchema resolves the owner's collection, creating it on first use.
// Idempotent and safe to call concurrently for the same owner: a
// "collection already exists" response from a concurrent creator counts as
// success.
func (r *Resolver) EnsureSchema(ctx context.Context, ownerID string) (models.TenantCollection, error) {
	name := r.CollectionName(ownerID)
	col := models.TenantCollection{OwnerID: ownerID, Name: name, SchemaVersion: schemaVersion}

	r.mu.RLock()
	_, ok := r.ready[name]
	r.mu.RUnlock()
	if ok {
		return col, nil
	}

	_, err, _ := r.group.Do(name, func() (any, error) {
		r.mu.RLock()
		_, ok := r.ready[name]
		r.mu.RUnlock()
		if ok {
			return nil, nil
		}

		exists, err := r.store.CollectionExists(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("check collection %s: %w", name, err)
		}
		if !exists {
			err := r.store.CreateCollection(ctx, ChunkSchema(name, r.dim))
			if err != nil && !errors.Is(err, core.ErrCollectionExists) {
				return nil, fmt.Errorf("create collection %s: %w", name, err)
			}
		}

		r.mu.Lock()
		r.ready[name] = struct{}{}
		r.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return models.TenantCollection{}, err
	}
	return col, nil
}

// ChunkSchema is the fixed chunk-property schema every tenant collection
// carries.
func ChunkSchema(name string, dim int) core.CollectionSchema {
	return core.CollectionSchema{
		Name:      name,
		VectorDim: dim,
		Properties: []core.Property{
			{Name: "content", DataType: "text", Description: "the text content of the chunk"},
			{Name: "document_id", DataType: "text", Description: "id of the source document"},
			{Name: "owner_id", DataType: "text", Description: "tenant the chunk belongs to"},
			{Name: "page_number", DataType: "int", Description: "1-based page the chunk came from"},
			{Name: "chunk_index", DataType: "int", Description: "position of the chunk within its document"},
			{Name: "heading", DataType: "text", Description: "nearest detected section title"},
			{Name: "strategy_used", DataType: "text", Description: "segmentation strategy that produced the chunk"},
			{Name: "metadata", DataType: "text", Description: "free-form metadata"},
		},
	}
}
