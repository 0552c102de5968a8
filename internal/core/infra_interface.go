package core

import (
	"context"

	"github.com/anydocai/docpipe/internal/models"
)

// EmbeddingProvider converts chunk text into vectors. Vectors align 1:1 by
// index with the input texts; a failure fails the whole batch.
type EmbeddingProvider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Property is one field of a collection's chunk schema.
type Property struct {
	Name        string
	DataType    string // "text" or "int"
	Description string
}

// CollectionSchema describes a per-tenant collection in the vector store.
type CollectionSchema struct {
	Name       string
	VectorDim  int
	Properties []Property
}

// VectorRecord is one (content, metadata, vector) triple written to a
// collection. ID becomes the chunk's embedding id on success.
type VectorRecord struct {
	ID     string
	Vector []float32
	Chunk  models.Chunk
}

// VectorStore abstracts the remote vector database so higher layers never
// depend on a specific backend (pgvector, Weaviate, in-memory).
//
// CreateCollection must return ErrCollectionExists when the collection is
// already present, so concurrent first-use by two pipelines is safe.
type VectorStore interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, schema CollectionSchema) error
	BatchWrite(ctx context.Context, collection string, records []VectorRecord) error
	Close() error
}

// ObjectClient fetches stored blobs for the ingestion worker. Uploads go
// through the concrete client; only the fetch path needs substituting in
// tests.
type ObjectClient interface {
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}

// DocumentExtractor turns a raw file into ordered page texts. A single-page
// result is expected for formats where paging is not meaningful.
type DocumentExtractor interface {
	ExtractPages(ctx context.Context, data []byte, contentType string) ([]string, error)
}
