package core

import "errors"

// ErrNoExtractableText means a document produced zero usable pages.
// It aborts ingestion for that document; the caller should mark the
// document failed.
var ErrNoExtractableText = errors.New("document has no extractable text")

// ErrCollectionExists is returned by VectorStore.CreateCollection when the
// collection is already present. The tenant resolver treats it as success so
// a schema-creation race never surfaces to callers.
var ErrCollectionExists = errors.New("collection already exists")

// ErrEmbeddingFailed wraps a failed embedding call for one batch.
// Retryable; after retries are exhausted the batch is recorded as failed,
// it is never raised to the caller.
var ErrEmbeddingFailed = errors.New("embedding failed")

// ErrVectorWriteFailed wraps a failed vector-store batch write.
// Same retry semantics as ErrEmbeddingFailed.
var ErrVectorWriteFailed = errors.New("vector write failed")

// ErrExtractionFailed means the raw file could not be parsed at all.
var ErrExtractionFailed = errors.New("text extraction failed")
