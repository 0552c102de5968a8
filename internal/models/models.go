package models

import (
	"path/filepath"
	"strings"
	"time"
)

// DocumentKind classifies an uploaded file after text extraction.
type DocumentKind string

const (
	KindPDF         DocumentKind = "pdf"
	KindWord        DocumentKind = "word"
	KindSpreadsheet DocumentKind = "spreadsheet"
	KindSlides      DocumentKind = "slides"
	KindText        DocumentKind = "text"
	KindUnknown     DocumentKind = "unknown"
)

// KindFromFilename maps a file extension to a DocumentKind.
func KindFromFilename(name string) DocumentKind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "pdf":
		return KindPDF
	case "docx", "doc":
		return KindWord
	case "xlsx", "xls", "csv":
		return KindSpreadsheet
	case "pptx", "ppt":
		return KindSlides
	case "txt", "md":
		return KindText
	default:
		return KindUnknown
	}
}

// ChunkingStrategy identifies which segmentation algorithm produced a chunk.
type ChunkingStrategy string

const (
	StrategyFixedSize  ChunkingStrategy = "fixed_size"
	StrategyTopicBased ChunkingStrategy = "topic_based"
)

// Document is one uploaded file after text extraction: an ordered list of
// page texts plus owner/kind metadata. Immutable once extracted.
type Document struct {
	ID      string       `json:"id"`
	OwnerID string       `json:"owner_id"`
	Kind    DocumentKind `json:"kind"`
	Pages   []string     `json:"pages"`
}

// Chunk is the atomic retrievable unit stored in the vector collection.
//
// Index is zero-based and contiguous across the whole document, not per
// page; it defines retrieval and display order. EmbeddingID is empty until
// the chunk's batch has been written to the vector store.
type Chunk struct {
	ID          string           `json:"id"`
	DocumentID  string           `json:"document_id"`
	OwnerID     string           `json:"owner_id"`
	Content     string           `json:"content"`
	PageNumber  int              `json:"page_number,omitempty"` // 1-based, 0 if paging not meaningful
	Index       int              `json:"chunk_index"`
	Heading     string           `json:"heading,omitempty"`
	Strategy    ChunkingStrategy `json:"strategy_used"`
	EmbeddingID string           `json:"embedding_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// BatchState tracks a chunk batch through the ingestion pipeline.
type BatchState string

const (
	BatchPending   BatchState = "pending"
	BatchInFlight  BatchState = "in_flight"
	BatchRetrying  BatchState = "retrying"
	BatchSucceeded BatchState = "succeeded"
	BatchFailed    BatchState = "failed"
)

// IngestResult summarizes one document's run through the batch pipeline.
// FailedBatches holds zero-based batch indexes that exhausted their retries.
type IngestResult struct {
	DocumentID    string           `json:"document_id"`
	Strategy      ChunkingStrategy `json:"chunking_strategy"`
	ChunksTotal   int              `json:"chunks_total"`
	ChunksIndexed int              `json:"chunks_indexed"`
	FailedBatches []int            `json:"failed_batches,omitempty"`
	Cancelled     bool             `json:"cancelled,omitempty"`
}

// TenantCollection is the per-owner destination in the vector store.
type TenantCollection struct {
	OwnerID       string `json:"owner_id"`
	Name          string `json:"collection_name"`
	SchemaVersion int    `json:"schema_version"`
}
