package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/anydocai/docpipe/internal/config"
	"github.com/anydocai/docpipe/internal/core"
	"github.com/anydocai/docpipe/internal/core/ingestion_engine"
	"github.com/anydocai/docpipe/internal/models"
)

// Uploader is the slice of the object client the upload endpoint needs.
type Uploader interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
}

// Enqueuer queues a stored document for background ingestion.
type Enqueuer interface {
	Enqueue(job ingestion_engine.Job)
}

type DocumentHandler struct {
	processor ingestion_engine.DocumentProcessor
	uploader  Uploader
	enqueuer  Enqueuer
	cfg       *config.Config
}

func NewDocumentHandler(processor ingestion_engine.DocumentProcessor, uploader Uploader, enqueuer Enqueuer, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{processor: processor, uploader: uploader, enqueuer: enqueuer, cfg: cfg}
}

type processRequest struct {
	DocumentID string   `json:"document_id"`
	OwnerID    string   `json:"owner_id"`
	Filename   string   `json:"filename"`
	Kind       string   `json:"kind"`
	Pages      []string `json:"pages"`
}

// ProcessDocument ingests already-extracted page texts synchronously and
// returns the indexing result, including any batches that failed.
func (h *DocumentHandler) ProcessDocument(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.OwnerID == "" {
		http.Error(w, "owner_id is required", http.StatusBadRequest)
		return
	}
	if len(req.Pages) == 0 {
		http.Error(w, "pages must not be empty", http.StatusBadRequest)
		return
	}

	doc := models.Document{
		ID:      req.DocumentID,
		OwnerID: req.OwnerID,
		Kind:    models.DocumentKind(req.Kind),
		Pages:   req.Pages,
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Kind == "" {
		doc.Kind = models.KindFromFilename(req.Filename)
	}

	result, err := h.processor.ProcessDocument(r.Context(), doc)
	if err != nil {
		if errors.Is(err, core.ErrNoExtractableText) {
			http.Error(w, "document has no extractable text", http.StatusUnprocessableEntity)
			return
		}
		log.Printf("process document %s failed: %v", doc.ID, err)
		http.Error(w, "document processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// UploadDocument stores the file in object storage and queues it for
// background extraction and indexing.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.ParseMultipartForm(52 << 20)

	ownerID := r.FormValue("owner_id")
	if ownerID == "" {
		http.Error(w, "owner_id is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "could not read file", http.StatusBadRequest)
		return
	}

	cleanFilename := filepath.Base(header.Filename)
	docID := uuid.NewString()
	key := fmt.Sprintf("%s/%s/%s", ownerID, docID, cleanFilename)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	uploadCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	url, err := h.uploader.UploadFile(uploadCtx, h.cfg.BucketName, key, data, contentType)
	if err != nil {
		log.Printf("upload failed for doc %s: %v", docID, err)
		http.Error(w, fmt.Sprintf("upload failed: %v", err), http.StatusInternalServerError)
		return
	}

	h.enqueuer.Enqueue(ingestion_engine.Job{
		DocumentID: docID,
		OwnerID:    ownerID,
		Bucket:     h.cfg.BucketName,
		Key:        key,
		Filename:   cleanFilename,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"document_id": docID,
		"owner_id":    ownerID,
		"file_name":   cleanFilename,
		"storage_url": url,
		"status":      "queued",
	})
}

type enqueueRequest struct {
	DocumentID string `json:"document_id"`
	OwnerID    string `json:"owner_id"`
	Bucket     string `json:"bucket"`
	Key        string `json:"key"`
	Filename   string `json:"filename"`
}

// EnqueueDocument queues an object already in storage for background
// extraction and indexing, without re-uploading it.
func (h *DocumentHandler) EnqueueDocument(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.OwnerID == "" || req.Key == "" {
		http.Error(w, "owner_id and key are required", http.StatusBadRequest)
		return
	}
	if req.DocumentID == "" {
		req.DocumentID = uuid.NewString()
	}
	if req.Bucket == "" {
		req.Bucket = h.cfg.BucketName
	}
	if req.Filename == "" {
		req.Filename = filepath.Base(req.Key)
	}

	h.enqueuer.Enqueue(ingestion_engine.Job{
		DocumentID: req.DocumentID,
		OwnerID:    req.OwnerID,
		Bucket:     req.Bucket,
		Key:        req.Key,
		Filename:   req.Filename,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"document_id": req.DocumentID,
		"status":      "queued",
	})
}

// Health reports process liveness.
func (h *DocumentHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
