package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anydocai/docpipe/internal/core"
)

var _ core.VectorStore = (*WeaviateStore)(nil)

// WeaviateStore is a minimal REST client to Weaviate. Each tenant collection
// maps to a Weaviate class; vectors are supplied by the pipeline, so the
// class is created with vectorizer "none".
type WeaviateStore struct {
	url    string
	apiKey string
	client *http.Client
}

type WeaviateConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func NewWeaviateStore(cfg WeaviateConfig) *WeaviateStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &WeaviateStore{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *WeaviateStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *WeaviateStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/schema/%s", s.url, className(name)), nil)
	if err != nil {
		return false, err
	}
	s.auth(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("weaviate schema check: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("weaviate schema check failed: %s", resp.Status)
	}
}

func (s *WeaviateStore) CreateCollection(ctx context.Context, schema core.CollectionSchema) error {
	props := make([]map[string]any, 0, len(schema.Properties))
	for _, p := range schema.Properties {
		props = append(props, map[string]any{
			"name":        p.Name,
			"dataType":    []string{p.DataType},
			"description": p.Description,
		})
	}
	body := map[string]any{
		"class":      className(schema.Name),
		"vectorizer": "none",
		"properties": props,
	}

	status, respBody, err := s.postJSON(ctx, s.url+"/v1/schema", body, nil)
	if err != nil {
		return fmt.Errorf("weaviate create class: %w", err)
	}
	if status == http.StatusUnprocessableEntity && strings.Contains(string(respBody), "already exists") {
		return core.ErrCollectionExists
	}
	if status >= 300 {
		return fmt.Errorf("weaviate create class failed: status %d: %s", status, respBody)
	}
	return nil
}

// BatchWrite pushes the whole record batch through /v1/batch/objects. Any
// per-object error in the response fails the batch, so the pipeline's retry
// covers partial rejections too.
func (s *WeaviateStore) BatchWrite(ctx context.Context, collection string, records []core.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	objects := make([]map[string]any, len(records))
	for i, r := range records {
		objects[i] = map[string]any{
			"class":  className(collection),
			"id":     r.ID,
			"vector": r.Vector,
			"properties": map[string]any{
				"content":       r.Chunk.Content,
				"document_id":   r.Chunk.DocumentID,
				"owner_id":      r.Chunk.OwnerID,
				"page_number":   r.Chunk.PageNumber,
				"chunk_index":   r.Chunk.Index,
				"heading":       r.Chunk.Heading,
				"strategy_used": string(r.Chunk.Strategy),
			},
		}
	}

	var results []struct {
		Result struct {
			Errors *struct {
				Error []struct {
					Message string `json:"message"`
				} `json:"error"`
			} `json:"errors"`
		} `json:"result"`
	}
	status, respBody, err := s.postJSON(ctx, s.url+"/v1/batch/objects", map[string]any{"objects": objects}, &results)
	if err != nil {
		return fmt.Errorf("weaviate batch write: %w", err)
	}
	if status >= 300 {
		return fmt.Errorf("weaviate batch write failed: status %d: %s", status, respBody)
	}
	for i, r := range results {
		if r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("weaviate batch write: object %d rejected: %s", i, r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

func (s *WeaviateStore) auth(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}

func (s *WeaviateStore) postJSON(ctx context.Context, url string, body any, out any) (int, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	s.auth(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	if out != nil && resp.StatusCode < 300 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, respBody, err
		}
	}
	return resp.StatusCode, respBody, nil
}

// className uppercases the first letter; Weaviate requires capitalized class
// names.
func className(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
