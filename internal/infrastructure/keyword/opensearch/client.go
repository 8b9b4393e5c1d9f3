package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hirewatch/screening-engine/internal/core/domain"
	"github.com/hirewatch/screening-engine/internal/core/ports"
	"github.com/hirewatch/screening-engine/internal/infrastructure/resilience"
)

// Client is the lexical ranking collaborator over an OpenSearch-compatible
// REST API. Scores come back as unbounded BM25-family values; normalization
// belongs to the core, not here.
type Client struct {
	baseURL    string
	index      string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu     sync.Mutex
	ensuredIndex bool
}

func New(baseURL, index string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		index:      index,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// NewWithExecutor layers retry and circuit breaking over every call.
func NewWithExecutor(baseURL, index string, executor *resilience.Executor) *Client {
	client := New(baseURL, index)
	client.executor = executor
	return client
}

// Index stores one record per chunk keyed by chunk id. The text field is
// analyzed for ranking but excluded from _source; only the bounded preview
// travels back as metadata.
func (c *Client) Index(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := c.ensureIndex(ctx); err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, chunk := range chunks {
		action := map[string]any{
			"index": map[string]any{"_index": c.index, "_id": chunk.ID},
		}
		doc := map[string]any{
			"chunk_id":      chunk.ID,
			"document_id":   chunk.DocumentID,
			"document_type": string(chunk.DocumentType),
			"chunk_type":    string(chunk.Type),
			"section":       chunk.Meta.Section,
			"preview":       chunk.Preview(),
			"text":          chunk.Text,
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return fmt.Errorf("encode bulk document: %w", err)
		}
	}

	url := fmt.Sprintf("%s/_bulk?refresh=true", c.baseURL)
	var bulkResp struct {
		Errors bool `json:"errors"`
	}
	if err := c.doRequest(ctx, http.MethodPost, url, "application/x-ndjson", buf.Bytes(), &bulkResp, "bulk index"); err != nil {
		return err
	}
	if bulkResp.Errors {
		return fmt.Errorf("keyword bulk index reported item errors")
	}
	return nil
}

func (c *Client) Search(ctx context.Context, query ports.KeywordQuery) ([]domain.ChannelHit, error) {
	boolQuery := map[string]any{
		"must": []map[string]any{
			{"match": map[string]any{"text": query.Text}},
		},
	}
	if query.DocumentType != "" {
		boolQuery["filter"] = []map[string]any{
			{"term": map[string]any{"document_type": string(query.DocumentType)}},
		}
	}
	if query.ExcludeDocumentID != "" {
		boolQuery["must_not"] = []map[string]any{
			{"term": map[string]any{"document_id": query.ExcludeDocumentID}},
		}
	}

	reqBody := map[string]any{
		"size":    query.TopK,
		"query":   map[string]any{"bool": boolQuery},
		"_source": []string{"chunk_id", "document_id", "document_type", "chunk_type", "preview"},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_search", c.baseURL, c.index)
	var searchResp struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source struct {
					ChunkID      string `json:"chunk_id"`
					DocumentID   string `json:"document_id"`
					DocumentType string `json:"document_type"`
					ChunkType    string `json:"chunk_type"`
					Preview      string `json:"preview"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := c.doRequest(ctx, http.MethodPost, url, "application/json", body, &searchResp, "search"); err != nil {
		return nil, err
	}

	out := make([]domain.ChannelHit, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		out = append(out, domain.ChannelHit{
			ChunkID:      hit.Source.ChunkID,
			DocumentID:   hit.Source.DocumentID,
			DocumentType: domain.DocumentType(hit.Source.DocumentType),
			ChunkType:    domain.ChunkType(hit.Source.ChunkType),
			Preview:      hit.Source.Preview,
			Score:        hit.Score,
		})
	}
	return out, nil
}

func (c *Client) DeleteByDocument(ctx context.Context, documentID string) error {
	reqBody := map[string]any{
		"query": map[string]any{
			"term": map[string]any{"document_id": documentID},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal delete body: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_delete_by_query?refresh=true", c.baseURL, c.index)
	return c.doRequest(ctx, http.MethodPost, url, "application/json", body, nil, "delete by query")
}

func (c *Client) ensureIndex(ctx context.Context) error {
	c.ensureMu.Lock()
	if c.ensuredIndex {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	mapping := map[string]any{
		"mappings": map[string]any{
			"_source": map[string]any{
				"excludes": []string{"text"},
			},
			"properties": map[string]any{
				"chunk_id":      map[string]any{"type": "keyword"},
				"document_id":   map[string]any{"type": "keyword"},
				"document_type": map[string]any{"type": "keyword"},
				"chunk_type":    map[string]any{"type": "keyword"},
				"section":       map[string]any{"type": "keyword"},
				"preview":       map[string]any{"type": "keyword", "index": false},
				"text":          map[string]any{"type": "text"},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshal index mapping: %w", err)
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, c.index)
	err = c.doRequest(ctx, http.MethodPut, url, "application/json", body, nil, "ensure index")

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && strings.Contains(statusErr.body, "resource_already_exists_exception") {
		err = nil
	}
	if err != nil {
		return err
	}
	c.markIndexEnsured()
	return nil
}

func (c *Client) markIndexEnsured() {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredIndex = true
}

func (c *Client) doRequest(ctx context.Context, method, url, contentType string, body []byte, out any, operation string) error {
	call := func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, method, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("keyword %s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return &httpStatusError{
				operation:  operation,
				statusCode: resp.StatusCode,
				status:     resp.Status,
				body:       strings.TrimSpace(string(msg)),
			}
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode %s response: %w", operation, err)
			}
		}
		return nil
	}

	if c.executor == nil {
		return call(ctx)
	}
	return wrapTemporaryIfNeeded(
		"keyword "+operation,
		c.executor.Execute(ctx, "opensearch."+operation, call, classifyKeywordError),
	)
}
