package qdrant

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

	"github.com/google/uuid"

	"github.com/hirewatch/screening-engine/internal/core/domain"
	"github.com/hirewatch/screening-engine/internal/core/ports"
	"github.com/hirewatch/screening-engine/internal/infrastructure/resilience"
)

// pointNamespace seeds deterministic UUIDv5 point ids from chunk ids, so
// reindexing a document overwrites its old points instead of duplicating.
var pointNamespace = uuid.MustParse("7f9a2d44-31c8-4bba-9d6f-5f4be2a61f05")

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// NewWithExecutor layers retry and circuit breaking over every call.
func NewWithExecutor(baseURL, collection string, executor *resilience.Executor) *Client {
	client := New(baseURL, collection)
	client.executor = executor
	return client
}

func pointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func (c *Client) Upsert(ctx context.Context, records []ports.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := c.ensureCollection(ctx, len(records[0].Vector)); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(records))
	for _, record := range records {
		points = append(points, point{
			ID:     pointID(record.ChunkID),
			Vector: record.Vector,
			Payload: map[string]any{
				"chunk_id":      record.ChunkID,
				"document_id":   record.DocumentID,
				"document_type": string(record.DocumentType),
				"chunk_type":    string(record.ChunkType),
				"section":       record.Section,
				"preview":       record.Preview,
			},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	return c.do(ctx, http.MethodPut, url, map[string]any{"points": points}, nil, "upsert")
}

func (c *Client) Query(ctx context.Context, query ports.VectorQuery) ([]domain.ChannelHit, error) {
	reqBody := map[string]any{
		"vector":       query.Vector,
		"limit":        query.TopK,
		"with_payload": true,
	}

	var must []map[string]any
	if query.DocumentType != "" {
		must = append(must, map[string]any{
			"key":   "document_type",
			"match": map[string]any{"value": string(query.DocumentType)},
		})
	}
	filter := map[string]any{}
	if len(must) > 0 {
		filter["must"] = must
	}
	if query.ExcludeDocumentID != "" {
		filter["must_not"] = []map[string]any{
			{
				"key":   "document_id",
				"match": map[string]any{"value": query.ExcludeDocumentID},
			},
		}
	}
	if len(filter) > 0 {
		reqBody["filter"] = filter
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPost, url, reqBody, &searchResp, "search"); err != nil {
		return nil, err
	}

	out := make([]domain.ChannelHit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.ChannelHit{
			ChunkID:      getStringPayload(r.Payload, "chunk_id"),
			DocumentID:   getStringPayload(r.Payload, "document_id"),
			DocumentType: domain.DocumentType(getStringPayload(r.Payload, "document_type")),
			ChunkType:    domain.ChunkType(getStringPayload(r.Payload, "chunk_type")),
			Preview:      getStringPayload(r.Payload, "preview"),
			Score:        r.Score,
		})
	}
	return out, nil
}

// DeleteByDocument removes every point owned by the document. Chunks are
// exclusively owned, so this is the cascade side of document deletion.
func (c *Client) DeleteByDocument(ctx context.Context, documentID string) error {
	reqBody := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key":   "document_id",
					"match": map[string]any{"value": documentID},
				},
			},
		},
	}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, c.collection)
	return c.do(ctx, http.MethodPost, url, reqBody, nil, "delete")
}

func (c *Client) do(ctx context.Context, method, url string, reqBody any, out any, operation string) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	call := func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, method, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant %s request: %w", operation, err)
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
		"qdrant "+operation,
		c.executor.Execute(ctx, "qdrant."+operation, call, classifyQdrantError),
	)
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	err := c.do(ctx, http.MethodPut, url, reqBody, nil, "ensure collection")

	// 200/201 for create, 409 if already exists (depends on version/config).
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.statusCode == http.StatusConflict {
		err = nil
	}
	if err != nil {
		return err
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
