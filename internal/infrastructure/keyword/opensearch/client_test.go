package opensearch

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hirewatch/screening-engine/internal/core/domain"
	"github.com/hirewatch/screening-engine/internal/core/ports"
	"github.com/hirewatch/screening-engine/internal/infrastructure/resilience"
)

func sampleChunks() []domain.Chunk {
	return []domain.Chunk{
		{
			ID:           "doc-1_summary",
			DocumentID:   "doc-1",
			DocumentType: domain.TypeResume,
			Type:         domain.ChunkSummary,
			Text:         "Senior backend engineer with eight years of Go experience.",
			Meta:         domain.ChunkMeta{Section: "summary"},
		},
		{
			ID:           "doc-1_extracted_text_1",
			DocumentID:   "doc-1",
			DocumentType: domain.TypeResume,
			Type:         domain.ChunkExtractedText,
			Text:         "Built distributed indexing pipelines.",
		},
	}
}

func TestIndexSendsBulkNDJSON(t *testing.T) {
	var ensureCalls int32
	var bulkLines []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/chunks":
			atomic.AddInt32(&ensureCalls, 1)
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		case r.Method == http.MethodPost && r.URL.Path == "/_bulk":
			if got := r.Header.Get("Content-Type"); got != "application/x-ndjson" {
				t.Errorf("bulk content type = %q", got)
			}
			scanner := bufio.NewScanner(r.Body)
			for scanner.Scan() {
				if line := strings.TrimSpace(scanner.Text()); line != "" {
					bulkLines = append(bulkLines, line)
				}
			}
			_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	if err := client.Index(context.Background(), sampleChunks()); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if err := client.Index(context.Background(), sampleChunks()); err != nil {
		t.Fatalf("second Index() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure index called once, got %d", got)
	}

	// Two calls of two chunks each, one action line plus one doc line per chunk.
	if len(bulkLines) != 8 {
		t.Fatalf("expected 8 NDJSON lines, got %d", len(bulkLines))
	}

	var action struct {
		Index struct {
			Index string `json:"_index"`
			ID    string `json:"_id"`
		} `json:"index"`
	}
	if err := json.Unmarshal([]byte(bulkLines[0]), &action); err != nil {
		t.Fatalf("decode action line: %v", err)
	}
	if action.Index.Index != "chunks" || action.Index.ID != "doc-1_summary" {
		t.Fatalf("unexpected action line: %+v", action)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(bulkLines[1]), &doc); err != nil {
		t.Fatalf("decode doc line: %v", err)
	}
	if doc["document_type"] != "resume" || doc["section"] != "summary" {
		t.Fatalf("unexpected doc line: %v", doc)
	}
	if doc["text"] == "" {
		t.Fatalf("expected analyzed text in doc line")
	}
}

func TestIndexFailsWhenBulkReportsItemErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"errors":true,"items":[{"index":{"status":400}}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	if err := client.Index(context.Background(), sampleChunks()); err == nil {
		t.Fatalf("expected error when bulk response reports item errors")
	}
}

func TestSearchSendsBoolQueryAndDecodesScores(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chunks/_search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode search body: %v", err)
		}
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_score":7.3,"_source":{"chunk_id":"doc-2_summary","document_id":"doc-2","document_type":"resume","chunk_type":"summary","preview":"Engineer"}},
			{"_score":2.1,"_source":{"chunk_id":"doc-3_extracted_text_1","document_id":"doc-3","document_type":"resume","chunk_type":"extracted_text","preview":"Pipelines"}}
		]}}`))
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	hits, err := client.Search(context.Background(), ports.KeywordQuery{
		Text:              "distributed indexing",
		TopK:              10,
		DocumentType:      domain.TypeResume,
		ExcludeDocumentID: "doc-1",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	raw, err := json.Marshal(captured)
	if err != nil {
		t.Fatalf("re-marshal body: %v", err)
	}
	for _, want := range []string{`"match":{"text":"distributed indexing"}`, `"term":{"document_type":"resume"}`, `"term":{"document_id":"doc-1"}`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("search body missing %s: %s", want, raw)
		}
	}
	if captured["size"].(float64) != 10 {
		t.Fatalf("size = %v, want 10", captured["size"])
	}

	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ChunkID != "doc-2_summary" || hits[0].Score != 7.3 {
		t.Fatalf("unexpected first hit: %+v", hits[0])
	}
	if hits[1].ChunkType != domain.ChunkExtractedText {
		t.Fatalf("unexpected second hit chunk type: %v", hits[1].ChunkType)
	}
}

func TestSearchOmitsOptionalClauses(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode search body: %v", err)
		}
		_, _ = w.Write([]byte(`{"hits":{"hits":[]}}`))
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	if _, err := client.Search(context.Background(), ports.KeywordQuery{Text: "go", TopK: 5}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	raw, _ := json.Marshal(captured)
	if strings.Contains(string(raw), "filter") || strings.Contains(string(raw), "must_not") {
		t.Fatalf("expected no filter/must_not clauses, got %s", raw)
	}
}

func TestDeleteByDocumentUsesDeleteByQuery(t *testing.T) {
	var captured map[string]any
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode delete body: %v", err)
		}
		_, _ = w.Write([]byte(`{"deleted":4}`))
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	if err := client.DeleteByDocument(context.Background(), "doc-9"); err != nil {
		t.Fatalf("DeleteByDocument() error = %v", err)
	}
	if path != "/chunks/_delete_by_query" {
		t.Fatalf("path = %q", path)
	}
	raw, _ := json.Marshal(captured)
	if !strings.Contains(string(raw), `"document_id":"doc-9"`) {
		t.Fatalf("expected term on document id, got %s", raw)
	}
}

func TestEnsureIndexToleratesAlreadyExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"type":"resource_already_exists_exception"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"errors":false}`))
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	if err := client.Index(context.Background(), sampleChunks()); err != nil {
		t.Fatalf("Index() with existing index error = %v", err)
	}
}

func TestSearchIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "search_phase_execution_exception", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	_, err := client.Search(context.Background(), ports.KeywordQuery{Text: "go", TopK: 5})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "search_phase_execution_exception") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestExecutorRetriesRetryableSearchStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"hits":{"hits":[]}}`))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     1.0,
	})
	client := NewWithExecutor(server.URL, "chunks", executor)

	if _, err := client.Search(context.Background(), ports.KeywordQuery{Text: "go", TopK: 5}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestExecutorMarksExhaustedRetriesTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "still overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     1.0,
	})
	client := NewWithExecutor(server.URL, "chunks", executor)

	_, err := client.Search(context.Background(), ports.KeywordQuery{Text: "go", TopK: 5})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error kind, got %v", err)
	}
}

func TestIndexNoChunksIsNoOp(t *testing.T) {
	client := New("http://127.0.0.1:1", "chunks")
	if err := client.Index(context.Background(), nil); err != nil {
		t.Fatalf("Index(nil) error = %v", err)
	}
}
