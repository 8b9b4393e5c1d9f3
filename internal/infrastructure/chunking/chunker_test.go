package chunking

import (
	"strings"
	"testing"

	"github.com/hirewatch/screening-engine/internal/core/domain"
)

func TestChunkIsDeterministic(t *testing.T) {
	chunker := New()
	doc := &domain.Document{
		ID:   "doc_1",
		Type: domain.TypeResume,
		Fields: map[string]string{
			domain.FieldSummary: "Senior backend engineer",
			domain.FieldName:    "Jane Doe",
		},
		ListFields: map[string][]string{
			domain.ListFieldKeywords: {"go", "postgres", "nats"},
		},
		ExtractedText: strings.Repeat("Go services at scale. ", 120),
	}

	first, err := chunker.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	second, err := chunker.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() second error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Text != second[i].Text {
			t.Fatalf("chunk %d differs between runs: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}

func TestChunkIDsFollowNamingScheme(t *testing.T) {
	chunker := New()
	doc := &domain.Document{
		ID:   "doc_2",
		Type: domain.TypeResume,
		Fields: map[string]string{
			domain.FieldSummary: "Engineer",
		},
		ListFields: map[string][]string{
			domain.ListFieldKeywords: {"go"},
		},
		ExtractedText: strings.Repeat("x", 1500),
	}

	chunks, err := chunker.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}

	ids := make(map[string]bool, len(chunks))
	for _, chunk := range chunks {
		if ids[chunk.ID] {
			t.Fatalf("duplicate chunk id %q", chunk.ID)
		}
		ids[chunk.ID] = true
	}
	if !ids["doc_2_summary"] {
		t.Fatalf("missing doc_2_summary, got %v", keys(ids))
	}
	if !ids["doc_2_keywords"] {
		t.Fatalf("missing doc_2_keywords")
	}
	if !ids["doc_2_extracted_text_1"] || !ids["doc_2_extracted_text_2"] {
		t.Fatalf("missing windowed extracted_text ids, got %v", keys(ids))
	}
}

func TestResumeWindowGeometry(t *testing.T) {
	chunker := New()
	// 2000 runes with size 1000 / overlap 100: starts advance by 900,
	// so windows cover [0,1000), [900,1900) and the trailing [1800,2000).
	doc := &domain.Document{
		ID:            "doc_3",
		Type:          domain.TypeResume,
		ExtractedText: strings.Repeat("a", 2000),
	}

	chunks, err := chunker.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3 (2 full windows + trailing partial)", len(chunks))
	}
	if chunks[0].Meta.StartOffset != 0 || chunks[0].Meta.EndOffset != 1000 {
		t.Fatalf("window 1 offsets = [%d,%d)", chunks[0].Meta.StartOffset, chunks[0].Meta.EndOffset)
	}
	if chunks[1].Meta.StartOffset != 900 || chunks[1].Meta.EndOffset != 1900 {
		t.Fatalf("window 2 offsets = [%d,%d)", chunks[1].Meta.StartOffset, chunks[1].Meta.EndOffset)
	}
	if chunks[2].Meta.StartOffset != 1800 || chunks[2].Meta.EndOffset != 2000 {
		t.Fatalf("trailing window offsets = [%d,%d)", chunks[2].Meta.StartOffset, chunks[2].Meta.EndOffset)
	}
}

func TestWindowOffsetsDescribeStoredText(t *testing.T) {
	chunker := New()
	// Whitespace at the window edges: [0-1] spaces, [2-997] b, [998-999]
	// spaces, [1000-1499] c. 1500 runes total.
	text := "  " + strings.Repeat("b", 996) + "  " + strings.Repeat("c", 500)
	doc := &domain.Document{
		ID:            "doc_offsets",
		Type:          domain.TypeResume,
		ExtractedText: text,
	}

	chunks, err := chunker.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}

	runes := []rune(text)
	for _, chunk := range chunks {
		got := string(runes[chunk.Meta.StartOffset:chunk.Meta.EndOffset])
		if got != chunk.Text {
			t.Fatalf("chunk %s: text at [%d,%d) does not match stored text", chunk.ID, chunk.Meta.StartOffset, chunk.Meta.EndOffset)
		}
	}
	if chunks[0].Meta.StartOffset != 2 || chunks[0].Meta.EndOffset != 998 {
		t.Fatalf("window 1 offsets = [%d,%d), want trimmed [2,998)", chunks[0].Meta.StartOffset, chunks[0].Meta.EndOffset)
	}
}

func TestCoverLetterEmitsFieldChunksInFixedOrder(t *testing.T) {
	chunker := New()
	doc := &domain.Document{
		ID:   "doc_4",
		Type: domain.TypeCoverLetter,
		Fields: map[string]string{
			domain.FieldMotivation:       "I want to work on search infrastructure.",
			domain.FieldCareerHistory:    "Five years building data pipelines.",
			domain.FieldGrowthBackground: "Started as a sysadmin.",
		},
	}

	chunks, err := chunker.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}

	var fieldTypes []domain.ChunkType
	for _, chunk := range chunks {
		switch chunk.Type {
		case domain.ChunkGrowthBackground, domain.ChunkMotivation, domain.ChunkCareerHistory:
			fieldTypes = append(fieldTypes, chunk.Type)
		}
	}
	want := []domain.ChunkType{domain.ChunkGrowthBackground, domain.ChunkMotivation, domain.ChunkCareerHistory}
	if len(fieldTypes) != len(want) {
		t.Fatalf("field chunk types = %v, want %v", fieldTypes, want)
	}
	for i := range want {
		if fieldTypes[i] != want[i] {
			t.Fatalf("field chunk order = %v, want %v", fieldTypes, want)
		}
	}
}

func TestPortfolioItemsGetOneBasedOrdinals(t *testing.T) {
	chunker := New()
	doc := &domain.Document{
		ID:   "doc_5",
		Type: domain.TypePortfolio,
		PortfolioItems: []domain.PortfolioItem{
			{Title: "Search engine", Description: "BM25 over job listings", URL: "https://example.com/a"},
			{Title: "Chat bot", Description: "NATS-backed worker"},
		},
	}

	chunks, err := chunker.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if chunks[0].ID != "doc_5_portfolio_item_1" || chunks[1].ID != "doc_5_portfolio_item_2" {
		t.Fatalf("portfolio ids = %q, %q", chunks[0].ID, chunks[1].ID)
	}
	if chunks[0].Meta.Extra["url"] != "https://example.com/a" {
		t.Fatalf("portfolio extra = %v", chunks[0].Meta.Extra)
	}
}

func TestChunkFailsWhenNothingIsChunkable(t *testing.T) {
	chunker := New()
	doc := &domain.Document{
		ID:            "doc_6",
		Type:          domain.TypeResume,
		ExtractedText: "   \n\t ",
	}

	_, err := chunker.Chunk(doc)
	if err == nil {
		t.Fatalf("expected error for empty document")
	}
	if !domain.IsKind(err, domain.ErrNoChunkableText) {
		t.Fatalf("expected ErrNoChunkableText, got %v", err)
	}
}

func TestSummaryFallsBackToIdentitySynthesis(t *testing.T) {
	chunker := New()
	doc := &domain.Document{
		ID:          "doc_7",
		Type:        domain.TypeResume,
		ApplicantID: "app_7",
		Fields: map[string]string{
			domain.FieldName: "Jane Doe",
		},
	}

	chunks, err := chunker.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if chunks[0].Type != domain.ChunkSummary {
		t.Fatalf("first chunk type = %q, want summary", chunks[0].Type)
	}
	if !strings.Contains(chunks[0].Text, "Jane Doe") || !strings.Contains(chunks[0].Text, "app_7") {
		t.Fatalf("synthesized summary = %q", chunks[0].Text)
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
