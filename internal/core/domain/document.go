package domain

import (
	"fmt"
	"time"
)

type DocumentType string

const (
	TypeResume      DocumentType = "resume"
	TypeCoverLetter DocumentType = "cover_letter"
	TypePortfolio   DocumentType = "portfolio"
)

func (t DocumentType) Valid() bool {
	switch t {
	case TypeResume, TypeCoverLetter, TypePortfolio:
		return true
	}
	return false
}

type DocumentStatus string

const (
	StatusUploaded DocumentStatus = "uploaded"
	StatusIndexing DocumentStatus = "indexing"
	StatusIndexed  DocumentStatus = "indexed"
	StatusFailed   DocumentStatus = "failed"
)

// Cover-letter semantic fields that carry their own minimum-evidence thresholds.
const (
	FieldGrowthBackground = "growthBackground"
	FieldMotivation       = "motivation"
	FieldCareerHistory    = "careerHistory"
)

const (
	FieldSummary = "summary"
	FieldName    = "name"
)

// Multi-valued field names.
const (
	ListFieldKeywords = "keywords"
	ListFieldEmails   = "emails"
	ListFieldPhones   = "phones"
)

type PortfolioItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ItemType    string `json:"item_type,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Document is immutable from the engine's perspective once ingested;
// re-chunking happens only on an explicit reindex request.
type Document struct {
	ID             string              `json:"id"`
	Type           DocumentType        `json:"type"`
	ApplicantID    string              `json:"applicant_id"`
	Fields         map[string]string   `json:"fields,omitempty"`
	ListFields     map[string][]string `json:"list_fields,omitempty"`
	PortfolioItems []PortfolioItem     `json:"portfolio_items,omitempty"`
	ExtractedText  string              `json:"extracted_text,omitempty"`
	StoragePath    string              `json:"storage_path,omitempty"`
	Status         DocumentStatus      `json:"status"`
	Error          string              `json:"error,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func (d *Document) Field(name string) string {
	if d.Fields == nil {
		return ""
	}
	return d.Fields[name]
}

func (d *Document) ListField(name string) []string {
	if d.ListFields == nil {
		return nil
	}
	return d.ListFields[name]
}

type ChunkType string

const (
	ChunkSummary          ChunkType = "summary"
	ChunkKeywords         ChunkType = "keywords"
	ChunkExtractedText    ChunkType = "extracted_text"
	ChunkBasicInfo        ChunkType = "basic_info"
	ChunkGrowthBackground ChunkType = "growth_background"
	ChunkMotivation       ChunkType = "motivation"
	ChunkCareerHistory    ChunkType = "career_history"
	ChunkPortfolioItem    ChunkType = "portfolio_item"
)

// ChunkMeta carries the structured attributes every consumer depends on,
// with an open side map for type-specific extras (portfolio item type, url).
type ChunkMeta struct {
	Section     string            `json:"section,omitempty"`
	SourceField string            `json:"source_field,omitempty"`
	Ordinal     int               `json:"ordinal"`
	StartOffset int               `json:"start_offset"`
	EndOffset   int               `json:"end_offset"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Chunk is the atomic comparable unit. Its ID is deterministic for a given
// document and chunking configuration, which makes reindexing idempotent.
type Chunk struct {
	ID           string       `json:"id"`
	DocumentID   string       `json:"document_id"`
	DocumentType DocumentType `json:"document_type"`
	Type         ChunkType    `json:"type"`
	Text         string       `json:"text"`
	Meta         ChunkMeta    `json:"meta"`
}

// ChunkID builds the stable chunk identifier. Index zero means the chunk type
// occurs at most once for the document and carries no ordinal suffix.
func ChunkID(documentID string, chunkType ChunkType, index int) string {
	if index <= 0 {
		return fmt.Sprintf("%s_%s", documentID, chunkType)
	}
	return fmt.Sprintf("%s_%s_%d", documentID, chunkType, index)
}

// PreviewLimit bounds the chunk text stored as index metadata.
const PreviewLimit = 100

// Preview returns the truncated text stored in index payloads in place of the
// full chunk text.
func (c Chunk) Preview() string {
	runes := []rune(c.Text)
	if len(runes) <= PreviewLimit {
		return c.Text
	}
	return string(runes[:PreviewLimit])
}
