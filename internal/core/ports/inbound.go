package ports

import (
	"context"
	"io"

	"github.com/hirewatch/screening-engine/internal/core/domain"
)

// UploadMeta carries the caller-supplied attributes of a new document.
type UploadMeta struct {
	Type           domain.DocumentType
	ApplicantID    string
	Filename       string
	MimeType       string
	Fields         map[string]string
	ListFields     map[string][]string
	PortfolioItems []domain.PortfolioItem
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, meta UploadMeta, body io.Reader) (*domain.Document, error)
}

// DocumentIndexer runs the ingestion-time pipeline: chunk, embed, store in
// both indexes. Reindexing is idempotent (delete-by-document then insert).
type DocumentIndexer interface {
	IndexByID(ctx context.Context, documentID string) error
	Reindex(ctx context.Context, documentID string) error
	DeleteDocument(ctx context.Context, documentID string) error
}

// SimilaritySearcher is the caller-facing similarity contract.
type SimilaritySearcher interface {
	FindSimilarByDocument(ctx context.Context, documentID string, limit int) (*domain.SuspicionVerdict, error)
	FindSimilarByText(ctx context.Context, text string, docType domain.DocumentType, limit int) ([]domain.AggregatedSimilarity, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}
