package ports

import (
	"context"
	"io"

	"github.com/hirewatch/screening-engine/internal/core/domain"
)

// Chunker turns a document into its ordered, deterministic chunk list.
type Chunker interface {
	Chunk(doc *domain.Document) ([]domain.Chunk, error)
}

// Embedder builds fixed-dimension vectors for chunk and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorRecord is the persisted state for one chunk in the vector index:
// deterministic chunk id, its vector and the bounded metadata payload.
type VectorRecord struct {
	ChunkID      string
	DocumentID   string
	DocumentType domain.DocumentType
	ChunkType    domain.ChunkType
	Section      string
	Preview      string
	Vector       []float32
}

// VectorQuery selects nearest neighbours by cosine similarity with optional
// metadata filtering. Scores come back in [-1,1]; the core clamps them.
type VectorQuery struct {
	Vector            []float32
	TopK              int
	DocumentType      domain.DocumentType
	ExcludeDocumentID string
}

// VectorIndex is the external nearest-neighbour store.
type VectorIndex interface {
	Upsert(ctx context.Context, records []VectorRecord) error
	Query(ctx context.Context, query VectorQuery) ([]domain.ChannelHit, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// KeywordQuery runs a lexical relevance search. Scores are unbounded
// BM25-family values; normalization is owned by the core.
type KeywordQuery struct {
	Text              string
	TopK              int
	DocumentType      domain.DocumentType
	ExcludeDocumentID string
}

// KeywordIndex is the external lexical ranking store.
type KeywordIndex interface {
	Index(ctx context.Context, chunks []domain.Chunk) error
	Search(ctx context.Context, query KeywordQuery) ([]domain.ChannelHit, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// DocumentRepository persists and reads document metadata and fields.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByType(ctx context.Context, docType domain.DocumentType, limit int) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	Delete(ctx context.Context, id string) error
}

// ObjectStorage stores uploaded source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes index requests.
type MessageQueue interface {
	PublishIndexRequested(ctx context.Context, documentID string) error
	SubscribeIndexRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// ExplanationGenerator turns a verdict and its evidence into a free-text
// rationale. The engine never blocks on it and tolerates its failure.
type ExplanationGenerator interface {
	ExplainVerdict(ctx context.Context, verdict domain.SuspicionVerdict) (string, error)
}
