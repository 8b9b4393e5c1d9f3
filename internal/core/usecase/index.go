package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hirewatch/screening-engine/internal/core/domain"
	"github.com/hirewatch/screening-engine/internal/core/ports"
)

// IndexDocumentUseCase runs the ingestion-time pipeline: chunk the document,
// embed the chunks, and store them in both external indexes. Chunk ids are
// deterministic, so delete-by-document followed by insert is always a
// correct reindex.
type IndexDocumentUseCase struct {
	repo     ports.DocumentRepository
	chunker  ports.Chunker
	embedder ports.Embedder
	vector   ports.VectorIndex
	keyword  ports.KeywordIndex
}

func NewIndexDocumentUseCase(
	repo ports.DocumentRepository,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vector ports.VectorIndex,
	keyword ports.KeywordIndex,
) *IndexDocumentUseCase {
	return &IndexDocumentUseCase{
		repo:     repo,
		chunker:  chunker,
		embedder: embedder,
		vector:   vector,
		keyword:  keyword,
	}
}

func (uc *IndexDocumentUseCase) IndexByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusIndexing, ""); err != nil {
		return fmt.Errorf("set status=indexing: %w", err)
	}

	if err := uc.indexPipeline(ctx, documentID); err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusIndexed, ""); err != nil {
		return fmt.Errorf("set status=indexed: %w", err)
	}
	return nil
}

// Reindex makes the index state identical to indexing the document once:
// delete everything owned by the document in both indexes, then insert.
func (uc *IndexDocumentUseCase) Reindex(ctx context.Context, documentID string) error {
	if err := uc.deleteFromIndexes(ctx, documentID); err != nil {
		return err
	}
	return uc.IndexByID(ctx, documentID)
}

// DeleteDocument cascades: chunks are exclusively owned by their document,
// so deleting it removes them from both indexes before the metadata row.
func (uc *IndexDocumentUseCase) DeleteDocument(ctx context.Context, documentID string) error {
	if err := uc.deleteFromIndexes(ctx, documentID); err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document metadata: %w", err)
	}
	return nil
}

func (uc *IndexDocumentUseCase) indexPipeline(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	chunks, err := uc.chunker.Chunk(doc)
	if err != nil {
		return err
	}

	records := uc.embedChunks(ctx, chunks)
	if len(records) > 0 {
		if err := uc.vector.Upsert(ctx, records); err != nil {
			return fmt.Errorf("upsert vector index: %w", err)
		}
	}

	if err := uc.keyword.Index(ctx, chunks); err != nil {
		return fmt.Errorf("index keyword store: %w", err)
	}
	return nil
}

// embedChunks embeds the whole batch, falling back to per-chunk embedding
// when the batch call fails. A chunk whose embedding fails is excluded from
// the vector channel only; it still reaches the keyword index.
func (uc *IndexDocumentUseCase) embedChunks(ctx context.Context, chunks []domain.Chunk) []ports.VectorRecord {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil || len(vectors) != len(chunks) {
		if err != nil {
			slog.Warn("batch_embedding_failed", "chunks", len(chunks), "error", err)
		} else {
			slog.Warn("batch_embedding_mismatch", "chunks", len(chunks), "vectors", len(vectors))
		}
		return uc.embedChunksIndividually(ctx, chunks)
	}

	records := make([]ports.VectorRecord, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, vectorRecord(chunk, vectors[i]))
	}
	return records
}

func (uc *IndexDocumentUseCase) embedChunksIndividually(ctx context.Context, chunks []domain.Chunk) []ports.VectorRecord {
	records := make([]ports.VectorRecord, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := uc.embedder.EmbedQuery(ctx, chunk.Text)
		if err != nil {
			err = domain.WrapError(domain.ErrEmbedding, "embed chunk", err)
			slog.Warn("chunk_embedding_failed",
				"document_id", chunk.DocumentID,
				"chunk_id", chunk.ID,
				"error", err,
			)
			continue
		}
		records = append(records, vectorRecord(chunk, vector))
	}
	return records
}

func vectorRecord(chunk domain.Chunk, vector []float32) ports.VectorRecord {
	return ports.VectorRecord{
		ChunkID:      chunk.ID,
		DocumentID:   chunk.DocumentID,
		DocumentType: chunk.DocumentType,
		ChunkType:    chunk.Type,
		Section:      chunk.Meta.Section,
		Preview:      chunk.Preview(),
		Vector:       vector,
	}
}

func (uc *IndexDocumentUseCase) deleteFromIndexes(ctx context.Context, documentID string) error {
	if err := uc.vector.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document chunks from vector index: %w", err)
	}
	if err := uc.keyword.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document chunks from keyword index: %w", err)
	}
	return nil
}
