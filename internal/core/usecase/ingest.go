package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hirewatch/screening-engine/internal/core/domain"
	"github.com/hirewatch/screening-engine/internal/core/ports"
)

// IngestDocumentUseCase is thin orchestration glue around the engine: store
// the original, extract its text, persist metadata and request indexing.
type IngestDocumentUseCase struct {
	repo      ports.DocumentRepository
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	queue     ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		queue:     queue,
	}
}

func (uc *IngestDocumentUseCase) Upload(ctx context.Context, meta ports.UploadMeta, body io.Reader) (*domain.Document, error) {
	if !meta.Type.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("unknown document type %q", meta.Type))
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	doc := &domain.Document{
		ID:             id,
		Type:           meta.Type,
		ApplicantID:    meta.ApplicantID,
		Fields:         meta.Fields,
		ListFields:     meta.ListFields,
		PortfolioItems: meta.PortfolioItems,
		Status:         domain.StatusUploaded,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if body != nil && meta.Filename != "" {
		storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(meta.Filename))
		if err := uc.storage.Save(ctx, storageKey, body); err != nil {
			return nil, fmt.Errorf("save to object storage: %w", err)
		}
		doc.StoragePath = storageKey

		text, err := uc.extractor.Extract(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("extract text: %w", err)
		}
		doc.ExtractedText = text
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishIndexRequested(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish index request: %w", err)
	}
	return doc, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	// filepath.Base("") and Base("x/") degenerate to "." — treat as absent.
	if base == "." || base == string(filepath.Separator) {
		return "document.bin"
	}
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
