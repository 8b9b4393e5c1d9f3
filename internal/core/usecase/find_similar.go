package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hirewatch/screening-engine/internal/core/domain"
	"github.com/hirewatch/screening-engine/internal/core/ports"
)

// FindSimilarOptions tune the caller-facing similarity service.
type FindSimilarOptions struct {
	TopKPerChannel         int
	DegradedModeEnabled    bool
	DegradedCandidateLimit int
	ExplanationTimeout     time.Duration
	Observer               SearchObserver
}

// FindSimilarUseCase is the caller-facing contract: chunk the query document
// (or ad-hoc text), run the hybrid search, aggregate, classify, and hand the
// evidence to the explanation collaborator without ever blocking on it.
type FindSimilarUseCase struct {
	repo       ports.DocumentRepository
	chunker    ports.Chunker
	search     *HybridSearchUseCase
	aggregator *Aggregator
	classifier *Classifier
	explainer  ports.ExplanationGenerator

	topKPerChannel         int
	degradedEnabled        bool
	degradedCandidateLimit int
	explanationTimeout     time.Duration
	observer               SearchObserver
}

func NewFindSimilarUseCase(
	repo ports.DocumentRepository,
	chunker ports.Chunker,
	search *HybridSearchUseCase,
	aggregator *Aggregator,
	classifier *Classifier,
	explainer ports.ExplanationGenerator,
	opts FindSimilarOptions,
) *FindSimilarUseCase {
	topK := opts.TopKPerChannel
	if topK <= 0 {
		topK = 10
	}
	candidateLimit := opts.DegradedCandidateLimit
	if candidateLimit <= 0 {
		candidateLimit = 200
	}
	explanationTimeout := opts.ExplanationTimeout
	if explanationTimeout <= 0 {
		explanationTimeout = 30 * time.Second
	}
	observer := opts.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	return &FindSimilarUseCase{
		repo:                   repo,
		chunker:                chunker,
		search:                 search,
		aggregator:             aggregator,
		classifier:             classifier,
		explainer:              explainer,
		topKPerChannel:         topK,
		degradedEnabled:        opts.DegradedModeEnabled,
		degradedCandidateLimit: candidateLimit,
		explanationTimeout:     explanationTimeout,
		observer:               observer,
	}
}

// FindSimilarByDocument answers "how likely is this document plagiarized"
// for a persisted document. The document itself is always excluded from its
// own candidate set.
func (uc *FindSimilarUseCase) FindSimilarByDocument(ctx context.Context, documentID string, limit int) (*domain.SuspicionVerdict, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch query document: %w", err)
	}

	chunks, err := uc.chunker.Chunk(doc)
	if err != nil {
		return nil, err
	}

	aggregated, degraded, err := uc.searchAndAggregate(ctx, chunks, doc.Type, doc.ID, candidateText(*doc), limit)
	if err != nil {
		return nil, err
	}

	verdict, err := uc.classifier.Classify(aggregated)
	if err != nil {
		return nil, err
	}
	if degraded {
		verdict.Mode = domain.ModeDegradedJaccard
	}
	uc.observer.ObserveVerdict(verdict.Level, verdict.Mode)

	uc.explainAsync(ctx, documentID, *verdict)
	return verdict, nil
}

// FindSimilarByText runs an ad-hoc similarity search for text that has no
// persisted document behind it. It returns the aggregated matches without a
// verdict.
func (uc *FindSimilarUseCase) FindSimilarByText(ctx context.Context, text string, docType domain.DocumentType, limit int) ([]domain.AggregatedSimilarity, error) {
	if !docType.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ad-hoc search", fmt.Errorf("unknown document type %q", docType))
	}

	query := &domain.Document{
		ID:            "adhoc_" + uuid.NewString(),
		Type:          docType,
		ExtractedText: text,
	}
	chunks, err := uc.chunker.Chunk(query)
	if err != nil {
		return nil, err
	}

	aggregated, _, err := uc.searchAndAggregate(ctx, chunks, docType, query.ID, text, limit)
	if err != nil {
		return nil, err
	}
	return aggregated, nil
}

func (uc *FindSimilarUseCase) searchAndAggregate(
	ctx context.Context,
	chunks []domain.Chunk,
	docType domain.DocumentType,
	selfDocumentID string,
	queryText string,
	limit int,
) ([]domain.AggregatedSimilarity, bool, error) {
	matches, stats, err := uc.search.Search(ctx, chunks, uc.topKPerChannel, docType, selfDocumentID)
	if err != nil {
		return nil, false, err
	}

	if stats.AllChannelsFailed() && uc.degradedEnabled {
		aggregated, err := uc.degradedSearch(ctx, queryText, docType, selfDocumentID)
		if err != nil {
			return nil, false, err
		}
		return trimAggregated(aggregated, limit), true, nil
	}

	return trimAggregated(uc.aggregator.Aggregate(matches), limit), false, nil
}

// degradedSearch is the explicitly labeled fallback when both channels are
// down for the whole query: word-set Jaccard over repository candidates.
func (uc *FindSimilarUseCase) degradedSearch(
	ctx context.Context,
	queryText string,
	docType domain.DocumentType,
	selfDocumentID string,
) ([]domain.AggregatedSimilarity, error) {
	slog.Warn("hybrid_search_degraded",
		"document_id", selfDocumentID,
		"mode", domain.ModeDegradedJaccard,
	)
	candidates, err := uc.repo.ListByType(ctx, docType, uc.degradedCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("list degraded-mode candidates: %w", err)
	}
	return degradedAggregate(queryText, candidates, selfDocumentID, uc.search.policy), nil
}

// explainAsync hands the verdict evidence to the explanation collaborator.
// Fire-and-forget: the caller's result never depends on this call.
func (uc *FindSimilarUseCase) explainAsync(ctx context.Context, documentID string, verdict domain.SuspicionVerdict) {
	if uc.explainer == nil {
		return
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		explainCtx, cancel := context.WithTimeout(detached, uc.explanationTimeout)
		defer cancel()
		if _, err := uc.explainer.ExplainVerdict(explainCtx, verdict); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("verdict_explanation_failed", "document_id", documentID, "error", err)
		}
	}()
}

func trimAggregated(aggregated []domain.AggregatedSimilarity, limit int) []domain.AggregatedSimilarity {
	if limit <= 0 || len(aggregated) <= limit {
		return aggregated
	}
	return aggregated[:limit]
}
