package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hirewatch/screening-engine/internal/config"
	"github.com/hirewatch/screening-engine/internal/core/domain"
	"github.com/hirewatch/screening-engine/internal/core/ports"
)

// SearchObserver receives channel-level and verdict-level signals for
// observability. Implementations must be safe for concurrent use.
type SearchObserver interface {
	ObserveChannelCall(channel domain.Channel, duration time.Duration, outcome string)
	ObserveVerdict(level domain.SuspicionLevel, mode domain.SearchMode)
}

type noopObserver struct{}

func (noopObserver) ObserveChannelCall(domain.Channel, time.Duration, string) {}
func (noopObserver) ObserveVerdict(domain.SuspicionLevel, domain.SearchMode)  {}

const (
	outcomeOK      = "ok"
	outcomeTimeout = "timeout"
	outcomeError   = "error"
)

// SearchStats records per-channel call outcomes for one query so callers can
// detect a fully degraded search (every call on both channels failed).
type SearchStats struct {
	VectorCalls     int
	VectorFailures  int
	KeywordCalls    int
	KeywordFailures int
}

func (s SearchStats) AllChannelsFailed() bool {
	calls := s.VectorCalls + s.KeywordCalls
	failures := s.VectorFailures + s.KeywordFailures
	return calls > 0 && failures == calls
}

// SearchOptions tune the orchestrator; zero values fall back to defaults.
type SearchOptions struct {
	MaxConcurrentCalls int64
	ChannelTimeout     time.Duration
	Observer           SearchObserver
}

// HybridSearchUseCase runs the dual-channel search: for every query chunk,
// one vector call and one keyword call, issued concurrently and capped by a
// global limiter shared across all in-flight queries.
type HybridSearchUseCase struct {
	embedder ports.Embedder
	vector   ports.VectorIndex
	keyword  ports.KeywordIndex
	policy   config.ScoringPolicy

	limiter  *semaphore.Weighted
	timeout  time.Duration
	observer SearchObserver
}

func NewHybridSearchUseCase(
	embedder ports.Embedder,
	vector ports.VectorIndex,
	keyword ports.KeywordIndex,
	policy config.ScoringPolicy,
	opts SearchOptions,
) *HybridSearchUseCase {
	maxCalls := opts.MaxConcurrentCalls
	if maxCalls <= 0 {
		maxCalls = 16
	}
	timeout := opts.ChannelTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	observer := opts.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	return &HybridSearchUseCase{
		embedder: embedder,
		vector:   vector,
		keyword:  keyword,
		policy:   policy,
		limiter:  semaphore.NewWeighted(maxCalls),
		timeout:  timeout,
		observer: observer,
	}
}

// chunkChannelResult is written only by the goroutine owning its slot.
type chunkChannelResult struct {
	vector     []domain.ChannelHit
	vectorErr  error
	keyword    []domain.ChannelHit
	keywordErr error
}

// Search issues 2N concurrent channel calls for N query chunks. Per-chunk
// and per-channel failures degrade to "no candidates from this channel";
// caller cancellation aborts the whole call with ErrCancelled and no partial
// results, since partial fusion would bias the score distribution.
func (uc *HybridSearchUseCase) Search(
	ctx context.Context,
	queryChunks []domain.Chunk,
	topKPerChannel int,
	filter domain.DocumentType,
	selfDocumentID string,
) ([]domain.SimilarityMatch, SearchStats, error) {
	if len(queryChunks) == 0 {
		return nil, SearchStats{}, nil
	}
	if topKPerChannel <= 0 {
		topKPerChannel = 10
	}

	results := make([]chunkChannelResult, len(queryChunks))
	g, gctx := errgroup.WithContext(ctx)

	for i := range queryChunks {
		slot := &results[i]
		chunk := queryChunks[i]

		g.Go(func() error {
			if err := uc.limiter.Acquire(gctx, 1); err != nil {
				return err
			}
			defer uc.limiter.Release(1)
			slot.vector, slot.vectorErr = uc.vectorChannel(gctx, chunk, topKPerChannel, filter, selfDocumentID)
			return nil
		})
		g.Go(func() error {
			if err := uc.limiter.Acquire(gctx, 1); err != nil {
				return err
			}
			defer uc.limiter.Release(1)
			slot.keyword, slot.keywordErr = uc.keywordChannel(gctx, chunk, topKPerChannel, filter, selfDocumentID)
			return nil
		})
	}

	waitErr := g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, SearchStats{}, domain.WrapError(domain.ErrCancelled, "hybrid search", err)
	}
	if waitErr != nil {
		return nil, SearchStats{}, domain.WrapError(domain.ErrCancelled, "hybrid search", waitErr)
	}

	stats := SearchStats{}
	matches := make([]domain.SimilarityMatch, 0, len(queryChunks)*topKPerChannel)
	for i := range queryChunks {
		slot := &results[i]
		stats.VectorCalls++
		stats.KeywordCalls++
		if slot.vectorErr != nil {
			stats.VectorFailures++
		}
		if slot.keywordErr != nil {
			stats.KeywordFailures++
		}
		matches = append(matches, fuseChunkMatches(queryChunks[i], channelHits{
			vector:  slot.vector,
			keyword: slot.keyword,
		}, uc.policy, selfDocumentID)...)
	}

	// Final deterministic ordering regardless of completion order.
	sortMatches(matches)
	return matches, stats, nil
}

func (uc *HybridSearchUseCase) vectorChannel(
	ctx context.Context,
	chunk domain.Chunk,
	topK int,
	filter domain.DocumentType,
	selfDocumentID string,
) ([]domain.ChannelHit, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	start := time.Now()

	vector, err := uc.embedder.EmbedQuery(callCtx, chunk.Text)
	if err != nil {
		err = uc.degradeChannel(ctx, domain.ChannelVector, chunk, start, domain.WrapError(domain.ErrEmbedding, "embed query chunk", err))
		return nil, err
	}

	hits, err := uc.vector.Query(callCtx, ports.VectorQuery{
		Vector:            vector,
		TopK:              topK,
		DocumentType:      filter,
		ExcludeDocumentID: selfDocumentID,
	})
	if err != nil {
		return nil, uc.degradeChannel(ctx, domain.ChannelVector, chunk, start, err)
	}
	uc.observer.ObserveChannelCall(domain.ChannelVector, time.Since(start), outcomeOK)
	return hits, nil
}

func (uc *HybridSearchUseCase) keywordChannel(
	ctx context.Context,
	chunk domain.Chunk,
	topK int,
	filter domain.DocumentType,
	selfDocumentID string,
) ([]domain.ChannelHit, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	start := time.Now()

	hits, err := uc.keyword.Search(callCtx, ports.KeywordQuery{
		Text:              chunk.Text,
		TopK:              topK,
		DocumentType:      filter,
		ExcludeDocumentID: selfDocumentID,
	})
	if err != nil {
		return nil, uc.degradeChannel(ctx, domain.ChannelKeyword, chunk, start, err)
	}
	uc.observer.ObserveChannelCall(domain.ChannelKeyword, time.Since(start), outcomeOK)
	return hits, nil
}

// degradeChannel absorbs a per-channel failure: the channel contributes no
// candidates for this chunk, the query as a whole continues. The error is
// logged with enough context to diagnose systematically degraded quality.
func (uc *HybridSearchUseCase) degradeChannel(
	parent context.Context,
	channel domain.Channel,
	chunk domain.Chunk,
	start time.Time,
	err error,
) error {
	// Parent cancellation is not degradation; Search reports ErrCancelled.
	if parent.Err() != nil {
		return parent.Err()
	}

	outcome := outcomeError
	if errors.Is(err, context.DeadlineExceeded) {
		outcome = outcomeTimeout
		err = domain.WrapError(domain.ErrChannelTimeout, string(channel)+" channel", err)
	}
	uc.observer.ObserveChannelCall(channel, time.Since(start), outcome)
	slog.Warn("channel_degraded",
		"channel", channel,
		"document_id", chunk.DocumentID,
		"chunk_id", chunk.ID,
		"outcome", outcome,
		"error", err,
	)
	return err
}
