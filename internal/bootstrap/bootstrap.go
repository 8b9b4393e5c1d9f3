package bootstrap

import (
	"context"
	"fmt"

	"github.com/hirewatch/screening-engine/internal/config"
	"github.com/hirewatch/screening-engine/internal/core/ports"
	"github.com/hirewatch/screening-engine/internal/core/usecase"
	"github.com/hirewatch/screening-engine/internal/infrastructure/chunking"
	"github.com/hirewatch/screening-engine/internal/infrastructure/extractor/pdftext"
	"github.com/hirewatch/screening-engine/internal/infrastructure/keyword/opensearch"
	"github.com/hirewatch/screening-engine/internal/infrastructure/llm/ollama"
	"github.com/hirewatch/screening-engine/internal/infrastructure/queue/nats"
	"github.com/hirewatch/screening-engine/internal/infrastructure/repository/postgres"
	"github.com/hirewatch/screening-engine/internal/infrastructure/resilience"
	"github.com/hirewatch/screening-engine/internal/infrastructure/storage/localfs"
	"github.com/hirewatch/screening-engine/internal/infrastructure/vector/qdrant"
)

// Options carries per-binary collaborators that the shared wiring cannot
// construct itself.
type Options struct {
	SearchObserver usecase.SearchObserver
}

type App struct {
	Config config.Config
	Policy config.ScoringPolicy

	Queue    ports.MessageQueue
	Repo     ports.DocumentRepository
	Ingestor ports.DocumentIngestor
	Indexer  ports.DocumentIndexer
	Searcher ports.SimilaritySearcher

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	policy, err := config.LoadScoringPolicy(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load scoring policy: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.NewWithExecutor(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient, cfg.EmbedDimension)
	explainer := ollama.NewExplainer(ollamaClient)

	vectorIndex := qdrant.NewWithExecutor(cfg.QdrantURL, cfg.QdrantCollection, executor)
	keywordIndex := opensearch.NewWithExecutor(cfg.OpenSearchURL, cfg.OpenSearchIndex, executor)
	chunker := chunking.New()
	extractor := pdftext.NewExtractor(storage)

	ingestor := usecase.NewIngestDocumentUseCase(repo, storage, extractor, queue)
	indexer := usecase.NewIndexDocumentUseCase(repo, chunker, embedder, vectorIndex, keywordIndex)
	search := usecase.NewHybridSearchUseCase(embedder, vectorIndex, keywordIndex, policy, usecase.SearchOptions{
		MaxConcurrentCalls: cfg.MaxConcurrentCalls,
		ChannelTimeout:     cfg.ChannelCallTimeout,
		Observer:           opts.SearchObserver,
	})
	searcher := usecase.NewFindSimilarUseCase(
		repo,
		chunker,
		search,
		usecase.NewAggregator(policy),
		usecase.NewClassifier(policy),
		explainer,
		usecase.FindSimilarOptions{
			TopKPerChannel:      cfg.TopKPerChannel,
			DegradedModeEnabled: cfg.DegradedModeEnabled,
			ExplanationTimeout:  cfg.ExplanationTimeout,
			Observer:            opts.SearchObserver,
		},
	)

	return &App{
		Config: cfg,
		Policy: policy,

		Queue:    queue,
		Repo:     repo,
		Ingestor: ingestor,
		Indexer:  indexer,
		Searcher: searcher,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
