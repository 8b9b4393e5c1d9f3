package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/hirewatch/screening-engine/internal/core/domain"
	"github.com/hirewatch/screening-engine/internal/core/ports"
)

var errNotFound = errors.New("not found")

type fakeRepo struct {
	mu       sync.Mutex
	docs     map[string]*domain.Document
	statuses []domain.DocumentStatus
	listErr  error
	getErr   error
	deleted  []string
}

func newFakeRepo(docs ...*domain.Document) *fakeRepo {
	repo := &fakeRepo{docs: map[string]*domain.Document{}}
	for _, doc := range docs {
		repo.docs[doc.ID] = doc
	}
	return repo
}

func (f *fakeRepo) Create(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errNotFound)
	}
	return doc, nil
}

func (f *fakeRepo) ListByType(_ context.Context, docType domain.DocumentType, limit int) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		if doc.Type == docType && len(out) < limit {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update status", errNotFound)
	}
	doc.Status = status
	doc.Error = errMessage
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", errNotFound)
	}
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeChunker struct {
	chunks []domain.Chunk
	err    error
}

func (f *fakeChunker) Chunk(*domain.Document) ([]domain.Chunk, error) {
	return f.chunks, f.err
}

type fakeEmbedder struct {
	mu         sync.Mutex
	batchErr   error
	singleErr  error
	dimension  int
	batchCalls int
	queryCalls int
}

func (f *fakeEmbedder) vectorFor() []float32 {
	dim := f.dimension
	if dim <= 0 {
		dim = 4
	}
	v := make([]float32, dim)
	v[0] = 1
	return v
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vectorFor()
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.singleErr != nil {
		return nil, f.singleErr
	}
	return f.vectorFor(), nil
}

type fakeVectorIndex struct {
	mu       sync.Mutex
	hits     []domain.ChannelHit
	queryErr error
	upserted []ports.VectorRecord
	deleted  []string
	queries  int
}

func (f *fakeVectorIndex) Upsert(_ context.Context, records []ports.VectorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, records...)
	return nil
}

func (f *fakeVectorIndex) Query(_ context.Context, _ ports.VectorQuery) ([]domain.ChannelHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.hits, nil
}

func (f *fakeVectorIndex) DeleteByDocument(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, documentID)
	return nil
}

type fakeKeywordIndex struct {
	mu        sync.Mutex
	hits      []domain.ChannelHit
	searchErr error
	indexed   []domain.Chunk
	deleted   []string
	searches  int
}

func (f *fakeKeywordIndex) Index(_ context.Context, chunks []domain.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, chunks...)
	return nil
}

func (f *fakeKeywordIndex) Search(_ context.Context, _ ports.KeywordQuery) ([]domain.ChannelHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func (f *fakeKeywordIndex) DeleteByDocument(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, documentID)
	return nil
}

type fakeQueue struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (f *fakeQueue) PublishIndexRequested(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *fakeQueue) SubscribeIndexRequested(context.Context, func(context.Context, string) error) error {
	return nil
}

type fakeStorage struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (f *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[key] = raw
	return nil
}

func (f *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return io.NopCloser(bytes.NewReader(f.saved[key])), nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(context.Context, *domain.Document) (string, error) {
	return f.text, f.err
}

type fakeExplainer struct {
	mu       sync.Mutex
	verdicts []domain.SuspicionVerdict
	done     chan struct{}
	err      error
}

func newFakeExplainer() *fakeExplainer {
	return &fakeExplainer{done: make(chan struct{}, 4)}
}

func (f *fakeExplainer) ExplainVerdict(_ context.Context, verdict domain.SuspicionVerdict) (string, error) {
	f.mu.Lock()
	f.verdicts = append(f.verdicts, verdict)
	f.mu.Unlock()
	select {
	case f.done <- struct{}{}:
	default:
	}
	return "explanation", f.err
}
