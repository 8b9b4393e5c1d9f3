package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/hirewatch/screening-engine/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func documentColumns() []string {
	return []string{
		"id", "document_type", "applicant_id", "fields", "list_fields", "portfolio_items",
		"extracted_text", "storage_path", "status", "error_message", "created_at", "updated_at",
	}
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, document_type, applicant_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesStructuredFields(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentColumns()).AddRow(
		"doc_1", "resume", "app_1",
		[]byte(`{"summary":"Backend engineer","name":"Jane Doe"}`),
		[]byte(`{"keywords":["go","postgres"]}`),
		[]byte(`[]`),
		"full resume text", "/data/doc_1.pdf", "indexed", "", now, now,
	)

	mock.ExpectQuery("SELECT id, document_type, applicant_id").
		WithArgs("doc_1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc_1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.Type != domain.TypeResume {
		t.Fatalf("Type = %q, want resume", doc.Type)
	}
	if doc.Field(domain.FieldSummary) != "Backend engineer" {
		t.Fatalf("summary field = %q", doc.Field(domain.FieldSummary))
	}
	if got := doc.ListField(domain.ListFieldKeywords); len(got) != 2 || got[0] != "go" {
		t.Fatalf("keywords = %v", got)
	}
	if doc.Status != domain.StatusIndexed {
		t.Fatalf("Status = %q, want indexed", doc.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateMarshalsNilMapsAsEmptyJSON(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs("doc_2", "cover_letter", "app_2", []byte(`{}`), []byte(`{}`), []byte(`[]`),
			"", "", "uploaded", "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.Document{
		ID:          "doc_2",
		Type:        domain.TypeCoverLetter,
		ApplicantID: "app_2",
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", string(domain.StatusIndexing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusIndexing, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListByTypeFiltersIndexedOnly(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentColumns()).AddRow(
		"doc_3", "portfolio", "app_3",
		[]byte(`{}`), []byte(`{}`),
		[]byte(`[{"title":"Demo","description":"A demo project"}]`),
		"", "", "indexed", "", now, now,
	)

	mock.ExpectQuery("SELECT id, document_type, applicant_id").
		WithArgs("portfolio", "indexed", 50).
		WillReturnRows(rows)

	docs, err := repo.ListByType(context.Background(), domain.TypePortfolio, 50)
	if err != nil {
		t.Fatalf("ListByType() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("len(docs) = %d, want 1", len(docs))
	}
	if len(docs[0].PortfolioItems) != 1 || docs[0].PortfolioItems[0].Title != "Demo" {
		t.Fatalf("portfolio items = %+v", docs[0].PortfolioItems)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM documents").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
