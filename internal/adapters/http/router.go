package httpadapter

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/hirewatch/screening-engine/internal/core/domain"
	"github.com/hirewatch/screening-engine/internal/core/ports"
)

const maxUploadMemory = 32 << 20

type RouterOptions struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	AdmissionWait  time.Duration
	MetricsHandler http.Handler
	MetricsWrap    func(service string, next http.Handler) http.Handler
	ServiceName    string
}

type Router struct {
	ingestor ports.DocumentIngestor
	indexer  ports.DocumentIndexer
	searcher ports.SimilaritySearcher
	reader   ports.DocumentReader
	options  RouterOptions
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	indexer ports.DocumentIndexer,
	searcher ports.SimilaritySearcher,
	reader ports.DocumentReader,
	options RouterOptions,
) *Router {
	return &Router{
		ingestor: ingestor,
		indexer:  indexer,
		searcher: searcher,
		reader:   reader,
		options:  options,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.documentSubtree)
	mux.HandleFunc("/v1/similarity/search", rt.searchByText)
	if rt.options.MetricsHandler != nil {
		mux.Handle("/metrics", rt.options.MetricsHandler)
	}

	var handler http.Handler = mux
	if rt.options.MetricsWrap != nil {
		handler = rt.options.MetricsWrap(rt.options.ServiceName, handler)
	}
	if rt.options.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.options.MaxInFlight, rt.options.AdmissionWait)
	}
	if rt.options.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.options.RateLimitRPS, rt.options.RateLimitBurst)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// uploadMetadata is the JSON payload of the "metadata" multipart part. The
// file part is optional: structured documents (cover letters keyed by form
// fields) can be created without a source file.
type uploadMetadata struct {
	Type           string                 `json:"type"`
	ApplicantID    string                 `json:"applicant_id"`
	Fields         map[string]string      `json:"fields"`
	ListFields     map[string][]string    `json:"list_fields"`
	PortfolioItems []domain.PortfolioItem `json:"portfolio_items"`
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}

	metaRaw := r.FormValue("metadata")
	if metaRaw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'metadata' is required"})
		return
	}
	var meta uploadMetadata
	if err := json.Unmarshal([]byte(metaRaw), &meta); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid metadata json"})
		return
	}

	var file multipart.File
	var filename, mimeType string
	if f, fileHeader, err := r.FormFile("file"); err == nil {
		defer f.Close()
		file = f
		filename = fileHeader.Filename
		mimeType = fileHeader.Header.Get("Content-Type")
	}

	doc, err := rt.ingestor.Upload(r.Context(), ports.UploadMeta{
		Type:           domain.DocumentType(meta.Type),
		ApplicantID:    meta.ApplicantID,
		Filename:       filename,
		MimeType:       mimeType,
		Fields:         meta.Fields,
		ListFields:     meta.ListFields,
		PortfolioItems: meta.PortfolioItems,
	}, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) documentSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if rest == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	id, action, _ := strings.Cut(rest, "/")
	switch action {
	case "":
		rt.documentByID(w, r, id)
	case "similar":
		rt.findSimilar(w, r, id)
	case "reindex":
		rt.reindexDocument(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
	}
}

func (rt *Router) documentByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		doc, err := rt.reader.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if err := rt.indexer.DeleteDocument(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) reindexDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if err := rt.indexer.Reindex(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"document_id": id, "status": "reindexed"})
}

func (rt *Router) findSimilar(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Limit int `json:"limit"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}

	verdict, err := rt.searcher.FindSimilarByDocument(r.Context(), id, req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

func (rt *Router) searchByText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Text  string `json:"text"`
		Type  string `json:"type"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	results, err := rt.searcher.FindSimilarByText(r.Context(), req.Text, domain.DocumentType(req.Type), req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []domain.AggregatedSimilarity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
