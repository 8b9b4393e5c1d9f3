package chunking

import (
	"errors"
	"strings"
	"unicode"

	"github.com/hirewatch/screening-engine/internal/core/domain"
)

// WindowPolicy is the sliding-window geometry for one document type.
type WindowPolicy struct {
	Size    int
	Overlap int
}

func (p WindowPolicy) step() int {
	step := p.Size - p.Overlap
	if step <= 0 {
		return p.Size
	}
	return step
}

func defaultPolicies() map[domain.DocumentType]WindowPolicy {
	return map[domain.DocumentType]WindowPolicy{
		domain.TypeResume:      {Size: 1000, Overlap: 100},
		domain.TypeCoverLetter: {Size: 800, Overlap: 50},
		domain.TypePortfolio:   {Size: 600, Overlap: 80},
	}
}

// singletonChunkLimit bounds summary/keywords/basic_info chunks so every
// chunk stays under the embedding collaborator's input-size bound.
const singletonChunkLimit = 2000

// Chunker turns a document into its ordered list of comparable chunks. It is
// a pure function of the document and the window policies: same input, same
// chunk ids, text and ordering.
type Chunker struct {
	policies map[domain.DocumentType]WindowPolicy
}

func New() *Chunker {
	return &Chunker{policies: defaultPolicies()}
}

func NewWithPolicies(policies map[domain.DocumentType]WindowPolicy) *Chunker {
	merged := defaultPolicies()
	for docType, policy := range policies {
		if policy.Size > 0 {
			merged[docType] = policy
		}
	}
	return &Chunker{policies: merged}
}

func (c *Chunker) Policy(docType domain.DocumentType) WindowPolicy {
	if policy, ok := c.policies[docType]; ok {
		return policy
	}
	return WindowPolicy{Size: 800, Overlap: 50}
}

// Chunk fails only when no recognized field holds any non-whitespace text.
func (c *Chunker) Chunk(doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("nil document"))
	}

	policy := c.Policy(doc.Type)
	out := make([]domain.Chunk, 0, 8)

	if summary := extractFirst(doc, summaryStrategies); summary != "" {
		out = append(out, singletonChunk(doc, domain.ChunkSummary, summary, domain.FieldSummary))
	}
	if keywords := joinList(doc.ListField(domain.ListFieldKeywords)); keywords != "" {
		out = append(out, singletonChunk(doc, domain.ChunkKeywords, keywords, domain.ListFieldKeywords))
	}
	if info := basicInfoText(doc); info != "" {
		out = append(out, singletonChunk(doc, domain.ChunkBasicInfo, info, ""))
	}

	if doc.Type == domain.TypeCoverLetter {
		for _, field := range coverLetterFields {
			out = append(out, windowChunks(doc, field.chunkType, field.name, doc.Field(field.name), policy)...)
		}
	}

	for i, item := range doc.PortfolioItems {
		text := portfolioItemText(item)
		if text == "" {
			continue
		}
		chunk := domain.Chunk{
			ID:           domain.ChunkID(doc.ID, domain.ChunkPortfolioItem, i+1),
			DocumentID:   doc.ID,
			DocumentType: doc.Type,
			Type:         domain.ChunkPortfolioItem,
			Text:         truncateRunes(text, singletonChunkLimit),
			Meta: domain.ChunkMeta{
				Section: string(domain.ChunkPortfolioItem),
				Ordinal: i + 1,
				Extra:   portfolioItemExtra(item),
			},
		}
		out = append(out, chunk)
	}

	out = append(out, windowChunks(doc, domain.ChunkExtractedText, "", doc.ExtractedText, policy)...)

	if len(out) == 0 {
		return nil, domain.WrapError(domain.ErrNoChunkableText, "chunk document", errors.New("all recognized fields empty"))
	}
	return out, nil
}

func singletonChunk(doc *domain.Document, chunkType domain.ChunkType, text, sourceField string) domain.Chunk {
	text = truncateRunes(text, singletonChunkLimit)
	return domain.Chunk{
		ID:           domain.ChunkID(doc.ID, chunkType, 0),
		DocumentID:   doc.ID,
		DocumentType: doc.Type,
		Type:         chunkType,
		Text:         text,
		Meta: domain.ChunkMeta{
			Section:     string(chunkType),
			SourceField: sourceField,
			EndOffset:   len([]rune(text)),
		},
	}
}

// windowChunks splits text into fixed-size sliding windows. The start
// advances by size-overlap; a trailing partial window shorter than the step
// is still emitted when it holds non-whitespace text. Ordinals are 1-based.
func windowChunks(doc *domain.Document, chunkType domain.ChunkType, sourceField, text string, policy WindowPolicy) []domain.Chunk {
	runes := []rune(text)
	if len(strings.TrimSpace(text)) == 0 {
		return nil
	}

	step := policy.step()
	out := make([]domain.Chunk, 0, len(runes)/step+1)
	ordinal := 0
	for start := 0; start < len(runes); start += step {
		end := start + policy.Size
		if end > len(runes) {
			end = len(runes)
		}
		// Offsets describe the stored text, so trim inside the rune slice
		// rather than on the joined string.
		lead := start
		for lead < end && unicode.IsSpace(runes[lead]) {
			lead++
		}
		trail := end
		for trail > lead && unicode.IsSpace(runes[trail-1]) {
			trail--
		}
		if lead < trail {
			ordinal++
			out = append(out, domain.Chunk{
				ID:           domain.ChunkID(doc.ID, chunkType, ordinal),
				DocumentID:   doc.ID,
				DocumentType: doc.Type,
				Type:         chunkType,
				Text:         string(runes[lead:trail]),
				Meta: domain.ChunkMeta{
					Section:     string(chunkType),
					SourceField: sourceField,
					Ordinal:     ordinal,
					StartOffset: lead,
					EndOffset:   trail,
				},
			})
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

func joinList(values []string) string {
	trimmed := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			trimmed = append(trimmed, v)
		}
	}
	return strings.Join(trimmed, ", ")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
