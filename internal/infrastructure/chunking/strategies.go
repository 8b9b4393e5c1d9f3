package chunking

import (
	"strings"

	"github.com/hirewatch/screening-engine/internal/core/domain"
)

// extraction is one step of an ordered fallback chain. Strategies run in
// sequence with early exit on the first non-empty result, so new sources can
// be appended without touching the existing ones.
type extraction struct {
	name    string
	extract func(*domain.Document) string
}

func extractFirst(doc *domain.Document, strategies []extraction) string {
	for _, strategy := range strategies {
		if text := strings.TrimSpace(strategy.extract(doc)); text != "" {
			return text
		}
	}
	return ""
}

var summaryStrategies = []extraction{
	{
		name: "summary_field",
		extract: func(doc *domain.Document) string {
			return doc.Field(domain.FieldSummary)
		},
	},
	{
		name: "identity_synthesis",
		extract: func(doc *domain.Document) string {
			parts := make([]string, 0, 3)
			if name := strings.TrimSpace(doc.Field(domain.FieldName)); name != "" {
				parts = append(parts, name)
			}
			if doc.ApplicantID != "" {
				parts = append(parts, "applicant "+doc.ApplicantID)
			}
			if len(parts) == 0 {
				return ""
			}
			parts = append(parts, string(doc.Type))
			return strings.Join(parts, ", ")
		},
	},
}

type coverLetterField struct {
	name      string
	chunkType domain.ChunkType
}

// Fixed order keeps chunk emission deterministic.
var coverLetterFields = []coverLetterField{
	{name: domain.FieldGrowthBackground, chunkType: domain.ChunkGrowthBackground},
	{name: domain.FieldMotivation, chunkType: domain.ChunkMotivation},
	{name: domain.FieldCareerHistory, chunkType: domain.ChunkCareerHistory},
}

// basicInfoText flattens identity attributes into one chunk. Multi-valued
// attributes become a single joined line per attribute.
func basicInfoText(doc *domain.Document) string {
	lines := make([]string, 0, 3)
	if name := strings.TrimSpace(doc.Field(domain.FieldName)); name != "" {
		lines = append(lines, "name: "+name)
	}
	if emails := joinList(doc.ListField(domain.ListFieldEmails)); emails != "" {
		lines = append(lines, "email: "+emails)
	}
	if phones := joinList(doc.ListField(domain.ListFieldPhones)); phones != "" {
		lines = append(lines, "phone: "+phones)
	}
	return strings.Join(lines, "\n")
}

func portfolioItemText(item domain.PortfolioItem) string {
	parts := make([]string, 0, 2)
	if title := strings.TrimSpace(item.Title); title != "" {
		parts = append(parts, title)
	}
	if desc := strings.TrimSpace(item.Description); desc != "" {
		parts = append(parts, desc)
	}
	return strings.Join(parts, "\n")
}

func portfolioItemExtra(item domain.PortfolioItem) map[string]string {
	extra := make(map[string]string, 2)
	if item.ItemType != "" {
		extra["item_type"] = item.ItemType
	}
	if item.URL != "" {
		extra["url"] = item.URL
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}
