package usecase

import (
	"strings"
	"unicode"

	"github.com/hirewatch/screening-engine/internal/config"
	"github.com/hirewatch/screening-engine/internal/core/domain"
)

// Degraded mode: plain word-set Jaccard over whole documents. No semantic
// matching at all, so its scores are statistically unlike hybrid scores.
// Results are labeled ModeDegradedJaccard and never mixed with hybrid ones.

func jaccardSimilarity(a, b string) float64 {
	setA := toTokenSet(a)
	setB := toTokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// degradedAggregate scores candidates against the query text by Jaccard,
// applying the same global threshold and ordering guarantees as the hybrid
// aggregator.
func degradedAggregate(queryText string, candidates []domain.Document, excludeDocumentID string, policy config.ScoringPolicy) []domain.AggregatedSimilarity {
	pair := domain.ChunkTypePair{Query: domain.ChunkExtractedText, Candidate: domain.ChunkExtractedText}

	out := make([]domain.AggregatedSimilarity, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == "" || candidate.ID == excludeDocumentID {
			continue
		}
		score := jaccardSimilarity(queryText, candidateText(candidate))
		if score < policy.GlobalSimilarityThreshold {
			continue
		}
		out = append(out, domain.AggregatedSimilarity{
			DocumentID:   candidate.ID,
			OverallScore: score,
			ChunkMatches: 1,
			BestByPair:   map[domain.ChunkTypePair]float64{pair: score},
			Mode:         domain.ModeDegradedJaccard,
		})
	}

	sortAggregated(out)
	return out
}

func candidateText(doc domain.Document) string {
	if doc.ExtractedText != "" {
		return doc.ExtractedText
	}
	parts := make([]string, 0, len(doc.Fields))
	for _, field := range []string{domain.FieldSummary, domain.FieldGrowthBackground, domain.FieldMotivation, domain.FieldCareerHistory} {
		if v := doc.Field(field); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\n")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
