package usecase

import (
	"fmt"
	"math"

	"github.com/hirewatch/screening-engine/internal/config"
	"github.com/hirewatch/screening-engine/internal/core/domain"
)

// fieldChunkTypes maps the targeted cover-letter chunk types back to the
// source field names carrying per-field thresholds.
var fieldChunkTypes = map[domain.ChunkType]string{
	domain.ChunkGrowthBackground: domain.FieldGrowthBackground,
	domain.ChunkMotivation:       domain.FieldMotivation,
	domain.ChunkCareerHistory:    domain.FieldCareerHistory,
}

// Classifier applies the threshold policy to aggregated similarity. It is a
// stateless three-level classifier; each call stands alone.
type Classifier struct {
	policy config.ScoringPolicy
}

func NewClassifier(policy config.ScoringPolicy) *Classifier {
	return &Classifier{policy: policy}
}

// Classify never fails on valid input. It fails only when a score is
// negative or NaN, which signals an upstream contract violation and must
// propagate rather than be clamped away.
func (c *Classifier) Classify(aggregated []domain.AggregatedSimilarity) (*domain.SuspicionVerdict, error) {
	if len(aggregated) == 0 {
		return &domain.SuspicionVerdict{
			Level:               domain.SuspicionLow,
			Score:               0,
			SimilarCount:        0,
			NoEvidence:          true,
			Mode:                domain.ModeHybrid,
			ContributingMatches: []domain.AggregatedSimilarity{},
		}, nil
	}

	top := aggregated[0].OverallScore
	mode := aggregated[0].Mode
	for _, entry := range aggregated {
		if math.IsNaN(entry.OverallScore) || entry.OverallScore < 0 {
			return nil, domain.WrapError(
				domain.ErrClassification,
				"classify aggregated similarity",
				fmt.Errorf("invalid overall score %v for document %s", entry.OverallScore, entry.DocumentID),
			)
		}
		if entry.OverallScore > top {
			top = entry.OverallScore
		}
	}

	level := domain.SuspicionLow
	switch {
	case top >= c.policy.HighThreshold:
		level = domain.SuspicionHigh
	case top >= c.policy.MediumThreshold:
		level = domain.SuspicionMedium
	}

	contributing := make([]domain.AggregatedSimilarity, 0, len(aggregated))
	for _, entry := range aggregated {
		contributing = append(contributing, c.suppressWeakFields(entry))
	}
	if c.policy.TopContributing > 0 && len(contributing) > c.policy.TopContributing {
		contributing = contributing[:c.policy.TopContributing]
	}

	return &domain.SuspicionVerdict{
		Level:               level,
		Score:               top,
		SimilarCount:        len(aggregated),
		Mode:                mode,
		ContributingMatches: contributing,
	}, nil
}

// suppressWeakFields drops chunk-pair evidence for a targeted field when its
// best score sits below that field's minimum-evidence threshold, so
// incidental lexical overlap in one field is not reported as a named match.
// The document's overall score is left untouched; only the reported evidence
// shrinks.
func (c *Classifier) suppressWeakFields(entry domain.AggregatedSimilarity) domain.AggregatedSimilarity {
	if len(entry.BestByPair) == 0 {
		return entry
	}

	filtered := make(map[domain.ChunkTypePair]float64, len(entry.BestByPair))
	for pair, score := range entry.BestByPair {
		if field, ok := targetedField(pair); ok && score < c.policy.FieldThreshold(field) {
			continue
		}
		filtered[pair] = score
	}

	entry.BestByPair = filtered
	return entry
}

func targetedField(pair domain.ChunkTypePair) (string, bool) {
	if field, ok := fieldChunkTypes[pair.Query]; ok {
		return field, true
	}
	if field, ok := fieldChunkTypes[pair.Candidate]; ok {
		return field, true
	}
	return "", false
}
