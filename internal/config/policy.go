package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ScoringPolicy holds every threshold and weight the engine treats as a
// policy decision rather than a derived constant. Defaults match the
// reference deployment; a YAML file can override any subset.
type ScoringPolicy struct {
	VectorWeight  float64 `yaml:"vector_weight"`
	KeywordWeight float64 `yaml:"keyword_weight"`

	// KeywordScoreDivisor is the linear clamp divisor for unbounded BM25
	// scores: normalized = min(score/divisor, 1). Corpus-specific; must be
	// recalibrated when the keyword backend changes.
	KeywordScoreDivisor float64 `yaml:"keyword_score_divisor"`

	GlobalSimilarityThreshold float64 `yaml:"global_similarity_threshold"`

	HighThreshold   float64 `yaml:"high_threshold"`
	MediumThreshold float64 `yaml:"medium_threshold"`

	// FieldThresholds are per-field minimum-evidence bars for targeted
	// cover-letter fields, keyed by source field name.
	FieldThresholds map[string]float64 `yaml:"field_thresholds"`

	TopContributing int `yaml:"top_contributing"`
}

func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		VectorWeight:              0.5,
		KeywordWeight:             0.5,
		KeywordScoreDivisor:       10,
		GlobalSimilarityThreshold: 0.30,
		HighThreshold:             0.8,
		MediumThreshold:           0.6,
		FieldThresholds: map[string]float64{
			"growthBackground": 0.20,
			"motivation":       0.20,
			"careerHistory":    0.20,
		},
		TopContributing: 5,
	}
}

// LoadScoringPolicy reads the optional YAML policy file. An empty path
// returns the defaults; a missing or malformed file is an error rather than
// a silent fallback, since thresholds change verdicts.
func LoadScoringPolicy(path string) (ScoringPolicy, error) {
	policy := DefaultScoringPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ScoringPolicy{}, fmt.Errorf("read scoring policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return ScoringPolicy{}, fmt.Errorf("parse scoring policy: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return ScoringPolicy{}, err
	}
	return policy, nil
}

func (p ScoringPolicy) Validate() error {
	if p.VectorWeight < 0 || p.KeywordWeight < 0 {
		return fmt.Errorf("scoring policy: channel weights must be non-negative")
	}
	if math.Abs(p.VectorWeight+p.KeywordWeight-1.0) > 1e-9 {
		return fmt.Errorf("scoring policy: channel weights must sum to 1.0, got %.4f", p.VectorWeight+p.KeywordWeight)
	}
	if p.KeywordScoreDivisor <= 0 {
		return fmt.Errorf("scoring policy: keyword score divisor must be positive")
	}
	if p.GlobalSimilarityThreshold < 0 || p.GlobalSimilarityThreshold > 1 {
		return fmt.Errorf("scoring policy: global similarity threshold must be in [0,1]")
	}
	if p.MediumThreshold >= p.HighThreshold {
		return fmt.Errorf("scoring policy: medium threshold must be below high threshold")
	}
	for field, threshold := range p.FieldThresholds {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("scoring policy: field threshold for %s must be in [0,1]", field)
		}
	}
	return nil
}

// FieldThreshold returns the minimum-evidence bar for a field, or zero for
// fields without a targeted threshold.
func (p ScoringPolicy) FieldThreshold(field string) float64 {
	if p.FieldThresholds == nil {
		return 0
	}
	return p.FieldThresholds[field]
}
