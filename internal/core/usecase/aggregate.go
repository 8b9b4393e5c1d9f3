package usecase

import (
	"sort"

	"github.com/hirewatch/screening-engine/internal/config"
	"github.com/hirewatch/screening-engine/internal/core/domain"
)

// Aggregator rolls chunk-level matches up into per-candidate-document
// similarity. Pure and synchronous: it never touches shared state.
type Aggregator struct {
	policy config.ScoringPolicy
}

func NewAggregator(policy config.ScoringPolicy) *Aggregator {
	return &Aggregator{policy: policy}
}

// Aggregate groups matches by candidate document, keeps only the maximum
// score per (query chunk type, candidate chunk type) pair, and scores each
// document as the arithmetic mean of those per-pair maxima. A document with
// many weak matches is not penalized for them, and a document with many
// low-relevance chunk types does not dilute one strong field match beyond
// its share of pairs.
//
// Documents below the global similarity threshold are dropped. A document
// that somehow groups into zero pairs is excluded, not scored zero: absence
// of evidence is not a reportable match.
func (a *Aggregator) Aggregate(matches []domain.SimilarityMatch) []domain.AggregatedSimilarity {
	type docAccumulator struct {
		bestByPair map[domain.ChunkTypePair]float64
		matchCount int
	}

	byDocument := make(map[string]*docAccumulator)
	for _, match := range matches {
		if match.CandidateDocumentID == "" {
			continue
		}
		acc, ok := byDocument[match.CandidateDocumentID]
		if !ok {
			acc = &docAccumulator{bestByPair: make(map[domain.ChunkTypePair]float64, 4)}
			byDocument[match.CandidateDocumentID] = acc
		}
		acc.matchCount++
		pair := domain.ChunkTypePair{Query: match.QueryChunkType, Candidate: match.CandidateChunkType}
		if best, seen := acc.bestByPair[pair]; !seen || match.Score > best {
			acc.bestByPair[pair] = match.Score
		}
	}

	out := make([]domain.AggregatedSimilarity, 0, len(byDocument))
	for documentID, acc := range byDocument {
		if len(acc.bestByPair) == 0 {
			continue
		}
		var sum float64
		for _, score := range acc.bestByPair {
			sum += score
		}
		overall := sum / float64(len(acc.bestByPair))
		if overall < a.policy.GlobalSimilarityThreshold {
			continue
		}
		out = append(out, domain.AggregatedSimilarity{
			DocumentID:   documentID,
			OverallScore: overall,
			ChunkMatches: acc.matchCount,
			BestByPair:   acc.bestByPair,
			Mode:         domain.ModeHybrid,
		})
	}

	sortAggregated(out)
	return out
}

// sortAggregated orders by overall score descending; equal scores fall back
// to document id ascending so the contract ordering is reproducible.
func sortAggregated(aggregated []domain.AggregatedSimilarity) {
	sort.SliceStable(aggregated, func(i, j int) bool {
		if aggregated[i].OverallScore != aggregated[j].OverallScore {
			return aggregated[i].OverallScore > aggregated[j].OverallScore
		}
		return aggregated[i].DocumentID < aggregated[j].DocumentID
	})
}
