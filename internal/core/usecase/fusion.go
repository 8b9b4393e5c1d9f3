package usecase

import (
	"sort"

	"github.com/hirewatch/screening-engine/internal/config"
	"github.com/hirewatch/screening-engine/internal/core/domain"
)

// clampCosine maps a raw cosine similarity in [-1,1] into [0,1]. Negative
// similarity carries no plagiarism evidence and clamps to zero.
func clampCosine(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// normalizeKeyword applies the documented linear clamp to an unbounded
// BM25-family score: min(score/divisor, 1). The divisor is a tunable policy
// value, not a derived constant.
func normalizeKeyword(score, divisor float64) float64 {
	if score <= 0 {
		return 0
	}
	normalized := score / divisor
	if normalized > 1 {
		return 1
	}
	return normalized
}

// channelHits holds one query chunk's raw results from both channels.
type channelHits struct {
	vector  []domain.ChannelHit
	keyword []domain.ChannelHit
}

// fuseChunkMatches combines both channels' candidates for one query chunk
// into fused matches. A candidate seen by only one channel keeps a zero for
// the missing channel rather than being skipped: single-channel agreement is
// penalized, which is the intended conservative bias.
//
// Candidates owned by selfDocumentID are discarded before scoring.
func fuseChunkMatches(query domain.Chunk, hits channelHits, policy config.ScoringPolicy, selfDocumentID string) []domain.SimilarityMatch {
	acc := make(map[string]*domain.SimilarityMatch, len(hits.vector)+len(hits.keyword))

	candidate := func(hit domain.ChannelHit) *domain.SimilarityMatch {
		if match, ok := acc[hit.ChunkID]; ok {
			return match
		}
		match := &domain.SimilarityMatch{
			QueryChunkID:        query.ID,
			QueryChunkType:      query.Type,
			CandidateChunkID:    hit.ChunkID,
			CandidateDocumentID: hit.DocumentID,
			CandidateChunkType:  hit.ChunkType,
			CandidatePreview:    hit.Preview,
		}
		acc[hit.ChunkID] = match
		return match
	}

	for _, hit := range hits.vector {
		if hit.DocumentID == "" || hit.DocumentID == selfDocumentID {
			continue
		}
		match := candidate(hit)
		if score := clampCosine(hit.Score); score > match.VectorScore {
			match.VectorScore = score
		}
	}
	for _, hit := range hits.keyword {
		if hit.DocumentID == "" || hit.DocumentID == selfDocumentID {
			continue
		}
		match := candidate(hit)
		if score := normalizeKeyword(hit.Score, policy.KeywordScoreDivisor); score > match.KeywordScore {
			match.KeywordScore = score
		}
	}

	out := make([]domain.SimilarityMatch, 0, len(acc))
	for _, match := range acc {
		match.Score = policy.VectorWeight*match.VectorScore + policy.KeywordWeight*match.KeywordScore
		out = append(out, *match)
	}
	sortMatches(out)
	return out
}

// sortMatches orders matches by fused score descending with a stable
// lexicographic tie-break on candidate then query chunk id, so result order
// never depends on channel completion order.
func sortMatches(matches []domain.SimilarityMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].CandidateChunkID != matches[j].CandidateChunkID {
			return matches[i].CandidateChunkID < matches[j].CandidateChunkID
		}
		return matches[i].QueryChunkID < matches[j].QueryChunkID
	})
}
