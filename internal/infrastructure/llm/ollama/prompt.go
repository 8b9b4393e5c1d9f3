package ollama

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hirewatch/screening-engine/internal/core/domain"
)

func buildExplanationPrompt(verdict domain.SuspicionVerdict) string {
	var evidence strings.Builder
	for idx, match := range verdict.ContributingMatches {
		evidence.WriteString(fmt.Sprintf(
			"[%d] document=%s overall=%.3f chunk_matches=%d\n",
			idx+1,
			match.DocumentID,
			match.OverallScore,
			match.ChunkMatches,
		))
		for _, pair := range sortedPairs(match.BestByPair) {
			evidence.WriteString(fmt.Sprintf(
				"    %s vs %s: %.3f\n",
				pair.Query,
				pair.Candidate,
				match.BestByPair[pair],
			))
		}
	}
	if verdict.NoEvidence {
		evidence.WriteString("no similar documents found\n")
	}

	return fmt.Sprintf(`You review plagiarism-screening evidence for candidate documents.
Explain in plain language why the verdict below was reached, citing only the evidence given.
Do not invent documents or scores.

Verdict: %s (score %.3f, %d similar documents, mode %s)

Evidence:
%s`, verdict.Level, verdict.Score, verdict.SimilarCount, verdict.Mode, evidence.String())
}

func sortedPairs(best map[domain.ChunkTypePair]float64) []domain.ChunkTypePair {
	pairs := make([]domain.ChunkTypePair, 0, len(best))
	for pair := range best {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Query != pairs[j].Query {
			return pairs[i].Query < pairs[j].Query
		}
		return pairs[i].Candidate < pairs[j].Candidate
	})
	return pairs
}
