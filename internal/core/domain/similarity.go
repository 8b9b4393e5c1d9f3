package domain

type Channel string

const (
	ChannelVector  Channel = "vector"
	ChannelKeyword Channel = "keyword"
)

// ChannelHit is one candidate chunk returned by a single channel with its
// channel-native score: cosine similarity for the vector channel, unbounded
// BM25-family relevance for the keyword channel.
type ChannelHit struct {
	ChunkID      string
	DocumentID   string
	DocumentType DocumentType
	ChunkType    ChunkType
	Preview      string
	Score        float64
}

// SimilarityMatch is an ephemeral chunk-pair match produced per query. The
// fused Score is always in [0,1]; the per-channel components are kept as
// evidence (a missing channel contributes zero, it is never skipped).
type SimilarityMatch struct {
	QueryChunkID        string    `json:"query_chunk_id"`
	QueryChunkType      ChunkType `json:"query_chunk_type"`
	CandidateChunkID    string    `json:"candidate_chunk_id"`
	CandidateDocumentID string    `json:"candidate_document_id"`
	CandidateChunkType  ChunkType `json:"candidate_chunk_type"`
	CandidatePreview    string    `json:"candidate_preview,omitempty"`
	VectorScore         float64   `json:"vector_score"`
	KeywordScore        float64   `json:"keyword_score"`
	Score               float64   `json:"score"`
}

type ChunkTypePair struct {
	Query     ChunkType `json:"query"`
	Candidate ChunkType `json:"candidate"`
}

type SearchMode string

const (
	ModeHybrid          SearchMode = "hybrid"
	ModeDegradedJaccard SearchMode = "degraded_jaccard"
)

// AggregatedSimilarity is the per-candidate-document roll-up of chunk-level
// matches. OverallScore is the arithmetic mean of the per chunk-type-pair
// maxima, not of all raw matches.
type AggregatedSimilarity struct {
	DocumentID   string                    `json:"document_id"`
	OverallScore float64                   `json:"overall_score"`
	ChunkMatches int                       `json:"chunk_matches"`
	BestByPair   map[ChunkTypePair]float64 `json:"-"`
	Mode         SearchMode                `json:"mode"`
}

// PairScore returns the best score recorded for a chunk-type pair, or zero.
func (a AggregatedSimilarity) PairScore(query, candidate ChunkType) float64 {
	if a.BestByPair == nil {
		return 0
	}
	return a.BestByPair[ChunkTypePair{Query: query, Candidate: candidate}]
}

type SuspicionLevel string

const (
	SuspicionLow    SuspicionLevel = "LOW"
	SuspicionMedium SuspicionLevel = "MEDIUM"
	SuspicionHigh   SuspicionLevel = "HIGH"
)

// SuspicionVerdict is the transient classification result. NoEvidence marks
// the empty-candidate case so callers can tell it apart from a genuinely
// low-scoring match, which also classifies as LOW.
type SuspicionVerdict struct {
	Level               SuspicionLevel         `json:"level"`
	Score               float64                `json:"score"`
	SimilarCount        int                    `json:"similar_count"`
	NoEvidence          bool                   `json:"no_evidence"`
	Mode                SearchMode             `json:"mode"`
	ContributingMatches []AggregatedSimilarity `json:"contributing_matches"`
}
