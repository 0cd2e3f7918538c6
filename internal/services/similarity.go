package services

import (
	"context"

	"github.com/devpulse/devpulse/pkg/logger"
)

// DefaultMatchThreshold is applied when the provider omits an explicit
// duplicate flag: confidence at or above it counts as a match.
const DefaultMatchThreshold = 0.7

// MatchScore is one pairwise similarity judgment.
type MatchScore struct {
	Confidence  float64 `json:"confidence"` // 0..1
	IsMatch     bool    `json:"is_match"`
	Explanation string  `json:"explanation"`
}

// SimilarityScorer obtains a similarity judgment for one commit/report item
// pair. Implementations return an error for a failed comparison; callers
// treat that pair as a non-match rather than aborting the pass.
type SimilarityScorer interface {
	Score(ctx context.Context, commitItem, reportItem WorkItem) (*MatchScore, error)
}

// SimilarityMatcher scores pairs through the AI similarity call. This is the
// expensive step: one provider call per (commit item x report item) pair, so
// callers bound input sizes before invoking it.
type SimilarityMatcher struct {
	ai *AIService
}

func NewSimilarityMatcher(ai *AIService) *SimilarityMatcher {
	return &SimilarityMatcher{ai: ai}
}

func (m *SimilarityMatcher) Score(ctx context.Context, commitItem, reportItem WorkItem) (*MatchScore, error) {
	result, err := m.ai.ScoreSimilarity(ctx, commitItem.Description, reportItem.Description)
	if err != nil {
		logger.Warnf("[Similarity] Comparison failed, skipping pair: %v", err)
		return nil, err
	}

	isMatch := result.SimilarityScore >= DefaultMatchThreshold
	if result.IsDuplicate != nil {
		isMatch = *result.IsDuplicate
	}

	return &MatchScore{
		Confidence:  result.SimilarityScore,
		IsMatch:     isMatch,
		Explanation: result.Reasoning,
	}, nil
}
