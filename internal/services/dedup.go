package services

import (
	"context"
	"sort"

	"github.com/devpulse/devpulse/pkg/logger"
)

// minConfidenceFloor is a hard lower bound on match confidence applied on
// top of the configured threshold.
const minConfidenceFloor = 0.5

// DeduplicationMatch pairs a commit item with the report item that describes
// the same work. Ephemeral: only its hour effect survives inside the
// persisted analysis payload.
type DeduplicationMatch struct {
	CommitItem  WorkItem `json:"commit_item"`
	ReportItem  WorkItem `json:"report_item"`
	Confidence  float64  `json:"confidence"`
	Explanation string   `json:"explanation"`
}

// DeduplicationResult is the outcome of one all-pairs dedup pass.
type DeduplicationResult struct {
	MatchedItems      []DeduplicationMatch `json:"matched_items"`
	UnmatchedItems    []WorkItem           `json:"unmatched_items"` // report items with no commit counterpart
	UniqueHours       float64              `json:"unique_hours"`    // commit hours + unmatched report hours
	DuplicateHours    float64              `json:"duplicate_hours"` // report hours absorbed by matches
	AverageConfidence float64              `json:"average_confidence"`
}

// candidate is one above-threshold pair before assignment.
type candidate struct {
	commitIdx int
	reportIdx int
	score     MatchScore
}

// Assigner resolves overlapping candidates into a 1:1 assignment. Candidates
// arrive sorted by confidence descending, input order breaking ties. The
// default greedy assigner is deterministic but not globally optimal; a
// weighted bipartite matcher can be substituted without changing callers.
type Assigner interface {
	Assign(candidates []candidate) []candidate
}

// greedyAssigner takes candidates in order, skipping any whose commit or
// report item was already consumed by a higher-confidence match.
type greedyAssigner struct{}

func (greedyAssigner) Assign(candidates []candidate) []candidate {
	usedCommits := make(map[int]bool)
	usedReports := make(map[int]bool)

	assigned := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if usedCommits[c.commitIdx] || usedReports[c.reportIdx] {
			continue
		}
		usedCommits[c.commitIdx] = true
		usedReports[c.reportIdx] = true
		assigned = append(assigned, c)
	}
	return assigned
}

// DeduplicationEngine runs all-pairs matching between commit items and
// report items and computes unique vs. duplicate hour totals.
type DeduplicationEngine struct {
	scorer              SimilarityScorer
	assigner            Assigner
	confidenceThreshold float64
}

func NewDeduplicationEngine(scorer SimilarityScorer, confidenceThreshold float64) *DeduplicationEngine {
	if confidenceThreshold <= 0 || confidenceThreshold > 1 {
		confidenceThreshold = 0.8
	}
	return &DeduplicationEngine{
		scorer:              scorer,
		assigner:            greedyAssigner{},
		confidenceThreshold: confidenceThreshold,
	}
}

// Deduplicate matches commit items against report items and totals hours so
// that work described by both sources counts once: matched report items
// contribute zero additional hours because their work is already counted on
// the commit side.
//
// A failed comparison excludes that single pair from candidates; partial
// failures degrade matching quality but never abort the engine.
func (e *DeduplicationEngine) Deduplicate(ctx context.Context, commitItems, reportItems []WorkItem) DeduplicationResult {
	var candidates []candidate

	for ci, commitItem := range commitItems {
		for ri, reportItem := range reportItems {
			score, err := e.scorer.Score(ctx, commitItem, reportItem)
			if err != nil || score == nil {
				continue
			}
			if !score.IsMatch {
				continue
			}
			if score.Confidence < e.confidenceThreshold || score.Confidence <= minConfidenceFloor {
				continue
			}
			candidates = append(candidates, candidate{commitIdx: ci, reportIdx: ri, score: *score})
		}
	}

	// Confidence descending; SliceStable keeps input order on ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score.Confidence > candidates[j].score.Confidence
	})

	assigned := e.assigner.Assign(candidates)

	matchedReports := make(map[int]bool, len(assigned))
	matches := make([]DeduplicationMatch, 0, len(assigned))
	var confidenceSum, duplicateHours float64
	for _, c := range assigned {
		matchedReports[c.reportIdx] = true
		confidenceSum += c.score.Confidence
		duplicateHours += reportItems[c.reportIdx].EstimatedHours
		matches = append(matches, DeduplicationMatch{
			CommitItem:  commitItems[c.commitIdx],
			ReportItem:  reportItems[c.reportIdx],
			Confidence:  c.score.Confidence,
			Explanation: c.score.Explanation,
		})
	}

	var commitHours, additionalHours float64
	for _, item := range commitItems {
		commitHours += item.EstimatedHours
	}
	unmatched := make([]WorkItem, 0, len(reportItems)-len(assigned))
	for ri, item := range reportItems {
		if matchedReports[ri] {
			continue
		}
		unmatched = append(unmatched, item)
		additionalHours += item.EstimatedHours
	}

	averageConfidence := 0.0
	if len(matches) > 0 {
		averageConfidence = confidenceSum / float64(len(matches))
	}

	logger.Infof("[Dedup] %d commit items x %d report items: %d matched, %d unmatched, unique=%.1fh duplicate=%.1fh",
		len(commitItems), len(reportItems), len(matches), len(unmatched), commitHours+additionalHours, duplicateHours)

	return DeduplicationResult{
		MatchedItems:      matches,
		UnmatchedItems:    unmatched,
		UniqueHours:       commitHours + additionalHours,
		DuplicateHours:    duplicateHours,
		AverageConfidence: averageConfidence,
	}
}
