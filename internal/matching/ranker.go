// Package matching converts raw similarity hits into ranked matches and
// orchestrates report handling.
package matching

import (
	"math"

	"go.uber.org/zap"

	"github.com/otoshimono/otoshimono/internal/itemid"
	"github.com/otoshimono/otoshimono/internal/models"
	"github.com/otoshimono/otoshimono/internal/vector"
)

// DefaultMinScore is the similarity cutoff below which hits are dropped.
const DefaultMinScore = 0.3

// matchReason is attached to every surviving match. Static: the service has
// no per-pair explanation generator.
const matchReason = "Image and description are semantically similar"

// RawHit is a raw similarity hit. Score is a pointer so a hit decoded from an
// external payload with a missing or non-numeric score stays representable
// instead of silently becoming zero.
type RawHit struct {
	ItemID string   `json:"item_id"`
	Score  *float64 `json:"score"`
}

// SkippedHit records a malformed hit that was dropped during ranking.
// Match computation is advisory, so malformed hits are diagnostics, not errors.
type SkippedHit struct {
	ItemID string
	Reason string
}

// HitsFromIndex converts index search results to raw hits.
func HitsFromIndex(hits []*vector.Hit) []RawHit {
	raw := make([]RawHit, len(hits))
	for i, h := range hits {
		score := h.Score
		raw[i] = RawHit{ItemID: h.ItemID, Score: &score}
	}
	return raw
}

// Ranker filters and labels raw hits.
type Ranker struct {
	logger *zap.Logger
}

// NewRanker creates a ranker. logger may be nil.
func NewRanker(logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{logger: logger}
}

// Rank converts raw hits into matches, preserving input order:
//   - malformed hits (missing or non-numeric score) are skipped with a
//     warning and reported in the returned diagnostics,
//   - hits scoring below minScore are dropped,
//   - when requestingType is "lost" or "found", only hits whose item id
//     encodes the opposite type are kept; otherwise no type filter applies.
//
// Filtering and labeling use the unrounded score; the returned score is
// rounded to 3 decimals for display.
func (r *Ranker) Rank(hits []RawHit, requestingType string, minScore float64) ([]*models.Match, []SkippedHit) {
	var matches []*models.Match
	var skipped []SkippedHit

	wantType := itemid.Opposite(requestingType)
	for _, h := range hits {
		switch {
		case h.Score == nil:
			r.logger.Warn("skipping hit without score", zap.String("item_id", h.ItemID))
			skipped = append(skipped, SkippedHit{ItemID: h.ItemID, Reason: "missing score"})
			continue
		case math.IsNaN(*h.Score):
			r.logger.Warn("skipping hit with non-numeric score", zap.String("item_id", h.ItemID))
			skipped = append(skipped, SkippedHit{ItemID: h.ItemID, Reason: "non-numeric score"})
			continue
		}
		score := *h.Score
		if score < minScore {
			continue
		}
		if wantType != "" && itemid.ReportTypeOf(h.ItemID) != wantType {
			continue
		}
		matches = append(matches, &models.Match{
			ItemID:     h.ItemID,
			Score:      math.Round(score*1000) / 1000,
			Confidence: ConfidenceLabel(score),
			Reason:     matchReason,
		})
	}
	return matches, skipped
}

// ConfidenceLabel buckets a raw similarity score for human consumption.
func ConfidenceLabel(score float64) string {
	switch {
	case score >= 0.75:
		return "High"
	case score >= 0.5:
		return "Medium"
	default:
		return "Low"
	}
}
