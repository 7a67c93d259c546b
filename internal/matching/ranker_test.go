package matching

import (
	"math"
	"testing"

	"github.com/otoshimono/otoshimono/internal/models"
	"github.com/otoshimono/otoshimono/internal/vector"
)

func score(s float64) *float64 { return &s }

func TestRank_ThresholdBoundary(t *testing.T) {
	r := NewRanker(nil)
	hits := []RawHit{
		{ItemID: "FOUND-KEYS-AAAA0000", Score: score(0.3)},
		{ItemID: "FOUND-KEYS-BBBB0000", Score: score(0.2999)},
	}
	matches, skipped := r.Rank(hits, "", DefaultMinScore)
	if len(skipped) != 0 {
		t.Fatalf("skipped = %v, want none", skipped)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 (exactly 0.3 is kept, 0.2999 dropped)", len(matches))
	}
	if matches[0].ItemID != "FOUND-KEYS-AAAA0000" {
		t.Errorf("kept %s, want FOUND-KEYS-AAAA0000", matches[0].ItemID)
	}
}

func TestRank_ConfidenceBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.75, "High"},
		{0.7499, "Medium"},
		{0.5, "Medium"},
		{0.4999, "Low"},
		{1.0, "High"},
	}
	for _, tt := range tests {
		if got := ConfidenceLabel(tt.score); got != tt.want {
			t.Errorf("ConfidenceLabel(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestRank_LabelUsesUnroundedScore(t *testing.T) {
	r := NewRanker(nil)
	// 0.7499 rounds to 0.750 for display but stays Medium for labeling.
	matches, _ := r.Rank([]RawHit{{ItemID: "FOUND-KEYS-AAAA0000", Score: score(0.7499)}}, "", 0.3)
	if len(matches) != 1 {
		t.Fatal("expected one match")
	}
	if matches[0].Score != 0.75 {
		t.Errorf("display score = %v, want 0.75", matches[0].Score)
	}
	if matches[0].Confidence != "Medium" {
		t.Errorf("confidence = %q, want Medium (unrounded 0.7499)", matches[0].Confidence)
	}
}

func TestRank_OppositeTypeFilter(t *testing.T) {
	r := NewRanker(nil)
	hits := []RawHit{
		{ItemID: "FOUND-KEYS-AAAA0000", Score: score(0.9)},
		{ItemID: "LOST-KEYS-BBBB0000", Score: score(0.9)},
	}

	lost, _ := r.Rank(hits, "lost", 0.3)
	if len(lost) != 1 || lost[0].ItemID != "FOUND-KEYS-AAAA0000" {
		t.Errorf("lost request: got %v, want only the FOUND entry", ids(lost))
	}

	found, _ := r.Rank(hits, "found", 0.3)
	if len(found) != 1 || found[0].ItemID != "LOST-KEYS-BBBB0000" {
		t.Errorf("found request: got %v, want only the LOST entry", ids(found))
	}

	both, _ := r.Rank(hits, "", 0.3)
	if len(both) != 2 {
		t.Errorf("unfiltered request: got %d matches, want 2", len(both))
	}
}

func TestRank_PreservesInputOrder(t *testing.T) {
	r := NewRanker(nil)
	hits := []RawHit{
		{ItemID: "FOUND-KEYS-AAAA0000", Score: score(0.6)},
		{ItemID: "FOUND-KEYS-BBBB0000", Score: score(0.9)},
		{ItemID: "FOUND-KEYS-CCCC0000", Score: score(0.6)},
	}
	matches, _ := r.Rank(hits, "lost", 0.3)
	want := []string{"FOUND-KEYS-AAAA0000", "FOUND-KEYS-BBBB0000", "FOUND-KEYS-CCCC0000"}
	got := ids(matches)
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s (ranking inherits index order)", i, got[i], want[i])
		}
	}
}

func TestRank_MalformedHitsSkipped(t *testing.T) {
	r := NewRanker(nil)
	nan := math.NaN()
	hits := []RawHit{
		{ItemID: "FOUND-KEYS-AAAA0000", Score: nil},
		{ItemID: "FOUND-KEYS-BBBB0000", Score: &nan},
		{ItemID: "FOUND-KEYS-CCCC0000", Score: score(0.8)},
	}
	matches, skipped := r.Rank(hits, "lost", 0.3)
	if len(matches) != 1 || matches[0].ItemID != "FOUND-KEYS-CCCC0000" {
		t.Errorf("matches = %v, want only the well-formed hit", ids(matches))
	}
	if len(skipped) != 2 {
		t.Fatalf("skipped = %v, want 2 diagnostics", skipped)
	}
	if skipped[0].Reason != "missing score" || skipped[1].Reason != "non-numeric score" {
		t.Errorf("skip reasons = %v", skipped)
	}
}

func TestRank_StaticReason(t *testing.T) {
	r := NewRanker(nil)
	matches, _ := r.Rank([]RawHit{{ItemID: "FOUND-KEYS-AAAA0000", Score: score(1.0)}}, "lost", 0.3)
	if len(matches) != 1 {
		t.Fatal("expected one match")
	}
	if matches[0].Reason != "Image and description are semantically similar" {
		t.Errorf("reason = %q", matches[0].Reason)
	}
}

func TestHitsFromIndex(t *testing.T) {
	raw := HitsFromIndex([]*vector.Hit{
		{ItemID: "FOUND-KEYS-AAAA0000", Score: 0.9},
		{ItemID: "LOST-BAG-BBBB0000", Score: 0.4},
	})
	if len(raw) != 2 {
		t.Fatalf("got %d raw hits", len(raw))
	}
	if raw[0].Score == nil || *raw[0].Score != 0.9 {
		t.Errorf("raw[0] = %+v", raw[0])
	}
	// Each hit must carry its own score, not share the loop variable.
	if *raw[0].Score == *raw[1].Score {
		t.Error("scores should differ between hits")
	}
}

func ids(matches []*models.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.ItemID
	}
	return out
}
