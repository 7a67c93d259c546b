// Package fusion combines image and text embeddings into a single query vector.
package fusion

import (
	"strings"
	"unicode/utf8"

	"github.com/otoshimono/otoshimono/internal/vector"
	"github.com/otoshimono/otoshimono/pkg/utils"
)

// Defaults for the fusion policy. The weights need not sum to 1; the fused
// vector is re-normalized to unit length.
const (
	DefaultImageWeight       = 0.6
	DefaultTextWeight        = 0.4
	DefaultMinDescriptionLen = 5
)

// Policy fuses an image embedding and a text embedding into one query vector.
// When the description is too short the textual signal is considered
// unreliable and the image embedding is used alone.
type Policy struct {
	ImageWeight       float64
	TextWeight        float64
	MinDescriptionLen int
}

// NewPolicy returns a policy with the given parameters; zero values fall back
// to the defaults.
func NewPolicy(imageWeight, textWeight float64, minDescriptionLen int) *Policy {
	p := &Policy{
		ImageWeight:       imageWeight,
		TextWeight:        textWeight,
		MinDescriptionLen: minDescriptionLen,
	}
	if p.ImageWeight == 0 && p.TextWeight == 0 {
		p.ImageWeight = DefaultImageWeight
		p.TextWeight = DefaultTextWeight
	}
	if p.MinDescriptionLen == 0 {
		p.MinDescriptionLen = DefaultMinDescriptionLen
	}
	return p
}

// Fuse returns the unit-normalized weighted combination of imageVec and
// textVec. Pure: inputs are never mutated, the result is always a fresh
// slice. Falls back to the image embedding alone when:
//   - the trimmed description is shorter than MinDescriptionLen,
//   - the vectors disagree in length (broken embedder contract),
//   - the weighted sum has zero norm (anti-parallel degenerate case).
func (p *Policy) Fuse(imageVec, textVec []float32, description string) []float32 {
	if utf8.RuneCountInString(strings.TrimSpace(description)) < p.MinDescriptionLen {
		return copyVec(imageVec)
	}
	if len(textVec) != len(imageVec) {
		return copyVec(imageVec)
	}

	fused := make([]float32, len(imageVec))
	for i := range imageVec {
		fused[i] = float32(p.ImageWeight)*imageVec[i] + float32(p.TextWeight)*textVec[i]
	}
	if vector.L2Norm(fused) == 0 {
		return copyVec(imageVec)
	}
	utils.NormalizeL2(fused)
	return fused
}

func copyVec(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
