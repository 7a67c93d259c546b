package fusion

import (
	"math"
	"testing"

	"github.com/otoshimono/otoshimono/internal/vector"
)

func TestNewPolicyDefaults(t *testing.T) {
	p := NewPolicy(0, 0, 0)
	if p.ImageWeight != DefaultImageWeight || p.TextWeight != DefaultTextWeight {
		t.Errorf("weights = %f/%f, want %f/%f", p.ImageWeight, p.TextWeight, DefaultImageWeight, DefaultTextWeight)
	}
	if p.MinDescriptionLen != DefaultMinDescriptionLen {
		t.Errorf("MinDescriptionLen = %d, want %d", p.MinDescriptionLen, DefaultMinDescriptionLen)
	}
}

func TestFuseUnitNorm(t *testing.T) {
	p := NewPolicy(0.6, 0.4, 5)
	imageVec := []float32{1, 0, 0}
	textVec := []float32{0, 1, 0}

	fused := p.Fuse(imageVec, textVec, "brown leather wallet")
	if norm := vector.L2Norm(fused); math.Abs(norm-1) > 1e-6 {
		t.Errorf("fused norm = %f, want 1", norm)
	}
	// Direction of (0.6, 0.4, 0).
	want := 0.6 / math.Sqrt(0.6*0.6+0.4*0.4)
	if math.Abs(float64(fused[0])-want) > 1e-6 {
		t.Errorf("fused[0] = %f, want %f", fused[0], want)
	}
}

func TestFuseShortDescriptionUsesImageOnly(t *testing.T) {
	p := NewPolicy(0.6, 0.4, 5)
	imageVec := []float32{0, 1, 0}
	textVec := []float32{1, 0, 0}

	// Length is counted in characters, not bytes: a three-character Japanese
	// description is still too short even though it spans nine bytes.
	for _, desc := range []string{"", "key", "  ab  ", "1234", "傘忘れ", "  赤い傘  "} {
		fused := p.Fuse(imageVec, textVec, desc)
		for i := range imageVec {
			if fused[i] != imageVec[i] {
				t.Errorf("desc %q: fused = %v, want image vector unchanged", desc, fused)
				break
			}
		}
	}
}

func TestFuseMultibyteDescriptionLongEnough(t *testing.T) {
	p := NewPolicy(0.6, 0.4, 5)
	imageVec := []float32{0, 1, 0}
	textVec := []float32{1, 0, 0}

	fused := p.Fuse(imageVec, textVec, "黒い折りたたみ傘")
	if fused[0] == 0 {
		t.Errorf("fused = %v, want text signal blended in", fused)
	}
}

func TestFuseDoesNotMutateInputs(t *testing.T) {
	p := NewPolicy(0.6, 0.4, 5)
	imageVec := []float32{1, 0}
	textVec := []float32{0, 1}
	fused := p.Fuse(imageVec, textVec, "silver keychain")

	if imageVec[0] != 1 || imageVec[1] != 0 || textVec[0] != 0 || textVec[1] != 1 {
		t.Error("Fuse mutated its inputs")
	}
	fused[0] = 42
	if imageVec[0] == 42 {
		t.Error("fused result aliases the image vector")
	}

	// Image-only path must also return a fresh slice.
	short := p.Fuse(imageVec, textVec, "ab")
	short[0] = 42
	if imageVec[0] == 42 {
		t.Error("image-only result aliases the image vector")
	}
}

func TestFuseZeroNormFallsBackToImage(t *testing.T) {
	// Anti-parallel vectors with coinciding weights cancel exactly.
	p := NewPolicy(0.5, 0.5, 5)
	imageVec := []float32{1, 0}
	textVec := []float32{-1, 0}

	fused := p.Fuse(imageVec, textVec, "black umbrella")
	if fused[0] != 1 || fused[1] != 0 {
		t.Errorf("fused = %v, want image vector fallback", fused)
	}
}

func TestFuseLengthMismatchFallsBackToImage(t *testing.T) {
	p := NewPolicy(0.6, 0.4, 5)
	imageVec := []float32{0.6, 0.8}
	textVec := []float32{1, 0, 0}

	fused := p.Fuse(imageVec, textVec, "blue backpack with stickers")
	if fused[0] != 0.6 || fused[1] != 0.8 {
		t.Errorf("fused = %v, want image vector fallback", fused)
	}
}
