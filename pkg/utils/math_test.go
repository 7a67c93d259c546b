package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	t.Run("normalizes to unit norm", func(t *testing.T) {
		x := []float32{3, 4}
		NormalizeL2(x)
		var sum float64
		for _, v := range x {
			sum += float64(v) * float64(v)
		}
		if math.Abs(math.Sqrt(sum)-1.0) > 1e-6 {
			t.Errorf("norm after NormalizeL2 = %v, want 1.0", math.Sqrt(sum))
		}
		if math.Abs(float64(x[0])-0.6) > 1e-6 || math.Abs(float64(x[1])-0.8) > 1e-6 {
			t.Errorf("normalized = %v, want [0.6 0.8]", x)
		}
	})

	t.Run("zero vector unchanged", func(t *testing.T) {
		x := []float32{0, 0, 0}
		NormalizeL2(x)
		for i, v := range x {
			if v != 0 {
				t.Errorf("x[%d] = %v, want 0", i, v)
			}
		}
	})

	t.Run("empty slice", func(t *testing.T) {
		NormalizeL2(nil)
	})
}
