package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if math.Abs(norm-1.0) > 1e-6 {
		t.Errorf("norm after normalize: got %f, want 1", norm)
	}

	zero := []float32{0, 0, 0}
	NormalizeL2(zero)
	for _, x := range zero {
		if x != 0 {
			t.Errorf("zero vector should be unchanged, got %v", zero)
		}
	}
}
