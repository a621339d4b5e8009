package scale

import (
	"fmt"
)

// Normalizer applies a fitted per-position affine transform:
// out[i] = (in[i] - center[i]) / scale[i].
//
// The transform covers the entire vector, including columns that hold
// integer-encoded categoricals. That matches how the scaler was fitted
// upstream, and the fitted scorer expects it, so no column is special-cased.
type Normalizer struct {
	centers []float64
	scales  []float64
}

// New validates the fitted parameters and returns a normalizer. A scale of
// zero (a constant column in the training data) is replaced with 1 so the
// column passes through centered but unscaled.
func New(centers, scales []float64) (*Normalizer, error) {
	if len(centers) == 0 {
		return nil, fmt.Errorf("normalizer requires at least one parameter pair")
	}
	if len(centers) != len(scales) {
		return nil, fmt.Errorf("center/scale length mismatch: %d != %d", len(centers), len(scales))
	}

	c := make([]float64, len(centers))
	s := make([]float64, len(scales))
	copy(c, centers)
	for i, v := range scales {
		if v == 0 {
			v = 1
		}
		if v < 0 {
			return nil, fmt.Errorf("negative scale at position %d: %f", i, v)
		}
		s[i] = v
	}

	return &Normalizer{centers: c, scales: s}, nil
}

// Identity returns a no-op normalizer of the given length.
func Identity(n int) *Normalizer {
	c := make([]float64, n)
	s := make([]float64, n)
	for i := range s {
		s[i] = 1
	}
	nm, _ := New(c, s)
	return nm
}

// Len returns the vector length the normalizer was fitted for.
func (n *Normalizer) Len() int {
	return len(n.centers)
}

// Transform scales a full feature vector. A vector of any other length than
// the fitted one is rejected: scoring a misaligned vector would succeed
// numerically and be silently wrong.
func (n *Normalizer) Transform(v []float64) ([]float64, error) {
	if len(v) != len(n.centers) {
		return nil, fmt.Errorf("vector length %d does not match fitted length %d", len(v), len(n.centers))
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = (x - n.centers[i]) / n.scales[i]
	}
	return out, nil
}
