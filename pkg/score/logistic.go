package score

import (
	"fmt"
	"math"
)

// Logistic scores with externally fitted, calibrated logistic-regression
// coefficients: p = sigmoid(w·v + b). The model is applied strictly as
// fitted; nothing here retrains or mutates it.
type Logistic struct {
	name    string
	weights []float64
	bias    float64
}

// NewLogistic copies the fitted coefficients into an immutable scorer.
func NewLogistic(name string, weights []float64, bias float64) (*Logistic, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("logistic scorer requires at least one coefficient")
	}
	if name == "" {
		name = "logistic"
	}
	w := make([]float64, len(weights))
	copy(w, weights)
	return &Logistic{name: name, weights: w, bias: bias}, nil
}

// Len returns the vector length the coefficients were fitted for.
func (s *Logistic) Len() int {
	return len(s.weights)
}

func (s *Logistic) Describe() string {
	return fmt.Sprintf("%s (%d features)", s.name, len(s.weights))
}

func (s *Logistic) Score(v []float64) (float64, error) {
	if len(v) != len(s.weights) {
		return 0, fmt.Errorf("vector length %d does not match model length %d", len(v), len(s.weights))
	}

	z := s.bias
	for i, w := range s.weights {
		z += w * v[i]
	}

	p := sigmoid(z)
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("%w: model produced %f", ErrUnavailable, p)
	}
	return p, nil
}
