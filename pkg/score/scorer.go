package score

import (
	"errors"
	"math"
)

// ErrUnavailable indicates the scoring backend could not produce a
// probability for a well-formed vector. Callers get the error, never a
// guessed probability.
var ErrUnavailable = errors.New("scorer unavailable")

// Scorer is the opaque probability function at the end of the pipeline:
// a fully prepared (aligned, encoded, scaled) vector in, P(positive class)
// out. Implementations are fitted externally and immutable at inference
// time, so concurrent Score calls are safe.
type Scorer interface {
	// Score returns a probability in [0, 1] for the prepared vector.
	Score(v []float64) (float64, error)
	// Describe returns a short human-readable model identity.
	Describe() string
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clamp(p, lo, hi float64) float64 {
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}
