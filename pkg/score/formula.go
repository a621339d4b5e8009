package score

import (
	"fmt"
	"math"

	"github.com/vantage-health/visor/pkg/schema"
)

const (
	// Default clamp bounds: the formula never reports absolute certainty.
	ClampLowDefault  = 0.015
	ClampHighDefault = 0.985
)

// BaseRateConfig injects an external reference table (encoded region code
// to prevalence) as an additive risk signal. The table is read-only
// reference data, not derived by the pipeline.
type BaseRateConfig struct {
	// Feature names the schema column whose encoded code keys the table.
	Feature string          `json:"feature" yaml:"feature"`
	Weight  float64         `json:"weight" yaml:"weight"`
	Rates   map[int]float64 `json:"rates" yaml:"rates"`
	// Default applies when the encoded code has no table entry.
	Default float64 `json:"default" yaml:"default"`
}

// FormulaConfig carries the hand-tuned domain weights. Weights are keyed by
// feature name and resolved to vector positions against the schema, so
// tuning never touches pipeline control flow.
type FormulaConfig struct {
	Name     string             `json:"name,omitempty" yaml:"name,omitempty"`
	Weights  map[string]float64 `json:"weights" yaml:"weights"`
	Bias     float64            `json:"bias" yaml:"bias"`
	ClampLow float64            `json:"clamp_low,omitempty" yaml:"clamp_low,omitempty"`
	// ClampHigh caps the reported probability below 1.
	ClampHigh float64         `json:"clamp_high,omitempty" yaml:"clamp_high,omitempty"`
	BaseRate  *BaseRateConfig `json:"base_rate,omitempty" yaml:"base_rate,omitempty"`
}

// Formula is the deterministic closed-form scorer: a weighted sum of domain
// risk factors plus an optional regional base-rate term, passed through a
// sigmoid and clamped to an open sub-interval of (0, 1).
//
// The base-rate column must reach the scorer unscaled (identity center and
// scale in the fitted normalizer) so the encoded code survives intact;
// bundle assembly enforces that.
type Formula struct {
	name      string
	weights   []float64 // by vector position
	bias      float64
	lo, hi    float64
	baseIdx   int // -1 when no base-rate term
	baseW     float64
	baseRates map[int]float64
	baseDef   float64
}

// NewFormula resolves the named weights against the schema.
func NewFormula(s *schema.Schema, cfg FormulaConfig) (*Formula, error) {
	if s == nil {
		return nil, fmt.Errorf("formula scorer requires a schema")
	}
	if len(cfg.Weights) == 0 {
		return nil, fmt.Errorf("formula scorer requires at least one weight")
	}

	lo, hi := cfg.ClampLow, cfg.ClampHigh
	if lo == 0 && hi == 0 {
		lo, hi = ClampLowDefault, ClampHighDefault
	}
	if lo <= 0 || hi >= 1 || lo >= hi {
		return nil, fmt.Errorf("clamp bounds must satisfy 0 < low < high < 1, got [%f, %f]", lo, hi)
	}

	f := &Formula{
		name:    cfg.Name,
		weights: make([]float64, s.Len()),
		bias:    cfg.Bias,
		lo:      lo,
		hi:      hi,
		baseIdx: -1,
	}
	if f.name == "" {
		f.name = "formula"
	}

	for name, w := range cfg.Weights {
		i, ok := s.Index(name)
		if !ok {
			return nil, fmt.Errorf("weight references unknown feature: %s", name)
		}
		f.weights[i] = w
	}

	if br := cfg.BaseRate; br != nil {
		i, ok := s.Index(br.Feature)
		if !ok {
			return nil, fmt.Errorf("base rate references unknown feature: %s", br.Feature)
		}
		f.baseIdx = i
		f.baseW = br.Weight
		f.baseDef = br.Default
		f.baseRates = make(map[int]float64, len(br.Rates))
		for k, v := range br.Rates {
			f.baseRates[k] = v
		}
	}

	return f, nil
}

// Len returns the vector length the formula was resolved for.
func (f *Formula) Len() int {
	return len(f.weights)
}

func (f *Formula) Describe() string {
	return fmt.Sprintf("%s (%d features)", f.name, len(f.weights))
}

func (f *Formula) Score(v []float64) (float64, error) {
	if len(v) != len(f.weights) {
		return 0, fmt.Errorf("vector length %d does not match formula length %d", len(v), len(f.weights))
	}

	z := f.bias
	for i, w := range f.weights {
		z += w * v[i]
	}

	if f.baseIdx >= 0 {
		code := int(math.Round(v[f.baseIdx]))
		rate, ok := f.baseRates[code]
		if !ok {
			rate = f.baseDef
		}
		z += f.baseW * rate
	}

	p := sigmoid(z)
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("%w: formula produced %f", ErrUnavailable, p)
	}
	return clamp(p, f.lo, f.hi), nil
}
