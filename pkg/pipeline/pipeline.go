package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vantage-health/visor/pkg/encode"
	"github.com/vantage-health/visor/pkg/scale"
	"github.com/vantage-health/visor/pkg/schema"
	"github.com/vantage-health/visor/pkg/score"
)

// ErrInvalidThreshold indicates a decision threshold outside the open
// interval (0, 1). The caller must correct and retry.
var ErrInvalidThreshold = errors.New("threshold must be in the open interval (0, 1)")

// Result is the outcome of one inference call: a probability and its
// threshold comparison. It is derived per call and never persisted by the
// pipeline itself.
type Result struct {
	Probability float64 `json:"probability" yaml:"probability"`
	Threshold   float64 `json:"threshold" yaml:"threshold"`
	HighRisk    bool    `json:"high_risk" yaml:"high_risk"`
	Model       string  `json:"model,omitempty" yaml:"model,omitempty"`
}

// Pipeline aligns a partial record to the fitted schema, encodes
// categoricals, scales, scores, and classifies against a threshold. All
// parts are loaded once and read-only afterwards, so one Pipeline serves
// concurrent calls without locking; every call works on its own buffers.
type Pipeline struct {
	schema    *schema.Schema
	registry  *encode.Registry
	norm      *scale.Normalizer
	scorer    score.Scorer
	threshold float64
}

type sized interface {
	Len() int
}

// New wires the fitted parts together, cross-checking that every stage was
// fitted for the same vector length. A mismatch here would not crash at
// inference time, it would silently misscore, so construction refuses it.
func New(s *schema.Schema, reg *encode.Registry, norm *scale.Normalizer, sc score.Scorer, defaultThreshold float64) (*Pipeline, error) {
	if s == nil {
		return nil, fmt.Errorf("pipeline requires a schema")
	}
	if sc == nil {
		return nil, fmt.Errorf("pipeline requires a scorer")
	}
	if reg == nil {
		reg = encode.NewRegistry(nil)
	}
	if norm == nil {
		norm = scale.Identity(s.Len())
	}
	if norm.Len() != s.Len() {
		return nil, fmt.Errorf("normalizer fitted for %d features, schema has %d", norm.Len(), s.Len())
	}
	if v, ok := sc.(sized); ok && v.Len() != s.Len() {
		return nil, fmt.Errorf("scorer fitted for %d features, schema has %d", v.Len(), s.Len())
	}
	if err := checkThreshold(defaultThreshold); err != nil {
		return nil, fmt.Errorf("default %w", err)
	}

	return &Pipeline{
		schema:    s,
		registry:  reg,
		norm:      norm,
		scorer:    sc,
		threshold: defaultThreshold,
	}, nil
}

// Schema returns the fitted schema.
func (p *Pipeline) Schema() *schema.Schema {
	return p.schema
}

// Model returns the scorer identity.
func (p *Pipeline) Model() string {
	return p.scorer.Describe()
}

// DefaultThreshold returns the threshold used by InferDefault.
func (p *Pipeline) DefaultThreshold() float64 {
	return p.threshold
}

// Infer runs one record through the full pipeline: align, encode, scale,
// score, classify. Equal to the threshold counts as high risk. Identical
// inputs against unchanged artifacts produce identical results.
func (p *Pipeline) Infer(rec schema.Record, threshold float64) (*Result, error) {
	if err := checkThreshold(threshold); err != nil {
		return nil, err
	}

	aligned := p.schema.Align(rec)

	vec := make([]float64, len(aligned))
	for i, f := range p.schema.Features() {
		v, err := p.prepare(f, aligned[i])
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", f.Name, err)
		}
		vec[i] = v
	}

	scaled, err := p.norm.Transform(vec)
	if err != nil {
		return nil, err
	}

	prob, err := p.scorer.Score(scaled)
	if err != nil {
		return nil, err
	}

	return &Result{
		Probability: prob,
		Threshold:   threshold,
		HighRisk:    prob >= threshold,
		Model:       p.scorer.Describe(),
	}, nil
}

// InferDefault runs Infer with the bundle's default threshold.
func (p *Pipeline) InferDefault(rec schema.Record) (*Result, error) {
	return p.Infer(rec, p.threshold)
}

// prepare turns one aligned raw value into its numeric form: encoded code
// for features with a fitted encoder, coerced number for everything else.
func (p *Pipeline) prepare(f schema.Feature, raw any) (float64, error) {
	if f.Kind == schema.KindCategorical && p.registry.Has(f.Name) {
		return float64(p.registry.Encode(f.Name, stringify(raw))), nil
	}
	return toFloat(raw)
}

func checkThreshold(t float64) error {
	if t <= 0 || t >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, t)
	}
	return nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot coerce %q to a number", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}
