// Package bundle loads fitted model bundles: a single JSON document that
// carries the ordered feature schema, category encoder tables, scaler
// parameters, and scorer coefficients exported by the training side. The
// bundle is read once at startup and assembled into an immutable pipeline;
// nothing in this package fits, tunes, or mutates a model.
package bundle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/vantage-health/visor/pkg/encode"
	"github.com/vantage-health/visor/pkg/net"
	"github.com/vantage-health/visor/pkg/pipeline"
	"github.com/vantage-health/visor/pkg/scale"
	"github.com/vantage-health/visor/pkg/schema"
	"github.com/vantage-health/visor/pkg/score"
)

const (
	ScorerLogistic = "logistic"
	ScorerFormula  = "formula"
)

// LoadError is the fatal artifact-load failure: the system refuses to serve
// inference until the named artifact loads cleanly.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading model bundle %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ScalerSpec holds fitted per-position affine parameters.
type ScalerSpec struct {
	Center []float64 `json:"center"`
	Scale  []float64 `json:"scale"`
}

// BaseRateSpec is the optional regional base-rate table for formula
// scorers. Rates are keyed by the encoded region code.
type BaseRateSpec struct {
	Feature string             `json:"feature"`
	Weight  float64            `json:"weight"`
	Rates   map[string]float64 `json:"rates"`
	Default float64            `json:"default,omitempty"`
}

// ScorerSpec is the tagged scorer variant. Logistic bundles carry
// positional coefficients and an intercept; formula bundles carry named
// weights, clamp bounds, and an optional base-rate table.
type ScorerSpec struct {
	Type         string             `json:"type"`
	Name         string             `json:"name,omitempty"`
	Coefficients []float64          `json:"coefficients,omitempty"`
	Intercept    float64            `json:"intercept,omitempty"`
	Weights      map[string]float64 `json:"weights,omitempty"`
	Bias         float64            `json:"bias,omitempty"`
	ClampLow     float64            `json:"clamp_low,omitempty"`
	ClampHigh    float64            `json:"clamp_high,omitempty"`
	BaseRate     *BaseRateSpec      `json:"base_rate,omitempty"`
}

// Bundle is the parsed model bundle document.
type Bundle struct {
	Name      string                    `json:"name"`
	Version   string                    `json:"version,omitempty"`
	Threshold float64                   `json:"threshold"`
	Features  []schema.Feature          `json:"features"`
	Encoders  map[string]map[string]int `json:"encoders,omitempty"`
	Scaler    *ScalerSpec               `json:"scaler,omitempty"`
	Scorer    ScorerSpec                `json:"scorer"`

	origin string
}

// Origin returns where the bundle was loaded from.
func (b *Bundle) Origin() string {
	return b.origin
}

// Load reads and parses a bundle file. Every failure wraps *LoadError.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return Parse(data, path)
}

// Fetch retrieves a bundle from a remote registry, with an optional bearer
// token for protected hosts.
func Fetch(ctx context.Context, url, token string) (*Bundle, error) {
	client := net.GetHTTPClient()
	if token != "" {
		client = net.GetOAuthClient(ctx, token)
	}
	data, err := net.GetBytes(client, url)
	if err != nil {
		return nil, &LoadError{Path: url, Err: err}
	}
	return Parse(data, url)
}

// Parse validates raw bundle JSON against the embedded document schema and
// unmarshals it. origin is used only for error reporting.
func Parse(data []byte, origin string) (*Bundle, error) {
	if err := validateBytes(data); err != nil {
		return nil, &LoadError{Path: origin, Err: err}
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, &LoadError{Path: origin, Err: err}
	}
	b.origin = origin
	return &b, nil
}

// Build assembles the immutable inference pipeline from the bundle,
// cross-checking every consistency rule that would otherwise surface as a
// silently wrong prediction.
func (b *Bundle) Build() (*pipeline.Pipeline, error) {
	p, err := b.build()
	if err != nil {
		return nil, &LoadError{Path: b.origin, Err: err}
	}
	return p, nil
}

func (b *Bundle) build() (*pipeline.Pipeline, error) {
	s, err := schema.New(b.Features)
	if err != nil {
		return nil, err
	}

	for name := range b.Encoders {
		i, ok := s.Index(name)
		if !ok {
			return nil, fmt.Errorf("encoder references unknown feature: %s", name)
		}
		if s.Features()[i].Kind != schema.KindCategorical {
			return nil, fmt.Errorf("encoder registered for non-categorical feature: %s", name)
		}
	}
	reg := encode.NewRegistry(b.Encoders)

	norm := scale.Identity(s.Len())
	if b.Scaler != nil {
		norm, err = scale.New(b.Scaler.Center, b.Scaler.Scale)
		if err != nil {
			return nil, err
		}
	}

	sc, err := b.buildScorer(s)
	if err != nil {
		return nil, err
	}

	return pipeline.New(s, reg, norm, sc, b.Threshold)
}

func (b *Bundle) buildScorer(s *schema.Schema) (score.Scorer, error) {
	switch b.Scorer.Type {
	case ScorerLogistic:
		name := b.Scorer.Name
		if name == "" {
			name = b.Name
		}
		return score.NewLogistic(name, b.Scorer.Coefficients, b.Scorer.Intercept)

	case ScorerFormula:
		cfg := score.FormulaConfig{
			Name:      b.Scorer.Name,
			Weights:   b.Scorer.Weights,
			Bias:      b.Scorer.Bias,
			ClampLow:  b.Scorer.ClampLow,
			ClampHigh: b.Scorer.ClampHigh,
		}
		if br := b.Scorer.BaseRate; br != nil {
			rates := make(map[int]float64, len(br.Rates))
			for k, v := range br.Rates {
				code, err := strconv.Atoi(k)
				if err != nil {
					return nil, fmt.Errorf("base rate code %q is not an encoded integer", k)
				}
				rates[code] = v
			}
			cfg.BaseRate = &score.BaseRateConfig{
				Feature: br.Feature,
				Weight:  br.Weight,
				Rates:   rates,
				Default: br.Default,
			}
			if err := b.checkBaseRateScaling(s, br.Feature); err != nil {
				return nil, err
			}
		}
		return score.NewFormula(s, cfg)

	default:
		return nil, fmt.Errorf("unknown scorer type: %s", b.Scorer.Type)
	}
}

// checkBaseRateScaling verifies the base-rate column passes through the
// scaler untouched. The formula scorer recovers the encoded region code
// from the scaled vector, so any centering or scaling on that column would
// silently remap every region.
func (b *Bundle) checkBaseRateScaling(s *schema.Schema, feature string) error {
	if b.Scaler == nil {
		return nil
	}
	i, ok := s.Index(feature)
	if !ok || i >= len(b.Scaler.Center) {
		return nil // unknown feature and length errors reported elsewhere
	}
	if b.Scaler.Center[i] != 0 || b.Scaler.Scale[i] != 1 {
		return fmt.Errorf("base rate feature %s must have identity scaling (center 0, scale 1)", feature)
	}
	return nil
}
