package schema

import (
	"fmt"
	"strings"
)

const (
	// KindNumeric marks a continuous or integer-valued feature.
	KindNumeric = "numeric"
	// KindCategorical marks a label-valued feature that requires encoding.
	KindCategorical = "categorical"

	numericDefault     = float64(0)
	categoricalDefault = "0"
)

// Feature is a single named input dimension the scorer consumes.
type Feature struct {
	Name    string `json:"name" yaml:"name"`
	Kind    string `json:"kind" yaml:"kind"`
	Default any    `json:"default,omitempty" yaml:"default,omitempty"`
}

// Record is a raw partial input: feature name to string, int, or float value.
// Keys not present in the schema are ignored.
type Record map[string]any

// Schema is the canonical ordered feature list the scorer was fitted on.
// The order is load-once and immutable: the scorer must always receive a
// vector whose length and position match this schema exactly, so any
// reordering silently corrupts predictions.
type Schema struct {
	features []Feature
	index    map[string]int
}

// New validates the feature list and returns an immutable schema.
func New(features []Feature) (*Schema, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("schema requires at least one feature")
	}

	idx := make(map[string]int, len(features))
	list := make([]Feature, len(features))

	for i, f := range features {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return nil, fmt.Errorf("feature at position %d has no name", i)
		}
		if _, ok := idx[name]; ok {
			return nil, fmt.Errorf("duplicate feature: %s", name)
		}
		switch f.Kind {
		case KindNumeric, KindCategorical:
		case "":
			f.Kind = KindNumeric
		default:
			return nil, fmt.Errorf("feature %s has unknown kind: %s", name, f.Kind)
		}
		if f.Default == nil {
			if f.Kind == KindCategorical {
				f.Default = categoricalDefault
			} else {
				f.Default = numericDefault
			}
		}
		f.Name = name
		idx[name] = i
		list[i] = f
	}

	return &Schema{features: list, index: idx}, nil
}

// Len returns the number of features.
func (s *Schema) Len() int {
	return len(s.features)
}

// Features returns a copy of the ordered feature list.
func (s *Schema) Features() []Feature {
	out := make([]Feature, len(s.features))
	copy(out, s.features)
	return out
}

// Index returns the vector position of the named feature.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Names returns the ordered feature names.
func (s *Schema) Names() []string {
	out := make([]string, len(s.features))
	for i, f := range s.features {
		out[i] = f.Name
	}
	return out
}

// Align maps a partial record onto the full schema order. Every feature
// missing from the record resolves to its default; keys outside the schema
// are dropped. The returned slice is freshly allocated on every call and
// always has exactly Len() elements. Missing fields are not an error:
// defaulting is silent, so callers that care about completeness must check
// the record themselves before aligning.
func (s *Schema) Align(rec Record) []any {
	out := make([]any, len(s.features))
	for i, f := range s.features {
		if v, ok := rec[f.Name]; ok && v != nil {
			out[i] = v
			continue
		}
		out[i] = f.Default
	}
	return out
}
