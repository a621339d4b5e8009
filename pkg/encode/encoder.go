package encode

import (
	"log/slog"
)

// FallbackCode is returned for any label outside the fitted vocabulary.
// Out-of-vocabulary input degrades to the default category instead of
// aborting the inference.
const FallbackCode = 0

// Encoder holds the fitted label-to-code table for one categorical feature.
// Tables are built externally from training data and immutable here.
type Encoder struct {
	classes map[string]int
}

// NewEncoder copies the given label table into an immutable encoder.
func NewEncoder(classes map[string]int) *Encoder {
	m := make(map[string]int, len(classes))
	for k, v := range classes {
		m[k] = v
	}
	return &Encoder{classes: m}
}

// Encode returns the code for a known label, or (FallbackCode, false) for an
// unseen one. It never fails.
func (e *Encoder) Encode(label string) (int, bool) {
	if c, ok := e.classes[label]; ok {
		return c, true
	}
	return FallbackCode, false
}

// Classes returns the number of known labels.
func (e *Encoder) Classes() int {
	return len(e.classes)
}

// Registry maps categorical feature names to their fitted encoders.
type Registry struct {
	encoders map[string]*Encoder
}

// NewRegistry builds a registry from per-feature label tables.
func NewRegistry(tables map[string]map[string]int) *Registry {
	enc := make(map[string]*Encoder, len(tables))
	for name, classes := range tables {
		enc[name] = NewEncoder(classes)
	}
	return &Registry{encoders: enc}
}

// Has reports whether the named feature has a registered encoder.
func (r *Registry) Has(feature string) bool {
	_, ok := r.encoders[feature]
	return ok
}

// Len returns the number of registered encoders.
func (r *Registry) Len() int {
	return len(r.encoders)
}

// Encode maps a raw label to its fitted code. Unknown labels map to
// FallbackCode rather than failing; the event is logged for quality
// monitoring but never surfaced to the caller. Features without a
// registered encoder also return FallbackCode, though the pipeline only
// calls Encode for features where Has is true.
func (r *Registry) Encode(feature, raw string) int {
	e, ok := r.encoders[feature]
	if !ok {
		return FallbackCode
	}
	code, known := e.Encode(raw)
	if !known {
		slog.Debug("unknown category, using fallback code", "feature", feature, "value", raw)
	}
	return code
}
