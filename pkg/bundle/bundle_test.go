package bundle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage-health/visor/pkg/schema"
)

const validLogisticBundle = `{
	"name": "test-model",
	"version": "1.0.0",
	"threshold": 0.45,
	"features": [
		{"name": "age", "kind": "numeric"},
		{"name": "hear", "kind": "categorical"}
	],
	"encoders": {
		"hear": {"0": 0, "1": 1}
	},
	"scaler": {
		"center": [60, 0],
		"scale": [10, 1]
	},
	"scorer": {
		"type": "logistic",
		"coefficients": [0.5, 1.2],
		"intercept": -0.3
	}
}`

const validFormulaBundle = `{
	"name": "test-formula",
	"threshold": 0.5,
	"features": [
		{"name": "age", "kind": "numeric"},
		{"name": "region", "kind": "categorical"}
	],
	"encoders": {
		"region": {"north": 0, "south": 1}
	},
	"scorer": {
		"type": "formula",
		"weights": {"age": 0.02},
		"bias": -2.0,
		"base_rate": {
			"feature": "region",
			"weight": 1.5,
			"rates": {"0": 0.1, "1": 0.3},
			"default": 0.2
		}
	}
}`

func writeBundle(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Valid(t *testing.T) {
	b, err := Load(writeBundle(t, validLogisticBundle))
	require.NoError(t, err)
	assert.Equal(t, "test-model", b.Name)
	assert.Equal(t, "1.0.0", b.Version)
	assert.Equal(t, 0.45, b.Threshold)
	assert.Len(t, b.Features, 2)
	assert.Equal(t, ScorerLogistic, b.Scorer.Type)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)

	var le *LoadError
	assert.ErrorAs(t, err, &le)
	assert.Contains(t, le.Path, "absent.json")
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte("{not json"), "inline")
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "inline", le.Path)
}

func TestParse_SchemaValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", `{"threshold": 0.5, "features": [{"name": "a"}], "scorer": {"type": "logistic", "coefficients": [1]}}`},
		{"missing threshold", `{"name": "m", "features": [{"name": "a"}], "scorer": {"type": "logistic", "coefficients": [1]}}`},
		{"empty features", `{"name": "m", "threshold": 0.5, "features": [], "scorer": {"type": "logistic", "coefficients": [1]}}`},
		{"logistic without coefficients", `{"name": "m", "threshold": 0.5, "features": [{"name": "a"}], "scorer": {"type": "logistic"}}`},
		{"formula without weights", `{"name": "m", "threshold": 0.5, "features": [{"name": "a"}], "scorer": {"type": "formula"}}`},
		{"bad scorer type", `{"name": "m", "threshold": 0.5, "features": [{"name": "a"}], "scorer": {"type": "oracle"}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc), "inline")
			var le *LoadError
			assert.ErrorAs(t, err, &le)
		})
	}
}

func TestBuild_Logistic(t *testing.T) {
	b, err := Load(writeBundle(t, validLogisticBundle))
	require.NoError(t, err)

	p, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 2, p.Schema().Len())
	assert.Equal(t, 0.45, p.DefaultThreshold())

	res, err := p.InferDefault(schema.Record{"age": 70, "hear": "1"})
	require.NoError(t, err)
	assert.Greater(t, res.Probability, 0.0)
	assert.Less(t, res.Probability, 1.0)
}

func TestBuild_Formula(t *testing.T) {
	b, err := Parse([]byte(validFormulaBundle), "inline")
	require.NoError(t, err)

	p, err := b.Build()
	require.NoError(t, err)

	south, err := p.InferDefault(schema.Record{"age": 60, "region": "south"})
	require.NoError(t, err)
	north, err := p.InferDefault(schema.Record{"age": 60, "region": "north"})
	require.NoError(t, err)
	assert.Greater(t, south.Probability, north.Probability)
}

func TestBuild_EncoderForUnknownFeature(t *testing.T) {
	b, err := Parse([]byte(validLogisticBundle), "inline")
	require.NoError(t, err)
	b.Encoders["ghost"] = map[string]int{"x": 1}

	_, err = b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestBuild_EncoderOnNumericFeature(t *testing.T) {
	b, err := Parse([]byte(validLogisticBundle), "inline")
	require.NoError(t, err)
	b.Encoders["age"] = map[string]int{"old": 1}

	_, err = b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-categorical")
}

func TestBuild_ScalerLengthMismatch(t *testing.T) {
	b, err := Parse([]byte(validLogisticBundle), "inline")
	require.NoError(t, err)
	b.Scaler.Center = b.Scaler.Center[:1]

	_, err = b.Build()
	assert.Error(t, err)
}

func TestBuild_BaseRateRequiresIdentityScaling(t *testing.T) {
	b, err := Parse([]byte(validFormulaBundle), "inline")
	require.NoError(t, err)
	b.Scaler = &ScalerSpec{Center: []float64{60, 0.5}, Scale: []float64{10, 2}}

	_, err = b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity scaling")
}

func TestBuild_BaseRateNonIntegerCode(t *testing.T) {
	b, err := Parse([]byte(validFormulaBundle), "inline")
	require.NoError(t, err)
	b.Scorer.BaseRate.Rates = map[string]float64{"north": 0.1}

	_, err = b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoded integer")
}

func TestBuild_WrapsLoadError(t *testing.T) {
	b, err := Parse([]byte(validLogisticBundle), "inline")
	require.NoError(t, err)
	b.Scorer.Coefficients = []float64{0.5}

	_, err = b.Build()
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "inline", le.Path)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(validLogisticBundle))
	}))
	defer srv.Close()

	b, err := Fetch(context.Background(), srv.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "test-model", b.Name)
	assert.Equal(t, srv.URL, b.Origin())
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.URL, "")
	var le *LoadError
	assert.ErrorAs(t, err, &le)
}

func TestDefault(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)
	assert.Equal(t, DefaultName, b.Name)

	p, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, len(b.Features), p.Schema().Len())
}

func TestEmbedded_AllBuild(t *testing.T) {
	names := EmbeddedNames()
	require.NotEmpty(t, names)

	for _, name := range names {
		b, err := Embedded(name)
		require.NoError(t, err, name)
		_, err = b.Build()
		assert.NoError(t, err, name)
	}
}

func TestEmbedded_Unknown(t *testing.T) {
	_, err := Embedded("no-such-model")
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, err.Error(), "no-such-model")
}
