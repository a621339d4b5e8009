package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage-health/visor/pkg/encode"
	"github.com/vantage-health/visor/pkg/scale"
	"github.com/vantage-health/visor/pkg/schema"
	"github.com/vantage-health/visor/pkg/score"
)

// testPipeline builds a small formula-backed pipeline: [age, hear, edu]
// with heavy weights on hearing impairment and education.
func testPipeline(t *testing.T) *Pipeline {
	t.Helper()

	s, err := schema.New([]schema.Feature{
		{Name: "age", Kind: schema.KindNumeric},
		{Name: "hear", Kind: schema.KindCategorical},
		{Name: "edu", Kind: schema.KindCategorical},
	})
	require.NoError(t, err)

	reg := encode.NewRegistry(map[string]map[string]int{
		"hear": {"0": 0, "1": 1},
		"edu":  {"1": 0, "2": 1, "3": 2, "4": 3},
	})

	sc, err := score.NewFormula(s, score.FormulaConfig{
		Weights: map[string]float64{"age": 0.02, "hear": 2.0, "edu": 0.8},
		Bias:    -3.0,
	})
	require.NoError(t, err)

	p, err := New(s, reg, scale.Identity(s.Len()), sc, 0.45)
	require.NoError(t, err)
	return p
}

func TestNew_RequiresSchemaAndScorer(t *testing.T) {
	_, err := New(nil, nil, nil, nil, 0.5)
	assert.Error(t, err)
}

func TestNew_NormalizerLengthMismatch(t *testing.T) {
	s, err := schema.New([]schema.Feature{{Name: "age"}, {Name: "bmi"}})
	require.NoError(t, err)
	sc, err := score.NewLogistic("m", []float64{1, 1}, 0)
	require.NoError(t, err)

	_, err = New(s, nil, scale.Identity(3), sc, 0.5)
	assert.Error(t, err)
}

func TestNew_ScorerLengthMismatch(t *testing.T) {
	s, err := schema.New([]schema.Feature{{Name: "age"}, {Name: "bmi"}})
	require.NoError(t, err)
	sc, err := score.NewLogistic("m", []float64{1, 1, 1}, 0)
	require.NoError(t, err)

	_, err = New(s, nil, nil, sc, 0.5)
	assert.Error(t, err)
}

func TestNew_InvalidDefaultThreshold(t *testing.T) {
	s, err := schema.New([]schema.Feature{{Name: "age"}})
	require.NoError(t, err)
	sc, err := score.NewLogistic("m", []float64{1}, 0)
	require.NoError(t, err)

	_, err = New(s, nil, nil, sc, 0)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestInfer_InvalidThreshold(t *testing.T) {
	p := testPipeline(t)

	for _, th := range []float64{0, 1, -0.1, 1.5} {
		_, err := p.Infer(schema.Record{"age": 65}, th)
		assert.ErrorIs(t, err, ErrInvalidThreshold, "threshold %v", th)
	}
}

func TestInfer_HighRiskScenario(t *testing.T) {
	p := testPipeline(t)

	res, err := p.Infer(schema.Record{"age": 65, "hear": "1", "edu": "4"}, 0.45)
	require.NoError(t, err)
	assert.Greater(t, res.Probability, 0.45)
	assert.True(t, res.HighRisk)
}

func TestInfer_PartialRecordDefaultsLow(t *testing.T) {
	p := testPipeline(t)

	res, err := p.Infer(schema.Record{"age": 45}, 0.45)
	require.NoError(t, err)
	assert.Less(t, res.Probability, 0.45)
	assert.False(t, res.HighRisk)
}

func TestInfer_UnknownCategoryEqualsDefault(t *testing.T) {
	p := testPipeline(t)

	unknown, err := p.Infer(schema.Record{"age": 65, "hear": "9"}, 0.45)
	require.NoError(t, err)
	zero, err := p.Infer(schema.Record{"age": 65, "hear": "0"}, 0.45)
	require.NoError(t, err)

	assert.Equal(t, zero.Probability, unknown.Probability)
	assert.Equal(t, zero.HighRisk, unknown.HighRisk)
}

func TestInfer_ThresholdBoundaryInclusive(t *testing.T) {
	p := testPipeline(t)
	rec := schema.Record{"age": 65, "hear": "1"}

	first, err := p.Infer(rec, 0.5)
	require.NoError(t, err)

	// probability exactly equal to the threshold counts as high risk
	at, err := p.Infer(rec, first.Probability)
	require.NoError(t, err)
	assert.True(t, at.HighRisk)
}

func TestInfer_ThresholdMonotone(t *testing.T) {
	p := testPipeline(t)
	rec := schema.Record{"age": 65, "hear": "1", "edu": "3"}

	strict, err := p.Infer(rec, 0.985)
	require.NoError(t, err)
	loose, err := p.Infer(rec, 0.015)
	require.NoError(t, err)

	// lowering the threshold can only flip low to high, never the reverse
	if strict.HighRisk {
		assert.True(t, loose.HighRisk)
	}
	assert.Equal(t, strict.Probability, loose.Probability)
}

func TestInfer_Idempotent(t *testing.T) {
	p := testPipeline(t)
	rec := schema.Record{"age": 72, "hear": "1", "edu": "2"}

	first, err := p.Infer(rec, 0.45)
	require.NoError(t, err)
	second, err := p.Infer(rec, 0.45)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestInfer_RangeInvariant(t *testing.T) {
	p := testPipeline(t)

	for _, rec := range []schema.Record{
		{},
		{"age": 120, "hear": "1", "edu": "4"},
		{"age": -5},
	} {
		res, err := p.Infer(rec, 0.45)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Probability, 0.0)
		assert.LessOrEqual(t, res.Probability, 1.0)
	}
}

func TestInfer_NumericCoercion(t *testing.T) {
	p := testPipeline(t)

	asString, err := p.Infer(schema.Record{"age": "65"}, 0.45)
	require.NoError(t, err)
	asNumber, err := p.Infer(schema.Record{"age": 65}, 0.45)
	require.NoError(t, err)
	assert.Equal(t, asNumber.Probability, asString.Probability)
}

func TestInfer_BadNumericValue(t *testing.T) {
	p := testPipeline(t)

	_, err := p.Infer(schema.Record{"age": "sixty-five"}, 0.45)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "age")
}

func TestInfer_CategoricalFromNumber(t *testing.T) {
	p := testPipeline(t)

	// JSON callers send numbers; 1 must hit the same code as "1"
	asNumber, err := p.Infer(schema.Record{"age": 65, "hear": float64(1)}, 0.45)
	require.NoError(t, err)
	asString, err := p.Infer(schema.Record{"age": 65, "hear": "1"}, 0.45)
	require.NoError(t, err)
	assert.Equal(t, asString.Probability, asNumber.Probability)
}

func TestInferDefault(t *testing.T) {
	p := testPipeline(t)

	res, err := p.InferDefault(schema.Record{"age": 65, "hear": "1", "edu": "4"})
	require.NoError(t, err)
	assert.Equal(t, 0.45, res.Threshold)
}

func TestModelAndSchemaAccessors(t *testing.T) {
	p := testPipeline(t)
	assert.Equal(t, 3, p.Schema().Len())
	assert.NotEmpty(t, p.Model())
	assert.Equal(t, 0.45, p.DefaultThreshold())
}
