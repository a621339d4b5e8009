package data

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveInference(t *testing.T) {
	s := setupTestDB(t)

	inf := &Inference{
		Model:       "vision-glass (15 features)",
		Threshold:   0.45,
		Probability: 0.72,
		HighRisk:    true,
		Record:      `{"age":65}`,
	}
	require.NoError(t, s.SaveInference(inf))
	assert.NotEmpty(t, inf.ID)
	assert.NotEmpty(t, inf.Created)

	list, err := s.GetRecentInferences(10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, inf.ID, list[0].ID)
	assert.Equal(t, inf.Model, list[0].Model)
	assert.Equal(t, inf.Threshold, list[0].Threshold)
	assert.Equal(t, inf.Probability, list[0].Probability)
	assert.True(t, list[0].HighRisk)
	assert.Equal(t, inf.Record, list[0].Record)
}

func TestSaveInference_Nil(t *testing.T) {
	s := setupTestDB(t)
	assert.Error(t, s.SaveInference(nil))
}

func TestSaveInference_DuplicateID(t *testing.T) {
	s := setupTestDB(t)

	inf := &Inference{ID: "fixed", Model: "m", Record: "{}"}
	require.NoError(t, s.SaveInference(inf))
	assert.Error(t, s.SaveInference(&Inference{ID: "fixed", Model: "m", Record: "{}"}))
}

func TestGetRecentInferences(t *testing.T) {
	s := setupTestDB(t)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		err := s.SaveInference(&Inference{
			Created:     base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
			Model:       "m",
			Probability: float64(i) / 10,
			Record:      "{}",
		})
		require.NoError(t, err)
	}

	list, err := s.GetRecentInferences(3)
	require.NoError(t, err)
	require.Len(t, list, 3)

	// newest first
	assert.Equal(t, 0.4, list[0].Probability)
	assert.Equal(t, 0.3, list[1].Probability)
	assert.Equal(t, 0.2, list[2].Probability)
}

func TestGetRecentInferences_DefaultLimit(t *testing.T) {
	s := setupTestDB(t)

	list, err := s.GetRecentInferences(0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetSummary(t *testing.T) {
	s := setupTestDB(t)

	now := time.Now().UTC()
	days := []time.Time{now, now, now.AddDate(0, 0, -1)}
	risk := []bool{true, false, true}
	for i, d := range days {
		err := s.SaveInference(&Inference{
			ID:       fmt.Sprintf("inf-%d", i),
			Created:  d.Format(time.RFC3339),
			Model:    "m",
			HighRisk: risk[i],
			Record:   "{}",
		})
		require.NoError(t, err)
	}

	sum, err := s.GetSummary(7)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.HighRisk)
	require.Len(t, sum.Days, 2)

	// days ascend; yesterday first
	assert.Equal(t, days[2].Format("2006-01-02"), sum.Days[0].Day)
	assert.Equal(t, 1, sum.Days[0].Total)
	assert.Equal(t, now.Format("2006-01-02"), sum.Days[1].Day)
	assert.Equal(t, 2, sum.Days[1].Total)
	assert.Equal(t, 1, sum.Days[1].HighRisk)
}

func TestGetSummary_WindowCutoff(t *testing.T) {
	s := setupTestDB(t)

	old := time.Now().UTC().AddDate(0, 0, -60)
	require.NoError(t, s.SaveInference(&Inference{
		Created: old.Format(time.RFC3339),
		Model:   "m",
		Record:  "{}",
	}))

	sum, err := s.GetSummary(30)
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
	assert.Empty(t, sum.Days)
}
