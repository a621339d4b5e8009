package data

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	recentLimitDefault = 50

	insertInferenceSQL = `INSERT INTO inference (
			id, created, model, threshold, probability, high_risk, record
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	selectRecentSQL = `SELECT id, created, model, threshold, probability, high_risk, record
		FROM inference
		ORDER BY created DESC
		LIMIT ?
	`

	selectSummarySQL = `SELECT substr(created, 1, 10) AS day,
			COUNT(*) AS total,
			SUM(CASE WHEN high_risk THEN 1 ELSE 0 END) AS high_risk
		FROM inference
		WHERE created >= ?
		GROUP BY day
		ORDER BY day
	`
)

// Inference is one served prediction: the input snapshot and the decision,
// kept for auditing.
type Inference struct {
	ID          string  `json:"id" yaml:"id"`
	Created     string  `json:"created" yaml:"created"`
	Model       string  `json:"model" yaml:"model"`
	Threshold   float64 `json:"threshold" yaml:"threshold"`
	Probability float64 `json:"probability" yaml:"probability"`
	HighRisk    bool    `json:"high_risk" yaml:"high_risk"`
	Record      string  `json:"record" yaml:"record"`
}

// DayCount is the per-day slice of the decision summary.
type DayCount struct {
	Day      string `json:"day" yaml:"day"`
	Total    int    `json:"total" yaml:"total"`
	HighRisk int    `json:"high_risk" yaml:"high_risk"`
}

// Summary aggregates served decisions over a trailing window.
type Summary struct {
	Days     []*DayCount `json:"days" yaml:"days"`
	Total    int         `json:"total" yaml:"total"`
	HighRisk int         `json:"high_risk" yaml:"high_risk"`
}

// SaveInference records a served prediction. A missing ID or timestamp is
// filled in.
func (s *Store) SaveInference(inf *Inference) error {
	if inf == nil {
		return fmt.Errorf("inference required")
	}
	if inf.ID == "" {
		inf.ID = uuid.NewString()
	}
	if inf.Created == "" {
		inf.Created = time.Now().UTC().Format(time.RFC3339)
	}

	_, err := s.db.Exec(s.bind(insertInferenceSQL),
		inf.ID, inf.Created, inf.Model, inf.Threshold, inf.Probability, inf.HighRisk, inf.Record)
	if err != nil {
		return fmt.Errorf("failed to insert inference %s: %w", inf.ID, err)
	}
	return nil
}

// GetRecentInferences returns the most recently served predictions.
func (s *Store) GetRecentInferences(limit int) ([]*Inference, error) {
	if limit <= 0 {
		limit = recentLimitDefault
	}

	rows, err := s.db.Query(s.bind(selectRecentSQL), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent inferences: %w", err)
	}
	defer rows.Close()

	list := make([]*Inference, 0, limit)
	for rows.Next() {
		inf := &Inference{}
		if err := rows.Scan(&inf.ID, &inf.Created, &inf.Model, &inf.Threshold,
			&inf.Probability, &inf.HighRisk, &inf.Record); err != nil {
			return nil, fmt.Errorf("failed to scan inference row: %w", err)
		}
		list = append(list, inf)
	}
	return list, rows.Err()
}

// GetSummary aggregates decisions per day over the trailing number of days.
func (s *Store) GetSummary(days int) (*Summary, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	rows, err := s.db.Query(s.bind(selectSummarySQL), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query inference summary: %w", err)
	}
	defer rows.Close()

	sum := &Summary{Days: make([]*DayCount, 0, days)}
	for rows.Next() {
		d := &DayCount{}
		if err := rows.Scan(&d.Day, &d.Total, &d.HighRisk); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		sum.Days = append(sum.Days, d)
		sum.Total += d.Total
		sum.HighRisk += d.HighRisk
	}
	return sum, rows.Err()
}
