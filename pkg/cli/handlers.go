package cli

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vantage-health/visor/pkg/bundle"
	"github.com/vantage-health/visor/pkg/pipeline"
	"github.com/vantage-health/visor/pkg/schema"
	"github.com/vantage-health/visor/pkg/score"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryParamInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PredictRequest is the inference API payload: a partial record plus an
// optional per-call threshold.
type PredictRequest struct {
	Record    schema.Record `json:"record"`
	Threshold *float64      `json:"threshold,omitempty"`
}

func predictAPIHandler(cfg *appConfig, pipe *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PredictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.Record) == 0 {
			writeError(w, http.StatusBadRequest, "record is required")
			return
		}

		threshold := pipe.DefaultThreshold()
		if cfg.Conf != nil && cfg.Conf.Threshold > 0 {
			threshold = cfg.Conf.Threshold
		}
		if req.Threshold != nil {
			threshold = *req.Threshold
		}

		res, err := pipe.Infer(req.Record, threshold)
		if err != nil {
			switch {
			case errors.Is(err, pipeline.ErrInvalidThreshold):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, score.ErrUnavailable):
				slog.Error("scorer unavailable", "error", err)
				writeError(w, http.StatusServiceUnavailable, "scoring backend unavailable")
			default:
				writeError(w, http.StatusBadRequest, err.Error())
			}
			return
		}

		if err := saveResult(cfg.Store, req.Record, res); err != nil {
			// The caller still gets their result; losing one audit row is
			// not a reason to fail the inference.
			slog.Error("failed to record inference", "error", err)
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func historyAPIHandler(cfg *appConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryParamInt(r, "limit", 50)
		list, err := cfg.Store.GetRecentInferences(limit)
		if err != nil {
			slog.Error("failed to get recent inferences", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to query history")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func summaryAPIHandler(cfg *appConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := queryParamInt(r, "days", 30)
		sum, err := cfg.Store.GetSummary(days)
		if err != nil {
			slog.Error("failed to get inference summary", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to query summary")
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

// ModelInfo is the public description of the loaded bundle.
type ModelInfo struct {
	Name      string   `json:"name" yaml:"name"`
	Version   string   `json:"version,omitempty" yaml:"version,omitempty"`
	Model     string   `json:"model" yaml:"model"`
	Origin    string   `json:"origin,omitempty" yaml:"origin,omitempty"`
	Threshold float64  `json:"threshold" yaml:"threshold"`
	Features  []string `json:"features" yaml:"features"`
	Encoders  int      `json:"encoders" yaml:"encoders"`
}

func makeModelInfo(pipe *pipeline.Pipeline, b *bundle.Bundle) *ModelInfo {
	return &ModelInfo{
		Name:      b.Name,
		Version:   b.Version,
		Model:     pipe.Model(),
		Origin:    b.Origin(),
		Threshold: pipe.DefaultThreshold(),
		Features:  pipe.Schema().Names(),
		Encoders:  len(b.Encoders),
	}
}

func modelAPIHandler(pipe *pipeline.Pipeline, b *bundle.Bundle) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, makeModelInfo(pipe, b))
	}
}
