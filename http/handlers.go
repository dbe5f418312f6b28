package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sentilyzer/db"
	"sentilyzer/inference"
	"sentilyzer/monitoring"
)

// APIVersion is reported by /health.
const APIVersion = "1.0.0"

// API serves the prediction endpoints. Hub and Store are optional.
type API struct {
	engine *inference.Engine
	hub    *monitoring.StatisticsHub
	store  *db.Store
	logger *zap.Logger
}

func NewAPI(engine *inference.Engine, hub *monitoring.StatisticsHub, store *db.Store, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{engine: engine, hub: hub, store: store, logger: logger}
}

// RegisterHandlers mounts every route on mux.
func (a *API) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("POST /predict_batch", a.handlePredictBatch)
	mux.HandleFunc("GET /api/training/runs", a.handleTrainingRuns)
	mux.Handle("GET /metrics", promhttp.Handler())
	if a.hub != nil {
		mux.HandleFunc("GET /ws/statistics", a.hub.HandleWebSocket)
	}
}

// PredictBatchRequest is the body of POST /predict_batch.
type PredictBatchRequest struct {
	Comments []string `json:"comments"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	APIVersion  string `json:"api_version"`
}

// BatchStatisticsEvent is what statistics subscribers receive per served batch.
type BatchStatisticsEvent struct {
	Statistics    inference.Statistics `json:"statistics"`
	TotalComments int                  `json:"total_comments"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Sentilyzer comment sentiment API",
		"version": APIVersion,
		"endpoints": map[string]string{
			"health":        "GET /health",
			"predict_batch": "POST /predict_batch",
			"metrics":       "GET /metrics",
			"training_runs": "GET /api/training/runs",
			"statistics":    "GET /ws/statistics",
		},
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded := a.engine != nil && a.engine.Ready()
	resp := HealthResponse{Status: "healthy", ModelLoaded: loaded, APIVersion: APIVersion}
	status := http.StatusOK
	if !loaded {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (a *API) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	if a.engine == nil || !a.engine.Ready() {
		monitoring.PredictionBatchesTotal.WithLabelValues("unavailable").Inc()
		writeError(w, http.StatusServiceUnavailable, inference.ErrUnavailable.Error())
		return
	}

	var req PredictBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		monitoring.PredictionBatchesTotal.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	if err := inference.ValidateRequest(req.Comments); err != nil {
		monitoring.PredictionBatchesTotal.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := a.engine.PredictBatch(r.Context(), req.Comments)
	if err != nil {
		a.writePredictError(w, r, err)
		return
	}

	sentiments := make([]string, len(result.Results))
	for i, p := range result.Results {
		sentiments[i] = p.Sentiment
	}
	monitoring.ObservePredictions(result.TotalComments, sentiments)
	a.publish(result)
	writeJSON(w, http.StatusOK, result)
}

func (a *API) writePredictError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *inference.ValidationError
	var perr *inference.PredictionError
	switch {
	case errors.Is(err, inference.ErrUnavailable):
		monitoring.PredictionBatchesTotal.WithLabelValues("unavailable").Inc()
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		monitoring.PredictionBatchesTotal.WithLabelValues("timeout").Inc()
		writeError(w, http.StatusGatewayTimeout, "prediction timed out")
	case errors.Is(err, context.Canceled):
		monitoring.PredictionBatchesTotal.WithLabelValues("canceled").Inc()
		writeError(w, http.StatusServiceUnavailable, "request canceled")
	case errors.As(err, &verr):
		monitoring.PredictionBatchesTotal.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &perr):
		monitoring.PredictionBatchesTotal.WithLabelValues("error").Inc()
		a.logger.Error("batch prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Int("index", perr.Index),
			zap.Error(perr.Err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		monitoring.PredictionBatchesTotal.WithLabelValues("error").Inc()
		a.logger.Error("batch prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "prediction failed: "+err.Error())
	}
}

// publish pushes the batch statistics to subscribers and records them. Neither may
// fail the request.
func (a *API) publish(result *inference.BatchResult) {
	event := BatchStatisticsEvent{Statistics: result.Statistics, TotalComments: result.TotalComments}
	if a.hub != nil {
		if err := a.hub.Publish(monitoring.BatchStatistics, event); err != nil {
			a.logger.Warn("publish batch statistics", zap.Error(err))
		}
	}
	if a.store == nil {
		return
	}
	fingerprint := ""
	if b := a.engine.Bundle(); b != nil {
		fingerprint = b.Manifest.VocabularyFingerprint
	}
	rec := db.BatchRecord{
		CreatedAt:       time.Now(),
		TotalComments:   result.TotalComments,
		PositivePercent: result.Statistics.PositivePercent,
		NeutralPercent:  result.Statistics.NeutralPercent,
		NegativePercent: result.Statistics.NegativePercent,
		Fingerprint:     fingerprint,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.store.RecordBatchStatistics(ctx, rec); err != nil {
			a.logger.Warn("record batch statistics", zap.Error(err))
		}
	}()
}

func (a *API) handleTrainingRuns(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "training history not configured")
		return
	}
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusUnprocessableEntity, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	runs, err := a.store.RecentTrainingRuns(r.Context(), limit)
	if err != nil {
		a.logger.Error("load training runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load training runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
