package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fraudguard/db"
	"fraudguard/ml"

	"go.uber.org/zap"
)

// PredictionRecorder 记录并查询预测结果，audit.Recorder实现该接口
type PredictionRecorder interface {
	Record(ctx context.Context, outcome ml.Outcome, tx ml.Transaction, modelVersion string) db.Prediction
	Lookup(ctx context.Context, id string) (db.Prediction, error)
}

type handlers struct {
	Deps
}

// RegisterHandlers 注册所有路由
func RegisterHandlers(mux *http.ServeMux, deps Deps) {
	h := &handlers{Deps: deps}

	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(staticFS())))

	mux.HandleFunc("GET /api/model", h.handleModelInfo)
	mux.HandleFunc("GET /api/predictions/{id}", h.handlePrediction)
	if deps.Hub != nil {
		mux.Handle("GET /api/ws/predictions", deps.Hub)
	}
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}
}

func (h *handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	if err := renderPage(w, newPageData(nil)); err != nil {
		h.Logger.Error("render index failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

func (h *handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	tx, raw, err := parseTransactionForm(r)
	if err != nil {
		var formErr *FormError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &formErr):
			http.Error(w, formErr.Error(), http.StatusBadRequest)
		case errors.As(err, &maxErr):
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		default:
			h.Logger.Debug("unreadable form", zap.Error(err))
			http.Error(w, "malformed form body", http.StatusBadRequest)
		}
		return
	}

	start := time.Now()
	outcome := h.Predictor.Predict(r.Context(), tx)
	elapsed := time.Since(start)

	if h.Metrics != nil {
		h.Metrics.ObserveOutcome(outcome, elapsed)
	}

	artifact := h.Predictor.Artifact()
	var record db.Prediction
	if h.Recorder != nil {
		record = h.Recorder.Record(r.Context(), outcome, tx, artifact.Metadata().Version)
	}

	fields := []zap.Field{
		zap.String("request_id", GetRequestID(r.Context())),
		zap.String("prediction_id", record.ID),
		zap.String("outcome", string(outcome.Kind)),
	}
	switch outcome.Kind {
	case ml.OutcomeSuccess:
		h.Logger.Info("prediction", append(fields,
			zap.String("verdict", outcome.Verdict.String()),
			zap.Float64("probability", outcome.Probability),
			zap.Float64("threshold", outcome.Threshold))...)
	case ml.OutcomeModelUnavailable:
		h.Logger.Warn("prediction skipped, model not loaded", fields...)
	default:
		h.Logger.Error("prediction failed", append(fields, zap.Error(outcome.Err))...)
	}

	data := newPageData(raw)
	data.Result = newResultView(outcome, record, tx["Amount"])
	if err := renderPage(w, data); err != nil {
		h.Logger.Error("render prediction failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *handlers) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Predictor.Artifact().Info())
}

func (h *handlers) handlePrediction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.Recorder == nil {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "audit disabled"})
		return
	}
	record, err := h.Recorder.Lookup(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "prediction not found"})
		return
	}
	if err != nil {
		h.Logger.Error("prediction lookup failed", zap.String("id", id), zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}
	respondJSON(w, http.StatusOK, record)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
