package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/veristat/apiserver/internal/model"
	"github.com/veristat/apiserver/internal/services"
	"github.com/veristat/apiserver/internal/store"
	"github.com/veristat/apiserver/types"
)

const (
	defaultHistoryLimit = 50
	defaultPage         = 1
	defaultLimit        = 20
	maxLimit            = 100
)

// PredictHandler provides the classification and history endpoints.
type PredictHandler struct {
	predictionService *services.PredictionService
}

func NewPredictHandler(predictionService *services.PredictionService) *PredictHandler {
	return &PredictHandler{predictionService: predictionService}
}

// PredictRouter registers prediction routes. All of them require an
// authenticated, active user.
func PredictRouter(r chi.Router, handler *PredictHandler, requireUser func(http.Handler) http.Handler) {
	r.Use(requireUser)
	r.Post("/predict", handler.Predict)
	r.Get("/predictions", handler.History)
}

// AdminRouter registers the admin-only history and stats routes.
func AdminRouter(r chi.Router, handler *PredictHandler, requireUser, requireAdmin func(http.Handler) http.Handler) {
	r.Use(requireUser, requireAdmin)
	r.Get("/predictions", handler.ListAll)
	r.Get("/stats", handler.Stats)
}

// Predict classifies one statement and persists the result.
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	var input types.PredictionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	result, err := h.predictionService.Predict(r.Context(), user.Username, input)
	if err != nil {
		if errors.Is(err, model.ErrMissingInput) {
			writeError(w, http.StatusBadRequest, model.ErrMissingInput.Error())
			return
		}
		if store.IsUnavailable(err) {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		// Anything else is an artifact or feature-order contract violation.
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// History returns the caller's own predictions, newest first.
func (h *PredictHandler) History(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if parsed > maxLimit {
			parsed = maxLimit
		}
		limit = parsed
	}

	predictions, err := h.predictionService.History(r.Context(), user.Username, limit)
	if err != nil {
		if store.IsUnavailable(err) {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if predictions == nil {
		predictions = []types.Prediction{}
	}

	writeJSON(w, http.StatusOK, HistoryResponse{Predictions: predictions})
}

// ListAll returns paginated history across all users.
func (h *PredictHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	page := defaultPage
	limit := defaultLimit

	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = parsed
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if parsed > maxLimit {
			parsed = maxLimit
		}
		limit = parsed
	}

	predictions, total, err := h.predictionService.ListAll(r.Context(), (page-1)*limit, limit)
	if err != nil {
		if store.IsUnavailable(err) {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load predictions")
		return
	}
	if predictions == nil {
		predictions = []types.Prediction{}
	}

	writeJSON(w, http.StatusOK, AdminHistoryResponse{
		Predictions: predictions,
		Total:       total,
		Page:        page,
		Limit:       limit,
	})
}

// Stats returns aggregate counts for the admin dashboard.
func (h *PredictHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.predictionService.Stats(r.Context())
	if err != nil {
		if store.IsUnavailable(err) {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type HistoryResponse struct {
	Predictions []types.Prediction `json:"predictions"`
}

type AdminHistoryResponse struct {
	Predictions []types.Prediction `json:"predictions"`
	Total       int                `json:"total"`
	Page        int                `json:"page"`
	Limit       int                `json:"limit"`
}
