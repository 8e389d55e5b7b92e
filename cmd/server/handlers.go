package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/partsignal/replenish-core/internal/domain"
	"github.com/partsignal/replenish-core/internal/recommend"
	"github.com/partsignal/replenish-core/internal/repository"
)

type handler struct {
	engine *recommend.Engine
	repo   repository.Repository
	logger *logrus.Logger
}

func newHandler(engine *recommend.Engine, repo repository.Repository, logger *logrus.Logger) http.Handler {
	h := &handler{engine: engine, repo: repo, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/recommendations", h.createRecommendation)
	mux.HandleFunc("POST /v1/recommendations/batch", h.createBatch)
	mux.HandleFunc("GET /v1/recommendations/{id}", h.getRecommendation)
	mux.HandleFunc("GET /healthz", h.health)
	return mux
}

type recommendationRequest struct {
	PartNumber        string             `json:"part_number"`
	UrgencyOverride   domain.UrgencyLevel `json:"urgency_override,omitempty"`
	PreferredSupplier string             `json:"preferred_supplier,omitempty"`
	BudgetCeiling     float64            `json:"budget_ceiling,omitempty"`
}

type batchRequest struct {
	PartNumbers       []string            `json:"part_numbers"`
	UrgencyOverride   domain.UrgencyLevel `json:"urgency_override,omitempty"`
	PreferredSupplier string              `json:"preferred_supplier,omitempty"`
	BudgetCeiling     float64             `json:"budget_ceiling,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) createRecommendation(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PartNumber == "" {
		h.writeError(w, http.StatusBadRequest, "part_number is required")
		return
	}

	rec, err := h.engine.Recommend(r.Context(), req.PartNumber, recommend.Options{
		UrgencyOverride:   req.UrgencyOverride,
		PreferredSupplier: req.PreferredSupplier,
		BudgetCeiling:     req.BudgetCeiling,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, rec)
}

func (h *handler) createBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.PartNumbers) == 0 {
		h.writeError(w, http.StatusBadRequest, "part_numbers is required")
		return
	}

	result := h.engine.RecommendBatch(r.Context(), req.PartNumbers, recommend.Options{
		UrgencyOverride:   req.UrgencyOverride,
		PreferredSupplier: req.PreferredSupplier,
		BudgetCeiling:     req.BudgetCeiling,
	})

	h.writeJSON(w, http.StatusOK, result)
}

func (h *handler) getRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.repo.GetRecommendation(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeDomainError maps typed domain errors onto HTTP status codes.
func (h *handler) writeDomainError(w http.ResponseWriter, err error) {
	var (
		partNotFound *domain.PartNotFoundError
		recNotFound  *domain.RecommendationNotFoundError
		noSuppliers  *domain.NoSuppliersFoundError
		rejected     *recommend.CalculationRejectedError
	)

	switch {
	case errors.As(err, &partNotFound), errors.As(err, &recNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &noSuppliers), errors.As(err, &rejected):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.WithError(err).Error("request failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("failed to encode response")
	}
}
