// Package planapi exposes the plan server's HTTP endpoints.
package planapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/auth"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/domain"
)

// PlanRepository captures the persistence operations the handlers need.
type PlanRepository interface {
	Upsert(ctx context.Context, plan domain.WorkoutPlan) error
	Get(ctx context.Context, id string) (*domain.WorkoutPlan, error)
	ListByUser(ctx context.Context, userID string) ([]domain.WorkoutPlan, error)
	Delete(ctx context.Context, id string) error
}

// Handler coordinates HTTP requests with the repository.
type Handler struct {
	repo PlanRepository
}

// NewHandler builds a Handler.
func NewHandler(repo PlanRepository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/plans", h.plans)
	mux.HandleFunc("/v1/plans/", h.planByID)
	mux.HandleFunc("/healthz", healthz)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) plans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !requireScope(w, r, auth.ScopePlansRead) {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing user_id")
		return
	}

	plans, err := h.repo.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if plans == nil {
		plans = []domain.WorkoutPlan{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
}

func (h *Handler) planByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/plans/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing plan id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.upsertPlan(w, r, id)
	case http.MethodGet:
		h.getPlan(w, r, id)
	case http.MethodDelete:
		h.deletePlan(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// upsertPlan is idempotent: replaying the same save converges on the same row.
func (h *Handler) upsertPlan(w http.ResponseWriter, r *http.Request, id string) {
	if !requireScope(w, r, auth.ScopePlansWrite) {
		return
	}

	var plan domain.WorkoutPlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if plan.ID != "" && plan.ID != id {
		writeError(w, http.StatusBadRequest, "invalid_request", "plan id mismatch")
		return
	}
	plan.ID = id
	plan = domain.Canonicalize(plan)
	if err := plan.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if err := h.repo.Upsert(r.Context(), plan); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"plan": plan})
}

func (h *Handler) getPlan(w http.ResponseWriter, r *http.Request, id string) {
	if !requireScope(w, r, auth.ScopePlansRead) {
		return
	}

	plan, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrPlanNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "plan not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) deletePlan(w http.ResponseWriter, r *http.Request, id string) {
	if !requireScope(w, r, auth.ScopePlansWrite) {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrPlanNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "plan not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requireScope(w http.ResponseWriter, r *http.Request, scope string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if !claims.HasScope(scope) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}
