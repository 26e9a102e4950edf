// Package api exposes the sync agent's local control and status endpoints.
// Consumers read observable state and trigger the four permitted mutations:
// sync now, retry, retry-all, and clear.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/domain"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/netmon"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/plans"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/queue"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/store"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/syncer"
)

// syncControl is the coordinator surface used by the handlers.
type syncControl interface {
	State() syncer.State
	SyncNow(ctx context.Context) queue.DrainSummary
	CancelSync()
}

// opQueue is the queue surface used by the handlers.
type opQueue interface {
	Snapshots() []queue.Snapshot
	Retry(ctx context.Context, id string) error
	Remove(id string) error
	Clear() int
}

// planService is the offline-first plan workflow surface.
type planService interface {
	SavePlan(ctx context.Context, plan domain.WorkoutPlan) (plans.SaveResult, error)
	DeletePlan(ctx context.Context, id string) (bool, error)
	GetPlan(ctx context.Context, id string) (domain.WorkoutPlan, error)
	ListPlans(ctx context.Context, userID string) ([]domain.WorkoutPlan, error)
}

// networkInfo is the monitor surface used by the handlers.
type networkInfo interface {
	IsOnline() bool
	CurrentQuality() netmon.Quality
	CheckConnection(ctx context.Context) bool
}

// Handler coordinates HTTP requests with the sync subsystem.
type Handler struct {
	sync    syncControl
	queue   opQueue
	plans   planService
	network networkInfo
}

// NewHandler builds a Handler.
func NewHandler(sync syncControl, q opQueue, planSvc planService, network networkInfo) *Handler {
	return &Handler{sync: sync, queue: q, plans: planSvc, network: network}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/sync/status", h.syncStatus)
	mux.HandleFunc("/v1/sync/now", h.syncNow)
	mux.HandleFunc("/v1/sync/cancel", h.syncCancel)
	mux.HandleFunc("/v1/sync/retry-all", h.retryAll)
	mux.HandleFunc("/v1/sync/operations", h.operations)
	mux.HandleFunc("/v1/sync/operations/", h.operationByID)
	mux.HandleFunc("/v1/network", h.networkStatus)
	mux.HandleFunc("/v1/plans", h.plansCollection)
	mux.HandleFunc("/v1/plans/", h.planByID)
	mux.HandleFunc("/healthz", healthz)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) syncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	writeJSON(w, http.StatusOK, h.sync.State())
}

func (h *Handler) syncNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	// The pass runs in the background; callers poll /v1/sync/status.
	go h.sync.SyncNow(context.Background())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *Handler) syncCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	h.sync.CancelSync()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) retryAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !h.network.IsOnline() {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "deferred_offline"})
		return
	}
	go h.sync.SyncNow(context.Background())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *Handler) operations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{"operations": h.queue.Snapshots()})
	case http.MethodDelete:
		discarded := h.queue.Clear()
		writeJSON(w, http.StatusOK, map[string]int{"discarded": discarded})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) operationByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sync/operations/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing operation id")
		return
	}

	if id, ok := strings.CutSuffix(rest, "/retry"); ok {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.retryOperation(w, r, id)
		return
	}

	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	switch err := h.queue.Remove(rest); {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, queue.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "unknown operation id")
	case errors.Is(err, queue.ErrInProgress):
		writeError(w, http.StatusConflict, "in_progress", "operation is executing")
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func (h *Handler) retryOperation(w http.ResponseWriter, r *http.Request, id string) {
	err := h.queue.Retry(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"completed": true})
	case errors.Is(err, queue.ErrOffline):
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "deferred_offline"})
	case errors.Is(err, queue.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "unknown operation id")
	case errors.Is(err, queue.ErrInProgress):
		writeError(w, http.StatusConflict, "in_progress", "operation is executing")
	default:
		// The attempt ran and failed; that is queue state, not a server error.
		writeJSON(w, http.StatusOK, map[string]interface{}{"completed": false, "error": err.Error()})
	}
}

func (h *Handler) networkStatus(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"online":  h.network.IsOnline(),
			"quality": h.network.CurrentQuality(),
		})
	case http.MethodPost:
		online := h.network.CheckConnection(r.Context())
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"online":  online,
			"quality": h.network.CurrentQuality(),
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) plansCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var plan domain.WorkoutPlan
		if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
			return
		}
		result, err := h.plans.SavePlan(r.Context(), plan)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidPlan) {
				writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
				return
			}
			writeError(w, http.StatusBadGateway, "remote_rejected", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"plan": result.Plan, "queued": result.Queued})
	case http.MethodGet:
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "missing user_id")
			return
		}
		list, err := h.plans.ListPlans(r.Context(), userID)
		if err != nil {
			writePlanError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"plans": list})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) planByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/plans/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing plan id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		plan, err := h.plans.GetPlan(r.Context(), id)
		if err != nil {
			writePlanError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"plan": plan})
	case http.MethodDelete:
		queued, err := h.plans.DeletePlan(r.Context(), id)
		if err != nil {
			writePlanError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"queued": queued})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func writePlanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPlanNotFound):
		writeError(w, http.StatusNotFound, "not_found", "plan not found")
	case errors.Is(err, store.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "offline storage unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
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
