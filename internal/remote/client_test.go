package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/domain"
)

func TestSavePlanSendsAuthenticatedPut(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	var gotBody domain.WorkoutPlan
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, "token-123")
	err := c.SavePlan(context.Background(), domain.WorkoutPlan{ID: "plan-1", UserID: "user-1", Title: "Base"})
	require.NoError(t, err)

	require.Equal(t, http.MethodPut, gotMethod)
	require.Equal(t, "/v1/plans/plan-1", gotPath)
	require.Equal(t, "Bearer token-123", gotAuth)
	require.Equal(t, "Base", gotBody.Title)
}

func TestServerErrorsAreTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "try later", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	err := c.SavePlan(context.Background(), domain.WorkoutPlan{ID: "plan-1"})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrPermanent, "5xx responses must stay retryable")
}

func TestClientRejectionsArePermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "level is unknown", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	err := c.SavePlan(context.Background(), domain.WorkoutPlan{ID: "plan-1"})
	require.ErrorIs(t, err, ErrPermanent)
	require.Contains(t, err.Error(), "level is unknown")
}

func TestGetPlanDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/plans/plan-1", r.URL.Path)
		json.NewEncoder(w).Encode(domain.WorkoutPlan{ID: "plan-1", UserID: "user-1", Title: "Base"})
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	plan, err := c.GetPlan(context.Background(), "plan-1")
	require.NoError(t, err)
	require.Equal(t, "Base", plan.Title)
}

func TestGetPlanMissingMapsToNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	_, err := c.GetPlan(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListPlansPassesUserFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "user-1", r.URL.Query().Get("user_id"))
		json.NewEncoder(w).Encode(map[string][]domain.WorkoutPlan{
			"plans": {{ID: "plan-1", UserID: "user-1"}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	plans, err := c.ListPlans(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Equal(t, "plan-1", plans[0].ID)
}

func TestDeletePlanTreatsMissingAsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	require.NoError(t, c.DeletePlan(context.Background(), "already-gone"))
}

func TestUnreachableServerErrorIsTransient(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "")
	err := c.SavePlan(context.Background(), domain.WorkoutPlan{ID: "plan-1"})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrPermanent)
}
