package planapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/auth"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/domain"
)

type stubRepo struct {
	upserts []domain.WorkoutPlan
	plans   map[string]domain.WorkoutPlan
	deleted []string
}

func newStubRepo() *stubRepo {
	return &stubRepo{plans: make(map[string]domain.WorkoutPlan)}
}

func (r *stubRepo) Upsert(ctx context.Context, plan domain.WorkoutPlan) error {
	r.upserts = append(r.upserts, plan)
	r.plans[plan.ID] = plan
	return nil
}

func (r *stubRepo) Get(ctx context.Context, id string) (*domain.WorkoutPlan, error) {
	plan, ok := r.plans[id]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	return &plan, nil
}

func (r *stubRepo) ListByUser(ctx context.Context, userID string) ([]domain.WorkoutPlan, error) {
	var out []domain.WorkoutPlan
	for _, plan := range r.plans {
		if plan.UserID == userID {
			out = append(out, plan)
		}
	}
	return out, nil
}

func (r *stubRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.plans[id]; !ok {
		return domain.ErrPlanNotFound
	}
	r.deleted = append(r.deleted, id)
	delete(r.plans, id)
	return nil
}

func claimsWith(scopes ...string) *auth.Claims {
	set := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		set[scope] = struct{}{}
	}
	return &auth.Claims{Subject: "user-1", Scopes: set}
}

func serve(repo *stubRepo, claims *auth.Claims, method, target, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	NewHandler(repo).RegisterRoutes(mux)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestUpsertCanonicalizesAndStores(t *testing.T) {
	repo := newStubRepo()
	body := `{"user_id":"user-1","title":"  Base Block  ","level":"Intermediate"}`

	rec := serve(repo, claimsWith(auth.ScopePlansWrite), http.MethodPut, "/v1/plans/plan-1", body)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, repo.upserts, 1)
	stored := repo.upserts[0]
	require.Equal(t, "plan-1", stored.ID)
	require.Equal(t, "Base Block", stored.Title)
	require.Equal(t, domain.LevelIntermediate, stored.Level)
}

func TestUpsertRejectsIDMismatch(t *testing.T) {
	repo := newStubRepo()
	body := `{"id":"other","user_id":"user-1","title":"Base"}`

	rec := serve(repo, claimsWith(auth.ScopePlansWrite), http.MethodPut, "/v1/plans/plan-1", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, repo.upserts)
}

func TestUpsertRejectsInvalidPlan(t *testing.T) {
	repo := newStubRepo()

	rec := serve(repo, claimsWith(auth.ScopePlansWrite), http.MethodPut, "/v1/plans/plan-1", `{"title":"Base"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "validation_failed")
}

func TestGetPlanByID(t *testing.T) {
	repo := newStubRepo()
	repo.plans["plan-1"] = domain.WorkoutPlan{ID: "plan-1", UserID: "user-1", Title: "Base"}

	rec := serve(repo, claimsWith(auth.ScopePlansRead), http.MethodGet, "/v1/plans/plan-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.WorkoutPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "Base", got.Title)

	rec = serve(repo, claimsWith(auth.ScopePlansRead), http.MethodGet, "/v1/plans/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPlansFiltersByUser(t *testing.T) {
	repo := newStubRepo()
	repo.plans["plan-1"] = domain.WorkoutPlan{ID: "plan-1", UserID: "user-1"}
	repo.plans["plan-2"] = domain.WorkoutPlan{ID: "plan-2", UserID: "user-2"}

	rec := serve(repo, claimsWith(auth.ScopePlansRead), http.MethodGet, "/v1/plans?user_id=user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "plan-1")
	require.NotContains(t, rec.Body.String(), "plan-2")

	rec = serve(repo, claimsWith(auth.ScopePlansRead), http.MethodGet, "/v1/plans", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeletePlan(t *testing.T) {
	repo := newStubRepo()
	repo.plans["plan-1"] = domain.WorkoutPlan{ID: "plan-1", UserID: "user-1"}

	rec := serve(repo, claimsWith(auth.ScopePlansWrite), http.MethodDelete, "/v1/plans/plan-1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []string{"plan-1"}, repo.deleted)

	rec = serve(repo, claimsWith(auth.ScopePlansWrite), http.MethodDelete, "/v1/plans/plan-1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMissingClaimsIsUnauthorized(t *testing.T) {
	repo := newStubRepo()

	rec := serve(repo, nil, http.MethodGet, "/v1/plans?user_id=user-1", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInsufficientScopeIsForbidden(t *testing.T) {
	repo := newStubRepo()

	rec := serve(repo, claimsWith(auth.ScopePlansRead), http.MethodPut, "/v1/plans/plan-1", `{"user_id":"u","title":"t"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "plans:write")
}

func TestHealthzBypassesAuth(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler(newStubRepo()).RegisterRoutes(mux)
	wrapped := auth.NewMiddleware(auth.Config{Secret: "s", Issuer: "i"}).Wrap(mux)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/plans?user_id=user-1", nil)
	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
