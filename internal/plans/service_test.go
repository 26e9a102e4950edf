package plans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/domain"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/queue"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/remote"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/store"
)

type stubRemote struct {
	saves   []domain.WorkoutPlan
	deletes []string
	plans   map[string]domain.WorkoutPlan
	saveErr error
	getErr  error
	listErr error
}

func newStubRemote() *stubRemote {
	return &stubRemote{plans: make(map[string]domain.WorkoutPlan)}
}

func (r *stubRemote) SavePlan(ctx context.Context, plan domain.WorkoutPlan) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves = append(r.saves, plan)
	r.plans[plan.ID] = plan
	return nil
}

func (r *stubRemote) GetPlan(ctx context.Context, id string) (domain.WorkoutPlan, error) {
	if r.getErr != nil {
		return domain.WorkoutPlan{}, r.getErr
	}
	plan, ok := r.plans[id]
	if !ok {
		return domain.WorkoutPlan{}, remote.ErrNotFound
	}
	return plan, nil
}

func (r *stubRemote) ListPlans(ctx context.Context, userID string) ([]domain.WorkoutPlan, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.WorkoutPlan
	for _, plan := range r.plans {
		if plan.UserID == userID {
			out = append(out, plan)
		}
	}
	return out, nil
}

func (r *stubRemote) DeletePlan(ctx context.Context, id string) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.deletes = append(r.deletes, id)
	delete(r.plans, id)
	return nil
}

func (r *stubRemote) SaveAction(plan domain.WorkoutPlan) queue.Action {
	return queue.ActionFunc(func(ctx context.Context) error {
		return r.SavePlan(ctx, plan)
	})
}

func (r *stubRemote) DeleteAction(id string) queue.Action {
	return queue.ActionFunc(func(ctx context.Context) error {
		return r.DeletePlan(ctx, id)
	})
}

type stubConnectivity struct{ online bool }

func (c *stubConnectivity) IsOnline() bool { return c.online }

func quietLogger(t *testing.T) *log.Logger {
	t.Helper()
	return log.New(testWriter{t}, "", 0)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func newTestService(t *testing.T, online bool) (*Service, *stubRemote, *queue.Queue, *store.MemoryStore, *stubConnectivity) {
	t.Helper()
	remoteAPI := newStubRemote()
	monitor := &stubConnectivity{online: online}
	q := queue.NewQueue(queue.WithLogger(quietLogger(t)), queue.WithOnlineCheck(monitor.IsOnline))
	localStore := store.NewMemoryStore()
	svc := NewService(remoteAPI, localStore, q, monitor, WithLogger(quietLogger(t)))
	return svc, remoteAPI, q, localStore, monitor
}

func testPlan(id string) domain.WorkoutPlan {
	return domain.WorkoutPlan{
		ID:     id,
		UserID: "user-1",
		Title:  "Strength Base",
		Level:  domain.LevelBeginner,
		Sessions: []domain.Session{
			{Day: "monday", Exercises: []domain.Exercise{{Name: "Squat", Sets: 3, Reps: 5}}},
		},
	}
}

func TestSavePlanOnlineHitsRemoteDirectly(t *testing.T) {
	svc, remoteAPI, q, localStore, _ := newTestService(t, true)

	result, err := svc.SavePlan(context.Background(), testPlan("plan-1"))
	require.NoError(t, err)
	require.False(t, result.Queued)
	require.Len(t, remoteAPI.saves, 1)
	require.Zero(t, q.Len())

	raw, err := localStore.Get(context.Background(), Collection, "plan-1")
	require.NoError(t, err)
	require.Contains(t, string(raw), "Strength Base")
}

func TestSavePlanOfflineQueuesMutation(t *testing.T) {
	svc, remoteAPI, q, _, monitor := newTestService(t, false)

	result, err := svc.SavePlan(context.Background(), testPlan("plan-1"))
	require.NoError(t, err)
	require.True(t, result.Queued)
	require.Empty(t, remoteAPI.saves)
	require.Equal(t, 1, q.Len())

	// The queued action replays the save once connectivity returns.
	monitor.online = true
	summary := q.Drain(context.Background(), nil)
	require.Equal(t, 1, summary.Completed)
	require.Len(t, remoteAPI.saves, 1)
	require.Equal(t, "plan-1", remoteAPI.saves[0].ID)
}

func TestSavePlanTransientRemoteFailureQueues(t *testing.T) {
	svc, remoteAPI, q, _, _ := newTestService(t, true)
	remoteAPI.saveErr = errors.New("gateway timeout")

	result, err := svc.SavePlan(context.Background(), testPlan("plan-1"))
	require.NoError(t, err, "the local save succeeds even though the remote call failed")
	require.True(t, result.Queued)
	require.Equal(t, 1, q.Len())
}

func TestSavePlanPermanentRejectionSurfaces(t *testing.T) {
	svc, remoteAPI, q, _, _ := newTestService(t, true)
	remoteAPI.saveErr = fmt.Errorf("%w: 422 unprocessable", remote.ErrPermanent)

	_, err := svc.SavePlan(context.Background(), testPlan("plan-1"))
	require.ErrorIs(t, err, remote.ErrPermanent)
	require.Zero(t, q.Len(), "permanently rejected mutations are not queued")
}

func TestSavePlanRejectsInvalidInput(t *testing.T) {
	svc, _, q, _, _ := newTestService(t, true)

	_, err := svc.SavePlan(context.Background(), domain.WorkoutPlan{ID: "p1"})
	require.ErrorIs(t, err, domain.ErrInvalidPlan)
	require.Zero(t, q.Len())
}

func TestGetPlanFallsBackToStoreWhenOffline(t *testing.T) {
	svc, _, _, _, monitor := newTestService(t, true)

	saved, err := svc.SavePlan(context.Background(), testPlan("plan-1"))
	require.NoError(t, err)

	monitor.online = false
	got, err := svc.GetPlan(context.Background(), "plan-1")
	require.NoError(t, err)
	require.Equal(t, saved.Plan, got)
}

func TestGetPlanUnknownIDReportsNotFound(t *testing.T) {
	svc, _, _, _, _ := newTestService(t, false)

	_, err := svc.GetPlan(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrPlanNotFound)
}

func TestDeletePlanOfflineQueuesTombstone(t *testing.T) {
	svc, remoteAPI, q, localStore, monitor := newTestService(t, true)

	_, err := svc.SavePlan(context.Background(), testPlan("plan-1"))
	require.NoError(t, err)

	monitor.online = false
	queued, err := svc.DeletePlan(context.Background(), "plan-1")
	require.NoError(t, err)
	require.True(t, queued)

	_, err = localStore.Get(context.Background(), Collection, "plan-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	monitor.online = true
	summary := q.Drain(context.Background(), nil)
	require.Equal(t, 1, summary.Completed)
	require.Equal(t, []string{"plan-1"}, remoteAPI.deletes)
}

func TestListPlansOfflineFiltersByUser(t *testing.T) {
	svc, _, _, localStore, monitor := newTestService(t, false)

	mine := domain.Canonicalize(testPlan("plan-1"))
	other := domain.Canonicalize(testPlan("plan-2"))
	other.UserID = "user-2"

	for _, plan := range []domain.WorkoutPlan{mine, other} {
		raw, err := json.Marshal(plan)
		require.NoError(t, err)
		require.NoError(t, localStore.Add(context.Background(), Collection, plan.ID, raw))
	}
	require.False(t, monitor.IsOnline())

	got, err := svc.ListPlans(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "plan-1", got[0].ID)
}
