// Package plans implements the offline-first workflow for workout plans: the
// local store answers reads while offline, and failed remote mutations are
// parked in the operation queue for replay.
package plans

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/domain"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/queue"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/remote"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/store"
)

// Collection is the offline store collection holding workout plans.
const Collection = "workout_plans"

// RemoteAPI is the slice of the plan server client the service needs.
type RemoteAPI interface {
	SavePlan(ctx context.Context, plan domain.WorkoutPlan) error
	GetPlan(ctx context.Context, id string) (domain.WorkoutPlan, error)
	ListPlans(ctx context.Context, userID string) ([]domain.WorkoutPlan, error)
	DeletePlan(ctx context.Context, id string) error
	SaveAction(plan domain.WorkoutPlan) queue.Action
	DeleteAction(id string) queue.Action
}

// mutationQueue is the slice of the operation queue the service needs.
type mutationQueue interface {
	Add(kind queue.Kind, action queue.Action, payload json.RawMessage, maxAttempts int) string
}

// connectivity reports whether the plan server is reachable.
type connectivity interface {
	IsOnline() bool
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithLogger overrides the service logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Service owns workout plan entities on the agent side.
type Service struct {
	remote  RemoteAPI
	store   store.Store
	queue   mutationQueue
	monitor connectivity
	logger  *log.Logger
}

// NewService constructs a Service. store may be a MemoryStore when durable
// storage is unavailable.
func NewService(remoteAPI RemoteAPI, localStore store.Store, q mutationQueue, monitor connectivity, opts ...Option) *Service {
	s := &Service{
		remote:  remoteAPI,
		store:   localStore,
		queue:   q,
		monitor: monitor,
		logger:  log.New(log.Writer(), "[plans] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveResult reports how a mutation was applied.
type SaveResult struct {
	Plan   domain.WorkoutPlan
	Queued bool // the remote call is parked in the queue awaiting connectivity
}

// SavePlan canonicalizes and stores the plan locally, then attempts the
// remote upsert. When offline, or when the remote call fails transiently, the
// mutation is enqueued for replay and the save still succeeds locally.
// Permanent remote rejections surface immediately; queueing them would retry
// a request the server will never accept.
func (s *Service) SavePlan(ctx context.Context, plan domain.WorkoutPlan) (SaveResult, error) {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	plan = domain.Canonicalize(plan)
	if err := plan.Validate(); err != nil {
		return SaveResult{}, err
	}

	s.writeLocal(ctx, plan)

	if s.monitor.IsOnline() {
		err := s.remote.SavePlan(ctx, plan)
		if err == nil {
			return SaveResult{Plan: plan}, nil
		}
		if errors.Is(err, remote.ErrPermanent) {
			return SaveResult{}, err
		}
		s.logger.Printf("remote save of plan %s failed, queueing for replay: %v", plan.ID, err)
	}

	payload := diagnosticPayload(plan.ID, plan.UserID, plan.Title)
	s.queue.Add(queue.KindSave, s.remote.SaveAction(plan), payload, 0)
	return SaveResult{Plan: plan, Queued: true}, nil
}

// DeletePlan removes the plan locally and replays the delete remotely,
// queueing a tombstone when the server is unreachable.
func (s *Service) DeletePlan(ctx context.Context, id string) (queued bool, err error) {
	if err := s.store.Delete(ctx, Collection, id); err != nil &&
		!errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrStorageUnavailable) {
		return false, err
	}

	if s.monitor.IsOnline() {
		err := s.remote.DeletePlan(ctx, id)
		if err == nil {
			return false, nil
		}
		if errors.Is(err, remote.ErrPermanent) {
			return false, err
		}
		s.logger.Printf("remote delete of plan %s failed, queueing for replay: %v", id, err)
	}

	s.queue.Add(queue.KindDelete, s.remote.DeleteAction(id), diagnosticPayload(id, "", ""), 0)
	return true, nil
}

// GetPlan serves remote-first while online, refreshing the local copy, and
// falls back to the offline store otherwise.
func (s *Service) GetPlan(ctx context.Context, id string) (domain.WorkoutPlan, error) {
	if s.monitor.IsOnline() {
		plan, err := s.remote.GetPlan(ctx, id)
		if err == nil {
			s.writeLocal(ctx, plan)
			return plan, nil
		}
		if errors.Is(err, remote.ErrNotFound) {
			return domain.WorkoutPlan{}, domain.ErrPlanNotFound
		}
		s.logger.Printf("remote get of plan %s failed, serving offline copy: %v", id, err)
	}
	return s.readLocal(ctx, id)
}

// ListPlans mirrors GetPlan for the whole user collection.
func (s *Service) ListPlans(ctx context.Context, userID string) ([]domain.WorkoutPlan, error) {
	if s.monitor.IsOnline() {
		plans, err := s.remote.ListPlans(ctx, userID)
		if err == nil {
			for _, plan := range plans {
				s.writeLocal(ctx, plan)
			}
			return plans, nil
		}
		s.logger.Printf("remote list for user %s failed, serving offline copies: %v", userID, err)
	}

	raws, err := s.store.GetAll(ctx, Collection)
	if errors.Is(err, store.ErrStorageUnavailable) {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	plans := make([]domain.WorkoutPlan, 0, len(raws))
	for _, raw := range raws {
		var plan domain.WorkoutPlan
		if err := json.Unmarshal(raw, &plan); err != nil {
			s.logger.Printf("skipping corrupt offline plan record: %v", err)
			continue
		}
		if plan.UserID == userID {
			plans = append(plans, plan)
		}
	}
	return plans, nil
}

// writeLocal upserts the canonical plan into the offline store. Storage
// unavailability degrades to remote-only with a logged warning rather than
// failing the caller's mutation.
func (s *Service) writeLocal(ctx context.Context, plan domain.WorkoutPlan) {
	raw, err := json.Marshal(plan)
	if err != nil {
		s.logger.Printf("encode plan %s for offline store: %v", plan.ID, err)
		return
	}
	err = s.store.Update(ctx, Collection, plan.ID, raw)
	if errors.Is(err, store.ErrNotFound) {
		err = s.store.Add(ctx, Collection, plan.ID, raw)
	}
	if err != nil {
		s.logger.Printf("offline store write for plan %s failed: %v", plan.ID, err)
	}
}

func (s *Service) readLocal(ctx context.Context, id string) (domain.WorkoutPlan, error) {
	raw, err := s.store.Get(ctx, Collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.WorkoutPlan{}, domain.ErrPlanNotFound
	}
	if err != nil {
		return domain.WorkoutPlan{}, err
	}
	var plan domain.WorkoutPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return domain.WorkoutPlan{}, err
	}
	return plan, nil
}

func diagnosticPayload(planID, userID, title string) json.RawMessage {
	payload, _ := json.Marshal(map[string]string{
		"plan_id": planID,
		"user_id": userID,
		"title":   title,
	})
	return payload
}
