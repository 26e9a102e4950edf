// Package postgres provides plan persistence and transactional outbox
// recording for the plan server.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/domain"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/events"
)

// Repository provides Postgres-backed persistence for workout plans.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert persists the canonical plan and records a plan.updated outbox event
// inside a single transaction.
func (r *Repository) Upsert(ctx context.Context, plan domain.WorkoutPlan) error {
	sessions, err := json.Marshal(plan.Sessions)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const stmt = `INSERT INTO workout_plans (plan_id, user_id, title, goal, level, sessions, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (plan_id) DO UPDATE
           SET title = EXCLUDED.title,
               goal = EXCLUDED.goal,
               level = EXCLUDED.level,
               sessions = EXCLUDED.sessions,
               updated_at = EXCLUDED.updated_at`

	if _, err = tx.Exec(ctx, stmt,
		plan.ID, plan.UserID, plan.Title, plan.Goal, string(plan.Level), sessions, plan.CreatedAt, plan.UpdatedAt,
	); err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, events.TypePlanUpdated, plan.ID, events.PlanUpdated{
		PlanID:       plan.ID,
		UserID:       plan.UserID,
		Title:        plan.Title,
		Goal:         plan.Goal,
		Level:        string(plan.Level),
		SessionCount: len(plan.Sessions),
		UpdatedAt:    plan.UpdatedAt,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Get fetches one plan by id.
func (r *Repository) Get(ctx context.Context, id string) (*domain.WorkoutPlan, error) {
	const query = `SELECT plan_id, user_id, title, goal, level, sessions, created_at, updated_at
        FROM workout_plans WHERE plan_id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	plan, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// ListByUser fetches every plan belonging to a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.WorkoutPlan, error) {
	const query = `SELECT plan_id, user_id, title, goal, level, sessions, created_at, updated_at
        FROM workout_plans WHERE user_id = $1 ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []domain.WorkoutPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

// Delete removes a plan and records a plan.deleted outbox event in the same
// transaction. Missing plans report domain.ErrPlanNotFound.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	var userID string
	err = tx.QueryRow(ctx, `DELETE FROM workout_plans WHERE plan_id = $1 RETURNING user_id`, id).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrPlanNotFound
		return err
	}
	if err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, events.TypePlanDeleted, id, events.PlanDeleted{
		PlanID:    id,
		UserID:    userID,
		DeletedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertOutbox(ctx context.Context, tx pgx.Tx, eventType, partitionKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	const stmt = `INSERT INTO plan_outbox (event_type, partition_key, payload)
        VALUES ($1,$2,$3)`
	_, err = tx.Exec(ctx, stmt, eventType, partitionKey, body)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*domain.WorkoutPlan, error) {
	var (
		plan     domain.WorkoutPlan
		level    string
		sessions []byte
	)
	if err := row.Scan(&plan.ID, &plan.UserID, &plan.Title, &plan.Goal, &level, &sessions, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
		return nil, err
	}
	plan.Level = domain.Level(level)
	if err := json.Unmarshal(sessions, &plan.Sessions); err != nil {
		return nil, err
	}
	return &plan, nil
}
