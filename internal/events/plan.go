// Package events defines the payloads published to the plan_events topic.
package events

import "time"

// Event types carried in Kafka message headers.
const (
	TypePlanUpdated = "plan.updated"
	TypePlanDeleted = "plan.deleted"
)

// Topic is the Kafka topic carrying plan lifecycle events.
const Topic = "plan_events"

// PlanUpdated is emitted whenever a plan is created or changed on the server.
type PlanUpdated struct {
	PlanID       string    `json:"plan_id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Goal         string    `json:"goal"`
	Level        string    `json:"level"`
	SessionCount int       `json:"session_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PlanDeleted is emitted when a plan is removed.
type PlanDeleted struct {
	PlanID    string    `json:"plan_id"`
	UserID    string    `json:"user_id"`
	DeletedAt time.Time `json:"deleted_at"`
}
