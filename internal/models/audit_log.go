package models

import "time"

type AuditLog struct {
	ID         string         `json:"id"`
	ActorID    *string        `json:"actor_id,omitempty"`
	EntityType string         `json:"entity_type"`
	EntityID   *string        `json:"entity_id"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}
