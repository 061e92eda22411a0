package services

import (
	"context"

	"github.com/fraudlab/cardsim-backend/internal/models"
	repo "github.com/fraudlab/cardsim-backend/internal/repository"
)

// auditLog appends one entry inside the caller's transaction so the record
// commits or rolls back with the mutation it describes.
func auditLog(ctx context.Context, r repo.Repositories, actorID, entityType, entityID, action string, details map[string]any) error {
	return r.AuditLogs.Create(ctx, models.AuditLog{
		ActorID:    &actorID,
		EntityType: entityType,
		EntityID:   &entityID,
		Action:     action,
		Details:    details,
	})
}
