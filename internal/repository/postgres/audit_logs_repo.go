package postgres

import (
	"context"

	"github.com/fraudlab/cardsim-backend/internal/models"
	"github.com/google/uuid"
)

type auditLogsRepo struct{ db DB }

func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO audit_logs(id, actor_id, entity_type, entity_id, action, details) VALUES($1,$2,$3,$4,$5,$6)`,
		l.ID, l.ActorID, l.EntityType, l.EntityID, l.Action, l.Details,
	)
	return err
}
