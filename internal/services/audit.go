package services

import (
	"context"
	"log/slog"

	"github.com/baharkarakas/averulo-backend/internal/models"
	repo "github.com/baharkarakas/averulo-backend/internal/repository"
)

// audit writes a best-effort audit row outside of any transaction.
func audit(ctx context.Context, r repo.AuditLogs, log *slog.Logger, entityType, entityID, action string, details map[string]any) {
	l := models.AuditLog{
		EntityType: entityType,
		Action:     action,
		Details:    details,
	}
	if entityID != "" {
		l.EntityID = &entityID
	}
	if err := r.Create(ctx, l); err != nil {
		log.Warn("audit write failed", "entity", entityType, "id", entityID, "action", action, "err", err)
	}
}
