package service

import (
	"context"

	"github.com/sekolahku/sekolahku-api/internal/models"
)

// auditLogger is the minimal sink services use to record audit trails.
type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}
