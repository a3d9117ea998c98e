// Package database provides the data access layer with support for multiple backends.
package database

import (
	"context"
	"time"

	"github.com/adcompliance/auditor/internal/models"
)

// Store defines the interface for data persistence.
type Store interface {
	// Audit records
	SaveAudit(ctx context.Context, record *models.AuditRecord) error
	GetAudit(ctx context.Context, id string) (*models.AuditRecord, error)
	ListAudits(ctx context.Context, userID string, limit, offset int) ([]*models.AuditRecord, error)

	// API Keys
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string, t time.Time) error
	DeleteAPIKey(ctx context.Context, id string) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)

	// Audit logs (HTTP request/response bookkeeping, distinct from AuditRecord)
	LogRequest(ctx context.Context, log *models.AuditLog) error
	GetAuditLogs(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)

	// Lifecycle
	Close() error
	Migrate() error
}
