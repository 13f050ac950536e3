// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/docflow/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// ClientRepository defines operations for clients
type ClientRepository interface {
	Repository[models.Client, models.ClientFilter]
	ByIDs(ctx context.Context, ids []uint) (map[uint]*models.Client, error)
}

// DocumentRepository defines operations for documents and their lines
type DocumentRepository interface {
	Repository[models.Document, models.DocumentFilter]
	ByIDWithLines(ctx context.Context, id uint) (*models.Document, error)
	// UpdateContent writes editable columns and totals when the stored status still equals expected
	UpdateContent(ctx context.Context, doc *models.Document, expected models.DocumentStatus) (bool, error)
	// UpdateStatus moves from one status to another only if the row is still in from
	UpdateStatus(ctx context.Context, id uint, from, to models.DocumentStatus, at time.Time) (bool, error)
	ReplaceLines(ctx context.Context, documentID uint, lines []*models.DocumentLine) error
}

// SequenceCounterRepository allocates gap-free numbers per named counter
type SequenceCounterRepository interface {
	Next(ctx context.Context, name string) (int64, error)
	Current(ctx context.Context, name string) (int64, error)
}

// DocumentTrackingRepository defines operations for tracking records
type DocumentTrackingRepository interface {
	Repository[models.DocumentTracking, models.DocumentTrackingFilter]
	ByDocumentID(ctx context.Context, documentID uint) (*models.DocumentTracking, error)
	ByToken(ctx context.Context, token string) (*models.DocumentTracking, error)
	// RecordView atomically bumps counters and appends a view event. Returns nil for unknown tokens.
	RecordView(ctx context.Context, token string, at time.Time, viewer models.Viewer) (*models.DocumentTracking, error)
}

// DocumentViewRepository defines read operations for view events
type DocumentViewRepository interface {
	Repository[models.DocumentView, models.DocumentViewFilter]
	ListRecent(ctx context.Context, limit int) ([]*models.RecentDocumentView, error)
}

// SignatureRequestRepository defines operations for signature requests
type SignatureRequestRepository interface {
	Repository[models.SignatureRequest, models.SignatureRequestFilter]
	ByToken(ctx context.Context, token string) (*models.SignatureRequest, error)
	ListByDocument(ctx context.Context, documentID uint) ([]*models.SignatureRequest, error)
	// Respond records the outcome only while the request is pending
	Respond(ctx context.Context, id uint, resp models.SignatureResponse, at time.Time) (bool, error)
	// MarkReminded bumps the reminder counter only while the request is pending
	MarkReminded(ctx context.Context, id uint, at time.Time) (bool, error)
}

// TaskRepository defines read operations for tasks
type TaskRepository interface {
	Repository[models.Task, models.TaskFilter]
}

// LeadRepository defines read operations for leads
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByEntity(ctx context.Context, entityType string, entityID uint, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
