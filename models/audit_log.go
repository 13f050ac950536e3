package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records every mutation performed by the engine, successful or not
type AuditLog struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Action       string         `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	EntityType   string         `gorm:"size:64;not null;index:idx_audit_entity,priority:1" json:"entity_type"`
	EntityID     *uint          `gorm:"index:idx_audit_entity,priority:2" json:"entity_id,omitempty"`
	Description  *string        `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string        `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent    *string        `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string        `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"`
	Success      *bool          `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string        `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit entity types
const (
	AuditEntityDocument         = "document"
	AuditEntityDocumentTracking = "document_tracking"
	AuditEntitySignatureRequest = "signature_request"
)

// Audit action constants
const (
	AuditActionDocumentCreated          = "document_created"
	AuditActionDocumentCreationFailed   = "document_creation_failed"
	AuditActionDocumentUpdated          = "document_updated"
	AuditActionDocumentUpdateFailed     = "document_update_failed"
	AuditActionDocumentTransitioned     = "document_transitioned"
	AuditActionDocumentTransitionFailed = "document_transition_failed"
	AuditActionTrackingCreated          = "tracking_created"
	AuditActionSignatureRequested       = "signature_requested"
	AuditActionSignatureRequestFailed   = "signature_request_failed"
	AuditActionSignatureReminderSent    = "signature_reminder_sent"
	AuditActionSignatureSigned          = "signature_signed"
	AuditActionSignatureDeclined        = "signature_declined"
	AuditActionSignatureResponseFailed  = "signature_response_failed"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	Action        *string
	EntityType    *string
	EntityID      *uint
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
