package models

import "time"

// DocumentTracking maps an unguessable public token to one document and keeps view counters.
// Token is the only capability a public viewer needs.
// FirstViewedAt and LastViewedAt stay nil until the first view
type DocumentTracking struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	DocumentID          uint       `gorm:"not null;uniqueIndex:uk_document_trackings_document_id" json:"document_id"`
	Token               string     `gorm:"size:64;not null;uniqueIndex:uk_document_trackings_token" json:"token"`
	ViewCount           int64      `gorm:"not null;default:0" json:"view_count"`
	FirstViewedAt       *time.Time `json:"first_viewed_at,omitempty"`
	LastViewedAt        *time.Time `json:"last_viewed_at,omitempty"`
	LastViewerIP        *string    `gorm:"size:64" json:"last_viewer_ip,omitempty"`
	LastViewerUserAgent *string    `gorm:"type:text" json:"last_viewer_user_agent,omitempty"`
	CreatedAt           time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"not null" json:"updated_at"`

	// Relations
	Document *Document `gorm:"foreignKey:DocumentID;references:ID;constraint:OnDelete:CASCADE" json:"document,omitempty"`
}

func (DocumentTracking) TableName() string { return "document_trackings" }

// DocumentTrackingFilter provides filter fields for repository queries
type DocumentTrackingFilter struct {
	ID         *uint
	DocumentID *uint
	Token      *string
}

// DocumentView is a single append-only view event on a tracked document
type DocumentView struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TrackingID uint      `gorm:"not null;index:idx_document_views_tracking_id" json:"tracking_id"`
	DocumentID uint      `gorm:"not null;index:idx_document_views_document_id" json:"document_id"`
	IPAddress  *string   `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent  *string   `gorm:"type:text" json:"user_agent,omitempty"`
	ViewedAt   time.Time `gorm:"not null;index:idx_document_views_viewed_at" json:"viewed_at"`
}

func (DocumentView) TableName() string { return "document_views" }

// DocumentViewFilter provides filter fields for repository queries
type DocumentViewFilter struct {
	ID           *uint
	TrackingID   *uint
	DocumentID   *uint
	ViewedAfter  *time.Time
	ViewedBefore *time.Time
}

// RecentDocumentView is a view event joined with the viewed document's identity
type RecentDocumentView struct {
	ID             uint         `json:"id"`
	DocumentID     uint         `json:"document_id"`
	DocumentNumber string       `json:"document_number"`
	DocumentType   DocumentType `json:"document_type"`
	IPAddress      *string      `json:"ip_address,omitempty"`
	UserAgent      *string      `json:"user_agent,omitempty"`
	ViewedAt       time.Time    `json:"viewed_at"`
}

// Viewer carries optional request metadata of a public viewer
type Viewer struct {
	IPAddress *string
	UserAgent *string
}
