package dto

// TrackingResponse describes the public view link of a document and its counters
type TrackingResponse struct {
	ID                  uint    `json:"id"`
	DocumentID          uint    `json:"document_id"`
	Token               string  `json:"token"`
	URL                 string  `json:"url"`
	ViewCount           int64   `json:"view_count"`
	FirstViewedAt       *string `json:"first_viewed_at,omitempty"`
	LastViewedAt        *string `json:"last_viewed_at,omitempty"`
	LastViewerIP        *string `json:"last_viewer_ip,omitempty"`
	LastViewerUserAgent *string `json:"last_viewer_user_agent,omitempty"`
	CreatedAt           string  `json:"created_at"`
}

type DocumentViewResponse struct {
	ID         uint    `json:"id"`
	DocumentID uint    `json:"document_id"`
	IPAddress  *string `json:"ip_address,omitempty"`
	UserAgent  *string `json:"user_agent,omitempty"`
	ViewedAt   string  `json:"viewed_at"`
}

type ListDocumentViewsResponse struct {
	Views []DocumentViewResponse `json:"views"`
}

type RecentViewResponse struct {
	ID             uint    `json:"id"`
	DocumentID     uint    `json:"document_id"`
	DocumentNumber string  `json:"document_number"`
	DocumentType   string  `json:"document_type"`
	IPAddress      *string `json:"ip_address,omitempty"`
	UserAgent      *string `json:"user_agent,omitempty"`
	ViewedAt       string  `json:"viewed_at"`
}

type ListRecentViewsRequest struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=200"`
}

type ListRecentViewsResponse struct {
	Views []RecentViewResponse `json:"views"`
}

// PublicDocumentResponse is what a viewer sees behind a tracking link.
// Unknown links are reported as unavailable rather than as an error.
type PublicDocumentResponse struct {
	Available bool              `json:"available"`
	Message   string            `json:"message,omitempty"`
	Document  *DocumentResponse `json:"document,omitempty"`
}
