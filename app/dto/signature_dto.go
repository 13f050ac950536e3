package dto

// SendSignatureRequest asks a signer to sign a document.
// The email is checked by the signature flow so that a malformed address is a business validation error.
type SendSignatureRequest struct {
	SignerName  string  `json:"signer_name" validate:"required,max=255"`
	SignerEmail string  `json:"signer_email"`
	SignerRole  *string `json:"signer_role,omitempty" validate:"omitempty,oneof=client coach"`
	Message     *string `json:"message,omitempty" validate:"omitempty,max=2000"`
}

// RespondSignatureRequest is the signer's answer
type RespondSignatureRequest struct {
	Outcome        string  `json:"outcome" validate:"required"`
	SignatureData  *string `json:"signature_data,omitempty"`
	DeclinedReason *string `json:"declined_reason,omitempty" validate:"omitempty,max=2000"`
}

type SignatureRequestResponse struct {
	ID             uint    `json:"id"`
	DocumentID     uint    `json:"document_id"`
	SignerName     string  `json:"signer_name"`
	SignerEmail    string  `json:"signer_email"`
	SignerRole     string  `json:"signer_role"`
	Message        *string `json:"message,omitempty"`
	Status         string  `json:"status"`
	SentAt         string  `json:"sent_at"`
	RespondedAt    *string `json:"responded_at,omitempty"`
	ExpiresAt      *string `json:"expires_at,omitempty"`
	DeclinedReason *string `json:"declined_reason,omitempty"`
	ReminderCount  int     `json:"reminder_count"`
	ReminderSentAt *string `json:"reminder_sent_at,omitempty"`
	// SignURL is only returned when the request is created
	SignURL string `json:"sign_url,omitempty"`
}

type ListSignatureRequestsResponse struct {
	Requests []SignatureRequestResponse `json:"requests"`
}

// SignatureStatusResponse is the derived signature state of a document
type SignatureStatusResponse struct {
	DocumentID uint   `json:"document_id"`
	Status     string `json:"status"`
	Requests   int    `json:"requests"`
	Signed     int    `json:"signed"`
	Pending    int    `json:"pending"`
	Declined   int    `json:"declined"`
}

// PublicSignatureResponse is what a signer sees behind a signing link
type PublicSignatureResponse struct {
	Status     string            `json:"status"`
	SignerName string            `json:"signer_name"`
	ExpiresAt  *string           `json:"expires_at,omitempty"`
	Expired    bool              `json:"expired"`
	Document   *DocumentResponse `json:"document,omitempty"`
}
