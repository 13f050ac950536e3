package models

import "time"

type SignatureStatus string

const (
	SignatureStatusPending  SignatureStatus = "pending"
	SignatureStatusSigned   SignatureStatus = "signed"
	SignatureStatusDeclined SignatureStatus = "declined"
)

type SignerRole string

const (
	SignerRoleClient SignerRole = "client"
	SignerRoleCoach  SignerRole = "coach"
)

// SignatureAggregate is the derived, never stored, signature state of a document
type SignatureAggregate string

const (
	SignatureAggregateSigned  SignatureAggregate = "signed"
	SignatureAggregatePending SignatureAggregate = "pending"
	SignatureAggregateNone    SignatureAggregate = "none"
)

// SignatureRequest asks one signer to sign or decline a document.
// pending is the only non-terminal status and it is left exactly once
type SignatureRequest struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	DocumentID      uint            `gorm:"not null;index:idx_signature_requests_document_id" json:"document_id"`
	Token           string          `gorm:"size:64;not null;uniqueIndex:uk_signature_requests_token" json:"-"`
	SignerName      string          `gorm:"size:255;not null" json:"signer_name"`
	SignerEmail     string          `gorm:"size:255;not null" json:"signer_email"`
	SignerRole      SignerRole      `gorm:"size:20;not null;default:'client'" json:"signer_role"`
	Message         *string         `gorm:"type:text" json:"message,omitempty"`
	Status          SignatureStatus `gorm:"size:20;not null;index:idx_signature_requests_status" json:"status"`
	SentAt          time.Time       `gorm:"not null" json:"sent_at"`
	RespondedAt     *time.Time      `json:"responded_at,omitempty"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	SignatureData   *string         `gorm:"type:text" json:"-"`
	DeclinedReason  *string         `gorm:"type:text" json:"declined_reason,omitempty"`
	SignedIP        *string         `gorm:"size:64" json:"signed_ip,omitempty"`
	SignedUserAgent *string         `gorm:"type:text" json:"signed_user_agent,omitempty"`
	ReminderCount   int             `gorm:"not null;default:0" json:"reminder_count"`
	ReminderSentAt  *time.Time      `json:"reminder_sent_at,omitempty"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`

	// Relations
	Document *Document `gorm:"foreignKey:DocumentID;references:ID;constraint:OnDelete:CASCADE" json:"document,omitempty"`
}

func (SignatureRequest) TableName() string { return "signature_requests" }

// SignatureRequestFilter provides filter fields for repository queries
type SignatureRequestFilter struct {
	ID         *uint
	DocumentID *uint
	Token      *string
	Status     *SignatureStatus
}

// SignatureResponse is the signer's single answer to a pending request
type SignatureResponse struct {
	Outcome        SignatureStatus
	SignatureData  *string
	DeclinedReason *string
	IPAddress      *string
	UserAgent      *string
}

func (s SignatureStatus) IsTerminal() bool {
	return s == SignatureStatusSigned || s == SignatureStatusDeclined
}

func (r SignerRole) IsValid() bool {
	return r == SignerRoleClient || r == SignerRoleCoach
}

func (s *SignatureRequest) IsPending() bool {
	return s.Status == SignatureStatusPending
}

// IsExpiredAt reports whether the link can no longer be used to sign at now
func (s *SignatureRequest) IsExpiredAt(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// AggregateSignatureStatus is signed if any request is signed, else pending if any is pending, else none
func AggregateSignatureStatus(requests []*SignatureRequest) SignatureAggregate {
	pending := false
	for _, r := range requests {
		if r == nil {
			continue
		}
		switch r.Status {
		case SignatureStatusSigned:
			return SignatureAggregateSigned
		case SignatureStatusPending:
			pending = true
		}
	}
	if pending {
		return SignatureAggregatePending
	}
	return SignatureAggregateNone
}
