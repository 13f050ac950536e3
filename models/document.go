// Package models contains domain entities and business models for the document workflow engine
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType is the closed set of commercial document kinds
type DocumentType string

const (
	DocumentTypeQuote      DocumentType = "quote"
	DocumentTypeInvoice    DocumentType = "invoice"
	DocumentTypeCreditNote DocumentType = "credit_note"
)

// DocumentStatus is the closed set of document lifecycle states
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "draft"
	DocumentStatusSent      DocumentStatus = "sent"
	DocumentStatusAccepted  DocumentStatus = "accepted"
	DocumentStatusRejected  DocumentStatus = "rejected"
	DocumentStatusPaid      DocumentStatus = "paid"
	DocumentStatusCancelled DocumentStatus = "cancelled"
)

// PaymentMethod describes how an invoice is expected to be settled
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodOther        PaymentMethod = "other"
)

// DocumentTransitions is the single source of truth for status changes.
// Paid is further restricted to invoices, see CanTransition.
var DocumentTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentStatusDraft:     {DocumentStatusSent, DocumentStatusCancelled},
	DocumentStatusSent:      {DocumentStatusAccepted, DocumentStatusRejected, DocumentStatusPaid, DocumentStatusCancelled},
	DocumentStatusAccepted:  {DocumentStatusPaid, DocumentStatusCancelled},
	DocumentStatusPaid:      {},
	DocumentStatusRejected:  {},
	DocumentStatusCancelled: {},
}

var documentNumberPrefixes = map[DocumentType]string{
	DocumentTypeQuote:      "DEV",
	DocumentTypeInvoice:    "FACT",
	DocumentTypeCreditNote: "AV",
}

// Document is a quote, invoice or credit note with its ordered lines.
// Totals are derived from the lines and never accepted from callers.
type Document struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Number       string         `gorm:"size:32;not null;uniqueIndex:uk_documents_number" json:"number"`
	ClientID     uint           `gorm:"not null;index:idx_documents_client_id" json:"client_id"`
	ProjectID    *uint          `gorm:"index:idx_documents_project_id" json:"project_id,omitempty"`
	Type         DocumentType   `gorm:"size:20;not null;index:idx_documents_type_status,priority:1" json:"type"`
	Status       DocumentStatus `gorm:"size:20;not null;index:idx_documents_type_status,priority:2" json:"status"`
	Date         time.Time      `gorm:"not null;index:idx_documents_date" json:"date"`
	DueDate      *time.Time     `gorm:"index:idx_documents_due_date" json:"due_date,omitempty"`
	ValidityDate *time.Time     `json:"validity_date,omitempty"`

	Subject      *string `gorm:"type:text" json:"subject,omitempty"`
	Introduction *string `gorm:"type:text" json:"introduction,omitempty"`
	Conclusion   *string `gorm:"type:text" json:"conclusion,omitempty"`
	Notes        *string `gorm:"type:text" json:"notes,omitempty"`

	TotalHT  decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_ht"`
	TotalTVA decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_tva"`
	TotalTTC decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_ttc"`

	IsAcompteRequired bool             `gorm:"not null;default:false" json:"is_acompte_required"`
	AcomptePercentage *decimal.Decimal `gorm:"type:decimal(5,2)" json:"acompte_percentage,omitempty"`
	AcompteAmount     *decimal.Decimal `gorm:"type:decimal(14,2)" json:"acompte_amount,omitempty"`

	PaymentTerms  *int           `json:"payment_terms,omitempty"`
	PaymentMethod *PaymentMethod `gorm:"size:20" json:"payment_method,omitempty"`
	PaidAt        *time.Time     `json:"paid_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_documents_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	// Relations
	Client *Client         `gorm:"foreignKey:ClientID;references:ID" json:"client,omitempty"`
	Lines  []*DocumentLine `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
}

func (Document) TableName() string { return "documents" }

// DocumentLine is one priced row of a document. Stored amounts are rounded for display only.
type DocumentLine struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	DocumentID  uint            `gorm:"not null;index:idx_document_lines_document_id" json:"document_id"`
	Position    int             `gorm:"not null" json:"position"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"quantity"`
	Unit        *string         `gorm:"size:32" json:"unit,omitempty"`
	UnitPriceHT decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"unit_price_ht"`
	TVARate     decimal.Decimal `gorm:"column:tva_rate;type:decimal(5,2);not null" json:"tva_rate"`
	TotalHT     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_ht"`
	TotalTVA    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_tva"`
	TotalTTC    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_ttc"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

func (DocumentLine) TableName() string { return "document_lines" }

// DocumentFilter provides filter fields for repository queries
type DocumentFilter struct {
	ID            *uint
	Number        *string
	ClientID      *uint
	Type          *DocumentType
	Status        *DocumentStatus
	Statuses      []DocumentStatus
	DueBefore     *time.Time
	DateFrom      *time.Time
	DateTo        *time.Time
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (t DocumentType) IsValid() bool {
	_, ok := documentNumberPrefixes[t]
	return ok
}

// NumberPrefix returns the human readable prefix used in document numbers
func (t DocumentType) NumberPrefix() string {
	return documentNumberPrefixes[t]
}

func (s DocumentStatus) IsValid() bool {
	_, ok := DocumentTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible from s
func (s DocumentStatus) IsTerminal() bool {
	next, ok := DocumentTransitions[s]
	return ok && len(next) == 0
}

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCheck, PaymentMethodCard, PaymentMethodCash, PaymentMethodOther:
		return true
	}
	return false
}

// CanTransition reports whether a document of type t may move from one status to another
func CanTransition(t DocumentType, from, to DocumentStatus) bool {
	if to == DocumentStatusPaid && t != DocumentTypeInvoice {
		return false
	}
	for _, s := range DocumentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTransitions lists the statuses reachable from the current one for this document type
func AllowedTransitions(t DocumentType, from DocumentStatus) []DocumentStatus {
	out := make([]DocumentStatus, 0, len(DocumentTransitions[from]))
	for _, s := range DocumentTransitions[from] {
		if CanTransition(t, from, s) {
			out = append(out, s)
		}
	}
	return out
}

func (d *Document) CanTransitionTo(next DocumentStatus) bool {
	return CanTransition(d.Type, d.Status, next)
}

// IsMutable reports whether lines, texts and dates may still be edited.
// Accepted invoices stay editable while they await payment.
func (d *Document) IsMutable() bool {
	switch d.Status {
	case DocumentStatusDraft, DocumentStatusSent:
		return true
	case DocumentStatusAccepted:
		return d.Type == DocumentTypeInvoice
	}
	return false
}

// IsUnpaidAt reports whether an invoice was sent and its due date passed before now
func (d *Document) IsUnpaidAt(now time.Time) bool {
	return d.Type == DocumentTypeInvoice &&
		d.Status == DocumentStatusSent &&
		d.DueDate != nil && d.DueDate.Before(now)
}

// DocumentSequenceName is the allocator counter used for numbering documents of type t in year
func DocumentSequenceName(t DocumentType, year int) string {
	return fmt.Sprintf("document:%s:%d", t, year)
}

// FormatDocumentNumber renders PREFIX-YYYY-NNN, the sequence part is at least three digits
func FormatDocumentNumber(t DocumentType, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%03d", t.NumberPrefix(), year, seq)
}
