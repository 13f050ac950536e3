package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentLineRequest is one line of a create or update request.
// Amounts are computed by the engine and never accepted here.
type DocumentLineRequest struct {
	Description string          `json:"description" validate:"required,max=2000"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        *string         `json:"unit,omitempty" validate:"omitempty,max=32"`
	UnitPriceHT decimal.Decimal `json:"unit_price_ht"`
	TVARate     decimal.Decimal `json:"tva_rate"`
}

// CreateDocumentRequest creates a draft quote, invoice or credit note
type CreateDocumentRequest struct {
	ClientID          uint                  `json:"client_id" validate:"required"`
	ProjectID         *uint                 `json:"project_id,omitempty"`
	Type              string                `json:"type" validate:"required,oneof=quote invoice credit_note"`
	Date              *time.Time            `json:"date,omitempty"`
	DueDate           *time.Time            `json:"due_date,omitempty"`
	ValidityDate      *time.Time            `json:"validity_date,omitempty"`
	Subject           *string               `json:"subject,omitempty" validate:"omitempty,max=500"`
	Introduction      *string               `json:"introduction,omitempty"`
	Conclusion        *string               `json:"conclusion,omitempty"`
	Notes             *string               `json:"notes,omitempty"`
	IsAcompteRequired bool                  `json:"is_acompte_required"`
	AcomptePercentage *decimal.Decimal      `json:"acompte_percentage,omitempty"`
	PaymentTerms      *int                  `json:"payment_terms,omitempty"`
	PaymentMethod     *string               `json:"payment_method,omitempty"`
	Lines             []DocumentLineRequest `json:"lines" validate:"dive"`
}

// UpdateDocumentRequest patches a document. Nil fields are left unchanged.
// A non-nil Lines replaces the whole line set; an empty list is rejected.
type UpdateDocumentRequest struct {
	ProjectID         *uint                 `json:"project_id,omitempty"`
	Date              *time.Time            `json:"date,omitempty"`
	DueDate           *time.Time            `json:"due_date,omitempty"`
	ValidityDate      *time.Time            `json:"validity_date,omitempty"`
	Subject           *string               `json:"subject,omitempty" validate:"omitempty,max=500"`
	Introduction      *string               `json:"introduction,omitempty"`
	Conclusion        *string               `json:"conclusion,omitempty"`
	Notes             *string               `json:"notes,omitempty"`
	IsAcompteRequired *bool                 `json:"is_acompte_required,omitempty"`
	AcomptePercentage *decimal.Decimal      `json:"acompte_percentage,omitempty"`
	PaymentTerms      *int                  `json:"payment_terms,omitempty"`
	PaymentMethod     *string               `json:"payment_method,omitempty"`
	Lines             []DocumentLineRequest `json:"lines,omitempty" validate:"omitempty,dive"`
	Status            *string               `json:"status,omitempty"`
}

// HasContentChanges reports whether the patch touches anything besides the status
func (r *UpdateDocumentRequest) HasContentChanges() bool {
	return r.ProjectID != nil || r.Date != nil || r.DueDate != nil || r.ValidityDate != nil ||
		r.Subject != nil || r.Introduction != nil || r.Conclusion != nil || r.Notes != nil ||
		r.IsAcompteRequired != nil || r.AcomptePercentage != nil ||
		r.PaymentTerms != nil || r.PaymentMethod != nil || r.Lines != nil
}

type TransitionDocumentRequest struct {
	Status string `json:"status" validate:"required"`
}

type ListDocumentsRequest struct {
	PaginationRequest
	ClientID *uint   `json:"client_id,omitempty" query:"client_id"`
	Type     *string `json:"type,omitempty" query:"type" validate:"omitempty,oneof=quote invoice credit_note"`
	Status   *string `json:"status,omitempty" query:"status"`
}

type DocumentLineResponse struct {
	ID          uint    `json:"id"`
	Position    int     `json:"position"`
	Description string  `json:"description"`
	Quantity    string  `json:"quantity"`
	Unit        *string `json:"unit,omitempty"`
	UnitPriceHT string  `json:"unit_price_ht"`
	TVARate     string  `json:"tva_rate"`
	TotalHT     string  `json:"total_ht"`
	TotalTVA    string  `json:"total_tva"`
	TotalTTC    string  `json:"total_ttc"`
}

// DocumentResponse renders money with exactly two decimals
type DocumentResponse struct {
	ID                uint                   `json:"id"`
	Number            string                 `json:"number"`
	ClientID          uint                   `json:"client_id"`
	ClientName        string                 `json:"client_name,omitempty"`
	ProjectID         *uint                  `json:"project_id,omitempty"`
	Type              string                 `json:"type"`
	Status            string                 `json:"status"`
	AllowedStatuses   []string               `json:"allowed_statuses"`
	Date              string                 `json:"date"`
	DueDate           *string                `json:"due_date,omitempty"`
	ValidityDate      *string                `json:"validity_date,omitempty"`
	Subject           *string                `json:"subject,omitempty"`
	Introduction      *string                `json:"introduction,omitempty"`
	Conclusion        *string                `json:"conclusion,omitempty"`
	Notes             *string                `json:"notes,omitempty"`
	TotalHT           string                 `json:"total_ht"`
	TotalTVA          string                 `json:"total_tva"`
	TotalTTC          string                 `json:"total_ttc"`
	IsAcompteRequired bool                   `json:"is_acompte_required"`
	AcomptePercentage *string                `json:"acompte_percentage,omitempty"`
	AcompteAmount     *string                `json:"acompte_amount,omitempty"`
	PaymentTerms      *int                   `json:"payment_terms,omitempty"`
	PaymentMethod     *string                `json:"payment_method,omitempty"`
	PaidAt            *string                `json:"paid_at,omitempty"`
	Lines             []DocumentLineResponse `json:"lines,omitempty"`
	CreatedAt         string                 `json:"created_at"`
	UpdatedAt         string                 `json:"updated_at"`
}

type ListDocumentsResponse struct {
	Documents  []DocumentResponse `json:"documents"`
	Pagination PaginationInfo     `json:"pagination"`
}
