// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/amirphl/docflow/app/dto"
	"github.com/amirphl/docflow/models"
	"github.com/amirphl/docflow/repository"
	"github.com/amirphl/docflow/utils"
	"github.com/shopspring/decimal"
)

// ClientMetadata holds all client-related information for audit logging and view tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	OperatorID *uint             `json:"operator_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetOperatorID records the authenticated operator behind the request
func (cm *ClientMetadata) SetOperatorID(operatorID uint) {
	cm.OperatorID = &operatorID
}

// Viewer converts the metadata to the optional viewer fields stored with views and signatures
func (cm *ClientMetadata) Viewer() models.Viewer {
	if cm == nil {
		return models.Viewer{}
	}
	return models.Viewer{
		IPAddress: utils.TrimPtr(&cm.IPAddress),
		UserAgent: utils.TrimPtr(&cm.UserAgent),
	}
}

// auditEntry is one row to append to the audit trail
type auditEntry struct {
	entityType  string
	entityID    *uint
	action      string
	description string
	success     bool
	errorMsg    *string
	extra       map[string]any
}

// createAuditLog appends an audit row. Callers ignore the error, the trail is best effort.
func createAuditLog(ctx context.Context, auditRepo repository.AuditLogRepository, entry auditEntry, metadata *ClientMetadata) error {
	if auditRepo == nil {
		return nil
	}

	audit := &models.AuditLog{
		Action:       entry.action,
		EntityType:   entry.entityType,
		EntityID:     entry.entityID,
		Description:  &entry.description,
		Success:      utils.ToPtr(entry.success),
		ErrorMessage: entry.errorMsg,
	}

	extra := make(map[string]any, len(entry.extra)+1)
	for k, v := range entry.extra {
		extra[k] = v
	}
	if metadata != nil {
		audit.IPAddress = utils.TrimPtr(&metadata.IPAddress)
		audit.UserAgent = utils.TrimPtr(&metadata.UserAgent)
		if metadata.OperatorID != nil {
			extra["operator_id"] = *metadata.OperatorID
		}
		if metadata.RequestID != "" {
			audit.RequestID = &metadata.RequestID
		}
	}

	// Extract request ID from context if available
	if audit.RequestID == nil {
		audit.RequestID = utils.RequestIDFromContext(ctx)
	}

	if len(extra) > 0 {
		if bs, err := json.Marshal(extra); err == nil {
			audit.Metadata = bs
		}
	}

	return auditRepo.Save(ctx, audit)
}

func errorMessage(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatMoneyPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// ToDocumentResponse converts a document and its loaded lines to the API shape
func ToDocumentResponse(doc *models.Document) dto.DocumentResponse {
	allowed := models.AllowedTransitions(doc.Type, doc.Status)
	allowedStatuses := make([]string, 0, len(allowed))
	for _, s := range allowed {
		allowedStatuses = append(allowedStatuses, string(s))
	}

	resp := dto.DocumentResponse{
		ID:                doc.ID,
		Number:            doc.Number,
		ClientID:          doc.ClientID,
		ClientName:        doc.Client.DisplayName(),
		ProjectID:         doc.ProjectID,
		Type:              string(doc.Type),
		Status:            string(doc.Status),
		AllowedStatuses:   allowedStatuses,
		Date:              doc.Date.UTC().Format(time.DateOnly),
		DueDate:           utils.FormatDatePtr(doc.DueDate),
		ValidityDate:      utils.FormatDatePtr(doc.ValidityDate),
		Subject:           doc.Subject,
		Introduction:      doc.Introduction,
		Conclusion:        doc.Conclusion,
		Notes:             doc.Notes,
		TotalHT:           formatMoney(doc.TotalHT),
		TotalTVA:          formatMoney(doc.TotalTVA),
		TotalTTC:          formatMoney(doc.TotalTTC),
		IsAcompteRequired: doc.IsAcompteRequired,
		AcomptePercentage: formatMoneyPtr(doc.AcomptePercentage),
		AcompteAmount:     formatMoneyPtr(doc.AcompteAmount),
		PaymentTerms:      doc.PaymentTerms,
		PaidAt:            formatTimePtr(doc.PaidAt),
		CreatedAt:         formatTime(doc.CreatedAt),
		UpdatedAt:         formatTime(doc.UpdatedAt),
	}
	if doc.PaymentMethod != nil {
		resp.PaymentMethod = utils.ToPtr(string(*doc.PaymentMethod))
	}

	for _, l := range doc.Lines {
		resp.Lines = append(resp.Lines, dto.DocumentLineResponse{
			ID:          l.ID,
			Position:    l.Position,
			Description: l.Description,
			Quantity:    l.Quantity.String(),
			Unit:        l.Unit,
			UnitPriceHT: l.UnitPriceHT.String(),
			TVARate:     l.TVARate.String(),
			TotalHT:     formatMoney(l.TotalHT),
			TotalTVA:    formatMoney(l.TotalTVA),
			TotalTTC:    formatMoney(l.TotalTTC),
		})
	}

	return resp
}

// ToTrackingResponse converts a tracking record, url is the public view link
func ToTrackingResponse(t *models.DocumentTracking, url string) dto.TrackingResponse {
	return dto.TrackingResponse{
		ID:                  t.ID,
		DocumentID:          t.DocumentID,
		Token:               t.Token,
		URL:                 url,
		ViewCount:           t.ViewCount,
		FirstViewedAt:       formatTimePtr(t.FirstViewedAt),
		LastViewedAt:        formatTimePtr(t.LastViewedAt),
		LastViewerIP:        t.LastViewerIP,
		LastViewerUserAgent: t.LastViewerUserAgent,
		CreatedAt:           formatTime(t.CreatedAt),
	}
}

func ToSignatureRequestResponse(s *models.SignatureRequest) dto.SignatureRequestResponse {
	return dto.SignatureRequestResponse{
		ID:             s.ID,
		DocumentID:     s.DocumentID,
		SignerName:     s.SignerName,
		SignerEmail:    s.SignerEmail,
		SignerRole:     string(s.SignerRole),
		Message:        s.Message,
		Status:         string(s.Status),
		SentAt:         formatTime(s.SentAt),
		RespondedAt:    formatTimePtr(s.RespondedAt),
		ExpiresAt:      formatTimePtr(s.ExpiresAt),
		DeclinedReason: s.DeclinedReason,
		ReminderCount:  s.ReminderCount,
		ReminderSentAt: formatTimePtr(s.ReminderSentAt),
	}
}

// pageBounds normalizes page and page size and returns limit and offset
func pageBounds(page, pageSize int) (int, int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = utils.DefaultPageSize
	}
	if pageSize > utils.MaxPageSize {
		pageSize = utils.MaxPageSize
	}
	return page, pageSize, pageSize, (page - 1) * pageSize
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
