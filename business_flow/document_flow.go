package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/docflow/app/dto"
	"github.com/amirphl/docflow/models"
	"github.com/amirphl/docflow/repository"
	"github.com/amirphl/docflow/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DocumentFlow handles quotes, invoices and credit notes
type DocumentFlow interface {
	CreateDocument(ctx context.Context, req *dto.CreateDocumentRequest, metadata *ClientMetadata) (*dto.DocumentResponse, error)
	GetDocument(ctx context.Context, id uint) (*dto.DocumentResponse, error)
	ListDocuments(ctx context.Context, req *dto.ListDocumentsRequest) (*dto.ListDocumentsResponse, error)
	UpdateDocument(ctx context.Context, id uint, req *dto.UpdateDocumentRequest, metadata *ClientMetadata) (*dto.DocumentResponse, error)
	TransitionDocument(ctx context.Context, id uint, req *dto.TransitionDocumentRequest, metadata *ClientMetadata) (*dto.DocumentResponse, error)
}

// DocumentFlowImpl implements the document business flow
type DocumentFlowImpl struct {
	documentRepo repository.DocumentRepository
	clientRepo   repository.ClientRepository
	sequenceRepo repository.SequenceCounterRepository
	auditRepo    repository.AuditLogRepository
	clock        utils.Clock
	db           *gorm.DB
}

// NewDocumentFlow creates a new document flow instance
func NewDocumentFlow(
	documentRepo repository.DocumentRepository,
	clientRepo repository.ClientRepository,
	sequenceRepo repository.SequenceCounterRepository,
	auditRepo repository.AuditLogRepository,
	clock utils.Clock,
	db *gorm.DB,
) DocumentFlow {
	return &DocumentFlowImpl{
		documentRepo: documentRepo,
		clientRepo:   clientRepo,
		sequenceRepo: sequenceRepo,
		auditRepo:    auditRepo,
		clock:        clock,
		db:           db,
	}
}

// CreateDocument validates the request, then allocates the number and inserts the
// document with its lines in one transaction
func (s *DocumentFlowImpl) CreateDocument(ctx context.Context, req *dto.CreateDocumentRequest, metadata *ClientMetadata) (*dto.DocumentResponse, error) {
	now := s.clock.Now()

	doc, err := s.buildDocument(req, now)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_VALIDATION_FAILED", "Document validation failed", err)
	}

	client, err := s.clientRepo.ByID(ctx, req.ClientID)
	if err != nil {
		return nil, NewBusinessError("CLIENT_LOOKUP_FAILED", "Failed to lookup client", err)
	}
	if client == nil {
		return nil, NewBusinessError("CLIENT_NOT_FOUND", "Client not found", ErrClientNotFound)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		seq, err := s.sequenceRepo.Next(txCtx, models.DocumentSequenceName(doc.Type, now.Year()))
		if err != nil {
			return err
		}
		doc.Number = models.FormatDocumentNumber(doc.Type, now.Year(), seq)

		if err := s.documentRepo.Save(txCtx, doc); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s", ErrDuplicateNumber, doc.Number)
			}
			return err
		}
		return nil
	})
	if err != nil {
		errMsg := fmt.Sprintf("Document creation failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, auditEntry{
			entityType:  models.AuditEntityDocument,
			action:      models.AuditActionDocumentCreationFailed,
			description: errMsg,
			errorMsg:    &errMsg,
			extra:       map[string]any{"type": doc.Type, "client_id": req.ClientID},
		}, metadata)
		if IsConflict(err) {
			return nil, NewBusinessError("DOCUMENT_NUMBER_CONFLICT", "Document number already allocated", err)
		}
		return nil, NewBusinessError("DOCUMENT_CREATION_FAILED", "Document creation failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, auditEntry{
		entityType:  models.AuditEntityDocument,
		entityID:    &doc.ID,
		action:      models.AuditActionDocumentCreated,
		description: fmt.Sprintf("Document created: %s", doc.Number),
		success:     true,
		extra:       map[string]any{"number": doc.Number, "total_ttc": formatMoney(doc.TotalTTC)},
	}, metadata)
	documentsCreatedTotal.WithLabelValues(string(doc.Type)).Inc()

	doc.Client = client
	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// GetDocument returns a document with its lines
func (s *DocumentFlowImpl) GetDocument(ctx context.Context, id uint) (*dto.DocumentResponse, error) {
	doc, err := s.documentRepo.ByIDWithLines(ctx, id)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_LOOKUP_FAILED", "Failed to lookup document", err)
	}
	if doc == nil {
		return nil, NewBusinessError("DOCUMENT_NOT_FOUND", "Document not found", ErrDocumentNotFound)
	}
	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// ListDocuments pages through documents, newest first. Lines are not loaded.
func (s *DocumentFlowImpl) ListDocuments(ctx context.Context, req *dto.ListDocumentsRequest) (*dto.ListDocumentsResponse, error) {
	filter := models.DocumentFilter{ClientID: req.ClientID}
	if req.Type != nil {
		t := models.DocumentType(*req.Type)
		if !t.IsValid() {
			return nil, NewBusinessError("INVALID_DOCUMENT_TYPE", "Invalid document type", ErrInvalidDocumentType)
		}
		filter.Type = &t
	}
	if req.Status != nil {
		st := models.DocumentStatus(*req.Status)
		if !st.IsValid() {
			return nil, NewBusinessError("INVALID_DOCUMENT_STATUS", "Invalid document status", ErrInvalidDocumentStatus)
		}
		filter.Status = &st
	}

	page, pageSize, limit, offset := pageBounds(req.Page, req.PageSize)

	total, err := s.documentRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_LIST_FAILED", "Failed to count documents", err)
	}
	docs, err := s.documentRepo.ByFilter(ctx, filter, "date DESC, id DESC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_LIST_FAILED", "Failed to list documents", err)
	}

	clientIDs := make([]uint, 0, len(docs))
	for _, d := range docs {
		clientIDs = append(clientIDs, d.ClientID)
	}
	clients, err := s.clientRepo.ByIDs(ctx, clientIDs)
	if err != nil {
		return nil, NewBusinessError("CLIENT_LOOKUP_FAILED", "Failed to lookup clients", err)
	}

	resp := &dto.ListDocumentsResponse{
		Documents: make([]dto.DocumentResponse, 0, len(docs)),
		Pagination: dto.PaginationInfo{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages(total, pageSize),
		},
	}
	for _, d := range docs {
		d.Client = clients[d.ClientID]
		resp.Documents = append(resp.Documents, ToDocumentResponse(d))
	}
	return resp, nil
}

// UpdateDocument applies a patch and an optional status change atomically.
// Line replacement, totals and status commit together or not at all.
func (s *DocumentFlowImpl) UpdateDocument(ctx context.Context, id uint, req *dto.UpdateDocumentRequest, metadata *ClientMetadata) (*dto.DocumentResponse, error) {
	var target *models.DocumentStatus
	if req.Status != nil {
		st := models.DocumentStatus(*req.Status)
		if !st.IsValid() {
			return nil, NewBusinessError("INVALID_DOCUMENT_STATUS", "Invalid document status", ErrInvalidDocumentStatus)
		}
		target = &st
	}
	if req.Lines != nil && len(req.Lines) == 0 {
		return nil, NewBusinessError("DOCUMENT_VALIDATION_FAILED", "Document validation failed", ErrEmptyLineSet)
	}

	now := s.clock.Now()
	var (
		updated *models.Document
		from    models.DocumentStatus
		moved   bool
	)

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		doc, err := s.documentRepo.ByIDWithLines(txCtx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return ErrDocumentNotFound
		}
		from = doc.Status

		moved = target != nil && *target != doc.Status
		if moved && !doc.CanTransitionTo(*target) {
			return fmt.Errorf("%w: %s to %s", ErrTransitionNotAllowed, doc.Status, *target)
		}

		if req.HasContentChanges() {
			if !doc.IsMutable() {
				return fmt.Errorf("%w: status %s", ErrDocumentNotMutable, doc.Status)
			}
			if err := applyDocumentPatch(doc, req, now); err != nil {
				return err
			}
			doc.UpdatedAt = now

			ok, err := s.documentRepo.UpdateContent(txCtx, doc, from)
			if err != nil {
				return err
			}
			if !ok {
				return ErrConcurrentUpdate
			}
			if req.Lines != nil {
				if err := s.documentRepo.ReplaceLines(txCtx, doc.ID, doc.Lines); err != nil {
					return err
				}
			}
		}

		if moved {
			ok, err := s.documentRepo.UpdateStatus(txCtx, doc.ID, from, *target, now)
			if err != nil {
				return err
			}
			if !ok {
				return ErrConcurrentUpdate
			}
		}

		updated, err = s.documentRepo.ByIDWithLines(txCtx, id)
		return err
	})
	if err != nil {
		errMsg := fmt.Sprintf("Document update failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, auditEntry{
			entityType:  models.AuditEntityDocument,
			entityID:    &id,
			action:      models.AuditActionDocumentUpdateFailed,
			description: errMsg,
			errorMsg:    &errMsg,
		}, metadata)
		return nil, documentError("DOCUMENT_UPDATE_FAILED", "Document update failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, auditEntry{
		entityType:  models.AuditEntityDocument,
		entityID:    &id,
		action:      models.AuditActionDocumentUpdated,
		description: fmt.Sprintf("Document updated: %s", updated.Number),
		success:     true,
		extra:       map[string]any{"from": from, "status": updated.Status, "total_ttc": formatMoney(updated.TotalTTC)},
	}, metadata)
	if moved {
		documentTransitionsTotal.WithLabelValues(string(updated.Type), string(from), string(updated.Status)).Inc()
	}

	resp := ToDocumentResponse(updated)
	return &resp, nil
}

// TransitionDocument moves a document to a new status with a compare-and-swap on the stored status
func (s *DocumentFlowImpl) TransitionDocument(ctx context.Context, id uint, req *dto.TransitionDocumentRequest, metadata *ClientMetadata) (*dto.DocumentResponse, error) {
	to := models.DocumentStatus(req.Status)
	if !to.IsValid() {
		return nil, NewBusinessError("INVALID_DOCUMENT_STATUS", "Invalid document status", ErrInvalidDocumentStatus)
	}

	var (
		updated *models.Document
		from    models.DocumentStatus
	)
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		doc, err := s.documentRepo.ByID(txCtx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return ErrDocumentNotFound
		}
		from = doc.Status

		if err := transitionDocument(txCtx, s.documentRepo, doc, to, s.clock.Now()); err != nil {
			return err
		}

		updated, err = s.documentRepo.ByIDWithLines(txCtx, id)
		return err
	})
	if err != nil {
		errMsg := fmt.Sprintf("Document transition to %s failed: %s", to, err.Error())
		_ = createAuditLog(ctx, s.auditRepo, auditEntry{
			entityType:  models.AuditEntityDocument,
			entityID:    &id,
			action:      models.AuditActionDocumentTransitionFailed,
			description: errMsg,
			errorMsg:    &errMsg,
		}, metadata)
		return nil, documentError("DOCUMENT_TRANSITION_FAILED", "Document transition failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, auditEntry{
		entityType:  models.AuditEntityDocument,
		entityID:    &id,
		action:      models.AuditActionDocumentTransitioned,
		description: fmt.Sprintf("Document %s moved from %s to %s", updated.Number, from, to),
		success:     true,
		extra:       map[string]any{"from": from, "to": to},
	}, metadata)
	documentTransitionsTotal.WithLabelValues(string(updated.Type), string(from), string(to)).Inc()

	resp := ToDocumentResponse(updated)
	return &resp, nil
}

// transitionDocument checks the transition table and swaps the stored status.
// It runs inside the caller's transaction; doc.Status is the status the caller observed.
func transitionDocument(ctx context.Context, repo repository.DocumentRepository, doc *models.Document, to models.DocumentStatus, now time.Time) error {
	if !doc.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s %s to %s", ErrTransitionNotAllowed, doc.Type, doc.Status, to)
	}
	ok, err := repo.UpdateStatus(ctx, doc.ID, doc.Status, to, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConcurrentUpdate
	}
	doc.Status = to
	doc.UpdatedAt = now
	if to == models.DocumentStatusPaid {
		doc.PaidAt = &now
	}
	return nil
}

// documentError wraps err with a code matching its kind
func documentError(fallbackCode, message string, err error) *BusinessError {
	switch {
	case IsConcurrentUpdate(err):
		return NewBusinessError("DOCUMENT_CONCURRENT_UPDATE", "Document was modified concurrently", err)
	case IsNotFound(err):
		return NewBusinessError("DOCUMENT_NOT_FOUND", "Document not found", err)
	case errors.Is(err, ErrTransitionNotAllowed):
		return NewBusinessError("TRANSITION_NOT_ALLOWED", "Status transition not allowed", err)
	case errors.Is(err, ErrDocumentNotMutable):
		return NewBusinessError("DOCUMENT_NOT_MUTABLE", "Document can no longer be edited", err)
	case IsValidation(err):
		return NewBusinessError("DOCUMENT_VALIDATION_FAILED", "Document validation failed", err)
	}
	return NewBusinessError(fallbackCode, message, err)
}

// buildDocument turns a create request into a draft document with computed totals
func (s *DocumentFlowImpl) buildDocument(req *dto.CreateDocumentRequest, now time.Time) (*models.Document, error) {
	docType := models.DocumentType(req.Type)
	if !docType.IsValid() {
		return nil, ErrInvalidDocumentType
	}
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLineSet
	}

	date := now
	if req.Date != nil {
		date = req.Date.UTC()
	}

	doc := &models.Document{
		ClientID:          req.ClientID,
		ProjectID:         req.ProjectID,
		Type:              docType,
		Status:            models.DocumentStatusDraft,
		Date:              date,
		DueDate:           utils.TimeToUTCPtr(req.DueDate),
		ValidityDate:      utils.TimeToUTCPtr(req.ValidityDate),
		Subject:           utils.TrimPtr(req.Subject),
		Introduction:      utils.TrimPtr(req.Introduction),
		Conclusion:        utils.TrimPtr(req.Conclusion),
		Notes:             utils.TrimPtr(req.Notes),
		IsAcompteRequired: req.IsAcompteRequired,
		AcomptePercentage: req.AcomptePercentage,
		PaymentTerms:      req.PaymentTerms,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.PaymentMethod != nil {
		doc.PaymentMethod = utils.ToPtr(models.PaymentMethod(*req.PaymentMethod))
	}

	lines, err := buildLines(req.Lines, now)
	if err != nil {
		return nil, err
	}
	doc.Lines = lines

	if err := validateDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// applyDocumentPatch mutates doc with the non-nil fields of req and recomputes totals
func applyDocumentPatch(doc *models.Document, req *dto.UpdateDocumentRequest, now time.Time) error {
	if req.ProjectID != nil {
		doc.ProjectID = req.ProjectID
	}
	if req.Date != nil {
		doc.Date = req.Date.UTC()
	}
	if req.DueDate != nil {
		doc.DueDate = utils.TimeToUTCPtr(req.DueDate)
	}
	if req.ValidityDate != nil {
		doc.ValidityDate = utils.TimeToUTCPtr(req.ValidityDate)
	}
	if req.Subject != nil {
		doc.Subject = utils.TrimPtr(req.Subject)
	}
	if req.Introduction != nil {
		doc.Introduction = utils.TrimPtr(req.Introduction)
	}
	if req.Conclusion != nil {
		doc.Conclusion = utils.TrimPtr(req.Conclusion)
	}
	if req.Notes != nil {
		doc.Notes = utils.TrimPtr(req.Notes)
	}
	if req.IsAcompteRequired != nil {
		doc.IsAcompteRequired = *req.IsAcompteRequired
	}
	if req.AcomptePercentage != nil {
		doc.AcomptePercentage = req.AcomptePercentage
	}
	if req.PaymentTerms != nil {
		doc.PaymentTerms = req.PaymentTerms
	}
	if req.PaymentMethod != nil {
		doc.PaymentMethod = utils.ToPtr(models.PaymentMethod(*req.PaymentMethod))
	}
	if req.Lines != nil {
		lines, err := buildLines(req.Lines, now)
		if err != nil {
			return err
		}
		doc.Lines = lines
	}
	return validateDocument(doc)
}

func buildLines(reqs []dto.DocumentLineRequest, now time.Time) ([]*models.DocumentLine, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyLineSet
	}
	lines := make([]*models.DocumentLine, 0, len(reqs))
	for i, l := range reqs {
		description := strings.TrimSpace(l.Description)
		switch {
		case description == "":
			return nil, fmt.Errorf("%w: line %d description is required", ErrInvalidLine, i+1)
		case l.Quantity.IsNegative():
			return nil, fmt.Errorf("%w: line %d quantity must not be negative", ErrInvalidLine, i+1)
		case l.TVARate.IsNegative():
			return nil, fmt.Errorf("%w: line %d tax rate must not be negative", ErrInvalidLine, i+1)
		}
		lines = append(lines, &models.DocumentLine{
			Position:    i + 1,
			Description: description,
			Quantity:    l.Quantity,
			Unit:        utils.TrimPtr(l.Unit),
			UnitPriceHT: l.UnitPriceHT,
			TVARate:     l.TVARate,
			CreatedAt:   now,
		})
	}
	return lines, nil
}

// validateDocument checks cross-field rules and recomputes the derived amounts
func validateDocument(doc *models.Document) error {
	if len(doc.Lines) == 0 {
		return ErrEmptyLineSet
	}
	if doc.ValidityDate != nil && doc.Type != models.DocumentTypeQuote {
		return ErrValidityDateNotAllowed
	}
	if doc.DueDate != nil && doc.DueDate.Before(doc.Date) {
		return ErrDueDateBeforeDate
	}
	if doc.PaymentMethod != nil && !doc.PaymentMethod.IsValid() {
		return ErrInvalidPaymentMethod
	}
	if doc.PaymentTerms != nil && *doc.PaymentTerms < 0 {
		return ErrInvalidPaymentTerms
	}
	if doc.IsAcompteRequired {
		p := doc.AcomptePercentage
		if p == nil || !p.IsPositive() || p.GreaterThan(decimal.NewFromInt(100)) {
			return ErrInvalidDeposit
		}
	} else {
		doc.AcomptePercentage = nil
	}

	totals := doc.RecomputeTotals()

	switch doc.Type {
	case models.DocumentTypeCreditNote:
		if totals.TTC.IsPositive() {
			return fmt.Errorf("%w: credit note total %s must not be positive", ErrTotalSignMismatch, formatMoney(totals.TTC))
		}
	default:
		if totals.TTC.IsNegative() {
			return fmt.Errorf("%w: %s total %s must not be negative", ErrTotalSignMismatch, doc.Type, formatMoney(totals.TTC))
		}
	}
	return nil
}
