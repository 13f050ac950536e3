package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/amirphl/docflow/app/dto"
	"github.com/amirphl/docflow/app/services"
	"github.com/amirphl/docflow/models"
	"github.com/amirphl/docflow/repository"
	"github.com/amirphl/docflow/utils"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// SignatureFlow handles e-signature requests. RespondByToken and GetByToken serve the public signer channel.
type SignatureFlow interface {
	SendRequest(ctx context.Context, documentID uint, req *dto.SendSignatureRequest, metadata *ClientMetadata) (*dto.SignatureRequestResponse, error)
	SendReminder(ctx context.Context, signatureID uint, metadata *ClientMetadata) (*dto.SignatureRequestResponse, error)
	Respond(ctx context.Context, signatureID uint, req *dto.RespondSignatureRequest, metadata *ClientMetadata) (*dto.SignatureRequestResponse, error)
	RespondByToken(ctx context.Context, token string, req *dto.RespondSignatureRequest, metadata *ClientMetadata) (*dto.SignatureRequestResponse, error)
	GetByToken(ctx context.Context, token string) (*dto.PublicSignatureResponse, error)
	ListByDocument(ctx context.Context, documentID uint) (*dto.ListSignatureRequestsResponse, error)
	ListPending(ctx context.Context) (*dto.ListSignatureRequestsResponse, error)
	AggregateStatus(ctx context.Context, documentID uint) (*dto.SignatureStatusResponse, error)
}

// SignatureFlowImpl implements the signature business flow
type SignatureFlowImpl struct {
	signatureRepo repository.SignatureRequestRepository
	documentRepo  repository.DocumentRepository
	auditRepo     repository.AuditLogRepository
	notifier      services.DocumentNotifier
	validator     *validator.Validate
	clock         utils.Clock
	requestTTL    time.Duration
	publicBaseURL string
	db            *gorm.DB
}

// NewSignatureFlow creates a new signature flow instance
func NewSignatureFlow(
	signatureRepo repository.SignatureRequestRepository,
	documentRepo repository.DocumentRepository,
	auditRepo repository.AuditLogRepository,
	notifier services.DocumentNotifier,
	clock utils.Clock,
	requestTTL time.Duration,
	publicBaseURL string,
	db *gorm.DB,
) SignatureFlow {
	if requestTTL <= 0 {
		requestTTL = utils.SignatureRequestTTL
	}
	return &SignatureFlowImpl{
		signatureRepo: signatureRepo,
		documentRepo:  documentRepo,
		auditRepo:     auditRepo,
		notifier:      notifier,
		validator:     validator.New(),
		clock:         clock,
		requestTTL:    requestTTL,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		db:            db,
	}
}

// SendRequest creates a pending request and notifies the signer in the same transaction.
// If the signer cannot be notified the request is not kept.
func (s *SignatureFlowImpl) SendRequest(ctx context.Context, documentID uint, req *dto.SendSignatureRequest, metadata *ClientMetadata) (*dto.SignatureRequestResponse, error) {
	email := strings.TrimSpace(req.SignerEmail)
	if err := s.validator.Var(email, "required,email"); err != nil {
		return nil, NewBusinessError("INVALID_SIGNER_EMAIL", "Signer email is missing or malformed", ErrInvalidSignerEmail)
	}
	name := strings.TrimSpace(req.SignerName)
	if name == "" {
		return nil, NewBusinessError("SIGNER_NAME_REQUIRED", "Signer name is required", ErrSignerNameRequired)
	}
	role := models.SignerRoleClient
	if req.SignerRole != nil {
		role = models.SignerRole(*req.SignerRole)
		if !role.IsValid() {
			return nil, NewBusinessError("INVALID_SIGNER_ROLE", "Invalid signer role", ErrInvalidSignerRole)
		}
	}

	token, err := utils.NewAccessToken()
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate signature token", err)
	}

	now := s.clock.Now()
	request := &models.SignatureRequest{
		DocumentID:  documentID,
		Token:       token,
		SignerName:  name,
		SignerEmail: email,
		SignerRole:  role,
		Message:     utils.TrimPtr(req.Message),
		Status:      models.SignatureStatusPending,
		SentAt:      now,
		ExpiresAt:   utils.ToPtr(now.Add(s.requestTTL)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var doc *models.Document
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		doc, err = s.documentRepo.ByIDWithLines(txCtx, documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return ErrDocumentNotFound
		}
		if doc.Status.IsTerminal() {
			return fmt.Errorf("%w: status %s", ErrDocumentClosed, doc.Status)
		}

		if err := s.signatureRepo.Save(txCtx, request); err != nil {
			return err
		}

		return s.notifier.NotifySignatureRequest(txCtx, email, s.documentRef(doc, token), request.Message)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Signature request failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, auditEntry{
			entityType:  models.AuditEntitySignatureRequest,
			action:      models.AuditActionSignatureRequestFailed,
			description: errMsg,
			errorMsg:    &errMsg,
			extra:       map[string]any{"document_id": documentID, "signer_email": email},
		}, metadata)
		return nil, signatureError("SIGNATURE_REQUEST_FAILED", "Failed to send signature request", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, auditEntry{
		entityType:  models.AuditEntitySignatureRequest,
		entityID:    &request.ID,
		action:      models.AuditActionSignatureRequested,
		description: fmt.Sprintf("Signature requested from %s for %s", email, doc.Number),
		success:     true,
		extra:       map[string]any{"document_id": documentID, "signer_role": role},
	}, metadata)

	resp := ToSignatureRequestResponse(request)
	resp.SignURL = s.signURL(token)
	return &resp, nil
}

// SendReminder re-notifies the signer of a pending request and bumps the reminder counter
func (s *SignatureFlowImpl) SendReminder(ctx context.Context, signatureID uint, metadata *ClientMetadata) (*dto.SignatureRequestResponse, error) {
	request, err := s.signatureRepo.ByID(ctx, signatureID)
	if err != nil {
		return nil, NewBusinessError("SIGNATURE_LOOKUP_FAILED", "Failed to lookup signature request", err)
	}
	if request == nil {
		return nil, NewBusinessError("SIGNATURE_NOT_FOUND", "Signature request not found", ErrSignatureRequestNotFound)
	}
	if !request.IsPending() {
		return nil, NewBusinessError("SIGNATURE_NOT_PENDING", "Signature request is no longer pending", ErrSignatureNotPending)
	}

	doc, err := s.documentRepo.ByIDWithLines(ctx, request.DocumentID)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_LOOKUP_FAILED", "Failed to lookup document", err)
	}
	if doc == nil {
		return nil, NewBusinessError("DOCUMENT_NOT_FOUND", "Document not found", ErrDocumentNotFound)
	}

	if err := s.notifier.NotifySignatureReminder(ctx, request.SignerEmail, s.documentRef(doc, request.Token)); err != nil {
		return nil, NewBusinessError("SIGNATURE_REMINDER_FAILED", "Failed to send signature reminder", err)
	}

	ok, err := s.signatureRepo.MarkReminded(ctx, request.ID, s.clock.Now())
	if err != nil {
		return nil, NewBusinessError("SIGNATURE_REMINDER_FAILED", "Failed to record signature reminder", err)
	}
	if !ok {
		// answered between the check and the update
		return nil, NewBusinessError("SIGNATURE_NOT_PENDING", "Signature request is no longer pending", ErrSignatureNotPending)
	}
	signatureRemindersTotal.Inc()

	updated, err := s.signatureRepo.ByID(ctx, request.ID)
	if err != nil || updated == nil {
		return nil, NewBusinessError("SIGNATURE_LOOKUP_FAILED", "Failed to lookup signature request", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, auditEntry{
		entityType:  models.AuditEntitySignatureRequest,
		entityID:    &updated.ID,
		action:      models.AuditActionSignatureReminderSent,
		description: fmt.Sprintf("Signature reminder %d sent to %s", updated.ReminderCount, updated.SignerEmail),
		success:     true,
	}, metadata)

	resp := ToSignatureRequestResponse(updated)
	return &resp, nil
}

// Respond records the signer's outcome on behalf of an operator
func (s *SignatureFlowImpl) Respond(ctx context.Context, signatureID uint, req *dto.RespondSignatureRequest, metadata *ClientMetadata) (*dto.SignatureRequestResponse, error) {
	return s.respond(ctx, func(txCtx context.Context) (*models.SignatureRequest, error) {
		return s.signatureRepo.ByID(txCtx, signatureID)
	}, req, metadata)
}

// RespondByToken records the outcome coming from the signing link
func (s *SignatureFlowImpl) RespondByToken(ctx context.Context, token string, req *dto.RespondSignatureRequest, metadata *ClientMetadata) (*dto.SignatureRequestResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, NewBusinessError("SIGNATURE_NOT_FOUND", "Signature request not found", ErrSignatureRequestNotFound)
	}
	return s.respond(ctx, func(txCtx context.Context) (*models.SignatureRequest, error) {
		return s.signatureRepo.ByToken(txCtx, token)
	}, req, metadata)
}

// respond leaves pending exactly once. A signed or declined quote that was sent
// is accepted or rejected in the same transaction.
func (s *SignatureFlowImpl) respond(
	ctx context.Context,
	load func(context.Context) (*models.SignatureRequest, error),
	req *dto.RespondSignatureRequest,
	metadata *ClientMetadata,
) (*dto.SignatureRequestResponse, error) {
	outcome := models.SignatureStatus(req.Outcome)
	if !outcome.IsTerminal() {
		return nil, NewBusinessError("INVALID_OUTCOME", "Signature outcome must be signed or declined", ErrInvalidOutcome)
	}
	signatureData := utils.TrimPtr(req.SignatureData)
	if outcome == models.SignatureStatusSigned && signatureData == nil {
		return nil, NewBusinessError("SIGNATURE_DATA_REQUIRED", "Signature data is required to sign", ErrSignatureDataRequired)
	}

	viewer := metadata.Viewer()
	response := models.SignatureResponse{
		Outcome:        outcome,
		SignatureData:  signatureData,
		DeclinedReason: utils.TrimPtr(req.DeclinedReason),
		IPAddress:      viewer.IPAddress,
		UserAgent:      viewer.UserAgent,
	}

	now := s.clock.Now()
	var (
		updated *models.SignatureRequest
		doc     *models.Document
		moved   *models.DocumentStatus
		from    models.DocumentStatus
		id      *uint
	)
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		request, err := load(txCtx)
		if err != nil {
			return err
		}
		if request == nil {
			return ErrSignatureRequestNotFound
		}
		id = &request.ID
		if !request.IsPending() {
			return fmt.Errorf("%w: status %s", ErrSignatureNotPending, request.Status)
		}
		// an expired link can still be used to decline
		if outcome == models.SignatureStatusSigned && request.IsExpiredAt(now) {
			return ErrSignatureExpired
		}

		ok, err := s.signatureRepo.Respond(txCtx, request.ID, response, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConcurrentUpdate
		}

		doc, err = s.documentRepo.ByIDWithLines(txCtx, request.DocumentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return ErrDocumentNotFound
		}
		if doc.Type == models.DocumentTypeQuote && doc.Status == models.DocumentStatusSent {
			to := models.DocumentStatusAccepted
			if outcome == models.SignatureStatusDeclined {
				to = models.DocumentStatusRejected
			}
			from = doc.Status
			if err := transitionDocument(txCtx, s.documentRepo, doc, to, now); err != nil {
				return err
			}
			moved = &to
		}

		updated, err = s.signatureRepo.ByID(txCtx, request.ID)
		return err
	})
	if err != nil {
		errMsg := fmt.Sprintf("Signature response failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, auditEntry{
			entityType:  models.AuditEntitySignatureRequest,
			entityID:    id,
			action:      models.AuditActionSignatureResponseFailed,
			description: errMsg,
			errorMsg:    &errMsg,
			extra:       map[string]any{"outcome": outcome},
		}, metadata)
		return nil, signatureError("SIGNATURE_RESPONSE_FAILED", "Failed to record signature response", err)
	}

	action := models.AuditActionSignatureSigned
	if outcome == models.SignatureStatusDeclined {
		action = models.AuditActionSignatureDeclined
	}
	extra := map[string]any{"document_id": updated.DocumentID}
	if moved != nil {
		extra["document_status"] = *moved
		documentTransitionsTotal.WithLabelValues(string(doc.Type), string(from), string(*moved)).Inc()
	}
	_ = createAuditLog(ctx, s.auditRepo, auditEntry{
		entityType:  models.AuditEntitySignatureRequest,
		entityID:    &updated.ID,
		action:      action,
		description: fmt.Sprintf("%s %s %s", updated.SignerName, outcome, doc.Number),
		success:     true,
		extra:       extra,
	}, metadata)
	signatureResponsesTotal.WithLabelValues(string(outcome)).Inc()

	if err := s.notifier.NotifySignatureResponded(ctx, s.documentRef(doc, ""), updated.SignerName, string(outcome)); err != nil {
		log.Printf("signature: owner notification for %s failed: %v", doc.Number, err)
	}

	resp := ToSignatureRequestResponse(updated)
	return &resp, nil
}

// GetByToken shows the signer what they are asked to sign
func (s *SignatureFlowImpl) GetByToken(ctx context.Context, token string) (*dto.PublicSignatureResponse, error) {
	request, err := s.signatureRepo.ByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, NewBusinessError("SIGNATURE_LOOKUP_FAILED", "Failed to lookup signature request", err)
	}
	if request == nil {
		return nil, NewBusinessError("SIGNATURE_NOT_FOUND", "Signature request not found", ErrSignatureRequestNotFound)
	}

	doc, err := s.documentRepo.ByIDWithLines(ctx, request.DocumentID)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_LOOKUP_FAILED", "Failed to lookup document", err)
	}

	resp := &dto.PublicSignatureResponse{
		Status:     string(request.Status),
		SignerName: request.SignerName,
		ExpiresAt:  formatTimePtr(request.ExpiresAt),
		Expired:    request.IsPending() && request.IsExpiredAt(s.clock.Now()),
	}
	if doc != nil {
		d := ToDocumentResponse(doc)
		d.AllowedStatuses = nil
		resp.Document = &d
	}
	return resp, nil
}

func (s *SignatureFlowImpl) ListByDocument(ctx context.Context, documentID uint) (*dto.ListSignatureRequestsResponse, error) {
	exists, err := s.documentRepo.Exists(ctx, models.DocumentFilter{ID: &documentID})
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_LOOKUP_FAILED", "Failed to lookup document", err)
	}
	if !exists {
		return nil, NewBusinessError("DOCUMENT_NOT_FOUND", "Document not found", ErrDocumentNotFound)
	}

	rows, err := s.signatureRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, NewBusinessError("SIGNATURE_LIST_FAILED", "Failed to list signature requests", err)
	}
	return toSignatureList(rows), nil
}

// ListPending returns every request still waiting for an answer, oldest first
func (s *SignatureFlowImpl) ListPending(ctx context.Context) (*dto.ListSignatureRequestsResponse, error) {
	status := models.SignatureStatusPending
	rows, err := s.signatureRepo.ByFilter(ctx, models.SignatureRequestFilter{Status: &status}, "sent_at ASC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("SIGNATURE_LIST_FAILED", "Failed to list pending signature requests", err)
	}
	return toSignatureList(rows), nil
}

// AggregateStatus derives the document's signature state from its requests. Nothing is stored.
func (s *SignatureFlowImpl) AggregateStatus(ctx context.Context, documentID uint) (*dto.SignatureStatusResponse, error) {
	exists, err := s.documentRepo.Exists(ctx, models.DocumentFilter{ID: &documentID})
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_LOOKUP_FAILED", "Failed to lookup document", err)
	}
	if !exists {
		return nil, NewBusinessError("DOCUMENT_NOT_FOUND", "Document not found", ErrDocumentNotFound)
	}

	rows, err := s.signatureRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, NewBusinessError("SIGNATURE_LIST_FAILED", "Failed to list signature requests", err)
	}

	resp := &dto.SignatureStatusResponse{
		DocumentID: documentID,
		Status:     string(models.AggregateSignatureStatus(rows)),
		Requests:   len(rows),
	}
	for _, r := range rows {
		switch r.Status {
		case models.SignatureStatusSigned:
			resp.Signed++
		case models.SignatureStatusPending:
			resp.Pending++
		case models.SignatureStatusDeclined:
			resp.Declined++
		}
	}
	return resp, nil
}

func (s *SignatureFlowImpl) documentRef(doc *models.Document, token string) services.DocumentRef {
	ref := services.DocumentRef{
		ID:         doc.ID,
		Number:     doc.Number,
		Type:       string(doc.Type),
		ClientName: doc.Client.DisplayName(),
	}
	if token != "" {
		ref.URL = s.signURL(token)
	}
	return ref
}

func (s *SignatureFlowImpl) signURL(token string) string {
	return s.publicBaseURL + "/sign/" + token
}

func toSignatureList(rows []*models.SignatureRequest) *dto.ListSignatureRequestsResponse {
	resp := &dto.ListSignatureRequestsResponse{Requests: make([]dto.SignatureRequestResponse, 0, len(rows))}
	for _, r := range rows {
		resp.Requests = append(resp.Requests, ToSignatureRequestResponse(r))
	}
	return resp
}

// signatureError wraps err with a code matching its kind
func signatureError(fallbackCode, message string, err error) *BusinessError {
	switch {
	case IsConcurrentUpdate(err):
		return NewBusinessError("SIGNATURE_CONCURRENT_UPDATE", "Signature request was answered concurrently", err)
	case IsDocumentNotFound(err):
		return NewBusinessError("DOCUMENT_NOT_FOUND", "Document not found", err)
	case IsNotFound(err):
		return NewBusinessError("SIGNATURE_NOT_FOUND", "Signature request not found", err)
	case IsSignatureNotPending(err):
		return NewBusinessError("SIGNATURE_NOT_PENDING", "Signature request is no longer pending", err)
	case IsInvalidState(err):
		return NewBusinessError("SIGNATURE_INVALID_STATE", "Signature request cannot be processed in the current state", err)
	}
	return NewBusinessError(fallbackCode, message, err)
}
