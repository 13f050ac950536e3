package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/amirphl/docflow/app/dto"
	"github.com/amirphl/docflow/app/services"
	"github.com/amirphl/docflow/models"
	"github.com/amirphl/docflow/repository"
	"github.com/amirphl/docflow/utils"
	"gorm.io/gorm"
)

// TrackingFlow manages public view links and the view ledger.
// RecordView and ViewDocument are public, the token is the only credential.
type TrackingFlow interface {
	CreateTracking(ctx context.Context, documentID uint, metadata *ClientMetadata) (*dto.TrackingResponse, error)
	GetTracking(ctx context.Context, documentID uint) (*dto.TrackingResponse, error)
	RecordView(ctx context.Context, token string, metadata *ClientMetadata) (*dto.TrackingResponse, error)
	ViewDocument(ctx context.Context, token string, metadata *ClientMetadata) (*dto.PublicDocumentResponse, error)
	ListViews(ctx context.Context, documentID uint) (*dto.ListDocumentViewsResponse, error)
	ListRecentViews(ctx context.Context, limit int) (*dto.ListRecentViewsResponse, error)
}

// TrackingFlowImpl implements the tracking business flow
type TrackingFlowImpl struct {
	trackingRepo     repository.DocumentTrackingRepository
	viewRepo         repository.DocumentViewRepository
	documentRepo     repository.DocumentRepository
	auditRepo        repository.AuditLogRepository
	notifier         services.DocumentNotifier
	clock            utils.Clock
	publicBaseURL    string
	recentViewsLimit int
}

// NewTrackingFlow creates a new tracking flow instance
func NewTrackingFlow(
	trackingRepo repository.DocumentTrackingRepository,
	viewRepo repository.DocumentViewRepository,
	documentRepo repository.DocumentRepository,
	auditRepo repository.AuditLogRepository,
	notifier services.DocumentNotifier,
	clock utils.Clock,
	publicBaseURL string,
	recentViewsLimit int,
) TrackingFlow {
	if recentViewsLimit <= 0 {
		recentViewsLimit = utils.DefaultPageSize
	}
	return &TrackingFlowImpl{
		trackingRepo:     trackingRepo,
		viewRepo:         viewRepo,
		documentRepo:     documentRepo,
		auditRepo:        auditRepo,
		notifier:         notifier,
		clock:            clock,
		publicBaseURL:    strings.TrimRight(publicBaseURL, "/"),
		recentViewsLimit: recentViewsLimit,
	}
}

// CreateTracking returns the document's tracking link, creating it on first use
func (f *TrackingFlowImpl) CreateTracking(ctx context.Context, documentID uint, metadata *ClientMetadata) (*dto.TrackingResponse, error) {
	doc, err := f.documentRepo.ByID(ctx, documentID)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_LOOKUP_FAILED", "Failed to lookup document", err)
	}
	if doc == nil {
		return nil, NewBusinessError("DOCUMENT_NOT_FOUND", "Document not found", ErrDocumentNotFound)
	}

	existing, err := f.trackingRepo.ByDocumentID(ctx, documentID)
	if err != nil {
		return nil, NewBusinessError("TRACKING_LOOKUP_FAILED", "Failed to lookup tracking link", err)
	}
	if existing != nil {
		resp := ToTrackingResponse(existing, f.viewURL(existing.Token))
		return &resp, nil
	}

	token, err := utils.NewAccessToken()
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tracking token", err)
	}
	now := f.clock.Now()
	tracking := &models.DocumentTracking{
		DocumentID: documentID,
		Token:      token,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := f.trackingRepo.Save(ctx, tracking); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewBusinessError("TRACKING_CREATION_FAILED", "Failed to create tracking link", err)
		}
		// another request created it first
		tracking, err = f.trackingRepo.ByDocumentID(ctx, documentID)
		if err != nil || tracking == nil {
			return nil, NewBusinessError("TRACKING_CREATION_FAILED", "Failed to create tracking link", err)
		}
	} else {
		_ = createAuditLog(ctx, f.auditRepo, auditEntry{
			entityType:  models.AuditEntityDocumentTracking,
			entityID:    &tracking.ID,
			action:      models.AuditActionTrackingCreated,
			description: fmt.Sprintf("Tracking link created for document %s", doc.Number),
			success:     true,
			extra:       map[string]any{"document_id": documentID},
		}, metadata)
	}

	resp := ToTrackingResponse(tracking, f.viewURL(tracking.Token))
	return &resp, nil
}

func (f *TrackingFlowImpl) GetTracking(ctx context.Context, documentID uint) (*dto.TrackingResponse, error) {
	tracking, err := f.trackingRepo.ByDocumentID(ctx, documentID)
	if err != nil {
		return nil, NewBusinessError("TRACKING_LOOKUP_FAILED", "Failed to lookup tracking link", err)
	}
	if tracking == nil {
		return nil, NewBusinessError("TRACKING_NOT_FOUND", "Tracking link not found", ErrTrackingNotFound)
	}
	resp := ToTrackingResponse(tracking, f.viewURL(tracking.Token))
	return &resp, nil
}

// RecordView counts one view of the tracked document. The first view notifies the owner.
func (f *TrackingFlowImpl) RecordView(ctx context.Context, token string, metadata *ClientMetadata) (*dto.TrackingResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, NewBusinessError("TRACKING_NOT_FOUND", "Tracking link not found", ErrTrackingNotFound)
	}

	viewedAt := f.clock.Now()
	tracking, err := f.trackingRepo.RecordView(ctx, token, viewedAt, metadata.Viewer())
	if err != nil {
		return nil, NewBusinessError("VIEW_RECORDING_FAILED", "Failed to record view", err)
	}
	if tracking == nil {
		return nil, NewBusinessError("TRACKING_NOT_FOUND", "Tracking link not found", ErrTrackingNotFound)
	}
	documentViewsTotal.Inc()

	if tracking.ViewCount == 1 {
		f.notifyFirstView(ctx, tracking, viewedAt.UTC())
	}

	resp := ToTrackingResponse(tracking, f.viewURL(tracking.Token))
	return &resp, nil
}

// ViewDocument records a view and returns the document for rendering.
// Unknown tokens yield an inert unavailable payload.
func (f *TrackingFlowImpl) ViewDocument(ctx context.Context, token string, metadata *ClientMetadata) (*dto.PublicDocumentResponse, error) {
	tracking, err := f.RecordView(ctx, token, metadata)
	if err != nil {
		if IsNotFound(err) {
			return &dto.PublicDocumentResponse{Available: false, Message: "This link is no longer available"}, nil
		}
		return nil, err
	}

	doc, err := f.documentRepo.ByIDWithLines(ctx, tracking.DocumentID)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_LOOKUP_FAILED", "Failed to lookup document", err)
	}
	if doc == nil {
		return &dto.PublicDocumentResponse{Available: false, Message: "This link is no longer available"}, nil
	}

	resp := ToDocumentResponse(doc)
	resp.AllowedStatuses = nil
	return &dto.PublicDocumentResponse{Available: true, Document: &resp}, nil
}

// ListViews returns the view events of one document, newest first
func (f *TrackingFlowImpl) ListViews(ctx context.Context, documentID uint) (*dto.ListDocumentViewsResponse, error) {
	exists, err := f.documentRepo.Exists(ctx, models.DocumentFilter{ID: &documentID})
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_LOOKUP_FAILED", "Failed to lookup document", err)
	}
	if !exists {
		return nil, NewBusinessError("DOCUMENT_NOT_FOUND", "Document not found", ErrDocumentNotFound)
	}

	views, err := f.viewRepo.ByFilter(ctx, models.DocumentViewFilter{DocumentID: &documentID}, "viewed_at DESC, id DESC", utils.MaxPageSize, 0)
	if err != nil {
		return nil, NewBusinessError("VIEW_LIST_FAILED", "Failed to list views", err)
	}

	resp := &dto.ListDocumentViewsResponse{Views: make([]dto.DocumentViewResponse, 0, len(views))}
	for _, v := range views {
		resp.Views = append(resp.Views, dto.DocumentViewResponse{
			ID:         v.ID,
			DocumentID: v.DocumentID,
			IPAddress:  v.IPAddress,
			UserAgent:  v.UserAgent,
			ViewedAt:   formatTime(v.ViewedAt),
		})
	}
	return resp, nil
}

// ListRecentViews returns the latest views across all documents
func (f *TrackingFlowImpl) ListRecentViews(ctx context.Context, limit int) (*dto.ListRecentViewsResponse, error) {
	if limit <= 0 {
		limit = f.recentViewsLimit
	}
	if limit > utils.MaxPageSize {
		limit = utils.MaxPageSize
	}

	views, err := f.viewRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, NewBusinessError("VIEW_LIST_FAILED", "Failed to list recent views", err)
	}

	resp := &dto.ListRecentViewsResponse{Views: make([]dto.RecentViewResponse, 0, len(views))}
	for _, v := range views {
		resp.Views = append(resp.Views, dto.RecentViewResponse{
			ID:             v.ID,
			DocumentID:     v.DocumentID,
			DocumentNumber: v.DocumentNumber,
			DocumentType:   string(v.DocumentType),
			IPAddress:      v.IPAddress,
			UserAgent:      v.UserAgent,
			ViewedAt:       formatTime(v.ViewedAt),
		})
	}
	return resp, nil
}

// notifyFirstView tells the owner the document was opened. Failures are only logged.
func (f *TrackingFlowImpl) notifyFirstView(ctx context.Context, tracking *models.DocumentTracking, viewedAt time.Time) {
	if f.notifier == nil {
		return
	}
	doc, err := f.documentRepo.ByIDWithLines(ctx, tracking.DocumentID)
	if err != nil || doc == nil {
		log.Printf("tracking: first view of document %d not notified: %v", tracking.DocumentID, err)
		return
	}
	ref := services.DocumentRef{
		ID:         doc.ID,
		Number:     doc.Number,
		Type:       string(doc.Type),
		ClientName: doc.Client.DisplayName(),
		URL:        f.viewURL(tracking.Token),
	}
	if err := f.notifier.NotifyDocumentOpened(ctx, ref, viewedAt); err != nil {
		log.Printf("tracking: first view notification for %s failed: %v", doc.Number, err)
	}
}

func (f *TrackingFlowImpl) viewURL(token string) string {
	return f.publicBaseURL + "/view/" + token
}
