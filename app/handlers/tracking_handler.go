package handlers

import (
	"strconv"

	businessflow "github.com/amirphl/docflow/business_flow"
	"github.com/amirphl/docflow/utils"
	"github.com/gofiber/fiber/v3"
)

// TrackingHandler serves tracking links, both the operator side and the public view
type TrackingHandler struct {
	baseHandler
	flow             businessflow.TrackingFlow
	recentViewsLimit int
}

func NewTrackingHandler(flow businessflow.TrackingFlow, recentViewsLimit int) *TrackingHandler {
	if recentViewsLimit <= 0 {
		recentViewsLimit = utils.DefaultPageSize
	}
	return &TrackingHandler{
		baseHandler:      newBaseHandler(),
		flow:             flow,
		recentViewsLimit: recentViewsLimit,
	}
}

// Create Tracking
// @Description Create the tracking link of a document. Calling it again returns the existing link.
// @Tags Tracking
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 201 {object} dto.APIResponse{data=dto.TrackingResponse} "Tracking link ready"
// @Failure 404 {object} dto.APIResponse "Document not found"
// @Router /api/v1/documents/{id}/tracking [post]
func (h *TrackingHandler) Create(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid document id", "INVALID_DOCUMENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/documents/:id/tracking")
	defer cancel()

	result, err := h.flow.CreateTracking(ctx, id, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to create tracking link", "CREATE_TRACKING_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Tracking link ready", result)
}

// Get Tracking
// @Description Get the tracking link and view counters of a document
// @Tags Tracking
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} dto.APIResponse{data=dto.TrackingResponse} "Tracking retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Document or tracking link not found"
// @Router /api/v1/documents/{id}/tracking [get]
func (h *TrackingHandler) Get(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid document id", "INVALID_DOCUMENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/documents/:id/tracking")
	defer cancel()

	result, err := h.flow.GetTracking(ctx, id)
	if err != nil {
		return h.FlowError(c, err, "Failed to get tracking", "GET_TRACKING_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tracking retrieved successfully", result)
}

// ListViews
// @Description List the recorded views of a document, newest first
// @Tags Tracking
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} dto.APIResponse{data=dto.ListDocumentViewsResponse} "Views retrieved successfully"
// @Router /api/v1/documents/{id}/views [get]
func (h *TrackingHandler) ListViews(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid document id", "INVALID_DOCUMENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/documents/:id/views")
	defer cancel()

	result, err := h.flow.ListViews(ctx, id)
	if err != nil {
		return h.FlowError(c, err, "Failed to list views", "LIST_VIEWS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Views retrieved successfully", result)
}

// ListRecentViews
// @Description Latest views across all documents
// @Tags Tracking
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of views"
// @Success 200 {object} dto.APIResponse{data=dto.ListRecentViewsResponse} "Views retrieved successfully"
// @Router /api/v1/tracking/recent-views [get]
func (h *TrackingHandler) ListRecentViews(c fiber.Ctx) error {
	limit := h.recentViewsLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "limit must be a positive integer", "INVALID_LIMIT", nil)
		}
		limit = n
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/tracking/recent-views")
	defer cancel()

	result, err := h.flow.ListRecentViews(ctx, limit)
	if err != nil {
		return h.FlowError(c, err, "Failed to list recent views", "LIST_RECENT_VIEWS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Views retrieved successfully", result)
}

// PublicView
// @Description Open a tracked document. Unknown links get an inert payload instead of an error.
// @Tags Public
// @Produce json
// @Param token path string true "Tracking token"
// @Success 200 {object} dto.APIResponse{data=dto.PublicDocumentResponse} "Document"
// @Router /view/{token} [get]
func (h *TrackingHandler) PublicView(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/view/:token")
	defer cancel()

	result, err := h.flow.ViewDocument(ctx, c.Params("token"), h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to open document", "VIEW_DOCUMENT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Document", result)
}
