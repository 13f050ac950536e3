package handlers

import (
	"github.com/amirphl/docflow/app/dto"
	businessflow "github.com/amirphl/docflow/business_flow"
	"github.com/gofiber/fiber/v3"
)

// DocumentHandlerInterface defines the contract for document handlers
type DocumentHandlerInterface interface {
	Create(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Transition(c fiber.Ctx) error
}

// DocumentHandler handles document-related HTTP requests
type DocumentHandler struct {
	baseHandler
	flow    businessflow.DocumentFlow
	reports businessflow.ReportFlow
}

// NewDocumentHandler creates a new document handler. reports may be nil.
func NewDocumentHandler(flow businessflow.DocumentFlow, reports businessflow.ReportFlow) *DocumentHandler {
	return &DocumentHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
		reports:     reports,
	}
}

// Create Document
// @Description Create a quote, invoice or credit note. Totals and the document number are computed by the server.
// @Tags Documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateDocumentRequest true "Document to create"
// @Success 201 {object} dto.APIResponse{data=dto.DocumentResponse} "Document created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Client not found"
// @Failure 409 {object} dto.APIResponse "Document number conflict"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/documents [post]
func (h *DocumentHandler) Create(c fiber.Ctx) error {
	var req dto.CreateDocumentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/documents")
	defer cancel()

	result, err := h.flow.CreateDocument(ctx, &req, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to create document", "CREATE_DOCUMENT_FAILED")
	}
	h.invalidateKPIs(c, h.reports)

	return h.SuccessResponse(c, fiber.StatusCreated, "Document created successfully", result)
}

// Get Document
// @Description Get a document with its lines and the statuses it may move to
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} dto.APIResponse{data=dto.DocumentResponse} "Document retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Document not found"
// @Router /api/v1/documents/{id} [get]
func (h *DocumentHandler) Get(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid document id", "INVALID_DOCUMENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/documents/:id")
	defer cancel()

	result, err := h.flow.GetDocument(ctx, id)
	if err != nil {
		return h.FlowError(c, err, "Failed to get document", "GET_DOCUMENT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Document retrieved successfully", result)
}

// List Documents
// @Description List documents, newest first, with optional client/type/status filters
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param client_id query int false "Client ID"
// @Param type query string false "quote, invoice or credit_note"
// @Param status query string false "Document status"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 200)"
// @Success 200 {object} dto.APIResponse{data=dto.ListDocumentsResponse} "Documents retrieved successfully"
// @Failure 400 {object} dto.APIResponse "Invalid filters"
// @Router /api/v1/documents [get]
func (h *DocumentHandler) List(c fiber.Ctx) error {
	var req dto.ListDocumentsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/documents")
	defer cancel()

	result, err := h.flow.ListDocuments(ctx, &req)
	if err != nil {
		return h.FlowError(c, err, "Failed to list documents", "LIST_DOCUMENTS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Documents retrieved successfully", result)
}

// Update Document
// @Description Partially update a draft document. Replacing lines recomputes totals; a status field is applied as a transition in the same transaction.
// @Tags Documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Param request body dto.UpdateDocumentRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.DocumentResponse} "Document updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Document not found"
// @Failure 409 {object} dto.APIResponse "Document is not editable or the transition is not allowed"
// @Router /api/v1/documents/{id} [patch]
func (h *DocumentHandler) Update(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid document id", "INVALID_DOCUMENT_ID", err.Error())
	}
	var req dto.UpdateDocumentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/documents/:id")
	defer cancel()

	result, err := h.flow.UpdateDocument(ctx, id, &req, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to update document", "UPDATE_DOCUMENT_FAILED")
	}
	h.invalidateKPIs(c, h.reports)

	return h.SuccessResponse(c, fiber.StatusOK, "Document updated successfully", result)
}

// Transition Document
// @Description Move a document to another status when the transition table allows it
// @Tags Documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Param request body dto.TransitionDocumentRequest true "Target status"
// @Success 200 {object} dto.APIResponse{data=dto.DocumentResponse} "Document status updated"
// @Failure 400 {object} dto.APIResponse "Unknown status"
// @Failure 404 {object} dto.APIResponse "Document not found"
// @Failure 409 {object} dto.APIResponse "Transition not allowed"
// @Router /api/v1/documents/{id}/transition [post]
func (h *DocumentHandler) Transition(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid document id", "INVALID_DOCUMENT_ID", err.Error())
	}
	var req dto.TransitionDocumentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/documents/:id/transition")
	defer cancel()

	result, err := h.flow.TransitionDocument(ctx, id, &req, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to update document status", "TRANSITION_FAILED")
	}
	h.invalidateKPIs(c, h.reports)

	return h.SuccessResponse(c, fiber.StatusOK, "Document status updated", result)
}
