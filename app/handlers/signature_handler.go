package handlers

import (
	"github.com/amirphl/docflow/app/dto"
	businessflow "github.com/amirphl/docflow/business_flow"
	"github.com/gofiber/fiber/v3"
)

// SignatureHandler handles signature requests for operators and signers
type SignatureHandler struct {
	baseHandler
	flow    businessflow.SignatureFlow
	reports businessflow.ReportFlow
}

func NewSignatureHandler(flow businessflow.SignatureFlow, reports businessflow.ReportFlow) *SignatureHandler {
	return &SignatureHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
		reports:     reports,
	}
}

// Send Signature Request
// @Description Ask a signer to sign a document. The signer receives a link by email.
// @Tags Signatures
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Param request body dto.SendSignatureRequest true "Signer"
// @Success 201 {object} dto.APIResponse{data=dto.SignatureRequestResponse} "Signature request sent"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Document not found"
// @Failure 409 {object} dto.APIResponse "Document is closed"
// @Router /api/v1/documents/{id}/signatures [post]
func (h *SignatureHandler) Send(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid document id", "INVALID_DOCUMENT_ID", err.Error())
	}
	var req dto.SendSignatureRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/documents/:id/signatures")
	defer cancel()

	result, err := h.flow.SendRequest(ctx, id, &req, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to send signature request", "SEND_SIGNATURE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Signature request sent", result)
}

// List Signature Requests
// @Description List the signature requests of a document, newest first
// @Tags Signatures
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} dto.APIResponse{data=dto.ListSignatureRequestsResponse} "Signature requests retrieved successfully"
// @Router /api/v1/documents/{id}/signatures [get]
func (h *SignatureHandler) ListByDocument(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid document id", "INVALID_DOCUMENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/documents/:id/signatures")
	defer cancel()

	result, err := h.flow.ListByDocument(ctx, id)
	if err != nil {
		return h.FlowError(c, err, "Failed to list signature requests", "LIST_SIGNATURES_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Signature requests retrieved successfully", result)
}

// Signature Status
// @Description Aggregate signature status of a document: none, pending, signed, partially_signed or declined
// @Tags Signatures
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} dto.APIResponse{data=dto.SignatureStatusResponse} "Signature status"
// @Router /api/v1/documents/{id}/signature-status [get]
func (h *SignatureHandler) Status(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid document id", "INVALID_DOCUMENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/documents/:id/signature-status")
	defer cancel()

	result, err := h.flow.AggregateStatus(ctx, id)
	if err != nil {
		return h.FlowError(c, err, "Failed to get signature status", "SIGNATURE_STATUS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Signature status", result)
}

// ListPending
// @Description Pending signature requests across all documents
// @Tags Signatures
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ListSignatureRequestsResponse} "Pending signature requests"
// @Router /api/v1/signatures/pending [get]
func (h *SignatureHandler) ListPending(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/signatures/pending")
	defer cancel()

	result, err := h.flow.ListPending(ctx)
	if err != nil {
		return h.FlowError(c, err, "Failed to list pending signatures", "LIST_PENDING_SIGNATURES_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Pending signature requests", result)
}

// Remind
// @Description Send a reminder for a pending signature request
// @Tags Signatures
// @Produce json
// @Security BearerAuth
// @Param id path int true "Signature request ID"
// @Success 200 {object} dto.APIResponse{data=dto.SignatureRequestResponse} "Reminder sent"
// @Failure 404 {object} dto.APIResponse "Signature request not found"
// @Failure 409 {object} dto.APIResponse "Signature request is no longer pending"
// @Router /api/v1/signatures/{id}/remind [post]
func (h *SignatureHandler) Remind(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid signature request id", "INVALID_SIGNATURE_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/signatures/:id/remind")
	defer cancel()

	result, err := h.flow.SendReminder(ctx, id, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to send reminder", "SEND_REMINDER_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Reminder sent", result)
}

// Respond
// @Description Record a signer's answer on their behalf
// @Tags Signatures
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Signature request ID"
// @Param request body dto.RespondSignatureRequest true "Outcome"
// @Success 200 {object} dto.APIResponse{data=dto.SignatureRequestResponse} "Response recorded"
// @Failure 409 {object} dto.APIResponse "Signature request is no longer pending or has expired"
// @Router /api/v1/signatures/{id}/respond [post]
func (h *SignatureHandler) Respond(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid signature request id", "INVALID_SIGNATURE_ID", err.Error())
	}
	var req dto.RespondSignatureRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/signatures/:id/respond")
	defer cancel()

	result, err := h.flow.Respond(ctx, id, &req, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to record response", "RESPOND_SIGNATURE_FAILED")
	}
	h.invalidateKPIs(c, h.reports)

	return h.SuccessResponse(c, fiber.StatusOK, "Response recorded", result)
}

// PublicGet
// @Description What a signer sees behind a signing link
// @Tags Public
// @Produce json
// @Param token path string true "Signing token"
// @Success 200 {object} dto.APIResponse{data=dto.PublicSignatureResponse} "Signature request"
// @Failure 404 {object} dto.APIResponse "Unknown signing link"
// @Router /sign/{token} [get]
func (h *SignatureHandler) PublicGet(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/sign/:token")
	defer cancel()

	result, err := h.flow.GetByToken(ctx, c.Params("token"))
	if err != nil {
		return h.FlowError(c, err, "Failed to load signature request", "GET_SIGNATURE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Signature request", result)
}

// PublicRespond
// @Description Sign or decline through a signing link
// @Tags Public
// @Accept json
// @Produce json
// @Param token path string true "Signing token"
// @Param request body dto.RespondSignatureRequest true "Outcome"
// @Success 200 {object} dto.APIResponse{data=dto.SignatureRequestResponse} "Response recorded"
// @Failure 404 {object} dto.APIResponse "Unknown signing link"
// @Failure 409 {object} dto.APIResponse "Signature request is no longer pending or has expired"
// @Router /sign/{token}/respond [post]
func (h *SignatureHandler) PublicRespond(c fiber.Ctx) error {
	var req dto.RespondSignatureRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/sign/:token/respond")
	defer cancel()

	result, err := h.flow.RespondByToken(ctx, c.Params("token"), &req, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to record response", "RESPOND_SIGNATURE_FAILED")
	}
	h.invalidateKPIs(c, h.reports)

	return h.SuccessResponse(c, fiber.StatusOK, "Response recorded", result)
}
