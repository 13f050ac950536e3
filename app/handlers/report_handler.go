package handlers

import (
	"fmt"
	"strconv"

	"github.com/amirphl/docflow/app/dto"
	businessflow "github.com/amirphl/docflow/business_flow"
	"github.com/amirphl/docflow/utils"
	"github.com/gofiber/fiber/v3"
)

// ReportHandler serves KPIs and the document table
type ReportHandler struct {
	baseHandler
	flow businessflow.ReportFlow
}

func NewReportHandler(flow businessflow.ReportFlow) *ReportHandler {
	return &ReportHandler{baseHandler: newBaseHandler(), flow: flow}
}

// KPIs
// @Description Dashboard KPIs, monthly revenue, quote conversion and lead pipeline. Served from cache unless refresh=true.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param refresh query bool false "Bypass the KPI cache"
// @Success 200 {object} dto.APIResponse{data=dto.KPIResponse} "KPIs"
// @Router /api/v1/reports/kpis [get]
func (h *ReportHandler) KPIs(c fiber.Ctx) error {
	refresh := false
	if v := c.Query("refresh"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "refresh must be a boolean", "INVALID_REFRESH", nil)
		}
		refresh = b
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/reports/kpis")
	defer cancel()

	result, err := h.flow.GetKPIs(ctx, refresh)
	if err != nil {
		return h.FlowError(c, err, "Failed to compute KPIs", "GET_KPIS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "KPIs", result)
}

// Documents report
// @Description Flat document table with client names, filtered by type, status, client and date range
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param type query string false "quote, invoice or credit_note"
// @Param status query string false "Document status"
// @Param client_id query int false "Client ID"
// @Param date_from query string false "First day, YYYY-MM-DD"
// @Param date_to query string false "Last day (inclusive), YYYY-MM-DD"
// @Success 200 {object} dto.APIResponse{data=dto.DocumentReportResponse} "Document rows"
// @Failure 400 {object} dto.APIResponse "Invalid filters"
// @Router /api/v1/reports/documents [get]
func (h *ReportHandler) Documents(c fiber.Ctx) error {
	req, err := h.bindReportRequest(c)
	if req == nil {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/reports/documents")
	defer cancel()

	result, err := h.flow.ListDocumentRows(ctx, req)
	if err != nil {
		return h.FlowError(c, err, "Failed to load document rows", "DOCUMENT_REPORT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Document rows", result)
}

// Export documents
// @Description Download the document table as CSV or XLSX
// @Tags Reports
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param format query string false "csv (default) or xlsx"
// @Param type query string false "quote, invoice or credit_note"
// @Param status query string false "Document status"
// @Param client_id query int false "Client ID"
// @Param date_from query string false "First day, YYYY-MM-DD"
// @Param date_to query string false "Last day (inclusive), YYYY-MM-DD"
// @Success 200 {file} file "Export file"
// @Failure 400 {object} dto.APIResponse "Invalid filters or format"
// @Router /api/v1/reports/documents/export [get]
func (h *ReportHandler) Export(c fiber.Ctx) error {
	req, err := h.bindReportRequest(c)
	if req == nil {
		return err
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/reports/documents/export", utils.ExportRequestTimeout)
	defer cancel()

	file, err := h.flow.ExportDocuments(ctx, req)
	if err != nil {
		return h.FlowError(c, err, "Failed to export documents", "EXPORT_FAILED")
	}

	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.FileName))
	return c.Status(fiber.StatusOK).Send(file.Content)
}

// bindReportRequest returns a nil request once it has written an error response
func (h *ReportHandler) bindReportRequest(c fiber.Ctx) (*dto.DocumentReportRequest, error) {
	var req dto.DocumentReportRequest
	if err := c.Bind().Query(&req); err != nil {
		return nil, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return nil, err
	}
	return &req, nil
}
