package businessflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/amirphl/docflow/app/dto"
	"github.com/amirphl/docflow/models"
	"github.com/amirphl/docflow/repository"
	"github.com/amirphl/docflow/utils"
	"github.com/redis/go-redis/v9"
)

const (
	kpiCacheKey       = "kpis:v1"
	kpiRevenueMonths  = 12
	contentTypeCSV    = "text/csv; charset=utf-8"
	contentTypeXLSX   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportFormatCSV   = "csv"
	exportFormatXLSX  = "xlsx"
	exportFileDateFmt = "20060102"
)

// ReportFlow serves read-only projections of documents, tasks and leads
type ReportFlow interface {
	GetKPIs(ctx context.Context, refresh bool) (*dto.KPIResponse, error)
	InvalidateKPIs(ctx context.Context)
	ListDocumentRows(ctx context.Context, req *dto.DocumentReportRequest) (*dto.DocumentReportResponse, error)
	ExportDocuments(ctx context.Context, req *dto.DocumentReportRequest) (*dto.ExportFile, error)
}

// ReportFlowImpl implements the report business flow
type ReportFlowImpl struct {
	documentRepo repository.DocumentRepository
	clientRepo   repository.ClientRepository
	taskRepo     repository.TaskRepository
	leadRepo     repository.LeadRepository
	rc           *redis.Client
	cachePrefix  string
	cacheTTL     time.Duration
	clock        utils.Clock
}

// NewReportFlow creates a new report flow instance. A nil redis client disables KPI caching.
func NewReportFlow(
	documentRepo repository.DocumentRepository,
	clientRepo repository.ClientRepository,
	taskRepo repository.TaskRepository,
	leadRepo repository.LeadRepository,
	rc *redis.Client,
	cachePrefix string,
	cacheTTL time.Duration,
	clock utils.Clock,
) ReportFlow {
	return &ReportFlowImpl{
		documentRepo: documentRepo,
		clientRepo:   clientRepo,
		taskRepo:     taskRepo,
		leadRepo:     leadRepo,
		rc:           rc,
		cachePrefix:  cachePrefix,
		cacheTTL:     cacheTTL,
		clock:        clock,
	}
}

func (f *ReportFlowImpl) kpiKey() string {
	return f.cachePrefix + kpiCacheKey
}

// GetKPIs returns the dashboard payload, from cache unless refresh is set
func (f *ReportFlowImpl) GetKPIs(ctx context.Context, refresh bool) (*dto.KPIResponse, error) {
	if f.rc != nil && !refresh {
		if bs, err := f.rc.Get(ctx, f.kpiKey()).Bytes(); err == nil && len(bs) > 0 {
			var cached dto.KPIResponse
			if err := json.Unmarshal(bs, &cached); err == nil {
				cached.Cached = true
				return &cached, nil
			}
		} else if err != nil && !errors.Is(err, redis.Nil) {
			log.Printf("reports: kpi cache read failed: %v", err)
		}
	}

	now := f.clock.Now()
	docs, err := f.documentRepo.ByFilter(ctx, models.DocumentFilter{}, "date ASC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("KPI_LOAD_FAILED", "Failed to load documents", err)
	}
	tasks, err := f.taskRepo.ByFilter(ctx, models.TaskFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("KPI_LOAD_FAILED", "Failed to load tasks", err)
	}
	leads, err := f.leadRepo.ByFilter(ctx, models.LeadFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("KPI_LOAD_FAILED", "Failed to load leads", err)
	}

	resp := buildKPIResponse(docs, tasks, leads, now)

	if f.rc != nil {
		if bs, err := json.Marshal(resp); err == nil {
			if err := f.rc.Set(ctx, f.kpiKey(), bs, f.cacheTTL).Err(); err != nil {
				log.Printf("reports: kpi cache write failed: %v", err)
			}
		}
	}
	return resp, nil
}

// InvalidateKPIs drops the cached payload after a document mutation
func (f *ReportFlowImpl) InvalidateKPIs(ctx context.Context) {
	if f.rc == nil {
		return
	}
	if err := f.rc.Del(ctx, f.kpiKey()).Err(); err != nil {
		log.Printf("reports: kpi cache invalidation failed: %v", err)
	}
}

func buildKPIResponse(docs []*models.Document, tasks []*models.Task, leads []*models.Lead, now time.Time) *dto.KPIResponse {
	resp := &dto.KPIResponse{GeneratedAt: formatTime(now)}

	for _, m := range MonthlyRevenue(docs, now, kpiRevenueMonths) {
		resp.MonthlyRevenue = append(resp.MonthlyRevenue, dto.MonthlyRevenueItem{
			Month:   m.Month,
			Revenue: formatMoney(m.Revenue),
		})
	}

	conv := ConversionRate(docs)
	resp.Conversion = dto.ConversionResponse{
		Quotes:    conv.Quotes,
		Invoices:  conv.Invoices,
		Converted: conv.Converted,
		Rate:      formatMoney(conv.Rate),
	}

	pipeline := PipelineValue(leads)
	resp.Pipeline = dto.PipelineResponse{
		Stages:            make([]dto.PipelineStageItem, 0, len(pipeline.Stages)),
		TotalLeads:        pipeline.TotalLeads,
		TotalPotential:    formatMoney(pipeline.TotalPotential),
		WeightedPotential: formatMoney(pipeline.WeightedPotential),
	}
	for _, s := range pipeline.Stages {
		resp.Pipeline.Stages = append(resp.Pipeline.Stages, dto.PipelineStageItem{
			Stage:     string(s.Stage),
			Count:     s.Count,
			Potential: formatMoney(s.Potential),
		})
	}

	k := DashboardKPIs(docs, tasks, now)
	resp.Dashboard = dto.DashboardResponse{
		RevenueThisMonth:    formatMoney(k.RevenueThisMonth),
		RevenueLastMonth:    formatMoney(k.RevenueLastMonth),
		RevenueGrowth:       formatMoney(k.RevenueGrowth),
		PendingQuotesCount:  k.PendingQuotesCount,
		PendingQuotesValue:  formatMoney(k.PendingQuotesValue),
		UnpaidInvoicesCount: k.UnpaidInvoicesCount,
		UnpaidInvoicesValue: formatMoney(k.UnpaidInvoicesValue),
		OverdueTasks:        k.OverdueTasks,
	}
	return resp
}

// ListDocumentRows returns the filtered document table, newest first
func (f *ReportFlowImpl) ListDocumentRows(ctx context.Context, req *dto.DocumentReportRequest) (*dto.DocumentReportResponse, error) {
	rows, err := f.loadRows(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := &dto.DocumentReportResponse{Rows: make([]dto.DocumentRowResponse, 0, len(rows))}
	for _, r := range rows {
		resp.Rows = append(resp.Rows, dto.DocumentRowResponse{
			ID:        r.ID,
			Number:    r.Number,
			Type:      string(r.Type),
			Client:    r.Client,
			Status:    string(r.Status),
			Date:      r.Date.UTC().Format(time.DateOnly),
			DueDate:   utils.FormatDatePtr(r.DueDate),
			TotalHT:   formatMoney(r.TotalHT),
			TotalTVA:  formatMoney(r.TotalTVA),
			TotalTTC:  formatMoney(r.TotalTTC),
			Subject:   r.Subject,
			CreatedAt: formatTime(r.CreatedAt),
		})
	}
	return resp, nil
}

// ExportDocuments renders the filtered document table as CSV (default) or XLSX
func (f *ReportFlowImpl) ExportDocuments(ctx context.Context, req *dto.DocumentReportRequest) (*dto.ExportFile, error) {
	format := exportFormatCSV
	if req != nil && strings.TrimSpace(req.Format) != "" {
		format = strings.ToLower(strings.TrimSpace(req.Format))
	}
	if format != exportFormatCSV && format != exportFormatXLSX {
		return nil, NewBusinessErrorf("INVALID_EXPORT_FORMAT", "Unsupported export format %q", ErrValidation, format)
	}

	rows, err := f.loadRows(ctx, req)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("documents-%s.%s", f.clock.Now().UTC().Format(exportFileDateFmt), format)
	if format == exportFormatXLSX {
		content, err := DocumentsXLSX(rows)
		if err != nil {
			return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
		}
		return &dto.ExportFile{FileName: name, ContentType: contentTypeXLSX, Content: content}, nil
	}

	var buf bytes.Buffer
	if err := WriteDocumentsCSV(&buf, rows); err != nil {
		return nil, NewBusinessError("CSV_WRITE_ERROR", "Failed to write CSV file", err)
	}
	return &dto.ExportFile{FileName: name, ContentType: contentTypeCSV, Content: buf.Bytes()}, nil
}

func (f *ReportFlowImpl) loadRows(ctx context.Context, req *dto.DocumentReportRequest) ([]models.DocumentRow, error) {
	filter, err := documentReportFilter(req)
	if err != nil {
		return nil, err
	}
	docs, err := f.documentRepo.ByFilter(ctx, filter, "date DESC, id DESC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("REPORT_LOAD_FAILED", "Failed to load documents", err)
	}

	ids := make([]uint, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ClientID)
	}
	clients, err := f.clientRepo.ByIDs(ctx, ids)
	if err != nil {
		return nil, NewBusinessError("REPORT_LOAD_FAILED", "Failed to load clients", err)
	}
	return DocumentRows(docs, clients), nil
}

func documentReportFilter(req *dto.DocumentReportRequest) (models.DocumentFilter, error) {
	var filter models.DocumentFilter
	if req == nil {
		return filter, nil
	}
	if req.Type != nil && *req.Type != "" {
		t := models.DocumentType(*req.Type)
		if !t.IsValid() {
			return filter, NewBusinessError("INVALID_DOCUMENT_TYPE", "Invalid document type", ErrInvalidDocumentType)
		}
		filter.Type = &t
	}
	if req.Status != nil && *req.Status != "" {
		s := models.DocumentStatus(*req.Status)
		if !s.IsValid() {
			return filter, NewBusinessError("INVALID_DOCUMENT_STATUS", "Invalid document status", ErrInvalidDocumentStatus)
		}
		filter.Status = &s
	}
	filter.ClientID = req.ClientID

	if req.DateFrom != nil && *req.DateFrom != "" {
		from, err := time.Parse(time.DateOnly, *req.DateFrom)
		if err != nil {
			return filter, NewBusinessError("INVALID_DATE_RANGE", "Invalid date_from", errors.Join(ErrValidation, err))
		}
		filter.DateFrom = &from
	}
	if req.DateTo != nil && *req.DateTo != "" {
		to, err := time.Parse(time.DateOnly, *req.DateTo)
		if err != nil {
			return filter, NewBusinessError("INVALID_DATE_RANGE", "Invalid date_to", errors.Join(ErrValidation, err))
		}
		// exclusive bound, so the whole day of date_to is included
		end := to.AddDate(0, 0, 1)
		filter.DateTo = &end
	}
	if filter.DateFrom != nil && filter.DateTo != nil && !filter.DateTo.After(*filter.DateFrom) {
		return filter, NewBusinessError("INVALID_DATE_RANGE", "date_to is before date_from", ErrValidation)
	}
	return filter, nil
}
