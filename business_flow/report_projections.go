package businessflow

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/amirphl/docflow/models"
	"github.com/amirphl/docflow/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// DocumentExportHeader is the column order of CSV and XLSX exports
var DocumentExportHeader = []string{
	"ID", "Number", "Type", "Client", "Status", "Date", "Due Date",
	"Total HT", "Total TVA", "Total TTC", "Subject", "Created",
}

const documentExportSheet = "Documents"

var hundredPercent = decimal.NewFromInt(100)

// DocumentRows flattens documents for tabular output, clients keyed by id supply the display name
func DocumentRows(docs []*models.Document, clients map[uint]*models.Client) []models.DocumentRow {
	rows := make([]models.DocumentRow, 0, len(docs))
	for _, d := range docs {
		client := d.Client
		if client == nil {
			client = clients[d.ClientID]
		}
		rows = append(rows, models.DocumentRow{
			ID:        d.ID,
			Number:    d.Number,
			Type:      d.Type,
			Client:    client.DisplayName(),
			Status:    d.Status,
			Date:      d.Date,
			DueDate:   d.DueDate,
			TotalHT:   d.TotalHT,
			TotalTVA:  d.TotalTVA,
			TotalTTC:  d.TotalTTC,
			Subject:   utils.Deref(d.Subject),
			CreatedAt: d.CreatedAt,
		})
	}
	return rows
}

func isPaidInvoice(d *models.Document) bool {
	return d.Type == models.DocumentTypeInvoice && d.Status == models.DocumentStatusPaid
}

// MonthlyRevenue sums the tax inclusive total of paid invoices per document month
// for the given number of months ending with now's month, oldest first
func MonthlyRevenue(docs []*models.Document, now time.Time, months int) []models.MonthlyRevenue {
	if months <= 0 {
		return []models.MonthlyRevenue{}
	}
	now = now.UTC()
	first := utils.StartOfMonth(now).AddDate(0, -(months - 1), 0)

	out := make([]models.MonthlyRevenue, months)
	index := make(map[string]int, months)
	for i := range out {
		key := first.AddDate(0, i, 0).Format("2006-01")
		out[i] = models.MonthlyRevenue{Month: key, Revenue: decimal.Zero}
		index[key] = i
	}

	for _, d := range docs {
		if !isPaidInvoice(d) {
			continue
		}
		if i, ok := index[d.Date.UTC().Format("2006-01")]; ok {
			out[i].Revenue = out[i].Revenue.Add(d.TotalTTC)
		}
	}
	return out
}

// ConversionRate relates invoices to quotes. Converted never exceeds the number of quotes
// and the rate is zero when there are no quotes.
func ConversionRate(docs []*models.Document) models.ConversionStats {
	stats := models.ConversionStats{Rate: decimal.Zero}
	for _, d := range docs {
		switch d.Type {
		case models.DocumentTypeQuote:
			stats.Quotes++
		case models.DocumentTypeInvoice:
			stats.Invoices++
		}
	}
	stats.Converted = min(stats.Invoices, stats.Quotes)
	if stats.Quotes > 0 {
		stats.Rate = decimal.NewFromInt(int64(stats.Converted)).
			Mul(hundredPercent).
			Div(decimal.NewFromInt(int64(stats.Quotes))).
			Round(2)
	}
	return stats
}

// PipelineValue counts leads per SPANCO stage and sums raw and probability weighted potential
func PipelineValue(leads []*models.Lead) models.PipelineSummary {
	summary := models.PipelineSummary{
		Stages:            make([]models.PipelineStage, len(models.LeadPipelineStages)),
		TotalPotential:    decimal.Zero,
		WeightedPotential: decimal.Zero,
	}
	index := make(map[models.LeadStatus]int, len(models.LeadPipelineStages))
	for i, stage := range models.LeadPipelineStages {
		summary.Stages[i] = models.PipelineStage{Stage: stage, Potential: decimal.Zero}
		index[stage] = i
	}

	for _, l := range leads {
		if i, ok := index[l.Status]; ok {
			summary.Stages[i].Count++
			summary.Stages[i].Potential = summary.Stages[i].Potential.Add(l.PotentialAmount)
		}
		summary.TotalLeads++
		summary.TotalPotential = summary.TotalPotential.Add(l.PotentialAmount)
		summary.WeightedPotential = summary.WeightedPotential.Add(l.WeightedAmount())
	}
	summary.WeightedPotential = models.Round2(summary.WeightedPotential)
	return summary
}

// DashboardKPIs computes the headline figures as of now
func DashboardKPIs(docs []*models.Document, tasks []*models.Task, now time.Time) models.DashboardKPIs {
	now = now.UTC()
	thisMonth := utils.StartOfMonth(now)
	lastMonth := thisMonth.AddDate(0, -1, 0)
	nextMonth := thisMonth.AddDate(0, 1, 0)

	kpis := models.DashboardKPIs{
		RevenueThisMonth:    decimal.Zero,
		RevenueLastMonth:    decimal.Zero,
		RevenueGrowth:       decimal.Zero,
		PendingQuotesValue:  decimal.Zero,
		UnpaidInvoicesValue: decimal.Zero,
	}

	for _, d := range docs {
		date := d.Date.UTC()
		switch {
		case isPaidInvoice(d) && !date.Before(thisMonth) && date.Before(nextMonth):
			kpis.RevenueThisMonth = kpis.RevenueThisMonth.Add(d.TotalTTC)
		case isPaidInvoice(d) && !date.Before(lastMonth) && date.Before(thisMonth):
			kpis.RevenueLastMonth = kpis.RevenueLastMonth.Add(d.TotalTTC)
		case d.Type == models.DocumentTypeQuote && d.Status == models.DocumentStatusSent:
			kpis.PendingQuotesCount++
			kpis.PendingQuotesValue = kpis.PendingQuotesValue.Add(d.TotalTTC)
		case d.Type == models.DocumentTypeInvoice && d.Status == models.DocumentStatusSent:
			kpis.UnpaidInvoicesCount++
			kpis.UnpaidInvoicesValue = kpis.UnpaidInvoicesValue.Add(d.TotalTTC)
		}
	}

	if !kpis.RevenueLastMonth.IsZero() {
		kpis.RevenueGrowth = kpis.RevenueThisMonth.Sub(kpis.RevenueLastMonth).
			Mul(hundredPercent).
			Div(kpis.RevenueLastMonth).
			Round(2)
	}

	for _, t := range tasks {
		if t.IsOverdue(now) {
			kpis.OverdueTasks++
		}
	}
	return kpis
}

func documentRecord(r models.DocumentRow) []string {
	due := ""
	if r.DueDate != nil {
		due = r.DueDate.UTC().Format(time.DateOnly)
	}
	return []string{
		strconv.FormatUint(uint64(r.ID), 10),
		r.Number,
		string(r.Type),
		r.Client,
		string(r.Status),
		r.Date.UTC().Format(time.DateOnly),
		due,
		formatMoney(r.TotalHT),
		formatMoney(r.TotalTVA),
		formatMoney(r.TotalTTC),
		r.Subject,
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// WriteDocumentsCSV writes the header and one record per row
func WriteDocumentsCSV(w io.Writer, rows []models.DocumentRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DocumentExportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(documentRecord(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DocumentsXLSX renders the rows into a single sheet workbook
func DocumentsXLSX(rows []models.DocumentRow) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	xl.SetSheetName(xl.GetSheetName(0), documentExportSheet)

	header := DocumentExportHeader
	if err := xl.SetSheetRow(documentExportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range rows {
		record := documentRecord(r)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := xl.SetSheetRow(documentExportSheet, cell, &record); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if _, err := xl.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
