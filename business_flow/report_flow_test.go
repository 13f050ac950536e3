package businessflow_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/amirphl/docflow/app/dto"
	businessflow "github.com/amirphl/docflow/business_flow"
	"github.com/amirphl/docflow/models"
	testingutil "github.com/amirphl/docflow/testing"
	"github.com/amirphl/docflow/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedReportData(t *testing.T, env *flowEnv) *models.Client {
	t.Helper()
	client := env.createClient(t)
	lines := []testingutil.LineSpec{{Description: "Work", Quantity: "1", UnitPrice: "100", TVARate: "20"}}

	specs := []testingutil.DocumentSpec{
		{Number: "FACT-2025-001", Type: models.DocumentTypeInvoice, Status: models.DocumentStatusPaid, Date: day(2025, time.March, 2)},
		{Number: "FACT-2025-002", Type: models.DocumentTypeInvoice, Status: models.DocumentStatusSent, Date: day(2025, time.March, 5)},
		{Number: "DEV-2025-001", Type: models.DocumentTypeQuote, Status: models.DocumentStatusSent, Date: day(2025, time.February, 20)},
		{Number: "DEV-2025-002", Type: models.DocumentTypeQuote, Status: models.DocumentStatusDraft, Date: day(2025, time.January, 7)},
	}
	for _, spec := range specs {
		spec.ClientID = client.ID
		spec.Lines = lines
		_, err := env.fixtures.CreateTestDocument(spec)
		require.NoError(t, err)
	}

	yesterday := testingutil.BaseTime.Add(-24 * time.Hour)
	_, err := env.fixtures.CreateTestTask("Chase payment", models.TaskStatusTodo, &yesterday)
	require.NoError(t, err)
	_, err = env.fixtures.CreateTestLead("Acme", models.LeadStatusNegociation, "1000", 50, nil)
	require.NoError(t, err)
	return client
}

func TestGetKPIs(t *testing.T) {
	withFlowEnv(t, func(env *flowEnv) {
		seedReportData(t, env)

		resp, err := env.reports.GetKPIs(context.Background(), false)
		require.NoError(t, err)

		assert.False(t, resp.Cached)
		require.Len(t, resp.MonthlyRevenue, 12)
		assert.Equal(t, "2025-03", resp.MonthlyRevenue[11].Month)
		assert.Equal(t, "120.00", resp.MonthlyRevenue[11].Revenue)
		assert.Equal(t, "0.00", resp.MonthlyRevenue[10].Revenue)

		assert.Equal(t, 2, resp.Conversion.Quotes)
		assert.Equal(t, 2, resp.Conversion.Invoices)
		assert.Equal(t, "100.00", resp.Conversion.Rate)

		assert.Equal(t, 1, resp.Pipeline.TotalLeads)
		assert.Equal(t, "500.00", resp.Pipeline.WeightedPotential)

		assert.Equal(t, "120.00", resp.Dashboard.RevenueThisMonth)
		assert.Equal(t, 1, resp.Dashboard.PendingQuotesCount)
		assert.Equal(t, 1, resp.Dashboard.UnpaidInvoicesCount)
		assert.Equal(t, 1, resp.Dashboard.OverdueTasks)

		// without a cache every call recomputes
		again, err := env.reports.GetKPIs(context.Background(), false)
		require.NoError(t, err)
		assert.False(t, again.Cached)
		env.reports.InvalidateKPIs(context.Background())
	})
}

func TestListDocumentRows(t *testing.T) {
	withFlowEnv(t, func(env *flowEnv) {
		ctx := context.Background()
		seedReportData(t, env)

		tests := []struct {
			name    string
			req     *dto.DocumentReportRequest
			numbers []string
		}{
			{"All", &dto.DocumentReportRequest{}, []string{"FACT-2025-002", "FACT-2025-001", "DEV-2025-001", "DEV-2025-002"}},
			{"Invoices", &dto.DocumentReportRequest{Type: utils.ToPtr("invoice")}, []string{"FACT-2025-002", "FACT-2025-001"}},
			{"Sent", &dto.DocumentReportRequest{Status: utils.ToPtr("sent")}, []string{"FACT-2025-002", "DEV-2025-001"}},
			{"DateRangeInclusive", &dto.DocumentReportRequest{DateFrom: utils.ToPtr("2025-02-20"), DateTo: utils.ToPtr("2025-03-02")}, []string{"FACT-2025-001", "DEV-2025-001"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				resp, err := env.reports.ListDocumentRows(ctx, tt.req)
				require.NoError(t, err)
				var numbers []string
				for _, r := range resp.Rows {
					numbers = append(numbers, r.Number)
				}
				assert.Equal(t, tt.numbers, numbers)
			})
		}

		t.Run("InvalidFilters", func(t *testing.T) {
			for _, req := range []*dto.DocumentReportRequest{
				{Type: utils.ToPtr("receipt")},
				{Status: utils.ToPtr("archived")},
				{DateFrom: utils.ToPtr("03/01/2025")},
				{DateFrom: utils.ToPtr("2025-03-10"), DateTo: utils.ToPtr("2025-03-01")},
			} {
				_, err := env.reports.ListDocumentRows(ctx, req)
				assert.True(t, businessflow.IsValidation(err))
			}
		})
	})
}

func TestExportDocuments(t *testing.T) {
	withFlowEnv(t, func(env *flowEnv) {
		ctx := context.Background()
		seedReportData(t, env)

		t.Run("CSV", func(t *testing.T) {
			file, err := env.reports.ExportDocuments(ctx, &dto.DocumentReportRequest{Type: utils.ToPtr("invoice")})
			require.NoError(t, err)
			assert.Equal(t, "documents-20250310.csv", file.FileName)
			assert.Contains(t, file.ContentType, "text/csv")

			records, err := csv.NewReader(bytes.NewReader(file.Content)).ReadAll()
			require.NoError(t, err)
			require.Len(t, records, 3)
			assert.Equal(t, businessflow.DocumentExportHeader, records[0])
			assert.Equal(t, "FACT-2025-002", records[1][1])
			assert.Equal(t, "Ada Lovelace", records[1][3])
			assert.Equal(t, "120.00", records[1][9])
		})

		t.Run("XLSX", func(t *testing.T) {
			file, err := env.reports.ExportDocuments(ctx, &dto.DocumentReportRequest{Format: "xlsx"})
			require.NoError(t, err)
			assert.Equal(t, "documents-20250310.xlsx", file.FileName)
			assert.NotEmpty(t, file.Content)
		})

		t.Run("UnknownFormat", func(t *testing.T) {
			_, err := env.reports.ExportDocuments(ctx, &dto.DocumentReportRequest{Format: "pdf"})
			assert.True(t, businessflow.IsValidation(err))
		})
	})
}
