package businessflow_test

import (
	"context"
	"testing"
	"time"

	businessflow "github.com/amirphl/docflow/business_flow"
	"github.com/amirphl/docflow/models"
	testingutil "github.com/amirphl/docflow/testing"
	"github.com/amirphl/docflow/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReminders(t *testing.T) {
	withFlowEnv(t, func(env *flowEnv) {
		ctx := context.Background()
		now := testingutil.BaseTime
		reminders := businessflow.NewReminderFlow(env.taskRepo, env.documentRepo, env.leadRepo, env.clientRepo, testingutil.NewFixedClock(now))

		yesterday := now.Add(-24 * time.Hour)
		lastWeek := now.AddDate(0, 0, -7)
		tomorrow := now.Add(24 * time.Hour)

		overdueTask, err := env.fixtures.CreateTestTask("Call accountant", models.TaskStatusInProgress, &yesterday)
		require.NoError(t, err)
		_, err = env.fixtures.CreateTestTask("Done already", models.TaskStatusDone, &yesterday)
		require.NoError(t, err)
		_, err = env.fixtures.CreateTestTask("Later", models.TaskStatusTodo, &tomorrow)
		require.NoError(t, err)
		_, err = env.fixtures.CreateTestTask("No due date", models.TaskStatusTodo, nil)
		require.NoError(t, err)
		// due exactly now is not yet overdue
		_, err = env.fixtures.CreateTestTask("Due now", models.TaskStatusTodo, &now)
		require.NoError(t, err)

		client := env.createClient(t)
		lines := []testingutil.LineSpec{{Description: "Work", Quantity: "1", UnitPrice: "100", TVARate: "20"}}
		unpaid, err := env.fixtures.CreateTestDocument(testingutil.DocumentSpec{
			ClientID: client.ID, Number: "FACT-2025-010", Type: models.DocumentTypeInvoice,
			Status: models.DocumentStatusSent, Date: lastWeek.AddDate(0, -1, 0), DueDate: &lastWeek, Lines: lines,
		})
		require.NoError(t, err)
		_, err = env.fixtures.CreateTestDocument(testingutil.DocumentSpec{
			ClientID: client.ID, Number: "FACT-2025-011", Type: models.DocumentTypeInvoice,
			Status: models.DocumentStatusPaid, Date: lastWeek.AddDate(0, -1, 0), DueDate: &lastWeek, Lines: lines,
		})
		require.NoError(t, err)
		_, err = env.fixtures.CreateTestDocument(testingutil.DocumentSpec{
			ClientID: client.ID, Number: "FACT-2025-012", Type: models.DocumentTypeInvoice,
			Status: models.DocumentStatusSent, Date: lastWeek, DueDate: &tomorrow, Lines: lines,
		})
		require.NoError(t, err)
		_, err = env.fixtures.CreateTestDocument(testingutil.DocumentSpec{
			ClientID: client.ID, Number: "DEV-2025-010", Type: models.DocumentTypeQuote,
			Status: models.DocumentStatusSent, Date: lastWeek.AddDate(0, -1, 0), DueDate: &lastWeek, Lines: lines,
		})
		require.NoError(t, err)

		overdueLead, err := env.fixtures.CreateTestLead("Acme", models.LeadStatusProspect, "5000", 40, &yesterday)
		require.NoError(t, err)
		_, err = env.fixtures.CreateTestLead("Signed deal", models.LeadStatusConclusion, "9000", 100, &yesterday)
		require.NoError(t, err)
		_, err = env.fixtures.CreateTestLead("Next week", models.LeadStatusAnalyse, "1000", 20, &tomorrow)
		require.NoError(t, err)

		t.Run("Items", func(t *testing.T) {
			resp, err := reminders.GetReminders(ctx)
			require.NoError(t, err)
			assert.Equal(t, formatted(now), resp.GeneratedAt)

			require.Len(t, resp.OverdueTasks, 1)
			assert.Equal(t, overdueTask.ID, resp.OverdueTasks[0].ID)

			require.Len(t, resp.UnpaidInvoices, 1)
			item := resp.UnpaidInvoices[0]
			assert.Equal(t, unpaid.ID, item.ID)
			assert.Equal(t, "120.00", item.TotalTTC)
			assert.Equal(t, 7, item.DaysLate)
			assert.Equal(t, "Ada Lovelace", item.ClientName)

			require.Len(t, resp.OverdueLeads, 1)
			assert.Equal(t, overdueLead.ID, resp.OverdueLeads[0].ID)
			assert.Equal(t, "5000.00", resp.OverdueLeads[0].PotentialAmount)
		})

		t.Run("Counts", func(t *testing.T) {
			counts, err := reminders.GetReminderCounts(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), counts.OverdueTasks)
			assert.Equal(t, int64(1), counts.UnpaidInvoices)
			assert.Equal(t, int64(1), counts.OverdueLeads)
			assert.Equal(t, int64(3), counts.Total)
		})

		t.Run("LaterInstantSeesMore", func(t *testing.T) {
			later := businessflow.NewReminderFlow(env.taskRepo, env.documentRepo, env.leadRepo, env.clientRepo,
				testingutil.NewFixedClock(tomorrow.Add(time.Hour)))
			counts, err := later.GetReminderCounts(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), counts.OverdueTasks)
			assert.Equal(t, int64(2), counts.UnpaidInvoices)
			assert.Equal(t, int64(2), counts.OverdueLeads)
		})

		t.Run("Empty", func(t *testing.T) {
			require.NoError(t, env.db.ClearAllTables())
			resp, err := reminders.GetReminders(ctx)
			require.NoError(t, err)
			assert.NotNil(t, resp.OverdueTasks)
			assert.Empty(t, resp.OverdueTasks)
			assert.Empty(t, resp.UnpaidInvoices)
			assert.Empty(t, resp.OverdueLeads)
		})
	})
}

func TestGetReminders_UsesClockFunc(t *testing.T) {
	withFlowEnv(t, func(env *flowEnv) {
		calls := 0
		clock := utils.ClockFunc(func() time.Time {
			calls++
			return testingutil.BaseTime
		})
		reminders := businessflow.NewReminderFlow(env.taskRepo, env.documentRepo, env.leadRepo, env.clientRepo, clock)

		_, err := reminders.GetReminders(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}
