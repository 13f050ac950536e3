package businessflow

import (
	"context"
	"time"

	"github.com/amirphl/docflow/app/dto"
	"github.com/amirphl/docflow/models"
	"github.com/amirphl/docflow/repository"
	"github.com/amirphl/docflow/utils"
)

// ReminderFlow aggregates what needs the operator's attention. It never writes.
type ReminderFlow interface {
	GetReminders(ctx context.Context) (*dto.RemindersResponse, error)
	GetReminderCounts(ctx context.Context) (*dto.ReminderCountsResponse, error)
}

// ReminderFlowImpl implements the reminder business flow
type ReminderFlowImpl struct {
	taskRepo     repository.TaskRepository
	documentRepo repository.DocumentRepository
	leadRepo     repository.LeadRepository
	clientRepo   repository.ClientRepository
	clock        utils.Clock
}

// NewReminderFlow creates a new reminder flow instance
func NewReminderFlow(
	taskRepo repository.TaskRepository,
	documentRepo repository.DocumentRepository,
	leadRepo repository.LeadRepository,
	clientRepo repository.ClientRepository,
	clock utils.Clock,
) ReminderFlow {
	return &ReminderFlowImpl{
		taskRepo:     taskRepo,
		documentRepo: documentRepo,
		leadRepo:     leadRepo,
		clientRepo:   clientRepo,
		clock:        clock,
	}
}

// reminderFilters builds the three overdue queries against a single instant
func reminderFilters(at time.Time) (models.TaskFilter, models.DocumentFilter, models.LeadFilter) {
	invoice := models.DocumentTypeInvoice
	sent := models.DocumentStatusSent
	return models.TaskFilter{ExcludeStatuses: models.ClosedTaskStatuses, DueBefore: &at},
		models.DocumentFilter{Type: &invoice, Status: &sent, DueBefore: &at},
		models.LeadFilter{ExcludeStatuses: models.TerminalLeadStatuses, FollowUpBefore: &at}
}

// GetReminders lists overdue tasks, unpaid invoices and leads needing follow-up, all judged at one instant
func (f *ReminderFlowImpl) GetReminders(ctx context.Context) (*dto.RemindersResponse, error) {
	at := f.clock.Now()
	taskFilter, invoiceFilter, leadFilter := reminderFilters(at)

	tasks, err := f.taskRepo.ByFilter(ctx, taskFilter, "due_date ASC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("REMINDERS_FAILED", "Failed to load overdue tasks", err)
	}
	invoices, err := f.documentRepo.ByFilter(ctx, invoiceFilter, "due_date ASC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("REMINDERS_FAILED", "Failed to load unpaid invoices", err)
	}
	leads, err := f.leadRepo.ByFilter(ctx, leadFilter, "next_follow_up_at ASC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("REMINDERS_FAILED", "Failed to load overdue leads", err)
	}

	clientIDs := make([]uint, 0, len(invoices))
	for _, d := range invoices {
		clientIDs = append(clientIDs, d.ClientID)
	}
	clients, err := f.clientRepo.ByIDs(ctx, clientIDs)
	if err != nil {
		return nil, NewBusinessError("REMINDERS_FAILED", "Failed to load clients", err)
	}

	resp := &dto.RemindersResponse{
		GeneratedAt:    formatTime(at),
		OverdueTasks:   make([]dto.OverdueTaskItem, 0, len(tasks)),
		UnpaidInvoices: make([]dto.UnpaidInvoiceItem, 0, len(invoices)),
		OverdueLeads:   make([]dto.OverdueLeadItem, 0, len(leads)),
	}
	for _, t := range tasks {
		if !t.IsOverdue(at) {
			continue
		}
		resp.OverdueTasks = append(resp.OverdueTasks, dto.OverdueTaskItem{
			ID:       t.ID,
			Title:    t.Title,
			Status:   string(t.Status),
			Priority: t.Priority,
			DueDate:  formatTime(*t.DueDate),
		})
	}
	for _, d := range invoices {
		if !d.IsUnpaidAt(at) {
			continue
		}
		resp.UnpaidInvoices = append(resp.UnpaidInvoices, dto.UnpaidInvoiceItem{
			ID:         d.ID,
			Number:     d.Number,
			ClientID:   d.ClientID,
			ClientName: clients[d.ClientID].DisplayName(),
			TotalTTC:   formatMoney(d.TotalTTC),
			DueDate:    formatTime(*d.DueDate),
			DaysLate:   int(at.Sub(*d.DueDate).Hours() / 24),
		})
	}
	for _, l := range leads {
		if !l.NeedsFollowUp(at) {
			continue
		}
		resp.OverdueLeads = append(resp.OverdueLeads, dto.OverdueLeadItem{
			ID:              l.ID,
			Name:            l.Name,
			Company:         l.Company,
			Status:          string(l.Status),
			PotentialAmount: formatMoney(l.PotentialAmount),
			NextFollowUpAt:  formatTime(*l.NextFollowUpAt),
		})
	}
	return resp, nil
}

// GetReminderCounts returns the three reminder counts and their total
func (f *ReminderFlowImpl) GetReminderCounts(ctx context.Context) (*dto.ReminderCountsResponse, error) {
	taskFilter, invoiceFilter, leadFilter := reminderFilters(f.clock.Now())

	tasks, err := f.taskRepo.Count(ctx, taskFilter)
	if err != nil {
		return nil, NewBusinessError("REMINDERS_FAILED", "Failed to count overdue tasks", err)
	}
	invoices, err := f.documentRepo.Count(ctx, invoiceFilter)
	if err != nil {
		return nil, NewBusinessError("REMINDERS_FAILED", "Failed to count unpaid invoices", err)
	}
	leads, err := f.leadRepo.Count(ctx, leadFilter)
	if err != nil {
		return nil, NewBusinessError("REMINDERS_FAILED", "Failed to count overdue leads", err)
	}

	return &dto.ReminderCountsResponse{
		OverdueTasks:   tasks,
		UnpaidInvoices: invoices,
		OverdueLeads:   leads,
		Total:          tasks + invoices + leads,
	}, nil
}
