package handlers

import (
	businessflow "github.com/amirphl/docflow/business_flow"
	"github.com/gofiber/fiber/v3"
)

type ReminderHandler struct {
	baseHandler
	flow businessflow.ReminderFlow
}

func NewReminderHandler(flow businessflow.ReminderFlow) *ReminderHandler {
	return &ReminderHandler{baseHandler: newBaseHandler(), flow: flow}
}

// Reminders
// @Description Overdue tasks, unpaid invoices past their due date and leads past their next action date
// @Tags Reminders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.RemindersResponse} "Reminders"
// @Router /api/v1/reminders [get]
func (h *ReminderHandler) List(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/reminders")
	defer cancel()

	result, err := h.flow.GetReminders(ctx)
	if err != nil {
		return h.FlowError(c, err, "Failed to load reminders", "GET_REMINDERS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Reminders", result)
}

// ReminderCounts
// @Description Number of reminders per category
// @Tags Reminders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ReminderCountsResponse} "Reminder counts"
// @Router /api/v1/reminders/counts [get]
func (h *ReminderHandler) Counts(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/reminders/counts")
	defer cancel()

	result, err := h.flow.GetReminderCounts(ctx)
	if err != nil {
		return h.FlowError(c, err, "Failed to count reminders", "GET_REMINDER_COUNTS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Reminder counts", result)
}
