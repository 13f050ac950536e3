package dto

type OverdueTaskItem struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
	DueDate  string `json:"due_date"`
}

type UnpaidInvoiceItem struct {
	ID         uint   `json:"id"`
	Number     string `json:"number"`
	ClientID   uint   `json:"client_id"`
	ClientName string `json:"client_name"`
	TotalTTC   string `json:"total_ttc"`
	DueDate    string `json:"due_date"`
	DaysLate   int    `json:"days_late"`
}

type OverdueLeadItem struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Company         *string `json:"company,omitempty"`
	Status          string  `json:"status"`
	PotentialAmount string  `json:"potential_amount"`
	NextFollowUpAt  string  `json:"next_follow_up_at"`
}

// RemindersResponse lists everything that needs attention as of GeneratedAt
type RemindersResponse struct {
	GeneratedAt    string              `json:"generated_at"`
	OverdueTasks   []OverdueTaskItem   `json:"overdue_tasks"`
	UnpaidInvoices []UnpaidInvoiceItem `json:"unpaid_invoices"`
	OverdueLeads   []OverdueLeadItem   `json:"overdue_leads"`
}

type ReminderCountsResponse struct {
	OverdueTasks   int64 `json:"overdue_tasks"`
	UnpaidInvoices int64 `json:"unpaid_invoices"`
	OverdueLeads   int64 `json:"overdue_leads"`
	Total          int64 `json:"total"`
}
