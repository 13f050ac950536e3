package dto

type DocumentRowResponse struct {
	ID        uint    `json:"id"`
	Number    string  `json:"number"`
	Type      string  `json:"type"`
	Client    string  `json:"client"`
	Status    string  `json:"status"`
	Date      string  `json:"date"`
	DueDate   *string `json:"due_date,omitempty"`
	TotalHT   string  `json:"total_ht"`
	TotalTVA  string  `json:"total_tva"`
	TotalTTC  string  `json:"total_ttc"`
	Subject   string  `json:"subject"`
	CreatedAt string  `json:"created_at"`
}

// DocumentReportRequest filters the document table used by listings and exports
type DocumentReportRequest struct {
	Type     *string `query:"type" validate:"omitempty,oneof=quote invoice credit_note"`
	Status   *string `query:"status"`
	ClientID *uint   `query:"client_id"`
	DateFrom *string `query:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo   *string `query:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Format   string  `query:"format" validate:"omitempty,oneof=csv xlsx"`
}

type DocumentReportResponse struct {
	Rows []DocumentRowResponse `json:"rows"`
}

type MonthlyRevenueItem struct {
	Month   string `json:"month"`
	Revenue string `json:"revenue"`
}

type ConversionResponse struct {
	Quotes    int    `json:"quotes"`
	Invoices  int    `json:"invoices"`
	Converted int    `json:"converted"`
	Rate      string `json:"rate"`
}

type PipelineStageItem struct {
	Stage     string `json:"stage"`
	Count     int    `json:"count"`
	Potential string `json:"potential"`
}

type PipelineResponse struct {
	Stages            []PipelineStageItem `json:"stages"`
	TotalLeads        int                 `json:"total_leads"`
	TotalPotential    string              `json:"total_potential"`
	WeightedPotential string              `json:"weighted_potential"`
}

type DashboardResponse struct {
	RevenueThisMonth    string `json:"revenue_this_month"`
	RevenueLastMonth    string `json:"revenue_last_month"`
	RevenueGrowth       string `json:"revenue_growth"`
	PendingQuotesCount  int    `json:"pending_quotes_count"`
	PendingQuotesValue  string `json:"pending_quotes_value"`
	UnpaidInvoicesCount int    `json:"unpaid_invoices_count"`
	UnpaidInvoicesValue string `json:"unpaid_invoices_value"`
	OverdueTasks        int    `json:"overdue_tasks"`
}

// KPIResponse is cached as a whole, Cached tells whether it came from the cache
type KPIResponse struct {
	GeneratedAt    string               `json:"generated_at"`
	Cached         bool                 `json:"cached"`
	MonthlyRevenue []MonthlyRevenueItem `json:"monthly_revenue"`
	Conversion     ConversionResponse   `json:"conversion"`
	Pipeline       PipelineResponse     `json:"pipeline"`
	Dashboard      DashboardResponse    `json:"dashboard"`
}

// ExportFile is a rendered export ready to be streamed
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}
