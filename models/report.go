package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentRow is the flat tabular projection of a document used by listings and exports
type DocumentRow struct {
	ID        uint
	Number    string
	Type      DocumentType
	Client    string
	Status    DocumentStatus
	Date      time.Time
	DueDate   *time.Time
	TotalHT   decimal.Decimal
	TotalTVA  decimal.Decimal
	TotalTTC  decimal.Decimal
	Subject   string
	CreatedAt time.Time
}

// MonthlyRevenue is the collected revenue of one calendar month, Month formatted as YYYY-MM
type MonthlyRevenue struct {
	Month   string
	Revenue decimal.Decimal
}

// ConversionStats relates issued quotes to issued invoices
type ConversionStats struct {
	Quotes    int
	Invoices  int
	Converted int
	// Rate is Converted / Quotes as a percentage with two decimals
	Rate decimal.Decimal
}

// PipelineStage aggregates the leads sitting in one SPANCO stage
type PipelineStage struct {
	Stage     LeadStatus
	Count     int
	Potential decimal.Decimal
}

type PipelineSummary struct {
	Stages            []PipelineStage
	TotalLeads        int
	TotalPotential    decimal.Decimal
	WeightedPotential decimal.Decimal
}

// DashboardKPIs is the headline figures of the operator dashboard
type DashboardKPIs struct {
	RevenueThisMonth    decimal.Decimal
	RevenueLastMonth    decimal.Decimal
	RevenueGrowth       decimal.Decimal
	PendingQuotesCount  int
	PendingQuotesValue  decimal.Decimal
	UnpaidInvoicesCount int
	UnpaidInvoicesValue decimal.Decimal
	OverdueTasks        int
}
