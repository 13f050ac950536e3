package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeadStatus is the SPANCO pipeline stage of a lead
type LeadStatus string

const (
	LeadStatusSuspect     LeadStatus = "suspect"
	LeadStatusProspect    LeadStatus = "prospect"
	LeadStatusAnalyse     LeadStatus = "analyse"
	LeadStatusNegociation LeadStatus = "negociation"
	LeadStatusConclusion  LeadStatus = "conclusion"
	LeadStatusOrdre       LeadStatus = "ordre"
)

// LeadPipelineStages lists the SPANCO stages in pipeline order
var LeadPipelineStages = []LeadStatus{
	LeadStatusSuspect,
	LeadStatusProspect,
	LeadStatusAnalyse,
	LeadStatusNegociation,
	LeadStatusConclusion,
	LeadStatusOrdre,
}

// TerminalLeadStatuses are closing stages that no longer need follow-up
var TerminalLeadStatuses = []LeadStatus{LeadStatusConclusion, LeadStatusOrdre}

type Lead struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	Company         *string         `gorm:"size:255" json:"company,omitempty"`
	Email           *string         `gorm:"size:255" json:"email,omitempty"`
	Status          LeadStatus      `gorm:"size:20;not null;index:idx_leads_status" json:"status"`
	PotentialAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"potential_amount"`
	Probability     int             `gorm:"not null;default:0" json:"probability"`
	NextFollowUpAt  *time.Time      `gorm:"index:idx_leads_next_follow_up_at" json:"next_follow_up_at,omitempty"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`
}

func (Lead) TableName() string { return "leads" }

// LeadFilter provides filter fields for repository queries
type LeadFilter struct {
	ID              *uint
	Status          *LeadStatus
	ExcludeStatuses []LeadStatus
	FollowUpBefore  *time.Time
}

func (s LeadStatus) IsTerminal() bool {
	for _, t := range TerminalLeadStatuses {
		if s == t {
			return true
		}
	}
	return false
}

// NeedsFollowUp reports whether an open lead's follow-up date passed before now
func (l *Lead) NeedsFollowUp(now time.Time) bool {
	return !l.Status.IsTerminal() && l.NextFollowUpAt != nil && l.NextFollowUpAt.Before(now)
}

// WeightedAmount is the potential amount scaled by the closing probability
func (l *Lead) WeightedAmount() decimal.Decimal {
	return l.PotentialAmount.Mul(decimal.NewFromInt(int64(l.Probability))).Div(hundred)
}
