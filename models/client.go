package models

import (
	"strings"
	"time"
)

// Client is the customer a document is addressed to
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FirstName string    `gorm:"size:100;not null" json:"first_name"`
	LastName  string    `gorm:"size:100;not null" json:"last_name"`
	Email     *string   `gorm:"size:255;index:idx_clients_email" json:"email,omitempty"`
	Company   *string   `gorm:"size:255" json:"company,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

// DisplayName prefers the company, then the person's full name
func (c *Client) DisplayName() string {
	if c == nil {
		return ""
	}
	if c.Company != nil && strings.TrimSpace(*c.Company) != "" {
		return *c.Company
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ClientFilter provides filter fields for repository queries
type ClientFilter struct {
	ID    *uint
	IDs   []uint
	Email *string
}
