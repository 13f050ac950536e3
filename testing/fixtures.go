package testing

import (
	"fmt"
	"time"

	"github.com/amirphl/docflow/models"
	"github.com/amirphl/docflow/utils"
	"github.com/shopspring/decimal"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestClient creates a client with a unique email
func (tf *TestFixtures) CreateTestClient(firstName, lastName string) (*models.Client, error) {
	client := &models.Client{
		FirstName: firstName,
		LastName:  lastName,
		Email:     utils.ToPtr(fmt.Sprintf("%s.%s.%d@example.com", firstName, lastName, time.Now().UnixNano())),
	}
	if err := tf.DB.DB.Create(client).Error; err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// DocumentSpec describes a document inserted directly, bypassing numbering and validation
type DocumentSpec struct {
	ClientID uint
	Number   string
	Type     models.DocumentType
	Status   models.DocumentStatus
	Date     time.Time
	DueDate  *time.Time
	Subject  string
	Lines    []LineSpec
}

// LineSpec is a line given as decimal strings
type LineSpec struct {
	Description string
	Quantity    string
	UnitPrice   string
	TVARate     string
}

// CreateTestDocument inserts a document with computed totals in the requested state
func (tf *TestFixtures) CreateTestDocument(spec DocumentSpec) (*models.Document, error) {
	doc := &models.Document{
		Number:   spec.Number,
		ClientID: spec.ClientID,
		Type:     spec.Type,
		Status:   spec.Status,
		Date:     spec.Date,
		DueDate:  spec.DueDate,
	}
	if spec.Subject != "" {
		doc.Subject = utils.ToPtr(spec.Subject)
	}
	for _, l := range spec.Lines {
		doc.Lines = append(doc.Lines, &models.DocumentLine{
			Description: l.Description,
			Quantity:    decimal.RequireFromString(l.Quantity),
			UnitPriceHT: decimal.RequireFromString(l.UnitPrice),
			TVARate:     decimal.RequireFromString(l.TVARate),
		})
	}
	doc.RecomputeTotals()
	if doc.Status == models.DocumentStatusPaid {
		doc.PaidAt = utils.ToPtr(spec.Date)
	}

	if err := tf.DB.DB.Create(doc).Error; err != nil {
		return nil, fmt.Errorf("failed to create document %s: %w", spec.Number, err)
	}
	return doc, nil
}

// CreateTestTask creates a task with the given status and optional due date
func (tf *TestFixtures) CreateTestTask(title string, status models.TaskStatus, due *time.Time) (*models.Task, error) {
	task := &models.Task{Title: title, Status: status, Priority: "medium", DueDate: due}
	if err := tf.DB.DB.Create(task).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// CreateTestLead creates a lead in a SPANCO stage
func (tf *TestFixtures) CreateTestLead(name string, status models.LeadStatus, potential string, probability int, followUp *time.Time) (*models.Lead, error) {
	lead := &models.Lead{
		Name:            name,
		Status:          status,
		PotentialAmount: decimal.RequireFromString(potential),
		Probability:     probability,
		NextFollowUpAt:  followUp,
	}
	if err := tf.DB.DB.Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	return lead, nil
}
