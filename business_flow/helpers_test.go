package businessflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/docflow/app/dto"
	"github.com/amirphl/docflow/app/services"
	businessflow "github.com/amirphl/docflow/business_flow"
	"github.com/amirphl/docflow/models"
	"github.com/amirphl/docflow/repository"
	testingutil "github.com/amirphl/docflow/testing"
	"github.com/amirphl/docflow/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testPublicBaseURL = "https://docs.example.com"

// flowEnv wires every flow against one test database
type flowEnv struct {
	db       *testingutil.TestDB
	fixtures *testingutil.TestFixtures
	clock    *testingutil.StepClock
	email    *services.MockEmailProvider

	documentRepo  repository.DocumentRepository
	clientRepo    repository.ClientRepository
	sequenceRepo  repository.SequenceCounterRepository
	trackingRepo  repository.DocumentTrackingRepository
	viewRepo      repository.DocumentViewRepository
	signatureRepo repository.SignatureRequestRepository
	taskRepo      repository.TaskRepository
	leadRepo      repository.LeadRepository
	auditRepo     repository.AuditLogRepository

	documents  businessflow.DocumentFlow
	tracking   businessflow.TrackingFlow
	signatures businessflow.SignatureFlow
	reminders  businessflow.ReminderFlow
	reports    businessflow.ReportFlow
}

func withFlowEnv(t *testing.T, fn func(env *flowEnv)) {
	t.Helper()
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		env := &flowEnv{
			db:       testDB,
			fixtures: testingutil.NewTestFixtures(testDB),
			clock:    testingutil.NewStepClock(),
			email:    services.NewMockEmailProvider(),

			documentRepo:  repository.NewDocumentRepository(testDB.DB),
			clientRepo:    repository.NewClientRepository(testDB.DB),
			sequenceRepo:  repository.NewSequenceCounterRepository(testDB.DB),
			trackingRepo:  repository.NewDocumentTrackingRepository(testDB.DB),
			viewRepo:      repository.NewDocumentViewRepository(testDB.DB),
			signatureRepo: repository.NewSignatureRequestRepository(testDB.DB),
			taskRepo:      repository.NewTaskRepository(testDB.DB),
			leadRepo:      repository.NewLeadRepository(testDB.DB),
			auditRepo:     repository.NewAuditLogRepository(testDB.DB),
		}
		notifier := services.NewNotificationService(env.email, "owner@example.com")

		env.documents = businessflow.NewDocumentFlow(env.documentRepo, env.clientRepo, env.sequenceRepo, env.auditRepo, env.clock, testDB.DB)
		env.tracking = businessflow.NewTrackingFlow(env.trackingRepo, env.viewRepo, env.documentRepo, env.auditRepo, notifier, env.clock, testPublicBaseURL, 10)
		env.signatures = businessflow.NewSignatureFlow(env.signatureRepo, env.documentRepo, env.auditRepo, notifier, env.clock, utils.SignatureRequestTTL, testPublicBaseURL, testDB.DB)
		env.reminders = businessflow.NewReminderFlow(env.taskRepo, env.documentRepo, env.leadRepo, env.clientRepo, env.clock)
		env.reports = businessflow.NewReportFlow(env.documentRepo, env.clientRepo, env.taskRepo, env.leadRepo, nil, "docflow:", time.Minute, env.clock)

		fn(env)
		return nil
	})
	require.NoError(t, err)
}

func testMetadata() *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata("203.0.113.7", "test-agent/1.0")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(description, quantity, price, tva string) dto.DocumentLineRequest {
	return dto.DocumentLineRequest{
		Description: description,
		Quantity:    dec(quantity),
		UnitPriceHT: dec(price),
		TVARate:     dec(tva),
	}
}

// scenarioLines are the two lines totalling 250.00 HT, 45.00 TVA, 295.00 TTC
func scenarioLines() []dto.DocumentLineRequest {
	return []dto.DocumentLineRequest{
		line("Consulting", "2", "100", "20"),
		line("Travel", "1", "50", "10"),
	}
}

func (env *flowEnv) createClient(t *testing.T) *models.Client {
	t.Helper()
	client, err := env.fixtures.CreateTestClient("Ada", "Lovelace")
	require.NoError(t, err)
	return client
}

func (env *flowEnv) createDocument(t *testing.T, clientID uint, docType string) *dto.DocumentResponse {
	t.Helper()
	doc, err := env.documents.CreateDocument(context.Background(), &dto.CreateDocumentRequest{
		ClientID: clientID,
		Type:     docType,
		Lines:    scenarioLines(),
	}, testMetadata())
	require.NoError(t, err)
	return doc
}

func (env *flowEnv) transition(t *testing.T, id uint, status models.DocumentStatus) *dto.DocumentResponse {
	t.Helper()
	doc, err := env.documents.TransitionDocument(context.Background(), id, &dto.TransitionDocumentRequest{Status: string(status)}, testMetadata())
	require.NoError(t, err)
	return doc
}

func (env *flowEnv) sendSignature(t *testing.T, documentID uint) *dto.SignatureRequestResponse {
	t.Helper()
	resp, err := env.signatures.SendRequest(context.Background(), documentID, &dto.SendSignatureRequest{
		SignerName:  "Grace Hopper",
		SignerEmail: "grace@example.com",
	}, testMetadata())
	require.NoError(t, err)
	return resp
}
