package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/docflow/models"
	"github.com/amirphl/docflow/repository"
	testingutil "github.com/amirphl/docflow/testing"
	"github.com/amirphl/docflow/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func createDocument(t *testing.T, fixtures *testingutil.TestFixtures, clientID uint, number string, status models.DocumentStatus, date time.Time) *models.Document {
	t.Helper()
	doc, err := fixtures.CreateTestDocument(testingutil.DocumentSpec{
		ClientID: clientID,
		Number:   number,
		Type:     models.DocumentTypeInvoice,
		Status:   status,
		Date:     date,
		Lines: []testingutil.LineSpec{
			{Description: "Coaching", Quantity: "2", UnitPrice: "100", TVARate: "20"},
		},
	})
	require.NoError(t, err)
	return doc
}

func TestGormConfig(t *testing.T) {
	cfg := repository.GormConfig(logger.Default.LogMode(logger.Silent))
	assert.True(t, cfg.TranslateError)
	assert.NotNil(t, cfg.Logger)
}

func TestSequenceCounterRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewSequenceCounterRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("StartsAtOne", func(t *testing.T) {
			current, err := repo.Current(ctx, "invoice-2025")
			require.NoError(t, err)
			assert.Equal(t, int64(0), current)

			for want := int64(1); want <= 3; want++ {
				got, err := repo.Next(ctx, "invoice-2025")
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}

			current, err = repo.Current(ctx, "invoice-2025")
			require.NoError(t, err)
			assert.Equal(t, int64(3), current)
		})

		t.Run("CountersAreIndependent", func(t *testing.T) {
			got, err := repo.Next(ctx, "quote-2025")
			require.NoError(t, err)
			assert.Equal(t, int64(1), got)
		})

		t.Run("RolledBackWithTransaction", func(t *testing.T) {
			boom := errors.New("boom")
			err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				got, err := repo.Next(txCtx, "credit_note-2025")
				require.NoError(t, err)
				assert.Equal(t, int64(1), got)
				return boom
			})
			assert.ErrorIs(t, err, boom)

			// the allocation is reused after the rollback, no gap
			got, err := repo.Next(ctx, "credit_note-2025")
			require.NoError(t, err)
			assert.Equal(t, int64(1), got)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDocumentRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewDocumentRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		client, err := fixtures.CreateTestClient("Alice", "Martin")
		require.NoError(t, err)

		draft := createDocument(t, fixtures, client.ID, "FACT-2025-001", models.DocumentStatusDraft, day)
		createDocument(t, fixtures, client.ID, "FACT-2025-002", models.DocumentStatusSent, day.AddDate(0, 1, 0))

		t.Run("ByIDWithLines", func(t *testing.T) {
			doc, err := repo.ByIDWithLines(ctx, draft.ID)
			require.NoError(t, err)
			require.NotNil(t, doc)
			assert.Len(t, doc.Lines, 1)
			assert.True(t, doc.TotalTTC.Equal(decimal.NewFromInt(240)), doc.TotalTTC.String())
		})

		t.Run("ByIDNotFound", func(t *testing.T) {
			doc, err := repo.ByIDWithLines(ctx, 999)
			assert.NoError(t, err)
			assert.Nil(t, doc)
		})

		t.Run("ByFilterDateRange", func(t *testing.T) {
			to := day.AddDate(0, 0, 1)
			docs, err := repo.ByFilter(ctx, models.DocumentFilter{DateFrom: &day, DateTo: &to}, "id ASC", 0, 0)
			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, "FACT-2025-001", docs[0].Number)

			count, err := repo.Count(ctx, models.DocumentFilter{ClientID: &client.ID})
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)
		})

		t.Run("UpdateStatusIsCompareAndSet", func(t *testing.T) {
			at := day.Add(time.Hour)
			ok, err := repo.UpdateStatus(ctx, draft.ID, models.DocumentStatusDraft, models.DocumentStatusSent, at)
			require.NoError(t, err)
			assert.True(t, ok)

			// a second writer still expecting draft loses
			ok, err = repo.UpdateStatus(ctx, draft.ID, models.DocumentStatusDraft, models.DocumentStatusCancelled, at)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = repo.UpdateStatus(ctx, draft.ID, models.DocumentStatusSent, models.DocumentStatusPaid, at)
			require.NoError(t, err)
			assert.True(t, ok)

			doc, err := repo.ByID(ctx, draft.ID)
			require.NoError(t, err)
			assert.Equal(t, models.DocumentStatusPaid, doc.Status)
			require.NotNil(t, doc.PaidAt)
			assert.True(t, doc.PaidAt.Equal(at))
		})

		t.Run("UpdateContentRequiresExpectedStatus", func(t *testing.T) {
			doc, err := repo.ByID(ctx, draft.ID)
			require.NoError(t, err)
			doc.Subject = utils.ToPtr("Updated")

			ok, err := repo.UpdateContent(ctx, doc, models.DocumentStatusDraft)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = repo.UpdateContent(ctx, doc, models.DocumentStatusPaid)
			require.NoError(t, err)
			assert.True(t, ok)
		})

		t.Run("DuplicateNumberIsTranslated", func(t *testing.T) {
			dup := &models.Document{
				ClientID: client.ID,
				Number:   "FACT-2025-001",
				Type:     models.DocumentTypeInvoice,
				Status:   models.DocumentStatusDraft,
				Date:     day,
			}
			err := repo.Save(ctx, dup)
			require.Error(t, err)
			assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), err.Error())
		})

		t.Run("ReplaceLines", func(t *testing.T) {
			lines := []*models.DocumentLine{
				{Description: "Session A", Quantity: decimal.NewFromInt(1)},
				{Description: "Session B", Quantity: decimal.NewFromInt(2)},
			}
			require.NoError(t, repo.ReplaceLines(ctx, draft.ID, lines))

			doc, err := repo.ByIDWithLines(ctx, draft.ID)
			require.NoError(t, err)
			require.Len(t, doc.Lines, 2)
			assert.Equal(t, "Session A", doc.Lines[0].Description)
			assert.Equal(t, "Session B", doc.Lines[1].Description)
			assert.Equal(t, 2, doc.Lines[1].Position)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDocumentTrackingRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		trackingRepo := repository.NewDocumentTrackingRepository(testDB.DB)
		viewRepo := repository.NewDocumentViewRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		client, err := fixtures.CreateTestClient("Bob", "Durand")
		require.NoError(t, err)
		doc := createDocument(t, fixtures, client.ID, "FACT-2025-010", models.DocumentStatusSent, day)

		tracking := &models.DocumentTracking{DocumentID: doc.ID, Token: "tok-abc", CreatedAt: day, UpdatedAt: day}
		require.NoError(t, trackingRepo.Save(ctx, tracking))

		first := day.Add(time.Hour)
		later := day.Add(2 * time.Hour)

		t.Run("RecordView", func(t *testing.T) {
			got, err := trackingRepo.RecordView(ctx, "tok-abc", later, models.Viewer{IPAddress: utils.ToPtr("10.0.0.2")})
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, int64(1), got.ViewCount)

			// an older event arriving late only moves first_viewed_at
			got, err = trackingRepo.RecordView(ctx, "tok-abc", first, models.Viewer{IPAddress: utils.ToPtr("10.0.0.1")})
			require.NoError(t, err)
			assert.Equal(t, int64(2), got.ViewCount)
			require.NotNil(t, got.FirstViewedAt)
			require.NotNil(t, got.LastViewedAt)
			assert.True(t, got.FirstViewedAt.Equal(first))
			assert.True(t, got.LastViewedAt.Equal(later))
			require.NotNil(t, got.LastViewerIP)
			assert.Equal(t, "10.0.0.2", *got.LastViewerIP)
		})

		t.Run("SecondTrackingForDocumentIsDuplicate", func(t *testing.T) {
			err := trackingRepo.Save(ctx, &models.DocumentTracking{DocumentID: doc.ID, Token: "tok-other", CreatedAt: day, UpdatedAt: day})
			require.Error(t, err)
			assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), err.Error())
		})

		t.Run("UnknownToken", func(t *testing.T) {
			got, err := trackingRepo.RecordView(ctx, "missing", later, models.Viewer{})
			require.NoError(t, err)
			assert.Nil(t, got)
		})

		t.Run("ListRecent", func(t *testing.T) {
			views, err := viewRepo.ListRecent(ctx, 1)
			require.NoError(t, err)
			require.Len(t, views, 1)
			assert.Equal(t, "FACT-2025-010", views[0].DocumentNumber)
			assert.True(t, views[0].ViewedAt.Equal(later))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSignatureRequestRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewSignatureRequestRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		client, err := fixtures.CreateTestClient("Chloe", "Petit")
		require.NoError(t, err)
		doc := createDocument(t, fixtures, client.ID, "DEV-2025-001", models.DocumentStatusSent, day)

		req := &models.SignatureRequest{
			DocumentID:  doc.ID,
			Token:       "sig-token",
			SignerName:  "Chloe Petit",
			SignerEmail: "chloe@example.com",
			SignerRole:  models.SignerRoleClient,
			Status:      models.SignatureStatusPending,
			SentAt:      day,
			CreatedAt:   day,
			UpdatedAt:   day,
		}
		require.NoError(t, repo.Save(ctx, req))

		t.Run("ByToken", func(t *testing.T) {
			got, err := repo.ByToken(ctx, "sig-token")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, req.ID, got.ID)

			got, err = repo.ByToken(ctx, "nope")
			assert.NoError(t, err)
			assert.Nil(t, got)
		})

		t.Run("MarkReminded", func(t *testing.T) {
			ok, err := repo.MarkReminded(ctx, req.ID, day.Add(time.Hour))
			require.NoError(t, err)
			assert.True(t, ok)

			got, err := repo.ByID(ctx, req.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, got.ReminderCount)
		})

		t.Run("RespondOnce", func(t *testing.T) {
			at := day.Add(2 * time.Hour)
			ok, err := repo.Respond(ctx, req.ID, models.SignatureResponse{
				Outcome:       models.SignatureStatusSigned,
				SignatureData: utils.ToPtr("data:image/png;base64,AAAA"),
			}, at)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = repo.Respond(ctx, req.ID, models.SignatureResponse{Outcome: models.SignatureStatusDeclined}, at)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = repo.MarkReminded(ctx, req.ID, at)
			require.NoError(t, err)
			assert.False(t, ok)

			got, err := repo.ByID(ctx, req.ID)
			require.NoError(t, err)
			assert.Equal(t, models.SignatureStatusSigned, got.Status)
			require.NotNil(t, got.RespondedAt)
		})

		t.Run("ListByDocument", func(t *testing.T) {
			rows, err := repo.ListByDocument(ctx, doc.ID)
			require.NoError(t, err)
			assert.Len(t, rows, 1)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestClientRepository_ByIDs(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewClientRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		a, err := fixtures.CreateTestClient("Anna", "Roux")
		require.NoError(t, err)
		b, err := fixtures.CreateTestClient("Paul", "Roux")
		require.NoError(t, err)

		got, err := repo.ByIDs(ctx, []uint{a.ID, b.ID, 999})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, "Anna", got[a.ID].FirstName)

		empty, err := repo.ByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
		return nil
	})
	require.NoError(t, err)
}

func TestAuditLogRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewAuditLogRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		docID := uint(42)
		entries := []*models.AuditLog{
			{Action: models.AuditActionDocumentCreated, EntityType: models.AuditEntityDocument, EntityID: &docID, Success: utils.ToPtr(true), CreatedAt: day},
			{Action: models.AuditActionDocumentTransitionFailed, EntityType: models.AuditEntityDocument, EntityID: &docID, Success: utils.ToPtr(false), ErrorMessage: utils.ToPtr("invalid transition"), CreatedAt: day.Add(time.Minute)},
			{Action: models.AuditActionSignatureRequested, EntityType: models.AuditEntitySignatureRequest, Success: utils.ToPtr(true), CreatedAt: day.Add(2 * time.Minute)},
		}
		require.NoError(t, repo.SaveBatch(ctx, entries))

		t.Run("ListByEntity", func(t *testing.T) {
			logs, err := repo.ListByEntity(ctx, models.AuditEntityDocument, docID, 10, 0)
			require.NoError(t, err)
			require.Len(t, logs, 2)
			assert.Equal(t, models.AuditActionDocumentTransitionFailed, logs[0].Action)
		})

		t.Run("ListFailedActions", func(t *testing.T) {
			logs, err := repo.ListFailedActions(ctx, 10, 0)
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.Equal(t, "invalid transition", *logs[0].ErrorMessage)
		})

		return nil
	})
	require.NoError(t, err)
}
