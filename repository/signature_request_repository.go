package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/docflow/models"
	"gorm.io/gorm"
)

// SignatureRequestRepositoryImpl implements SignatureRequestRepository
type SignatureRequestRepositoryImpl struct {
	*BaseRepository[models.SignatureRequest, models.SignatureRequestFilter]
}

func NewSignatureRequestRepository(db *gorm.DB) SignatureRequestRepository {
	return &SignatureRequestRepositoryImpl{BaseRepository: NewBaseRepository[models.SignatureRequest, models.SignatureRequestFilter](db)}
}

func (r *SignatureRequestRepositoryImpl) ByToken(ctx context.Context, token string) (*models.SignatureRequest, error) {
	rows, err := r.ByFilter(ctx, models.SignatureRequestFilter{Token: &token}, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *SignatureRequestRepositoryImpl) ListByDocument(ctx context.Context, documentID uint) ([]*models.SignatureRequest, error) {
	return r.ByFilter(ctx, models.SignatureRequestFilter{DocumentID: &documentID}, "sent_at DESC, id DESC", 0, 0)
}

func (r *SignatureRequestRepositoryImpl) Respond(ctx context.Context, id uint, resp models.SignatureResponse, at time.Time) (bool, error) {
	db := r.getDB(ctx)
	updates := map[string]any{
		"status":       resp.Outcome,
		"responded_at": at,
		"updated_at":   at,
	}
	switch resp.Outcome {
	case models.SignatureStatusSigned:
		updates["signature_data"] = resp.SignatureData
		updates["signed_ip"] = resp.IPAddress
		updates["signed_user_agent"] = resp.UserAgent
	case models.SignatureStatusDeclined:
		updates["declined_reason"] = resp.DeclinedReason
	}

	res := db.Model(&models.SignatureRequest{}).
		Where("id = ? AND status = ?", id, models.SignatureStatusPending).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to record signature response %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *SignatureRequestRepositoryImpl) MarkReminded(ctx context.Context, id uint, at time.Time) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.SignatureRequest{}).
		Where("id = ? AND status = ?", id, models.SignatureStatusPending).
		UpdateColumns(map[string]any{
			"reminder_count":   gorm.Expr("reminder_count + 1"),
			"reminder_sent_at": at,
			"updated_at":       at,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark signature request %d reminded: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *SignatureRequestRepositoryImpl) applyFilter(db *gorm.DB, f models.SignatureRequestFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.DocumentID != nil {
		db = db.Where("document_id = ?", *f.DocumentID)
	}
	if f.Token != nil {
		db = db.Where("token = ?", *f.Token)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	return db
}

func (r *SignatureRequestRepositoryImpl) ByFilter(ctx context.Context, filter models.SignatureRequestFilter, orderBy string, limit, offset int) ([]*models.SignatureRequest, error) {
	db := r.getDB(ctx)
	query := paginate(r.applyFilter(db.Model(&models.SignatureRequest{}), filter), orderBy, limit, offset)
	var rows []*models.SignatureRequest
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SignatureRequestRepositoryImpl) Count(ctx context.Context, filter models.SignatureRequestFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.SignatureRequest{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SignatureRequestRepositoryImpl) Exists(ctx context.Context, filter models.SignatureRequestFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
