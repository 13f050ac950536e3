package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/docflow/models"
	"gorm.io/gorm"
)

// DocumentTrackingRepositoryImpl implements DocumentTrackingRepository
type DocumentTrackingRepositoryImpl struct {
	*BaseRepository[models.DocumentTracking, models.DocumentTrackingFilter]
}

func NewDocumentTrackingRepository(db *gorm.DB) DocumentTrackingRepository {
	return &DocumentTrackingRepositoryImpl{BaseRepository: NewBaseRepository[models.DocumentTracking, models.DocumentTrackingFilter](db)}
}

func (r *DocumentTrackingRepositoryImpl) ByDocumentID(ctx context.Context, documentID uint) (*models.DocumentTracking, error) {
	rows, err := r.ByFilter(ctx, models.DocumentTrackingFilter{DocumentID: &documentID}, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *DocumentTrackingRepositoryImpl) ByToken(ctx context.Context, token string) (*models.DocumentTracking, error) {
	rows, err := r.ByFilter(ctx, models.DocumentTrackingFilter{Token: &token}, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// RecordView never reads before writing: the counter and both timestamps are
// computed by the database from the current row values.
func (r *DocumentTrackingRepositoryImpl) RecordView(ctx context.Context, token string, at time.Time, viewer models.Viewer) (*models.DocumentTracking, error) {
	var tracking *models.DocumentTracking
	err := WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		db := r.getDB(txCtx)

		res := db.Model(&models.DocumentTracking{}).
			Where("token = ?", token).
			UpdateColumns(map[string]any{
				"view_count":             gorm.Expr("view_count + 1"),
				"first_viewed_at":        gorm.Expr("CASE WHEN first_viewed_at IS NULL OR first_viewed_at > ? THEN ? ELSE first_viewed_at END", at, at),
				"last_viewed_at":         gorm.Expr("CASE WHEN last_viewed_at IS NULL OR last_viewed_at <= ? THEN ? ELSE last_viewed_at END", at, at),
				"last_viewer_ip":         gorm.Expr("CASE WHEN last_viewed_at IS NULL OR last_viewed_at <= ? THEN ? ELSE last_viewer_ip END", at, viewer.IPAddress),
				"last_viewer_user_agent": gorm.Expr("CASE WHEN last_viewed_at IS NULL OR last_viewed_at <= ? THEN ? ELSE last_viewer_user_agent END", at, viewer.UserAgent),
				"updated_at":             at,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to record view: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var row models.DocumentTracking
		if err := db.Where("token = ?", token).Take(&row).Error; err != nil {
			return fmt.Errorf("failed to reload tracking: %w", err)
		}

		view := &models.DocumentView{
			TrackingID: row.ID,
			DocumentID: row.DocumentID,
			IPAddress:  viewer.IPAddress,
			UserAgent:  viewer.UserAgent,
			ViewedAt:   at,
		}
		if err := db.Create(view).Error; err != nil {
			return fmt.Errorf("failed to append view event: %w", err)
		}

		tracking = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tracking, nil
}

func (r *DocumentTrackingRepositoryImpl) applyFilter(db *gorm.DB, f models.DocumentTrackingFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.DocumentID != nil {
		db = db.Where("document_id = ?", *f.DocumentID)
	}
	if f.Token != nil {
		db = db.Where("token = ?", *f.Token)
	}
	return db
}

func (r *DocumentTrackingRepositoryImpl) ByFilter(ctx context.Context, filter models.DocumentTrackingFilter, orderBy string, limit, offset int) ([]*models.DocumentTracking, error) {
	db := r.getDB(ctx)
	query := paginate(r.applyFilter(db.Model(&models.DocumentTracking{}), filter), orderBy, limit, offset)
	var rows []*models.DocumentTracking
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *DocumentTrackingRepositoryImpl) Count(ctx context.Context, filter models.DocumentTrackingFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.DocumentTracking{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DocumentTrackingRepositoryImpl) Exists(ctx context.Context, filter models.DocumentTrackingFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
