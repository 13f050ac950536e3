package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/docflow/models"
	"gorm.io/gorm"
)

// DocumentViewRepositoryImpl implements DocumentViewRepository
type DocumentViewRepositoryImpl struct {
	*BaseRepository[models.DocumentView, models.DocumentViewFilter]
}

func NewDocumentViewRepository(db *gorm.DB) DocumentViewRepository {
	return &DocumentViewRepositoryImpl{BaseRepository: NewBaseRepository[models.DocumentView, models.DocumentViewFilter](db)}
}

// ListRecent returns view events across all documents, newest first
func (r *DocumentViewRepositoryImpl) ListRecent(ctx context.Context, limit int) ([]*models.RecentDocumentView, error) {
	db := r.getDB(ctx)
	var rows []*models.RecentDocumentView
	err := db.Table("document_views AS v").
		Select("v.id, v.document_id, d.number AS document_number, d.type AS document_type, v.ip_address, v.user_agent, v.viewed_at").
		Joins("JOIN documents d ON d.id = v.document_id").
		Order("v.viewed_at DESC, v.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent views: %w", err)
	}
	return rows, nil
}

func (r *DocumentViewRepositoryImpl) applyFilter(db *gorm.DB, f models.DocumentViewFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.TrackingID != nil {
		db = db.Where("tracking_id = ?", *f.TrackingID)
	}
	if f.DocumentID != nil {
		db = db.Where("document_id = ?", *f.DocumentID)
	}
	if f.ViewedAfter != nil {
		db = db.Where("viewed_at >= ?", *f.ViewedAfter)
	}
	if f.ViewedBefore != nil {
		db = db.Where("viewed_at < ?", *f.ViewedBefore)
	}
	return db
}

func (r *DocumentViewRepositoryImpl) ByFilter(ctx context.Context, filter models.DocumentViewFilter, orderBy string, limit, offset int) ([]*models.DocumentView, error) {
	db := r.getDB(ctx)
	query := paginate(r.applyFilter(db.Model(&models.DocumentView{}), filter), orderBy, limit, offset)
	var rows []*models.DocumentView
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *DocumentViewRepositoryImpl) Count(ctx context.Context, filter models.DocumentViewFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.DocumentView{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DocumentViewRepositoryImpl) Exists(ctx context.Context, filter models.DocumentViewFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
