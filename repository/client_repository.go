package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/docflow/models"
	"gorm.io/gorm"
)

// ClientRepositoryImpl implements ClientRepository
type ClientRepositoryImpl struct {
	*BaseRepository[models.Client, models.ClientFilter]
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &ClientRepositoryImpl{BaseRepository: NewBaseRepository[models.Client, models.ClientFilter](db)}
}

func (r *ClientRepositoryImpl) applyFilter(db *gorm.DB, f models.ClientFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if len(f.IDs) > 0 {
		db = db.Where("id IN ?", f.IDs)
	}
	if f.Email != nil {
		db = db.Where("email = ?", *f.Email)
	}
	return db
}

func (r *ClientRepositoryImpl) ByFilter(ctx context.Context, filter models.ClientFilter, orderBy string, limit, offset int) ([]*models.Client, error) {
	db := r.getDB(ctx)
	query := paginate(r.applyFilter(db.Model(&models.Client{}), filter), orderBy, limit, offset)
	var rows []*models.Client
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return rows, nil
}

func (r *ClientRepositoryImpl) Count(ctx context.Context, filter models.ClientFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.Client{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ClientRepositoryImpl) Exists(ctx context.Context, filter models.ClientFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// ByIDs loads the given clients keyed by id, unknown ids are simply absent
func (r *ClientRepositoryImpl) ByIDs(ctx context.Context, ids []uint) (map[uint]*models.Client, error) {
	out := make(map[uint]*models.Client, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.ByFilter(ctx, models.ClientFilter{IDs: ids}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	for _, c := range rows {
		out[c.ID] = c
	}
	return out, nil
}
