package repository

import (
	"context"

	"github.com/amirphl/docflow/models"
	"gorm.io/gorm"
)

// TaskRepositoryImpl implements TaskRepository
type TaskRepositoryImpl struct {
	*BaseRepository[models.Task, models.TaskFilter]
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &TaskRepositoryImpl{BaseRepository: NewBaseRepository[models.Task, models.TaskFilter](db)}
}

func (r *TaskRepositoryImpl) applyFilter(db *gorm.DB, f models.TaskFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if len(f.ExcludeStatuses) > 0 {
		db = db.Where("status NOT IN ?", f.ExcludeStatuses)
	}
	if f.DueBefore != nil {
		db = db.Where("due_date IS NOT NULL AND due_date < ?", *f.DueBefore)
	}
	return db
}

func (r *TaskRepositoryImpl) ByFilter(ctx context.Context, filter models.TaskFilter, orderBy string, limit, offset int) ([]*models.Task, error) {
	db := r.getDB(ctx)
	query := paginate(r.applyFilter(db.Model(&models.Task{}), filter), orderBy, limit, offset)
	var rows []*models.Task
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *TaskRepositoryImpl) Count(ctx context.Context, filter models.TaskFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.Task{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *TaskRepositoryImpl) Exists(ctx context.Context, filter models.TaskFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
