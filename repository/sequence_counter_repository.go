package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/docflow/models"
	"github.com/amirphl/docflow/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceCounterRepositoryImpl allocates numbers from rows of sequence_counters.
// The increment is a single UPDATE so the row lock serializes concurrent callers
// until their transaction ends.
type SequenceCounterRepositoryImpl struct {
	db *gorm.DB
}

func NewSequenceCounterRepository(db *gorm.DB) SequenceCounterRepository {
	return &SequenceCounterRepositoryImpl{db: db}
}

func (r *SequenceCounterRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// Next returns the next value of the named counter, starting at 1.
// Called inside a transaction the allocation commits or rolls back with it.
func (r *SequenceCounterRepositoryImpl) Next(ctx context.Context, name string) (int64, error) {
	var next int64
	err := WithTransaction(ctx, r.db, func(txCtx context.Context) error {
		db := r.getDB(txCtx)

		seed := models.SequenceCounter{Name: name}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return fmt.Errorf("failed to ensure counter %s: %w", name, err)
		}

		res := db.Model(&models.SequenceCounter{}).
			Where("name = ?", name).
			UpdateColumns(map[string]any{
				"last_value": gorm.Expr("last_value + 1"),
				"updated_at": utils.UTCNow(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to increment counter %s: %w", name, res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("counter %s not incremented", name)
		}

		var row models.SequenceCounter
		if err := db.Where("name = ?", name).Take(&row).Error; err != nil {
			return fmt.Errorf("failed to read counter %s: %w", name, err)
		}
		next = row.LastValue
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Current returns the last allocated value, zero for an unknown counter
func (r *SequenceCounterRepositoryImpl) Current(ctx context.Context, name string) (int64, error) {
	var row models.SequenceCounter
	err := r.getDB(ctx).Where("name = ?", name).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.LastValue, nil
}
