package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/docflow/models"
	"gorm.io/gorm"
)

// DocumentRepositoryImpl implements DocumentRepository
type DocumentRepositoryImpl struct {
	*BaseRepository[models.Document, models.DocumentFilter]
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &DocumentRepositoryImpl{BaseRepository: NewBaseRepository[models.Document, models.DocumentFilter](db)}
}

// ByIDWithLines loads a document with its client and its lines in position order
func (r *DocumentRepositoryImpl) ByIDWithLines(ctx context.Context, id uint) (*models.Document, error) {
	db := r.getDB(ctx)
	var doc models.Document
	err := db.
		Preload("Lines", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC, id ASC") }).
		Preload("Client").
		Where("id = ?", id).
		Take(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find document %d: %w", id, err)
	}
	return &doc, nil
}

func (r *DocumentRepositoryImpl) applyFilter(db *gorm.DB, f models.DocumentFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.Number != nil {
		db = db.Where("number = ?", *f.Number)
	}
	if f.ClientID != nil {
		db = db.Where("client_id = ?", *f.ClientID)
	}
	if f.Type != nil {
		db = db.Where("type = ?", *f.Type)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if len(f.Statuses) > 0 {
		db = db.Where("status IN ?", f.Statuses)
	}
	if f.DueBefore != nil {
		db = db.Where("due_date IS NOT NULL AND due_date < ?", *f.DueBefore)
	}
	if f.DateFrom != nil {
		db = db.Where("date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		db = db.Where("date < ?", *f.DateTo)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *DocumentRepositoryImpl) ByFilter(ctx context.Context, filter models.DocumentFilter, orderBy string, limit, offset int) ([]*models.Document, error) {
	db := r.getDB(ctx)
	query := paginate(r.applyFilter(db.Model(&models.Document{}), filter), orderBy, limit, offset)
	var rows []*models.Document
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return rows, nil
}

func (r *DocumentRepositoryImpl) Count(ctx context.Context, filter models.DocumentFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.Document{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

func (r *DocumentRepositoryImpl) Exists(ctx context.Context, filter models.DocumentFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *DocumentRepositoryImpl) UpdateContent(ctx context.Context, doc *models.Document, expected models.DocumentStatus) (bool, error) {
	db := r.getDB(ctx)
	updates := map[string]any{
		"project_id":          doc.ProjectID,
		"date":                doc.Date,
		"due_date":            doc.DueDate,
		"validity_date":       doc.ValidityDate,
		"subject":             doc.Subject,
		"introduction":        doc.Introduction,
		"conclusion":          doc.Conclusion,
		"notes":               doc.Notes,
		"total_ht":            doc.TotalHT,
		"total_tva":           doc.TotalTVA,
		"total_ttc":           doc.TotalTTC,
		"is_acompte_required": doc.IsAcompteRequired,
		"acompte_percentage":  doc.AcomptePercentage,
		"acompte_amount":      doc.AcompteAmount,
		"payment_terms":       doc.PaymentTerms,
		"payment_method":      doc.PaymentMethod,
		"updated_at":          doc.UpdatedAt,
	}
	res := db.Model(&models.Document{}).
		Where("id = ? AND status = ?", doc.ID, expected).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update document %d: %w", doc.ID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *DocumentRepositoryImpl) UpdateStatus(ctx context.Context, id uint, from, to models.DocumentStatus, at time.Time) (bool, error) {
	db := r.getDB(ctx)
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if to == models.DocumentStatusPaid {
		updates["paid_at"] = at
	}
	res := db.Model(&models.Document{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update document %d status: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ReplaceLines deletes the current lines of a document and inserts the given ones in order
func (r *DocumentRepositoryImpl) ReplaceLines(ctx context.Context, documentID uint, lines []*models.DocumentLine) error {
	db := r.getDB(ctx)
	if err := db.Where("document_id = ?", documentID).Delete(&models.DocumentLine{}).Error; err != nil {
		return fmt.Errorf("failed to delete lines of document %d: %w", documentID, err)
	}
	if len(lines) == 0 {
		return nil
	}
	for i, l := range lines {
		l.ID = 0
		l.DocumentID = documentID
		l.Position = i + 1
	}
	if err := db.CreateInBatches(lines, 100).Error; err != nil {
		return fmt.Errorf("failed to insert lines of document %d: %w", documentID, err)
	}
	return nil
}
