package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/domain"
	"gorm.io/gorm"
)

// DocumentRepository handles database operations for estimate documents
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new DocumentRepository instance
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new estimate document into the database
func (r *DocumentRepository) Create(ctx context.Context, doc *domain.EstimateDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// GetByID retrieves a document by its ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.EstimateDocument, error) {
	var doc domain.EstimateDocument
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Update saves changes to an existing document
func (r *DocumentRepository) Update(ctx context.Context, doc *domain.EstimateDocument) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

// Delete removes a document; sections and items cascade
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.EstimateDocument{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns a page of documents with optional status and search filters
func (r *DocumentRepository) List(ctx context.Context, status domain.DocumentStatus, search string, page, pageSize int) ([]domain.EstimateDocument, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.EstimateDocument{})

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(number) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var docs []domain.EstimateDocument
	err := query.
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&docs).Error
	return docs, total, err
}

// SetTotalsDirty flips only the dirty flag without touching other columns
func (r *DocumentRepository) SetTotalsDirty(ctx context.Context, id uuid.UUID, dirty bool) error {
	return r.db.WithContext(ctx).
		Model(&domain.EstimateDocument{}).
		Where("id = ?", id).
		Update("totals_dirty", dirty).Error
}

// ListDirtyApproved returns approved documents whose cached totals are stale.
// Used by the background recalculation sweep.
func (r *DocumentRepository) ListDirtyApproved(ctx context.Context, limit int) ([]domain.EstimateDocument, error) {
	var docs []domain.EstimateDocument
	err := r.db.WithContext(ctx).
		Where("status = ? AND totals_dirty = ?", domain.DocumentStatusApproved, true).
		Order("updated_at ASC").
		Limit(limit).
		Find(&docs).Error
	return docs, err
}

// Transaction runs fn inside a database transaction, handing it a
// transaction-scoped set of repositories.
func (r *DocumentRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
