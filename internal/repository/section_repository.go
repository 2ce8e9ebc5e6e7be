package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/domain"
	"gorm.io/gorm"
)

// SectionRepository handles database operations for estimate sections
type SectionRepository struct {
	db *gorm.DB
}

// NewSectionRepository creates a new SectionRepository instance
func NewSectionRepository(db *gorm.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// Create inserts a new section into the database
func (r *SectionRepository) Create(ctx context.Context, section *domain.Section) error {
	return r.db.WithContext(ctx).Create(section).Error
}

// GetByID retrieves a section by its ID
func (r *SectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Section, error) {
	var section domain.Section
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&section).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

// Update saves changes to an existing section
func (r *SectionRepository) Update(ctx context.Context, section *domain.Section) error {
	return r.db.WithContext(ctx).Save(section).Error
}

// Delete removes a section from the database
func (r *SectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Section{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByDocument returns all sections of a document ordered for tree assembly
func (r *SectionRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.Section, error) {
	var sections []domain.Section
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("sort_order ASC, created_at ASC").
		Find(&sections).Error
	return sections, err
}

// ListChildren returns the direct children of a parent section (or the
// top-level sections when parentID is nil).
func (r *SectionRepository) ListChildren(ctx context.Context, documentID uuid.UUID, parentID *uuid.UUID) ([]domain.Section, error) {
	query := r.db.WithContext(ctx).Where("document_id = ?", documentID)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}

	var sections []domain.Section
	err := query.Order("sort_order ASC, created_at ASC").Find(&sections).Error
	return sections, err
}

// GetMaxSortOrder returns the highest sort_order among siblings
func (r *SectionRepository) GetMaxSortOrder(ctx context.Context, documentID uuid.UUID, parentID *uuid.UUID) (int, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.Section{}).
		Where("document_id = ?", documentID)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}

	var maxOrder *int
	if err := query.Select("MAX(sort_order)").Scan(&maxOrder).Error; err != nil {
		return 0, err
	}
	if maxOrder == nil {
		return 0, nil
	}
	return *maxOrder, nil
}

// UpdateNumber writes only the hierarchical number of one section
func (r *SectionRepository) UpdateNumber(ctx context.Context, id uuid.UUID, number string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Section{}).
		Where("id = ?", id).
		Update("number", number).Error
}

// UpdateTotal writes only the cached rollup total of one section
func (r *SectionRepository) UpdateTotal(ctx context.Context, id uuid.UUID, total float64) error {
	return r.db.WithContext(ctx).
		Model(&domain.Section{}).
		Where("id = ?", id).
		Update("total_amount", total).Error
}

// DeleteByDocument removes every section of a document
func (r *SectionRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&domain.Section{}).Error
}
