package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/domain"
	"gorm.io/gorm"
)

// ItemRepository handles database operations for estimate line items
type ItemRepository struct {
	db *gorm.DB
}

// NewItemRepository creates a new ItemRepository instance
func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new item into the database
func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// GetByID retrieves an item by its ID
func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	var item domain.Item
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Update saves changes to an existing item
func (r *ItemRepository) Update(ctx context.Context, item *domain.Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// Delete removes an item from the database
func (r *ItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Item{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByDocument returns all items of a document in display order
func (r *ItemRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.Item, error) {
	var items []domain.Item
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("sort_order ASC, created_at ASC").
		Find(&items).Error
	return items, err
}

// ListBySection returns the items of one section (or the unassigned items
// when sectionID is nil) in display order.
func (r *ItemRepository) ListBySection(ctx context.Context, documentID uuid.UUID, sectionID *uuid.UUID) ([]domain.Item, error) {
	query := r.db.WithContext(ctx).Where("document_id = ?", documentID)
	if sectionID == nil {
		query = query.Where("section_id IS NULL")
	} else {
		query = query.Where("section_id = ?", *sectionID)
	}

	var items []domain.Item
	err := query.Order("sort_order ASC, created_at ASC").Find(&items).Error
	return items, err
}

// GetMaxSortOrder returns the highest sort_order among sibling items
func (r *ItemRepository) GetMaxSortOrder(ctx context.Context, documentID uuid.UUID, sectionID *uuid.UUID) (int, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("document_id = ?", documentID)
	if sectionID == nil {
		query = query.Where("section_id IS NULL")
	} else {
		query = query.Where("section_id = ?", *sectionID)
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

// UpdateSortOrders applies a new sibling order in a single transaction
func (r *ItemRepository) UpdateSortOrders(ctx context.Context, orderedIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			result := tx.Model(&domain.Item{}).
				Where("id = ?", id).
				Update("sort_order", i)
			if result.Error != nil {
				return fmt.Errorf("failed to update sort order for item %s: %w", id, result.Error)
			}
		}
		return nil
	})
}

// UpdatePositionNumber writes only the assigned position number of one item
func (r *ItemRepository) UpdatePositionNumber(ctx context.Context, id uuid.UUID, number string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("id = ?", id).
		Update("position_number", number).Error
}

// CountByDocument returns the item count of a document
func (r *ItemRepository) CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	return int(count), err
}

// DeleteByDocument removes every item of a document
func (r *ItemRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&domain.Item{}).Error
}
