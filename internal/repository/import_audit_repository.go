package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/domain"
	"gorm.io/gorm"
)

// ImportAuditRepository handles database operations for import audit records
type ImportAuditRepository struct {
	db *gorm.DB
}

// NewImportAuditRepository creates a new ImportAuditRepository instance
func NewImportAuditRepository(db *gorm.DB) *ImportAuditRepository {
	return &ImportAuditRepository{db: db}
}

// Create inserts a new import audit record
func (r *ImportAuditRepository) Create(ctx context.Context, audit *domain.ImportAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

// ListByDocument returns the audit trail of a document, newest first
func (r *ImportAuditRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.ImportAudit, error) {
	var audits []domain.ImportAudit
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		Find(&audits).Error
	return audits, err
}
