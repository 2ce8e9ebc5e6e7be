package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/domain"
	"gorm.io/gorm"
)

// SnapshotRepository handles database operations for version snapshots.
// The store is append-only: snapshots are created and read, never updated
// or deleted.
type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new SnapshotRepository instance
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create inserts a new snapshot. The unique index on (document_id,
// version_number) rejects concurrent writers racing for the same version.
func (r *SnapshotRepository) Create(ctx context.Context, snapshot *domain.VersionSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// GetByVersion retrieves one snapshot of a document by version number
func (r *SnapshotRepository) GetByVersion(ctx context.Context, documentID uuid.UUID, version int) (*domain.VersionSnapshot, error) {
	var snapshot domain.VersionSnapshot
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND version_number = ?", documentID, version).
		First(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ListByDocument returns all snapshots of a document, newest first,
// without the serialized trees.
func (r *SnapshotRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.VersionSnapshot, error) {
	var snapshots []domain.VersionSnapshot
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Omit("tree").
		Order("version_number DESC").
		Find(&snapshots).Error
	return snapshots, err
}

// MaxVersion returns the highest version number assigned for a document,
// 0 when no snapshot exists yet.
func (r *SnapshotRepository) MaxVersion(ctx context.Context, documentID uuid.UUID) (int, error) {
	var maxVersion *int
	err := r.db.WithContext(ctx).
		Model(&domain.VersionSnapshot{}).
		Where("document_id = ?", documentID).
		Select("MAX(version_number)").
		Scan(&maxVersion).Error
	if err != nil {
		return 0, err
	}
	if maxVersion == nil {
		return 0, nil
	}
	return *maxVersion, nil
}
