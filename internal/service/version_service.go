package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/auth"
	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/mapper"
	"github.com/smetaworks/estimate-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VersionService creates and reads immutable version snapshots. Version
// numbers are dense per document: the first snapshot is 1 and each new one
// is the current maximum plus one.
type VersionService struct {
	docRepo      *repository.DocumentRepository
	sectionRepo  *repository.SectionRepository
	itemRepo     *repository.ItemRepository
	snapshotRepo *repository.SnapshotRepository
	calc         *CalculationService
	logger       *zap.Logger
}

// NewVersionService creates a new VersionService instance
func NewVersionService(
	docRepo *repository.DocumentRepository,
	sectionRepo *repository.SectionRepository,
	itemRepo *repository.ItemRepository,
	snapshotRepo *repository.SnapshotRepository,
	calc *CalculationService,
	logger *zap.Logger,
) *VersionService {
	return &VersionService{
		docRepo:      docRepo,
		sectionRepo:  sectionRepo,
		itemRepo:     itemRepo,
		snapshotRepo: snapshotRepo,
		calc:         calc,
		logger:       logger,
	}
}

// Create captures the current document tree and totals as a new snapshot.
// The document is recalculated first so a snapshot never stores stale
// cached totals.
func (s *VersionService) Create(ctx context.Context, documentID uuid.UUID, req domain.CreateSnapshotRequest) (*domain.SnapshotDTO, error) {
	doc, err := s.calc.Recalculate(ctx, documentID)
	if err != nil {
		return nil, err
	}

	sections, err := s.sectionRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	items, err := s.itemRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	tree := mapper.ToSnapshotTree(sections, items)
	treeJSON, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot tree: %w", err)
	}

	maxVersion, err := s.snapshotRepo.MaxVersion(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get max version: %w", err)
	}

	snapshot := &domain.VersionSnapshot{
		DocumentID:         documentID,
		VersionNumber:      maxVersion + 1,
		Label:              req.Label,
		Comment:            req.Comment,
		Tree:               treeJSON,
		TotalDirect:        doc.TotalDirect,
		TotalOverhead:      doc.TotalOverhead,
		TotalProfit:        doc.TotalProfit,
		TotalAmount:        doc.TotalAmount,
		TotalAmountWithVAT: doc.TotalAmountWithVAT,
	}
	if user, ok := auth.UserFromContext(ctx); ok {
		snapshot.CreatedByID = user.ID
		snapshot.CreatedByName = user.Name
	}

	if err := s.snapshotRepo.Create(ctx, snapshot); err != nil {
		s.logger.Error("Failed to create snapshot",
			zap.String("document_id", documentID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}

	doc.VersionCount = snapshot.VersionNumber
	if err := s.docRepo.Update(ctx, doc); err != nil {
		s.logger.Warn("Failed to update version count", zap.Error(err))
	}

	s.logger.Info("Snapshot created",
		zap.String("document_id", documentID.String()),
		zap.Int("version", snapshot.VersionNumber))
	dto := mapper.ToSnapshotDTO(snapshot)
	return &dto, nil
}

// List returns the snapshot history of a document, newest first
func (s *VersionService) List(ctx context.Context, documentID uuid.UUID) ([]domain.SnapshotDTO, error) {
	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	snapshots, err := s.snapshotRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	dtos := make([]domain.SnapshotDTO, 0, len(snapshots))
	for i := range snapshots {
		dtos = append(dtos, mapper.ToSnapshotDTO(&snapshots[i]))
	}
	return dtos, nil
}

// Get returns one snapshot with its deserialized tree
func (s *VersionService) Get(ctx context.Context, documentID uuid.UUID, version int) (*domain.SnapshotDTO, *domain.SnapshotTree, error) {
	snapshot, err := s.getSnapshot(ctx, documentID, version)
	if err != nil {
		return nil, nil, err
	}

	var tree domain.SnapshotTree
	if err := json.Unmarshal(snapshot.Tree, &tree); err != nil {
		return nil, nil, fmt.Errorf("failed to deserialize snapshot tree: %w", err)
	}

	dto := mapper.ToSnapshotDTO(snapshot)
	return &dto, &tree, nil
}

func (s *VersionService) getSnapshot(ctx context.Context, documentID uuid.UUID, version int) (*domain.VersionSnapshot, error) {
	snapshot, err := s.snapshotRepo.GetByVersion(ctx, documentID, version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return snapshot, nil
}
