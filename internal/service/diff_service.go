package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DiffService compares two snapshots of the same document. The diff is
// always derived on demand from the stored trees; nothing about it is
// persisted.
type DiffService struct {
	snapshotRepo *repository.SnapshotRepository
	logger       *zap.Logger
}

// NewDiffService creates a new DiffService instance
func NewDiffService(snapshotRepo *repository.SnapshotRepository, logger *zap.Logger) *DiffService {
	return &DiffService{snapshotRepo: snapshotRepo, logger: logger}
}

// Compare diffs two versions of one document. Items are matched by their
// preserved item identity, and changed items report per-field before/after
// values with deltas for the numeric fields. Comparing a version against
// itself yields an empty diff.
func (s *DiffService) Compare(ctx context.Context, documentID uuid.UUID, fromVersion, toVersion int) (*domain.DiffResult, error) {
	from, err := s.loadTree(ctx, documentID, fromVersion)
	if err != nil {
		return nil, err
	}
	to, err := s.loadTree(ctx, documentID, toVersion)
	if err != nil {
		return nil, err
	}

	fromItems := flattenTree(from.tree)
	toItems := flattenTree(to.tree)

	result := &domain.DiffResult{
		DocumentID:  documentID,
		FromVersion: fromVersion,
		ToVersion:   toVersion,
		Added:       []domain.SnapshotItem{},
		Removed:     []domain.SnapshotItem{},
		Changed:     []domain.ItemDiff{},
	}

	fromByID := map[uuid.UUID]domain.SnapshotItem{}
	for _, it := range fromItems {
		fromByID[it.ItemID] = it
	}
	toByID := map[uuid.UUID]domain.SnapshotItem{}
	for _, it := range toItems {
		toByID[it.ItemID] = it
	}

	for _, it := range toItems {
		before, ok := fromByID[it.ItemID]
		if !ok {
			result.Added = append(result.Added, it)
			continue
		}
		changes := diffItem(before, it)
		if len(changes) == 0 {
			result.UnchangedCount++
			continue
		}
		result.Changed = append(result.Changed, domain.ItemDiff{
			ItemID:         it.ItemID,
			PositionNumber: it.PositionNumber,
			Name:           it.Name,
			Changes:        changes,
		})
	}
	for _, it := range fromItems {
		if _, ok := toByID[it.ItemID]; !ok {
			result.Removed = append(result.Removed, it)
		}
	}

	result.AddedCount = len(result.Added)
	result.RemovedCount = len(result.Removed)
	result.ChangedCount = len(result.Changed)

	result.TotalDelta = Round2(to.snapshot.TotalAmount - from.snapshot.TotalAmount)
	if from.snapshot.TotalAmount != 0 {
		pct := Round2(result.TotalDelta / from.snapshot.TotalAmount * 100)
		result.TotalDeltaPercent = &pct
	}

	s.logger.Debug("Snapshot diff computed",
		zap.String("document_id", documentID.String()),
		zap.Int("from", fromVersion),
		zap.Int("to", toVersion),
		zap.Int("added", result.AddedCount),
		zap.Int("removed", result.RemovedCount),
		zap.Int("changed", result.ChangedCount))
	return result, nil
}

type loadedSnapshot struct {
	snapshot *domain.VersionSnapshot
	tree     *domain.SnapshotTree
}

func (s *DiffService) loadTree(ctx context.Context, documentID uuid.UUID, version int) (*loadedSnapshot, error) {
	snapshot, err := s.snapshotRepo.GetByVersion(ctx, documentID, version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot v%d: %w", version, err)
	}
	if snapshot.DocumentID != documentID {
		return nil, ErrDifferentDocuments
	}

	var tree domain.SnapshotTree
	if err := json.Unmarshal(snapshot.Tree, &tree); err != nil {
		return nil, fmt.Errorf("failed to deserialize snapshot tree: %w", err)
	}
	return &loadedSnapshot{snapshot: snapshot, tree: &tree}, nil
}

// flattenTree collects every item of a snapshot tree in depth-first order
func flattenTree(tree *domain.SnapshotTree) []domain.SnapshotItem {
	var out []domain.SnapshotItem
	var walk func(sections []domain.SnapshotSection)
	walk = func(sections []domain.SnapshotSection) {
		for _, sec := range sections {
			out = append(out, sec.Items...)
			walk(sec.Children)
		}
	}
	walk(tree.Sections)
	out = append(out, tree.Unassigned...)
	return out
}

// diffItem compares the watched fields of one item across two snapshots
func diffItem(before, after domain.SnapshotItem) []domain.FieldChange {
	var changes []domain.FieldChange

	if before.Name != after.Name {
		changes = append(changes, domain.FieldChange{Field: "name", Before: before.Name, After: after.Name})
	}
	if before.Unit != after.Unit {
		changes = append(changes, domain.FieldChange{Field: "unit", Before: before.Unit, After: after.Unit})
	}
	changes = appendNumericChange(changes, "quantity", before.Quantity, after.Quantity)
	changes = appendNumericChange(changes, "unitPrice", before.UnitPrice, after.UnitPrice)
	changes = appendPtrChange(changes, "baseUnitPrice", before.BaseUnitPrice, after.BaseUnitPrice)
	changes = appendPtrChange(changes, "priceIndex", before.PriceIndex, after.PriceIndex)
	changes = appendNumericChange(changes, "totalAmount", before.TotalAmount, after.TotalAmount)

	return changes
}

func appendNumericChange(changes []domain.FieldChange, field string, before, after float64) []domain.FieldChange {
	if before == after {
		return changes
	}
	delta := Round2(after - before)
	change := domain.FieldChange{Field: field, Before: before, After: after, Delta: &delta}
	if before != 0 {
		pct := Round2(delta / before * 100)
		change.DeltaPercent = &pct
	}
	return append(changes, change)
}

func appendPtrChange(changes []domain.FieldChange, field string, before, after *float64) []domain.FieldChange {
	switch {
	case before == nil && after == nil:
		return changes
	case before != nil && after != nil:
		return appendNumericChange(changes, field, *before, *after)
	default:
		return append(changes, domain.FieldChange{Field: field, Before: deref(before), After: deref(after)})
	}
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
