package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CalculationService owns the cost formula chain: item amounts, section
// rollups and the cached document totals.
//
// All money values are rounded to 2 decimals at computation time, which
// makes every computation idempotent: recalculating an already calculated
// document changes nothing.
type CalculationService struct {
	docRepo     *repository.DocumentRepository
	sectionRepo *repository.SectionRepository
	itemRepo    *repository.ItemRepository
	logger      *zap.Logger
}

// NewCalculationService creates a new CalculationService instance
func NewCalculationService(
	docRepo *repository.DocumentRepository,
	sectionRepo *repository.SectionRepository,
	itemRepo *repository.ItemRepository,
	logger *zap.Logger,
) *CalculationService {
	return &CalculationService{
		docRepo:     docRepo,
		sectionRepo: sectionRepo,
		itemRepo:    itemRepo,
		logger:      logger,
	}
}

// Round2 rounds a money value to 2 decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeItem fills the derived amounts of one item from the document's
// rates. Manual items take their direct cost from the imported total;
// everything else uses quantity times unit price. Overhead and profit come
// from the document rates unless the item carries manual overrides.
func ComputeItem(item *domain.Item, overheadRate, profitRate float64) {
	if item.Manual && item.ImportedTotal != nil {
		item.DirectCost = Round2(*item.ImportedTotal)
	} else {
		item.DirectCost = Round2(item.Quantity * item.UnitPrice)
	}

	if item.ManualOverhead != nil {
		item.OverheadAmount = Round2(*item.ManualOverhead)
	} else {
		item.OverheadAmount = Round2(item.DirectCost * overheadRate / 100)
	}

	if item.ManualProfit != nil {
		item.ProfitAmount = Round2(*item.ManualProfit)
	} else {
		item.ProfitAmount = Round2(item.DirectCost * profitRate / 100)
	}

	item.TotalAmount = Round2(item.DirectCost + item.OverheadAmount + item.ProfitAmount)
}

// Recalculate recomputes every item, rolls section totals up the tree,
// aggregates the document totals and persists the whole result, clearing
// the dirty flag. Document totals aggregate over items directly, so items
// outside any section are never lost.
func (s *CalculationService) Recalculate(ctx context.Context, documentID uuid.UUID) (*domain.EstimateDocument, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	items, err := s.itemRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	sections, err := s.sectionRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}

	for i := range items {
		ComputeItem(&items[i], doc.OverheadRate, doc.ProfitRate)
	}
	sectionTotals := RollupSections(sections, items)
	ApplyDocumentTotals(doc, items)

	err = s.docRepo.Transaction(ctx, func(tx *gorm.DB) error {
		for i := range items {
			result := tx.Model(&domain.Item{}).Where("id = ?", items[i].ID).Updates(map[string]any{
				"direct_cost":     items[i].DirectCost,
				"overhead_amount": items[i].OverheadAmount,
				"profit_amount":   items[i].ProfitAmount,
				"total_amount":    items[i].TotalAmount,
			})
			if result.Error != nil {
				return fmt.Errorf("failed to update item %s: %w", items[i].ID, result.Error)
			}
		}
		for i := range sections {
			total := sectionTotals[sections[i].ID]
			if err := tx.Model(&domain.Section{}).Where("id = ?", sections[i].ID).
				Update("total_amount", total).Error; err != nil {
				return fmt.Errorf("failed to update section %s: %w", sections[i].ID, err)
			}
		}
		doc.TotalsDirty = false
		if err := tx.Save(doc).Error; err != nil {
			return fmt.Errorf("failed to save document totals: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to persist recalculation",
			zap.String("document_id", documentID.String()), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Document recalculated",
		zap.String("document_id", documentID.String()),
		zap.Int("items", len(items)),
		zap.Float64("total_amount", doc.TotalAmount))
	return doc, nil
}

// RollupSections computes the subtree total of every section: the sum of
// accounted item totals in the section and all of its descendants.
func RollupSections(sections []domain.Section, items []domain.Item) map[uuid.UUID]float64 {
	own := map[uuid.UUID]float64{}
	for i := range items {
		if items[i].SectionID == nil || items[i].NotAccounted {
			continue
		}
		own[*items[i].SectionID] += items[i].TotalAmount
	}

	childrenByParent := map[uuid.UUID][]*domain.Section{}
	var roots []*domain.Section
	for i := range sections {
		sec := &sections[i]
		if sec.ParentID == nil {
			roots = append(roots, sec)
		} else {
			childrenByParent[*sec.ParentID] = append(childrenByParent[*sec.ParentID], sec)
		}
	}

	totals := map[uuid.UUID]float64{}
	var rollup func(sec *domain.Section) float64
	rollup = func(sec *domain.Section) float64 {
		total := own[sec.ID]
		for _, child := range childrenByParent[sec.ID] {
			total += rollup(child)
		}
		total = Round2(total)
		totals[sec.ID] = total
		sec.TotalAmount = total
		return total
	}
	for _, root := range roots {
		rollup(root)
	}
	return totals
}

// ApplyDocumentTotals aggregates the document totals as a flat sum over
// accounted items, independent of the section tree.
func ApplyDocumentTotals(doc *domain.EstimateDocument, items []domain.Item) {
	var direct, overhead, profit float64
	for i := range items {
		if items[i].NotAccounted {
			continue
		}
		direct += items[i].DirectCost
		overhead += items[i].OverheadAmount
		profit += items[i].ProfitAmount
	}
	doc.TotalDirect = Round2(direct)
	doc.TotalOverhead = Round2(overhead)
	doc.TotalProfit = Round2(profit)
	doc.TotalAmount = Round2(doc.TotalDirect + doc.TotalOverhead + doc.TotalProfit)
	doc.TotalAmountWithVAT = Round2(doc.TotalAmount * (1 + doc.VATRate/100))
}
