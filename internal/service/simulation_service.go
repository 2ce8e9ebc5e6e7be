package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SimulationService answers what-if questions: totals under hypothetical
// price indices and rates. Everything happens in memory on copies; the
// persisted document is never touched.
type SimulationService struct {
	docRepo     *repository.DocumentRepository
	sectionRepo *repository.SectionRepository
	itemRepo    *repository.ItemRepository
	logger      *zap.Logger
}

// NewSimulationService creates a new SimulationService instance
func NewSimulationService(
	docRepo *repository.DocumentRepository,
	sectionRepo *repository.SectionRepository,
	itemRepo *repository.ItemRepository,
	logger *zap.Logger,
) *SimulationService {
	return &SimulationService{
		docRepo:     docRepo,
		sectionRepo: sectionRepo,
		itemRepo:    itemRepo,
		logger:      logger,
	}
}

// Simulate recomputes the document under the given overrides.
//
// Each item is repriced from its base unit price times the effective index
// for its type; a type-specific index compounds with the global one, and a
// missing index means 1.0. Rates default to the document's stored rates. Manual
// imported totals do not survive repricing: the simulation always prices by
// the formula.
func (s *SimulationService) Simulate(ctx context.Context, documentID uuid.UUID, overrides domain.SimulationOverrides) (*domain.SimulationResult, error) {
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

	overheadRate := valueOr(overrides.OverheadRate, doc.OverheadRate)
	profitRate := valueOr(overrides.ProfitRate, doc.ProfitRate)
	vatRate := valueOr(overrides.VATRate, doc.VATRate)

	result := &domain.SimulationResult{
		DocumentID: documentID,
		Overrides:  overrides,
		Persisted: domain.DocumentTotalsDTO{
			Direct:        doc.TotalDirect,
			Overhead:      doc.TotalOverhead,
			Profit:        doc.TotalProfit,
			Amount:        doc.TotalAmount,
			AmountWithVAT: doc.TotalAmountWithVAT,
		},
		Items:    []domain.SimulatedItem{},
		Sections: []domain.SimulatedSection{},
	}

	// work on copies, persisted rows must stay untouched
	simulated := make([]domain.Item, len(items))
	copy(simulated, items)

	var direct, overhead, profit float64
	for i := range simulated {
		it := &simulated[i]
		index := effectiveIndex(it.ItemType, overrides)
		it.UnitPrice = Round2(it.EffectiveBasePrice() * index)
		it.Manual = false
		it.ImportedTotal = nil
		ComputeItem(it, overheadRate, profitRate)

		result.Items = append(result.Items, domain.SimulatedItem{
			ItemID:         it.ID,
			PositionNumber: it.PositionNumber,
			Name:           it.Name,
			ItemType:       it.ItemType,
			UnitPrice:      it.UnitPrice,
			TotalAmount:    it.TotalAmount,
			Delta:          Round2(it.TotalAmount - items[i].TotalAmount),
		})

		if it.NotAccounted {
			continue
		}
		direct += it.DirectCost
		overhead += it.OverheadAmount
		profit += it.ProfitAmount
	}

	result.Totals.Direct = Round2(direct)
	result.Totals.Overhead = Round2(overhead)
	result.Totals.Profit = Round2(profit)
	result.Totals.Amount = Round2(result.Totals.Direct + result.Totals.Overhead + result.Totals.Profit)
	result.Totals.AmountWithVAT = Round2(result.Totals.Amount * (1 + vatRate/100))
	result.Delta = Round2(result.Totals.Amount - doc.TotalAmount)
	result.DeltaWithVAT = Round2(result.Totals.AmountWithVAT - doc.TotalAmountWithVAT)

	result.Sections = simulateSections(sections, simulated)

	s.logger.Debug("Simulation complete",
		zap.String("document_id", documentID.String()),
		zap.Float64("amount", result.Totals.Amount),
		zap.Float64("delta", result.Delta))
	return result, nil
}

// effectiveIndex resolves the repricing index for an item type. The typed
// and global indices multiply; work items follow only the global index.
func effectiveIndex(itemType domain.ItemType, o domain.SimulationOverrides) float64 {
	index := 1.0
	if o.GlobalIndex != nil {
		index = *o.GlobalIndex
	}

	var typed *float64
	switch itemType {
	case domain.ItemTypeMaterial:
		typed = o.MaterialsIndex
	case domain.ItemTypeMachinery:
		typed = o.MachineryIndex
	case domain.ItemTypeLabor:
		typed = o.LaborIndex
	}
	if typed != nil {
		index *= *typed
	}
	return index
}

// simulateSections rolls the simulated item totals up the section tree
func simulateSections(sections []domain.Section, items []domain.Item) []domain.SimulatedSection {
	totals := RollupSections(sections, items)

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

	var build func(sec *domain.Section) domain.SimulatedSection
	build = func(sec *domain.Section) domain.SimulatedSection {
		node := domain.SimulatedSection{
			SectionID:   sec.ID,
			Number:      sec.Number,
			Name:        sec.Name,
			TotalAmount: totals[sec.ID],
			Children:    []domain.SimulatedSection{},
		}
		for _, child := range childrenByParent[sec.ID] {
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	out := make([]domain.SimulatedSection, 0, len(roots))
	for _, root := range roots {
		out = append(out, build(root))
	}
	return out
}

func valueOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}
