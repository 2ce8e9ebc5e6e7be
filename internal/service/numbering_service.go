package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/repository"
	"go.uber.org/zap"
)

// NumberingService assigns hierarchical section numbers and item position
// numbers. It runs after every structural mutation (create, move, reorder,
// delete, import) so numbers are always contiguous in display order.
type NumberingService struct {
	sectionRepo *repository.SectionRepository
	itemRepo    *repository.ItemRepository
	logger      *zap.Logger
}

// NewNumberingService creates a new NumberingService instance
func NewNumberingService(
	sectionRepo *repository.SectionRepository,
	itemRepo *repository.ItemRepository,
	logger *zap.Logger,
) *NumberingService {
	return &NumberingService{
		sectionRepo: sectionRepo,
		itemRepo:    itemRepo,
		logger:      logger,
	}
}

// RenumberDocument recomputes every section number and item position number
// of a document under its numbering policy and persists the changes.
func (s *NumberingService) RenumberDocument(ctx context.Context, documentID uuid.UUID, policy domain.NumberingPolicy) error {
	if !policy.IsValid() {
		return ErrInvalidPolicy
	}

	sections, err := s.sectionRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to list sections: %w", err)
	}
	items, err := s.itemRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	sectionNumbers, itemNumbers := AssignNumbers(sections, items, policy)

	for id, number := range sectionNumbers {
		if err := s.sectionRepo.UpdateNumber(ctx, id, number); err != nil {
			return fmt.Errorf("failed to update section number: %w", err)
		}
	}
	for id, number := range itemNumbers {
		if err := s.itemRepo.UpdatePositionNumber(ctx, id, number); err != nil {
			return fmt.Errorf("failed to update item position number: %w", err)
		}
	}

	s.logger.Debug("Document renumbered",
		zap.String("document_id", documentID.String()),
		zap.String("policy", string(policy)),
		zap.Int("sections", len(sectionNumbers)),
		zap.Int("items", len(itemNumbers)))
	return nil
}

// AssignNumbers computes section and item numbers in memory.
//
// Sections always get dotted hierarchical numbers from their position in
// the tree ("2", "2.1", "2.1.3"). Items are numbered per policy:
//
//	global        one counter across the whole document in tree order
//	per_section   counter restarts at 1 inside every section
//	hierarchical  per-section counter prefixed with the section number
//
// Items outside any section come last: under global numbering they continue
// the document counter, otherwise they get a plain counter of their own.
func AssignNumbers(sections []domain.Section, items []domain.Item, policy domain.NumberingPolicy) (map[uuid.UUID]string, map[uuid.UUID]string) {
	sectionNumbers := map[uuid.UUID]string{}
	itemNumbers := map[uuid.UUID]string{}

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
	sortSections(roots)
	for _, children := range childrenByParent {
		sortSections(children)
	}

	itemsBySection := map[uuid.UUID][]*domain.Item{}
	var unassigned []*domain.Item
	for i := range items {
		it := &items[i]
		if it.SectionID == nil {
			unassigned = append(unassigned, it)
		} else {
			itemsBySection[*it.SectionID] = append(itemsBySection[*it.SectionID], it)
		}
	}

	globalCounter := 0
	var walk func(sec *domain.Section, prefix string, index int)
	walk = func(sec *domain.Section, prefix string, index int) {
		number := strconv.Itoa(index)
		if prefix != "" {
			number = prefix + "." + number
		}
		sectionNumbers[sec.ID] = number
		sec.Number = number

		sectionCounter := 0
		for _, it := range itemsBySection[sec.ID] {
			switch policy {
			case domain.NumberingGlobal:
				globalCounter++
				itemNumbers[it.ID] = strconv.Itoa(globalCounter)
			case domain.NumberingPerSection:
				sectionCounter++
				itemNumbers[it.ID] = strconv.Itoa(sectionCounter)
			case domain.NumberingHierarchical:
				sectionCounter++
				itemNumbers[it.ID] = number + "." + strconv.Itoa(sectionCounter)
			}
			it.PositionNumber = itemNumbers[it.ID]
		}

		for i, child := range childrenByParent[sec.ID] {
			walk(child, number, i+1)
		}
	}
	for i, root := range roots {
		walk(root, "", i+1)
	}

	unassignedCounter := 0
	for _, it := range unassigned {
		if policy == domain.NumberingGlobal {
			globalCounter++
			itemNumbers[it.ID] = strconv.Itoa(globalCounter)
		} else {
			unassignedCounter++
			itemNumbers[it.ID] = strconv.Itoa(unassignedCounter)
		}
		it.PositionNumber = itemNumbers[it.ID]
	}

	return sectionNumbers, itemNumbers
}

func sortSections(sections []*domain.Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].SortOrder != sections[j].SortOrder {
			return sections[i].SortOrder < sections[j].SortOrder
		}
		return sections[i].CreatedAt.Before(sections[j].CreatedAt)
	})
}
