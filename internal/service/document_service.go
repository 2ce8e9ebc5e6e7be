package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/mapper"
	"github.com/smetaworks/estimate-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DocumentService handles business logic for estimate documents, their
// section trees and line items. Every structural mutation renumbers the
// document and recalculates its totals before returning.
type DocumentService struct {
	docRepo     *repository.DocumentRepository
	sectionRepo *repository.SectionRepository
	itemRepo    *repository.ItemRepository
	calc        *CalculationService
	numbering   *NumberingService
	logger      *zap.Logger
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(
	docRepo *repository.DocumentRepository,
	sectionRepo *repository.SectionRepository,
	itemRepo *repository.ItemRepository,
	calc *CalculationService,
	numbering *NumberingService,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		docRepo:     docRepo,
		sectionRepo: sectionRepo,
		itemRepo:    itemRepo,
		calc:        calc,
		numbering:   numbering,
		logger:      logger,
	}
}

// Create creates a new draft estimate document
func (s *DocumentService) Create(ctx context.Context, req domain.CreateDocumentRequest) (*domain.DocumentDTO, error) {
	policy := req.NumberingPolicy
	if policy == "" {
		policy = domain.NumberingPerSection
	}
	if !policy.IsValid() {
		return nil, ErrInvalidPolicy
	}

	doc := &domain.EstimateDocument{
		Name:            req.Name,
		Number:          req.Number,
		Status:          domain.DocumentStatusDraft,
		NumberingPolicy: policy,
		OverheadRate:    req.OverheadRate,
		ProfitRate:      req.ProfitRate,
		VATRate:         req.VATRate,
		TotalsDirty:     false,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		s.logger.Error("Failed to create document", zap.Error(err))
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	s.logger.Info("Document created",
		zap.String("document_id", doc.ID.String()),
		zap.String("name", doc.Name))
	dto := mapper.ToDocumentDTO(doc)
	return &dto, nil
}

// GetByID retrieves a document header by ID
func (s *DocumentService) GetByID(ctx context.Context, id uuid.UUID) (*domain.DocumentDTO, error) {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToDocumentDTO(doc)
	return &dto, nil
}

// GetTree retrieves a document with its full section/item tree
func (s *DocumentService) GetTree(ctx context.Context, id uuid.UUID) (*domain.DocumentTreeDTO, error) {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	sections, err := s.sectionRepo.ListByDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	items, err := s.itemRepo.ListByDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	sectionDTOs, unassigned := mapper.BuildSectionTree(sections, items)
	return &domain.DocumentTreeDTO{
		Document:   mapper.ToDocumentDTO(doc),
		Sections:   sectionDTOs,
		Unassigned: unassigned,
	}, nil
}

// List returns a page of documents
func (s *DocumentService) List(ctx context.Context, status domain.DocumentStatus, search string, page, pageSize int) (*domain.PaginatedResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	docs, total, err := s.docRepo.List(ctx, status, search, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list documents", zap.Error(err))
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	dtos := make([]domain.DocumentDTO, 0, len(docs))
	for i := range docs {
		dtos = append(dtos, mapper.ToDocumentDTO(&docs[i]))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Update changes the name and number of a document
func (s *DocumentService) Update(ctx context.Context, id uuid.UUID, req domain.UpdateDocumentRequest) (*domain.DocumentDTO, error) {
	doc, err := s.getMutableDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	doc.Name = req.Name
	doc.Number = req.Number
	if err := s.docRepo.Update(ctx, doc); err != nil {
		s.logger.Error("Failed to update document", zap.Error(err))
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	dto := mapper.ToDocumentDTO(doc)
	return &dto, nil
}

// UpdateRates changes the percentage rates. A rate change invalidates every
// derived amount, so a full recalculation runs immediately.
func (s *DocumentService) UpdateRates(ctx context.Context, id uuid.UUID, req domain.UpdateRatesRequest) (*domain.DocumentDTO, error) {
	doc, err := s.getMutableDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	doc.OverheadRate = req.OverheadRate
	doc.ProfitRate = req.ProfitRate
	doc.VATRate = req.VATRate
	doc.TotalsDirty = true
	if err := s.docRepo.Update(ctx, doc); err != nil {
		s.logger.Error("Failed to update rates", zap.Error(err))
		return nil, fmt.Errorf("failed to update rates: %w", err)
	}

	doc, err = s.calc.Recalculate(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToDocumentDTO(doc)
	return &dto, nil
}

// ChangeNumberingPolicy switches the numbering policy and renumbers the
// whole document under the new policy.
func (s *DocumentService) ChangeNumberingPolicy(ctx context.Context, id uuid.UUID, policy domain.NumberingPolicy) (*domain.DocumentDTO, error) {
	if !policy.IsValid() {
		return nil, ErrInvalidPolicy
	}
	doc, err := s.getMutableDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	doc.NumberingPolicy = policy
	if err := s.docRepo.Update(ctx, doc); err != nil {
		s.logger.Error("Failed to change numbering policy", zap.Error(err))
		return nil, fmt.Errorf("failed to change numbering policy: %w", err)
	}
	if err := s.numbering.RenumberDocument(ctx, id, policy); err != nil {
		return nil, err
	}

	dto := mapper.ToDocumentDTO(doc)
	return &dto, nil
}

// Approve moves a draft document to the approved, read-only state. Totals
// are recalculated first so the approved document is never stale.
func (s *DocumentService) Approve(ctx context.Context, id uuid.UUID) (*domain.DocumentDTO, error) {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.IsApproved() {
		return nil, ErrConflict
	}

	doc, err = s.calc.Recalculate(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Status = domain.DocumentStatusApproved
	if err := s.docRepo.Update(ctx, doc); err != nil {
		s.logger.Error("Failed to approve document", zap.Error(err))
		return nil, fmt.Errorf("failed to approve document: %w", err)
	}

	s.logger.Info("Document approved", zap.String("document_id", id.String()))
	dto := mapper.ToDocumentDTO(doc)
	return &dto, nil
}

// Recalculate recomputes every derived amount of the document on demand.
// Recalculation is idempotent and allowed on approved documents.
func (s *DocumentService) Recalculate(ctx context.Context, id uuid.UUID) (*domain.DocumentDTO, error) {
	doc, err := s.calc.Recalculate(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToDocumentDTO(doc)
	return &dto, nil
}

// Delete removes a document with its sections, items and snapshots
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.docRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		s.logger.Error("Failed to delete document", zap.Error(err))
		return fmt.Errorf("failed to delete document: %w", err)
	}
	s.logger.Info("Document deleted", zap.String("document_id", id.String()))
	return nil
}

// ============================================================
// Sections
// ============================================================

// CreateSection adds a section under an optional parent and renumbers
func (s *DocumentService) CreateSection(ctx context.Context, documentID uuid.UUID, req domain.CreateSectionRequest) (*domain.SectionDTO, error) {
	doc, err := s.getMutableDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		parent, err := s.sectionRepo.GetByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrSectionNotFound
			}
			return nil, fmt.Errorf("failed to get parent section: %w", err)
		}
		if parent.DocumentID != documentID {
			return nil, ErrSectionWrongDocument
		}
	}

	maxOrder, err := s.sectionRepo.GetMaxSortOrder(ctx, documentID, req.ParentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get max sort order: %w", err)
	}

	section := &domain.Section{
		DocumentID: documentID,
		ParentID:   req.ParentID,
		Name:       req.Name,
		SortOrder:  maxOrder + 1,
	}
	if err := s.sectionRepo.Create(ctx, section); err != nil {
		s.logger.Error("Failed to create section", zap.Error(err))
		return nil, fmt.Errorf("failed to create section: %w", err)
	}

	if err := s.numbering.RenumberDocument(ctx, documentID, doc.NumberingPolicy); err != nil {
		return nil, err
	}
	section, err = s.sectionRepo.GetByID(ctx, section.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh section: %w", err)
	}

	return &domain.SectionDTO{
		ID:          section.ID,
		Number:      section.Number,
		Name:        section.Name,
		SortOrder:   section.SortOrder,
		TotalAmount: section.TotalAmount,
		Items:       []domain.ItemDTO{},
		Children:    []domain.SectionDTO{},
	}, nil
}

// DeleteSection removes a section subtree. Items of the subtree are not
// deleted: they move to the unassigned pool so no priced line is ever lost
// by a structural edit.
func (s *DocumentService) DeleteSection(ctx context.Context, documentID, sectionID uuid.UUID) error {
	doc, err := s.getMutableDocument(ctx, documentID)
	if err != nil {
		return err
	}

	section, err := s.sectionRepo.GetByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSectionNotFound
		}
		return fmt.Errorf("failed to get section: %w", err)
	}
	if section.DocumentID != documentID {
		return ErrSectionWrongDocument
	}

	sections, err := s.sectionRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to list sections: %w", err)
	}
	subtree := collectSubtree(sections, sectionID)

	err = s.docRepo.Transaction(ctx, func(tx *gorm.DB) error {
		for _, id := range subtree {
			if err := tx.Model(&domain.Item{}).
				Where("section_id = ?", id).
				Update("section_id", nil).Error; err != nil {
				return fmt.Errorf("failed to unassign items: %w", err)
			}
		}
		for _, id := range subtree {
			if err := tx.Delete(&domain.Section{}, "id = ?", id).Error; err != nil {
				return fmt.Errorf("failed to delete section: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delete section", zap.Error(err))
		return err
	}

	if err := s.numbering.RenumberDocument(ctx, documentID, doc.NumberingPolicy); err != nil {
		return err
	}
	if _, err := s.calc.Recalculate(ctx, documentID); err != nil {
		return err
	}
	return nil
}

// collectSubtree returns the IDs of a section and all of its descendants,
// parents before children.
func collectSubtree(sections []domain.Section, rootID uuid.UUID) []uuid.UUID {
	childrenByParent := map[uuid.UUID][]uuid.UUID{}
	for i := range sections {
		if sections[i].ParentID != nil {
			childrenByParent[*sections[i].ParentID] = append(childrenByParent[*sections[i].ParentID], sections[i].ID)
		}
	}
	out := []uuid.UUID{rootID}
	for i := 0; i < len(out); i++ {
		out = append(out, childrenByParent[out[i]]...)
	}
	return out
}

// ============================================================
// Items
// ============================================================

// CreateItem adds a line item and recalculates. Items created without an
// explicit position number are numbered automatically; an explicit number
// is kept as supplied.
func (s *DocumentService) CreateItem(ctx context.Context, documentID uuid.UUID, req domain.CreateItemRequest) (*domain.ItemDTO, error) {
	doc, err := s.getMutableDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSection(ctx, documentID, req.SectionID); err != nil {
		return nil, err
	}

	itemType := req.ItemType
	if itemType == "" {
		itemType = domain.ItemTypeWork
	}

	maxOrder, err := s.itemRepo.GetMaxSortOrder(ctx, documentID, req.SectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get max sort order: %w", err)
	}

	item := &domain.Item{
		DocumentID:     documentID,
		SectionID:      req.SectionID,
		PositionNumber: req.PositionNumber,
		Name:           req.Name,
		Unit:           req.Unit,
		Code:           req.Code,
		ItemType:       itemType,
		Quantity:       req.Quantity,
		UnitPrice:      req.UnitPrice,
		BaseUnitPrice:  req.BaseUnitPrice,
		PriceIndex:     req.PriceIndex,
		NotAccounted:   req.NotAccounted,
		SortOrder:      maxOrder + 1,
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		s.logger.Error("Failed to create item", zap.Error(err))
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	if err := s.afterItemMutation(ctx, documentID, doc.NumberingPolicy); err != nil {
		return nil, err
	}
	item, err = s.itemRepo.GetByID(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh item: %w", err)
	}

	// an explicitly supplied number wins over the automatic assignment
	if req.PositionNumber != "" && item.PositionNumber != req.PositionNumber {
		item.PositionNumber = req.PositionNumber
		if err := s.itemRepo.Update(ctx, item); err != nil {
			s.logger.Error("Failed to keep explicit position number", zap.Error(err))
			return nil, fmt.Errorf("failed to update item: %w", err)
		}
	}

	dto := mapper.ToItemDTO(item)
	return &dto, nil
}

// UpdateItem edits a line item and recalculates. Editing quantity or unit
// price of a manual item clears the manual flag: from then on the item is
// priced by the formula, not by the imported total.
func (s *DocumentService) UpdateItem(ctx context.Context, documentID, itemID uuid.UUID, req domain.UpdateItemRequest) (*domain.ItemDTO, error) {
	doc, err := s.getMutableDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	item, err := s.getItem(ctx, documentID, itemID)
	if err != nil {
		return nil, err
	}

	if item.Manual && (item.Quantity != req.Quantity || item.UnitPrice != req.UnitPrice) {
		item.Manual = false
		item.ImportedTotal = nil
	}

	item.Name = req.Name
	item.Unit = req.Unit
	item.Code = req.Code
	if req.ItemType != "" {
		item.ItemType = req.ItemType
	}
	item.Quantity = req.Quantity
	item.UnitPrice = req.UnitPrice
	item.BaseUnitPrice = req.BaseUnitPrice
	item.PriceIndex = req.PriceIndex
	item.NotAccounted = req.NotAccounted

	if err := s.itemRepo.Update(ctx, item); err != nil {
		s.logger.Error("Failed to update item", zap.Error(err))
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	if err := s.afterItemMutation(ctx, documentID, doc.NumberingPolicy); err != nil {
		return nil, err
	}
	item, err = s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh item: %w", err)
	}

	dto := mapper.ToItemDTO(item)
	return &dto, nil
}

// DeleteItem removes a line item and recalculates
func (s *DocumentService) DeleteItem(ctx context.Context, documentID, itemID uuid.UUID) error {
	doc, err := s.getMutableDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if _, err := s.getItem(ctx, documentID, itemID); err != nil {
		return err
	}

	if err := s.itemRepo.Delete(ctx, itemID); err != nil {
		s.logger.Error("Failed to delete item", zap.Error(err))
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return s.afterItemMutation(ctx, documentID, doc.NumberingPolicy)
}

// MoveItem moves an item into another section (or out of any section)
func (s *DocumentService) MoveItem(ctx context.Context, documentID, itemID uuid.UUID, req domain.MoveItemRequest) (*domain.ItemDTO, error) {
	doc, err := s.getMutableDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSection(ctx, documentID, req.SectionID); err != nil {
		return nil, err
	}

	item, err := s.getItem(ctx, documentID, itemID)
	if err != nil {
		return nil, err
	}

	maxOrder, err := s.itemRepo.GetMaxSortOrder(ctx, documentID, req.SectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get max sort order: %w", err)
	}
	item.SectionID = req.SectionID
	item.SortOrder = maxOrder + 1

	if err := s.itemRepo.Update(ctx, item); err != nil {
		s.logger.Error("Failed to move item", zap.Error(err))
		return nil, fmt.Errorf("failed to move item: %w", err)
	}

	if err := s.afterItemMutation(ctx, documentID, doc.NumberingPolicy); err != nil {
		return nil, err
	}
	item, err = s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh item: %w", err)
	}

	dto := mapper.ToItemDTO(item)
	return &dto, nil
}

// ReorderItems applies a new sibling order inside one section. The request
// must list every item of that section exactly once.
func (s *DocumentService) ReorderItems(ctx context.Context, documentID uuid.UUID, req domain.ReorderItemsRequest) error {
	doc, err := s.getMutableDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.checkSection(ctx, documentID, req.SectionID); err != nil {
		return err
	}

	current, err := s.itemRepo.ListBySection(ctx, documentID, req.SectionID)
	if err != nil {
		return fmt.Errorf("failed to list section items: %w", err)
	}
	if len(current) != len(req.OrderedIDs) {
		return ErrReorderIncomplete
	}
	existing := map[uuid.UUID]bool{}
	for i := range current {
		existing[current[i].ID] = true
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range req.OrderedIDs {
		if !existing[id] || seen[id] {
			return ErrReorderIncomplete
		}
		seen[id] = true
	}

	if err := s.itemRepo.UpdateSortOrders(ctx, req.OrderedIDs); err != nil {
		s.logger.Error("Failed to reorder items", zap.Error(err))
		return fmt.Errorf("failed to reorder items: %w", err)
	}
	return s.numbering.RenumberDocument(ctx, documentID, doc.NumberingPolicy)
}

// ============================================================
// Helpers
// ============================================================

func (s *DocumentService) getDocument(ctx context.Context, id uuid.UUID) (*domain.EstimateDocument, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		s.logger.Error("Failed to get document", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// getMutableDocument loads a document and rejects mutations on approved ones
func (s *DocumentService) getMutableDocument(ctx context.Context, id uuid.UUID) (*domain.EstimateDocument, error) {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.IsApproved() {
		return nil, ErrDocumentApproved
	}
	return doc, nil
}

func (s *DocumentService) getItem(ctx context.Context, documentID, itemID uuid.UUID) (*domain.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if item.DocumentID != documentID {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// checkSection validates an optional section reference against the document
func (s *DocumentService) checkSection(ctx context.Context, documentID uuid.UUID, sectionID *uuid.UUID) error {
	if sectionID == nil {
		return nil
	}
	section, err := s.sectionRepo.GetByID(ctx, *sectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSectionNotFound
		}
		return fmt.Errorf("failed to get section: %w", err)
	}
	if section.DocumentID != documentID {
		return ErrSectionWrongDocument
	}
	return nil
}

// afterItemMutation renumbers and recalculates after any item change
func (s *DocumentService) afterItemMutation(ctx context.Context, documentID uuid.UUID, policy domain.NumberingPolicy) error {
	if err := s.numbering.RenumberDocument(ctx, documentID, policy); err != nil {
		return err
	}
	if _, err := s.calc.Recalculate(ctx, documentID); err != nil {
		return err
	}
	return nil
}
