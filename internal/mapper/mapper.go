package mapper

import (
	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/domain"
)

// ToDocumentDTO converts EstimateDocument to DocumentDTO
func ToDocumentDTO(doc *domain.EstimateDocument) domain.DocumentDTO {
	return domain.DocumentDTO{
		ID:              doc.ID,
		Name:            doc.Name,
		Number:          doc.Number,
		Status:          doc.Status,
		NumberingPolicy: doc.NumberingPolicy,
		OverheadRate:    doc.OverheadRate,
		ProfitRate:      doc.ProfitRate,
		VATRate:         doc.VATRate,
		Totals:          ToTotalsDTO(doc),
		TotalsDirty:     doc.TotalsDirty,
		VersionCount:    doc.VersionCount,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}

// ToTotalsDTO extracts the five cached totals of a document
func ToTotalsDTO(doc *domain.EstimateDocument) domain.DocumentTotalsDTO {
	return domain.DocumentTotalsDTO{
		Direct:        doc.TotalDirect,
		Overhead:      doc.TotalOverhead,
		Profit:        doc.TotalProfit,
		Amount:        doc.TotalAmount,
		AmountWithVAT: doc.TotalAmountWithVAT,
	}
}

// ToItemDTO converts Item to ItemDTO
func ToItemDTO(item *domain.Item) domain.ItemDTO {
	return domain.ItemDTO{
		ID:             item.ID,
		SectionID:      item.SectionID,
		PositionNumber: item.PositionNumber,
		Name:           item.Name,
		Unit:           item.Unit,
		Code:           item.Code,
		ItemType:       item.ItemType,
		Quantity:       item.Quantity,
		UnitPrice:      item.UnitPrice,
		BaseUnitPrice:  item.BaseUnitPrice,
		PriceIndex:     item.PriceIndex,
		Manual:         item.Manual,
		NotAccounted:   item.NotAccounted,
		DirectCost:     item.DirectCost,
		OverheadAmount: item.OverheadAmount,
		ProfitAmount:   item.ProfitAmount,
		TotalAmount:    item.TotalAmount,
		SortOrder:      item.SortOrder,
	}
}

// ToSnapshotDTO converts VersionSnapshot to SnapshotDTO (without the tree)
func ToSnapshotDTO(snapshot *domain.VersionSnapshot) domain.SnapshotDTO {
	return domain.SnapshotDTO{
		ID:            snapshot.ID,
		DocumentID:    snapshot.DocumentID,
		VersionNumber: snapshot.VersionNumber,
		Label:         snapshot.Label,
		Comment:       snapshot.Comment,
		CreatedByID:   snapshot.CreatedByID,
		CreatedByName: snapshot.CreatedByName,
		Totals: domain.DocumentTotalsDTO{
			Direct:        snapshot.TotalDirect,
			Overhead:      snapshot.TotalOverhead,
			Profit:        snapshot.TotalProfit,
			Amount:        snapshot.TotalAmount,
			AmountWithVAT: snapshot.TotalAmountWithVAT,
		},
		CreatedAt: snapshot.CreatedAt,
	}
}

// BuildSectionTree assembles flat section and item lists into the nested
// DTO tree. Items with no section are returned separately.
func BuildSectionTree(sections []domain.Section, items []domain.Item) ([]domain.SectionDTO, []domain.ItemDTO) {
	itemsBySection, unassigned := groupItems(items)

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

	var build func(sec *domain.Section) domain.SectionDTO
	build = func(sec *domain.Section) domain.SectionDTO {
		dto := domain.SectionDTO{
			ID:          sec.ID,
			Number:      sec.Number,
			Name:        sec.Name,
			SortOrder:   sec.SortOrder,
			TotalAmount: sec.TotalAmount,
			Items:       itemsBySection[sec.ID],
			Children:    []domain.SectionDTO{},
		}
		if dto.Items == nil {
			dto.Items = []domain.ItemDTO{}
		}
		for _, child := range childrenByParent[sec.ID] {
			dto.Children = append(dto.Children, build(child))
		}
		return dto
	}

	out := make([]domain.SectionDTO, 0, len(roots))
	for _, root := range roots {
		out = append(out, build(root))
	}
	return out, unassigned
}

func groupItems(items []domain.Item) (map[uuid.UUID][]domain.ItemDTO, []domain.ItemDTO) {
	bySection := map[uuid.UUID][]domain.ItemDTO{}
	unassigned := []domain.ItemDTO{}
	for i := range items {
		dto := ToItemDTO(&items[i])
		if items[i].SectionID == nil {
			unassigned = append(unassigned, dto)
		} else {
			bySection[*items[i].SectionID] = append(bySection[*items[i].SectionID], dto)
		}
	}
	return bySection, unassigned
}

// ToSnapshotTree serializes flat section and item lists into the
// self-contained tree stored with a version snapshot.
func ToSnapshotTree(sections []domain.Section, items []domain.Item) domain.SnapshotTree {
	itemsBySection := map[uuid.UUID][]domain.SnapshotItem{}
	unassigned := []domain.SnapshotItem{}
	for i := range items {
		si := toSnapshotItem(&items[i])
		if items[i].SectionID == nil {
			unassigned = append(unassigned, si)
		} else {
			itemsBySection[*items[i].SectionID] = append(itemsBySection[*items[i].SectionID], si)
		}
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

	var build func(sec *domain.Section) domain.SnapshotSection
	build = func(sec *domain.Section) domain.SnapshotSection {
		node := domain.SnapshotSection{
			SectionID:   sec.ID,
			Number:      sec.Number,
			Name:        sec.Name,
			TotalAmount: sec.TotalAmount,
			Items:       itemsBySection[sec.ID],
			Children:    []domain.SnapshotSection{},
		}
		if node.Items == nil {
			node.Items = []domain.SnapshotItem{}
		}
		for _, child := range childrenByParent[sec.ID] {
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	tree := domain.SnapshotTree{Sections: []domain.SnapshotSection{}, Unassigned: unassigned}
	for _, root := range roots {
		tree.Sections = append(tree.Sections, build(root))
	}
	return tree
}

func toSnapshotItem(item *domain.Item) domain.SnapshotItem {
	return domain.SnapshotItem{
		ItemID:         item.ID,
		PositionNumber: item.PositionNumber,
		Name:           item.Name,
		Unit:           item.Unit,
		ItemType:       item.ItemType,
		Quantity:       item.Quantity,
		UnitPrice:      item.UnitPrice,
		BaseUnitPrice:  item.BaseUnitPrice,
		PriceIndex:     item.PriceIndex,
		NotAccounted:   item.NotAccounted,
		TotalAmount:    item.TotalAmount,
	}
}
