package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/ingest"
	"github.com/smetaworks/estimate-api/internal/mapper"
	"github.com/smetaworks/estimate-api/internal/repository"
	"github.com/smetaworks/estimate-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// manualTotalTolerance is the allowed gap between an imported total and
// quantity*price before the imported total is treated as authoritative.
const manualTotalTolerance = 0.01

// ImportService turns uploaded source files into estimate documents. The
// adapter registry picks the extraction strategy; materialization, audit
// trail and source archival happen here.
type ImportService struct {
	registry    *ingest.Registry
	docRepo     *repository.DocumentRepository
	sectionRepo *repository.SectionRepository
	itemRepo    *repository.ItemRepository
	auditRepo   *repository.ImportAuditRepository
	calc        *CalculationService
	numbering   *NumberingService
	store       storage.Store
	logger      *zap.Logger
}

// NewImportService creates a new ImportService instance. The blob store is
// optional; with a nil store source files are not archived.
func NewImportService(
	registry *ingest.Registry,
	docRepo *repository.DocumentRepository,
	sectionRepo *repository.SectionRepository,
	itemRepo *repository.ItemRepository,
	auditRepo *repository.ImportAuditRepository,
	calc *CalculationService,
	numbering *NumberingService,
	store storage.Store,
	logger *zap.Logger,
) *ImportService {
	return &ImportService{
		registry:    registry,
		docRepo:     docRepo,
		sectionRepo: sectionRepo,
		itemRepo:    itemRepo,
		auditRepo:   auditRepo,
		calc:        calc,
		numbering:   numbering,
		store:       store,
		logger:      logger,
	}
}

// Preview parses a source file without persisting anything. The caller can
// inspect the detected columns, classification and warnings before
// committing to an import.
func (s *ImportService) Preview(ctx context.Context, fileName string, data []byte) (*domain.ImportDocument, error) {
	imported, err := s.registry.Parse(data)
	if err != nil {
		return nil, err
	}
	if len(imported.Rows) == 0 {
		return nil, ErrEmptyImport
	}
	s.logger.Debug("Import preview",
		zap.String("file", fileName),
		zap.String("adapter", imported.Meta.Adapter),
		zap.Int("rows", len(imported.Rows)))
	return imported, nil
}

// Import parses a source file and materializes it as a new draft document:
// sections and items are created transactionally, an audit record captures
// how the file was interpreted, and the source bytes are archived.
func (s *ImportService) Import(ctx context.Context, fileName string, data []byte) (*domain.DocumentDTO, error) {
	imported, err := s.registry.Parse(data)
	if err != nil {
		s.logger.Warn("Import parse failed", zap.String("file", fileName), zap.Error(err))
		return nil, err
	}
	if len(imported.Rows) == 0 {
		return nil, ErrEmptyImport
	}

	doc := &domain.EstimateDocument{
		Name:            documentName(imported, fileName),
		Status:          domain.DocumentStatusDraft,
		NumberingPolicy: domain.NumberingPerSection,
		TotalsDirty:     true,
	}

	var sectionCount, itemCount int
	err = s.docRepo.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}
		sectionCount, itemCount, err = materialize(tx, doc, imported)
		return err
	})
	if err != nil {
		s.logger.Error("Import materialization failed",
			zap.String("file", fileName), zap.Error(err))
		return nil, err
	}

	blobKey := s.archiveSource(ctx, doc.ID.String(), fileName, data)
	s.writeAudit(ctx, doc, imported, fileName, blobKey, sectionCount, itemCount)

	if err := s.numbering.RenumberDocument(ctx, doc.ID, doc.NumberingPolicy); err != nil {
		return nil, err
	}
	doc, err = s.calc.Recalculate(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Import complete",
		zap.String("document_id", doc.ID.String()),
		zap.String("adapter", imported.Meta.Adapter),
		zap.Int("sections", sectionCount),
		zap.Int("items", itemCount),
		zap.Strings("warnings", imported.Warnings))

	dto := mapper.ToDocumentDTO(doc)
	return &dto, nil
}

// Export serializes a document back into the native interchange format,
// which the native adapter reads losslessly.
func (s *ImportService) Export(ctx context.Context, documentID uuid.UUID) ([]byte, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	sections, err := s.sectionRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	items, err := s.itemRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	out := &domain.ImportDocument{
		Name: doc.Name,
		Meta: domain.ImportMeta{Adapter: "native"},
	}

	numberByID := map[string]string{}
	pathByID := map[string][]string{}
	parentByID := map[string]*string{}
	for i := range sections {
		sec := &sections[i]
		numberByID[sec.ID.String()] = sec.Number
		if sec.ParentID != nil {
			p := sec.ParentID.String()
			parentByID[sec.ID.String()] = &p
		} else {
			parentByID[sec.ID.String()] = nil
		}
	}
	var pathOf func(id string) []string
	pathOf = func(id string) []string {
		if p, ok := pathByID[id]; ok {
			return p
		}
		var path []string
		if parent := parentByID[id]; parent != nil {
			path = append(path, pathOf(*parent)...)
		}
		path = append(path, numberByID[id])
		pathByID[id] = path
		return path
	}

	for i := range sections {
		sec := &sections[i]
		var parentPath []string
		if sec.ParentID != nil {
			parentPath = pathOf(sec.ParentID.String())
		}
		out.Rows = append(out.Rows, domain.ImportRow{
			Kind:        domain.RowKindSection,
			Number:      sec.Number,
			Name:        sec.Name,
			SectionPath: parentPath,
		})
	}
	for i := range items {
		it := &items[i]
		row := domain.ImportRow{
			Kind:     domain.RowKindItem,
			Number:   it.PositionNumber,
			Name:     it.Name,
			Unit:     it.Unit,
			Code:     it.Code,
			ItemType: it.ItemType,
		}
		qty, price, total := it.Quantity, it.UnitPrice, it.TotalAmount
		row.Quantity, row.UnitPrice, row.Total = &qty, &price, &total
		if it.SectionID != nil {
			row.SectionPath = pathOf(it.SectionID.String())
		}
		out.Rows = append(out.Rows, row)
	}

	return json.MarshalIndent(out, "", "  ")
}

// ListAudits returns the import audit trail of a document
func (s *ImportService) ListAudits(ctx context.Context, documentID uuid.UUID) ([]domain.ImportAudit, error) {
	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	audits, err := s.auditRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list import audits: %w", err)
	}
	return audits, nil
}

// materialize creates the section tree and items of an import inside an
// open transaction. Returns the created section and item counts.
func materialize(tx *gorm.DB, doc *domain.EstimateDocument, imported *domain.ImportDocument) (int, int, error) {
	sectionByPath := map[string]*domain.Section{}
	sortOrders := map[string]int{}

	ensureSection := func(path []string, name, number string) (*domain.Section, error) {
		key := strings.Join(path, "\x00")
		if sec, ok := sectionByPath[key]; ok {
			return sec, nil
		}
		var parent *domain.Section
		if len(path) > 1 {
			parentKey := strings.Join(path[:len(path)-1], "\x00")
			parent = sectionByPath[parentKey]
		}
		sec := &domain.Section{
			DocumentID: doc.ID,
			Number:     number,
			Name:       name,
		}
		scopeKey := ""
		if parent != nil {
			sec.ParentID = &parent.ID
			scopeKey = parent.ID.String()
		}
		sortOrders[scopeKey]++
		sec.SortOrder = sortOrders[scopeKey]
		if err := tx.Create(sec).Error; err != nil {
			return nil, fmt.Errorf("failed to create section: %w", err)
		}
		sectionByPath[key] = sec
		return sec, nil
	}

	// resolveSection walks an item's section path, creating any section the
	// source never declared explicitly.
	resolveSection := func(path []string) (*domain.Section, error) {
		var sec *domain.Section
		for i := range path {
			var err error
			sec, err = ensureSection(path[:i+1], path[i], "")
			if err != nil {
				return nil, err
			}
		}
		return sec, nil
	}

	itemOrders := map[string]int{}
	sectionCount, itemCount := 0, 0
	for _, row := range imported.Rows {
		switch row.Kind {
		case domain.RowKindSection:
			token := row.Number
			if token == "" {
				token = row.Name
			}
			path := append(append([]string(nil), row.SectionPath...), token)
			if _, ok := sectionByPath[strings.Join(path, "\x00")]; !ok {
				sectionCount++
			}
			if _, err := ensureSection(path, row.Name, row.Number); err != nil {
				return 0, 0, err
			}

		case domain.RowKindItem:
			sec, err := resolveSection(row.SectionPath)
			if err != nil {
				return 0, 0, err
			}
			item := &domain.Item{
				DocumentID:     doc.ID,
				PositionNumber: row.Number,
				Name:           row.Name,
				Unit:           row.Unit,
				Code:           row.Code,
				ItemType:       row.ItemType,
			}
			scopeKey := ""
			if sec != nil {
				item.SectionID = &sec.ID
				scopeKey = sec.ID.String()
			}
			itemOrders[scopeKey]++
			item.SortOrder = itemOrders[scopeKey]
			if row.Quantity != nil {
				item.Quantity = *row.Quantity
			}
			if row.UnitPrice != nil {
				item.UnitPrice = *row.UnitPrice
			}
			if row.Total != nil {
				total := *row.Total
				// an imported total that disagrees with quantity*price is
				// authoritative until the user edits the inputs
				if math.Abs(total-item.Quantity*item.UnitPrice) > manualTotalTolerance {
					item.Manual = true
					item.ImportedTotal = &total
				}
			}
			if err := tx.Create(item).Error; err != nil {
				return 0, 0, fmt.Errorf("failed to create item: %w", err)
			}
			itemCount++
		}
	}
	return sectionCount, itemCount, nil
}

// archiveSource stores the raw source bytes; archival failure degrades to a
// warning, the import itself stands.
func (s *ImportService) archiveSource(ctx context.Context, docID, fileName string, data []byte) string {
	if s.store == nil {
		return ""
	}
	key := fmt.Sprintf("imports/%s/%s", docID, filepath.Base(fileName))
	if err := s.store.Upload(ctx, key, data); err != nil {
		s.logger.Warn("Failed to archive import source",
			zap.String("key", key), zap.Error(err))
		return ""
	}
	return key
}

func (s *ImportService) writeAudit(ctx context.Context, doc *domain.EstimateDocument, imported *domain.ImportDocument, fileName, blobKey string, sectionCount, itemCount int) {
	columns, err := json.Marshal(imported.Columns)
	if err != nil {
		columns = nil
	}
	audit := &domain.ImportAudit{
		DocumentID:     doc.ID,
		Adapter:        imported.Meta.Adapter,
		SourceFileName: fileName,
		SourceBlobKey:  blobKey,
		EstimateType:   imported.Meta.EstimateType,
		ProgramVersion: imported.Meta.ProgramVersion,
		Encoding:       imported.Meta.Encoding,
		Delimiter:      imported.Meta.Delimiter,
		HeaderRow:      imported.Meta.HeaderRow,
		SectionCount:   sectionCount,
		ItemCount:      itemCount,
		SkippedRows:    imported.Meta.SkippedRows,
		Columns:        columns,
		Warnings:       pq.StringArray(imported.Warnings),
	}
	if err := s.auditRepo.Create(ctx, audit); err != nil {
		s.logger.Warn("Failed to write import audit", zap.Error(err))
	}
}

func documentName(imported *domain.ImportDocument, fileName string) string {
	if imported.Name != "" {
		return imported.Name
	}
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
