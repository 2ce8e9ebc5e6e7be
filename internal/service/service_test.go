package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/ingest"
	"github.com/smetaworks/estimate-api/internal/repository"
	"github.com/smetaworks/estimate-api/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory SQLite database with the estimate schema.
// ImportAudit stays out: its warnings column is a postgres array type.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&domain.EstimateDocument{},
		&domain.Section{},
		&domain.Item{},
		&domain.VersionSnapshot{},
	)
	require.NoError(t, err)
	return db
}

// testEnv wires the full service stack over one test database
type testEnv struct {
	db        *gorm.DB
	docRepo   *repository.DocumentRepository
	sections  *repository.SectionRepository
	items     *repository.ItemRepository
	snapshots *repository.SnapshotRepository
	calc      *service.CalculationService
	numbering *service.NumberingService
	docs      *service.DocumentService
	versions  *service.VersionService
	diffs     *service.DiffService
	sims      *service.SimulationService
	imports   *service.ImportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	log := zap.NewNop()

	docRepo := repository.NewDocumentRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	itemRepo := repository.NewItemRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	auditRepo := repository.NewImportAuditRepository(db)

	calc := service.NewCalculationService(docRepo, sectionRepo, itemRepo, log)
	numbering := service.NewNumberingService(sectionRepo, itemRepo, log)
	registry := ingest.NewDefaultRegistry(log)

	return &testEnv{
		db:        db,
		docRepo:   docRepo,
		sections:  sectionRepo,
		items:     itemRepo,
		snapshots: snapshotRepo,
		calc:      calc,
		numbering: numbering,
		docs:      service.NewDocumentService(docRepo, sectionRepo, itemRepo, calc, numbering, log),
		versions:  service.NewVersionService(docRepo, sectionRepo, itemRepo, snapshotRepo, calc, log),
		diffs:     service.NewDiffService(snapshotRepo, log),
		sims:      service.NewSimulationService(docRepo, sectionRepo, itemRepo, log),
		imports:   service.NewImportService(registry, docRepo, sectionRepo, itemRepo, auditRepo, calc, numbering, nil, log),
	}
}

// createDocument creates a draft document with the given rates
func (e *testEnv) createDocument(t *testing.T, overhead, profit, vat float64) *domain.DocumentDTO {
	t.Helper()
	doc, err := e.docs.Create(context.Background(), domain.CreateDocumentRequest{
		Name:         "Test estimate",
		OverheadRate: overhead,
		ProfitRate:   profit,
		VATRate:      vat,
	})
	require.NoError(t, err)
	return doc
}

// createSection creates a section via the service layer
func (e *testEnv) createSection(t *testing.T, documentID uuid.UUID, name string, parentID *uuid.UUID) *domain.SectionDTO {
	t.Helper()
	sec, err := e.docs.CreateSection(context.Background(), documentID, domain.CreateSectionRequest{
		ParentID: parentID,
		Name:     name,
	})
	require.NoError(t, err)
	return sec
}

// createItem creates a work item via the service layer
func (e *testEnv) createItem(t *testing.T, documentID uuid.UUID, sectionID *uuid.UUID, name string, qty, price float64) *domain.ItemDTO {
	t.Helper()
	item, err := e.docs.CreateItem(context.Background(), documentID, domain.CreateItemRequest{
		SectionID: sectionID,
		Name:      name,
		Quantity:  qty,
		UnitPrice: price,
	})
	require.NoError(t, err)
	return item
}

func ptr(v float64) *float64 {
	return &v
}
