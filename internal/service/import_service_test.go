package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/ingest"
	"github.com/smetaworks/estimate-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nativeImportPayload is a native-format export with one section, a formula
// item and an item whose imported total disagrees with quantity*price.
var nativeImportPayload = []byte(`{
  "name": "Imported estimate",
  "meta": {"adapter": "native"},
  "rows": [
    {"kind": "section", "number": "1", "name": "Earthworks"},
    {"kind": "item", "name": "Excavation", "unit": "m3", "itemType": "work",
     "quantity": 100, "unitPrice": 50, "total": 5000, "sectionPath": ["1"]},
    {"kind": "item", "name": "Disposal", "unit": "t", "itemType": "work",
     "quantity": 10, "unitPrice": 20, "total": 999, "sectionPath": ["1"]}
  ]
}`)

func TestImportMaterializesDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc, err := env.imports.Import(ctx, "estimate.json", nativeImportPayload)
	require.NoError(t, err)

	assert.Equal(t, "Imported estimate", doc.Name)
	assert.Equal(t, domain.DocumentStatusDraft, doc.Status)
	assert.False(t, doc.TotalsDirty)

	sections, err := env.sections.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Earthworks", sections[0].Name)
	assert.Equal(t, "1", sections[0].Number)

	items, err := env.items.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byName := map[string]domain.Item{}
	for _, it := range items {
		byName[it.Name] = it
	}

	// total matches quantity*price, so the formula stays in charge
	excavation := byName["Excavation"]
	assert.False(t, excavation.Manual)
	assert.Equal(t, 5000.0, excavation.DirectCost)

	// total disagrees beyond the tolerance, so it is authoritative
	disposal := byName["Disposal"]
	assert.True(t, disposal.Manual)
	require.NotNil(t, disposal.ImportedTotal)
	assert.Equal(t, 999.0, *disposal.ImportedTotal)
	assert.Equal(t, 999.0, disposal.DirectCost)

	assert.Equal(t, 5999.0, doc.Totals.Amount)
}

func TestImportCreatesImplicitSections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// the item references a section path never declared by a section row
	payload := []byte(`{
	  "meta": {"adapter": "native"},
	  "rows": [
	    {"kind": "item", "name": "Orphan line", "quantity": 1, "unitPrice": 10,
	     "itemType": "work", "sectionPath": ["Undeclared"]}
	  ]
	}`)

	doc, err := env.imports.Import(ctx, "orphan.json", payload)
	require.NoError(t, err)

	sections, err := env.sections.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Undeclared", sections[0].Name)

	items, err := env.items.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].SectionID)
	assert.Equal(t, sections[0].ID, *items[0].SectionID)
}

func TestImportFallsBackToFileName(t *testing.T) {
	env := newTestEnv(t)

	payload := []byte(`{
	  "meta": {"adapter": "native"},
	  "rows": [{"kind": "item", "name": "Line", "quantity": 1, "unitPrice": 1, "itemType": "work"}]
	}`)
	doc, err := env.imports.Import(context.Background(), "/tmp/uploads/smeta-2024.json", payload)
	require.NoError(t, err)
	assert.Equal(t, "smeta-2024", doc.Name)
}

func TestImportRejectsEmptyFile(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.imports.Import(context.Background(), "empty.json", []byte(`{"meta": {"adapter": "native"}, "rows": []}`))
	assert.ErrorIs(t, err, ingest.ErrUnreadable)
}

func TestImportUnrecognizedFormat(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.imports.Import(context.Background(), "noise.bin", []byte{0x00, 0x01, 0x02, 0x03})
	assert.ErrorIs(t, err, ingest.ErrNoAdapter)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	preview, err := env.imports.Preview(ctx, "estimate.json", nativeImportPayload)
	require.NoError(t, err)
	assert.Equal(t, "native", preview.Meta.Adapter)
	assert.Len(t, preview.Rows, 3)
	assert.Len(t, preview.SectionRows(), 1)
	assert.Len(t, preview.ItemRows(), 2)

	var count int64
	require.NoError(t, env.db.Model(&domain.EstimateDocument{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestExportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 0, 0, 0)
	sec := env.createSection(t, doc.ID, "Earthworks", nil)
	env.createItem(t, doc.ID, &sec.ID, "Excavation", 100, 50)
	env.createItem(t, doc.ID, nil, "Floating", 1, 10)

	data, err := env.imports.Export(ctx, doc.ID)
	require.NoError(t, err)

	// the helpers above already recalculated; read the totals back
	exported, err := env.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 5010.0, exported.Totals.Amount)

	// the native adapter must read its own export losslessly
	reimported, err := env.imports.Import(ctx, "export.json", data)
	require.NoError(t, err)
	assert.Equal(t, "Test estimate", reimported.Name)
	assert.Equal(t, exported.Totals.Amount, reimported.Totals.Amount)

	sections, err := env.sections.ListByDocument(ctx, reimported.ID)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Earthworks", sections[0].Name)

	items, err := env.items.ListByDocument(ctx, reimported.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestExportUnknownDocument(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.imports.Export(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrDocumentNotFound)
}
