package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateMaterialsIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 0, 0, 0)
	material, err := env.docs.CreateItem(ctx, doc.ID, domain.CreateItemRequest{
		Name:          "Cement",
		ItemType:      domain.ItemTypeMaterial,
		Quantity:      1,
		UnitPrice:     200,
		BaseUnitPrice: ptr(200.0),
	})
	require.NoError(t, err)
	env.createItem(t, doc.ID, nil, "Assembly", 1, 100)

	result, err := env.sims.Simulate(ctx, doc.ID, domain.SimulationOverrides{
		MaterialsIndex: ptr(1.2),
	})
	require.NoError(t, err)

	byID := map[uuid.UUID]domain.SimulatedItem{}
	for _, it := range result.Items {
		byID[it.ItemID] = it
	}
	simMaterial := byID[material.ID]
	assert.Equal(t, 240.0, simMaterial.UnitPrice)
	assert.Equal(t, 240.0, simMaterial.TotalAmount)
	assert.Equal(t, 40.0, simMaterial.Delta)

	// the work item does not follow the materials index
	assert.Equal(t, 340.0, result.Totals.Amount)
	assert.Equal(t, 40.0, result.Delta)

	// nothing persisted changes
	stored, err := env.items.GetByID(ctx, material.ID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, stored.UnitPrice)
	storedDoc, err := env.docRepo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 300.0, storedDoc.TotalAmount)
}

func TestSimulateGlobalIndexCoversWork(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 0, 0, 0)
	work := env.createItem(t, doc.ID, nil, "Assembly", 1, 100)
	labor, err := env.docs.CreateItem(ctx, doc.ID, domain.CreateItemRequest{
		Name:      "Crew",
		ItemType:  domain.ItemTypeLabor,
		Quantity:  1,
		UnitPrice: 100,
	})
	require.NoError(t, err)

	// the typed index compounds with the global one; work follows only the global
	result, err := env.sims.Simulate(ctx, doc.ID, domain.SimulationOverrides{
		GlobalIndex: ptr(1.1),
		LaborIndex:  ptr(1.5),
	})
	require.NoError(t, err)

	byID := map[uuid.UUID]domain.SimulatedItem{}
	for _, it := range result.Items {
		byID[it.ItemID] = it
	}
	assert.Equal(t, 110.0, byID[work.ID].UnitPrice)
	assert.Equal(t, 165.0, byID[labor.ID].UnitPrice)
}

func TestSimulateTypedIndexCompoundsWithGlobal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 0, 0, 0)
	material, err := env.docs.CreateItem(ctx, doc.ID, domain.CreateItemRequest{
		Name:          "Rebar",
		ItemType:      domain.ItemTypeMaterial,
		Quantity:      1,
		UnitPrice:     100,
		BaseUnitPrice: ptr(100.0),
	})
	require.NoError(t, err)

	result, err := env.sims.Simulate(ctx, doc.ID, domain.SimulationOverrides{
		MaterialsIndex: ptr(1.2),
		GlobalIndex:    ptr(1.1),
	})
	require.NoError(t, err)

	byID := map[uuid.UUID]domain.SimulatedItem{}
	for _, it := range result.Items {
		byID[it.ItemID] = it
	}
	// 100 * 1.2 * 1.1
	assert.Equal(t, 132.0, byID[material.ID].UnitPrice)
	assert.Equal(t, 132.0, byID[material.ID].TotalAmount)
}

func TestSimulateRepricesManualItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 0, 0, 0)
	created := env.createItem(t, doc.ID, nil, "Imported", 2, 50)

	stored, err := env.items.GetByID(ctx, created.ID)
	require.NoError(t, err)
	stored.Manual = true
	stored.ImportedTotal = ptr(500.0)
	require.NoError(t, env.items.Update(ctx, stored))
	_, err = env.calc.Recalculate(ctx, doc.ID)
	require.NoError(t, err)

	// the simulation always prices by the formula
	result, err := env.sims.Simulate(ctx, doc.ID, domain.SimulationOverrides{})
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Totals.Amount)
	assert.Equal(t, 500.0, result.Persisted.Amount)
	assert.Equal(t, -400.0, result.Delta)

	// the manual flag survives on the stored row
	stored, err = env.items.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.Manual)
	require.NotNil(t, stored.ImportedTotal)
}

func TestSimulateRateOverrides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 0, 0, 0)
	env.createItem(t, doc.ID, nil, "Line", 10, 100)

	result, err := env.sims.Simulate(ctx, doc.ID, domain.SimulationOverrides{
		OverheadRate: ptr(15.0),
		ProfitRate:   ptr(10.0),
		VATRate:      ptr(20.0),
	})
	require.NoError(t, err)

	assert.Equal(t, 1000.0, result.Totals.Direct)
	assert.Equal(t, 150.0, result.Totals.Overhead)
	assert.Equal(t, 100.0, result.Totals.Profit)
	assert.Equal(t, 1250.0, result.Totals.Amount)
	assert.Equal(t, 1500.0, result.Totals.AmountWithVAT)
}

func TestSimulateSectionRollup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 0, 0, 0)
	sec := env.createSection(t, doc.ID, "Materials", nil)
	_, err := env.docs.CreateItem(ctx, doc.ID, domain.CreateItemRequest{
		SectionID: &sec.ID,
		Name:      "Cement",
		ItemType:  domain.ItemTypeMaterial,
		Quantity:  2,
		UnitPrice: 100,
	})
	require.NoError(t, err)

	result, err := env.sims.Simulate(ctx, doc.ID, domain.SimulationOverrides{
		MaterialsIndex: ptr(2.0),
	})
	require.NoError(t, err)

	require.Len(t, result.Sections, 1)
	assert.Equal(t, sec.ID, result.Sections[0].SectionID)
	assert.Equal(t, 400.0, result.Sections[0].TotalAmount)
}

func TestSimulateUnknownDocument(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.sims.Simulate(context.Background(), uuid.New(), domain.SimulationOverrides{})
	assert.ErrorIs(t, err, service.ErrDocumentNotFound)
}
