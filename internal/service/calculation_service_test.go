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

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, service.Round2(1.234))
	assert.Equal(t, 1.24, service.Round2(1.235))
	assert.Equal(t, -1.23, service.Round2(-1.234))
	assert.Equal(t, 0.0, service.Round2(0))
	assert.Equal(t, 100.0, service.Round2(100.000001))
}

func TestComputeItemFormula(t *testing.T) {
	item := domain.Item{Quantity: 10, UnitPrice: 100}
	service.ComputeItem(&item, 15, 10)

	assert.Equal(t, 1000.0, item.DirectCost)
	assert.Equal(t, 150.0, item.OverheadAmount)
	assert.Equal(t, 100.0, item.ProfitAmount)
	assert.Equal(t, 1250.0, item.TotalAmount)
}

func TestComputeItemManualTotal(t *testing.T) {
	item := domain.Item{
		Quantity:      10,
		UnitPrice:     100,
		Manual:        true,
		ImportedTotal: ptr(999.5),
	}
	service.ComputeItem(&item, 10, 0)

	// the imported total overrides quantity*price
	assert.Equal(t, 999.5, item.DirectCost)
	assert.Equal(t, 99.95, item.OverheadAmount)
	assert.Equal(t, 1099.45, item.TotalAmount)
}

func TestComputeItemManualOverrides(t *testing.T) {
	item := domain.Item{
		Quantity:       2,
		UnitPrice:      500,
		ManualOverhead: ptr(42.0),
		ManualProfit:   ptr(17.0),
	}
	service.ComputeItem(&item, 15, 10)

	assert.Equal(t, 1000.0, item.DirectCost)
	assert.Equal(t, 42.0, item.OverheadAmount)
	assert.Equal(t, 17.0, item.ProfitAmount)
	assert.Equal(t, 1059.0, item.TotalAmount)
}

func TestComputeItemIsIdempotent(t *testing.T) {
	item := domain.Item{Quantity: 3.333, UnitPrice: 7.77}
	service.ComputeItem(&item, 12.5, 8.3)
	first := item

	service.ComputeItem(&item, 12.5, 8.3)
	assert.Equal(t, first.DirectCost, item.DirectCost)
	assert.Equal(t, first.OverheadAmount, item.OverheadAmount)
	assert.Equal(t, first.ProfitAmount, item.ProfitAmount)
	assert.Equal(t, first.TotalAmount, item.TotalAmount)
}

func TestApplyDocumentTotals(t *testing.T) {
	doc := domain.EstimateDocument{VATRate: 20}
	items := []domain.Item{
		{Quantity: 10, UnitPrice: 100},
	}
	service.ComputeItem(&items[0], 15, 10)
	service.ApplyDocumentTotals(&doc, items)

	assert.Equal(t, 1000.0, doc.TotalDirect)
	assert.Equal(t, 150.0, doc.TotalOverhead)
	assert.Equal(t, 100.0, doc.TotalProfit)
	assert.Equal(t, 1250.0, doc.TotalAmount)
	assert.Equal(t, 1500.0, doc.TotalAmountWithVAT)
}

func TestApplyDocumentTotalsSkipsNotAccounted(t *testing.T) {
	doc := domain.EstimateDocument{}
	items := []domain.Item{
		{Quantity: 1, UnitPrice: 100},
		{Quantity: 1, UnitPrice: 500, NotAccounted: true},
	}
	for i := range items {
		service.ComputeItem(&items[i], 0, 0)
	}
	service.ApplyDocumentTotals(&doc, items)

	assert.Equal(t, 100.0, doc.TotalDirect)
	assert.Equal(t, 100.0, doc.TotalAmount)
}

func TestRollupSections(t *testing.T) {
	rootID := uuid.New()
	childID := uuid.New()
	sections := []domain.Section{
		{BaseModel: domain.BaseModel{ID: rootID}},
		{BaseModel: domain.BaseModel{ID: childID}, ParentID: &rootID},
	}
	items := []domain.Item{
		{SectionID: &rootID, TotalAmount: 100},
		{SectionID: &childID, TotalAmount: 250},
		{SectionID: &childID, TotalAmount: 50, NotAccounted: true},
		{TotalAmount: 999}, // unassigned, not part of any section total
	}

	totals := service.RollupSections(sections, items)

	assert.Equal(t, 250.0, totals[childID])
	assert.Equal(t, 350.0, totals[rootID])
}

func TestRecalculatePersistsTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 15, 10, 20)
	sec := env.createSection(t, doc.ID, "Earthworks", nil)
	env.createItem(t, doc.ID, &sec.ID, "Excavation", 10, 100)

	recalced, err := env.calc.Recalculate(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1250.0, recalced.TotalAmount)
	assert.Equal(t, 1500.0, recalced.TotalAmountWithVAT)
	assert.False(t, recalced.TotalsDirty)

	stored, err := env.docRepo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, stored.TotalDirect)
	assert.Equal(t, 1250.0, stored.TotalAmount)

	storedSec, err := env.sections.GetByID(ctx, sec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1250.0, storedSec.TotalAmount)
}

func TestRecalculateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 12.5, 7.3, 20)
	env.createItem(t, doc.ID, nil, "Concrete", 3.7, 145.33)

	first, err := env.calc.Recalculate(ctx, doc.ID)
	require.NoError(t, err)
	second, err := env.calc.Recalculate(ctx, doc.ID)
	require.NoError(t, err)

	assert.Equal(t, first.TotalDirect, second.TotalDirect)
	assert.Equal(t, first.TotalOverhead, second.TotalOverhead)
	assert.Equal(t, first.TotalProfit, second.TotalProfit)
	assert.Equal(t, first.TotalAmount, second.TotalAmount)
	assert.Equal(t, first.TotalAmountWithVAT, second.TotalAmountWithVAT)
}

func TestRecalculateUnknownDocument(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.calc.Recalculate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrDocumentNotFound)
}
