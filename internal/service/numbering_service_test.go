package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/service"
	"github.com/stretchr/testify/assert"
)

// numberingFixture is a two-root tree with a nested child:
//
//	1  First   (itemA, itemB)
//	2  Second
//	2.1  Child (itemC)
//
// plus one item outside any section.
type numberingFixture struct {
	sections   []domain.Section
	items      []domain.Item
	first      uuid.UUID
	second     uuid.UUID
	child      uuid.UUID
	itemA      uuid.UUID
	itemB      uuid.UUID
	itemC      uuid.UUID
	unassigned uuid.UUID
}

func newNumberingFixture() *numberingFixture {
	f := &numberingFixture{
		first:      uuid.New(),
		second:     uuid.New(),
		child:      uuid.New(),
		itemA:      uuid.New(),
		itemB:      uuid.New(),
		itemC:      uuid.New(),
		unassigned: uuid.New(),
	}
	now := time.Now()
	f.sections = []domain.Section{
		{BaseModel: domain.BaseModel{ID: f.first, CreatedAt: now}, SortOrder: 1},
		{BaseModel: domain.BaseModel{ID: f.second, CreatedAt: now}, SortOrder: 2},
		{BaseModel: domain.BaseModel{ID: f.child, CreatedAt: now}, ParentID: &f.second, SortOrder: 1},
	}
	f.items = []domain.Item{
		{BaseModel: domain.BaseModel{ID: f.itemA}, SectionID: &f.first, SortOrder: 1},
		{BaseModel: domain.BaseModel{ID: f.itemB}, SectionID: &f.first, SortOrder: 2},
		{BaseModel: domain.BaseModel{ID: f.itemC}, SectionID: &f.child, SortOrder: 1},
		{BaseModel: domain.BaseModel{ID: f.unassigned}, SortOrder: 1},
	}
	return f
}

func TestAssignNumbersSectionsAreHierarchical(t *testing.T) {
	f := newNumberingFixture()

	for _, policy := range []domain.NumberingPolicy{
		domain.NumberingGlobal, domain.NumberingPerSection, domain.NumberingHierarchical,
	} {
		sectionNumbers, _ := service.AssignNumbers(f.sections, f.items, policy)
		assert.Equal(t, "1", sectionNumbers[f.first], "policy %s", policy)
		assert.Equal(t, "2", sectionNumbers[f.second], "policy %s", policy)
		assert.Equal(t, "2.1", sectionNumbers[f.child], "policy %s", policy)
	}
}

func TestAssignNumbersGlobal(t *testing.T) {
	f := newNumberingFixture()

	_, itemNumbers := service.AssignNumbers(f.sections, f.items, domain.NumberingGlobal)

	assert.Equal(t, "1", itemNumbers[f.itemA])
	assert.Equal(t, "2", itemNumbers[f.itemB])
	assert.Equal(t, "3", itemNumbers[f.itemC])
	// unassigned items continue the document counter
	assert.Equal(t, "4", itemNumbers[f.unassigned])
}

func TestAssignNumbersPerSection(t *testing.T) {
	f := newNumberingFixture()

	_, itemNumbers := service.AssignNumbers(f.sections, f.items, domain.NumberingPerSection)

	assert.Equal(t, "1", itemNumbers[f.itemA])
	assert.Equal(t, "2", itemNumbers[f.itemB])
	assert.Equal(t, "1", itemNumbers[f.itemC])
	// unassigned items get a plain counter of their own
	assert.Equal(t, "1", itemNumbers[f.unassigned])
}

func TestAssignNumbersHierarchical(t *testing.T) {
	f := newNumberingFixture()

	_, itemNumbers := service.AssignNumbers(f.sections, f.items, domain.NumberingHierarchical)

	assert.Equal(t, "1.1", itemNumbers[f.itemA])
	assert.Equal(t, "1.2", itemNumbers[f.itemB])
	assert.Equal(t, "2.1.1", itemNumbers[f.itemC])
	assert.Equal(t, "1", itemNumbers[f.unassigned])
}

func TestAssignNumbersOrdersBySortOrder(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	now := time.Now()
	// declaration order deliberately disagrees with sort order
	sections := []domain.Section{
		{BaseModel: domain.BaseModel{ID: a, CreatedAt: now}, SortOrder: 5},
		{BaseModel: domain.BaseModel{ID: b, CreatedAt: now}, SortOrder: 2},
	}

	sectionNumbers, _ := service.AssignNumbers(sections, nil, domain.NumberingPerSection)

	assert.Equal(t, "2", sectionNumbers[a])
	assert.Equal(t, "1", sectionNumbers[b])
}
