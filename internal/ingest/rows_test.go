package ingest_test

import (
	"testing"

	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSectionNumber(t *testing.T) {
	for _, s := range []string{"1", "2.1", "2.1.3", "10.2.", " 3.4 "} {
		assert.True(t, ingest.IsSectionNumber(s), "%q", s)
	}
	for _, s := range []string{"", "a", "1a", "1,2", "1..2", ".1"} {
		assert.False(t, ingest.IsSectionNumber(s), "%q", s)
	}
}

func TestBuildTableClassifiesRows(t *testing.T) {
	rows := [][]string{
		{"№", "Наименование", "Ед.изм", "Кол-во", "Цена", "Сумма"},
		{"1", "Земляные работы", "", "", "", ""},
		{"1.1", "Подготовка", "", "", "", ""},
		{"", "Разработка грунта", "м3", "100", "50", "5000"},
		{"2", "Бетонные работы", "", "", "", ""},
		{"", "Устройство фундамента", "м3", "20", "1 500,5", "30010"},
		{"", "", "", "", "", ""},
	}

	headerIdx, _, imported, skipped, err := ingest.BuildTable(rows)
	require.NoError(t, err)
	assert.Equal(t, 0, headerIdx)
	assert.Equal(t, 1, skipped) // the fully empty row

	require.Len(t, imported, 5)

	assert.Equal(t, domain.RowKindSection, imported[0].Kind)
	assert.Equal(t, "1", imported[0].Number)
	assert.Equal(t, "Земляные работы", imported[0].Name)
	assert.Empty(t, imported[0].SectionPath)

	// "1.1" nests under "1"
	assert.Equal(t, domain.RowKindSection, imported[1].Kind)
	assert.Equal(t, []string{"1"}, imported[1].SectionPath)

	// the item attaches to the current section path
	item := imported[2]
	assert.Equal(t, domain.RowKindItem, item.Kind)
	assert.Equal(t, "Разработка грунта", item.Name)
	assert.Equal(t, []string{"1", "1.1"}, item.SectionPath)
	require.NotNil(t, item.Quantity)
	assert.Equal(t, 100.0, *item.Quantity)
	require.NotNil(t, item.Total)
	assert.Equal(t, 5000.0, *item.Total)
	assert.Equal(t, domain.ItemTypeWork, item.ItemType)

	// a top-level section truncates the path stack
	assert.Equal(t, domain.RowKindSection, imported[3].Kind)
	assert.Empty(t, imported[3].SectionPath)
	assert.Equal(t, []string{"2"}, imported[4].SectionPath)
	require.NotNil(t, imported[4].UnitPrice)
	assert.Equal(t, 1500.5, *imported[4].UnitPrice)
}

func TestBuildTableSectionWithoutNumber(t *testing.T) {
	rows := [][]string{
		{"№", "Наименование", "Ед.изм", "Кол-во", "Цена", "Сумма"},
		{"", "Накладные разделы", "", "", "", ""},
		{"", "Позиция", "шт", "2", "10", "20"},
	}

	_, _, imported, _, err := ingest.BuildTable(rows)
	require.NoError(t, err)
	require.Len(t, imported, 2)

	// a name-only row with no pricing is a section; its name is the path token
	assert.Equal(t, domain.RowKindSection, imported[0].Kind)
	assert.Equal(t, []string{"Накладные разделы"}, imported[1].SectionPath)
}

func TestBuildTableSourceLines(t *testing.T) {
	rows := [][]string{
		{"№", "Наименование", "Ед.изм", "Кол-во", "Цена", "Сумма"},
		{"", "Позиция", "шт", "2", "10", "20"},
	}

	_, _, imported, _, err := ingest.BuildTable(rows)
	require.NoError(t, err)
	require.Len(t, imported, 1)
	// 1-based over the source table
	assert.Equal(t, 2, imported[0].SourceLine)
}
