package ingest_test

import (
	"testing"

	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// buildWorkbook writes rows into a sheet and returns the XLSX bytes
func buildWorkbook(t *testing.T, sheet string, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestSpreadsheetAdapterParse(t *testing.T) {
	data := buildWorkbook(t, "Смета", [][]interface{}{
		{"ЛОКАЛЬНАЯ СМЕТА"},
		{},
		{"№", "Наименование", "Ед.изм", "Кол-во", "Цена", "Сумма"},
		{"1", "Земляные работы", "", "", "", ""},
		{"", "Разработка грунта", "м3", "100", "50", "5000"},
	})

	a := ingest.NewSpreadsheetAdapter(zap.NewNop())
	assert.Equal(t, 0.9, a.Detect(data))

	doc, err := a.Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "spreadsheet", doc.Meta.Adapter)
	assert.Equal(t, 3, doc.Meta.HeaderRow)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, domain.RowKindSection, doc.Rows[0].Kind)

	item := doc.Rows[1]
	assert.Equal(t, domain.RowKindItem, item.Kind)
	assert.Equal(t, []string{"1"}, item.SectionPath)
	require.NotNil(t, item.Quantity)
	assert.Equal(t, 100.0, *item.Quantity)
}

func TestSpreadsheetAdapterPicksWidestSheet(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// the first sheet holds a lone title, the second the actual table
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Титульный лист"}))
	_, err := f.NewSheet("Данные")
	require.NoError(t, err)
	table := [][]interface{}{
		{"№", "Наименование", "Ед.изм", "Кол-во", "Цена", "Сумма"},
		{"", "Позиция 1", "шт", "1", "10", "10"},
		{"", "Позиция 2", "шт", "2", "20", "40"},
	}
	for i, row := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Данные", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	a := ingest.NewSpreadsheetAdapter(zap.NewNop())
	doc, err := a.Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, doc.Rows, 2)
}

func TestSpreadsheetAdapterUnreadable(t *testing.T) {
	a := ingest.NewSpreadsheetAdapter(zap.NewNop())

	_, err := a.Parse([]byte{0x50, 0x4B, 0x03, 0x04, 0xFF})
	assert.ErrorIs(t, err, ingest.ErrUnreadable)
}
