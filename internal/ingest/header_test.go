package ingest_test

import (
	"fmt"
	"testing"

	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// estimateTable is a typical spreadsheet export: title block, software
// banner, then the real header followed by data.
func estimateTable() [][]string {
	return [][]string{
		{"ЛОКАЛЬНАЯ СМЕТА № 02-01-01"},
		{"Составлена в программном комплексе ГРАНД-Смета"},
		{"на основании проектной документации"},
		{},
		{"№ п/п", "Обоснование", "Наименование работ и затрат", "Ед.изм.", "Кол-во", "Цена за ед.", "Всего"},
		{"1", "", "Земляные работы", "", "", "", ""},
		{"1.1", "ФЕР01-01-001", "Разработка грунта", "м3", "100", "50,5", "5050"},
		{"1.2", "ФЕР01-02-003", "Вывоз грунта", "т", "10", "20", "200"},
	}
}

func TestDetectHeaderFindsHeaderRow(t *testing.T) {
	rows := estimateTable()

	idx, cols, err := ingest.DetectHeader(rows)
	require.NoError(t, err)
	assert.Equal(t, 4, idx)

	fields := map[domain.CanonicalField]int{}
	for _, c := range cols {
		fields[c.Field] = c.Column
	}
	assert.Equal(t, 0, fields[domain.FieldNumber])
	assert.Equal(t, 1, fields[domain.FieldCode])
	assert.Equal(t, 2, fields[domain.FieldName])
	assert.Equal(t, 3, fields[domain.FieldUnit])
	assert.Equal(t, 4, fields[domain.FieldQuantity])
	assert.Equal(t, 5, fields[domain.FieldUnitPrice])
	assert.Equal(t, 6, fields[domain.FieldTotal])
}

func TestDetectHeaderBuriedDeep(t *testing.T) {
	// a long title/approval block pushes the header down to line 32
	rows := [][]string{
		{"ЛОКАЛЬНЫЙ СМЕТНЫЙ РАСЧЕТ № 02-01-01"},
		{"на устройство монолитных конструкций"},
		{"Составлена в программном комплексе ГРАНД-Смета"},
	}
	for len(rows) < 31 {
		rows = append(rows, []string{})
	}
	rows = append(rows, []string{"№ п/п", "Обоснование", "Наименование работ и затрат", "Ед. изм.", "Кол-во", "Цена за ед.", "Всего"})

	rows = append(rows, []string{"1", "", "Земляные работы", "", "", "", ""})
	for i := 0; i < 18; i++ {
		rows = append(rows, []string{"", "ФЕР01-01-001", fmt.Sprintf("Работа %d", i+1), "м3", "10", "50", "500"})
	}
	rows = append(rows, []string{"2", "", "Бетонные работы", "", "", "", ""})
	rows = append(rows, []string{"2.1", "", "Фундаменты", "", "", "", ""})
	for i := 0; i < 19; i++ {
		rows = append(rows, []string{"", "ФЕР06-01-001", fmt.Sprintf("Монтаж %d", i+1), "шт", "2", "30", "60"})
	}

	headerIdx, _, imported, skipped, err := ingest.BuildTable(rows)
	require.NoError(t, err)
	assert.Equal(t, 31, headerIdx)
	assert.Equal(t, 0, skipped)

	var sections, items int
	for _, r := range imported {
		if r.Kind == domain.RowKindSection {
			sections++
		} else {
			items++
		}
	}
	assert.Equal(t, 3, sections)
	assert.Equal(t, 37, items)

	// the trailing items nest under section 2.1
	last := imported[len(imported)-1]
	assert.Equal(t, domain.RowKindItem, last.Kind)
	assert.Equal(t, []string{"2", "2.1"}, last.SectionPath)
}

func TestDetectHeaderLowConfidenceFallback(t *testing.T) {
	// the only keyword candidate sits high up with nothing data-like below
	// it, so its score stays under the floor and the widest row of the
	// 20-40 band wins instead
	rows := [][]string{
		{"Ведомость объемов"},
		{"Наименование", "Кол-во", "Цена"},
	}
	for len(rows) < 24 {
		rows = append(rows, []string{"пояснения к ведомости"})
	}
	rows = append(rows, []string{"гр.1", "гр.2", "гр.3", "гр.4", "гр.5", "гр.6"})
	rows = append(rows, []string{"подпись", "дата"})

	idx, cols, err := ingest.DetectHeader(rows)
	require.NoError(t, err)
	assert.Equal(t, 24, idx)
	assert.Empty(t, cols)
}

func TestDetectHeaderSkipsBoilerplate(t *testing.T) {
	// a banner row carrying header-like words must never win
	rows := [][]string{
		{"Смета составлена в ценах", "наименование", "количество", "цена", "сумма", "ед.изм"},
		{"Составлена в программном комплексе"},
		{"№", "Наименование", "Ед.изм", "Кол-во", "Цена", "Сумма"},
		{"1", "Работы", "м2", "5", "10", "50"},
	}

	idx, _, err := ingest.DetectHeader(rows)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestDetectHeaderNoCandidate(t *testing.T) {
	rows := [][]string{
		{"Пояснительная записка"},
		{"Объект: жилой дом"},
		{"Адрес: г. Москва"},
	}

	_, _, err := ingest.DetectHeader(rows)
	assert.ErrorIs(t, err, ingest.ErrNoHeader)
}

func TestDetectHeaderConfidenceIsExactForEqualMatch(t *testing.T) {
	rows := estimateTable()

	_, cols, err := ingest.DetectHeader(rows)
	require.NoError(t, err)

	for _, c := range cols {
		assert.Greater(t, c.Confidence, 0.0, "column %d", c.Column)
		assert.LessOrEqual(t, c.Confidence, 1.0, "column %d", c.Column)
		if c.Field == domain.FieldQuantity {
			// "Кол-во" matches its keyword exactly
			assert.Equal(t, 1.0, c.Confidence)
		}
	}
}
