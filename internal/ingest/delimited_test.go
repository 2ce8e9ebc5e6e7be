package ingest_test

import (
	"strings"
	"testing"

	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

const delimitedFixture = `№;Наименование;Ед.изм;Кол-во;Цена;Сумма
1;Земляные работы;;;;
;Разработка грунта;м3;100;50,5;5050
;Вывоз грунта;т;10;20;200
`

func TestDelimitedAdapterParse(t *testing.T) {
	a := ingest.NewDelimitedAdapter(zap.NewNop())

	doc, err := a.Parse([]byte(delimitedFixture))
	require.NoError(t, err)

	assert.Equal(t, "delimited", doc.Meta.Adapter)
	assert.Equal(t, "utf-8", doc.Meta.Encoding)
	assert.Equal(t, ";", doc.Meta.Delimiter)
	assert.Equal(t, 1, doc.Meta.HeaderRow)

	require.Len(t, doc.Rows, 3)
	assert.Equal(t, domain.RowKindSection, doc.Rows[0].Kind)
	assert.Equal(t, "Земляные работы", doc.Rows[0].Name)

	item := doc.Rows[1]
	assert.Equal(t, domain.RowKindItem, item.Kind)
	assert.Equal(t, []string{"1"}, item.SectionPath)
	require.NotNil(t, item.UnitPrice)
	assert.Equal(t, 50.5, *item.UnitPrice)
}

func TestDelimitedAdapterLegacyEncoding(t *testing.T) {
	a := ingest.NewDelimitedAdapter(zap.NewNop())

	raw, err := charmap.Windows1251.NewEncoder().Bytes([]byte(delimitedFixture))
	require.NoError(t, err)

	doc, err := a.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "windows-1251", doc.Meta.Encoding)
	require.NotEmpty(t, doc.Rows)
	assert.Equal(t, "Земляные работы", doc.Rows[0].Name)
}

func TestDelimitedAdapterCommaDelimiter(t *testing.T) {
	a := ingest.NewDelimitedAdapter(zap.NewNop())
	fixture := strings.ReplaceAll(delimitedFixture, ";", ",")
	// comma decimals would collide with the delimiter, use dots
	fixture = strings.ReplaceAll(fixture, "50,5", "50.5")

	doc, err := a.Parse([]byte(fixture))
	require.NoError(t, err)
	assert.Equal(t, ",", doc.Meta.Delimiter)
	require.Len(t, doc.Rows, 3)
}

func TestDelimitedAdapterNoHeader(t *testing.T) {
	a := ingest.NewDelimitedAdapter(zap.NewNop())

	_, err := a.Parse([]byte("a;b;c\n1;2;3\n"))
	assert.ErrorIs(t, err, ingest.ErrNoHeader)
}

func TestDelimitedAdapterDetect(t *testing.T) {
	a := ingest.NewDelimitedAdapter(zap.NewNop())

	assert.Equal(t, 0.5, a.Detect([]byte(delimitedFixture)))
	assert.Equal(t, 0.0, a.Detect(nil))
	assert.Equal(t, 0.0, a.Detect([]byte("<xml/>")))
	assert.Equal(t, 0.0, a.Detect([]byte("no delimiters here at all")))
}
