package ingest_test

import (
	"testing"

	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const genericXMLFixture = `<?xml version="1.0"?>
<export>
  <block caption="Земляные работы">
    <row num="1" name="Разработка грунта" kolvo="100" cena="50,5" unit="м3" code="ФЕР01-01-001"/>
    <row num="2" name="Вывоз грунта" kolvo="10" cena="20"/>
  </block>
  <row name="Прочие затраты" kolvo="1" cena="5"/>
</export>`

func TestGenericXMLAdapterParse(t *testing.T) {
	a := ingest.NewGenericXMLAdapter(zap.NewNop())

	doc, err := a.Parse([]byte(genericXMLFixture))
	require.NoError(t, err)
	assert.Equal(t, "xml-generic", doc.Meta.Adapter)
	require.Len(t, doc.Rows, 4)

	sec := doc.Rows[0]
	assert.Equal(t, domain.RowKindSection, sec.Kind)
	assert.Equal(t, "Земляные работы", sec.Name)
	assert.Empty(t, sec.SectionPath)

	item := doc.Rows[1]
	assert.Equal(t, domain.RowKindItem, item.Kind)
	assert.Equal(t, "Разработка грунта", item.Name)
	assert.Equal(t, "1", item.Number)
	assert.Equal(t, "м3", item.Unit)
	assert.Equal(t, "ФЕР01-01-001", item.Code)
	assert.Equal(t, []string{"Земляные работы"}, item.SectionPath)
	require.NotNil(t, item.Quantity)
	assert.Equal(t, 100.0, *item.Quantity)
	require.NotNil(t, item.UnitPrice)
	assert.Equal(t, 50.5, *item.UnitPrice)

	// the stray row outside any wrapper stays unassigned
	stray := doc.Rows[3]
	assert.Equal(t, "Прочие затраты", stray.Name)
	assert.Empty(t, stray.SectionPath)
}

func TestGenericXMLAdapterChildElements(t *testing.T) {
	// fields can live in child elements instead of attributes
	data := []byte(`<data>
	  <pos><name>Первая</name><qty>1</qty><price>10</price></pos>
	  <pos><name>Вторая</name><qty>2</qty><price>20</price></pos>
	</data>`)
	a := ingest.NewGenericXMLAdapter(zap.NewNop())

	doc, err := a.Parse(data)
	require.NoError(t, err)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, "Первая", doc.Rows[0].Name)
	require.NotNil(t, doc.Rows[1].UnitPrice)
	assert.Equal(t, 20.0, *doc.Rows[1].UnitPrice)
}

func TestGenericXMLAdapterNoItemGroup(t *testing.T) {
	a := ingest.NewGenericXMLAdapter(zap.NewNop())

	// repeated elements without name+price/quantity never qualify
	_, err := a.Parse([]byte(`<doc><meta x="1"/><meta x="2"/></doc>`))
	assert.ErrorIs(t, err, ingest.ErrNoHeader)
}

func TestGenericXMLAdapterUnparseable(t *testing.T) {
	a := ingest.NewGenericXMLAdapter(zap.NewNop())

	_, err := a.Parse([]byte(``))
	assert.ErrorIs(t, err, ingest.ErrUnparseable)
}
