package ingest_test

import (
	"testing"

	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rigidXMLFixture = `<?xml version="1.0" encoding="UTF-8"?>
<estimate name="Локальная смета" type="local" program="Estimator 11.2">
  <item number="0" name="Допуск СРО" quantity="1" price="5 000,5"/>
  <section number="1" name="Земляные работы">
    <item number="1.1" name="Разработка грунта" unit="м3" code="ФЕР01-01-001"
          type="work" quantity="100" price="50" total="5000"/>
    <section number="1.1" name="Подготовка">
      <item name="Планировка" unit="м2" type="machinery" quantity="10" price="7,5"/>
    </section>
  </section>
</estimate>`

func TestRigidXMLAdapterDetect(t *testing.T) {
	a := ingest.NewRigidXMLAdapter()

	assert.Equal(t, 0.95, a.Detect([]byte(rigidXMLFixture)))
	assert.Equal(t, 0.0, a.Detect([]byte(`<export><row/></export>`)))
}

func TestRigidXMLAdapterParse(t *testing.T) {
	a := ingest.NewRigidXMLAdapter()

	doc, err := a.Parse([]byte(rigidXMLFixture))
	require.NoError(t, err)

	assert.Equal(t, "Локальная смета", doc.Name)
	assert.Equal(t, "xml", doc.Meta.Adapter)
	assert.Equal(t, "local", doc.Meta.EstimateType)
	assert.Equal(t, "Estimator 11.2", doc.Meta.ProgramVersion)

	require.Len(t, doc.Rows, 5)

	// root-level items come first, outside any section
	rootItem := doc.Rows[0]
	assert.Equal(t, domain.RowKindItem, rootItem.Kind)
	assert.Empty(t, rootItem.SectionPath)
	require.NotNil(t, rootItem.UnitPrice)
	assert.Equal(t, 5000.5, *rootItem.UnitPrice)

	sec := doc.Rows[1]
	assert.Equal(t, domain.RowKindSection, sec.Kind)
	assert.Equal(t, "1", sec.Number)
	assert.Equal(t, "Земляные работы", sec.Name)

	item := doc.Rows[2]
	assert.Equal(t, domain.RowKindItem, item.Kind)
	assert.Equal(t, []string{"1"}, item.SectionPath)
	assert.Equal(t, "ФЕР01-01-001", item.Code)
	assert.Equal(t, domain.ItemTypeWork, item.ItemType)
	require.NotNil(t, item.Total)
	assert.Equal(t, 5000.0, *item.Total)

	nested := doc.Rows[3]
	assert.Equal(t, domain.RowKindSection, nested.Kind)
	assert.Equal(t, []string{"1"}, nested.SectionPath)

	nestedItem := doc.Rows[4]
	assert.Equal(t, []string{"1", "1.1"}, nestedItem.SectionPath)
	assert.Equal(t, domain.ItemTypeMachinery, nestedItem.ItemType)
}

func TestRigidXMLAdapterUnknownTypeDefaultsToWork(t *testing.T) {
	a := ingest.NewRigidXMLAdapter()
	data := []byte(`<estimate><item name="x" type="whatever" quantity="1" price="1"/></estimate>`)

	doc, err := a.Parse(data)
	require.NoError(t, err)
	require.Len(t, doc.Rows, 1)
	assert.Equal(t, domain.ItemTypeWork, doc.Rows[0].ItemType)
}

func TestRigidXMLAdapterUnparseable(t *testing.T) {
	a := ingest.NewRigidXMLAdapter()

	_, err := a.Parse([]byte(`<estimate><section`))
	assert.ErrorIs(t, err, ingest.ErrUnparseable)
}

func TestRigidXMLAdapterSkipsNamelessItems(t *testing.T) {
	a := ingest.NewRigidXMLAdapter()
	data := []byte(`<estimate><item quantity="1" price="1"/><item name="ok" quantity="1" price="1"/></estimate>`)

	doc, err := a.Parse(data)
	require.NoError(t, err)
	require.Len(t, doc.Rows, 1)
	assert.Equal(t, "ok", doc.Rows[0].Name)
}
