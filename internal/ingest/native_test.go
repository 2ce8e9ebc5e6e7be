package ingest_test

import (
	"testing"

	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeAdapterDetect(t *testing.T) {
	a := ingest.NewNativeAdapter()

	assert.Equal(t, 0.95, a.Detect([]byte(`{"meta": {}, "rows": []}`)))
	assert.Equal(t, 0.0, a.Detect([]byte(`{"something": "else"}`)))
	assert.Equal(t, 0.0, a.Detect([]byte(`[1,2,3]`)))
	assert.Equal(t, 0.0, a.Detect([]byte(`<estimate/>`)))
}

func TestNativeAdapterParse(t *testing.T) {
	a := ingest.NewNativeAdapter()
	data := []byte(`{
	  "name": "Смета",
	  "meta": {"adapter": "stale-value"},
	  "rows": [
	    {"kind": "section", "number": "1", "name": "Раздел"},
	    {"kind": "item", "name": "Позиция", "quantity": 2, "unitPrice": 10, "sectionPath": ["1"]}
	  ]
	}`)

	doc, err := a.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Смета", doc.Name)
	// adapter metadata is restamped on parse
	assert.Equal(t, "native", doc.Meta.Adapter)
	require.Len(t, doc.Rows, 2)

	// items without a valid type default to work
	assert.Equal(t, domain.ItemTypeWork, doc.Rows[1].ItemType)
}

func TestNativeAdapterParseErrors(t *testing.T) {
	a := ingest.NewNativeAdapter()

	_, err := a.Parse([]byte(`{"meta": {}, "rows": [`))
	assert.ErrorIs(t, err, ingest.ErrUnparseable)

	_, err = a.Parse([]byte(`{"meta": {}, "rows": []}`))
	assert.ErrorIs(t, err, ingest.ErrUnreadable)

	var ingErr *ingest.Error
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, "native", ingErr.Adapter)
}
