package ingest_test

import (
	"testing"

	"github.com/smetaworks/estimate-api/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func defaultRegistry() *ingest.Registry {
	return ingest.NewDefaultRegistry(zap.NewNop())
}

func TestRegistryResolvesByContent(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		adapter string
	}{
		{"native json", []byte(`{"meta": {"adapter": "native"}, "rows": [{"kind": "item", "name": "x"}]}`), "native"},
		{"xlsx container", []byte{0x50, 0x4B, 0x03, 0x04, 0x00, 0x00}, "spreadsheet"},
		{"rigid xml", []byte(`<?xml version="1.0"?><estimate name="Смета"></estimate>`), "xml"},
		{"generic xml", []byte(`<?xml version="1.0"?><export><row name="x" price="1"/></export>`), "xml-generic"},
		{"delimited text", []byte("№;Наименование;Цена\n1;Работы;100\n"), "delimited"},
	}

	r := defaultRegistry()
	for _, tt := range tests {
		adapter, err := r.Resolve(tt.data)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.adapter, adapter.Name(), tt.name)
	}
}

func TestRegistryNoAdapter(t *testing.T) {
	r := defaultRegistry()

	_, err := r.Resolve([]byte{0x00, 0x01, 0x02})
	assert.ErrorIs(t, err, ingest.ErrNoAdapter)
}

func TestRegistryGet(t *testing.T) {
	r := defaultRegistry()

	adapter, ok := r.Get("native")
	require.True(t, ok)
	assert.Equal(t, "native", adapter.Name())

	_, ok = r.Get("unknown")
	assert.False(t, ok)
}

func TestRegistryPriorityOrder(t *testing.T) {
	// a native export also looks like text to the delimited adapter; the
	// higher priority must win
	r := defaultRegistry()
	data := []byte(`{"meta": {"adapter": "native"}, "rows": [{"kind": "item", "name": "a;b"}]}`)

	adapter, err := r.Resolve(data)
	require.NoError(t, err)
	assert.Equal(t, "native", adapter.Name())
}
