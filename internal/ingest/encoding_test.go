package ingest_test

import (
	"testing"

	"github.com/smetaworks/estimate-api/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func encodeWith(t *testing.T, cm *charmap.Charmap, s string) []byte {
	t.Helper()
	out, err := cm.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return out
}

func TestDetectEncodingUTF8(t *testing.T) {
	name, decoded, err := ingest.DetectEncoding([]byte("Наименование;Цена"))
	require.NoError(t, err)
	assert.Equal(t, "utf-8", name)
	assert.Equal(t, "Наименование;Цена", string(decoded))
}

func TestDetectEncodingUTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Цена")...)
	name, decoded, err := ingest.DetectEncoding(data)
	require.NoError(t, err)
	assert.Equal(t, "utf-8-bom", name)
	assert.Equal(t, "Цена", string(decoded))
}

func TestDetectEncodingWindows1251(t *testing.T) {
	raw := encodeWith(t, charmap.Windows1251, "Наименование работ и затрат; Цена за единицу")

	name, decoded, err := ingest.DetectEncoding(raw)
	require.NoError(t, err)
	assert.Equal(t, "windows-1251", name)
	assert.Contains(t, string(decoded), "Наименование")
}

func TestDetectEncodingKOI8R(t *testing.T) {
	// ё maps outside the Cyrillic letter block under the competing
	// charmaps, so it decides the tie in favor of koi8-r
	raw := encodeWith(t, charmap.KOI8R, "зелёные ёлки и ёмкость за трёхдневный объём")

	name, decoded, err := ingest.DetectEncoding(raw)
	require.NoError(t, err)
	assert.Equal(t, "koi8-r", name)
	assert.Contains(t, string(decoded), "ёлки")
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ';', ingest.DetectDelimiter("a;b;c;d\n1,2"))
	assert.Equal(t, ',', ingest.DetectDelimiter("a,b,c\nx;y"))
	assert.Equal(t, '\t', ingest.DetectDelimiter("a\tb\tc"))
	assert.Equal(t, '|', ingest.DetectDelimiter("a|b|c|d"))
	// the first non-empty line decides
	assert.Equal(t, ';', ingest.DetectDelimiter("\n\na;b\nc,d,e,f"))
	// no delimiter at all falls back to the default
	assert.Equal(t, ';', ingest.DetectDelimiter("plain text"))
}
