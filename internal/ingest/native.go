package ingest

import (
	"bytes"
	"encoding/json"

	"github.com/smetaworks/estimate-api/internal/domain"
)

const nativeAdapterName = "native"

// NativeAdapter reads the self-describing native export: the JSON shape of
// ImportDocument itself, as produced by this system's own export. It is the
// highest-priority adapter because the format is unambiguous.
type NativeAdapter struct{}

// NewNativeAdapter creates the native-export adapter
func NewNativeAdapter() *NativeAdapter {
	return &NativeAdapter{}
}

func (a *NativeAdapter) Name() string { return nativeAdapterName }

// Detect requires a JSON object carrying the ImportDocument marker fields
func (a *NativeAdapter) Detect(data []byte) float64 {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte("{")) {
		return 0
	}
	if bytes.Contains(data, []byte(`"rows"`)) && bytes.Contains(data, []byte(`"meta"`)) {
		return 0.95
	}
	return 0
}

// Parse unmarshals the export and restamps the adapter metadata
func (a *NativeAdapter) Parse(data []byte) (*domain.ImportDocument, error) {
	var doc domain.ImportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, ingestErr(nativeAdapterName, 0, ErrUnparseable)
	}
	if len(doc.Rows) == 0 {
		return nil, ingestErr(nativeAdapterName, 0, ErrUnreadable)
	}
	doc.Meta.Adapter = nativeAdapterName
	for i := range doc.Rows {
		if doc.Rows[i].Kind == domain.RowKindItem && !doc.Rows[i].ItemType.IsValid() {
			doc.Rows[i].ItemType = domain.ItemTypeWork
		}
	}
	return &doc, nil
}
