package ingest

import (
	"bytes"

	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const spreadsheetAdapterName = "spreadsheet"

// zipMagic is the local-file-header signature every XLSX starts with
var zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// SpreadsheetAdapter reads tabular XLSX exports. The sheet with the most
// filled rows is treated as the estimate table; header discovery and row
// classification then run the shared table pipeline.
type SpreadsheetAdapter struct {
	logger *zap.Logger
}

// NewSpreadsheetAdapter creates an XLSX adapter
func NewSpreadsheetAdapter(logger *zap.Logger) *SpreadsheetAdapter {
	return &SpreadsheetAdapter{logger: logger}
}

func (a *SpreadsheetAdapter) Name() string { return spreadsheetAdapterName }

// Detect checks the ZIP container signature
func (a *SpreadsheetAdapter) Detect(data []byte) float64 {
	if bytes.HasPrefix(data, zipMagic) {
		return 0.9
	}
	return 0
}

// Parse opens the workbook and runs the table pipeline on its widest sheet
func (a *SpreadsheetAdapter) Parse(data []byte) (*domain.ImportDocument, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, ingestErr(spreadsheetAdapterName, 0, ErrUnreadable)
	}
	defer func() { _ = f.Close() }()

	sheet, rows, err := a.pickSheet(f)
	if err != nil {
		return nil, err
	}

	headerIdx, cols, imported, skipped, err := BuildTable(rows)
	if err != nil {
		return nil, ingestErr(spreadsheetAdapterName, 0, err)
	}

	a.logger.Debug("spreadsheet parse complete",
		zap.String("sheet", sheet),
		zap.Int("header_row", headerIdx+1),
		zap.Int("rows", len(imported)),
		zap.Int("skipped", skipped))

	return &domain.ImportDocument{
		Meta: domain.ImportMeta{
			Adapter:     spreadsheetAdapterName,
			HeaderRow:   headerIdx + 1,
			SkippedRows: skipped,
		},
		Columns: cols,
		Rows:    imported,
	}, nil
}

// pickSheet returns the sheet with the most non-empty rows
func (a *SpreadsheetAdapter) pickSheet(f *excelize.File) (string, [][]string, error) {
	var bestName string
	var bestRows [][]string
	bestCount := -1

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		count := 0
		for _, row := range rows {
			if filledCellCount(row) > 0 {
				count++
			}
		}
		if count > bestCount {
			bestName, bestRows, bestCount = name, rows, count
		}
	}
	if bestCount <= 0 {
		return "", nil, ingestErr(spreadsheetAdapterName, 0, ErrUnreadable)
	}
	return bestName, bestRows, nil
}
