package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/smetaworks/estimate-api/internal/domain"
	"go.uber.org/zap"
)

const delimitedAdapterName = "delimited"

// DelimitedAdapter reads delimited text exports with unknown delimiter and
// encoding. Both are detected before any row is interpreted.
type DelimitedAdapter struct {
	logger *zap.Logger
}

// NewDelimitedAdapter creates a delimited-text adapter
func NewDelimitedAdapter(logger *zap.Logger) *DelimitedAdapter {
	return &DelimitedAdapter{logger: logger}
}

func (a *DelimitedAdapter) Name() string { return delimitedAdapterName }

// Detect accepts anything that decodes to text with at least one delimiter
// in its first non-empty line. It is the lowest-priority adapter: markup
// and binary formats are claimed by more specific adapters first.
func (a *DelimitedAdapter) Detect(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	_, decoded, err := DetectEncoding(data)
	if err != nil {
		return 0
	}
	text := string(decoded)
	if strings.HasPrefix(strings.TrimSpace(text), "<") {
		return 0
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, d := range delimiterCandidates {
			if strings.ContainsRune(line, d) {
				return 0.5
			}
		}
		return 0
	}
	return 0
}

// Parse decodes, splits and classifies the delimited rows
func (a *DelimitedAdapter) Parse(data []byte) (*domain.ImportDocument, error) {
	encName, decoded, err := DetectEncoding(data)
	if err != nil {
		return nil, ingestErr(delimitedAdapterName, 0, err)
	}
	text := string(decoded)
	delimiter := DetectDelimiter(text)

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	var warnings []string
	line := 0
	for {
		record, err := reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// malformed rows inside an otherwise good file are skipped
			warnings = append(warnings, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		rows = append(rows, record)
	}
	if len(rows) == 0 {
		return nil, ingestErr(delimitedAdapterName, 0, ErrUnreadable)
	}

	headerIdx, cols, imported, skipped, err := BuildTable(rows)
	if err != nil {
		return nil, ingestErr(delimitedAdapterName, 0, err)
	}

	a.logger.Debug("delimited parse complete",
		zap.String("encoding", encName),
		zap.String("delimiter", string(delimiter)),
		zap.Int("header_row", headerIdx+1),
		zap.Int("rows", len(imported)),
		zap.Int("skipped", skipped))

	return &domain.ImportDocument{
		Meta: domain.ImportMeta{
			Adapter:     delimitedAdapterName,
			Encoding:    encName,
			Delimiter:   string(delimiter),
			HeaderRow:   headerIdx + 1,
			SkippedRows: skipped + len(warnings),
		},
		Columns:  cols,
		Rows:     imported,
		Warnings: warnings,
	}, nil
}
