package ingest

import (
	"regexp"
	"strings"

	"github.com/smetaworks/estimate-api/internal/domain"
)

// sectionNumberPattern matches hierarchical section numbers: "1", "2.1",
// "2.1.3.", with an optional trailing dot.
var sectionNumberPattern = regexp.MustCompile(`^\d+(\.\d+)*\.?$`)

// IsSectionNumber reports whether a number cell looks like a hierarchical
// section number.
func IsSectionNumber(s string) bool {
	return sectionNumberPattern.MatchString(strings.TrimSpace(s))
}

// sectionDepth returns the dot-count of a hierarchical number ("2.1.3" -> 2).
// Trailing dots do not count.
func sectionDepth(number string) int {
	number = strings.TrimSuffix(strings.TrimSpace(number), ".")
	if number == "" {
		return 0
	}
	return strings.Count(number, ".")
}

// rawRow is an extracted table row with canonical fields resolved but not
// yet classified.
type rawRow struct {
	sourceLine int // 1-based
	number     string
	name       string
	unit       string
	code       string
	quantity   *float64
	unitPrice  *float64
	total      *float64
}

// resolveRow applies a column mapping to one table row
func resolveRow(row []string, cols []domain.ColumnDetection, sourceLine int) rawRow {
	r := rawRow{sourceLine: sourceLine}
	for _, c := range cols {
		if c.Column >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[c.Column])
		switch c.Field {
		case domain.FieldNumber:
			r.number = cell
		case domain.FieldName:
			r.name = cell
		case domain.FieldUnit:
			r.unit = cell
		case domain.FieldCode:
			r.code = cell
		case domain.FieldQuantity:
			r.quantity = ParseNumber(cell)
		case domain.FieldUnitPrice:
			r.unitPrice = ParseNumber(cell)
		case domain.FieldTotal:
			r.total = ParseNumber(cell)
		}
	}
	return r
}

// classify decides whether a resolved row is a section marker, a line item,
// or an empty row to discard.
//
// A row is a section marker iff it has a name but lacks both a positive
// quantity and a positive unit price, or its number field matches the
// hierarchical pattern. Rows with neither name, quantity nor price are empty.
func classify(r rawRow) (domain.ImportRowKind, bool) {
	hasName := r.name != ""
	hasQty := r.quantity != nil && *r.quantity > 0
	hasPrice := r.unitPrice != nil && *r.unitPrice > 0

	if !hasName && !hasQty && !hasPrice {
		return "", false
	}
	if hasName && !hasQty && !hasPrice {
		return domain.RowKindSection, true
	}
	if r.number != "" && IsSectionNumber(r.number) && !hasQty && !hasPrice {
		return domain.RowKindSection, true
	}
	if hasName {
		return domain.RowKindItem, true
	}
	return "", false
}

// pathEntry is one level of the current-section stack
type pathEntry struct {
	token string
}

// BuildRows classifies resolved rows top to bottom and assembles the flat
// ImportDocument row list. The builder maintains a current-section path
// stack: a section at depth d truncates the stack to d entries and pushes
// itself; items attach to the path as stacked. This reproduces nested
// section semantics from a flat row stream without parent pointers in the
// source.
func BuildRows(raws []rawRow) (rows []domain.ImportRow, skipped int) {
	var stack []pathEntry

	for _, r := range raws {
		kind, ok := classify(r)
		if !ok {
			skipped++
			continue
		}

		switch kind {
		case domain.RowKindSection:
			depth := sectionDepth(r.number)
			if depth > len(stack) {
				// A child section with missing intermediate levels attaches
				// at the deepest level actually present.
				depth = len(stack)
			}
			stack = stack[:depth]

			token := strings.TrimSuffix(strings.TrimSpace(r.number), ".")
			if token == "" {
				token = r.name
			}
			stack = append(stack, pathEntry{token: token})

			rows = append(rows, domain.ImportRow{
				Kind:        domain.RowKindSection,
				SourceLine:  r.sourceLine,
				Number:      strings.TrimSuffix(strings.TrimSpace(r.number), "."),
				Name:        r.name,
				SectionPath: pathTokens(stack[:len(stack)-1]),
			})

		case domain.RowKindItem:
			rows = append(rows, domain.ImportRow{
				Kind:        domain.RowKindItem,
				SourceLine:  r.sourceLine,
				Number:      r.number,
				Name:        r.name,
				Unit:        r.unit,
				Code:        r.code,
				Quantity:    r.quantity,
				UnitPrice:   r.unitPrice,
				Total:       r.total,
				ItemType:    domain.ItemTypeWork,
				SectionPath: pathTokens(stack),
			})
		}
	}
	return rows, skipped
}

func pathTokens(stack []pathEntry) []string {
	if len(stack) == 0 {
		return nil
	}
	tokens := make([]string, len(stack))
	for i, e := range stack {
		tokens[i] = e.token
	}
	return tokens
}

// BuildTable runs header detection, row resolution and classification over
// a generic string table. headerIdx is 0-based within rows. Shared by the
// spreadsheet and delimited adapters.
func BuildTable(rows [][]string) (headerIdx int, cols []domain.ColumnDetection, imported []domain.ImportRow, skipped int, err error) {
	headerIdx, cols, err = DetectHeader(rows)
	if err != nil {
		return 0, nil, nil, 0, err
	}

	raws := make([]rawRow, 0, len(rows)-headerIdx-1)
	for i := headerIdx + 1; i < len(rows); i++ {
		raws = append(raws, resolveRow(rows[i], cols, i+1))
	}
	imported, skipped = BuildRows(raws)
	return headerIdx, cols, imported, skipped, nil
}
