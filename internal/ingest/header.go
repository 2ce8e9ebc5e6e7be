package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/smetaworks/estimate-api/internal/domain"
)

// Header detection for tabular sources. No schema is guaranteed for
// spreadsheet exports: real files bury the header row behind dozens of
// title/approval lines, so every row in the scan window is scored and the
// best candidate wins.

const (
	// headerScanLimit caps how many leading rows are considered
	headerScanLimit = 50

	// lowConfidenceFloor triggers the filled-column fallback when even the
	// best-scoring candidate looks weak
	lowConfidenceFloor = 40
)

// fieldOrder fixes the priority in which canonical fields claim columns
var fieldOrder = []domain.CanonicalField{
	domain.FieldNumber,
	domain.FieldName,
	domain.FieldUnit,
	domain.FieldQuantity,
	domain.FieldUnitPrice,
	domain.FieldTotal,
	domain.FieldCode,
}

// fieldKeywords maps canonical fields to normalized header keywords,
// Russian estimate vocabulary first, English fallbacks last.
var fieldKeywords = map[domain.CanonicalField][]string{
	domain.FieldNumber: {
		"№ п/п", "№ пп", "п/п", "номер по порядку", "номер", "№", "no.",
	},
	domain.FieldName: {
		"наименование работ и затрат", "наименование работ", "наименование",
		"работы и затраты", "позиция", "name", "description",
	},
	domain.FieldUnit: {
		"ед.изм", "ед. изм", "единица измерения", "измеритель", "unit",
	},
	domain.FieldQuantity: {
		"количество", "кол-во", "кол.во", "колич", "qty", "quantity",
	},
	domain.FieldUnitPrice: {
		"цена за ед", "стоимость единицы", "цена", "расценка", "price",
	},
	domain.FieldTotal: {
		"общая стоимость", "всего", "итого", "сумма", "total",
	},
	domain.FieldCode: {
		"обоснование", "шифр", "код", "норматив", "code",
	},
}

// boilerplateMarkers reject administrative rows outright: software banners,
// "based on ..." clauses and document titles are never headers.
var boilerplateMarkers = []string{
	"гранд-смета", "гранд смета", "программным комплексом", "программный комплекс",
	"составлена в", "составлен(а)", "на основании", "основание:",
	"утвержда", "согласован", "локальная смета", "локальный сметный расчет",
	"объектная смета", "сводный сметный",
}

// headerCandidate is one scored row
type headerCandidate struct {
	index int // 0-based row index
	score int
	cols  []domain.ColumnDetection
}

// DetectHeader locates the header row among the leading rows of a table and
// maps its columns to canonical fields. Returns the 0-based header row index.
// Failing to find any candidate is a hard ingestion error.
func DetectHeader(rows [][]string) (int, []domain.ColumnDetection, error) {
	limit := len(rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}

	var candidates []headerCandidate
	for i := 0; i < limit; i++ {
		if isBoilerplateRow(rows[i]) {
			continue
		}
		matched, distinct, cols := matchColumns(rows[i])
		filled := filledCellCount(rows[i])

		// Dynamic acceptance threshold: wide rows may clear with 2 keyword
		// columns, narrow ones need 3.
		threshold := 3
		if filled >= 6 {
			threshold = 2
		}
		if matched < threshold {
			continue
		}

		score := scoreCandidate(rows, i, matched, distinct, filled)
		candidates = append(candidates, headerCandidate{index: i, score: score, cols: cols})
	}

	if len(candidates) == 0 {
		return 0, nil, ErrNoHeader
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score {
			best = c
		}
	}

	if best.score < lowConfidenceFloor {
		if idx, ok := fallbackByFilledColumns(rows); ok {
			_, _, cols := matchColumns(rows[idx])
			return idx, cols, nil
		}
	}

	return best.index, best.cols, nil
}

// scoreCandidate computes the composite score of one candidate row.
// The weights favor rows that look like a real multi-column header followed
// by actual data.
func scoreCandidate(rows [][]string, idx, matched, distinct, filled int) int {
	score := matched * 10

	// A header repeating one keyword across many columns is weaker than one
	// matching several distinct keyword types.
	score += distinct * 8

	// Positional band: estimate headers live well below the title block
	line := idx + 1
	switch {
	case line >= 15 && line <= 40:
		score += 15
	case line < 10:
		score -= 10
	}

	// Filled-column band: ideal headers have 6-12 columns
	switch {
	case filled <= 2:
		score -= 25
	case filled >= 6 && filled <= 12:
		score += 10
	case filled > 20:
		score -= 5
	}

	// Cell-length band: header cells are short labels
	avg := averageCellLength(rows[idx])
	switch {
	case avg > 100:
		score -= 40
	case avg > 60:
		score -= 10
	case avg >= 10 && avg <= 40:
		score += 10
	}

	// A long first cell is a section caption, not a header
	if len(rows[idx]) > 0 && utf8.RuneCountInString(rows[idx][0]) > 50 {
		score -= 20
	}

	// Validation: the rows right below a real header mix numbers and text
	if followingRowsLookLikeData(rows, idx) {
		score += 20
	} else {
		score -= 25
	}

	return score
}

// followingRowsLookLikeData inspects up to three non-empty rows after the
// candidate and requires at least one with both numeric and textual cells.
func followingRowsLookLikeData(rows [][]string, idx int) bool {
	seen := 0
	for i := idx + 1; i < len(rows) && seen < 3; i++ {
		if filledCellCount(rows[i]) == 0 {
			continue
		}
		seen++
		numeric, textual := 0, 0
		for _, cell := range rows[i] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if IsNumericCell(cell) {
				numeric++
			} else {
				textual++
			}
		}
		if numeric > 0 && textual > 0 {
			return true
		}
	}
	return false
}

// fallbackByFilledColumns reselects the candidate in rows 20-40 with the
// most filled columns (minimum 5), used when the best score is below the
// low-confidence floor.
func fallbackByFilledColumns(rows [][]string) (int, bool) {
	bestIdx, bestFilled := -1, 4
	hi := len(rows)
	if hi > 40 {
		hi = 40
	}
	for i := 19; i < hi; i++ {
		if isBoilerplateRow(rows[i]) {
			continue
		}
		if filled := filledCellCount(rows[i]); filled > bestFilled {
			bestIdx, bestFilled = i, filled
		}
	}
	return bestIdx, bestIdx >= 0
}

// matchColumns maps each column of a row to a canonical field. First match
// wins per field; every column claims at most one field. Returns the number
// of matched columns, the count of distinct fields matched, and the mapping.
func matchColumns(row []string) (matched, distinct int, cols []domain.ColumnDetection) {
	taken := make(map[domain.CanonicalField]bool)
	for col, cell := range row {
		norm := normalizeHeader(cell)
		if norm == "" {
			continue
		}
		for _, field := range fieldOrder {
			if taken[field] {
				continue
			}
			if kw, ok := matchKeyword(norm, fieldKeywords[field]); ok {
				taken[field] = true
				cols = append(cols, domain.ColumnDetection{
					Column:     col,
					Field:      field,
					Header:     strings.TrimSpace(cell),
					Confidence: keywordConfidence(norm, kw),
				})
				matched++
				break
			}
		}
	}
	distinct = len(taken)
	return matched, distinct, cols
}

// matchKeyword returns the first keyword contained in the normalized header
func matchKeyword(norm string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(norm, kw) {
			return kw, true
		}
	}
	return "", false
}

// keywordConfidence is the ratio of matched-keyword length to header length,
// 1.0 for exact equality.
func keywordConfidence(norm, keyword string) float64 {
	if norm == keyword {
		return 1.0
	}
	hl := utf8.RuneCountInString(norm)
	if hl == 0 {
		return 0
	}
	conf := float64(utf8.RuneCountInString(keyword)) / float64(hl)
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

func isBoilerplateRow(row []string) bool {
	joined := normalizeHeader(strings.Join(row, " "))
	for _, marker := range boilerplateMarkers {
		if strings.Contains(joined, marker) {
			return true
		}
	}
	return false
}

func filledCellCount(row []string) int {
	n := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			n++
		}
	}
	return n
}

func averageCellLength(row []string) int {
	total, filled := 0, 0
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		total += utf8.RuneCountInString(cell)
		filled++
	}
	if filled == 0 {
		return 0
	}
	return total / filled
}

// normalizeHeader lowercases, collapses whitespace and unifies ё/е so
// keyword matching is insensitive to header formatting.
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "ё", "е")
	s = strings.Join(strings.Fields(s), " ")
	return s
}
