package ingest

import (
	"strconv"
	"strings"
)

// ParseNumber parses a numeric cell leniently: thousands separators and
// whitespace (including non-breaking spaces) are stripped, a comma decimal
// separator is converted to a dot. Returns nil on total failure; numeric
// problems are never fatal to an ingestion.
func ParseNumber(s string) *float64 {
	cleaned := cleanNumeric(s)
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseNumberOrZero is ParseNumber with a zero default
func ParseNumberOrZero(s string) float64 {
	if v := ParseNumber(s); v != nil {
		return *v
	}
	return 0
}

func cleanNumeric(s string) string {
	var b strings.Builder
	s = strings.TrimSpace(s)

	// "1 234 567,89" and "1.234.567,89" both mean 1234567.89: when a comma
	// is present every dot is a thousands separator.
	hasComma := strings.ContainsRune(s, ',')

	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		case r == '.':
			if !hasComma {
				b.WriteRune('.')
			}
		case r == '-' && b.Len() == 0:
			b.WriteRune('-')
		case r == ' ' || r == '\u00a0' || r == '\u2009' || r == '\'':
			// separators, dropped
		default:
			// currency signs, units and other trailing garbage end the number
			if b.Len() > 0 {
				return validateNumeric(b.String())
			}
			return ""
		}
	}
	return validateNumeric(b.String())
}

// validateNumeric rejects fragments ParseFloat would still choke on
func validateNumeric(s string) string {
	if s == "" || s == "-" || s == "." || s == "-." {
		return ""
	}
	if strings.Count(s, ".") > 1 {
		return ""
	}
	return s
}

// IsNumericCell reports whether a cell parses as a number
func IsNumericCell(s string) bool {
	return ParseNumber(s) != nil
}
