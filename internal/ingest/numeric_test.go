package ingest_test

import (
	"testing"

	"github.com/smetaworks/estimate-api/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"0", 0},
		{"42", 42},
		{"12.5", 12.5},
		{"12,5", 12.5},
		{"-15,5", -15.5},
		{"1 234,56", 1234.56},
		{"1 000", 1000},         // non-breaking space separator
		{"1 234,5", 1234.5},     // thin space separator
		{"1'234.5", 1234.5},          // apostrophe separator
		{"1.234.567,89", 1234567.89}, // dot thousands with comma decimal
		{"  100  ", 100},
		{"100 руб.", 100}, // trailing unit ends the number
		{"250,00₽", 250},
	}
	for _, tt := range tests {
		got := ingest.ParseNumber(tt.in)
		require.NotNil(t, got, "ParseNumber(%q)", tt.in)
		assert.Equal(t, tt.want, *got, "ParseNumber(%q)", tt.in)
	}
}

func TestParseNumberRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "-", ".", "-.", "кг", "1.2.3"} {
		assert.Nil(t, ingest.ParseNumber(in), "ParseNumber(%q)", in)
	}
}

func TestParseNumberOrZero(t *testing.T) {
	assert.Equal(t, 12.5, ingest.ParseNumberOrZero("12,5"))
	assert.Equal(t, 0.0, ingest.ParseNumberOrZero("n/a"))
}

func TestIsNumericCell(t *testing.T) {
	assert.True(t, ingest.IsNumericCell("1 000,5"))
	assert.False(t, ingest.IsNumericCell("м3"))
}
