package ingest

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding and delimiter detection for delimited text exports. Legacy
// estimate tools still emit windows-1251/koi8-r/cp866, so encoding must be
// resolved before any row is interpreted.

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// legacyEncodings in detection order
var legacyEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"windows-1251", charmap.Windows1251},
	{"koi8-r", charmap.KOI8R},
	{"cp866", charmap.CodePage866},
}

// DetectEncoding decodes raw bytes to UTF-8, reporting the encoding used.
// UTF-8 (with or without BOM) is preferred; otherwise the legacy Cyrillic
// candidate producing the most Cyrillic letters wins.
func DetectEncoding(data []byte) (string, []byte, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		return "utf-8-bom", data[len(utf8BOM):], nil
	}
	if utf8.Valid(data) {
		return "utf-8", data, nil
	}

	bestName, bestScore := "", -1
	var bestDecoded []byte
	for _, cand := range legacyEncodings {
		decoded, _, err := transform.Bytes(cand.enc.NewDecoder(), data)
		if err != nil {
			continue
		}
		score := cyrillicScore(decoded)
		if score > bestScore {
			bestName, bestScore, bestDecoded = cand.name, score, decoded
		}
	}
	if bestDecoded == nil {
		return "", nil, ErrUnreadable
	}
	return bestName, bestDecoded, nil
}

// cyrillicScore counts Cyrillic letters and penalizes replacement runes;
// the correct legacy decoding yields readable Cyrillic text.
func cyrillicScore(data []byte) int {
	score := 0
	for _, r := range string(data) {
		switch {
		case r >= 'А' && r <= 'я' || r == 'ё' || r == 'Ё':
			score++
		case r == utf8.RuneError:
			score -= 2
		}
	}
	return score
}

// delimiterCandidates in tie-break order
var delimiterCandidates = []rune{';', ',', '\t', '|'}

// DetectDelimiter picks the delimiter with the highest occurrence count in
// the first non-empty line.
func DetectDelimiter(text string) rune {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		best, bestCount := delimiterCandidates[0], 0
		for _, d := range delimiterCandidates {
			if c := strings.Count(line, string(d)); c > bestCount {
				best, bestCount = d, c
			}
		}
		return best
	}
	return delimiterCandidates[0]
}
