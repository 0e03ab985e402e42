// Package textproc cleans up recognized packaging text before it is used
// for matching. Recognition on glossy Turkish product labels makes a
// predictable set of mistakes; the corrections here are tuned for those.
package textproc

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ParsedText is the structured form of raw recognized text.
type ParsedText struct {
	Brand    string `json:"brand"`
	Name     string `json:"name"`
	FullText string `json:"full_text"`
}

// termCorrections maps frequent recognition mistakes on product terms to
// their intended spelling. Matching is whole-word on uppercased text.
var termCorrections = map[string]string{
	"SUT":        "SÜT",
	"SULT":       "SÜT",
	"SÜI":        "SÜT",
	"YAGLI":      "YAĞLI",
	"YAGHI":      "YAĞLI",
	"YAOLI":      "YAĞLI",
	"CIKOLATA":   "ÇİKOLATA",
	"CIKOLATALI": "ÇİKOLATALI",
	"BROWNİ":     "BROWNIE",
	"BROWNI":     "BROWNIE",
	"%I.S":       "%1.5",
	"%IS":        "%1.5",
	"HARNAS ST":  "HARNAS SÜT",
}

// knownBrands are recognized as-is, which anchors the brand/name split.
var knownBrands = []string{
	"ETİ", "ÜLKER", "PINAR", "SÜTAŞ", "İÇİM", "TORKU", "HARNAS",
	"TAT", "TADIM", "KOSKA", "ŞÖLEN", "NESTLE",
}

var (
	titleCaser = cases.Title(language.Turkish)
	lowerCaser = cases.Lower(language.Turkish)
	upperCaser = cases.Upper(language.Turkish)
)

// ParseText applies term corrections to raw recognized text and splits it
// into a brand and a product name. Empty input yields an empty result.
func ParseText(raw string) ParsedText {
	if strings.TrimSpace(raw) == "" {
		return ParsedText{}
	}

	corrected := upperCaser.String(raw)
	for wrong, right := range termCorrections {
		corrected = replaceWholeWord(corrected, wrong, right)
	}

	var lines []string
	for _, line := range strings.Split(corrected, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	brand := ""
	for _, line := range lines {
		for _, known := range knownBrands {
			if strings.Contains(line, known) {
				brand = known
				break
			}
		}
		if brand != "" {
			break
		}
	}

	var nameParts []string
	for _, line := range lines {
		if brand != "" && strings.Contains(line, brand) {
			rest := strings.TrimSpace(strings.ReplaceAll(line, brand, ""))
			if len([]rune(rest)) > 2 {
				nameParts = append(nameParts, rest)
			}
		} else if len([]rune(line)) > 2 {
			nameParts = append(nameParts, line)
		}
	}

	name := strings.Join(nameParts, " ")
	if brand != "" {
		name = strings.TrimSpace(strings.ReplaceAll(name, brand, ""))
	}

	return ParsedText{
		Brand:    titleCaser.String(lowerCaser.String(brand)),
		Name:     titleCaser.String(lowerCaser.String(name)),
		FullText: corrected,
	}
}

// replaceWholeWord substitutes whole-word occurrences only, so corrections
// never fire inside longer tokens.
func replaceWholeWord(text, wrong, right string) string {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(wrong) + `\b`)
	if err != nil {
		return text
	}
	return re.ReplaceAllString(text, right)
}

// NormalizeForEmbedding lowercases text and strips punctuation and extra
// whitespace, leaving the token stream the embedding model sees.
func NormalizeForEmbedding(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range lowerCaser.String(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
