package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTextCorrectionsAndBrandSplit(t *testing.T) {
	raw := "SÜTAŞ\nYARIM YAGLI SUT\n1000 ML"
	parsed := ParseText(raw)

	assert.Equal(t, "Sütaş", parsed.Brand)
	assert.Contains(t, parsed.FullText, "YAĞLI")
	assert.Contains(t, parsed.FullText, "SÜT")
	assert.NotContains(t, parsed.FullText, "YAGLI")
	assert.Contains(t, parsed.Name, "Süt")
	assert.NotContains(t, parsed.Name, "Sütaş")
}

func TestParseTextBrandOnSharedLine(t *testing.T) {
	parsed := ParseText("ETİ BROWNI INTENSE\nKAKAOLU")
	assert.NotEmpty(t, parsed.Brand)
	assert.Contains(t, parsed.FullText, "BROWNIE")
	assert.NotContains(t, parsed.Name, "ETİ")
}

func TestParseTextNoBrand(t *testing.T) {
	parsed := ParseText("CIKOLATALI GOFRET\n33G")
	assert.Empty(t, parsed.Brand)
	assert.Contains(t, parsed.FullText, "ÇİKOLATALI")
	assert.NotEmpty(t, parsed.Name)
}

func TestParseTextEmpty(t *testing.T) {
	assert.Equal(t, ParsedText{}, ParseText("   \n  "))
}

func TestParseTextCorrectionIsWholeWord(t *testing.T) {
	// SUT inside a longer token must stay untouched.
	parsed := ParseText("SUTLAND PRODUCTS")
	assert.Contains(t, parsed.FullText, "SUTLAND")
}

func TestNormalizeForEmbedding(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Sütaş Yarım Yağlı Süt, 1000 ml!", "sütaş yarım yağlı süt 1000 ml"},
		{"  spaced   out  ", "spaced out"},
		{"%1.5 YAĞLI", "1 5 yağlı"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeForEmbedding(c.in))
	}
}
