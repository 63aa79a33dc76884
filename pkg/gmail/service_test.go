package gmail

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestMakeSnippet(t *testing.T) {
	assert.Equal(t, "one two three", makeSnippet("one\n two\t three"))
	assert.Equal(t, "", makeSnippet(""))

	long := makeSnippet(strings.Repeat("word ", 100))
	assert.True(t, strings.HasSuffix(long, "..."))
	assert.Len(t, []rune(long), 203)

	multibyte := makeSnippet(strings.Repeat("é", 300))
	assert.Equal(t, strings.Repeat("é", 200)+"...", multibyte)
	assert.True(t, utf8.ValidString(multibyte))
}

func TestParseAddresses(t *testing.T) {
	assert.Nil(t, parseAddresses(""))

	parsed := parseAddresses("Alice <alice@example.com>, bob@example.com")
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, parsed)

	// Unparseable headers keep the raw values instead of dropping recipients
	raw := parseAddresses("not-an-address, still-not")
	assert.Equal(t, []string{"not-an-address", "still-not"}, raw)
}
