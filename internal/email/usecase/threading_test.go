package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveThreadIDStable(t *testing.T) {
	a := deriveThreadID("Quarterly report", "alice@example.com", []string{"bob@example.com"}, nil)
	b := deriveThreadID("Quarterly report", "alice@example.com", []string{"bob@example.com"}, nil)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "t-"))
}

func TestDeriveThreadIDNormalizesSubject(t *testing.T) {
	base := deriveThreadID("Quarterly report", "alice@example.com", []string{"bob@example.com"}, nil)

	assert.Equal(t, base, deriveThreadID("Re: Quarterly report", "alice@example.com", []string{"bob@example.com"}, nil))
	assert.Equal(t, base, deriveThreadID("RE: FWD: quarterly report", "alice@example.com", []string{"bob@example.com"}, nil))
	assert.Equal(t, base, deriveThreadID("  Fw: Quarterly Report ", "alice@example.com", []string{"bob@example.com"}, nil))
}

func TestDeriveThreadIDIgnoresParticipantOrderAndRole(t *testing.T) {
	a := deriveThreadID("Hello", "alice@example.com", []string{"bob@example.com", "carol@example.com"}, nil)
	b := deriveThreadID("Hello", "bob@example.com", []string{"carol@example.com", "alice@example.com"}, nil)
	assert.Equal(t, a, b, "a reply swaps sender and recipient but stays in the thread")
}

func TestDeriveThreadIDPoolsCC(t *testing.T) {
	// A CC'd participant counts the same as a direct recipient
	a := deriveThreadID("Hello", "alice@example.com", []string{"bob@example.com"}, []string{"carol@example.com"})
	b := deriveThreadID("Hello", "alice@example.com", []string{"bob@example.com", "carol@example.com"}, nil)
	assert.Equal(t, a, b)

	c := deriveThreadID("Hello", "alice@example.com", []string{"bob@example.com"}, nil)
	assert.NotEqual(t, a, c, "adding a CC participant changes the conversation identity")
}

func TestDeriveThreadIDParsesDisplayNames(t *testing.T) {
	a := deriveThreadID("Hello", "Alice Smith <alice@example.com>", []string{"Bob <bob@example.com>"}, nil)
	b := deriveThreadID("Hello", "alice@example.com", []string{"BOB@example.com"}, nil)
	assert.Equal(t, a, b)
}

func TestDeriveThreadIDDistinguishes(t *testing.T) {
	a := deriveThreadID("Hello", "alice@example.com", []string{"bob@example.com"}, nil)

	assert.NotEqual(t, a, deriveThreadID("Goodbye", "alice@example.com", []string{"bob@example.com"}, nil))
	assert.NotEqual(t, a, deriveThreadID("Hello", "alice@example.com", []string{"carol@example.com"}, nil))
}
