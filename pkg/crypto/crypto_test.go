package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxSealOpen(t *testing.T) {
	box, err := NewBox("test-passphrase")
	require.NoError(t, err)

	sealed, err := box.Seal("ya29.secret-access-token")
	require.NoError(t, err)
	assert.NotEqual(t, "ya29.secret-access-token", sealed)

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ya29.secret-access-token", opened)
}

func TestBoxWrongKey(t *testing.T) {
	box, err := NewBox("passphrase-one")
	require.NoError(t, err)
	other, err := NewBox("passphrase-two")
	require.NoError(t, err)

	sealed, err := box.Seal("secret")
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.Error(t, err)
}

func TestBoxEmptyPassphrasePassthrough(t *testing.T) {
	box, err := NewBox("")
	require.NoError(t, err)

	sealed, err := box.Seal("plain-value")
	require.NoError(t, err)
	assert.Equal(t, "plain-value", sealed)

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "plain-value", opened)
}
