package keystore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passphrase = "0123456789abcdef0123456789abcdef"

func TestSaveAndGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secure", "keys.enc")
	store, err := Open(path, passphrase)
	require.NoError(t, err)

	key := []byte{0x01, 0x02, 0x03, 0x04}
	require.NoError(t, store.Save("0xABCDEF", key))

	got, err := store.Get("0xabcdef")
	require.NoError(t, err)
	assert.Equal(t, key, got)

	reopened, err := Open(path, passphrase)
	require.NoError(t, err)
	got, err = reopened.Get("0xAbCdEf")
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestGetMissingReturnsNil(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "keys.enc"), passphrase)
	require.NoError(t, err)

	got, err := store.Get("0x123")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestWrongPassphraseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.enc")
	store, err := Open(path, passphrase)
	require.NoError(t, err)
	require.NoError(t, store.Save("0xabc", []byte("secret")))

	other, err := Open(path, "ffffffffffffffffffffffffffffffff")
	require.NoError(t, err)
	_, err = other.Get("0xabc")
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestShortPassphraseRejected(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "keys.enc"), "short")
	assert.Error(t, err)
}
