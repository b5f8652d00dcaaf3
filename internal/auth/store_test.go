package auth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")

	store, err := NewStore(path)
	require.NoError(t, err)

	_, err = store.Token()
	assert.ErrorIs(t, err, ErrNoCredential)

	require.NoError(t, store.Save(Credentials{Token: "abc", UserID: 7, Username: "ship-7"}))

	// A fresh store must see the persisted credential.
	reloaded, err := NewStore(path)
	require.NoError(t, err)

	token, err := reloaded.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	creds, err := reloaded.Credentials()
	require.NoError(t, err)
	assert.Equal(t, int64(7), creds.UserID)
}

func TestStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(Credentials{Token: "abc"}))
	require.NoError(t, store.Clear())

	_, err = store.Token()
	assert.ErrorIs(t, err, ErrNoCredential)

	reloaded, err := NewStore(path)
	require.NoError(t, err)
	_, err = reloaded.Token()
	assert.ErrorIs(t, err, ErrNoCredential)
}
