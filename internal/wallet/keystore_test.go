package wallet

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFileKeystore returns a file-backed Keystore isolated to a temp
// directory. Using the FileBackend avoids OS keychain prompts in CI.
func testFileKeystore(t *testing.T) *Keystore {
	t.Helper()
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      "earnusdc-test",
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          t.TempDir(),
		FilePasswordFunc: func(string) (string, error) { return "testpass", nil },
	})
	require.NoError(t, err)
	return &Keystore{ring: ring}
}

func TestKeystoreRoundTrip(t *testing.T) {
	t.Setenv(EnvPrivateKey, "")
	ks := testFileKeystore(t)

	ref, err := ks.Store("main", "0xABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "earnusdc.main", ref)

	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF", got)

	require.NoError(t, ks.Delete(ref))
	_, err = ks.Retrieve(ref)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestKeystoreRetrieveEnvVarOverride(t *testing.T) {
	t.Setenv(EnvPrivateKey, "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")

	ks := &Keystore{} // no ring, must be served by the env var
	got, err := ks.Retrieve("earnusdc.any-ref")
	require.NoError(t, err)
	assert.Equal(t, "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", got)
}

func TestKeystoreRetrieveIsCached(t *testing.T) {
	t.Setenv(EnvPrivateKey, "")
	ks := NewMemoryKeystore()
	ref, err := ks.Store("w", "aa")
	require.NoError(t, err)

	_, err = ks.Retrieve(ref)
	require.NoError(t, err)

	// Removing the item behind the cache's back still serves the cached key.
	require.NoError(t, ks.ring.Remove(ref))
	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, "aa", got)
}

func TestKeystoreStoreInvalidatesCache(t *testing.T) {
	t.Setenv(EnvPrivateKey, "")
	ks := NewMemoryKeystore()
	ref, _ := ks.Store("w", "aa")
	_, _ = ks.Retrieve(ref)

	_, err := ks.Store("w", "bb")
	require.NoError(t, err)
	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, "bb", got)
}

func TestKeystoreNilRing(t *testing.T) {
	t.Setenv(EnvPrivateKey, "")
	ks := &Keystore{}
	_, err := ks.Store("x", "aa")
	assert.Error(t, err)
	_, err = ks.Retrieve("earnusdc.x")
	assert.Error(t, err)
	assert.NoError(t, ks.Delete("earnusdc.x"))
}

func TestKeystoreDeleteMissingIsNoop(t *testing.T) {
	ks := NewMemoryKeystore()
	assert.NoError(t, ks.Delete("earnusdc.ghost"))
}
