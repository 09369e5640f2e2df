package wallet_test

import (
	"path/filepath"
	"testing"

	"github.com/Mohsinsiddi/earnusdc/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known Hardhat/Anvil test account #0. Never fund on mainnet.
const (
	testKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func newManager(t *testing.T) (*wallet.Manager, *wallet.Keystore) {
	t.Helper()
	t.Setenv(wallet.EnvPrivateKey, "")
	ks := wallet.NewMemoryKeystore()
	return wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(ks)), ks
}

func TestAddWatchOnlyWallet(t *testing.T) {
	mgr, _ := newManager(t)

	require.NoError(t, mgr.AddWatchOnly("watch", "0x1234567890abcdef1234567890abcdef12345678"))

	w, err := mgr.Get("watch")
	require.NoError(t, err)
	assert.Equal(t, wallet.TypeWatchOnly, w.Type)
	assert.False(t, w.CanSign())
	assert.Equal(t, common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678").Hex(), w.Address, "stored checksummed")
	assert.NotEmpty(t, w.CreatedAt)
}

func TestAddWatchOnlyRejectsBadAddress(t *testing.T) {
	mgr, _ := newManager(t)
	err := mgr.AddWatchOnly("bad", "0x123")
	assert.ErrorIs(t, err, wallet.ErrInvalidAddress)
}

func TestAddSigningWallet(t *testing.T) {
	mgr, ks := newManager(t)

	require.NoError(t, mgr.AddWithKey("signer", testKey))

	w, err := mgr.Get("signer")
	require.NoError(t, err)
	assert.Equal(t, wallet.TypeSigning, w.Type)
	assert.True(t, w.CanSign())
	assert.Equal(t, testAddr, w.Address)
	assert.Equal(t, "earnusdc.signer", w.KeyRef)

	stored, err := ks.Retrieve(w.KeyRef)
	require.NoError(t, err)
	assert.Equal(t, testKey[2:], stored)
}

func TestAddDuplicateWalletErrors(t *testing.T) {
	mgr, _ := newManager(t)
	require.NoError(t, mgr.AddWatchOnly("dup", testAddr))
	assert.ErrorIs(t, mgr.AddWatchOnly("dup", testAddr), wallet.ErrWalletExists)
	assert.ErrorIs(t, mgr.AddWithKey("dup", testKey), wallet.ErrWalletExists)
}

func TestInvalidPrivateKey(t *testing.T) {
	mgr, _ := newManager(t)
	err := mgr.AddWithKey("bad", "not-a-valid-key")
	assert.ErrorIs(t, err, wallet.ErrInvalidKey)
}

func TestListWalletsSorted(t *testing.T) {
	mgr, _ := newManager(t)
	for _, n := range []string{"w3", "w1", "w2"} {
		require.NoError(t, mgr.AddWatchOnly(n, testAddr))
	}

	wallets, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, wallets, 3)
	assert.Equal(t, "w1", wallets[0].Name)
	assert.Equal(t, "w2", wallets[1].Name)
	assert.Equal(t, "w3", wallets[2].Name)
}

func TestRemoveWalletDeletesKey(t *testing.T) {
	mgr, ks := newManager(t)
	require.NoError(t, mgr.AddWithKey("w1", testKey))
	w, err := mgr.Get("w1")
	require.NoError(t, err)
	ref := w.KeyRef

	require.NoError(t, mgr.Remove("w1"))

	_, err = mgr.Get("w1")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
	_, err = ks.Retrieve(ref)
	assert.ErrorIs(t, err, wallet.ErrKeyNotFound)
}

func TestRemoveNonExistentWallet(t *testing.T) {
	mgr, _ := newManager(t)
	assert.ErrorIs(t, mgr.Remove("ghost"), wallet.ErrWalletNotFound)
}

func TestFirstWalletBecomesDefault(t *testing.T) {
	mgr, _ := newManager(t)
	require.NoError(t, mgr.AddWatchOnly("first", testAddr))
	require.NoError(t, mgr.AddWatchOnly("second", testAddr))

	d := mgr.Default()
	require.NotNil(t, d)
	assert.Equal(t, "first", d.Name)
}

func TestSetDefault(t *testing.T) {
	mgr, _ := newManager(t)
	require.NoError(t, mgr.AddWatchOnly("a", testAddr))
	require.NoError(t, mgr.AddWatchOnly("b", testAddr))

	require.NoError(t, mgr.SetDefault("b"))
	assert.Equal(t, "b", mgr.Default().Name)

	a, _ := mgr.Get("a")
	assert.False(t, a.IsDefault)
	assert.ErrorIs(t, mgr.SetDefault("zzz"), wallet.ErrWalletNotFound)
}

func TestResolve(t *testing.T) {
	mgr, _ := newManager(t)
	_, err := mgr.Resolve("")
	assert.ErrorIs(t, err, wallet.ErrNoWallet)

	require.NoError(t, mgr.AddWatchOnly("a", testAddr))
	require.NoError(t, mgr.AddWatchOnly("b", testAddr))

	w, err := mgr.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "a", w.Name)

	w, err = mgr.Resolve("b")
	require.NoError(t, err)
	assert.Equal(t, "b", w.Name)

	_, err = mgr.Resolve("c")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}

func TestManagerPersistsThroughJSONStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wallets.json")
	ks := wallet.NewMemoryKeystore()

	mgr := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)), wallet.WithKeystore(ks))
	require.NoError(t, mgr.AddWithKey("main", testKey))
	require.NoError(t, mgr.AddWatchOnly("cold", "0x1234567890abcdef1234567890abcdef12345678"))

	reopened := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)), wallet.WithKeystore(ks))
	wallets, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, "cold", wallets[0].Name)
	assert.Equal(t, "main", wallets[1].Name)
	assert.True(t, wallets[1].IsDefault)
	assert.Equal(t, testAddr, wallets[1].Address)
}
