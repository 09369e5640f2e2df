package chain_test

import (
	"testing"

	"github.com/Mohsinsiddi/earnusdc/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetByName(t *testing.T) {
	r := chain.NewRegistry()
	for _, name := range []string{"base", "BASE", " base "} {
		c, err := r.GetByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, "base", c.Name)
		assert.Equal(t, int64(8453), c.ChainID)
	}
}

func TestRegistryGetUnknownChain(t *testing.T) {
	_, err := chain.NewRegistry().GetByName("solana")
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
}

func TestRegistryGetByChainID(t *testing.T) {
	r := chain.NewRegistry()

	c, err := r.GetByChainID(8453)
	require.NoError(t, err)
	assert.Equal(t, "base", c.Name)

	c, err = r.GetByChainID(84532)
	require.NoError(t, err)
	assert.Equal(t, "base", c.Name)

	_, err = r.GetByChainID(1)
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
}

func TestChainModes(t *testing.T) {
	c, err := chain.NewRegistry().GetByName("base")
	require.NoError(t, err)

	assert.Equal(t, int64(8453), c.ID(chain.ModeMainnet))
	assert.Equal(t, int64(84532), c.ID(chain.ModeTestnet))
	assert.Equal(t, "Base", c.Label(chain.ModeMainnet))
	assert.Equal(t, "Base Sepolia", c.Label(chain.ModeTestnet))
	assert.Contains(t, c.RPCs(chain.ModeMainnet), "https://mainnet.base.org")
	assert.Contains(t, c.RPCs(chain.ModeTestnet), "https://sepolia.base.org")
	assert.Equal(t, "https://basescan.org", c.Explorer(chain.ModeMainnet))
}

func TestTxURL(t *testing.T) {
	c, err := chain.NewRegistry().GetByName("base")
	require.NoError(t, err)
	assert.Equal(t, "https://basescan.org/tx/0xabc", c.TxURL(chain.ModeMainnet, "0xabc"))
	assert.Equal(t, "https://sepolia.basescan.org/tx/0xabc", c.TxURL(chain.ModeTestnet, "0xabc"))
	assert.Empty(t, c.TxURL(chain.ModeMainnet, ""))
}

func TestAllChainsHaveRPCs(t *testing.T) {
	for _, c := range chain.NewRegistry().All() {
		assert.NotEmpty(t, c.MainnetRPCs, c.Name)
		assert.NotEmpty(t, c.TestnetRPCs, c.Name)
	}
}
