package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestFeesEIP1559(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_maxPriorityFeePerGas": "0xf4240", // 1_000_000
		"eth_getBlockByNumber":     map[string]string{"baseFeePerGas": "0x989680"}, // 10_000_000
	})
	fees, err := NewEVMClient(srv.URL).SuggestFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10_000_000), fees.BaseFee)
	assert.Equal(t, big.NewInt(1_000_000), fees.GasTipCap)
	assert.Equal(t, big.NewInt(21_000_000), fees.GasFeeCap)
}

func TestSuggestFeesFallsBackToGasPrice(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_gasPrice":         "0x2faf080", // 50_000_000
		"eth_getBlockByNumber": map[string]string{"baseFeePerGas": "0x1"},
	})
	fees, err := NewEVMClient(srv.URL).SuggestFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(50_000_000), fees.GasTipCap)
	assert.Equal(t, big.NewInt(50_000_002), fees.GasFeeCap)
}

func TestSuggestFeesMinimumTip(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_maxPriorityFeePerGas": "0x0",
		"eth_getBlockByNumber":     map[string]string{"baseFeePerGas": "0x0"},
	})
	fees, err := NewEVMClient(srv.URL).SuggestFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, minTip, fees.GasTipCap)
	assert.Equal(t, minTip, fees.GasFeeCap)
}

func TestSuggestFeesLegacyChain(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_maxPriorityFeePerGas": "0xf4240",
		"eth_gasPrice":             "0x3b9aca00", // 1 gwei
		"eth_getBlockByNumber":     map[string]string{"number": "0x1"},
	})
	fees, err := NewEVMClient(srv.URL).SuggestFees(context.Background())
	require.NoError(t, err)
	assert.Nil(t, fees.BaseFee)
	assert.Equal(t, big.NewInt(1_000_000_000), fees.GasFeeCap)
}

func TestSuggestFeesNoGasPrice(t *testing.T) {
	srv := rpcErrorServer(t, -32000, "unavailable")
	_, err := NewEVMClient(srv.URL).SuggestFees(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "getting gas price")
}

func TestWeiToGwei(t *testing.T) {
	assert.Equal(t, 0.0, WeiToGwei(nil))
	assert.Equal(t, 1.0, WeiToGwei(big.NewInt(1_000_000_000)))
	assert.InDelta(t, 0.001, WeiToGwei(big.NewInt(1_000_000)), 1e-12)
}
