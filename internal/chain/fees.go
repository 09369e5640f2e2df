package chain

import (
	"context"
	"fmt"
	"math/big"
)

// Fees holds EIP-1559 fee parameters for a new transaction.
type Fees struct {
	BaseFee   *big.Int // nil on legacy chains
	GasTipCap *big.Int
	GasFeeCap *big.Int
}

// minTip is used when the node has no opinion on the priority fee.
var minTip = big.NewInt(1_000_000) // 0.001 gwei

// SuggestFees derives a tip from eth_maxPriorityFeePerGas (falling back to
// eth_gasPrice) and a fee cap of twice the latest base fee plus the tip.
func (c *EVMClient) SuggestFees(ctx context.Context) (*Fees, error) {
	tip, err := c.callBig(ctx, "priority fee", "eth_maxPriorityFeePerGas")
	if err != nil {
		gp, gpErr := c.GasPrice(ctx)
		if gpErr != nil {
			return nil, fmt.Errorf("getting gas price: %w", gpErr)
		}
		tip = gp
	}
	if tip.Cmp(minTip) < 0 {
		tip = new(big.Int).Set(minTip)
	}

	fees := &Fees{GasTipCap: tip}
	baseFee, err := c.latestBaseFee(ctx)
	if err != nil {
		return nil, err
	}
	if baseFee == nil {
		// Pre-London: cap at the legacy gas price.
		gp, err := c.GasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting gas price: %w", err)
		}
		if gp.Cmp(tip) < 0 {
			gp = tip
		}
		fees.GasFeeCap = gp
		return fees, nil
	}
	fees.BaseFee = baseFee
	fees.GasFeeCap = new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)
	return fees, nil
}

func (c *EVMClient) latestBaseFee(ctx context.Context) (*big.Int, error) {
	var rb *struct {
		BaseFeePerGas string `json:"baseFeePerGas"`
	}
	if err := c.call(ctx, &rb, "eth_getBlockByNumber", "latest", false); err != nil {
		return nil, fmt.Errorf("reading latest block: %w", err)
	}
	if rb == nil || rb.BaseFeePerGas == "" {
		return nil, nil
	}
	bf, ok := parseBigHex(rb.BaseFeePerGas)
	if !ok {
		return nil, fmt.Errorf("could not parse base fee: %s", rb.BaseFeePerGas)
	}
	return bf, nil
}

// WeiToGwei converts a Wei value to Gwei as float64.
func WeiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		new(big.Float).SetFloat64(1e9),
	).Float64()
	return f
}
