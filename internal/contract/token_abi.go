package contract

// BuiltinToken is the ID of the stablecoin ABI (the ERC-20 subset we call).
const BuiltinToken = "usdc"

func init() {
	RegisterBuiltin(BuiltinKind{
		ID:          BuiltinToken,
		Name:        "USDC (ERC-20)",
		Description: "Circle USD Coin, 6 decimals. Only balanceOf and approve are used.",
		ABI:         tokenABI,
	})
}

var tokenABI = []ABIEntry{
	{
		Name: "balanceOf", Type: "function",
		Inputs:          []ABIParam{{Name: "_owner", Type: "address"}},
		Outputs:         []ABIParam{{Name: "balance", Type: "uint256"}},
		StateMutability: "view",
	},
	{
		Name: "approve", Type: "function",
		Inputs:          []ABIParam{{Name: "_spender", Type: "address"}, {Name: "_value", Type: "uint256"}},
		Outputs:         []ABIParam{{Name: "", Type: "bool"}},
		StateMutability: "nonpayable",
	},
	{
		Name: "Approval", Type: "event",
		Inputs: []ABIParam{{Name: "owner", Type: "address"}, {Name: "spender", Type: "address"}, {Name: "value", Type: "uint256"}},
	},
}
