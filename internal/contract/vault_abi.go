package contract

// BuiltinVault is the ID of the deposit/reward vault ABI.
const BuiltinVault = "vault"

// Function selectors:
//
//	deposits(address)              → 0xfc7e286d
//	currentAPR()                   → 0x60577981
//	depositFunds(uint256,uint256)  → 0x61638ed5
//	withdraw(uint256)              → 0x2e1a7d4d
//	claimDepositReward()           → 0xca3c12fd
//	generateReferralCode()         → 0xb0a2fc1b
func init() {
	RegisterBuiltin(BuiltinKind{
		ID:          BuiltinVault,
		Name:        "EarnUSDC Vault",
		Description: "USDC deposit vault paying APR rewards and referral bonuses.",
		ABI:         vaultABI,
	})
}

var vaultABI = []ABIEntry{
	{
		Name: "deposits", Type: "function",
		Inputs:          []ABIParam{{Name: "", Type: "address"}},
		Outputs:         []ABIParam{{Name: "", Type: "uint256"}},
		StateMutability: "view",
	},
	{
		Name: "currentAPR", Type: "function",
		Outputs:         []ABIParam{{Name: "", Type: "uint256"}},
		StateMutability: "view",
	},
	{
		Name: "depositFunds", Type: "function",
		Inputs:          []ABIParam{{Name: "amount", Type: "uint256"}, {Name: "referralCode", Type: "uint256"}},
		StateMutability: "nonpayable",
	},
	{
		Name: "withdraw", Type: "function",
		Inputs:          []ABIParam{{Name: "amount", Type: "uint256"}},
		StateMutability: "nonpayable",
	},
	{
		Name: "claimDepositReward", Type: "function",
		StateMutability: "nonpayable",
	},
	{
		Name: "generateReferralCode", Type: "function",
		Outputs:         []ABIParam{{Name: "", Type: "uint256"}},
		StateMutability: "nonpayable",
	},
}
