package contract

import (
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/earnusdc/internal/earn"
	"github.com/ethereum/go-ethereum/common"
)

// Errors.
var (
	ErrContractNotFound = errors.New("contract not found")
	ErrFunctionNotFound = errors.New("function not found in ABI")
)

// ABIEntry is one ABI entry (function, event, etc.).
type ABIEntry struct {
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Inputs          []ABIParam `json:"inputs"`
	Outputs         []ABIParam `json:"outputs"`
	StateMutability string     `json:"stateMutability"`
}

// ABIParam is a parameter in an ABI entry.
type ABIParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// IsReadFunction returns true if the function is read-only (view/pure).
func (e ABIEntry) IsReadFunction() bool {
	return e.Type == "function" &&
		(e.StateMutability == "view" || e.StateMutability == "pure")
}

// IsWriteFunction returns true if the function modifies state.
func (e ABIEntry) IsWriteFunction() bool {
	return e.Type == "function" &&
		(e.StateMutability == "nonpayable" || e.StateMutability == "payable")
}

// Registry maps deployed addresses to their ABIs.
type Registry struct {
	byAddr map[common.Address][]ABIEntry
}

// NewRegistry binds the built-in vault and token ABIs to the deployment.
func NewRegistry(c earn.Contracts) *Registry {
	r := &Registry{byAddr: make(map[common.Address][]ABIEntry, 2)}
	vault, _ := GetBuiltin(BuiltinVault)
	token, _ := GetBuiltin(BuiltinToken)
	r.Bind(c.Vault, vault.ABI)
	r.Bind(c.Token, token.ABI)
	return r
}

// Bind registers abi for addr, replacing any previous binding.
func (r *Registry) Bind(addr common.Address, abi []ABIEntry) {
	r.byAddr[addr] = abi
}

// Function finds the named function on the contract at addr.
func (r *Registry) Function(addr common.Address, name string) (*ABIEntry, error) {
	abi, ok := r.byAddr[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, addr.Hex())
	}
	for i := range abi {
		if abi[i].Type == "function" && abi[i].Name == name {
			return &abi[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s on %s", ErrFunctionNotFound, name, addr.Hex())
}
