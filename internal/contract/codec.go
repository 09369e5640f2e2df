package contract

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// encodeCall builds calldata: 4-byte selector + encoded args.
func encodeCall(fn *ABIEntry, args []string) (string, error) {
	if len(args) != len(fn.Inputs) {
		return "", fmt.Errorf("%s expects %d argument(s), got %d", fn.Name, len(fn.Inputs), len(args))
	}

	var encoded strings.Builder
	encoded.WriteString(functionSelector(fn))
	for i, param := range fn.Inputs {
		enc, err := encodeParam(param.Type, args[i])
		if err != nil {
			return "", fmt.Errorf("encoding param %d (%s): %w", i, param.Type, err)
		}
		encoded.WriteString(enc)
	}
	return encoded.String(), nil
}

// functionSelector computes the 4-byte selector for a function.
func functionSelector(fn *ABIEntry) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(fn.Signature()))
	return "0x" + hex.EncodeToString(h.Sum(nil)[:4])
}

// Signature is the canonical form hashed into the selector, e.g.
// "withdraw(uint256)".
func (e ABIEntry) Signature() string {
	types := make([]string, len(e.Inputs))
	for i, p := range e.Inputs {
		types[i] = p.Type
	}
	return e.Name + "(" + strings.Join(types, ",") + ")"
}

// Selector returns the 0x-prefixed 4-byte function selector.
func (e ABIEntry) Selector() string { return functionSelector(&e) }

// encodeParam encodes a single static ABI value as a 32-byte hex word.
// Only the types the vault and token use are supported.
func encodeParam(typ, val string) (string, error) {
	val = strings.TrimSpace(val)

	switch {
	case typ == "address":
		if !common.IsHexAddress(val) {
			return "", fmt.Errorf("invalid address: %q", val)
		}
		return hex.EncodeToString(common.LeftPadBytes(common.HexToAddress(val).Bytes(), 32)), nil

	case strings.HasPrefix(typ, "uint"):
		n, ok := new(big.Int).SetString(val, 0)
		if !ok || n.Sign() < 0 {
			return "", fmt.Errorf("invalid unsigned integer: %q", val)
		}
		if n.BitLen() > 256 {
			return "", fmt.Errorf("integer overflows uint256: %s", val)
		}
		return fmt.Sprintf("%064x", n), nil

	case typ == "bool":
		switch val {
		case "true", "1":
			return fmt.Sprintf("%064d", 1), nil
		case "false", "0":
			return fmt.Sprintf("%064d", 0), nil
		}
		return "", fmt.Errorf("invalid bool: %q", val)

	default:
		return "", fmt.Errorf("unsupported type %s", typ)
	}
}

// decodeUint reads the first 32-byte word of a call result. Functions
// without outputs decode to zero.
func decodeUint(fn *ABIEntry, hexData string) (*big.Int, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(hexData, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decoding hex result: %w", err)
	}
	if len(fn.Outputs) == 0 {
		return new(big.Int), nil
	}
	if len(data) < 32 {
		return nil, fmt.Errorf("%s: short result (%d bytes)", fn.Name, len(data))
	}

	word := data[:32]
	switch typ := fn.Outputs[0].Type; {
	case strings.HasPrefix(typ, "uint"):
		return new(big.Int).SetBytes(word), nil
	case typ == "bool":
		return big.NewInt(int64(word[31] & 1)), nil
	default:
		return nil, fmt.Errorf("%s: cannot decode %s as an integer", fn.Name, typ)
	}
}
