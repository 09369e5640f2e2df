package contract

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/earnusdc/internal/chain"
	"github.com/Mohsinsiddi/earnusdc/internal/earn"
	"github.com/Mohsinsiddi/earnusdc/internal/wallet"
)

// Well-known Hardhat/Anvil test account #0. Never fund on mainnet.
const (
	testKey  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

var (
	vaultAddr = earn.DefaultVaultAddress
	tokenAddr = earn.DefaultTokenAddress
)

type rpcReq struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     int64             `json:"id"`
}

type rpcErr struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// node is a scripted JSON-RPC endpoint. eth_call and eth_estimateGas are
// answered per 4-byte selector so one server can play both contracts.
type node struct {
	mu       sync.Mutex
	results  map[string]interface{} // method -> result
	errs     map[string]rpcErr      // method -> error
	calls    map[string]string      // selector -> eth_call result
	callErrs map[string]rpcErr      // selector -> eth_call / estimate error
	reqs     []rpcReq
}

func newNode(t *testing.T) (*node, *httptest.Server) {
	t.Helper()
	n := &node{
		results: map[string]interface{}{
			"eth_chainId":              "0x2105", // 8453
			"eth_estimateGas":          "0x5208", // 21000
			"eth_maxPriorityFeePerGas": "0xf4240",
			"eth_getBlockByNumber":     map[string]string{"baseFeePerGas": "0x989680"},
			"eth_getTransactionCount":  "0x7",
			"eth_sendRawTransaction":   "0xfeedface",
			"eth_getTransactionReceipt": map[string]string{
				"status": "0x1", "blockNumber": "0x10", "gasUsed": "0x5000",
			},
		},
		errs:     map[string]rpcErr{},
		calls:    map[string]string{},
		callErrs: map[string]rpcErr{},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		result, rerr := n.answer(req)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rerr != nil {
			resp["error"] = rerr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return n, srv
}

func (n *node) answer(req rpcReq) (interface{}, *rpcErr) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reqs = append(n.reqs, req)

	if req.Method == "eth_call" || req.Method == "eth_estimateGas" {
		sel := selectorOf(req)
		if e, ok := n.callErrs[sel]; ok {
			return nil, &e
		}
		if req.Method == "eth_call" {
			if out, ok := n.calls[sel]; ok {
				return out, nil
			}
			return nil, &rpcErr{Code: -32000, Message: "no scripted result for " + sel}
		}
	}
	if e, ok := n.errs[req.Method]; ok {
		return nil, &e
	}
	if res, ok := n.results[req.Method]; ok {
		return res, nil
	}
	return nil, &rpcErr{Code: -32601, Message: "method not found"}
}

func selectorOf(req rpcReq) string {
	if len(req.Params) == 0 {
		return ""
	}
	var msg map[string]string
	if err := json.Unmarshal(req.Params[0], &msg); err != nil {
		return ""
	}
	if len(msg["data"]) < 10 {
		return ""
	}
	return msg["data"][:10]
}

// requests returns the recorded requests for method.
func (n *node) requests(method string) []rpcReq {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []rpcReq
	for _, r := range n.reqs {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

// callMsg decodes the first param of an eth_call / eth_estimateGas request.
func callMsg(req rpcReq) map[string]string {
	var msg map[string]string
	_ = json.Unmarshal(req.Params[0], &msg)
	return msg
}

func word(v int64) string {
	return fmt.Sprintf("0x%064x", big.NewInt(v))
}

func signingWallet(t *testing.T) (*wallet.Wallet, *wallet.Keystore) {
	t.Helper()
	t.Setenv(wallet.EnvPrivateKey, "")
	ks := wallet.NewMemoryKeystore()
	ref, err := ks.Store("main", testKey)
	if err != nil {
		t.Fatal(err)
	}
	return &wallet.Wallet{Name: "main", Address: testAddr, Type: wallet.TypeSigning, KeyRef: ref}, ks
}

func fixedWallet(w *wallet.Wallet) WalletSource {
	return func() (*wallet.Wallet, error) { return w, nil }
}

func newTestClient(t *testing.T, srv *httptest.Server, w *wallet.Wallet, ks wallet.KeystoreBackend, opts ...ClientOption) *Client {
	t.Helper()
	rpc := chain.NewEVMClient(srv.URL, chain.WithReceiptPollInterval(5*time.Millisecond))
	c := NewClient(rpc, earn.DefaultContracts(), fixedWallet(w), ks, opts...)
	t.Cleanup(c.Close)
	return c
}

func lower(a string) string { return strings.ToLower(strings.TrimPrefix(a, "0x")) }
