package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/earnusdc/internal/chain"
	"github.com/Mohsinsiddi/earnusdc/internal/earn"
	"github.com/Mohsinsiddi/earnusdc/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// Errors.
var (
	ErrWouldRevert    = errors.New("transaction would revert")
	ErrWatchOnly      = errors.New("wallet cannot sign")
	ErrWalletMismatch = errors.New("active wallet does not match sender")
)

const (
	defaultReceiptTimeout = 3 * time.Minute
	defaultWatchInterval  = 10 * time.Second

	// gasBufferPercent pads eth_estimateGas; approvals and deposits touch
	// storage that can change between estimate and inclusion.
	gasBufferPercent = 120
)

// WalletSource returns the wallet that currently acts as the connected
// account. It returns wallet.ErrNoWallet when none is configured.
type WalletSource func() (*wallet.Wallet, error)

// TxRequest is what the user is asked to approve before a transaction is
// signed.
type TxRequest struct {
	Wallet  string
	From    common.Address
	To      common.Address
	Method  string
	Args    []string
	ChainID int64
	Nonce   uint64
	Gas     uint64
	Fees    *chain.Fees
}

// MaxCost is the upper bound on the fee paid, in wei.
func (r TxRequest) MaxCost() *big.Int {
	if r.Fees == nil || r.Fees.GasFeeCap == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(r.Fees.GasFeeCap, new(big.Int).SetUint64(r.Gas))
}

// ConfirmFunc asks the user to approve req. Returning false rejects it.
type ConfirmFunc func(ctx context.Context, req TxRequest) (bool, error)

// Client implements earn.ChainClient over JSON-RPC with a local wallet.
type Client struct {
	rpc            *chain.EVMClient
	abis           *Registry
	wallets        WalletSource
	keys           wallet.KeystoreBackend
	confirm        ConfirmFunc
	receiptTimeout time.Duration
	logger         *slog.Logger
	watcher        *Watcher
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithConfirm installs an approval prompt. Without one every transaction
// is approved.
func WithConfirm(fn ConfirmFunc) ClientOption {
	return func(c *Client) { c.confirm = fn }
}

// WithReceiptTimeout bounds how long SubmitTransaction waits for mining.
func WithReceiptTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.receiptTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithWatchInterval sets how often account and network changes are polled.
func WithWatchInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.watcher.interval = d
		}
	}
}

// NewClient wires rpc, the deployed contracts and a wallet source together.
func NewClient(rpc *chain.EVMClient, contracts earn.Contracts, wallets WalletSource, keys wallet.KeystoreBackend, opts ...ClientOption) *Client {
	c := &Client{
		rpc:            rpc,
		abis:           NewRegistry(contracts),
		wallets:        wallets,
		keys:           keys,
		receiptTimeout: defaultReceiptTimeout,
		logger:         slog.New(slog.DiscardHandler),
	}
	c.watcher = NewWatcher(defaultWatchInterval, rpc.ChainID, c.account)
	for _, opt := range opts {
		opt(c)
	}
	c.watcher.logger = c.logger
	return c
}

// Connect resolves the active wallet and starts watching for account and
// network changes.
func (c *Client) Connect(ctx context.Context) (common.Address, error) {
	w, err := c.activeWallet()
	if err != nil {
		return common.Address{}, err
	}
	id, err := c.rpc.ChainID(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("reading chain id: %w", err)
	}
	c.watcher.Prime(w.Account(), id)
	c.watcher.Start()
	c.logger.Debug("wallet connected", "wallet", w.Name, "address", w.Address, "chain_id", id)
	return w.Account(), nil
}

// ChainID returns the id of the chain the RPC endpoint serves.
func (c *Client) ChainID(ctx context.Context) (int64, error) {
	return c.rpc.ChainID(ctx)
}

// OnAccountChanged registers fn for wallet switches.
func (c *Client) OnAccountChanged(fn func(common.Address)) func() {
	return c.watcher.OnAccountChanged(fn)
}

// OnNetworkChanged registers fn for chain id changes of the endpoint.
func (c *Client) OnNetworkChanged(fn func(int64)) func() {
	return c.watcher.OnNetworkChanged(fn)
}

// ReadContract calls a view function and decodes its integer result.
func (c *Client) ReadContract(ctx context.Context, to common.Address, method string, args ...string) (*big.Int, error) {
	fn, err := c.abis.Function(to, method)
	if err != nil {
		return nil, err
	}
	if !fn.IsReadFunction() {
		return nil, fmt.Errorf("function %q is not a read function (stateMutability: %s)", method, fn.StateMutability)
	}
	data, err := encodeCall(fn, args)
	if err != nil {
		return nil, fmt.Errorf("encoding call: %w", err)
	}
	out, err := c.rpc.Call(ctx, chain.CallMsg{To: to.Hex(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", method, err)
	}
	return decodeUint(fn, out)
}

// SimulateContract runs method as from without sending a transaction and
// returns its integer result.
func (c *Client) SimulateContract(ctx context.Context, to common.Address, method string, from common.Address, args ...string) (*big.Int, error) {
	fn, err := c.abis.Function(to, method)
	if err != nil {
		return nil, err
	}
	data, err := encodeCall(fn, args)
	if err != nil {
		return nil, fmt.Errorf("encoding call: %w", err)
	}
	out, err := c.rpc.Call(ctx, chain.CallMsg{From: from.Hex(), To: to.Hex(), Data: data})
	if err != nil {
		if chain.IsRevert(err) {
			return nil, fmt.Errorf("%s: %w: %s", method, ErrWouldRevert, chain.RevertReason(err))
		}
		return nil, fmt.Errorf("simulating %s: %w", method, err)
	}
	return decodeUint(fn, out)
}

// SubmitTransaction signs method with the active wallet, broadcasts it and
// waits for the receipt. A reverted transaction is an error.
func (c *Client) SubmitTransaction(ctx context.Context, to common.Address, method string, from common.Address, args ...string) (*earn.Receipt, error) {
	fn, err := c.abis.Function(to, method)
	if err != nil {
		return nil, err
	}
	if !fn.IsWriteFunction() {
		return nil, fmt.Errorf("function %q is not a write function", method)
	}

	w, err := c.activeWallet()
	if err != nil {
		return nil, err
	}
	if w.Account() != from {
		return nil, fmt.Errorf("%w: %s is active, %s requested", ErrWalletMismatch, w.Address, from.Hex())
	}
	if !w.CanSign() {
		return nil, fmt.Errorf("%w: %q is watch-only", ErrWatchOnly, w.Name)
	}

	data, err := encodeCall(fn, args)
	if err != nil {
		return nil, fmt.Errorf("encoding call: %w", err)
	}
	msg := chain.CallMsg{From: from.Hex(), To: to.Hex(), Data: data}

	gas, err := c.rpc.EstimateGas(ctx, msg)
	if err != nil {
		if chain.IsRevert(err) {
			return nil, fmt.Errorf("%s: %w: %s", method, ErrWouldRevert, chain.RevertReason(err))
		}
		return nil, fmt.Errorf("estimating gas: %w", err)
	}
	gas = gas * gasBufferPercent / 100

	fees, err := c.rpc.SuggestFees(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := c.rpc.PendingNonce(ctx, from.Hex())
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}
	chainID, err := c.rpc.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading chain id: %w", err)
	}

	req := TxRequest{
		Wallet: w.Name, From: from, To: to, Method: method, Args: args,
		ChainID: chainID, Nonce: nonce, Gas: gas, Fees: fees,
	}
	if c.confirm != nil {
		ok, err := c.confirm(ctx, req)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, earn.ErrUserRejected
		}
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(chainID),
		Nonce:     nonce,
		GasTipCap: fees.GasTipCap,
		GasFeeCap: fees.GasFeeCap,
		Gas:       gas,
		To:        &to,
		Value:     new(big.Int),
		Data:      common.FromHex(data),
	})
	_, raw, err := wallet.NewSigner(w, c.keys).SignTx(tx, big.NewInt(chainID))
	if err != nil {
		return nil, err
	}

	hash, err := c.rpc.SendRawTransaction(ctx, hexutil.Encode(raw))
	if err != nil {
		return nil, fmt.Errorf("broadcasting transaction: %w", err)
	}
	c.logger.Info("transaction sent", "method", method, "hash", hash, "nonce", nonce, "gas", gas)

	receipt, err := c.rpc.WaitForReceipt(ctx, hash, c.receiptTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	c.logger.Info("transaction mined", "method", method, "hash", hash, "block", receipt.BlockNumber, "gas_used", receipt.GasUsed)
	return &earn.Receipt{TxHash: hash, BlockNumber: receipt.BlockNumber, GasUsed: receipt.GasUsed}, nil
}

// Close stops the account and network watcher.
func (c *Client) Close() {
	c.watcher.Stop()
}

func (c *Client) activeWallet() (*wallet.Wallet, error) {
	if c.wallets == nil {
		return nil, earn.ErrNoWalletCapability
	}
	w, err := c.wallets()
	if errors.Is(err, wallet.ErrNoWallet) || (err == nil && w == nil) {
		return nil, earn.ErrNoWalletCapability
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// account reports the active address; the zero address means no wallet.
func (c *Client) account() (common.Address, error) {
	w, err := c.activeWallet()
	if errors.Is(err, earn.ErrNoWalletCapability) {
		return common.Address{}, nil
	}
	if err != nil {
		return common.Address{}, err
	}
	return w.Account(), nil
}
