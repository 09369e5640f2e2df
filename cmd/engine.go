package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/Mohsinsiddi/earnusdc/internal/chain"
	"github.com/Mohsinsiddi/earnusdc/internal/contract"
	"github.com/Mohsinsiddi/earnusdc/internal/earn"
	"github.com/Mohsinsiddi/earnusdc/internal/rpc"
	"github.com/Mohsinsiddi/earnusdc/internal/ui"
	"github.com/Mohsinsiddi/earnusdc/internal/units"
	"github.com/Mohsinsiddi/earnusdc/internal/wallet"
)

const rpcBurst = 5

// earnSession is an engine connected through one RPC endpoint.
type earnSession struct {
	engine *earn.Engine
	client *contract.Client
	evm    *chain.EVMClient
	chain  *chain.Chain
	rpcURL string
}

func (s *earnSession) Close() {
	s.engine.Close() //nolint:errcheck
	s.client.Close()
}

// TxURL links hash on the network's explorer.
func (s *earnSession) TxURL(hash string) string {
	return s.chain.TxURL(cfg.NetworkMode, hash)
}

// GasBalance reads the native balance that pays for transactions.
func (s *earnSession) GasBalance(ctx context.Context, account string) (*big.Int, error) {
	return s.evm.GetBalance(ctx, account)
}

// openSession resolves the network, picks an RPC and builds the engine.
// rec may be nil.
func openSession(ctx context.Context, rec earn.Recorder) (*earnSession, error) {
	c, err := chain.NewRegistry().GetByName(cfg.DefaultNetwork)
	if err != nil {
		return nil, fmt.Errorf("unknown network %q", cfg.DefaultNetwork)
	}
	want := requiredChainID(c)

	url, err := pickRPC(ctx, c, want)
	if err != nil {
		return nil, err
	}
	logger.Debug("using rpc", "url", url, "chain_id", want)

	evm := chain.NewEVMClient(url, chain.WithRateLimit(cfg.RPCRateLimit, rpcBurst))
	opts := []contract.ClientOption{
		contract.WithReceiptTimeout(cfg.ReceiptWait()),
		contract.WithLogger(logger.With("component", "client")),
	}
	if !assumeYes {
		opts = append(opts, contract.WithConfirm(confirmTx(ui.Prompter{}, c.NativeCurrency)))
	}
	client := contract.NewClient(evm, cfg.Contracts(), activeWallet, lazyKeystore{}, opts...)

	engine := earn.New(client, earn.Options{
		Contracts:       cfg.Contracts(),
		RequiredChainID: want,
		Decimals:        cfg.TokenDecimals,
		PollInterval:    cfg.PollEvery(),
		Logger:          logger,
		Metrics:         rec,
	})
	return &earnSession{engine: engine, client: client, evm: evm, chain: c, rpcURL: url}, nil
}

// connectSession opens a session and connects the wallet. The wrong-network
// case is returned as an error; the caller must Close the session.
func connectSession(ctx context.Context) (*earnSession, error) {
	s, err := openSession(ctx, nil)
	if err != nil {
		return nil, err
	}
	spin := ui.NewSpinner("Connecting to " + s.chain.Label(cfg.NetworkMode) + "...")
	spin.Start()
	err = s.engine.Connect(ctx)
	spin.Stop()
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func requiredChainID(c *chain.Chain) int64 {
	if cfg.RequiredChainID != 0 {
		return cfg.RequiredChainID
	}
	return c.ID(cfg.NetworkMode)
}

func pickRPC(ctx context.Context, c *chain.Chain, want int64) (string, error) {
	algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
	if err != nil {
		return "", err
	}
	urls := rpc.Candidates(cfg.GetRPCs(c.Name), c.RPCs(cfg.NetworkMode))
	url, err := rpc.Select(ctx, urls, algo, want)
	if err != nil {
		return "", fmt.Errorf("selecting %s RPC: %w", c.Label(cfg.NetworkMode), err)
	}
	return url, nil
}

// --- wallets ---

var openKeystore = sync.OnceValue(func() wallet.KeystoreBackend {
	return wallet.DefaultKeystore(cfg.KeyringDir())
})

// lazyKeystore opens the OS keychain on first use so read-only commands
// never touch it.
type lazyKeystore struct{}

func (lazyKeystore) Store(name, hexKey string) (string, error) { return openKeystore().Store(name, hexKey) }
func (lazyKeystore) Retrieve(ref string) (string, error)       { return openKeystore().Retrieve(ref) }
func (lazyKeystore) Delete(ref string) error                   { return openKeystore().Delete(ref) }

// newWalletManager creates a Manager backed by the config-dir JSON store.
func newWalletManager() *wallet.Manager {
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(lazyKeystore{}),
	)
}

// activeWallet is re-read on every call so `wallet use` in another
// terminal is seen as an account change by a running dashboard.
func activeWallet() (*wallet.Wallet, error) {
	mgr := newWalletManager()
	w, err := mgr.Resolve(walletFlag)
	if errors.Is(err, wallet.ErrNoWallet) && cfg.DefaultWallet != "" {
		return mgr.Get(cfg.DefaultWallet)
	}
	return w, err
}

// --- confirmation ---

// confirmTx renders a preview of req and asks before it is signed.
func confirmTx(p ui.Prompter, native string) contract.ConfirmFunc {
	return func(_ context.Context, req contract.TxRequest) (bool, error) {
		fmt.Println(ui.KeyValueBlock("Transaction Preview", txPreview(req, native)))
		return p.Confirm("Sign and send this transaction?"), nil
	}
}

func txPreview(req contract.TxRequest, native string) [][2]string {
	pairs := [][2]string{
		{"Wallet", req.Wallet},
		{"From", ui.Addr(req.From.Hex())},
		{"To", ui.Addr(req.To.Hex())},
		{"Action", describeCall(req.Method, req.Args)},
		{"Gas Limit", fmt.Sprintf("%d", req.Gas)},
	}
	if req.Fees != nil && req.Fees.GasFeeCap != nil {
		pairs = append(pairs, [2]string{"Max Fee", fmt.Sprintf("%.4f gwei", chain.WeiToGwei(req.Fees.GasFeeCap))})
	}
	pairs = append(pairs,
		[2]string{"Max Cost", units.FormatFixed(req.MaxCost(), 18, 6) + " " + native},
		[2]string{"Chain ID", fmt.Sprintf("%d", req.ChainID)},
	)
	return pairs
}

// describeCall turns a contract call into a line a user can check.
func describeCall(method string, args []string) string {
	switch method {
	case earn.MethodApprove:
		if len(args) == 2 {
			return fmt.Sprintf("approve %s USDC for %s", usdc(args[1]), ui.TruncateAddr(args[0]))
		}
	case earn.MethodDepositFunds:
		if len(args) == 2 {
			return fmt.Sprintf("deposit %s USDC (referral %s)", usdc(args[0]), args[1])
		}
	case earn.MethodWithdraw:
		if len(args) == 1 {
			return fmt.Sprintf("withdraw %s USDC", usdc(args[0]))
		}
	case earn.MethodClaimReward:
		return "claim deposit rewards"
	case earn.MethodGenerateReferral:
		return "generate referral code"
	}
	return method + "(" + strings.Join(args, ", ") + ")"
}

// usdc renders a base-unit integer string in token units.
func usdc(baseUnits string) string {
	v, ok := new(big.Int).SetString(baseUnits, 10)
	if !ok {
		return baseUnits
	}
	return units.ToDecimalString(v, cfg.TokenDecimals)
}

// --- errors ---

func errorLine(err error) string {
	var opErr *earn.OperationError
	if errors.As(err, &opErr) {
		return ui.Err(opErr.Message())
	}
	return ui.Err(err.Error())
}

// errorHint suggests what to do next for the failures a user can fix.
func errorHint(err error) string {
	switch {
	case errors.Is(err, earn.ErrNoWalletCapability), errors.Is(err, wallet.ErrNoWallet):
		return ui.Hint("Add a wallet: earnusdc wallet add <name> --key <private-key>")
	case errors.Is(err, contract.ErrWatchOnly):
		return ui.Hint("Watch-only wallets cannot sign. Add one with --key, or set " + wallet.EnvPrivateKey)
	case errors.Is(err, earn.ErrWrongNetwork):
		return ui.Hint("Check network_mode and custom RPCs: earnusdc config show")
	case errors.Is(err, earn.ErrUserRejected):
		return ui.Meta("Nothing was sent.")
	case errors.Is(err, earn.ErrDepositFailed):
		return ui.Hint("The approval is in place. Finish with: earnusdc deposit <amount> --resume")
	case errors.Is(err, earn.ErrInvalidAmount):
		return ui.Hint("Use a positive decimal amount such as 25.5")
	case errors.Is(err, rpc.ErrNoHealthyRPC):
		return ui.Hint("Add a working endpoint: earnusdc config add-rpc <url>")
	}
	return ""
}
