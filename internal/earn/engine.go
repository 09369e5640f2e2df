// Package earn is the transaction and balance engine behind the EarnUSDC
// client: it connects a wallet, keeps the user's deposit, wallet balance
// and APR in sync with the chain, and runs approve+deposit, withdraw,
// claim and referral procedures one at a time.
//
// Presentation code reads Engine.State, subscribes to changes and calls the
// operation methods; it never mutates state directly.
package earn

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/earnusdc/internal/units"
)

// Options configures an Engine. Zero values fall back to the Base mainnet
// deployment.
type Options struct {
	Contracts       Contracts
	RequiredChainID int64
	Decimals        int
	PollInterval    time.Duration
	Logger          *slog.Logger
	Metrics         Recorder
}

func (o Options) withDefaults() Options {
	if o.Contracts == (Contracts{}) {
		o.Contracts = DefaultContracts()
	}
	if o.RequiredChainID == 0 {
		o.RequiredChainID = BaseChainID
	}
	if o.Decimals == 0 {
		o.Decimals = units.USDCDecimals
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
	if o.Metrics == nil {
		o.Metrics = nopRecorder{}
	}
	return o
}

// Engine wires the session controller, synchronizer and orchestrator around
// one state store.
type Engine struct {
	store *Store
	sync  *Synchronizer
	orch  *Orchestrator
	ctrl  *Controller
}

// New creates an Engine driving client. client may be nil when no wallet is
// available; Connect then fails with ErrNoWalletCapability.
func New(client ChainClient, opts Options) *Engine {
	opts = opts.withDefaults()
	store := NewStore(opts.RequiredChainID, opts.Decimals)
	sync := NewSynchronizer(store, client, opts.Contracts, opts.Logger.With("component", "sync"), opts.Metrics)
	return &Engine{
		store: store,
		sync:  sync,
		orch:  NewOrchestrator(store, client, sync, opts.Contracts, opts.Decimals, opts.Logger.With("component", "tx"), opts.Metrics),
		ctrl:  NewController(store, client, sync, opts.PollInterval, opts.Logger.With("component", "session")),
	}
}

// State returns a copy of the current state.
func (e *Engine) State() State { return e.store.State() }

// Subscribe calls fn after every state change until unsubscribe is called.
func (e *Engine) Subscribe(fn func(State)) (unsubscribe func()) { return e.store.Subscribe(fn) }

// Connect connects the wallet. See Controller.Connect.
func (e *Engine) Connect(ctx context.Context) error { return e.ctrl.Connect(ctx) }

// Disconnect drops the session and stops polling.
func (e *Engine) Disconnect() { e.ctrl.Disconnect() }

// Close is Disconnect; it exists so the engine can be deferred like other
// resources.
func (e *Engine) Close() error {
	e.ctrl.Disconnect()
	return nil
}

// Refresh reloads balances now. See Synchronizer.Refresh.
func (e *Engine) Refresh(ctx context.Context) error { return e.sync.Refresh(ctx) }

// Deposit approves and deposits amount. referral may be blank.
func (e *Engine) Deposit(ctx context.Context, amount, referral string) (*DepositResult, error) {
	return e.orch.Deposit(ctx, amount, referral)
}

// CompleteDeposit retries only the deposit step of a partially failed Deposit.
func (e *Engine) CompleteDeposit(ctx context.Context, amount, referral string) (*DepositResult, error) {
	return e.orch.CompleteDeposit(ctx, amount, referral)
}

// Withdraw withdraws amount from the vault.
func (e *Engine) Withdraw(ctx context.Context, amount string) (*Receipt, error) {
	return e.orch.Withdraw(ctx, amount)
}

// ClaimRewards claims accrued rewards.
func (e *Engine) ClaimRewards(ctx context.Context) (*Receipt, error) {
	return e.orch.ClaimRewards(ctx)
}

// GenerateReferralCode creates a referral code for the connected account.
func (e *Engine) GenerateReferralCode(ctx context.Context) (*big.Int, error) {
	return e.orch.GenerateReferralCode(ctx)
}

// MaxDeposit returns the whole wallet balance as a decimal string, ok is
// false until balances are loaded.
func (e *Engine) MaxDeposit() (string, bool) {
	st := e.store.State()
	if st.Snapshot == nil {
		return "", false
	}
	return units.ToDecimalString(st.Snapshot.WalletBalance, st.Decimals), true
}

// MaxWithdraw returns the whole user deposit as a decimal string.
func (e *Engine) MaxWithdraw() (string, bool) {
	st := e.store.State()
	if st.Snapshot == nil {
		return "", false
	}
	return units.ToDecimalString(st.Snapshot.UserDeposit, st.Decimals), true
}

// Polling reports whether the balance poller is running.
func (e *Engine) Polling() bool { return e.sync.Polling() }

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
