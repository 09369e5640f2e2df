package earn

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/earnusdc/internal/units"
)

// DefaultReferralCode is sent when the user leaves the referral blank.
// Whether the contract treats 0 as "no referral" is up to the contract.
const DefaultReferralCode = "0"

// DepositResult reports how far a deposit got. Approved with a nil
// DepositReceipt means the allowance is in place but the deposit itself
// failed; CompleteDeposit retries just that step.
type DepositResult struct {
	Amount          *big.Int
	Referral        string
	Approved        bool
	ApprovalReceipt *Receipt
	DepositReceipt  *Receipt
}

// Orchestrator runs the mutating contract procedures one at a time.
type Orchestrator struct {
	store     *Store
	client    ChainClient
	sync      *Synchronizer
	contracts Contracts
	decimals  int
	log       *slog.Logger
	metrics   Recorder
}

// NewOrchestrator creates an Orchestrator. Successful operations refresh
// balances through sync.
func NewOrchestrator(store *Store, client ChainClient, sync *Synchronizer, contracts Contracts, decimals int, log *slog.Logger, metrics Recorder) *Orchestrator {
	if log == nil {
		log = discardLogger()
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Orchestrator{
		store:     store,
		client:    client,
		sync:      sync,
		contracts: contracts,
		decimals:  decimals,
		log:       log,
		metrics:   metrics,
	}
}

// Deposit approves the vault for exactly amount and then deposits it. The
// approval is confirmed before the deposit is sent. The returned result is
// never nil.
func (o *Orchestrator) Deposit(ctx context.Context, amount, referral string) (*DepositResult, error) {
	return o.deposit(ctx, amount, referral, true)
}

// CompleteDeposit sends only the deposit step, for use after Deposit failed
// with ErrDepositFailed and the approval is already in place.
func (o *Orchestrator) CompleteDeposit(ctx context.Context, amount, referral string) (*DepositResult, error) {
	return o.deposit(ctx, amount, referral, false)
}

func (o *Orchestrator) deposit(ctx context.Context, amountStr, referral string, approve bool) (res *DepositResult, err error) {
	res = &DepositResult{}
	sess, err := o.begin(Depositing, OpDeposit)
	if err != nil {
		return res, err
	}
	defer o.end(OpDeposit, &err)

	amount, err := o.parseAmount(amountStr)
	if err != nil {
		return res, o.fail(OpDeposit, ErrInvalidAmount, err)
	}
	ref, err := normalizeReferral(referral)
	if err != nil {
		return res, o.fail(OpDeposit, ErrInvalidReferral, err)
	}
	res.Amount = amount
	res.Referral = ref

	if approve {
		o.log.Info("approving vault", "account", sess.Account.Hex(), "amount", amount.String())
		rcpt, err := o.client.SubmitTransaction(ctx, o.contracts.Token, MethodApprove, sess.Account,
			o.contracts.Vault.Hex(), amount.String())
		if err != nil {
			return res, o.fail(OpDeposit, ErrApprovalFailed, err)
		}
		res.Approved = true
		res.ApprovalReceipt = rcpt
	}

	o.log.Info("depositing", "account", sess.Account.Hex(), "amount", amount.String(), "referral", ref)
	rcpt, err := o.client.SubmitTransaction(ctx, o.contracts.Vault, MethodDepositFunds, sess.Account,
		amount.String(), ref)
	if err != nil {
		return res, o.fail(OpDeposit, ErrDepositFailed, err)
	}
	res.DepositReceipt = rcpt

	o.succeed(ctx, OpDeposit)
	return res, nil
}

// Withdraw withdraws amount from the vault. Only the format of amount is
// checked locally; the contract decides whether the balance suffices.
func (o *Orchestrator) Withdraw(ctx context.Context, amountStr string) (rcpt *Receipt, err error) {
	sess, err := o.begin(Withdrawing, OpWithdraw)
	if err != nil {
		return nil, err
	}
	defer o.end(OpWithdraw, &err)

	amount, err := o.parseAmount(amountStr)
	if err != nil {
		return nil, o.fail(OpWithdraw, ErrInvalidAmount, err)
	}

	o.log.Info("withdrawing", "account", sess.Account.Hex(), "amount", amount.String())
	rcpt, err = o.client.SubmitTransaction(ctx, o.contracts.Vault, MethodWithdraw, sess.Account, amount.String())
	if err != nil {
		return nil, o.fail(OpWithdraw, ErrWithdrawFailed, err)
	}

	o.succeed(ctx, OpWithdraw)
	return rcpt, nil
}

// ClaimRewards claims the accrued deposit reward.
func (o *Orchestrator) ClaimRewards(ctx context.Context) (rcpt *Receipt, err error) {
	sess, err := o.begin(Claiming, OpClaim)
	if err != nil {
		return nil, err
	}
	defer o.end(OpClaim, &err)

	o.log.Info("claiming rewards", "account", sess.Account.Hex())
	rcpt, err = o.client.SubmitTransaction(ctx, o.contracts.Vault, MethodClaimReward, sess.Account)
	if err != nil {
		return nil, o.fail(OpClaim, ErrClaimFailed, err)
	}

	o.succeed(ctx, OpClaim)
	return rcpt, nil
}

// GenerateReferralCode asks the vault for a referral code. The code is read
// by simulating the call from the user's account, then the call is sent so
// the contract records it.
func (o *Orchestrator) GenerateReferralCode(ctx context.Context) (code *big.Int, err error) {
	sess, err := o.begin(GeneratingReferral, OpReferral)
	if err != nil {
		return nil, err
	}
	defer o.end(OpReferral, &err)

	code, err = o.client.SimulateContract(ctx, o.contracts.Vault, MethodGenerateReferral, sess.Account)
	if err != nil {
		return nil, o.fail(OpReferral, ErrReferralFailed, err)
	}
	if _, err := o.client.SubmitTransaction(ctx, o.contracts.Vault, MethodGenerateReferral, sess.Account); err != nil {
		return nil, o.fail(OpReferral, ErrReferralFailed, err)
	}

	o.succeed(ctx, OpReferral)
	return code, nil
}

// --- internal ---

func (o *Orchestrator) begin(p PendingOperation, op OperationKind) (Session, error) {
	sess, err := o.store.begin(p, op)
	if err != nil {
		o.metrics.ObserveOperation(op, err)
		return sess, err
	}
	o.metrics.SetPending(p)
	return sess, nil
}

// end releases the pending operation. It is deferred by every entry point
// so the engine returns to Idle on all paths. A panic is recorded as the
// operation's failure and then re-raised.
func (o *Orchestrator) end(op OperationKind, errp *error) {
	r := recover()
	if r != nil {
		*errp = o.fail(op, failureOf(op), fmt.Errorf("panic: %v", r))
	}
	o.store.end()
	o.metrics.SetPending(PendingNone)
	o.metrics.ObserveOperation(op, *errp)
	if r != nil {
		panic(r)
	}
}

// failureOf is the sentinel reported when op fails at the chain boundary.
func failureOf(op OperationKind) error {
	switch op {
	case OpWithdraw:
		return ErrWithdrawFailed
	case OpClaim:
		return ErrClaimFailed
	case OpReferral:
		return ErrReferralFailed
	default:
		return ErrDepositFailed
	}
}

func (o *Orchestrator) fail(op OperationKind, sentinel, cause error) error {
	e := newOperationError(op, sentinel, cause)
	o.store.recordError(e)
	o.log.Warn("operation failed", "op", string(op), "err", e)
	return e
}

// succeed clears the last error and refreshes balances. A refresh failure
// does not undo the operation; it is recorded as a refresh error.
func (o *Orchestrator) succeed(ctx context.Context, op OperationKind) {
	o.store.clearError()
	if err := o.sync.Refresh(ctx); err != nil {
		o.log.Warn("refresh after operation failed", "op", string(op), "err", err)
	}
}

// uint256Bits is the width of every integer the vault and token accept.
const uint256Bits = 256

// parseAmount converts a decimal amount to base units that fit a uint256.
func (o *Orchestrator) parseAmount(s string) (*big.Int, error) {
	amount, err := units.ToBaseUnits(s, o.decimals)
	if err != nil {
		return nil, err
	}
	if amount.BitLen() > uint256Bits {
		return nil, fmt.Errorf("%q does not fit in uint256", s)
	}
	return amount, nil
}

// normalizeReferral defaults a blank code and checks the rest is an integer
// that fits a uint256, so encoding cannot fail once the approval is sent.
func normalizeReferral(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return DefaultReferralCode, nil
	}
	n, ok := new(big.Int).SetString(code, 10)
	if !ok || n.Sign() < 0 {
		return "", fmt.Errorf("%q is not a referral code", code)
	}
	if n.BitLen() > uint256Bits {
		return "", fmt.Errorf("referral code %q does not fit in uint256", code)
	}
	return n.String(), nil
}
