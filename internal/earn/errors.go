package earn

import (
	"errors"

	"github.com/Mohsinsiddi/earnusdc/internal/units"
)

// Errors. Every one is recoverable; the engine is left Idle with its prior
// state intact after returning any of them.
var (
	ErrNoWalletCapability  = errors.New("no wallet available")
	ErrUserRejected        = errors.New("request rejected by user")
	ErrWrongNetwork        = errors.New("wrong network")
	ErrNotConnected        = errors.New("wallet not connected")
	ErrInvalidAmount       = units.ErrInvalidAmount
	ErrInvalidReferral     = errors.New("invalid referral code")
	ErrOperationInProgress = errors.New("another operation is in progress")
	ErrApprovalFailed      = errors.New("token approval failed")
	ErrDepositFailed       = errors.New("deposit failed")
	ErrWithdrawFailed      = errors.New("withdraw failed")
	ErrClaimFailed         = errors.New("claim failed")
	ErrReferralFailed      = errors.New("referral code generation failed")
	ErrRefreshFailed       = errors.New("failed to update balances")
)

// OperationKind names the procedure an OperationError occurred during.
type OperationKind string

const (
	OpConnect  OperationKind = "connect"
	OpRefresh  OperationKind = "refresh"
	OpDeposit  OperationKind = "deposit"
	OpWithdraw OperationKind = "withdraw"
	OpClaim    OperationKind = "claim"
	OpReferral OperationKind = "referral"
)

// OperationError is the error surfaced to callers and kept as the most
// recent error in State. It matches both its sentinel and its cause with
// errors.Is.
type OperationError struct {
	Op    OperationKind
	Err   error // one of the Err* sentinels
	Cause error // error reported by the chain client, may be nil
}

func newOperationError(op OperationKind, sentinel, cause error) *OperationError {
	return &OperationError{Op: op, Err: sentinel, Cause: cause}
}

func (e *OperationError) Error() string {
	if e.Cause == nil {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Cause.Error()
}

func (e *OperationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// Message is the human-readable text shown to the user.
func (e *OperationError) Message() string { return e.Error() }
