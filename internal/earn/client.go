package earn

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BaseChainID is the Base mainnet chain id the vault is deployed on.
const BaseChainID int64 = 8453

// DefaultPollInterval matches the refresh cadence of the web frontend.
const DefaultPollInterval = 30 * time.Second

// Deployed addresses on Base.
var (
	DefaultVaultAddress = common.HexToAddress("0x3038eBDFF5C17d9B0f07871b66FCDc7B9329fCD8")
	DefaultTokenAddress = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913") // USDC
)

// Contract methods used by the engine.
const (
	MethodDeposits         = "deposits"
	MethodCurrentAPR       = "currentAPR"
	MethodDepositFunds     = "depositFunds"
	MethodWithdraw         = "withdraw"
	MethodClaimReward      = "claimDepositReward"
	MethodGenerateReferral = "generateReferralCode"
	MethodBalanceOf        = "balanceOf"
	MethodApprove          = "approve"
)

// Contracts holds the two contracts the engine talks to.
type Contracts struct {
	Vault common.Address // deposit/reward contract
	Token common.Address // stablecoin
}

// DefaultContracts returns the Base mainnet deployment.
func DefaultContracts() Contracts {
	return Contracts{Vault: DefaultVaultAddress, Token: DefaultTokenAddress}
}

// Receipt describes a mined transaction.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
}

// ChainClient is the wallet + chain capability the engine drives. Args are
// ABI values rendered as strings (decimal integers, 0x addresses).
//
// Implementations return ErrNoWalletCapability from Connect when no wallet
// exists and ErrUserRejected (possibly wrapped) whenever the user declines
// a request. SubmitTransaction resolves only once the transaction is mined
// and fails if it reverted.
type ChainClient interface {
	Connect(ctx context.Context) (common.Address, error)
	ChainID(ctx context.Context) (int64, error)

	// OnAccountChanged and OnNetworkChanged register callbacks and return a
	// function that removes them. A zero address means the account is gone.
	OnAccountChanged(fn func(common.Address)) (unsubscribe func())
	OnNetworkChanged(fn func(int64)) (unsubscribe func())

	ReadContract(ctx context.Context, to common.Address, method string, args ...string) (*big.Int, error)
	SimulateContract(ctx context.Context, to common.Address, method string, from common.Address, args ...string) (*big.Int, error)
	SubmitTransaction(ctx context.Context, to common.Address, method string, from common.Address, args ...string) (*Receipt, error)
}

// Recorder receives engine metrics. See internal/metrics for the
// Prometheus implementation.
type Recorder interface {
	ObserveRefresh(err error, took time.Duration)
	ObserveOperation(op OperationKind, err error)
	SetPending(p PendingOperation)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRefresh(error, time.Duration)   {}
func (nopRecorder) ObserveOperation(OperationKind, error) {}
func (nopRecorder) SetPending(PendingOperation)           {}
