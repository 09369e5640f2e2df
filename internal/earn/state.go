package earn

import (
	"math/big"
	"sync"
	"time"

	"github.com/Mohsinsiddi/earnusdc/internal/units"
	"github.com/ethereum/go-ethereum/common"
)

// Session is the wallet connection. The zero value is disconnected; a
// ChainID of 0 means unknown.
type Session struct {
	Connected bool
	Account   common.Address
	ChainID   int64
}

// BalanceSnapshot is one consistent read of the user's position. Snapshots
// are never mutated after publication.
type BalanceSnapshot struct {
	UserDeposit    *big.Int // base units
	WalletBalance  *big.Int // base units
	APRBasisPoints *big.Int
	FetchedAt      time.Time
}

// PendingOperation is the mutating operation currently in flight.
type PendingOperation int

const (
	PendingNone PendingOperation = iota
	Depositing
	Withdrawing
	Claiming
	GeneratingReferral
)

func (p PendingOperation) String() string {
	switch p {
	case Depositing:
		return "depositing"
	case Withdrawing:
		return "withdrawing"
	case Claiming:
		return "claiming"
	case GeneratingReferral:
		return "generating referral"
	default:
		return "idle"
	}
}

// State is a read-only copy of everything the engine exposes.
type State struct {
	Session  Session
	Snapshot *BalanceSnapshot // nil until the first successful refresh
	Pending  PendingOperation
	LastErr  *OperationError
	Decimals int
	Version  uint64 // increases with every change
}

// Loaded reports whether a snapshot is available.
func (s State) Loaded() bool { return s.Snapshot != nil }

// Busy reports whether a mutating operation is in flight.
func (s State) Busy() bool { return s.Pending != PendingNone }

// APRPercent renders the current APR as a percentage, e.g. "24".
func (s State) APRPercent() string {
	if s.Snapshot == nil {
		return ""
	}
	return units.ToDecimalString(s.Snapshot.APRBasisPoints, 2)
}

// DepositDisplay and WalletDisplay render balances with two decimals.
func (s State) DepositDisplay() string {
	if s.Snapshot == nil {
		return ""
	}
	return units.FormatFixed(s.Snapshot.UserDeposit, s.Decimals, 2)
}

func (s State) WalletDisplay() string {
	if s.Snapshot == nil {
		return ""
	}
	return units.FormatFixed(s.Snapshot.WalletBalance, s.Decimals, 2)
}

// Store owns the engine state. All reads go through State(); writers are
// the session controller, the synchronizer and the orchestrator.
type Store struct {
	mu              sync.RWMutex
	requiredChainID int64
	decimals        int
	session         Session
	epoch           uint64 // bumped whenever the session changes
	snapshot        *BalanceSnapshot
	pending         PendingOperation
	lastErr         *OperationError
	version         uint64

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int
}

// NewStore creates an empty, disconnected store.
func NewStore(requiredChainID int64, decimals int) *Store {
	return &Store{
		requiredChainID: requiredChainID,
		decimals:        decimals,
		observers:       make(map[int]func(State)),
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	return State{
		Session:  s.session,
		Snapshot: s.snapshot,
		Pending:  s.pending,
		LastErr:  s.lastErr,
		Decimals: s.decimals,
		Version:  s.version,
	}
}

// Subscribe registers fn to be called after every change. Callbacks run on
// the goroutine that made the change and must not block.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()
	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

// update applies fn under the write lock and notifies observers when fn
// reports a change.
func (s *Store) update(fn func() bool) {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	s.version++
	st := s.stateLocked()
	s.mu.Unlock()

	s.obsMu.Lock()
	fns := make([]func(State), 0, len(s.observers))
	for _, o := range s.observers {
		fns = append(fns, o)
	}
	s.obsMu.Unlock()
	for _, o := range fns {
		o(st)
	}
}

// Session returns the current session and its epoch.
func (s *Store) Session() (Session, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.epoch
}

// Epoch returns the current session epoch.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// activeSession returns the session if it is usable for chain operations.
func (s *Store) activeSession() (Session, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.epoch, s.checkSessionLocked()
}

func (s *Store) checkSessionLocked() error {
	if !s.session.Connected || s.session.Account == (common.Address{}) {
		return ErrNotConnected
	}
	if s.session.ChainID != s.requiredChainID {
		return ErrWrongNetwork
	}
	return nil
}

// setSession replaces the session, starts a new epoch and invalidates the
// snapshot.
func (s *Store) setSession(sess Session) {
	s.update(func() bool {
		s.session = sess
		s.epoch++
		s.snapshot = nil
		return true
	})
}

// reset returns to the disconnected state.
func (s *Store) reset() {
	s.setSession(Session{})
}

// publishSnapshot replaces the snapshot if epoch is still current.
func (s *Store) publishSnapshot(epoch uint64, snap *BalanceSnapshot) bool {
	published := false
	s.update(func() bool {
		if epoch != s.epoch {
			return false
		}
		s.snapshot = snap
		if s.lastErr != nil && s.lastErr.Op == OpRefresh {
			s.lastErr = nil
		}
		published = true
		return true
	})
	return published
}

// begin moves from Idle to p. The busy check comes first so a busy engine
// rejects without touching any state.
func (s *Store) begin(p PendingOperation, op OperationKind) (Session, error) {
	var (
		sess Session
		err  error
	)
	s.update(func() bool {
		if s.pending != PendingNone {
			err = newOperationError(op, ErrOperationInProgress, nil)
			return false
		}
		if cerr := s.checkSessionLocked(); cerr != nil {
			s.lastErr = newOperationError(op, cerr, nil)
			err = s.lastErr
			return true
		}
		s.pending = p
		s.lastErr = nil
		sess = s.session
		return true
	})
	return sess, err
}

// end returns to Idle. Safe to call from a deferred function.
func (s *Store) end() {
	s.update(func() bool {
		if s.pending == PendingNone {
			return false
		}
		s.pending = PendingNone
		return true
	})
}

func (s *Store) recordError(e *OperationError) {
	s.update(func() bool {
		s.lastErr = e
		return true
	})
}

func (s *Store) clearError() {
	s.update(func() bool {
		if s.lastErr == nil {
			return false
		}
		s.lastErr = nil
		return true
	})
}

// RequiredChainID returns the chain id sessions must be on.
func (s *Store) RequiredChainID() int64 { return s.requiredChainID }
