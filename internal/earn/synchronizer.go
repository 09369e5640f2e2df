package earn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Synchronizer keeps the balance snapshot in line with the chain, on demand
// and on a timer.
type Synchronizer struct {
	store     *Store
	client    ChainClient
	contracts Contracts
	log       *slog.Logger
	metrics   Recorder
	now       func() time.Time

	flightMu sync.Mutex
	flight   *refreshFlight // running pass, nil when idle
	seq      uint64         // seq of the most recently started pass
	waiting  int            // callers parked behind a running pass

	pollMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSynchronizer creates a Synchronizer writing into store.
func NewSynchronizer(store *Store, client ChainClient, contracts Contracts, log *slog.Logger, metrics Recorder) *Synchronizer {
	if log == nil {
		log = discardLogger()
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Synchronizer{
		store:     store,
		client:    client,
		contracts: contracts,
		log:       log,
		metrics:   metrics,
		now:       time.Now,
	}
}

// refreshFlight is one refresh pass. done is closed once err is set.
type refreshFlight struct {
	seq  uint64
	done chan struct{}
	err  error
}

// Refresh reads the user deposit, wallet balance and APR concurrently and
// publishes them as one snapshot. If any read fails the previous snapshot
// is kept and ErrRefreshFailed is returned.
//
// Refresh is single-flight. A call made while a pass is running waits for
// it, then is served by the next pass, which all such callers share. A pass
// that ended because its own caller's ctx was cancelled serves nobody else.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.flightMu.Lock()
	// Only a pass started after this point reflects chain state as of now.
	minSeq := s.seq + 1
	for {
		f := s.flight
		if f == nil {
			return s.lead(ctx)
		}
		s.waiting++
		s.flightMu.Unlock()

		var err error
		select {
		case <-f.done:
		case <-ctx.Done():
			err = ctx.Err()
		}

		s.flightMu.Lock()
		s.waiting--
		if err != nil {
			s.flightMu.Unlock()
			return err
		}
		if f.seq >= minSeq && !isContextErr(f.err) {
			s.flightMu.Unlock()
			return f.err
		}
	}
}

// lead runs one pass as its owner. flightMu must be held; lead releases it.
func (s *Synchronizer) lead(ctx context.Context) error {
	s.seq++
	f := &refreshFlight{seq: s.seq, done: make(chan struct{})}
	s.flight = f
	s.flightMu.Unlock()
	defer func() {
		s.flightMu.Lock()
		s.flight = nil
		s.flightMu.Unlock()
		close(f.done)
	}()

	f.err = s.refreshOnce(ctx)
	return f.err
}

// refreshing reports whether a pass is running.
func (s *Synchronizer) refreshing() bool {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	return s.flight != nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (s *Synchronizer) refreshOnce(ctx context.Context) error {
	sess, epoch, err := s.store.activeSession()
	if err != nil {
		return err
	}

	start := s.now()
	account := sess.Account.Hex()
	var deposit, balance, apr *big.Int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.client.ReadContract(gctx, s.contracts.Vault, MethodDeposits, account)
		if err != nil {
			return fmt.Errorf("reading %s: %w", MethodDeposits, err)
		}
		deposit = v
		return nil
	})
	g.Go(func() error {
		v, err := s.client.ReadContract(gctx, s.contracts.Token, MethodBalanceOf, account)
		if err != nil {
			return fmt.Errorf("reading %s: %w", MethodBalanceOf, err)
		}
		balance = v
		return nil
	})
	g.Go(func() error {
		v, err := s.client.ReadContract(gctx, s.contracts.Vault, MethodCurrentAPR)
		if err != nil {
			return fmt.Errorf("reading %s: %w", MethodCurrentAPR, err)
		}
		apr = v
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			// Cancelled by StopPolling or the caller; not a chain failure.
			return ctx.Err()
		}
		opErr := newOperationError(OpRefresh, ErrRefreshFailed, err)
		s.store.recordError(opErr)
		s.metrics.ObserveRefresh(opErr, s.now().Sub(start))
		s.log.Warn("refresh failed", "account", account, "err", err)
		return opErr
	}

	snap := &BalanceSnapshot{
		UserDeposit:    nonNil(deposit),
		WalletBalance:  nonNil(balance),
		APRBasisPoints: nonNil(apr),
		FetchedAt:      s.now(),
	}
	if !s.store.publishSnapshot(epoch, snap) {
		s.log.Debug("discarding snapshot for stale session", "account", account)
		return nil
	}
	s.metrics.ObserveRefresh(nil, s.now().Sub(start))
	s.log.Debug("balances refreshed", "account", account,
		"deposit", deposit.String(), "wallet", balance.String(), "apr_bps", apr.String())
	return nil
}

// StartPolling refreshes every interval until StopPolling is called or the
// session changes. Any previous poller is stopped first. The first refresh
// happens after one interval; callers refresh immediately themselves.
func (s *Synchronizer) StartPolling(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	epoch := s.store.Epoch()

	go s.poll(ctx, epoch, interval, done)
	s.log.Debug("polling started", "interval", interval, "epoch", epoch)
}

// StopPolling cancels the poller and waits for it to exit. It must not be
// called from a State observer, which may be running on the poller itself.
func (s *Synchronizer) StopPolling() {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	s.stopLocked()
}

// Polling reports whether a poller is running.
func (s *Synchronizer) Polling() bool {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Synchronizer) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	s.log.Debug("polling stopped")
}

func (s *Synchronizer) poll(ctx context.Context, epoch uint64, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.store.Epoch() != epoch {
				// The session moved on without anyone stopping us.
				return
			}
			if s.refreshing() {
				s.log.Debug("poll skipped, refresh running")
				continue
			}
			s.Refresh(ctx) //nolint:errcheck // recorded in the store
		}
	}
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
