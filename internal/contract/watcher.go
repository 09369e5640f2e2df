package contract

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Watcher polls the endpoint's chain id and the active wallet and notifies
// subscribers when either changes. Callbacks run on the polling goroutine
// with no lock held.
type Watcher struct {
	interval time.Duration
	chainID  func(context.Context) (int64, error)
	account  func() (common.Address, error)
	logger   *slog.Logger

	mu          sync.Mutex
	primed      bool
	lastChain   int64
	lastAccount common.Address
	nextID      int
	accountFns  map[int]func(common.Address)
	networkFns  map[int]func(int64)
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewWatcher creates a stopped watcher.
func NewWatcher(interval time.Duration, chainID func(context.Context) (int64, error), account func() (common.Address, error)) *Watcher {
	return &Watcher{
		interval:   interval,
		chainID:    chainID,
		account:    account,
		logger:     slog.New(slog.DiscardHandler),
		accountFns: make(map[int]func(common.Address)),
		networkFns: make(map[int]func(int64)),
	}
}

// OnAccountChanged registers fn and returns its removal func.
func (w *Watcher) OnAccountChanged(fn func(common.Address)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.accountFns[id] = fn
	return func() {
		w.mu.Lock()
		delete(w.accountFns, id)
		w.mu.Unlock()
	}
}

// OnNetworkChanged registers fn and returns its removal func.
func (w *Watcher) OnNetworkChanged(fn func(int64)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.networkFns[id] = fn
	return func() {
		w.mu.Lock()
		delete(w.networkFns, id)
		w.mu.Unlock()
	}
}

// Prime sets the values later polls are compared against.
func (w *Watcher) Prime(account common.Address, chainID int64) {
	w.mu.Lock()
	w.lastAccount, w.lastChain, w.primed = account, chainID, true
	w.mu.Unlock()
}

// Start launches the polling goroutine. It is a no-op when running.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx, w.done)
}

// Stop halts polling and waits for the goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll checks once for changes and fires callbacks. A failed lookup leaves
// the corresponding value untouched.
func (w *Watcher) Poll(ctx context.Context) {
	id, chainErr := w.chainID(ctx)
	if chainErr != nil {
		w.logger.Debug("watch: chain id unavailable", "err", chainErr)
	}
	addr, accErr := w.account()
	if accErr != nil {
		w.logger.Debug("watch: account unavailable", "err", accErr)
	}

	var (
		accountFns []func(common.Address)
		networkFns []func(int64)
	)
	w.mu.Lock()
	if !w.primed {
		if chainErr == nil && accErr == nil {
			w.lastChain, w.lastAccount, w.primed = id, addr, true
		}
		w.mu.Unlock()
		return
	}
	if chainErr == nil && id != w.lastChain {
		w.lastChain = id
		for _, fn := range w.networkFns {
			networkFns = append(networkFns, fn)
		}
	}
	if accErr == nil && addr != w.lastAccount {
		w.lastAccount = addr
		for _, fn := range w.accountFns {
			accountFns = append(accountFns, fn)
		}
	}
	w.mu.Unlock()

	for _, fn := range networkFns {
		fn(id)
	}
	for _, fn := range accountFns {
		fn(addr)
	}
}
