package earn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Controller owns the wallet connection: connecting, enforcing the required
// network and reacting to account and network changes reported by the
// client.
type Controller struct {
	store    *Store
	client   ChainClient
	sync     *Synchronizer
	interval time.Duration
	log      *slog.Logger

	// eventCtx is used for chain calls made while handling notifications.
	eventCtx context.Context

	mu     sync.Mutex // serializes connect, disconnect and event handling
	unsubs []func()
}

// NewController creates a Controller. client may be nil, in which case
// Connect fails with ErrNoWalletCapability.
func NewController(store *Store, client ChainClient, sync *Synchronizer, interval time.Duration, log *slog.Logger) *Controller {
	if log == nil {
		log = discardLogger()
	}
	return &Controller{
		store:    store,
		client:   client,
		sync:     sync,
		interval: interval,
		log:      log,
		eventCtx: context.Background(),
	}
}

// Connect asks the wallet for account access and validates the network.
// On a network mismatch the session is still established (so the UI can
// show the account) but ErrWrongNetwork is returned and operations stay
// blocked until the network changes.
func (c *Controller) Connect(ctx context.Context) error {
	if c.client == nil {
		return c.fail(ErrNoWalletCapability, nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.clearError()

	account, err := c.client.Connect(ctx)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserRejected):
			return c.fail(ErrUserRejected, err)
		case errors.Is(err, ErrNoWalletCapability):
			return c.fail(ErrNoWalletCapability, err)
		default:
			return c.fail(ErrNotConnected, err)
		}
	}
	if account == (common.Address{}) {
		return c.fail(ErrNotConnected, errors.New("wallet returned no account"))
	}

	chainID, err := c.client.ChainID(ctx)
	if err != nil {
		return c.fail(ErrNotConnected, fmt.Errorf("reading chain id: %w", err))
	}

	c.subscribeLocked()
	c.log.Info("wallet connected", "account", account.Hex(), "chain_id", chainID)
	return c.establishLocked(ctx, account, chainID)
}

// Disconnect stops polling, drops the notification subscriptions and
// resets the session.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

// establishLocked installs a session and, if it is on the right network,
// refreshes and resumes polling for it.
func (c *Controller) establishLocked(ctx context.Context, account common.Address, chainID int64) error {
	c.sync.StopPolling()
	c.store.setSession(Session{Connected: true, Account: account, ChainID: chainID})

	if want := c.store.RequiredChainID(); chainID != want {
		c.log.Warn("wrong network", "chain_id", chainID, "required", want)
		return c.fail(ErrWrongNetwork, fmt.Errorf("wallet is on chain %d, switch to chain %d", chainID, want))
	}

	c.store.clearError()
	c.sync.Refresh(ctx) //nolint:errcheck // recorded in the store
	c.sync.StartPolling(c.interval)
	return nil
}

func (c *Controller) teardownLocked() {
	c.sync.StopPolling()
	for _, u := range c.unsubs {
		u()
	}
	c.unsubs = nil
	c.store.reset()
}

func (c *Controller) subscribeLocked() {
	if c.unsubs != nil {
		return
	}
	c.unsubs = []func(){
		c.client.OnAccountChanged(c.handleAccountChanged),
		c.client.OnNetworkChanged(c.handleNetworkChanged),
	}
}

// handleAccountChanged swaps the account in place. Polling is restarted so
// no timer keeps running for the old account.
func (c *Controller) handleAccountChanged(account common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, _ := c.store.Session()
	if !cur.Connected || account == cur.Account {
		return
	}
	if account == (common.Address{}) {
		c.log.Info("wallet account removed, disconnecting", "account", cur.Account.Hex())
		c.teardownLocked()
		c.fail(ErrNotConnected, errors.New("wallet account removed")) //nolint:errcheck
		return
	}

	c.log.Info("wallet account changed", "from", cur.Account.Hex(), "to", account.Hex())
	c.sync.StopPolling()
	c.store.setSession(Session{Connected: true, Account: account, ChainID: cur.ChainID})
	if cur.ChainID != c.store.RequiredChainID() {
		return
	}
	c.sync.Refresh(c.eventCtx) //nolint:errcheck
	c.sync.StartPolling(c.interval)
}

// handleNetworkChanged treats a network change like a reconnect: polling is
// stopped and the chain id is read again before anything resumes.
func (c *Controller) handleNetworkChanged(chainID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, _ := c.store.Session()
	if !cur.Connected {
		return
	}
	c.log.Info("network changed, revalidating", "reported_chain_id", chainID)
	c.sync.StopPolling()

	id, err := c.client.ChainID(c.eventCtx)
	if err != nil {
		c.teardownLocked()
		c.fail(ErrNotConnected, fmt.Errorf("reading chain id: %w", err)) //nolint:errcheck
		return
	}
	c.establishLocked(c.eventCtx, cur.Account, id) //nolint:errcheck // recorded in the store
}

func (c *Controller) fail(sentinel, cause error) error {
	e := newOperationError(OpConnect, sentinel, cause)
	c.store.recordError(e)
	return e
}
