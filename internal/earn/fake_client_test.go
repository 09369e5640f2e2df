package earn

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000A11CE")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000B0B")
)

// usdc returns n whole tokens in base units.
func usdc(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000))
}

type call struct {
	Kind   string // read, simulate, submit
	To     common.Address
	Method string
	From   common.Address
	Args   []string
}

// fakeChain is an in-memory wallet plus vault ledger implementing
// ChainClient.
type fakeChain struct {
	mu        sync.Mutex
	account   common.Address
	chainID   int64
	connErr   error
	chainErr  error
	contracts Contracts

	wallet    map[common.Address]*big.Int
	deposits  map[common.Address]*big.Int
	allowance map[common.Address]*big.Int
	apr       *big.Int
	reward    *big.Int
	refCode   *big.Int

	readErr   map[string]error
	submitErr map[string]error
	panicOn   string

	// readGate and submitGate, when set, block the call until closed.
	// entered receives a value (non-blocking) whenever a gated call starts.
	readGate   chan struct{}
	submitGate chan struct{}
	entered    chan struct{}

	calls []call

	nextSub    int
	accountFns map[int]func(common.Address)
	networkFns map[int]func(int64)
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		account:    alice,
		chainID:    BaseChainID,
		contracts:  DefaultContracts(),
		wallet:     map[common.Address]*big.Int{alice: usdc(100)},
		deposits:   map[common.Address]*big.Int{},
		allowance:  map[common.Address]*big.Int{},
		apr:        big.NewInt(2400),
		reward:     usdc(1),
		refCode:    big.NewInt(4242),
		readErr:    map[string]error{},
		submitErr:  map[string]error{},
		entered:    make(chan struct{}, 16),
		accountFns: map[int]func(common.Address){},
		networkFns: map[int]func(int64){},
	}
}

func (f *fakeChain) Connect(context.Context) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connErr != nil {
		return common.Address{}, f.connErr
	}
	return f.account, nil
}

func (f *fakeChain) ChainID(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chainErr != nil {
		return 0, f.chainErr
	}
	return f.chainID, nil
}

func (f *fakeChain) OnAccountChanged(fn func(common.Address)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.accountFns[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.accountFns, id)
		f.mu.Unlock()
	}
}

func (f *fakeChain) OnNetworkChanged(fn func(int64)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.networkFns[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.networkFns, id)
		f.mu.Unlock()
	}
}

// switchAccount changes the wallet account and notifies subscribers.
func (f *fakeChain) switchAccount(a common.Address) {
	f.mu.Lock()
	f.account = a
	fns := make([]func(common.Address), 0, len(f.accountFns))
	for _, fn := range f.accountFns {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(a)
	}
}

// switchNetwork changes the chain id and notifies subscribers.
func (f *fakeChain) switchNetwork(id int64) {
	f.mu.Lock()
	f.chainID = id
	fns := make([]func(int64), 0, len(f.networkFns))
	for _, fn := range f.networkFns {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}

func (f *fakeChain) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.accountFns) + len(f.networkFns)
}

func (f *fakeChain) set(m map[common.Address]*big.Int, a common.Address, v *big.Int) {
	f.mu.Lock()
	m[a] = v
	f.mu.Unlock()
}

func (f *fakeChain) setReadErr(method string, err error) {
	f.mu.Lock()
	f.readErr[method] = err
	f.mu.Unlock()
}

func (f *fakeChain) callsOf(kind string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeChain) methods(kind string) []string {
	var out []string
	for _, c := range f.callsOf(kind) {
		out = append(out, c.Method)
	}
	return out
}

func (f *fakeChain) wait(gate chan struct{}) {
	if gate == nil {
		return
	}
	select {
	case f.entered <- struct{}{}:
	default:
	}
	<-gate
}

func (f *fakeChain) ReadContract(ctx context.Context, to common.Address, method string, args ...string) (*big.Int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{Kind: "read", To: to, Method: method, Args: args})
	gate := f.readGate
	f.mu.Unlock()
	f.wait(gate)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr[method]; err != nil {
		return nil, err
	}
	switch method {
	case MethodDeposits:
		return value(f.deposits, common.HexToAddress(args[0])), nil
	case MethodBalanceOf:
		return value(f.wallet, common.HexToAddress(args[0])), nil
	case MethodCurrentAPR:
		return new(big.Int).Set(f.apr), nil
	}
	return nil, fmt.Errorf("unexpected read %s", method)
}

func (f *fakeChain) SimulateContract(_ context.Context, to common.Address, method string, from common.Address, args ...string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Kind: "simulate", To: to, Method: method, From: from, Args: args})
	if err := f.submitErr[method]; err != nil {
		return nil, err
	}
	if method != MethodGenerateReferral {
		return nil, fmt.Errorf("unexpected simulate %s", method)
	}
	return new(big.Int).Set(f.refCode), nil
}

func (f *fakeChain) SubmitTransaction(_ context.Context, to common.Address, method string, from common.Address, args ...string) (*Receipt, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{Kind: "submit", To: to, Method: method, From: from, Args: args})
	gate := f.submitGate
	panicOn := f.panicOn
	n := len(f.calls)
	f.mu.Unlock()
	if method == panicOn {
		panic("wallet crashed")
	}
	f.wait(gate)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.submitErr[method]; err != nil {
		return nil, err
	}
	amount := func(i int) *big.Int {
		v, _ := new(big.Int).SetString(args[i], 10)
		return v
	}
	switch method {
	case MethodApprove:
		f.allowance[from] = amount(1)
	case MethodDepositFunds:
		amt := amount(0)
		if value(f.allowance, from).Cmp(amt) < 0 {
			return nil, errors.New("execution reverted: insufficient allowance")
		}
		if value(f.wallet, from).Cmp(amt) < 0 {
			return nil, errors.New("execution reverted: insufficient balance")
		}
		f.allowance[from] = new(big.Int).Sub(f.allowance[from], amt)
		f.wallet[from] = new(big.Int).Sub(f.wallet[from], amt)
		f.deposits[from] = new(big.Int).Add(value(f.deposits, from), amt)
	case MethodWithdraw:
		amt := amount(0)
		if value(f.deposits, from).Cmp(amt) < 0 {
			return nil, errors.New("execution reverted: insufficient deposit")
		}
		f.deposits[from] = new(big.Int).Sub(f.deposits[from], amt)
		f.wallet[from] = new(big.Int).Add(value(f.wallet, from), amt)
	case MethodClaimReward:
		f.wallet[from] = new(big.Int).Add(value(f.wallet, from), f.reward)
	case MethodGenerateReferral:
	default:
		return nil, fmt.Errorf("unexpected submit %s", method)
	}
	return &Receipt{TxHash: fmt.Sprintf("0x%064x", n), BlockNumber: uint64(n), GasUsed: 21000}, nil
}

func value(m map[common.Address]*big.Int, a common.Address) *big.Int {
	if v, ok := m[a]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// countingRecorder records metrics calls.
type countingRecorder struct {
	mu        sync.Mutex
	refreshes int
	failures  int
	ops       map[OperationKind][]error
	pending   []PendingOperation
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{ops: map[OperationKind][]error{}}
}

func (r *countingRecorder) ObserveRefresh(err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes++
	if err != nil {
		r.failures++
	}
}

func (r *countingRecorder) ObserveOperation(op OperationKind, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op] = append(r.ops[op], err)
}

func (r *countingRecorder) SetPending(p PendingOperation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, p)
}
