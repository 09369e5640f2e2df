package rpc

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Nodes more than this many blocks behind the tip are never picked.
	staleBlockThreshold = 3
	// A fastest-pick winner is reused for this long.
	cacheTTL = 5 * time.Minute
)

// ParseAlgorithm maps a config value to an Algorithm. Empty means fastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return AlgorithmFastest, nil
	case AlgorithmFastest, AlgorithmRoundRobin, AlgorithmFailover:
		return a, nil
	default:
		return "", fmt.Errorf("unknown rpc algorithm %q", s)
	}
}

// Endpoint is one RPC URL with what a probe measured about it.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	ChainID     int64
	Healthy     bool // meaningful only when Checked
	Checked     bool
	Err         error
}

// Picker chooses among endpoints. It is safe for concurrent use.
type Picker struct {
	algo Algorithm
	now  func() time.Time

	mu          sync.Mutex
	next        int
	cachedURL   string
	cacheExpiry time.Time
}

// NewPicker creates a Picker for algo.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{algo: algo, now: time.Now}
}

// Pick selects an endpoint from endpoints according to the algorithm.
func (p *Picker) Pick(endpoints []Endpoint) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoHealthyRPC
	}
	switch p.algo {
	case AlgorithmRoundRobin:
		return p.roundRobin(endpoints)
	case AlgorithmFailover:
		return failover(endpoints)
	default:
		return p.fastest(endpoints)
	}
}

func (p *Picker) fastest(endpoints []Endpoint) (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cachedURL != "" && p.now().Before(p.cacheExpiry) {
		for i := range endpoints {
			if endpoints[i].URL == p.cachedURL && usable(&endpoints[i], endpoints) {
				return &endpoints[i], nil
			}
		}
	}

	tip := bestBlock(endpoints)
	var (
		winner *Endpoint
		top    float64
	)
	for _, e := range candidates(endpoints) {
		if tip > 0 && tip-e.BlockNumber > staleBlockThreshold {
			continue
		}
		if s := score(e, tip); winner == nil || s > top {
			winner, top = e, s
		}
	}
	if winner == nil {
		return nil, ErrNoHealthyRPC
	}

	p.cachedURL = winner.URL
	p.cacheExpiry = p.now().Add(cacheTTL)
	return winner, nil
}

func (p *Picker) roundRobin(endpoints []Endpoint) (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pool := candidates(endpoints)
	if len(pool) == 0 {
		return nil, ErrNoHealthyRPC
	}
	e := pool[p.next%len(pool)]
	p.next = (p.next + 1) % len(pool)
	return e, nil
}

// failover returns the first endpoint not known to be down.
func failover(endpoints []Endpoint) (*Endpoint, error) {
	for i := range endpoints {
		if e := &endpoints[i]; !e.Checked || e.Healthy {
			return e, nil
		}
	}
	return nil, ErrNoHealthyRPC
}

// score favours low latency, then closeness to the tip.
func score(e *Endpoint, tip uint64) float64 {
	var s float64
	if ms := e.Latency.Milliseconds(); ms > 0 {
		s += 1000.0 / float64(ms)
	} else if e.Latency > 0 {
		s += 1000.0
	}
	if tip > 0 {
		s += 10 - float64(tip-e.BlockNumber)
	}
	return s
}

func bestBlock(endpoints []Endpoint) uint64 {
	var tip uint64
	for _, e := range endpoints {
		if (!e.Checked || e.Healthy) && e.BlockNumber > tip {
			tip = e.BlockNumber
		}
	}
	return tip
}

// candidates drops endpoints a probe marked unhealthy. Unprobed endpoints
// are always candidates.
func candidates(endpoints []Endpoint) []*Endpoint {
	out := make([]*Endpoint, 0, len(endpoints))
	for i := range endpoints {
		if e := &endpoints[i]; !e.Checked || e.Healthy {
			out = append(out, e)
		}
	}
	return out
}

func usable(e *Endpoint, all []Endpoint) bool {
	if e.Checked && !e.Healthy {
		return false
	}
	tip := bestBlock(all)
	return tip == 0 || tip-e.BlockNumber <= staleBlockThreshold
}
