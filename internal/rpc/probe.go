package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/earnusdc/internal/chain"
	"golang.org/x/sync/errgroup"
)

const (
	probeTimeout     = 5 * time.Second
	probeConcurrency = 8
)

// Probe measures one endpoint: round-trip latency, head block and chain id.
// An endpoint serving a chain other than wantChainID is unhealthy; pass 0
// to accept any chain.
func Probe(ctx context.Context, url string, wantChainID int64) Endpoint {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	ep := Endpoint{URL: url, Checked: true}
	c := chain.NewEVMClient(url)

	latency, block, err := c.Ping(ctx)
	if err != nil {
		ep.Err = err
		return ep
	}
	ep.Latency, ep.BlockNumber = latency, block

	id, err := c.ChainID(ctx)
	if err != nil {
		ep.Err = err
		return ep
	}
	ep.ChainID = id
	if wantChainID != 0 && id != wantChainID {
		ep.Err = fmt.Errorf("serves chain %d, want %d", id, wantChainID)
		return ep
	}
	ep.Healthy = true
	return ep
}

// ProbeAll probes urls concurrently. Results keep the order of urls.
func ProbeAll(ctx context.Context, urls []string, wantChainID int64) []Endpoint {
	out := make([]Endpoint, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)
	for i, u := range urls {
		g.Go(func() error {
			out[i] = Probe(gctx, u, wantChainID)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
