// check-positions: reads the vault deposit and USDC wallet balance for a set
// of addresses on Base in parallel and prints a summary table.
//
// Run from the module root:
//
//	go run ./scripts/check-positions 0xabc... 0xdef...
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Mohsinsiddi/earnusdc/internal/chain"
	"github.com/Mohsinsiddi/earnusdc/internal/contract"
	"github.com/Mohsinsiddi/earnusdc/internal/earn"
	"github.com/Mohsinsiddi/earnusdc/internal/units"
	"github.com/Mohsinsiddi/earnusdc/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

const rpcTimeout = 12 * time.Second

type position struct {
	wallet  string
	deposit string
	balance string
	err     string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: check-positions <address> [address...]")
		os.Exit(2)
	}

	base, err := chain.NewRegistry().GetByName("base")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rpcURL := base.RPCs("mainnet")[0] // first built-in RPC

	contracts := earn.DefaultContracts()
	// Reads never sign, so no wallet is ever resolved.
	noWallet := func() (*wallet.Wallet, error) { return nil, wallet.ErrNoWallet }
	client := contract.NewClient(chain.NewEVMClient(rpcURL, chain.WithRateLimit(10, 5)), contracts, noWallet, nil)
	defer client.Close()

	addrs := os.Args[1:]
	results := make([]position, len(addrs))

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	var g errgroup.Group
	for i, a := range addrs {
		g.Go(func() error {
			results[i] = readPosition(ctx, client, contracts, a)
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	printTable(results)
}

func readPosition(ctx context.Context, client *contract.Client, contracts earn.Contracts, addr string) position {
	p := position{wallet: shortAddr(addr), deposit: "—", balance: "—"}
	if !common.IsHexAddress(addr) {
		p.err = "invalid address"
		return p
	}
	account := common.HexToAddress(addr).Hex()

	dep, err := client.ReadContract(ctx, contracts.Vault, earn.MethodDeposits, account)
	if err != nil {
		p.err = shortErr(err)
		return p
	}
	bal, err := client.ReadContract(ctx, contracts.Token, earn.MethodBalanceOf, account)
	if err != nil {
		p.err = shortErr(err)
		return p
	}
	p.deposit = units.FormatFixed(dep, units.USDCDecimals, 2)
	p.balance = units.FormatFixed(bal, units.USDCDecimals, 2)
	return p
}

func printTable(results []position) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "WALLET\tDEPOSITED\tWALLET USDC\tNOTE")
	fmt.Fprintln(w, strings.Repeat("-", 14)+"\t"+
		strings.Repeat("-", 12)+"\t"+
		strings.Repeat("-", 12)+"\t"+
		strings.Repeat("-", 12))
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.wallet, r.deposit, r.balance, r.err)
	}
	w.Flush()
}

func shortAddr(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 30 {
		return s[:30] + "…"
	}
	return s
}
