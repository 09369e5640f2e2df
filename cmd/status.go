package cmd

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/earnusdc/internal/earn"
	"github.com/Mohsinsiddi/earnusdc/internal/ui"
	"github.com/Mohsinsiddi/earnusdc/internal/units"
	"github.com/spf13/cobra"
)

// Referral rewards paid by the vault, as advertised by the frontend.
const (
	referrerBonus = "5%"
	referredBonus = "7%"
)

const readTimeout = 30 * time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show your deposit, wallet balance and the current APR",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), readTimeout)
		defer cancel()

		s, err := connectSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		st := s.engine.State()
		if st.LastErr != nil {
			return st.LastErr
		}
		wei, err := s.GasBalance(ctx, st.Session.Account.Hex())
		gas := formatGas(wei, err, s.chain.NativeCurrency)
		fmt.Println(ui.Banner())
		fmt.Println()
		fmt.Println(ui.KeyValueBlock("Position", statusPairs(st, s.chain.Label(cfg.NetworkMode), gas)))
		fmt.Println()
		fmt.Println(ui.Meta(fmt.Sprintf("Referral rewards: referrer %s, referred %s.", referrerBonus, referredBonus)))
		fmt.Println(ui.Hint("Deposit with: earnusdc deposit <amount> [--referral <code>]"))
		return nil
	},
}

func statusPairs(st earn.State, network, gas string) [][2]string {
	pairs := [][2]string{
		{"Account", ui.Addr(st.Session.Account.Hex())},
		{"Network", ui.Network(network) + ui.Meta(fmt.Sprintf(" (chain %d)", st.Session.ChainID))},
	}
	if !st.Loaded() {
		pairs = append(pairs, [2]string{"Balances", ui.Meta("not loaded")})
	} else {
		pairs = append(pairs,
			[2]string{"Deposited", st.DepositDisplay() + " USDC"},
			[2]string{"Wallet", st.WalletDisplay() + " USDC"},
			[2]string{"APR", st.APRPercent() + "%"},
			[2]string{"Updated", st.Snapshot.FetchedAt.Local().Format(time.Kitchen)},
		)
	}
	if gas != "" {
		pairs = append(pairs, [2]string{"Gas", gas})
	}
	return pairs
}

// formatGas renders the native balance used for fees. Zero gets a warning
// since every write would fail.
func formatGas(wei *big.Int, err error, symbol string) string {
	switch {
	case err != nil:
		return ui.Meta("unavailable")
	case wei.Sign() == 0:
		return ui.Warn("0 " + symbol + ", needed for transaction fees")
	}
	return units.FormatFixed(wei, 18, 6) + " " + symbol
}
