package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/earnusdc/internal/earn"
	"github.com/Mohsinsiddi/earnusdc/internal/ui"
	"github.com/spf13/cobra"
)

var (
	depositReferral string
	depositMax      bool
	depositResume   bool
	withdrawMax     bool
)

// errAmountRequired is returned when neither an amount nor --max is given.
var errAmountRequired = errors.New("amount required (or use --max)")

var depositCmd = &cobra.Command{
	Use:   "deposit [amount]",
	Short: "Approve and deposit USDC into the vault",
	Long: `Approve the vault to spend amount USDC, then deposit it.

Two transactions are sent. If the approval goes through but the deposit
fails, run the same command again with --resume to send only the deposit.

  earnusdc deposit 250
  earnusdc deposit 250 --referral 42
  earnusdc deposit --max`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		s, err := connectSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		amount, err := resolveAmount(args, depositMax, s.engine.MaxDeposit)
		if err != nil {
			return err
		}

		run := s.engine.Deposit
		if depositResume {
			run = s.engine.CompleteDeposit
		}
		// The spinner would draw over confirmation prompts.
		spin := ui.NewSpinner(fmt.Sprintf("Depositing %s USDC...", amount))
		if assumeYes {
			spin.Start()
		}
		res, err := run(ctx, amount, depositReferral)
		spin.Stop()

		if res != nil && res.ApprovalReceipt != nil {
			printReceipt(s, "Approval", res.ApprovalReceipt)
		}
		if err != nil {
			return err
		}
		printReceipt(s, "Deposit", res.DepositReceipt)
		fmt.Println(ui.Success(fmt.Sprintf("Deposited %s USDC (referral %s).", amount, res.Referral)))
		printPosition(s.engine.State())
		return nil
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw [amount]",
	Short: "Withdraw USDC from the vault",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		s, err := connectSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		amount, err := resolveAmount(args, withdrawMax, s.engine.MaxWithdraw)
		if err != nil {
			return err
		}

		rcpt, err := s.engine.Withdraw(ctx, amount)
		if err != nil {
			return err
		}
		printReceipt(s, "Withdraw", rcpt)
		fmt.Println(ui.Success(fmt.Sprintf("Withdrew %s USDC.", amount)))
		printPosition(s.engine.State())
		return nil
	},
}

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim accrued deposit rewards",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		s, err := connectSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		rcpt, err := s.engine.ClaimRewards(ctx)
		if err != nil {
			return err
		}
		printReceipt(s, "Claim", rcpt)
		fmt.Println(ui.Success("Rewards claimed."))
		printPosition(s.engine.State())
		return nil
	},
}

var referralCmd = &cobra.Command{
	Use:   "referral",
	Short: "Generate your referral code",
	Long: fmt.Sprintf(`Generate a referral code for the active wallet. Share it: whoever
deposits with it earns %s extra and you earn %s.`, referredBonus, referrerBonus),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		s, err := connectSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		code, err := s.engine.GenerateReferralCode(ctx)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("Referral code: " + ui.Val(code.String())))
		fmt.Println(ui.Hint("Friends deposit with: earnusdc deposit <amount> --referral " + code.String()))
		return nil
	},
}

func init() {
	depositCmd.Flags().StringVarP(&depositReferral, "referral", "r", "", "referral code (default 0)")
	depositCmd.Flags().BoolVar(&depositMax, "max", false, "deposit the whole wallet balance")
	depositCmd.Flags().BoolVar(&depositResume, "resume", false, "skip the approval and send only the deposit")
	withdrawCmd.Flags().BoolVar(&withdrawMax, "max", false, "withdraw the whole deposit")
}

// resolveAmount returns the amount argument, or the maximum when useMax is
// set. Giving both is an error.
func resolveAmount(args []string, useMax bool, maxAmount func() (string, bool)) (string, error) {
	switch {
	case useMax && len(args) > 0:
		return "", errors.New("give an amount or --max, not both")
	case useMax:
		v, ok := maxAmount()
		if !ok {
			return "", errors.New("balances not loaded yet, cannot compute --max")
		}
		return v, nil
	case len(args) == 0 || strings.TrimSpace(args[0]) == "":
		return "", errAmountRequired
	}
	return strings.TrimSpace(args[0]), nil
}

func printReceipt(s *earnSession, label string, r *earn.Receipt) {
	if r == nil {
		return
	}
	fmt.Println(ui.Info(fmt.Sprintf("%s mined in block %d (gas %d)", label, r.BlockNumber, r.GasUsed)))
	if url := s.TxURL(r.TxHash); url != "" {
		fmt.Println("  " + ui.Meta(url))
	} else {
		fmt.Println("  " + ui.Addr(r.TxHash))
	}
}

func printPosition(st earn.State) {
	if !st.Loaded() {
		return
	}
	fmt.Println(ui.Meta(fmt.Sprintf("Deposited %s USDC · wallet %s USDC · APR %s%%",
		st.DepositDisplay(), st.WalletDisplay(), st.APRPercent())))
}
