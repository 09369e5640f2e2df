package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Mohsinsiddi/earnusdc/internal/config"
	"github.com/Mohsinsiddi/earnusdc/internal/wallet"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/earnusdc/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir     string
	cfg        *config.Config
	verbose    bool
	testnet    bool
	mainnet    bool
	assumeYes  bool
	walletFlag string
	logger     = slog.New(slog.DiscardHandler)
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "earnusdc",
	Short: "Deposit USDC on Base and earn APR",
	Long: `earnusdc deposits USDC into the EarnUSDC vault on Base, tracks your
deposit, wallet balance and the current APR, and claims rewards.

Every transaction is previewed and needs confirmation unless --yes is set.
Private keys stay in the OS keychain; set EARN_PRIVATE_KEY to sign from CI.

Global flags --testnet and --mainnet override the configured network mode
for a single invocation. Persist with: earnusdc config set network_mode <mode>`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		// A .env file is optional.
		_ = godotenv.Load()

		if verbose {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}

		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if testnet {
			cfg.NetworkMode = "testnet"
		}
		if mainnet {
			cfg.NetworkMode = "mainnet"
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errorLine(err))
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(w, hint)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $"+config.EnvConfigDir+" or ~/.earnusdc)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log RPC and engine activity to stderr")
	rootCmd.PersistentFlags().BoolVar(&testnet, "testnet", false, "use Base Sepolia")
	rootCmd.PersistentFlags().BoolVar(&mainnet, "mainnet", false, "use Base mainnet")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "send transactions without asking")
	rootCmd.PersistentFlags().StringVarP(&walletFlag, "wallet", "w", "", "wallet name (default: config)")
	rootCmd.MarkFlagsMutuallyExclusive("testnet", "mainnet")

	rootCmd.SetVersionTemplate("earnusdc {{.Version}}\n")

	rootCmd.AddCommand(
		statusCmd,
		depositCmd,
		withdrawCmd,
		claimCmd,
		referralCmd,
		dashboardCmd,
		walletCmd,
		configCmd,
		contractsCmd,
	)

	// Signing wallets need a key; surface the env override in help.
	walletAddCmd.Long = fmt.Sprintf(`Add a watch-only wallet by address, or a signing wallet with --key.

Keys are stored in the OS keychain. On headless Linux an encrypted file
keyring under the config directory is used; set %s to unlock it
without a prompt.`, wallet.EnvKeyringPassword)
}
