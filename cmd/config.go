package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/earnusdc/internal/chain"
	"github.com/Mohsinsiddi/earnusdc/internal/rpc"
	"github.com/Mohsinsiddi/earnusdc/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"list"},
	Short:   "Show current configuration",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		contracts := cfg.Contracts()
		fmt.Printf("%s\n\n", ui.StyleTitle.Render("Current Configuration"))
		fmt.Println(string(data))
		fmt.Println()
		fmt.Println(ui.KeyValueBlock("Contracts", [][2]string{
			{"Vault", ui.Addr(contracts.Vault.Hex())},
			{"Token", ui.Addr(contracts.Token.Hex())},
		}))
		fmt.Println(ui.Meta("Config directory: " + cfg.Dir()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by its key, e.g.

  earnusdc config set network_mode testnet
  earnusdc config set rpc_algorithm failover
  earnusdc config set poll_interval 15
  earnusdc config set vault_address 0x...

Keys: default_network, network_mode, default_wallet, rpc_algorithm,
poll_interval, required_chain_id, vault_address, token_address,
token_decimals, receipt_timeout, rpc_rate_limit.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s set to %q", args[0], args[1])))
		return nil
	},
}

var configAddRPCCmd = &cobra.Command{
	Use:   "add-rpc <url>",
	Short: "Add a custom RPC endpoint, tried before the built-in ones",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.AddRPC(cfg.DefaultNetwork, args[0]); err != nil {
			// Already present, not fatal.
			fmt.Println(ui.Warn(err.Error()))
			return nil
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("RPC for %s added: %s", cfg.DefaultNetwork, args[0])))
		fmt.Println(ui.Hint("Check it with: earnusdc config rpcs"))
		return nil
	},
}

var configRemoveRPCCmd = &cobra.Command{
	Use:   "remove-rpc <url>",
	Short: "Remove a custom RPC endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveRPC(cfg.DefaultNetwork, args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("RPC for %s removed: %s", cfg.DefaultNetwork, args[0])))
		return nil
	},
}

var configRPCsCmd = &cobra.Command{
	Use:   "rpcs",
	Short: "Probe every candidate RPC and show which one would be used",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := chain.NewRegistry().GetByName(cfg.DefaultNetwork)
		if err != nil {
			return fmt.Errorf("unknown network %q", cfg.DefaultNetwork)
		}
		algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), readTimeout)
		defer cancel()

		urls := rpc.Candidates(cfg.GetRPCs(c.Name), c.RPCs(cfg.NetworkMode))
		spin := ui.NewSpinner(fmt.Sprintf("Probing %d endpoint(s)...", len(urls)))
		spin.Start()
		endpoints := rpc.ProbeAll(ctx, urls, requiredChainID(c))
		spin.Stop()

		t := endpointTable(endpoints)
		if winner, err := rpc.NewPicker(algo).Pick(endpoints); err == nil {
			for i := range endpoints {
				if endpoints[i].URL == winner.URL {
					t.Marked = i
				}
			}
		}
		fmt.Println(ui.Network(c.Label(cfg.NetworkMode)) + ui.Meta(fmt.Sprintf("  algorithm %s", algo)))
		fmt.Println(t.Render())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configAddRPCCmd, configRemoveRPCCmd, configRPCsCmd)
}

func endpointTable(endpoints []rpc.Endpoint) *ui.Table {
	t := ui.NewTable([]ui.Column{
		{Title: "URL", Width: 40},
		{Title: "Latency", Width: 10},
		{Title: "Block", Width: 12},
		{Title: "Status", Width: 30},
	})
	for _, ep := range endpoints {
		status, latency, block := "ok", "-", "-"
		if ep.Err != nil {
			status = ep.Err.Error()
		} else {
			latency = ep.Latency.Round(time.Millisecond).String()
			block = fmt.Sprintf("%d", ep.BlockNumber)
		}
		t.AddRow(ui.Row{ep.URL, latency, block, status})
	}
	return t
}
