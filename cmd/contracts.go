package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/earnusdc/internal/contract"
	"github.com/Mohsinsiddi/earnusdc/internal/ui"
	"github.com/spf13/cobra"
)

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "List the contracts and functions earnusdc calls",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addrs := map[string]string{
			contract.BuiltinVault: cfg.Contracts().Vault.Hex(),
			contract.BuiltinToken: cfg.Contracts().Token.Hex(),
		}
		for _, b := range contract.AllBuiltins() {
			fmt.Println(ui.StyleTitle.Render(b.Name) + "  " + ui.Addr(addrs[b.ID]))
			fmt.Println(ui.Meta(b.Description))
			fmt.Println(functionTable(b.ABI).Render())
		}
		return nil
	},
}

func functionTable(abi []contract.ABIEntry) *ui.Table {
	t := ui.NewTable([]ui.Column{
		{Title: "Selector", Width: 10},
		{Title: "Function", Width: 34},
		{Title: "Access", Width: 8},
	})
	for _, e := range abi {
		if e.Type != "function" {
			continue
		}
		access := "write"
		if e.IsReadFunction() {
			access = "read"
		}
		t.AddRow(ui.Row{e.Selector(), e.Signature(), access})
	}
	return t
}
