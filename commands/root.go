package commands

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	envFile   string
	accountID string
	logLevel  string
)

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "asterctl",
		Short:         "Read-only Aster futures account monitor",
		Long:          "asterctl signs Aster futures API requests with an agent wallet and shows positions, balances and trade history for one or more accounts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "accounts file (YAML); defaults to $ACCOUNTS_FILE or a single account from the environment")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default .env if present)")
	root.PersistentFlags().StringVar(&accountID, "account", "", "account id; commands that accept several accounts use all enabled ones when empty")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newPositionsCmd(),
		newAccountCmd(),
		newBalanceCmd(),
		newTradesCmd(),
		newPriceCmd(),
		newPingCmd(),
		newSignCmd(),
	)

	return root
}
