package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/lcampe/guardian/security"
	"github.com/spf13/cobra"
)

var ipCommand = cobra.Command{
	Use:   "ip",
	Short: "ip freeze related operations",
	Long:  `Operator actions on frozen addresses`,
}

var unfreezeIPCommand = cobra.Command{
	Use:   "unfreeze",
	Short: "unfreezes an ip address",
	Long:  `Lifts an active ip freeze before it expires on its own`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 || args[0] == "" {
			return errors.New("ip unfreeze (address) - requires an address")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		dispatcher := bootstrapDispatcher(dataStore.Auditor())
		guard := security.NewService(
			dataStore,
			TopLevelLogger.Named("security_service"),
			LoadedConfig.Security,
			dispatcher,
		)
		if err := guard.Unfreeze(cmd.Context(), args[0], nil); err != nil {
			fmt.Printf("Unable to unfreeze address: %s", err)
			os.Exit(1)
			return
		}
		fmt.Println("Unfroze address")
	},
}

var listFrozenIPsCommand = cobra.Command{
	Use:   "ls",
	Short: "lists frozen ip addresses",
	Long:  `Lists all addresses with an active freeze`,
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		freezes, err := dataStore.FrozenIPs(cmd.Context())
		if err != nil {
			fmt.Printf("Unable to list frozen addresses: %s", err)
			os.Exit(1)
			return
		}
		if len(freezes) == 0 {
			fmt.Println("No active freezes")
			return
		}
		for _, f := range freezes {
			fmt.Printf(
				"%s\tfrozen %s\tuntil %s\tfailed attempts %d\n",
				f.IPAddress,
				f.FrozenAt.Format("2006-01-02 15:04"),
				f.UnfreezeAt.Format("2006-01-02 15:04"),
				f.FailedAttempts,
			)
		}
	},
}
