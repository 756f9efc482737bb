package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lcampe/guardian/security"
	"github.com/spf13/cobra"
)

var securityCommand = cobra.Command{
	Use:   "security",
	Short: "security related operations",
	Long:  `Inspect the current defense posture`,
}

var statsWindowHours int

var securityStatsCommand = cobra.Command{
	Use:   "stats",
	Short: "prints login attempt statistics",
	Long:  `Summarizes the attempt ledger, active freezes and live sessions over a window`,
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		window := time.Duration(statsWindowHours) * time.Hour
		stats, err := security.CollectStatistics(cmd.Context(), dataStore, window)
		if err != nil {
			fmt.Printf("Unable to collect statistics: %s", err)
			os.Exit(1)
			return
		}
		out, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			fmt.Printf("Unable to render statistics: %s", err)
			os.Exit(1)
			return
		}
		fmt.Println(string(out))
	},
}

func init() {
	securityStatsCommand.Flags().
		IntVar(&statsWindowHours, "window", 24, "window in hours to aggregate over")
}
