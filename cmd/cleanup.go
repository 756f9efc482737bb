package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var attemptRetentionDays int

var cleanupCommand = cobra.Command{
	Use:   "cleanup",
	Short: "removes expired rows",
	Long: `Deletes expired session tokens, expired one time tokens, stale
	rate limit windows, old login attempts and purges accounts whose
	deletion grace period has passed`,
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		ctx := cmd.Context()

		tokens, err := dataStore.DeleteExpiredTokens(ctx)
		if err != nil {
			fmt.Printf("Unable to delete expired tokens: %s", err)
			os.Exit(1)
			return
		}
		verifications, err := dataStore.DeleteExpiredVerificationTokens(ctx)
		if err != nil {
			fmt.Printf("Unable to delete expired verification tokens: %s", err)
			os.Exit(1)
			return
		}
		retention := time.Duration(attemptRetentionDays) * 24 * time.Hour
		attempts, err := dataStore.DeleteOldAttempts(ctx, time.Now().UTC().Add(-retention))
		if err != nil {
			fmt.Printf("Unable to delete old login attempts: %s", err)
			os.Exit(1)
			return
		}
		limits, err := dataStore.DeleteStaleLimitWindows(ctx, time.Now().UTC())
		if err != nil {
			fmt.Printf("Unable to delete stale limit windows: %s", err)
			os.Exit(1)
			return
		}
		grace := LoadedConfig.Behaviour.DeletionGracePeriod
		purged, err := dataStore.PurgeDeletedUsers(ctx, time.Now().UTC().Add(-grace))
		if err != nil {
			fmt.Printf("Unable to purge deleted users: %s", err)
			os.Exit(1)
			return
		}
		fmt.Printf("Deleted %d session tokens\n", tokens)
		fmt.Printf("Deleted %d verification tokens\n", verifications)
		fmt.Printf("Deleted %d login attempts\n", attempts)
		fmt.Printf("Deleted %d limit windows\n", limits)
		fmt.Printf("Purged %d deleted accounts\n", purged)
	},
}

func init() {
	cleanupCommand.Flags().
		IntVar(&attemptRetentionDays, "attempt-retention", 30, "days of login attempts to keep")
}
