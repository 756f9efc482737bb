package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var unlockUserCommand = cobra.Command{
	Use:   "unlock",
	Short: "unlocks a locked user",
	Long:  `Lifts an account lockout before it lapses on its own`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 || args[0] == "" {
			return errors.New("user unlock (email) - requires a email")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		ud, err := dataStore.UserByEmail(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Unable to unlock user: %s", err)
			os.Exit(1)
			return
		}
		err = dataStore.UnlockUser(cmd.Context(), ud.ID)
		if err != nil {
			fmt.Printf("Unable to unlock user: %s", err)
			os.Exit(1)
			return
		}
		fmt.Println("Unlocked user")
	},
}
