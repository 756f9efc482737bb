package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/lcampe/guardian/events/event"
	"github.com/spf13/cobra"
)

var confirmUserCommand = cobra.Command{
	Use:   "confirm",
	Short: "confirms a user",
	Long:  `Confirms a users email address without the verification mail roundtrip`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 || args[0] == "" {
			return errors.New("user confirm (email) - requires a email")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		dispatcher := bootstrapDispatcher(dataStore.Auditor())
		ud, err := dataStore.UserByEmail(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Unable to confirm user: %s", err)
			os.Exit(1)
			return
		}
		err = dataStore.ConfirmUser(cmd.Context(), ud.ID)
		if err != nil {
			fmt.Printf("Unable to confirm user: %s", err)
			os.Exit(1)
			return
		}
		dispatcher.Dispatch(cmd.Context(), &event.UserConfirmed{UserID: ud.ID, AutoConfirmed: true})
		fmt.Println("Confirmed user")
	},
}
