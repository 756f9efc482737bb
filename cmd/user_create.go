package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/lcampe/guardian/user"
	"github.com/spf13/cobra"
)

var createUserCommand = cobra.Command{
	Use:   "create",
	Short: "creates a new user",
	Long:  `Registers a new user account, the usual verification flow applies`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 2 || args[0] == "" || args[1] == "" {
			return errors.New("user create (email) (password) - requires email and password")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		dispatcher := bootstrapDispatcher(dataStore.Auditor())
		mailer := mustResolveMailer()
		oneTimeTokens := verificationService(dataStore)
		limiter := mailLimiter(dataStore)
		userService := user.New(
			dataStore,
			TopLevelLogger.Named("user_service"),
			LoadedConfig,
			mailer,
			dispatcher,
			oneTimeTokens,
			limiter,
			noSessions{},
		)
		id, err := userService.RegisterUser(cmd.Context(), args[0], args[1])
		if err != nil {
			fmt.Printf("Unable to create user: %s", err)
			os.Exit(1)
			return
		}
		fmt.Printf("Created user %s\n", id)
	},
}
