package cmd

import (
	"fmt"
	"os"

	"github.com/lcampe/guardian/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ConfigFileLocation is of the config to load
var ConfigFileLocation string

// TopLevelLogger is the logger all loggers come from
var TopLevelLogger *zap.Logger

// LoadedConfig is the currently loaded configuration after initial bootstrapping
var LoadedConfig *config.Configuration

var rootCommand = cobra.Command{
	Use:   "guardian",
	Short: "guardian an account security and token service",
	Long: `guardian issues and rotates JWT session tokens, guards logins with
	adaptive captcha and freeze escalation and handles the one time token
	flows around account verification and password recovery`,
	Run: func(cmd *cobra.Command, args []string) {
		serveCommand.Run(cmd, args)
	},
}

func Execute() {
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {

	rootCommand.PersistentFlags().
		StringVar(&ConfigFileLocation, "config", "", "config file to be used")

	userCommand.AddCommand(&confirmUserCommand)
	userCommand.AddCommand(&unlockUserCommand)
	userCommand.AddCommand(&createUserCommand)

	ipCommand.AddCommand(&unfreezeIPCommand)
	ipCommand.AddCommand(&listFrozenIPsCommand)

	securityCommand.AddCommand(&securityStatsCommand)

	rootCommand.AddCommand(&serveCommand)
	rootCommand.AddCommand(&userCommand)
	rootCommand.AddCommand(&ipCommand)
	rootCommand.AddCommand(&securityCommand)
	rootCommand.AddCommand(&cleanupCommand)
}
