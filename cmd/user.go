package cmd

import (
	"github.com/spf13/cobra"
)

var userCommand = cobra.Command{
	Use:   "user",
	Short: "user related operations",
	Long:  `Operator actions on user accounts`,
}
