package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "billingd",
		Short:         "Subscription billing service",
		Long:          "billingd creates hosted checkout and portal sessions and keeps subscription records in sync with payment processor webhooks.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading the environment (default $ENV_FILE or .env)")

	root.AddCommand(
		newServeCmd(&envFiles),
		newMigrateCmd(&envFiles),
		newPlansCmd(&envFiles),
	)
	return root
}
