// Package cmd implements the dialogate command line.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

const defaultConfigPath = "dialogate.yaml"

// NewRootCmd creates the root cobra command for dialogate.
// When invoked without a subcommand, it delegates to "run".
func NewRootCmd(v string) *cobra.Command {
	version = v

	root := &cobra.Command{
		Use:   "dialogate",
		Short: "dialogate - conversational HR assistant gateway",
		Long: "dialogate accepts chat messages, forwards them to an NLU engine, and answers the\n" +
			"engine's fulfillment webhooks using the identity bound to each conversation.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return loadEnvFile(envFile, cmd.Flags().Changed("env-file"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringP("config", "c", "", "path to config file (default ./"+defaultConfigPath+")")
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the config is read")

	return root
}

// loadEnvFile loads KEY=VALUE pairs without overriding the environment. A
// missing default file is not an error.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && explicit {
		return err
	}
	return nil
}
