package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tendawaks/dialogate/internal/tui/chat"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a running gateway from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := chat.Options{}
			opts.ServerURL, _ = cmd.Flags().GetString("server")
			opts.Token, _ = cmd.Flags().GetString("token")
			opts.EmployeeID, _ = cmd.Flags().GetString("employee")
			opts.LanguageCode, _ = cmd.Flags().GetString("lang")
			opts.SessionID, _ = cmd.Flags().GetString("session")
			if opts.Token == "" {
				opts.Token = os.Getenv("DIALOGATE_TOKEN")
			}
			return chat.Run(cmd.Context(), opts)
		},
	}
	cmd.Flags().String("server", "http://localhost:8080", "gateway base URL")
	cmd.Flags().String("token", "", "bearer token (default $DIALOGATE_TOKEN)")
	cmd.Flags().String("employee", "", "employee ID to bind to the conversation")
	cmd.Flags().String("lang", "", "language code override")
	cmd.Flags().String("session", "", "resume an existing session ID")
	return cmd
}
