package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendawaks/dialogate/internal/auth"
	"github.com/tendawaks/dialogate/internal/config"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with the builtin verifier's secret",
		Long: "Mint a bearer token for development and testing. Only works when\n" +
			"auth.provider is builtin; the token expires after auth.jwt_expiry.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath(cmd, nil))
			if err != nil {
				return err
			}
			if cfg.Auth.Provider != "builtin" {
				return fmt.Errorf("token minting requires auth.provider builtin, got %q", cfg.Auth.Provider)
			}

			user, _ := cmd.Flags().GetString("user")
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")

			v := auth.NewBuiltinVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry.Duration, cfg.Auth.Issuer)
			tok, err := v.Generate(auth.Identity{UserID: user, Username: name, Role: role})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringP("user", "u", "", "employee ID to embed (required)")
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("role", "user", "role: user or admin")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
