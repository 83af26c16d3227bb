package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gatherly/server/internal/auth"
)

var (
	tokenEmail string
	tokenRole  string
	tokenUser  string
)

// tokenCmd mints a JWT for local development and scripted API access.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate a JWT for API access",
	Long: `Generate a signed JWT using the configured JWT_SECRET.

Examples:
  server token --email organizer@example.org --role organizer
  server token --email admin@example.org --role admin --user admin-1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if tokenEmail == "" {
			return fmt.Errorf("--email is required")
		}
		subject := tokenUser
		if subject == "" {
			subject = tokenEmail
		}

		manager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer)
		token, err := manager.Generate(subject, tokenEmail, string(auth.NormalizeRole(tokenRole)))
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim (required)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "member", "role claim (admin, organizer, member)")
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "subject claim (defaults to email)")
}
