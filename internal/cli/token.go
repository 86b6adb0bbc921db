package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"taskflow/internal/auth"
	"taskflow/internal/models"
)

func newTokenCommand(app *App) *cobra.Command {
	var (
		userID string
		role   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user",
		Long: `Mint a bearer token signed with auth.secret.

Example:
  TASKFLOW_AUTH_SECRET=change-me taskflow token --user u-42 --role tl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			tm, err := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			token, expires, err := tm.Generate(models.Identity{UserID: userID, Role: models.Role(role)})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(map[string]any{
					"token":      token,
					"expires_at": expires,
				})
			}
			fmt.Fprintln(out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to embed")
	cmd.Flags().StringVar(&role, "role", string(models.RoleUser), "role to embed")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print token and expiry as JSON")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
