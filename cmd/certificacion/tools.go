package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/boddenberg/certificacion-calidad-go/internal/config"
	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/handler"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/seed"
)

func seedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Work with reference data seed files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Check a seed file for broken references and overlapping thresholds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fx, err := seed.Load(args[0])
			if err != nil {
				return err
			}
			if err := fx.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d typologies, %d modules, %d questions, %d thresholds, %d companies\n",
				args[0], len(fx.Typologies), len(fx.Modules), len(fx.Questions), len(fx.Thresholds), len(fx.Companies))
			return nil
		},
	})
	return cmd
}

// tokenCommand signs a development token. Production tokens come from the
// identity provider that shares JWT_SECRET.
func tokenCommand() *cobra.Command {
	var (
		userID int64
		role   string
		name   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development access token",
		Example: `  certificacion token --user 200 --role Auditor
  certificacion token --user 1 --role Admin --ttl 1h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = config.LoadDotEnv(".env")
			cfg := config.Load()

			r, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			token, err := handler.SignIdentity([]byte(cfg.JWTSecret), domain.User{ID: userID, Name: name, Role: r}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 1, "user id placed in the token subject")
	cmd.Flags().StringVar(&role, "role", "Admin", "role: Admin, Asesor, Auditor or TecnicoPais")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	return cmd
}
