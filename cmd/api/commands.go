package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/config"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/application"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/jwt"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.App.Store != config.StorePostgres {
				return fmt.Errorf("migrations need STORE=%s", config.StorePostgres)
			}
			return runMigration(cfg.DatabaseURL(), direction)
		},
	}
}

func runMigration(dsn, direction string) error {
	m, err := database.NewMigrator(dsn)
	if err != nil {
		return fmt.Errorf("initialize migrations: %w", err)
	}
	defer m.Close()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	fmt.Printf("Migrations %s applied (version %d, dirty=%t)\n", direction, version, dirty)
	return nil
}

func stagesCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "stages",
		Short: "Validate and print the stage catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = os.Getenv("STAGE_CATALOG_PATH")
			}
			catalog, err := config.LoadCatalog(path)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(application.NewCatalogResponse(catalog))
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "stage catalog YAML (defaults to STAGE_CATALOG_PATH, then the built-in stages)")
	return cmd
}

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <reviewer-id>",
		Short: "Issue an access token for a reviewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
			if err != nil {
				return err
			}

			token, expiresAt, err := JWTService.GenerateAccessToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", time.Unix(expiresAt, 0).UTC().Format(time.RFC3339))
			return nil
		},
	}
}
