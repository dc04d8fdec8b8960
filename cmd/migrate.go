package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"movieverse/internal/database"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations and print the schema version",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}

			db, err := database.NewDB(database.Config{DatabasePath: cfg.Database.Path})
			if err != nil {
				return err
			}
			defer db.Close()

			version, err := db.Version(ctx)
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			fmt.Fprintf(cmd.Root().Writer, "%s: schema version %d\n", db.Path(), version)
			return nil
		},
	}
}
