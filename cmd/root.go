// Package cmd defines the movieverse command line.
package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"movieverse/config"
	"movieverse/handlers"
)

// Root returns the root CLI command.
func Root() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "movieverse",
		Usage:   "Browse, request and play movies and series",
		Version: handlers.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to configuration file",
				Value:       "config.yaml",
				Sources:     cli.EnvVars("MOVIEVERSE_CONFIG"),
				Destination: &configPath,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := config.Load(configPath)
			if err != nil {
				return ctx, err
			}
			cmd.Metadata["config"] = cfg
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			searchCommand(),
			checkCommand(),
		},
		Metadata: map[string]any{},
	}
}

// configFrom returns the settings loaded by the root Before hook.
func configFrom(cmd *cli.Command) (*config.Settings, error) {
	v, ok := cmd.Root().Metadata["config"]
	if !ok {
		return nil, fmt.Errorf("config not found in command metadata")
	}
	cfg, ok := v.(*config.Settings)
	if !ok {
		return nil, fmt.Errorf("config has unexpected type %T", v)
	}
	return cfg, nil
}
