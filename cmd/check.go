package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"movieverse/config"
	"movieverse/services/catalog"
	"movieverse/services/httpretry"
	"movieverse/services/player"
	"movieverse/services/tmdb"
	"movieverse/utils"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Check that the catalog, TMDB and an optional stream are reachable",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "stream",
				Usage: "HLS source URL to load",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			out := cmd.Root().Writer

			failed := 0
			check := func(name string, fn func(context.Context) (string, error)) {
				start := time.Now()
				detail, err := fn(ctx)
				if err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %-8s %v\n", name, err)
					return
				}
				fmt.Fprintf(out, "ok   %-8s %s (%s)\n", name, detail, time.Since(start).Round(time.Millisecond))
			}

			client := catalog.New(&http.Client{Timeout: cfg.Catalog.Timeout}, nil, catalog.Options{BaseURL: cfg.Catalog.BaseURL})
			check("catalog", func(ctx context.Context) (string, error) {
				rows, err := client.Trending(ctx, 1)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%d trending", len(rows)), nil
			})
			check("hlstoken", func(ctx context.Context) (string, error) {
				token, err := client.HLSToken(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%d byte token", len(token)), nil
			})
			if cfg.TMDB.APIKey != "" {
				check("tmdb", checkTMDB(cfg))
			} else {
				fmt.Fprintln(out, "skip tmdb     TMDB_API_KEY not set")
			}
			if src := cmd.String("stream"); src != "" {
				check("stream", checkStream(src, out))
			}

			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d check(s) failed", failed), 1)
			}
			return nil
		},
	}
}

func checkTMDB(cfg *config.Settings) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		retrier := httpretry.New(nil, httpretry.Options{Target: "tmdb", BaseDelay: cfg.TMDB.BaseDelay, MaxJitter: cfg.TMDB.MaxJitter})
		client := tmdb.New(retrier, tmdb.Options{
			BaseURL:        cfg.TMDB.BaseURL,
			APIKey:         cfg.TMDB.APIKey,
			MaxRetries:     cfg.TMDB.MaxRetries,
			AttemptTimeout: cfg.TMDB.AttemptTimeout,
		})
		page, err := client.Search(ctx, "movie", "matrix", 1)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d results", page.TotalResults), nil
	}
}

func checkStream(src string, out io.Writer) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		src, err := utils.NormalizeMediaURL(src)
		if err != nil {
			return "", err
		}
		engine := player.NewManifestEngine(httpretry.New(nil, httpretry.Options{Target: "player"}), manifestReloads, httpretry.DefaultAttemptTimeout)
		ctrl := player.NewController(engine)
		defer ctrl.Close()

		if err := ctrl.Load(ctx, src); err != nil {
			return "", err
		}
		state := ctrl.State()
		if state.Error != "" {
			return "", fmt.Errorf("%s", state.Error)
		}
		for _, q := range state.Qualities {
			fmt.Fprintf(out, "       quality  %s\n", q.Name)
		}
		return fmt.Sprintf("%d qualities, %d audio, %d subtitles",
			len(state.Qualities), len(state.AudioTracks), len(state.SubtitleTracks)), nil
	}
}

// manifestReloads bounds playlist reload attempts while probing.
const manifestReloads = 2
