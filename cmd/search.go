package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/urfave/cli/v3"

	"movieverse/models"
	"movieverse/services/catalog"
	"movieverse/services/search"
)

func searchCommand() *cli.Command {
	var table string

	return &cli.Command{
		Name:  "search",
		Usage: "Live-search the catalog, one query per stdin line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "table",
				Aliases:     []string{"t"},
				Usage:       "movies or series",
				Value:       models.TableMovies,
				Destination: &table,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum results per query",
				Value: catalog.DefaultSearchLimit,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			kind, ok := models.KindForTable(table)
			if !ok {
				return fmt.Errorf("invalid table %q", table)
			}

			client := catalog.New(&http.Client{Timeout: cfg.Catalog.Timeout}, nil, catalog.Options{BaseURL: cfg.Catalog.BaseURL})
			limit := int(cmd.Int("limit"))
			return runLiveSearch(ctx, cmd.Root().Reader, cmd.Root().Writer, cfg.Search.Debounce,
				func(ctx context.Context, q string) ([]json.RawMessage, error) {
					return client.Search(ctx, table, q, limit)
				}, kind)
		},
	}
}

// runLiveSearch feeds each input line to a debounced live search and prints
// every applied result set. It returns once input is exhausted and the last
// query settled.
func runLiveSearch(ctx context.Context, in io.Reader, out io.Writer, debounce time.Duration, fn search.Func, kind models.Kind) error {
	var (
		mu      sync.Mutex
		applied string
	)
	settled := make(chan struct{}, 1)

	live := search.NewLive(fn, debounce, func(res search.Result) {
		mu.Lock()
		defer mu.Unlock()
		applied = res.Query
		switch {
		case res.Err != nil:
			fmt.Fprintf(out, "%q: error: %v\n", res.Query, res.Err)
		case res.Query == "":
			fmt.Fprintln(out, "(cleared)")
		default:
			fmt.Fprintf(out, "%q: %d result(s)\n", res.Query, len(res.Results))
			for _, item := range models.NormalizeAll(kind, res.Results) {
				fmt.Fprintf(out, "  %s\t%s\n", item.ID, item.Title)
			}
		}
		select {
		case settled <- struct{}{}:
		default:
		}
	})
	defer live.Close()

	scanner := bufio.NewScanner(in)
	var last string
	for scanner.Scan() {
		last = strings.TrimSpace(scanner.Text())
		live.Update(last)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if last == "" {
		return nil
	}

	for {
		mu.Lock()
		done := applied == last && !live.Loading()
		mu.Unlock()
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-settled:
		}
	}
}
