package catalog

import (
	"context"
	"errors"
	"log"

	"github.com/sourcegraph/conc/pool"

	"movieverse/models"
)

// IsFeatured reports whether id already exists in the catalog as a movie or a
// series. Both tables are queried concurrently; lookup failures count as "not
// found".
func (c *Client) IsFeatured(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}
	p := pool.NewWithResults[bool]().WithContext(ctx)
	for _, table := range []string{models.TableMovies, models.TableSeries} {
		p.Go(func(ctx context.Context) (bool, error) {
			_, err := c.Get(ctx, table, id)
			if err != nil && !errors.Is(err, ErrNotFound) {
				log.Printf("[catalog] featured lookup %s/%s: %v", table, id, err)
			}
			return err == nil, nil
		})
	}
	found, _ := p.Wait()
	for _, ok := range found {
		if ok {
			return true
		}
	}
	return false
}
