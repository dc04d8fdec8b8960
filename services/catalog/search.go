package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/cases"

	"movieverse/services/httpretry"
)

const (
	DefaultSearchLimit = 24
	MaxSearchLimit     = 100
	fallbackPoolSize   = 200
)

// ClampLimit bounds a search limit to 1..100; zero means the default.
func ClampLimit(limit int) int {
	if limit == 0 {
		return DefaultSearchLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}

// Fold lowercases s and strips accents so "Amélie" matches "amelie".
func Fold(s string) string {
	return cases.Fold().String(unidecode.Unidecode(s))
}

// Search finds titles in table matching q. The upstream search endpoint is
// tried first; when it is unavailable the first page of the listing is
// filtered locally.
func (c *Client) Search(ctx context.Context, table, q string, limit int) ([]json.RawMessage, error) {
	if !validTable(table) {
		return nil, ErrInvalidTable
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return []json.RawMessage{}, nil
	}
	limit = ClampLimit(limit)

	params := url.Values{}
	params.Set("q", q)
	params.Set("limit", strconv.Itoa(limit))
	body, err := c.getJSON(ctx, "/api/"+table+"/search?"+params.Encode(), 0)
	if err == nil {
		return resultRows(body), nil
	}
	var upstream *httpretry.UpstreamError
	if !errors.As(err, &upstream) {
		return nil, fmt.Errorf("search %s: %w", table, err)
	}

	body, err = c.getJSON(ctx, fmt.Sprintf("/api/%s?page=1&count=%d", table, fallbackPoolSize), 0)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", table, err)
	}
	return FilterByTitle(resultRows(body), q, limit), nil
}

// FilterByTitle keeps rows whose display title contains q after folding.
func FilterByTitle(rows []json.RawMessage, q string, limit int) []json.RawMessage {
	needle := Fold(q)
	out := make([]json.RawMessage, 0, limit)
	for _, row := range rows {
		if len(out) >= limit {
			break
		}
		var t struct {
			Title        string `json:"title"`
			Name         string `json:"name"`
			OriginalName string `json:"original_name"`
		}
		if err := json.Unmarshal(row, &t); err != nil {
			continue
		}
		title := t.Title
		if title == "" {
			title = t.Name
		}
		if title == "" {
			title = t.OriginalName
		}
		if strings.Contains(Fold(title), needle) {
			out = append(out, row)
		}
	}
	return out
}

// resultRows accepts either {"results":[...]} or a bare array.
func resultRows(body []byte) []json.RawMessage {
	body = bytes.TrimSpace(body)
	var rows []json.RawMessage
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &rows); err == nil {
			return rows
		}
		return []json.RawMessage{}
	}
	var page struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &page); err != nil || page.Results == nil {
		return []json.RawMessage{}
	}
	return page.Results
}
