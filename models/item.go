package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind discriminates the two catalog item shapes.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
)

// Catalog table names as used in routes and upstream paths.
const (
	TableMovies = "movies"
	TableSeries = "series"
)

// Table returns the catalog table that holds items of this kind.
func (k Kind) Table() string {
	if k == KindSeries {
		return TableSeries
	}
	return TableMovies
}

// KindForTable maps a route/table name back to a Kind.
func KindForTable(table string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(table)) {
	case TableMovies:
		return KindMovie, true
	case TableSeries:
		return KindSeries, true
	default:
		return "", false
	}
}

// Item is the canonical record every list/detail view works with. Both movie and
// series payloads are normalized into it at the ingestion boundary.
type Item struct {
	ID               string          `json:"id"`
	Kind             Kind            `json:"kind"`
	Title            string          `json:"title"`
	OriginalTitle    string          `json:"originalTitle,omitempty"`
	Overview         string          `json:"overview,omitempty"`
	PosterPath       string          `json:"posterPath,omitempty"`
	BackdropPath     string          `json:"backdropPath,omitempty"`
	ReleaseDate      string          `json:"releaseDate,omitempty"`
	OriginalLanguage string          `json:"originalLanguage,omitempty"`
	VoteAverage      *float64        `json:"voteAverage,omitempty"`
	VoteCount        *int64          `json:"voteCount,omitempty"`
	Popularity       *float64        `json:"popularity,omitempty"`
	GenreIDs         []int           `json:"genreIds,omitempty"`
	GenreNames       []string        `json:"genreNames,omitempty"`
	Runtime          *int            `json:"runtime,omitempty"`
	Status           string          `json:"status,omitempty"`
	VideoURL         string          `json:"videoUrl,omitempty"`
	Seasons          []Season        `json:"seasons,omitempty"`
	Raw              json.RawMessage `json:"-"`
}

// Season is one season of a series payload.
type Season struct {
	ID           int64     `json:"id"`
	Name         *string   `json:"name,omitempty"`
	SeasonNumber *int      `json:"season_number,omitempty"`
	AirDate      *string   `json:"air_date,omitempty"`
	EpisodeCount *int      `json:"episode_count,omitempty"`
	PosterPath   *string   `json:"poster_path,omitempty"`
	Episodes     []Episode `json:"episodes,omitempty"`
}

// Label renders the season selector text, e.g. "Season 1 (8)".
func (s Season) Label(index int) string {
	name := fmt.Sprintf("Season %d", index+1)
	if s.SeasonNumber != nil {
		name = fmt.Sprintf("Season %d", *s.SeasonNumber)
	}
	if s.Name != nil {
		name = *s.Name
	}
	count := len(s.Episodes)
	if s.EpisodeCount != nil {
		count = *s.EpisodeCount
	}
	return fmt.Sprintf("%s (%d)", name, count)
}

// Episode is one episode inside a season payload.
type Episode struct {
	ID            int64   `json:"id"`
	Name          *string `json:"name,omitempty"`
	Overview      *string `json:"overview,omitempty"`
	StillPath     *string `json:"still_path,omitempty"`
	EpisodeNumber *int    `json:"episode_number,omitempty"`
	SeasonNumber  *int    `json:"season_number,omitempty"`
	Runtime       *int    `json:"runtime,omitempty"`
	VideoURL      *string `json:"video_url,omitempty"`
}

// Title returns the episode name, falling back to "Episode N".
func (e Episode) Title(index int) string {
	if e.Name != nil {
		return *e.Name
	}
	if e.EpisodeNumber != nil {
		return fmt.Sprintf("Episode %d", *e.EpisodeNumber)
	}
	return fmt.Sprintf("Episode %d", index+1)
}

// Normalize maps an upstream payload of the given kind into an Item. Only a
// payload that is not a JSON object fails; an optional field of an unexpected
// type is dropped.
func Normalize(kind Kind, raw json.RawMessage) (Item, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return Item{}, fmt.Errorf("decode item: %w", err)
	}

	item := Item{
		ID:               idString(f["id"]),
		Kind:             kind,
		Overview:         deref(f.str("overview")),
		PosterPath:       deref(f.str("poster_path")),
		BackdropPath:     deref(f.str("backdrop_path")),
		OriginalLanguage: deref(f.str("original_language")),
		VoteAverage:      f.float("vote_average"),
		VoteCount:        f.int64("vote_count"),
		Popularity:       f.float("popularity"),
		GenreIDs:         f.ints("genre_ids"),
		GenreNames:       f.strs("genre_names"),
		Runtime:          f.int("runtime"),
		Status:           deref(f.str("status")),
		VideoURL:         strings.TrimSpace(deref(f.str("video_url"))),
		Raw:              raw,
	}

	switch kind {
	case KindSeries:
		item.Title = firstOf("Untitled", f.str("name"), f.str("original_name"), f.str("title"))
		item.OriginalTitle = deref(f.str("original_name"))
		item.ReleaseDate = firstOf("", f.str("first_air_date"), f.str("release_date"))
		item.Seasons = f.seasons("seasons")
	default:
		item.Kind = KindMovie
		item.Title = firstOf("Untitled", f.str("title"), f.str("name"))
		item.OriginalTitle = deref(f.str("original_title"))
		item.ReleaseDate = firstOf("", f.str("release_date"), f.str("first_air_date"))
	}
	return item, nil
}

// NormalizeAll normalizes a page of results, skipping entries that fail to decode.
func NormalizeAll(kind Kind, raws []json.RawMessage) []Item {
	items := make([]Item, 0, len(raws))
	for _, raw := range raws {
		item, err := Normalize(kind, raw)
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

// InferTable guesses which catalog table a loosely-typed payload belongs to.
// Payloads from the metadata search carry media_type; catalog payloads are
// recognized by series-only fields.
func InferTable(raw json.RawMessage) string {
	f, err := decodeFields(raw)
	if err != nil {
		return TableMovies
	}
	switch deref(f.str("media_type")) {
	case "tv":
		return TableSeries
	case "movie":
		return TableMovies
	}
	if nonEmpty(f.str("first_air_date")) || nonEmpty(f.str("original_name")) || nonEmpty(f.str("name")) {
		return TableSeries
	}
	return TableMovies
}

// PayloadID extracts the id field of a raw payload as a string.
func PayloadID(raw json.RawMessage) string {
	var r struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return ""
	}
	return idString(r.ID)
}

func idString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func firstOf(fallback string, values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return fallback
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}
