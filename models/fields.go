package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// fields holds the members of one JSON object, decoded lazily. Accessors
// return nil for absent, null or mistyped members.
type fields map[string]json.RawMessage

func decodeFields(raw json.RawMessage) (fields, error) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if f == nil {
		f = fields{}
	}
	return f, nil
}

func (f fields) str(key string) *string {
	raw := bytes.TrimSpace(f[key])
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

// number accepts a JSON number or a numeric string.
func (f fields) number(key string) (float64, bool) {
	return parseNumber(f[key])
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(text)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (f fields) float(key string) *float64 {
	v, ok := f.number(key)
	if !ok {
		return nil
	}
	return &v
}

func (f fields) int64(key string) *int64 {
	v, ok := f.number(key)
	if !ok || v > math.MaxInt64 || v < math.MinInt64 {
		return nil
	}
	n := int64(v)
	return &n
}

func (f fields) int(key string) *int {
	v, ok := f.number(key)
	if !ok || v > math.MaxInt32 || v < math.MinInt32 {
		return nil
	}
	n := int(v)
	return &n
}

func (f fields) array(key string) []json.RawMessage {
	var elems []json.RawMessage
	if err := json.Unmarshal(f[key], &elems); err != nil {
		return nil
	}
	return elems
}

// ints keeps the numeric elements of an array member.
func (f fields) ints(key string) []int {
	var out []int
	for _, elem := range f.array(key) {
		if v, ok := parseNumber(elem); ok {
			out = append(out, int(v))
		}
	}
	return out
}

// strs keeps the string elements of an array member.
func (f fields) strs(key string) []string {
	var out []string
	for _, elem := range f.array(key) {
		var s string
		if err := json.Unmarshal(elem, &s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func (f fields) seasons(key string) []Season {
	var out []Season
	for _, elem := range f.array(key) {
		sf, err := decodeFields(elem)
		if err != nil {
			continue
		}
		season := Season{
			Name:         sf.str("name"),
			SeasonNumber: sf.int("season_number"),
			AirDate:      sf.str("air_date"),
			EpisodeCount: sf.int("episode_count"),
			PosterPath:   sf.str("poster_path"),
		}
		if id := sf.int64("id"); id != nil {
			season.ID = *id
		}
		for _, ep := range sf.array("episodes") {
			if episode, ok := decodeEpisode(ep); ok {
				season.Episodes = append(season.Episodes, episode)
			}
		}
		out = append(out, season)
	}
	return out
}

func decodeEpisode(raw json.RawMessage) (Episode, bool) {
	f, err := decodeFields(raw)
	if err != nil {
		return Episode{}, false
	}
	ep := Episode{
		Name:          f.str("name"),
		Overview:      f.str("overview"),
		StillPath:     f.str("still_path"),
		EpisodeNumber: f.int("episode_number"),
		SeasonNumber:  f.int("season_number"),
		Runtime:       f.int("runtime"),
		VideoURL:      f.str("video_url"),
	}
	if id := f.int64("id"); id != nil {
		ep.ID = *id
	}
	return ep, true
}
