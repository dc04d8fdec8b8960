package player

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"movieverse/services/httpretry"
)

// ErrNotPlaylist is returned when a body does not start with #EXTM3U.
var ErrNotPlaylist = errors.New("not an HLS playlist")

// Manifest is the parsed content of an HLS master playlist.
type Manifest struct {
	Levels    []Level      `json:"levels"`
	Audio     []MediaTrack `json:"audio"`
	Subtitles []MediaTrack `json:"subtitles"`
}

// ParseManifest reads a playlist and resolves URIs against base. A media
// playlist (no variants) yields a single level pointing at base.
func ParseManifest(r io.Reader, base *url.URL) (*Manifest, error) {
	m := &Manifest{Levels: []Level{}, Audio: []MediaTrack{}, Subtitles: []MediaTrack{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		first   = true
		pending *Level
		media   bool
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if first {
			first = false
			if !strings.HasPrefix(line, "#EXTM3U") {
				return nil, ErrNotPlaylist
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			attrs := parseAttributes(strings.TrimPrefix(line, "#EXT-X-STREAM-INF:"))
			lvl := Level{Codecs: attrs["CODECS"]}
			if bw, err := strconv.ParseInt(attrs["BANDWIDTH"], 10, 64); err == nil {
				lvl.Bitrate = bw
			}
			if w, h, ok := parseResolution(attrs["RESOLUTION"]); ok {
				lvl.Width, lvl.Height = w, h
			}
			pending = &lvl
		case strings.HasPrefix(line, "#EXT-X-MEDIA:"):
			attrs := parseAttributes(strings.TrimPrefix(line, "#EXT-X-MEDIA:"))
			track := MediaTrack{
				GroupID: attrs["GROUP-ID"],
				Name:    attrs["NAME"],
				Lang:    attrs["LANGUAGE"],
				Default: attrs["DEFAULT"] == "YES",
			}
			if uri := attrs["URI"]; uri != "" {
				if u, err := base.Parse(uri); err == nil {
					track.URL = u.String()
				}
			}
			switch attrs["TYPE"] {
			case "AUDIO":
				track.ID = len(m.Audio)
				m.Audio = append(m.Audio, track)
			case "SUBTITLES":
				track.ID = len(m.Subtitles)
				m.Subtitles = append(m.Subtitles, track)
			}
		case strings.HasPrefix(line, "#EXTINF"):
			media = true
		case strings.HasPrefix(line, "#"):
			// other tags
		default:
			if pending == nil {
				continue
			}
			u, err := base.Parse(line)
			if err == nil {
				pending.URL = u.String()
				m.Levels = append(m.Levels, *pending)
			}
			pending = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	if first {
		return nil, ErrNotPlaylist
	}
	if len(m.Levels) == 0 && media {
		m.Levels = append(m.Levels, Level{URL: base.String()})
	}
	return m, nil
}

// parseAttributes splits an HLS attribute list, honoring quoted values.
func parseAttributes(s string) map[string]string {
	out := map[string]string{}
	for len(s) > 0 {
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(s[:eq])
		s = s[eq+1:]

		var val string
		if strings.HasPrefix(s, `"`) {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				val, s = s[1:], ""
			} else {
				val, s = s[1:end+1], s[end+2:]
			}
			if i := strings.IndexByte(s, ','); i >= 0 {
				s = s[i+1:]
			} else {
				s = ""
			}
		} else if i := strings.IndexByte(s, ','); i >= 0 {
			val, s = s[:i], s[i+1:]
		} else {
			val, s = s, ""
		}
		out[strings.ToUpper(key)] = strings.TrimSpace(val)
	}
	return out
}

func parseResolution(s string) (int, int, bool) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, false
	}
	wi, err1 := strconv.Atoi(w)
	hi, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return wi, hi, true
}

// ManifestEngine is an Engine that only loads and parses the master playlist.
// It lets the server build track menus without a media pipeline.
type ManifestEngine struct {
	retrier        *httpretry.Client
	maxReloads     int
	attemptTimeout time.Duration

	mu        sync.Mutex
	ctx       context.Context
	src       *url.URL
	subs      []func(Event)
	manifest  *Manifest
	reloads   int
	destroyed bool
	level     int
}

// NewManifestEngine creates an engine. maxReloads bounds how many times a
// fatal network error may trigger StartLoad before giving up.
func NewManifestEngine(retrier *httpretry.Client, maxReloads int, attemptTimeout time.Duration) *ManifestEngine {
	if maxReloads < 0 {
		maxReloads = 0
	}
	return &ManifestEngine{
		retrier:        retrier,
		maxReloads:     maxReloads,
		attemptTimeout: attemptTimeout,
		ctx:            context.Background(),
		level:          AutoQuality,
	}
}

func (e *ManifestEngine) Subscribe(fn func(Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, fn)
}

// LoadSource validates and records src. Fetching starts on AttachMedia.
func (e *ManifestEngine) LoadSource(ctx context.Context, src string) error {
	u, err := url.Parse(strings.TrimSpace(src))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid stream url %q", src)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return errors.New("engine destroyed")
	}
	e.ctx = ctx
	e.src = u
	e.manifest = nil
	e.reloads = 0
	return nil
}

func (e *ManifestEngine) AttachMedia() error {
	e.mu.Lock()
	if e.src == nil {
		e.mu.Unlock()
		return errors.New("no source loaded")
	}
	e.mu.Unlock()
	e.load()
	return nil
}

// StartLoad re-fetches the playlist after a network failure.
func (e *ManifestEngine) StartLoad() {
	e.mu.Lock()
	e.reloads++
	exhausted := e.reloads > e.maxReloads
	e.mu.Unlock()

	if exhausted {
		e.emit(Error{Type: ErrorOther, Fatal: true, Details: "manifest unavailable"})
		return
	}
	e.load()
}

// RecoverMediaError has nothing to reset without a media pipeline.
func (e *ManifestEngine) RecoverMediaError() {
	log.Printf("[player] media error recovery requested for %s", e.source())
}

func (e *ManifestEngine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyed = true
	e.subs = nil
}

func (e *ManifestEngine) SetLevel(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.level = index
}

func (e *ManifestEngine) SetAudioTrack(index int) {
	e.emit(AudioTrackSwitched{ID: index})
}

func (e *ManifestEngine) SetSubtitleTrack(index int) {
	e.emit(SubtitleTrackSwitched{ID: index})
}

// Manifest returns the last parsed playlist.
func (e *ManifestEngine) Manifest() *Manifest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.manifest
}

// Level returns the selected level index.
func (e *ManifestEngine) Level() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.level
}

func (e *ManifestEngine) source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.src == nil {
		return ""
	}
	return e.src.String()
}

func (e *ManifestEngine) load() {
	e.mu.Lock()
	if e.destroyed || e.src == nil {
		e.mu.Unlock()
		return
	}
	ctx, src := e.ctx, e.src
	e.mu.Unlock()

	resp, err := e.retrier.Do(ctx, httpretry.Call{
		Method:         http.MethodGet,
		URL:            src.String(),
		MaxRetries:     1,
		AttemptTimeout: e.attemptTimeout,
	})
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		e.emit(Error{Type: ErrorNetwork, Fatal: true, Details: err.Error()})
		return
	}

	m, err := ParseManifest(bytes.NewReader(resp.Body), src)
	if err != nil {
		e.emit(Error{Type: ErrorOther, Fatal: true, Details: err.Error()})
		return
	}

	e.mu.Lock()
	e.manifest = m
	e.mu.Unlock()

	e.emit(ManifestParsed{Levels: m.Levels})
	e.emit(AudioTracksUpdated{Tracks: m.Audio})
	e.emit(SubtitleTracksUpdated{Tracks: m.Subtitles})
	if len(m.Audio) > 0 {
		e.emit(AudioTrackSwitched{ID: defaultTrack(m.Audio)})
	}
	if i := defaultTrack(m.Subtitles); len(m.Subtitles) > 0 && m.Subtitles[i].Default {
		e.emit(SubtitleTrackSwitched{ID: i})
	}
}

func defaultTrack(tracks []MediaTrack) int {
	for i, t := range tracks {
		if t.Default {
			return i
		}
	}
	return 0
}

func (e *ManifestEngine) emit(ev Event) {
	e.mu.Lock()
	subs := slices.Clone(e.subs)
	e.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}
