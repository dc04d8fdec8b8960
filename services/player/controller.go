package player

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"
)

const (
	AutoQuality   = -1
	SubtitlesOff  = -1
	SeekStep      = 10.0
	DoubleTapWait = 300 * time.Millisecond
	IndicatorTime = 700 * time.Millisecond
	ControlsIdle  = 3 * time.Second
)

// Side is the half of the player surface a tap landed on.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Quality is one entry of the quality menu.
type Quality struct {
	Index  int    `json:"index"`
	Height int    `json:"height,omitempty"`
	Name   string `json:"name"`
}

// Track is one entry of the audio or subtitle menu.
type Track struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// State is a snapshot of everything the player UI renders.
type State struct {
	Source               string    `json:"source"`
	Qualities            []Quality `json:"qualities"`
	CurrentQuality       int       `json:"currentQuality"`
	AudioTracks          []Track   `json:"audioTracks"`
	CurrentAudioTrack    int       `json:"currentAudioTrack"`
	SubtitleTracks       []Track   `json:"subtitleTracks"`
	CurrentSubtitleTrack int       `json:"currentSubtitleTrack"`
	Playing              bool      `json:"playing"`
	CurrentTime          float64   `json:"currentTime"`
	Duration             float64   `json:"duration"`
	Volume               float64   `json:"volume"`
	Muted                bool      `json:"muted"`
	Fullscreen           bool      `json:"fullscreen"`
	ShowControls         bool      `json:"showControls"`
	SeekIndicator        string    `json:"seekIndicator,omitempty"`
	Buffering            bool      `json:"buffering"`
	Error                string    `json:"error,omitempty"`
	Destroyed            bool      `json:"destroyed"`
}

// QualityName returns the label of the selected quality, or "Quality" when
// the menu is not populated.
func (s State) QualityName() string {
	for _, q := range s.Qualities {
		if q.Index == s.CurrentQuality {
			return q.Name
		}
	}
	return "Quality"
}

// Progress is the played fraction in 0..1.
func (s State) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, s.CurrentTime/s.Duration))
}

// Controller owns the player state for one source.
type Controller struct {
	engine Engine
	after  func(d time.Duration, f func()) func() bool

	mu            sync.Mutex
	state         State
	lastTapAt     time.Time
	lastTapSide   Side
	hideControls  func() bool
	hideIndicator func() bool
}

// NewController wires a Controller to engine events.
func NewController(engine Engine) *Controller {
	c := &Controller{
		engine: engine,
		after: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
		state: State{
			Qualities:            []Quality{},
			CurrentQuality:       AutoQuality,
			AudioTracks:          []Track{},
			CurrentAudioTrack:    -1,
			SubtitleTracks:       []Track{},
			CurrentSubtitleTrack: SubtitlesOff,
			Volume:               1,
			ShowControls:         true,
		},
	}
	engine.Subscribe(c.handle)
	return c
}

// Load points the engine at src and attaches it.
func (c *Controller) Load(ctx context.Context, src string) error {
	c.mu.Lock()
	c.state.Source = src
	c.state.Error = ""
	c.state.Buffering = true
	c.mu.Unlock()

	if err := c.engine.LoadSource(ctx, src); err != nil {
		c.fail(err.Error())
		return err
	}
	if err := c.engine.AttachMedia(); err != nil {
		c.fail(err.Error())
		return err
	}
	c.mu.Lock()
	c.state.Buffering = false
	c.mu.Unlock()
	return nil
}

func (c *Controller) fail(msg string) {
	c.mu.Lock()
	c.state.Error = msg
	c.state.Buffering = false
	c.mu.Unlock()
}

func (c *Controller) handle(ev Event) {
	var action func()

	c.mu.Lock()
	switch e := ev.(type) {
	case ManifestParsed:
		qs := make([]Quality, 0, len(e.Levels)+1)
		qs = append(qs, Quality{Index: AutoQuality, Name: "Auto"})
		for i, lvl := range e.Levels {
			name := fmt.Sprintf("Level %d", i)
			if lvl.Height > 0 {
				name = fmt.Sprintf("%dp", lvl.Height)
			}
			qs = append(qs, Quality{Index: i, Height: lvl.Height, Name: name})
		}
		c.state.Qualities = qs
		c.state.CurrentQuality = AutoQuality
		c.state.Error = ""
	case AudioTracksUpdated:
		tracks := make([]Track, 0, len(e.Tracks))
		for i, t := range e.Tracks {
			name := t.Name
			if name == "" {
				name = t.Lang
			}
			if name == "" {
				name = fmt.Sprintf("Audio %d", i+1)
			}
			tracks = append(tracks, Track{Index: i, Name: name})
		}
		c.state.AudioTracks = tracks
	case AudioTrackSwitched:
		c.state.CurrentAudioTrack = e.ID
	case SubtitleTracksUpdated:
		tracks := make([]Track, 0, len(e.Tracks)+1)
		tracks = append(tracks, Track{Index: SubtitlesOff, Name: "Off"})
		for i, t := range e.Tracks {
			name := t.Name
			if name == "" {
				name = t.Lang
			}
			if name == "" {
				name = fmt.Sprintf("Subtitles %d", i+1)
			}
			tracks = append(tracks, Track{Index: i, Name: name})
		}
		c.state.SubtitleTracks = tracks
	case SubtitleTrackSwitched:
		c.state.CurrentSubtitleTrack = e.ID
	case Error:
		if !e.Fatal {
			log.Printf("[player] non-fatal %s: %s", e.Type, e.Details)
			break
		}
		switch e.Type {
		case ErrorNetwork:
			c.state.Buffering = true
			action = c.engine.StartLoad
		case ErrorMedia:
			action = c.engine.RecoverMediaError
		default:
			c.state.Error = "Playback failed: " + e.Details
			c.state.Destroyed = true
			c.state.Playing = false
			c.state.Buffering = false
			action = c.engine.Destroy
		}
	}
	c.mu.Unlock()

	if action != nil {
		action()
	}
}

// SelectQuality switches to level index, or back to automatic with -1.
func (c *Controller) SelectQuality(index int) error {
	c.mu.Lock()
	if !hasIndex(len(c.state.Qualities)-1, index, AutoQuality) {
		c.mu.Unlock()
		return fmt.Errorf("quality %d out of range", index)
	}
	c.state.CurrentQuality = index
	c.mu.Unlock()
	c.engine.SetLevel(index)
	return nil
}

// SelectAudioTrack switches the audio rendition.
func (c *Controller) SelectAudioTrack(index int) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.state.AudioTracks) {
		c.mu.Unlock()
		return fmt.Errorf("audio track %d out of range", index)
	}
	c.state.CurrentAudioTrack = index
	c.mu.Unlock()
	c.engine.SetAudioTrack(index)
	return nil
}

// SelectSubtitleTrack switches subtitles; -1 turns them off.
func (c *Controller) SelectSubtitleTrack(index int) error {
	c.mu.Lock()
	if !hasIndex(len(c.state.SubtitleTracks)-1, index, SubtitlesOff) {
		c.mu.Unlock()
		return fmt.Errorf("subtitle track %d out of range", index)
	}
	c.state.CurrentSubtitleTrack = index
	c.mu.Unlock()
	c.engine.SetSubtitleTrack(index)
	return nil
}

// hasIndex reports whether index is sentinel or within 0..n-1.
func hasIndex(n, index, sentinel int) bool {
	return index == sentinel || (index >= 0 && index < n)
}

// Play marks playback as running and starts the controls idle timer.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Destroyed {
		return
	}
	c.state.Playing = true
	c.scheduleHideLocked()
}

// Pause stops playback; controls stay as they are.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Playing = false
	c.stopHideLocked()
}

func (c *Controller) TogglePlay() {
	c.mu.Lock()
	playing := c.state.Playing
	c.mu.Unlock()
	if playing {
		c.Pause()
	} else {
		c.Play()
	}
}

// PointerActivity reveals the controls and restarts the idle timer.
func (c *Controller) PointerActivity() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ShowControls = true
	c.scheduleHideLocked()
}

// PointerLeave hides the controls while playing.
func (c *Controller) PointerLeave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Playing {
		c.stopHideLocked()
		c.state.ShowControls = false
	}
}

func (c *Controller) scheduleHideLocked() {
	c.stopHideLocked()
	if !c.state.Playing || !c.state.ShowControls {
		return
	}
	c.hideControls = c.after(ControlsIdle, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state.Playing {
			c.state.ShowControls = false
		}
	})
}

func (c *Controller) stopHideLocked() {
	if c.hideControls != nil {
		c.hideControls()
		c.hideControls = nil
	}
}

// MediaTime records the media element's playback position.
func (c *Controller) MediaTime(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.CurrentTime = finite(seconds)
}

// MediaDuration records the media duration.
func (c *Controller) MediaDuration(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Duration = finite(seconds)
}

// SetBuffering mirrors the media element's waiting/playing signals.
func (c *Controller) SetBuffering(buffering bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Buffering = buffering
}

// SetVolume clamps v into 0..1.
func (c *Controller) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Volume = math.Max(0, math.Min(1, finite(v)))
}

func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Muted = muted
}

func (c *Controller) ToggleFullscreen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Fullscreen = !c.state.Fullscreen
}

// SeekFraction jumps to fraction (clamped to 0..1) of the duration.
func (c *Controller) SeekFraction(fraction float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := math.Max(0, math.Min(1, finite(fraction)))
	c.state.CurrentTime = f * c.state.Duration
}

// Tap registers a tap on side at now. A second tap on the same side within
// DoubleTapWait seeks 10s and shows the seek indicator; it reports whether a
// seek happened.
func (c *Controller) Tap(side Side, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastTapAt.IsZero() && now.Sub(c.lastTapAt) < DoubleTapWait && c.lastTapSide == side {
		if side == SideLeft {
			c.state.CurrentTime = math.Max(0, c.state.CurrentTime-SeekStep)
			c.state.SeekIndicator = "backward"
		} else {
			c.state.CurrentTime = math.Min(c.state.Duration, c.state.CurrentTime+SeekStep)
			c.state.SeekIndicator = "forward"
		}
		if c.hideIndicator != nil {
			c.hideIndicator()
		}
		c.hideIndicator = c.after(IndicatorTime, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.state.SeekIndicator = ""
		})
		c.lastTapAt = time.Time{}
		c.lastTapSide = ""
		return true
	}

	c.lastTapAt = now
	c.lastTapSide = side
	return false
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Qualities = append(make([]Quality, 0, len(s.Qualities)), s.Qualities...)
	s.AudioTracks = append(make([]Track, 0, len(s.AudioTracks)), s.AudioTracks...)
	s.SubtitleTracks = append(make([]Track, 0, len(s.SubtitleTracks)), s.SubtitleTracks...)
	return s
}

// Close releases the engine and any pending timers.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopHideLocked()
	if c.hideIndicator != nil {
		c.hideIndicator()
		c.hideIndicator = nil
	}
	destroyed := c.state.Destroyed
	c.state.Destroyed = true
	c.state.Playing = false
	c.mu.Unlock()

	if !destroyed {
		c.engine.Destroy()
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
