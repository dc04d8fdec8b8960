// Package player models an adaptive-streaming player: an Engine that loads an
// HLS source and reports tracks and errors, and a Controller that turns those
// events plus user input into renderable player state.
package player

//go:generate mockgen -source=engine.go -destination=mock_engine_test.go -package=player

import "context"

// ErrorType classifies engine errors for recovery.
type ErrorType string

const (
	ErrorNetwork ErrorType = "networkError"
	ErrorMedia   ErrorType = "mediaError"
	ErrorOther   ErrorType = "otherError"
)

// Level is one variant stream.
type Level struct {
	Height  int    `json:"height,omitempty"`
	Width   int    `json:"width,omitempty"`
	Bitrate int64  `json:"bitrate,omitempty"`
	Codecs  string `json:"codecs,omitempty"`
	URL     string `json:"url"`
}

// MediaTrack is an alternate audio or subtitle rendition.
type MediaTrack struct {
	ID      int    `json:"id"`
	GroupID string `json:"groupId,omitempty"`
	Name    string `json:"name,omitempty"`
	Lang    string `json:"lang,omitempty"`
	Default bool   `json:"default,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Event is anything an Engine reports to its subscribers.
type Event interface {
	eventName() string
}

type ManifestParsed struct{ Levels []Level }
type AudioTracksUpdated struct{ Tracks []MediaTrack }
type AudioTrackSwitched struct{ ID int }
type SubtitleTracksUpdated struct{ Tracks []MediaTrack }
type SubtitleTrackSwitched struct{ ID int }

// Error is an engine failure. Fatal errors stop playback until recovered.
type Error struct {
	Type    ErrorType
	Fatal   bool
	Details string
}

func (ManifestParsed) eventName() string        { return "manifestParsed" }
func (AudioTracksUpdated) eventName() string    { return "audioTracksUpdated" }
func (AudioTrackSwitched) eventName() string    { return "audioTrackSwitched" }
func (SubtitleTracksUpdated) eventName() string { return "subtitleTracksUpdated" }
func (SubtitleTrackSwitched) eventName() string { return "subtitleTrackSwitched" }
func (Error) eventName() string                 { return "error" }

// Engine is the capability surface a Controller drives. Implementations may
// deliver events synchronously from inside any method call.
type Engine interface {
	LoadSource(ctx context.Context, src string) error
	AttachMedia() error
	Subscribe(fn func(Event))
	SetLevel(index int)
	SetAudioTrack(index int)
	SetSubtitleTrack(index int)
	StartLoad()
	RecoverMediaError()
	Destroy()
}
