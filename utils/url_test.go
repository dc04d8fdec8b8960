package utils

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeMediaURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"http://example.com/video.m3u8", false},
		{"https://cdn.example.com/stream/master.m3u8?token=abc", false},
		{"  https://cdn.example.com/a b/master.m3u8 ", false},

		{"", true},
		{"file:///etc/passwd", true},
		{"ftp://evil.com/payload", true},
		{"data:text/plain,hello", true},
		{"/relative/master.m3u8", true},
		{"http://", true},
	}

	for _, tt := range tests {
		_, err := NormalizeMediaURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeMediaURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}

	if _, err := NormalizeMediaURL("gopher://x"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("expected ErrUnsupportedScheme, got %v", err)
	}
}

func TestEncodeURLWithSpaces(t *testing.T) {
	result, err := EncodeURLWithSpaces("http://example.com/path with spaces/file name.m3u8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "path%20with%20spaces") {
		t.Errorf("expected encoded spaces in path, got %q", result)
	}
}

func TestImageURL(t *testing.T) {
	const base = "https://image.tmdb.org/t/p/w500/"
	const placeholder = "/static/notavailable.svg"

	tests := []struct {
		path string
		want string
	}{
		{"/abc.jpg", "https://image.tmdb.org/t/p/w500/abc.jpg"},
		{"abc.jpg", "https://image.tmdb.org/t/p/w500/abc.jpg"},
		{"https://other.cdn/poster.png", "https://other.cdn/poster.png"},
		{"", placeholder},
		{"   ", placeholder},
	}
	for _, tt := range tests {
		if got := ImageURL(base, tt.path, placeholder); got != tt.want {
			t.Errorf("ImageURL(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
