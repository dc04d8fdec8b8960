package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnsupportedScheme is returned for media URLs that are not http(s).
var ErrUnsupportedScheme = errors.New("unsupported media url scheme")

// EncodeURLWithSpaces properly encodes a URL that may contain unencoded spaces.
// Catalog payloads sometimes carry video URLs with raw spaces.
func EncodeURLWithSpaces(rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	encoded := parsedURL.Scheme + "://" + parsedURL.Host + parsedURL.EscapedPath()
	if parsedURL.RawQuery != "" {
		encoded += "?" + strings.ReplaceAll(parsedURL.RawQuery, " ", "%20")
	}
	return encoded, nil
}

// NormalizeMediaURL trims, encodes and validates a playback source. Only
// absolute http(s) URLs are accepted since the server fetches them.
func NormalizeMediaURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty media url")
	}
	parsed, err := url.Parse(strings.ReplaceAll(raw, " ", "%20"))
	if err != nil {
		return "", fmt.Errorf("parse media url: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", errors.New("media url has no host")
	}
	return EncodeURLWithSpaces(raw)
}

// ImageURL resolves a poster/backdrop path against a CDN base. Absolute URLs
// pass through; empty paths resolve to the placeholder.
func ImageURL(base, path, placeholder string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return placeholder
	}
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
