package utils

import (
	"net"
	"net/url"
	"strings"
)

// OriginPolicy decides which browser origins may call the JSON API.
// Explicitly configured origins are always allowed; local-network origins
// (localhost, RFC1918, link-local, .local and single-label hosts) are allowed
// when AllowLocal is set.
type OriginPolicy struct {
	allowed    map[string]struct{}
	AllowLocal bool
}

// NewOriginPolicy normalizes the configured origins ("*" allows any).
func NewOriginPolicy(origins []string, allowLocal bool) *OriginPolicy {
	p := &OriginPolicy{allowed: map[string]struct{}{}, AllowLocal: allowLocal}
	for _, o := range origins {
		o = strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/")
		if o != "" {
			p.allowed[o] = struct{}{}
		}
	}
	return p
}

// Allows reports whether origin may receive CORS headers.
func (p *OriginPolicy) Allows(origin string) bool {
	if origin == "" {
		return false
	}
	if _, ok := p.allowed["*"]; ok {
		return true
	}
	if _, ok := p.allowed[strings.TrimRight(strings.ToLower(origin), "/")]; ok {
		return true
	}
	return p.AllowLocal && IsLocalOrigin(origin)
}

// IsLocalOrigin reports whether origin points at the local network.
func IsLocalOrigin(origin string) bool {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	hostname := parsed.Hostname()
	switch {
	case hostname == "localhost":
		return true
	case strings.HasSuffix(hostname, ".local"):
		return true
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
	}
	// single-label LAN names
	return !strings.Contains(hostname, ".")
}
