package utils

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// ErrBlockedHost is returned for media sources the server must not fetch.
var ErrBlockedHost = errors.New("media host not allowed")

var extraInternal = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
}

// IsInternalAddr reports loopback, private, link-local, unspecified and
// multicast addresses, plus carrier-grade NAT space.
func IsInternalAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() || addr.IsMulticast() {
		return true
	}
	for _, p := range extraInternal {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// MediaHostPolicy decides which hosts the server may fetch playlists from.
// With an allow-list only those hosts (and their subdomains) pass. Unless
// AllowPrivate is set, internal destinations are refused both when the URL
// is checked and when a connection is dialed, which also covers redirects
// and names resolving to internal addresses.
type MediaHostPolicy struct {
	hosts        []string
	AllowPrivate bool
}

func NewMediaHostPolicy(hosts []string, allowPrivate bool) *MediaHostPolicy {
	p := &MediaHostPolicy{AllowPrivate: allowPrivate}
	for _, h := range hosts {
		h = strings.Trim(strings.ToLower(strings.TrimSpace(h)), ".")
		if h != "" {
			p.hosts = append(p.hosts, h)
		}
	}
	return p
}

func (p *MediaHostPolicy) listed(host string) bool {
	if len(p.hosts) == 0 {
		return true
	}
	for _, h := range p.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Check validates the host of an absolute media URL.
func (p *MediaHostPolicy) Check(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse media url: %w", err)
	}
	return p.checkHost(u.Hostname())
}

func (p *MediaHostPolicy) checkHost(host string) error {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return ErrBlockedHost
	}
	if !p.listed(host) {
		return fmt.Errorf("%w: %s is not an allowed media host", ErrBlockedHost, host)
	}
	if p.AllowPrivate {
		return nil
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%w: %s", ErrBlockedHost, host)
	}
	if addr, err := netip.ParseAddr(host); err == nil && IsInternalAddr(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedHost, host)
	}
	return nil
}

// control runs after name resolution, right before connecting.
func (p *MediaHostPolicy) control(network, address string, _ syscall.RawConn) error {
	if p.AllowPrivate {
		return nil
	}
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedHost, address)
	}
	if IsInternalAddr(ap.Addr()) {
		return ErrBlockedHost
	}
	return nil
}

// HTTPClient returns a client that enforces the policy on every dial and
// redirect. Proxies are disabled since they would dial on the client's behalf.
func (p *MediaHostPolicy) HTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   p.control,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return p.checkHost(req.URL.Hostname())
		},
	}
}
