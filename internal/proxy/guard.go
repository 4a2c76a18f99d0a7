// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package proxy

import (
	"errors"
	"net"
	"strings"
)

// Sentinel errors for target validation. Each maps to one rejection state.
var (
	ErrNoTarget       = errors.New("proxy: missing url parameter")
	ErrBadURL         = errors.New("proxy: target is not an absolute http/https URL")
	ErrBlockedHost    = errors.New("proxy: target host is a private or local address")
	ErrDisallowedHost = errors.New("proxy: target host is not on the allow-list")
)

// blockedHost reports whether host points at a local or private network
// destination. The check runs on the hostname literal only; no DNS lookup
// is performed, matching the guard's role as a cheap first gate rather
// than a full DNS-rebinding defense.
func blockedHost(host string) bool {
	h := strings.ToLower(host)
	if h == "localhost" || strings.HasSuffix(h, ".local") {
		return true
	}

	ip := net.ParseIP(h)
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return true
	}
	// 0.0.0.0/8 beyond the unspecified address itself.
	if v4 := ip.To4(); v4 != nil && v4[0] == 0 {
		return true
	}
	return false
}

// allowedHost reports whether host matches the allow-list: an exact entry
// or a subdomain of one. Matching is case-insensitive.
func allowedHost(host string, allowList []string) bool {
	h := strings.ToLower(host)
	for _, entry := range allowList {
		e := strings.ToLower(strings.TrimSpace(entry))
		if e == "" {
			continue
		}
		if h == e || strings.HasSuffix(h, "."+e) {
			return true
		}
	}
	return false
}
