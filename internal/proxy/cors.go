// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package proxy

import (
	"net/http"
	"strings"
)

const (
	corsAllowMethods  = "GET,HEAD,POST,OPTIONS"
	corsAllowHeaders  = "Content-Type,Range,Authorization"
	corsExposeHeaders = "Content-Length,Content-Range,Accept-Ranges,Content-Type"
	corsMaxAge        = "86400"
)

// upstreamStripHeaders are removed from every upstream response before the
// proxy attaches its own. Upstream CORS headers would conflict with ours,
// and cookies must never leak through a shared proxy.
var upstreamStripHeaders = []string{
	"Set-Cookie",
	"Set-Cookie2",
	"Access-Control-Allow-Origin",
	"Access-Control-Allow-Methods",
	"Access-Control-Allow-Headers",
	"Access-Control-Allow-Credentials",
	"Access-Control-Expose-Headers",
	"Access-Control-Max-Age",
}

func stripUpstreamHeaders(h http.Header) {
	for _, name := range upstreamStripHeaders {
		h.Del(name)
	}
}

// allowOrigin decides the Access-Control-Allow-Origin value for a caller
// origin. Wildcard mode echoes "*"; locked mode echoes the origin only if
// configured, "null" otherwise so browsers deny cross-origin reads.
func (h *Handler) allowOrigin(origin string) string {
	if h.cfg.AllowAnyOrigin {
		return "*"
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return "null"
}

// setCORSHeaders attaches the proxy's CORS policy to a response.
func (h *Handler) setCORSHeaders(header http.Header, origin string) {
	header.Set("Access-Control-Allow-Origin", h.allowOrigin(origin))
	header.Set("Access-Control-Allow-Methods", corsAllowMethods)
	header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	header.Set("Access-Control-Expose-Headers", corsExposeHeaders)
	header.Set("Access-Control-Max-Age", corsMaxAge)
	header.Set("Vary", "Origin")
}
