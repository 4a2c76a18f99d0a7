// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package proxy

import (
	"net/url"
	"strings"
)

// manifestContentType is served on every rewritten manifest regardless of
// what the upstream declared.
const manifestContentType = "application/vnd.apple.mpegurl; charset=utf-8"

// isManifest reports whether the response is an HLS playlist, by declared
// content type or by URL path suffix. Some upstreams serve manifests as
// text/plain or application/octet-stream, so the suffix check matters.
func isManifest(contentType, urlPath string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "application/vnd.apple.mpegurl") || strings.Contains(ct, "application/x-mpegurl") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(urlPath), ".m3u8")
}

// rewriteManifest rewrites every URI line of an HLS playlist to route its
// fetch back through the proxy. Comment lines (starting with '#') and blank
// lines pass through verbatim, as does any line that fails URL resolution.
// Relative references are resolved against the manifest's own URL so
// segment paths survive the indirection.
func rewriteManifest(body []byte, manifestURL *url.URL, proxyOrigin string) []byte {
	lines := strings.Split(string(body), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		ref, err := url.Parse(trimmed)
		if err != nil {
			continue
		}
		resolved := manifestURL.ResolveReference(ref)
		lines[i] = proxyOrigin + "/proxy?url=" + url.QueryEscape(resolved.String())
	}
	return []byte(strings.Join(lines, "\n"))
}
