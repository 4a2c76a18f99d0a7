// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

// Package proxy implements the CORS/HLS edge proxy. Browsers cannot fetch
// most DOT camera streams directly: the upstreams send no CORS headers and
// many gate on Referer or User-Agent. The proxy fetches on the browser's
// behalf, rewrites HLS playlists so every segment fetch routes back through
// it, and serves everything with a permissive CORS policy behind a strict
// upstream allow-list and SSRF guard.
package proxy

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/camgrid/internal/cache"
	"github.com/tomtom215/camgrid/internal/config"
	"github.com/tomtom215/camgrid/internal/logging"
	"github.com/tomtom215/camgrid/internal/metrics"
	"github.com/tomtom215/camgrid/internal/middleware"
)

// Request lifecycle states. Every request terminates in exactly one state,
// recorded in the proxy request metric.
const (
	stateRaw                = "raw"
	stateRewritten          = "rewritten"
	statePreflight          = "preflight"
	stateCacheHit           = "cache_hit"
	stateRejectedMethod     = "rejected_method"
	stateRejectedNoTarget   = "rejected_no_target"
	stateRejectedBadURL     = "rejected_bad_url"
	stateRejectedBlocked    = "rejected_blocked_host"
	stateRejectedDisallowed = "rejected_disallowed_host"
	stateUpstreamError      = "upstream_error"
)

// browserUserAgent is sent upstream in place of the Go default. Several
// DOT CDNs refuse non-browser user agents outright.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"

// maxUpstreamBody bounds how much of an upstream response is read. Camera
// segments are a few MB; anything near this limit is not a camera stream.
const maxUpstreamBody = 64 << 20

// forwardHeaders is the restricted set of client headers passed upstream.
var forwardHeaders = []string{"Range", "Accept", "Content-Type", "Authorization"}

// Handler serves the /proxy endpoint.
type Handler struct {
	cfg    config.ProxyConfig
	client *http.Client
	cache  *cache.ResponseCache
}

// NewHandler creates a proxy handler with its own upstream client and edge
// cache sized from config.
func NewHandler(cfg config.ProxyConfig) *Handler {
	h := &Handler{
		cfg:   cfg,
		cache: cache.NewResponseCache(cfg.CacheMaxEntries, cfg.CacheTTL, cfg.CacheMaxBody),
	}
	h.client = &http.Client{
		Timeout: cfg.UpstreamTimeout,
		// Redirect targets get the same host validation as the original
		// target, so an allow-listed upstream cannot bounce the proxy into
		// an internal address.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("proxy: too many redirects")
			}
			host := req.URL.Hostname()
			if blockedHost(host) {
				return ErrBlockedHost
			}
			if !allowedHost(host, cfg.AllowedHosts) {
				return ErrDisallowedHost
			}
			return nil
		},
	}
	return h
}

// Router builds the proxy's route tree. Only /proxy exists; everything
// else is 404.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.HandleFunc("/proxy", h.Handle)
	return r
}

// reject terminates a request in an error state with CORS headers attached
// so browsers can surface the failure to page scripts.
func (h *Handler) reject(w http.ResponseWriter, r *http.Request, status int, state, msg string) {
	metrics.ProxyRequestsTotal.WithLabelValues(state).Inc()
	h.setCORSHeaders(w.Header(), r.Header.Get("Origin"))
	http.Error(w, msg, status)
}

// Handle runs one request through the proxy lifecycle: validate the
// target, check the SSRF guard and allow-list, consult the edge cache,
// fetch upstream, optionally rewrite the manifest, and respond.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		metrics.ProxyRequestsTotal.WithLabelValues(statePreflight).Inc()
		h.setCORSHeaders(w.Header(), r.Header.Get("Origin"))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodPost:
	default:
		h.reject(w, r, http.StatusMethodNotAllowed, stateRejectedMethod, "method not allowed")
		return
	}

	rawTarget := r.URL.Query().Get("url")
	if rawTarget == "" {
		h.reject(w, r, http.StatusBadRequest, stateRejectedNoTarget, ErrNoTarget.Error())
		return
	}

	target, err := url.Parse(rawTarget)
	if err != nil || !target.IsAbs() || (target.Scheme != "http" && target.Scheme != "https") || target.Hostname() == "" {
		h.reject(w, r, http.StatusBadRequest, stateRejectedBadURL, ErrBadURL.Error())
		return
	}

	host := target.Hostname()
	if blockedHost(host) {
		h.reject(w, r, http.StatusForbidden, stateRejectedBlocked, ErrBlockedHost.Error())
		return
	}
	if !allowedHost(host, h.cfg.AllowedHosts) {
		h.reject(w, r, http.StatusForbidden, stateRejectedDisallowed, ErrDisallowedHost.Error())
		return
	}

	raw := r.URL.Query().Get("raw") != ""
	cacheable := r.Method == http.MethodGet || r.Method == http.MethodHead
	cacheKey := cacheKeyFor(r, target, raw)

	if cacheable {
		if cached, ok := h.cache.Get(cacheKey); ok {
			metrics.ProxyCacheHits.Inc()
			metrics.ProxyRequestsTotal.WithLabelValues(stateCacheHit).Inc()
			h.writeResponse(w, r, cached.Clone())
			return
		}
		metrics.ProxyCacheMisses.Inc()
	}

	resp, err := h.fetchUpstream(w, r, target)
	if err != nil {
		return // fetchUpstream already responded
	}

	state := stateRaw
	if !raw && resp.Status == http.StatusOK && isManifest(resp.Header.Get("Content-Type"), target.Path) {
		resp.Body = rewriteManifest(resp.Body, target, requestOrigin(r))
		resp.Header.Set("Content-Type", manifestContentType)
		resp.Header.Set("Content-Length", fmt.Sprint(len(resp.Body)))
		metrics.ProxyManifestRewrites.Inc()
		state = stateRewritten
	}

	if cacheable && resp.Status == http.StatusOK {
		h.cache.Add(cacheKey, resp.Clone())
		metrics.ProxyCacheEntries.Set(float64(h.cache.Len()))
	}

	metrics.ProxyRequestsTotal.WithLabelValues(state).Inc()
	h.writeResponse(w, r, resp)
}

// cacheKeyFor builds the edge-cache key from the method, the fully
// resolved target, the raw flag, and every forwarded header. Upstream
// responses can vary on any forwarded header (Range slices, Authorization
// grants), so none of them may be collapsed into a shared entry.
func cacheKeyFor(r *http.Request, target *url.URL, raw bool) string {
	var b strings.Builder
	b.WriteString(r.Method)
	b.WriteByte(' ')
	b.WriteString(target.String())
	b.WriteString("|raw=")
	b.WriteString(strconv.FormatBool(raw))
	for _, name := range forwardHeaders {
		b.WriteByte('|')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(r.Header.Get(name))
	}
	return b.String()
}

// fetchUpstream performs the forwarded request and returns the sanitized
// response. On failure it writes the error response itself and returns a
// non-nil error as a signal to the caller.
func (h *Handler) fetchUpstream(w http.ResponseWriter, r *http.Request, target *url.URL) (*cache.Response, error) {
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		h.reject(w, r, http.StatusBadRequest, stateRejectedBadURL, ErrBadURL.Error())
		return nil, err
	}

	for _, name := range forwardHeaders {
		if v := r.Header.Get(name); v != "" {
			req.Header.Set(name, v)
		}
	}
	req.Header.Set("User-Agent", browserUserAgent)

	// Upstreams that gate on Referer accept their own origin.
	origin := target.Scheme + "://" + target.Host
	if r.Header.Get("Referer") == "" {
		req.Header.Set("Referer", origin+"/")
	} else {
		req.Header.Set("Referer", r.Header.Get("Referer"))
	}
	req.Header.Set("Origin", origin)

	start := time.Now()
	upstream, err := h.client.Do(req)
	if err != nil {
		logging.Warn().Err(err).Str("target", target.String()).Msg("upstream fetch failed")
		h.reject(w, r, http.StatusBadGateway, stateUpstreamError, "upstream fetch failed")
		return nil, err
	}
	defer upstream.Body.Close()
	metrics.ProxyUpstreamDuration.Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(io.LimitReader(upstream.Body, maxUpstreamBody))
	if err != nil {
		logging.Warn().Err(err).Str("target", target.String()).Msg("upstream body read failed")
		h.reject(w, r, http.StatusBadGateway, stateUpstreamError, "upstream read failed")
		return nil, err
	}

	header := upstream.Header.Clone()
	stripUpstreamHeaders(header)

	return &cache.Response{
		Status: upstream.StatusCode,
		Header: header,
		Body:   body,
	}, nil
}

// writeResponse emits the final response with the proxy's CORS policy.
// CORS headers are set per request rather than taken from cache, so
// locked-origin mode echoes the right origin on cache hits too.
func (h *Handler) writeResponse(w http.ResponseWriter, r *http.Request, resp *cache.Response) {
	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	h.setCORSHeaders(w.Header(), r.Header.Get("Origin"))
	w.WriteHeader(resp.Status)
	if r.Method != http.MethodHead {
		if _, err := w.Write(resp.Body); err != nil {
			logging.Debug().Err(err).Msg("client write failed")
		}
	}
}

// requestOrigin reconstructs the externally visible origin of this proxy
// for self-referencing manifest URLs, honoring X-Forwarded-Proto from a
// fronting load balancer.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
