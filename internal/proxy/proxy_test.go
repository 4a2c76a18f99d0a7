// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package proxy

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/camgrid/internal/config"
)

// hostRewriteTransport routes every request to the test upstream while
// preserving the original path, query, and headers. This lets tests use
// realistic public hostnames that pass the SSRF guard.
type hostRewriteTransport struct {
	upstream *httptest.Server
}

func (t hostRewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	u, _ := url.Parse(t.upstream.URL)
	clone.URL.Scheme = u.Scheme
	clone.URL.Host = u.Host
	return http.DefaultTransport.RoundTrip(clone)
}

func testProxyConfig() config.ProxyConfig {
	return config.ProxyConfig{
		Host:            "127.0.0.1",
		Port:            8081,
		UpstreamTimeout: 5 * time.Second,
		AllowedHosts:    []string{"cams.example.com", "hls.example.net"},
		AllowAnyOrigin:  true,
		CacheTTL:        10 * time.Second,
		CacheMaxEntries: 64,
		CacheMaxBody:    1 << 20,
	}
}

func newTestHandler(t *testing.T, cfg config.ProxyConfig, upstream http.HandlerFunc) (*Handler, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	h := NewHandler(cfg)
	h.client = &http.Client{
		Timeout:   cfg.UpstreamTimeout,
		Transport: hostRewriteTransport{upstream: srv},
	}
	return h, srv
}

func doProxy(h *Handler, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func TestRejectionStates(t *testing.T) {
	h, _ := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		name     string
		method   string
		target   string
		wantCode int
	}{
		{"missing url", http.MethodGet, "/proxy", http.StatusBadRequest},
		{"relative url", http.MethodGet, "/proxy?url=" + url.QueryEscape("/etc/passwd"), http.StatusBadRequest},
		{"non-http scheme", http.MethodGet, "/proxy?url=" + url.QueryEscape("ftp://cams.example.com/a"), http.StatusBadRequest},
		{"private ipv4", http.MethodGet, "/proxy?url=" + url.QueryEscape("http://10.0.0.5/cam.jpg"), http.StatusForbidden},
		{"loopback", http.MethodGet, "/proxy?url=" + url.QueryEscape("http://127.0.0.1/cam.jpg"), http.StatusForbidden},
		{"link local", http.MethodGet, "/proxy?url=" + url.QueryEscape("http://169.254.1.1/x"), http.StatusForbidden},
		{"localhost name", http.MethodGet, "/proxy?url=" + url.QueryEscape("http://localhost/x"), http.StatusForbidden},
		{"dot local", http.MethodGet, "/proxy?url=" + url.QueryEscape("http://nas.local/x"), http.StatusForbidden},
		{"ipv6 loopback", http.MethodGet, "/proxy?url=" + url.QueryEscape("http://[::1]/x"), http.StatusForbidden},
		{"ipv6 ula", http.MethodGet, "/proxy?url=" + url.QueryEscape("http://[fd00::1]/x"), http.StatusForbidden},
		{"not allow-listed", http.MethodGet, "/proxy?url=" + url.QueryEscape("https://evil.example.org/x"), http.StatusForbidden},
		{"method not allowed", http.MethodPut, "/proxy?url=" + url.QueryEscape("https://cams.example.com/x"), http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doProxy(h, tt.method, tt.target, nil)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %q)", rec.Code, tt.wantCode, rec.Body.String())
			}
			// Rejections still carry CORS headers so page scripts see them.
			if rec.Header().Get("Access-Control-Allow-Origin") == "" {
				t.Error("rejection missing CORS headers")
			}
		})
	}
}

func TestBlockedHostOverridesAllowList(t *testing.T) {
	cfg := testProxyConfig()
	cfg.AllowedHosts = append(cfg.AllowedHosts, "10.0.0.5")
	h, _ := newTestHandler(t, cfg, func(w http.ResponseWriter, r *http.Request) {})

	rec := doProxy(h, http.MethodGet, "/proxy?url="+url.QueryEscape("http://10.0.0.5/cam.jpg"), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 even when allow-listed", rec.Code)
	}
}

func TestSubdomainAllowList(t *testing.T) {
	h, _ := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	rec := doProxy(h, http.MethodGet, "/proxy?url="+url.QueryEscape("https://edge1.cams.example.com/a.jpg"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("subdomain status = %d, want 200", rec.Code)
	}

	// Suffix without a dot boundary must not match.
	rec = doProxy(h, http.MethodGet, "/proxy?url="+url.QueryEscape("https://evilcams.example.com.attacker.net/a"), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("suffix-trick status = %d, want 403", rec.Code)
	}
}

func TestPreflight(t *testing.T) {
	h, _ := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach upstream")
	})

	rec := doProxy(h, http.MethodOptions, "/proxy", map[string]string{"Origin": "https://app.example.com"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET,HEAD,POST,OPTIONS" {
		t.Errorf("Allow-Methods = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type,Range,Authorization" {
		t.Errorf("Allow-Headers = %q", got)
	}
	if got := rec.Header().Get("Vary"); got != "Origin" {
		t.Errorf("Vary = %q", got)
	}
}

func TestHeaderSynthesis(t *testing.T) {
	var gotUA, gotReferer, gotOrigin, gotRange string
	h, _ := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		gotOrigin = r.Header.Get("Origin")
		gotRange = r.Header.Get("Range")
		w.Write([]byte("segment"))
	})

	rec := doProxy(h, http.MethodGet,
		"/proxy?url="+url.QueryEscape("https://cams.example.com/feed/seg1.ts"),
		map[string]string{"Range": "bytes=0-1023"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(gotUA, "Mozilla/5.0") {
		t.Errorf("User-Agent = %q, want browser-like", gotUA)
	}
	if gotReferer != "https://cams.example.com/" {
		t.Errorf("Referer = %q, want target origin", gotReferer)
	}
	if gotOrigin != "https://cams.example.com" {
		t.Errorf("Origin = %q, want target origin", gotOrigin)
	}
	if gotRange != "bytes=0-1023" {
		t.Errorf("Range = %q, not forwarded", gotRange)
	}
}

func TestRawPassthroughPreservesBytes(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	h, _ := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(jpeg)
	})

	rec := doProxy(h, http.MethodGet, "/proxy?url="+url.QueryEscape("https://cams.example.com/cam.jpg")+"&raw=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.Bytes(); string(got) != string(jpeg) {
		t.Errorf("body not byte-identical: got %v", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
}

func TestManifestRewrite(t *testing.T) {
	manifest := "#EXTM3U\n#EXT-X-VERSION:3\nsegment1.ts\nhttps://hls.example.net/seg2.ts\n#EXT-X-ENDLIST"
	h, _ := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Write([]byte(manifest))
	})

	rec := doProxy(h, http.MethodGet, "/proxy?url="+url.QueryEscape("https://hls.example.net/path/playlist.m3u8"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	lines := strings.Split(rec.Body.String(), "\n")
	want := []string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
		"http://example.com/proxy?url=" + url.QueryEscape("https://hls.example.net/path/segment1.ts"),
		"http://example.com/proxy?url=" + url.QueryEscape("https://hls.example.net/seg2.ts"),
		"#EXT-X-ENDLIST",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), rec.Body.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	if ct := rec.Header().Get("Content-Type"); ct != manifestContentType {
		t.Errorf("Content-Type = %q, want %q", ct, manifestContentType)
	}
}

func TestManifestDetectedBySuffix(t *testing.T) {
	// Some upstreams serve playlists as text/plain; the .m3u8 suffix still
	// triggers the rewrite.
	h, _ := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("#EXTM3U\nlow/index.m3u8"))
	})

	rec := doProxy(h, http.MethodGet, "/proxy?url="+url.QueryEscape("https://cams.example.com/live.m3u8"), nil)
	body := rec.Body.String()
	if !strings.Contains(body, "/proxy?url=") {
		t.Errorf("suffix-detected manifest not rewritten: %q", body)
	}
}

func TestManifestRawBypassesRewrite(t *testing.T) {
	manifest := "#EXTM3U\nsegment1.ts"
	h, _ := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-mpegurl")
		w.Write([]byte(manifest))
	})

	rec := doProxy(h, http.MethodGet, "/proxy?url="+url.QueryEscape("https://cams.example.com/live.m3u8")+"&raw=1", nil)
	if rec.Body.String() != manifest {
		t.Errorf("raw manifest modified: %q", rec.Body.String())
	}
}

func TestUpstreamHeaderHygiene(t *testing.T) {
	h, _ := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Set-Cookie", "session=secret")
		w.Header().Set("Access-Control-Allow-Origin", "https://upstream.example.com")
		w.Header().Set("X-Custom", "kept")
		w.Write([]byte("ok"))
	})

	rec := doProxy(h, http.MethodGet, "/proxy?url="+url.QueryEscape("https://cams.example.com/a"), nil)
	if got := rec.Header().Get("Set-Cookie"); got != "" {
		t.Errorf("Set-Cookie leaked: %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want proxy's own wildcard", got)
	}
	if got := rec.Header().Get("X-Custom"); got != "kept" {
		t.Errorf("benign upstream header dropped: %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); got != corsExposeHeaders {
		t.Errorf("Expose-Headers = %q", got)
	}
}

func TestLockedOriginMode(t *testing.T) {
	cfg := testProxyConfig()
	cfg.AllowAnyOrigin = false
	cfg.AllowedOrigins = []string{"https://app.example.com"}
	h, _ := newTestHandler(t, cfg, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	target := "/proxy?url=" + url.QueryEscape("https://cams.example.com/a")

	rec := doProxy(h, http.MethodGet, target, map[string]string{"Origin": "https://app.example.com"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allowed origin echoed %q", got)
	}

	rec = doProxy(h, http.MethodGet, target, map[string]string{"Origin": "https://stranger.example.com"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "null" {
		t.Errorf("disallowed origin got %q, want null", got)
	}
}

func TestEdgeCacheSkipsUpstream(t *testing.T) {
	hits := 0
	h, _ := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("payload"))
	})

	target := "/proxy?url=" + url.QueryEscape("https://cams.example.com/cached.jpg")
	for i := 0; i < 3; i++ {
		rec := doProxy(h, http.MethodGet, target, nil)
		if rec.Code != http.StatusOK || rec.Body.String() != "payload" {
			t.Fatalf("request %d: status %d body %q", i, rec.Code, rec.Body.String())
		}
	}
	if hits != 1 {
		t.Errorf("upstream hit %d times, want 1 (cache)", hits)
	}
}

func TestCacheKeySeparatesForwardedHeaders(t *testing.T) {
	h, _ := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("body-for-" + r.Header.Get("Authorization")))
	})

	target := "/proxy?url=" + url.QueryEscape("https://cams.example.com/secure.m3u8")

	alice := doProxy(h, http.MethodGet, target, map[string]string{"Authorization": "Bearer alice"})
	if alice.Body.String() != "body-for-Bearer alice" {
		t.Fatalf("alice body = %q", alice.Body.String())
	}

	// A different credential must never see alice's cached response.
	bob := doProxy(h, http.MethodGet, target, map[string]string{"Authorization": "Bearer bob"})
	if bob.Body.String() != "body-for-Bearer bob" {
		t.Errorf("bob body = %q, cached response crossed credentials", bob.Body.String())
	}

	// Same goes for Range: each slice is its own entry.
	u, _ := url.Parse("https://cams.example.com/secure.m3u8")
	reqA := httptest.NewRequest(http.MethodGet, target, nil)
	reqA.Header.Set("Range", "bytes=0-1")
	reqB := httptest.NewRequest(http.MethodGet, target, nil)
	reqB.Header.Set("Range", "bytes=2-3")
	if cacheKeyFor(reqA, u, false) == cacheKeyFor(reqB, u, false) {
		t.Error("cache keys for different Range values must differ")
	}
}

func TestCacheKeySeparatesMethod(t *testing.T) {
	u, _ := url.Parse("https://cams.example.com/cam.jpg")
	get := httptest.NewRequest(http.MethodGet, "/proxy", nil)
	head := httptest.NewRequest(http.MethodHead, "/proxy", nil)
	if cacheKeyFor(get, u, false) == cacheKeyFor(head, u, false) {
		t.Error("GET and HEAD must not share a cache entry")
	}
}

func TestHeadRequestsAreCached(t *testing.T) {
	hits := 0
	h, _ := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg"))
	})

	target := "/proxy?url=" + url.QueryEscape("https://cams.example.com/head.jpg")
	for i := 0; i < 3; i++ {
		rec := doProxy(h, http.MethodHead, target, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Fatalf("HEAD response must have no body, got %q", rec.Body.String())
		}
	}
	if hits != 1 {
		t.Errorf("upstream hit %d times, want 1 (cache)", hits)
	}
}

func TestCacheKeySeparatesRawFlag(t *testing.T) {
	manifest := "#EXTM3U\nseg.ts"
	h, _ := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Write([]byte(manifest))
	})

	base := "/proxy?url=" + url.QueryEscape("https://cams.example.com/live.m3u8")

	rewritten := doProxy(h, http.MethodGet, base, nil).Body.String()
	raw := doProxy(h, http.MethodGet, base+"&raw=1", nil).Body.String()
	if rewritten == raw {
		t.Fatal("raw and rewritten responses shared a cache entry")
	}
	if raw != manifest {
		t.Errorf("raw body = %q", raw)
	}
}

func TestNon200NotCached(t *testing.T) {
	hits := 0
	h, _ := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	})

	target := "/proxy?url=" + url.QueryEscape("https://cams.example.com/missing.jpg")
	doProxy(h, http.MethodGet, target, nil)
	doProxy(h, http.MethodGet, target, nil)
	if hits != 2 {
		t.Errorf("upstream hit %d times, want 2 (404 not cached)", hits)
	}
}

func TestUpstreamFailure(t *testing.T) {
	h, srv := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {})
	srv.Close() // force connection errors

	rec := doProxy(h, http.MethodGet, "/proxy?url="+url.QueryEscape("https://cams.example.com/a"), nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestUnknownPath(t *testing.T) {
	h, _ := newTestHandler(t, testProxyConfig(), func(w http.ResponseWriter, r *http.Request) {})

	rec := doProxy(h, http.MethodGet, "/other", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRewriteManifestUnresolvableLine(t *testing.T) {
	base, _ := url.Parse("https://cams.example.com/path/playlist.m3u8")
	// A control character makes url.Parse fail; the line must survive
	// untouched rather than corrupt the manifest.
	in := "#EXTM3U\n\x7fbad\nok.ts"
	out := string(rewriteManifest([]byte(in), base, "https://edge.example.com"))
	lines := strings.Split(out, "\n")
	if lines[1] != "\x7fbad" {
		t.Errorf("unresolvable line altered: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "https://edge.example.com/proxy?url=") {
		t.Errorf("valid line not rewritten: %q", lines[2])
	}
}
