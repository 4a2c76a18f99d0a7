// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/camgrid/internal/config"
	"github.com/tomtom215/camgrid/internal/logging"
	"github.com/tomtom215/camgrid/internal/metrics"
	"github.com/tomtom215/camgrid/internal/models"
)

// maxFeedBody caps a single feed payload. The largest real feed is a few
// MB of GeoJSON; anything beyond this is a misbehaving upstream.
const maxFeedBody = 64 << 20

// ErrSourceSkipped marks a source that was intentionally not fetched this
// cycle (disabled, or missing a required API key).
var ErrSourceSkipped = errors.New("source skipped")

// Engine fetches and normalizes individual sources. It owns the shared
// HTTP client, the global outbound rate limiter, and one circuit breaker
// per source so a flapping upstream stops being hammered without
// affecting its neighbors.
type Engine struct {
	client  *http.Client
	limiter *rate.Limiter

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

// NewEngine builds an engine from the feed configuration.
func NewEngine(cfg config.FeedsConfig) *Engine {
	return &Engine{
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
}

// breaker returns the source's circuit breaker, creating it on first use.
func (e *Engine) breaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[name]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("source", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Feed circuit breaker state change")
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})
	e.breakers[name] = cb
	return cb
}

// breakerOutcome maps an Execute result onto the metric's outcome label.
func breakerOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	default:
		return "failure"
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// Collect fetches one source and returns its normalized records. Disabled
// and key-less sources return ErrSourceSkipped so the aggregator can
// record them without treating them as failures.
func (e *Engine) Collect(ctx context.Context, src Source, p *Pass) ([]models.Camera, error) {
	if src.Disabled {
		return nil, fmt.Errorf("%w: %s", ErrSourceSkipped, src.DisabledReason)
	}
	target, err := e.buildURL(src, p.Cfg)
	if err != nil {
		return nil, err
	}
	if target == "" {
		return nil, fmt.Errorf("%w: missing %s API key", ErrSourceSkipped, src.NeedsKey)
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	cb := e.breaker(src.Name)
	body, err := cb.Execute(func() ([]byte, error) {
		return e.fetch(ctx, src, target)
	})
	metrics.CircuitBreakerRequests.WithLabelValues(src.Name, breakerOutcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	if src.Hook != nil {
		return src.Hook(src, body, p)
	}
	return mapGeoJSON(src, body, p)
}

// buildURL resolves the final request URL: API key substitution and the
// cache-busting timestamp some CDN-fronted feeds need.
func (e *Engine) buildURL(src Source, cfg config.FeedsConfig) (string, error) {
	target := src.URL
	switch src.NeedsKey {
	case "utah":
		if cfg.UtahKey == "" {
			return "", nil
		}
		target = fmt.Sprintf(target, url.QueryEscape(cfg.UtahKey))
	case "nevada":
		if cfg.NevadaKey == "" {
			return "", nil
		}
		target = fmt.Sprintf(target, url.QueryEscape(cfg.NevadaKey))
	case "":
	default:
		return "", fmt.Errorf("unknown API key reference %q", src.NeedsKey)
	}

	if src.CacheBust {
		u, err := url.Parse(target)
		if err != nil {
			return "", fmt.Errorf("parsing source URL: %w", err)
		}
		q := u.Query()
		q.Set("v", strconv.FormatInt(time.Now().Unix(), 10))
		u.RawQuery = q.Encode()
		target = u.String()
	}
	return target, nil
}

func (e *Engine) fetch(ctx context.Context, src Source, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", src.Name, err)
	}
	req.Header.Set("Accept", "application/json, application/geo+json, */*")
	req.Header.Set("User-Agent", "camgrid/1.0 (+https://github.com/tomtom215/camgrid)")
	for k, v := range src.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetching %s: upstream status %d", src.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s body: %w", src.Name, err)
	}
	if len(body) > maxFeedBody {
		return nil, fmt.Errorf("%s payload exceeds %d bytes", src.Name, maxFeedBody)
	}
	return body, nil
}
