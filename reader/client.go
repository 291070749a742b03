// Package reader fetches the raw upstream payloads: the population CSV,
// the historical bulk CSV export and the incrementally updated ArcGIS
// feed. It owns the HTTP plumbing (User-Agent, timeout, rate limiting)
// and the source-specific parsing into raw records; all reconciliation
// happens downstream.
package reader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"epiflow/config"
	"epiflow/logger"
)

// Client is the shared HTTP client for all three upstream endpoints.
type Client struct {
	config  *config.Config
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// New creates a Client from the source configuration. All requests carry
// the configured User-Agent and share one rate limiter so a full run
// stays polite towards the data portal.
func New(cfg *config.Config) *Client {
	log := logger.GetLogger()

	rl := cfg.Source.RateLimit
	rps := rl.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := rl.BurstSize
	if burst <= 0 {
		burst = 1
	}

	client := &Client{
		config:  cfg,
		http:    &http.Client{Timeout: cfg.Source.Timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log,
	}

	log.WithComponent("reader").WithFields(logger.Fields{
		"timeout":             cfg.Source.Timeout,
		"requests_per_second": rps,
		"burst_size":          burst,
	}).Debug("reader initialized")

	return client
}

// get performs one rate-limited GET and returns the response body.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	log := c.log.WithComponent("reader")

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", url, err)
	}

	logger.LogPerformanceEntry(log, "reader", "http_get", time.Since(start), logger.Fields{
		"url":   url,
		"bytes": len(body),
	})

	return body, nil
}
