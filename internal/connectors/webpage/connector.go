// Package webpage implements the source adapter for polled web pages.
// Each source watches a single URL; the fetched HTML is reduced to its
// readable article content so boilerplate churn does not register as
// change.
package webpage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/helical-labs/medwatch/internal/core/domain"
	"github.com/helical-labs/medwatch/internal/core/ports/driven"
	"github.com/helical-labs/medwatch/internal/logger"
	"github.com/helical-labs/medwatch/internal/normalisers/html"
	"github.com/helical-labs/medwatch/internal/normalisers/plaintext"
)

var _ driven.SourceAdapter = (*Connector)(nil)

const (
	// defaultUserAgent identifies the monitor to origin servers.
	defaultUserAgent = "medwatch/1.0 (+https://github.com/helical-labs/medwatch)"

	// maxBodySize bounds how much of a response body is read.
	maxBodySize = 8 << 20 // 8 MiB

	// fetchTimeout bounds one HTTP round trip.
	fetchTimeout = 30 * time.Second
)

// Config keys understood by this connector.
const (
	configURL       = "url"
	configUserAgent = "user_agent"
)

// Connector polls one web page over HTTP.
type Connector struct {
	sourceID  string
	pageURL   string
	userAgent string

	client     *http.Client
	limiter    *rate.Limiter
	normaliser *html.Normaliser

	mu   sync.Mutex
	etag string
	last domain.Snapshot
	seen bool
}

// New creates a webpage connector from a source definition. The source
// config requires "url" (http or https).
func New(source domain.Source) (*Connector, error) {
	raw := source.Config[configURL]
	if raw == "" {
		return nil, fmt.Errorf("%w: webpage source %s requires config key %q",
			domain.ErrInvalidInput, source.ID, configURL)
	}

	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("%w: bad url %q", domain.ErrInvalidInput, raw)
	}

	userAgent := source.Config[configUserAgent]
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	// One fetch per minimum poll interval regardless of how eagerly the
	// scheduler wakes us, with a small burst for startup.
	limit := rate.Every(domain.MinPollInterval)

	return &Connector{
		sourceID:   source.ID,
		pageURL:    parsed.String(),
		userAgent:  userAgent,
		client:     &http.Client{Timeout: fetchTimeout},
		limiter:    rate.NewLimiter(limit, 2),
		normaliser: html.New(),
	}, nil
}

// Kind returns the adapter kind identifier.
func (c *Connector) Kind() string { return "webpage" }

// SourceID returns the configured source ID.
func (c *Connector) SourceID() string { return c.sourceID }

// Capabilities reports a delta-only, self-throttled adapter: a page that
// stops existing yields an error, never a removal.
func (c *Connector) Capabilities() driven.AdapterCapabilities {
	return driven.AdapterCapabilities{RateLimited: true}
}

// Poll fetches the page and returns one snapshot. A 304 Not Modified
// replays the previous snapshot so downstream fingerprinting stays a
// no-op; server errors yield ErrSourceUnavailable.
func (c *Connector) Poll(ctx context.Context) ([]domain.Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	c.mu.Lock()
	if c.etag != "" {
		req.Header.Set("If-None-Match", c.etag)
	}
	c.mu.Unlock()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", domain.ErrSourceUnavailable, c.pageURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.seen {
			return nil, nil
		}
		snap := c.last
		snap.FetchedAt = time.Now()
		return []domain.Snapshot{snap}, nil

	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: fetch %s: status %d",
			domain.ErrSourceUnavailable, c.pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrSourceUnavailable, c.pageURL, err)
	}

	extracted, err := c.normaliser.Extract(body, c.pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", c.pageURL, err)
	}

	snap := domain.Snapshot{
		SourceID:  c.sourceID,
		ItemID:    c.pageURL,
		Title:     extracted.Title,
		Content:   plaintext.Normalise(extracted.Markdown),
		FetchedAt: time.Now(),
		Metadata: map[string]string{
			"content_type": resp.Header.Get("Content-Type"),
		},
	}

	c.mu.Lock()
	c.etag = resp.Header.Get("ETag")
	c.last = snap
	c.seen = true
	c.mu.Unlock()

	logger.Debug("webpage: fetched %s (%d bytes)", c.pageURL, len(body))
	return []domain.Snapshot{snap}, nil
}

// Watch is unsupported; webpage sources rely on interval polling.
func (c *Connector) Watch(context.Context) (<-chan struct{}, error) {
	return nil, fmt.Errorf("%w: webpage sources do not support watch", domain.ErrUnsupportedKind)
}

// Close releases the HTTP client's idle connections.
func (c *Connector) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
