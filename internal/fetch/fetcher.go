// Package fetch implements the journal Fetcher using gocolly.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/faarchive/journaliser/internal/journal"
)

// Limiter paces outbound requests. A nil Limiter means unlimited.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Config controls collector behavior.
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	RetryDelay time.Duration
	Limiter    Limiter
}

// Client fetches journal pages. Transport failures are retried forever
// with a fixed delay: this is an unattended long-running archiver, so
// eventual success matters more than fast failure. An error return
// means the context finished first.
type Client struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
	observer      journal.Observer
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger, observer journal.Observer) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("site base url is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 15 * time.Second
	}
	if observer == nil {
		observer = journal.NopObserver{}
	}

	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(newHTTPTransport())
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.SetRequestTimeout(cfg.Timeout)

	return &Client{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
		observer:      observer,
	}, nil
}

// Fetch retrieves the raw page for a journal ID, optionally with a
// registered-user cookie pair.
func (c *Client) Fetch(ctx context.Context, id int64, creds *journal.Credentials) ([]byte, error) {
	url := journal.FetchURL(c.cfg.BaseURL, id)
	for attempt := 1; ; attempt++ {
		if c.cfg.Limiter != nil {
			if err := c.cfg.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("fetch journal %d: %w", id, err)
			}
		}
		body, err := c.fetchOnce(ctx, url, creds)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch journal %d: %w", id, ctx.Err())
		}
		c.observer.ObserveFetchRetry()
		c.logger.Warn("fetch failed, will retry",
			zap.Int64("journal_id", id),
			zap.Int("attempt", attempt),
			zap.Duration("retry_delay", c.cfg.RetryDelay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("fetch journal %d: %w", id, ctx.Err())
		case <-time.After(c.cfg.RetryDelay):
		}
	}
}

func (c *Client) fetchOnce(ctx context.Context, url string, creds *journal.Credentials) ([]byte, error) {
	collector := c.baseCollector.Clone()

	if creds != nil && !creds.Empty() {
		cookies := []*http.Cookie{
			{Name: "a", Value: creds.CookieA},
			{Name: "b", Value: creds.CookieB},
		}
		if err := collector.SetCookies(url, cookies); err != nil {
			return nil, fmt.Errorf("set session cookies: %w", err)
		}
	}

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit %s: %w", url, err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("response for %s: %w", url, fetchErr)
		}
		return body, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
