// Package fetch downloads pages for command-line scans and decodes them to
// UTF-8.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// ErrTooLarge is returned when a page exceeds the configured size cap.
var ErrTooLarge = errors.New("page too large")

// Config configures a Fetcher.
type Config struct {
	UserAgent         string
	Timeout           time.Duration
	MaxBytes          int64
	RequestsPerSecond float64
}

// Page is a downloaded document, already decoded to UTF-8.
type Page struct {
	URL         string
	ContentType string
	Body        []byte
}

// Fetcher downloads HTML pages.
type Fetcher struct {
	client  *http.Client
	config  Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Fetcher. A nil logger uses slog.Default().
func New(config Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = 10 << 20
	}
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	return &Fetcher{
		client:  &http.Client{Timeout: config.Timeout},
		config:  config,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Fetch downloads urlStr. The returned Page.URL is the final URL after
// redirects, which is what relative links on the page resolve against.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*Page, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("bad status code: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := f.decode(resp.Body, contentType)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", urlStr, err)
	}

	f.logger.Debug("page fetched",
		slog.String("url", resp.Request.URL.String()),
		slog.String("content_type", contentType),
		slog.Int("bytes", len(body)))

	return &Page{
		URL:         resp.Request.URL.String(),
		ContentType: contentType,
		Body:        body,
	}, nil
}

// ReadFile loads a saved page from disk, sniffing its encoding.
func (f *Fetcher) ReadFile(path string) (*Page, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	body, err := f.decode(file, "")
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &Page{Body: body}, nil
}

func (f *Fetcher) decode(r io.Reader, contentType string) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, f.config.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > f.config.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.config.MaxBytes)
	}

	utf8Reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		f.logger.Warn("encoding conversion failed", slog.String("content_type", contentType), slog.Any("error", err))
		return raw, nil
	}
	return io.ReadAll(utf8Reader)
}
