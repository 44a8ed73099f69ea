package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/justyntemme/shelfscan/internal/models"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	ServerURL         string
	Token             string
	ExtraHeaders      map[string]string
	Timeout           time.Duration
	RequestsPerSecond float64
	Version           string
	HTTPClient        *http.Client
}

// Client talks to a remote lookup server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	headers    map[string]string
	version    string
	limiter    *rate.Limiter
}

// NewClient creates a lookup server client
func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	version := opts.Version
	if version == "" {
		version = "shelfscan/" + APIVersion
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(opts.ServerURL, "/"),
		token:      opts.Token,
		headers:    opts.ExtraHeaders,
		version:    version,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// ServerURL returns the server the client talks to.
func (c *Client) ServerURL() string {
	return c.baseURL
}

// BatchCheck posts ids to the server's batch endpoint.
func (c *Client) BatchCheck(ctx context.Context, ids []string) ([]models.LookupResult, error) {
	body, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}

	var results []models.LookupResult
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/batch_check/", body, &results); err != nil {
		return nil, err
	}
	if results == nil {
		results = []models.LookupResult{}
	}
	return results, nil
}

// Check looks up a single identifier.
func (c *Client) Check(ctx context.Context, id string) (models.LookupResult, error) {
	var results []models.LookupResult
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/check/"+url.PathEscape(id), nil, &results); err != nil {
		return models.LookupResult{}, err
	}
	if len(results) != 1 {
		return models.LookupResult{}, fmt.Errorf("%w: %w: expected one result, got %d", ErrTransport, ErrBadResponse, len(results))
	}
	return results[0], nil
}

// Ping checks that the server is answering.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, c.baseURL+"/", nil, nil)
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderClient, c.version)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: unexpected status: %d", ErrTransport, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w: %v", ErrTransport, ErrBadResponse, err)
	}
	return nil
}
