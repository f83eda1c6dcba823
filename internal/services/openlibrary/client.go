package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound indicates the API has no record for the requested ISBN.
var ErrNotFound = errors.New("isbn not found")

// Author is a contributor entry in a book record.
type Author struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Publisher is a publisher entry in a book record.
type Publisher struct {
	Name string `json:"name"`
}

// Book is the subset of the OpenLibrary Books API payload the catalog uses.
type Book struct {
	Title         string      `json:"title"`
	PublishDate   string      `json:"publish_date"`
	NumberOfPages int         `json:"number_of_pages"`
	Authors       []Author    `json:"authors"`
	Publishers    []Publisher `json:"publishers"`
	Cover         struct {
		Medium string `json:"medium"`
		Large  string `json:"large"`
	} `json:"cover"`
}

// Lookuper defines the ISBN lookup operation used by the importer.
type Lookuper interface {
	Lookup(ctx context.Context, isbn string) (*Book, error)
}

// Client provides access to the OpenLibrary Books API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Lookuper = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates an OpenLibrary client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("openlibrary base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Lookup fetches the book record for an ISBN. Returns ErrNotFound when the
// API has no data for it.
func (c *Client) Lookup(ctx context.Context, isbn string) (*Book, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, errors.New("isbn must not be empty")
	}
	bibkey := "ISBN:" + isbn

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse openlibrary url: %w", err)
	}
	params := url.Values{}
	params.Set("bibkeys", bibkey)
	params.Set("jscmd", "data")
	params.Set("format", "json")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openlibrary lookup returned %d (latency=%v)", resp.StatusCode, latency)
	}

	// The API keys the response by bibkey and omits unknown ISBNs entirely.
	var payload map[string]Book
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode openlibrary response: %w", err)
	}
	book, ok := payload[bibkey]
	if !ok || strings.TrimSpace(book.Title) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, isbn)
	}
	return &book, nil
}
