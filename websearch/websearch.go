// Package websearch abstracts the web-search collaborator: query in,
// structured results out.
package websearch

import (
	"context"
	"net/http"
	"time"
)

// Result is one web search hit.
type Result struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	PublishedDate string `json:"published_date,omitempty"`
}

// Client executes a single web search. Implementations may return an error
// on quota or network failure; callers treat that as zero results for the
// query.
type Client interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// ClientFunc adapts a plain function to the Client interface.
type ClientFunc func(ctx context.Context, query string, maxResults int) ([]Result, error)

// Search calls the underlying function.
func (f ClientFunc) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	return f(ctx, query, maxResults)
}

// defaultTimeout bounds each individual search call.
const defaultTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}
