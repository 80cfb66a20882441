package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
)

// BraveClient searches the web through the Brave Search API.
type BraveClient struct {
	APIKey  string
	BaseURL string
	Country string
	Lang    string

	httpClient *http.Client
}

// BraveOption configures the BraveClient.
type BraveOption func(*BraveClient)

// WithBraveBaseURL overrides the API endpoint (used in tests).
func WithBraveBaseURL(baseURL string) BraveOption {
	return func(b *BraveClient) {
		b.BaseURL = baseURL
	}
}

// WithBraveCountry sets the country code for search results (e.g. "US").
func WithBraveCountry(country string) BraveOption {
	return func(b *BraveClient) {
		b.Country = country
	}
}

// WithBraveLang sets the language code for search results (e.g. "en").
func WithBraveLang(lang string) BraveOption {
	return func(b *BraveClient) {
		b.Lang = lang
	}
}

// NewBraveClient creates a Brave search client. If apiKey is empty, it
// tries the BRAVE_API_KEY environment variable.
func NewBraveClient(apiKey string, opts ...BraveOption) (*BraveClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("BRAVE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("BRAVE_API_KEY not set")
	}

	b := &BraveClient{
		APIKey:     apiKey,
		BaseURL:    "https://api.search.brave.com/res/v1/web/search",
		Country:    "US",
		Lang:       "en",
		httpClient: newHTTPClient(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

type braveResponse struct {
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	PageAge     string `json:"page_age"`
}

// Search executes one Brave search.
func (b *BraveClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > 20 {
		maxResults = 20 // Brave API cap
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", fmt.Sprintf("%d", maxResults))
	if b.Country != "" {
		params.Set("country", b.Country)
	}
	if b.Lang != "" {
		params.Set("search_lang", b.Lang)
	}

	reqURL := fmt.Sprintf("%s?%s", b.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave api returned status: %d", resp.StatusCode)
	}

	var result braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]Result, 0, len(result.Web.Results))
	for _, r := range result.Web.Results {
		published := r.PageAge
		if len(published) > 10 {
			published = published[:10]
		}
		results = append(results, Result{
			URL:           r.URL,
			Title:         r.Title,
			Content:       r.Description,
			PublishedDate: published,
		})
	}
	return results, nil
}
