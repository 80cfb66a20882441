package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// TavilyClient searches the web through the Tavily API.
type TavilyClient struct {
	APIKey  string
	BaseURL string
	Depth   string

	httpClient *http.Client
}

// TavilyOption configures the TavilyClient.
type TavilyOption func(*TavilyClient)

// WithTavilyBaseURL overrides the API endpoint (used in tests).
func WithTavilyBaseURL(baseURL string) TavilyOption {
	return func(t *TavilyClient) {
		t.BaseURL = baseURL
	}
}

// WithTavilyDepth sets the search depth ("basic" or "advanced").
func WithTavilyDepth(depth string) TavilyOption {
	return func(t *TavilyClient) {
		t.Depth = depth
	}
}

// NewTavilyClient creates a Tavily search client.
func NewTavilyClient(apiKey string, opts ...TavilyOption) (*TavilyClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tavily api key not set")
	}

	t := &TavilyClient{
		APIKey:     apiKey,
		BaseURL:    "https://api.tavily.com/search",
		Depth:      "advanced",
		httpClient: newHTTPClient(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
	Query   string         `json:"query"`
}

type tavilyResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}

// Search executes one Tavily search.
func (t *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	requestBody := map[string]any{
		"api_key":             t.APIKey,
		"query":               query,
		"max_results":         maxResults,
		"search_depth":        t.Depth,
		"include_answer":      false,
		"include_raw_content": false,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("tavily api error (status %d): %s", resp.StatusCode, string(body))
	}

	var result tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]Result, 0, len(result.Results))
	for _, r := range result.Results {
		results = append(results, Result{
			URL:           r.URL,
			Title:         r.Title,
			Content:       r.Content,
			PublishedDate: r.PublishedDate,
		})
	}
	return results, nil
}
