// Package fetch downloads source documents and extracts readable text.
// A fetch failure means "skip this source", never a fatal error for the
// run.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// Page is the extracted content of a fetched document.
type Page struct {
	Title string
	Text  string
}

// Loader fetches a URL and extracts its text content.
type Loader interface {
	Load(ctx context.Context, url string) (*Page, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(ctx context.Context, url string) (*Page, error)

// Load calls the underlying function.
func (f LoaderFunc) Load(ctx context.Context, url string) (*Page, error) {
	return f(ctx, url)
}

// maxBodyBytes caps how much of a response we read.
const maxBodyBytes = 1 << 20

// HTTPLoader fetches HTML pages over HTTP, sanitizes the markup, and
// extracts the visible text.
type HTTPLoader struct {
	httpClient *http.Client
	userAgent  string
	policy     *bluemonday.Policy
}

// HTTPLoaderOption configures the HTTPLoader.
type HTTPLoaderOption func(*HTTPLoader)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) HTTPLoaderOption {
	return func(l *HTTPLoader) {
		l.httpClient = client
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) HTTPLoaderOption {
	return func(l *HTTPLoader) {
		l.userAgent = userAgent
	}
}

// NewHTTPLoader creates a loader with a 30 second timeout.
func NewHTTPLoader(opts ...HTTPLoaderOption) *HTTPLoader {
	l := &HTTPLoader{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "Mozilla/5.0 (compatible; deepresearch/1.0)",
		policy:     bluemonday.UGCPolicy(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches the URL and returns its title and readable text.
func (l *HTTPLoader) Load(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}

	return l.extract(body)
}

func (l *HTTPLoader) extract(raw []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	bodyHTML, err := doc.Find("body").Html()
	if err != nil || bodyHTML == "" {
		bodyHTML = string(raw)
	}

	// bluemonday drops scripts, styles, and event handlers wholesale, so
	// the text extraction below only sees real content.
	clean := l.policy.Sanitize(bodyHTML)

	cleanDoc, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		return nil, fmt.Errorf("failed to parse sanitized HTML: %w", err)
	}

	text := normalizeWhitespace(cleanDoc.Text())
	if text == "" {
		return nil, fmt.Errorf("no text content extracted")
	}

	return &Page{Title: title, Text: text}, nil
}

var (
	spaceRun   = regexp.MustCompile(`[ \t]+`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

// normalizeWhitespace collapses runs of spaces and blank lines while
// keeping paragraph breaks for the splitter.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
	}
	joined := strings.Join(lines, "\n")
	joined = newlineRun.ReplaceAllString(joined, "\n\n")
	return strings.TrimSpace(joined)
}
