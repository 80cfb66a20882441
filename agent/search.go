package agent

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/smallnest/deepresearch/llm"
	"github.com/smallnest/deepresearch/log"
	"github.com/smallnest/deepresearch/research"
	"github.com/smallnest/deepresearch/websearch"
)

const (
	// DefaultSearchWorkers bounds how many queries run concurrently.
	DefaultSearchWorkers = 5
	// DefaultMaxResultsPerQuery is passed to the search client per query.
	DefaultMaxResultsPerQuery = 20
	// maxSnippetLen truncates stored snippets; the full text comes later
	// from the fetcher, the snippet is only for review display.
	maxSnippetLen = 500
)

// SearchAgent expands the research question into multiple queries, runs
// them concurrently against the web-search client, and merges the hits
// into a deduplicated, classified source list.
type SearchAgent struct {
	client     websearch.Client
	expander   *QueryExpander
	numQueries int
	maxResults int
	workers    int
	logger     log.Logger
}

// SearchOption configures the SearchAgent.
type SearchOption func(*SearchAgent)

// WithNumQueries sets how many queries expansion generates.
func WithNumQueries(n int) SearchOption {
	return func(a *SearchAgent) {
		if n > 0 {
			a.numQueries = n
		}
	}
}

// WithMaxResultsPerQuery sets the per-query result cap.
func WithMaxResultsPerQuery(n int) SearchOption {
	return func(a *SearchAgent) {
		if n > 0 {
			a.maxResults = n
		}
	}
}

// WithSearchWorkers sets the concurrent query limit.
func WithSearchWorkers(n int) SearchOption {
	return func(a *SearchAgent) {
		if n > 0 {
			a.workers = n
		}
	}
}

// NewSearchAgent creates a search agent.
func NewSearchAgent(client websearch.Client, model llm.Model, logger log.Logger, opts ...SearchOption) *SearchAgent {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	a := &SearchAgent{
		client:     client,
		expander:   NewQueryExpander(model, logger),
		numQueries: DefaultNumQueries,
		maxResults: DefaultMaxResultsPerQuery,
		workers:    DefaultSearchWorkers,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes the search stage.
func (a *SearchAgent) Run(ctx context.Context, st research.State) research.State {
	query := strings.TrimSpace(st.Query())
	if query == "" {
		st.Error = "no query provided for search"
		return st
	}

	queries := a.expander.Expand(ctx, query, a.numQueries)
	st.SearchQueries = queries
	a.logger.Info("searching with %d queries", len(queries))

	perQuery := a.searchAll(ctx, queries)

	sources, diversity := MergeResults(perQuery)
	st.Sources = sources
	st.SourceDiversity = diversity

	if len(sources) == 0 {
		st.Error = "no sources found for any search query"
		return st
	}

	a.logger.Info("found %d unique sources across %d queries", len(sources), len(queries))
	return st
}

// searchAll runs every query through a bounded worker pool. The result
// slice is indexed by query position, so merge order is deterministic
// regardless of completion order. A failed query contributes an empty
// slice and never aborts its siblings.
func (a *SearchAgent) searchAll(ctx context.Context, queries []string) [][]websearch.Result {
	results := make([][]websearch.Result, len(queries))

	type job struct {
		idx   int
		query string
	}
	jobs := make(chan job)

	var wg sync.WaitGroup
	workers := a.workers
	if workers > len(queries) {
		workers = len(queries)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				hits, err := a.client.Search(ctx, j.query, a.maxResults)
				if err != nil {
					a.logger.Warn("search failed for %q: %v", j.query, err)
					continue
				}
				results[j.idx] = hits
			}
		}()
	}

	for i, q := range queries {
		jobs <- job{idx: i, query: q}
	}
	close(jobs)
	wg.Wait()

	return results
}

// MergeResults flattens per-query results in submission order, drops
// duplicate URLs (first occurrence wins), classifies each source, and
// tallies the source-type histogram. Results with an empty URL are
// skipped.
func MergeResults(perQuery [][]websearch.Result) ([]research.Source, map[string]int) {
	seen := make(map[string]bool)
	sources := make([]research.Source, 0)
	diversity := make(map[string]int)

	for _, hits := range perQuery {
		for _, hit := range hits {
			if hit.URL == "" || seen[hit.URL] {
				continue
			}
			seen[hit.URL] = true

			title := hit.Title
			if title == "" {
				title = "Unknown"
			}
			snippet := truncateSnippet(hit.Content, maxSnippetLen)

			srcType := research.ClassifySource(hit.URL)
			sources = append(sources, research.Source{
				URL:           hit.URL,
				Title:         title,
				Snippet:       snippet,
				SourceType:    srcType,
				Publication:   research.ExtractPublication(hit.URL),
				PublishedDate: hit.PublishedDate,
			})
			diversity[string(srcType)]++
		}
	}

	return sources, diversity
}

// truncateSnippet cuts s to at most maxLen bytes without splitting a rune.
func truncateSnippet(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
