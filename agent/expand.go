// Package agent implements the research stages: clarification, search,
// analysis, synthesis, and reflection. Each agent holds its collaborators
// and exposes Run(ctx, state) -> state; domain failures are recorded in
// state.Error rather than returned, so the workflow engine can route them
// uniformly.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smallnest/deepresearch/llm"
	"github.com/smallnest/deepresearch/log"
)

// DefaultNumQueries is how many search queries expansion aims for.
const DefaultNumQueries = 5

// QueryExpander turns one research question into several search queries
// covering different perspectives (academic, news, industry, technical,
// critical).
type QueryExpander struct {
	model  llm.Model
	logger log.Logger
}

// NewQueryExpander creates a query expander backed by the given model.
func NewQueryExpander(model llm.Model, logger log.Logger) *QueryExpander {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &QueryExpander{model: model, logger: logger}
}

// Expand generates up to n search queries for the question. It never
// fails: when the model errors or returns unparseable output, the original
// question is the single query.
func (e *QueryExpander) Expand(ctx context.Context, question string, n int) []string {
	if n < 1 {
		n = DefaultNumQueries
	}

	resp, err := e.model.Generate(ctx, expansionSystem, fmt.Sprintf(expansionPromptFmt, n, question))
	if err != nil {
		e.logger.Warn("query expansion failed, using original question: %v", err)
		return []string{question}
	}

	queries := parseQueryList(resp, n)
	if len(queries) == 0 {
		e.logger.Warn("query expansion returned no usable queries, using original question")
		return []string{question}
	}
	return queries
}

// parseQueryList extracts a JSON string array from model output and keeps
// at most n non-empty entries.
func parseQueryList(resp string, n int) []string {
	block, err := llm.ExtractJSONArray(resp)
	if err != nil {
		return nil
	}

	var raw []string
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil
	}

	queries := make([]string, 0, len(raw))
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		queries = append(queries, q)
		if len(queries) == n {
			break
		}
	}
	return queries
}
