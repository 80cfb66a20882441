package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smallnest/deepresearch/llm"
	"github.com/smallnest/deepresearch/log"
	"github.com/smallnest/deepresearch/research"
)

// maxClarificationQuestions caps how many questions reach the user.
const maxClarificationQuestions = 3

// Responder collects user answers to clarification questions. A nil
// Responder means the run is non-interactive and clarification resolves
// with the suggested refinement.
type Responder func(questions []string) []string

// ClarificationAnalysis is the model's take on whether a query needs
// follow-up questions before research starts.
type ClarificationAnalysis struct {
	NeedsClarification    bool     `json:"needs_clarification"`
	Analysis              string   `json:"analysis"`
	Questions             []string `json:"questions"`
	SuggestedRefinedQuery string   `json:"suggested_refined_query"`
}

// ClarifyAgent refines vague research queries, optionally through a
// question-and-answer round with the user. Clarification is best-effort:
// any model failure falls back to researching the original query, never
// to aborting the run.
type ClarifyAgent struct {
	model     llm.Model
	responder Responder
	logger    log.Logger
}

// ClarifyOption configures the ClarifyAgent.
type ClarifyOption func(*ClarifyAgent)

// WithResponder installs the callback that collects user answers.
func WithResponder(r Responder) ClarifyOption {
	return func(a *ClarifyAgent) {
		a.responder = r
	}
}

// NewClarifyAgent creates a clarification agent.
func NewClarifyAgent(model llm.Model, logger log.Logger, opts ...ClarifyOption) *ClarifyAgent {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	a := &ClarifyAgent{model: model, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze asks the model whether the query needs clarification.
func (a *ClarifyAgent) Analyze(ctx context.Context, query string) (*ClarificationAnalysis, error) {
	resp, err := a.model.Generate(ctx, clarificationSystem, fmt.Sprintf(clarificationPromptFmt, query))
	if err != nil {
		return nil, fmt.Errorf("clarification analysis failed: %w", err)
	}

	block, err := llm.ExtractJSONObject(resp)
	if err != nil {
		return nil, fmt.Errorf("no analysis object in response: %w", err)
	}
	var analysis ClarificationAnalysis
	if err := json.Unmarshal([]byte(block), &analysis); err != nil {
		return nil, fmt.Errorf("malformed analysis object: %w", err)
	}
	if len(analysis.Questions) > maxClarificationQuestions {
		analysis.Questions = analysis.Questions[:maxClarificationQuestions]
	}
	return &analysis, nil
}

// Refine folds the question-and-answer round into a single refined query.
// On any failure the original query is returned unchanged.
func (a *ClarifyAgent) Refine(ctx context.Context, original string, questions, responses []string) string {
	var qa strings.Builder
	for i, q := range questions {
		answer := ""
		if i < len(responses) {
			answer = responses[i]
		}
		fmt.Fprintf(&qa, "Q%d: %s\nA%d: %s\n", i+1, q, i+1, answer)
	}

	refined, err := a.model.Generate(ctx, refinementSystem, fmt.Sprintf(refinementPromptFmt, original, qa.String()))
	if err != nil {
		a.logger.Warn("query refinement failed, keeping original: %v", err)
		return original
	}
	refined = strings.TrimSpace(refined)
	if refined == "" {
		return original
	}
	return refined
}

// Run executes the clarification stage. It always completes clarification
// and always leaves a usable query behind, so the workflow makes forward
// progress no matter what the model or the user does.
func (a *ClarifyAgent) Run(ctx context.Context, st research.State) research.State {
	query := strings.TrimSpace(st.OriginalQuery)
	if query == "" {
		st.Error = "no query provided"
		return st
	}

	analysis, err := a.Analyze(ctx, query)
	if err != nil {
		a.logger.Warn("skipping clarification: %v", err)
		st.RefinedQuery = query
		st.ClarificationComplete = true
		return st
	}

	if !analysis.NeedsClarification || len(analysis.Questions) == 0 || a.responder == nil {
		st.RefinedQuery = pickRefined(analysis.SuggestedRefinedQuery, query)
		st.ClarificationComplete = true
		return st
	}

	st.ClarificationQuestions = analysis.Questions
	st.UserResponses = a.responder(analysis.Questions)
	st.RefinedQuery = a.Refine(ctx, query, st.ClarificationQuestions, st.UserResponses)
	st.ClarificationComplete = true
	a.logger.Info("refined query: %s", st.RefinedQuery)
	return st
}

func pickRefined(suggested, original string) string {
	suggested = strings.TrimSpace(suggested)
	if suggested != "" {
		return suggested
	}
	return original
}
