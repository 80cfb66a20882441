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

// AcceptThreshold is the minimum overall score for a report to be
// accepted without another revision pass.
const AcceptThreshold = 7.5

// Evaluation is the reviewer's structured verdict on a draft report.
type Evaluation struct {
	Scores               map[string]float64 `json:"scores"`
	OverallScore         float64            `json:"overall_score"`
	Verdict              string             `json:"verdict"`
	Strengths            []string           `json:"strengths"`
	Weaknesses           []string           `json:"weaknesses"`
	RevisionInstructions string             `json:"revision_instructions"`
}

// Accepted reports whether the overall score clears the acceptance
// threshold. The numeric score is authoritative; the verdict string is
// advisory only and a mismatch is resolved in favor of the score.
func (e Evaluation) Accepted() bool {
	return e.OverallScore >= AcceptThreshold
}

// ParseEvaluation extracts the evaluation object from raw model output.
func ParseEvaluation(s string) (*Evaluation, error) {
	block, err := llm.ExtractJSONObject(s)
	if err != nil {
		return nil, fmt.Errorf("no evaluation object in response: %w", err)
	}
	var eval Evaluation
	if err := json.Unmarshal([]byte(block), &eval); err != nil {
		return nil, fmt.Errorf("malformed evaluation object: %w", err)
	}
	return &eval, nil
}

// ReflectAgent evaluates a draft report and decides whether another
// revision pass is warranted.
type ReflectAgent struct {
	model  llm.Model
	logger log.Logger
}

// NewReflectAgent creates a reflection agent.
func NewReflectAgent(model llm.Model, logger log.Logger) *ReflectAgent {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &ReflectAgent{model: model, logger: logger}
}

// Run executes the reflection stage. Every invocation counts one
// iteration. An unparseable evaluation fails the run rather than guessing
// a verdict. When the iteration cap is reached, the current draft is
// published as final regardless of the verdict.
func (a *ReflectAgent) Run(ctx context.Context, st research.State) research.State {
	if strings.TrimSpace(st.DraftReport) == "" {
		st.Error = "no report available for evaluation"
		return st
	}

	resp, err := a.model.Generate(ctx, reflectionSystem, fmt.Sprintf(reflectionPromptFmt, st.Query(), st.DraftReport))
	if err != nil {
		st.Error = fmt.Sprintf("report evaluation failed: %v", err)
		return st
	}

	eval, err := ParseEvaluation(resp)
	if err != nil {
		st.Error = fmt.Sprintf("failed to parse evaluation: %v", err)
		return st
	}

	st.QualityScore = eval.OverallScore
	st.NeedsRevision = !eval.Accepted()
	st.RevisionFeedback = eval.RevisionInstructions
	st.IterationCount++

	a.logger.Info("report scored %.1f (iteration %d/%d)", eval.OverallScore, st.IterationCount, st.MaxIterations)

	if st.NeedsRevision && st.IterationCount >= st.MaxIterations {
		a.logger.Warn("iteration cap reached, accepting current draft")
		st.NeedsRevision = false
	}
	if !st.NeedsRevision {
		st.FinalReport = st.DraftReport
	}
	return st
}
