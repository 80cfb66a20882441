package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/smallnest/deepresearch/log"
	"github.com/smallnest/deepresearch/research"
)

func evaluationJSON(overall float64, verdict, feedback string) string {
	return fmt.Sprintf(`{
		"scores": {"completeness": 8, "accuracy": 7, "recency": 6, "critical_analysis": 7, "practical_value": 8, "structure": 9},
		"overall_score": %g,
		"verdict": %q,
		"strengths": ["thorough"],
		"weaknesses": ["dated sources"],
		"revision_instructions": %q
	}`, overall, verdict, feedback)
}

func draftState(query string) research.State {
	st := research.NewState(query)
	st.DraftReport = "# Draft\n\nSome findings [1]."
	return st
}

func TestEvaluationAccepted(t *testing.T) {
	assert.True(t, Evaluation{OverallScore: 7.5}.Accepted())
	assert.True(t, Evaluation{OverallScore: 9.1}.Accepted())
	assert.False(t, Evaluation{OverallScore: 7.49}.Accepted())
	assert.False(t, Evaluation{OverallScore: 0}.Accepted())
}

func TestParseEvaluation(t *testing.T) {
	t.Run("fenced with prose", func(t *testing.T) {
		eval, err := ParseEvaluation("Here is my review:\n```json\n" + evaluationJSON(8.2, "ACCEPT", "") + "\n```")
		require.NoError(t, err)
		assert.Equal(t, 8.2, eval.OverallScore)
		assert.Equal(t, "ACCEPT", eval.Verdict)
	})

	t.Run("no json", func(t *testing.T) {
		_, err := ParseEvaluation("Looks pretty good overall!")
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseEvaluation(`{"overall_score": "high"}`)
		assert.Error(t, err)
	})
}

func TestReflectAgentRun(t *testing.T) {
	ctx := context.Background()
	logger := &log.NoOpLogger{}

	t.Run("accepts at threshold", func(t *testing.T) {
		a := NewReflectAgent(staticModel(evaluationJSON(7.5, "ACCEPT", ""), nil), logger)
		st := a.Run(ctx, draftState("q"))

		require.False(t, st.Failed(), st.Error)
		assert.False(t, st.NeedsRevision)
		assert.Equal(t, 7.5, st.QualityScore)
		assert.Equal(t, 1, st.IterationCount)
		assert.Equal(t, st.DraftReport, st.FinalReport)
	})

	t.Run("revises just below threshold", func(t *testing.T) {
		a := NewReflectAgent(staticModel(evaluationJSON(7.49, "ACCEPT", "add more recent sources"), nil), logger)
		st := a.Run(ctx, draftState("q"))

		require.False(t, st.Failed(), st.Error)
		assert.True(t, st.NeedsRevision, "numeric score outranks the verdict string")
		assert.Equal(t, "add more recent sources", st.RevisionFeedback)
		assert.Empty(t, st.FinalReport)
	})

	t.Run("score outranks REVISE verdict too", func(t *testing.T) {
		a := NewReflectAgent(staticModel(evaluationJSON(9.0, "REVISE", "nitpicks"), nil), logger)
		st := a.Run(ctx, draftState("q"))

		require.False(t, st.Failed(), st.Error)
		assert.False(t, st.NeedsRevision)
	})

	t.Run("iteration cap publishes the draft", func(t *testing.T) {
		a := NewReflectAgent(staticModel(evaluationJSON(4.0, "REVISE", "rewrite everything"), nil), logger)
		st := draftState("q")
		st.IterationCount = st.MaxIterations - 1

		out := a.Run(ctx, st)
		require.False(t, out.Failed(), out.Error)
		assert.Equal(t, st.MaxIterations, out.IterationCount)
		assert.False(t, out.NeedsRevision)
		assert.Equal(t, out.DraftReport, out.FinalReport)
	})

	t.Run("model error fails the run", func(t *testing.T) {
		a := NewReflectAgent(staticModel("", errors.New("timeout")), logger)
		st := a.Run(ctx, draftState("q"))
		assert.True(t, st.Failed())
	})

	t.Run("unparseable evaluation fails closed", func(t *testing.T) {
		a := NewReflectAgent(staticModel("It's great, ship it!", nil), logger)
		st := draftState("q")
		st.QualityScore = 6.0 // from a previous iteration

		out := a.Run(ctx, st)
		assert.True(t, out.Failed())
		assert.Contains(t, out.Error, "failed to parse evaluation")
		assert.False(t, out.NeedsRevision)
		assert.Empty(t, out.FinalReport)
		assert.Equal(t, 6.0, out.QualityScore, "score unchanged on parse failure")
	})

	t.Run("missing draft fails", func(t *testing.T) {
		a := NewReflectAgent(staticModel(evaluationJSON(8, "ACCEPT", ""), nil), logger)
		st := a.Run(ctx, research.NewState("q"))
		assert.True(t, st.Failed())
	})
}
