package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/smallnest/deepresearch/log"
	"github.com/smallnest/deepresearch/research"
	"github.com/smallnest/deepresearch/store"
)

// recordingCheckpoints captures every saved checkpoint.
type recordingCheckpoints struct {
	saved []store.RunCheckpoint
}

func (r *recordingCheckpoints) Save(_ context.Context, cp *store.RunCheckpoint) error {
	r.saved = append(r.saved, *cp)
	return nil
}

func (r *recordingCheckpoints) Latest(context.Context, string) (*store.RunCheckpoint, error) {
	return nil, store.ErrNotFound
}

func (r *recordingCheckpoints) List(context.Context, string) ([]*store.RunCheckpoint, error) {
	return nil, nil
}

func (r *recordingCheckpoints) Clear(context.Context, string) error { return nil }
func (r *recordingCheckpoints) Close() error                        { return nil }

func stageRecorder(trace *[]string, name string, mutate func(research.State) research.State) StageRunner {
	return StageRunnerFunc(func(_ context.Context, st research.State) research.State {
		*trace = append(*trace, name)
		if mutate != nil {
			return mutate(st)
		}
		return st
	})
}

func passThrough(name string, trace *[]string) StageRunner {
	return stageRecorder(trace, name, nil)
}

func testConfig(trace *[]string, reflect StageRunner) Config {
	return Config{
		Search: stageRecorder(trace, "search", func(st research.State) research.State {
			st.Sources = []research.Source{{URL: "https://a.example", Title: "A"}}
			return st
		}),
		Analyze: stageRecorder(trace, "analyze", func(st research.State) research.State {
			st.ChunksStored = 4
			st.AnalysisComplete = true
			return st
		}),
		Synthesize: stageRecorder(trace, "synthesize", func(st research.State) research.State {
			st.DraftReport = "draft"
			return st
		}),
		Reflect: reflect,
		Logger:  &log.NoOpLogger{},
	}
}

func TestEngineRun(t *testing.T) {
	ctx := context.Background()

	t.Run("single pass when accepted", func(t *testing.T) {
		var trace []string
		reflect := stageRecorder(&trace, "reflect", func(st research.State) research.State {
			st.IterationCount++
			st.QualityScore = 8.5
			st.NeedsRevision = false
			st.FinalReport = st.DraftReport
			return st
		})
		cfg := testConfig(&trace, reflect)
		checkpoints := &recordingCheckpoints{}
		cfg.Checkpoints = checkpoints

		engine, err := New(cfg)
		require.NoError(t, err)

		st, err := engine.Run(ctx, "topic")
		require.NoError(t, err)
		require.False(t, st.Failed(), st.Error)

		assert.Equal(t, []string{"search", "analyze", "synthesize", "reflect"}, trace)
		assert.Equal(t, "draft", st.FinalReport)
		assert.Equal(t, string(StageDone), st.CurrentStage)

		require.Len(t, checkpoints.saved, 4)
		assert.Equal(t, "search", checkpoints.saved[0].Stage)
		assert.Equal(t, 1, checkpoints.saved[0].Seq)
		assert.Equal(t, "reflect", checkpoints.saved[3].Stage)
		assert.Equal(t, 4, checkpoints.saved[3].Seq)
		// All checkpoints belong to the same run.
		assert.Equal(t, checkpoints.saved[0].RunID, checkpoints.saved[3].RunID)
	})

	t.Run("revise loop bounded by iteration budget", func(t *testing.T) {
		var trace []string
		reflect := stageRecorder(&trace, "reflect", func(st research.State) research.State {
			st.IterationCount++
			st.NeedsRevision = true // reviewer never satisfied
			return st
		})
		cfg := testConfig(&trace, reflect)
		cfg.MaxIterations = 3

		engine, err := New(cfg)
		require.NoError(t, err)

		st, err := engine.Run(ctx, "topic")
		require.NoError(t, err)

		synthCount := 0
		for _, name := range trace {
			if name == "synthesize" {
				synthCount++
			}
		}
		assert.Equal(t, 3, synthCount, "exactly max_iterations synthesis attempts")
		assert.Equal(t, 3, st.IterationCount)
		// The engine publishes the last draft even though the reviewer
		// never accepted it.
		assert.Equal(t, "draft", st.FinalReport)
	})

	t.Run("stage error stops the run", func(t *testing.T) {
		var trace []string
		cfg := testConfig(&trace, passThrough("reflect", &trace))
		cfg.Search = stageRecorder(&trace, "search", func(st research.State) research.State {
			st.Error = "no sources found for any search query"
			return st
		})

		engine, err := New(cfg)
		require.NoError(t, err)

		st, err := engine.Run(ctx, "topic")
		require.NoError(t, err)
		assert.True(t, st.Failed())
		assert.Equal(t, []string{"search"}, trace, "later stages never invoked")
		assert.Empty(t, st.FinalReport)
	})

	t.Run("clarify runs first when configured", func(t *testing.T) {
		var trace []string
		reflect := stageRecorder(&trace, "reflect", func(st research.State) research.State {
			st.IterationCount++
			st.FinalReport = st.DraftReport
			return st
		})
		cfg := testConfig(&trace, reflect)
		cfg.Clarify = stageRecorder(&trace, "clarify", func(st research.State) research.State {
			st.RefinedQuery = "refined"
			st.ClarificationComplete = true
			return st
		})

		engine, err := New(cfg)
		require.NoError(t, err)

		st, err := engine.Run(ctx, "topic")
		require.NoError(t, err)
		assert.Equal(t, []string{"clarify", "search", "analyze", "synthesize", "reflect"}, trace)
		assert.Equal(t, "refined", st.RefinedQuery)
	})

	t.Run("blank query rejected", func(t *testing.T) {
		var trace []string
		engine, err := New(testConfig(&trace, passThrough("reflect", &trace)))
		require.NoError(t, err)

		_, err = engine.Run(ctx, "   ")
		assert.ErrorIs(t, err, ErrNoQuery)
		assert.Empty(t, trace)
	})

	t.Run("cancelled context stops between stages", func(t *testing.T) {
		var trace []string
		engine, err := New(testConfig(&trace, passThrough("reflect", &trace)))
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		st, err := engine.Run(cancelled, "topic")
		assert.Error(t, err)
		assert.True(t, st.Failed())
		assert.Empty(t, trace)
	})

	t.Run("missing required runner rejected", func(t *testing.T) {
		var trace []string
		cfg := testConfig(&trace, passThrough("reflect", &trace))
		cfg.Synthesize = nil
		_, err := New(cfg)
		assert.Error(t, err)
	})
}
