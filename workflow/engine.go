package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/deepresearch/log"
	"github.com/smallnest/deepresearch/research"
	"github.com/smallnest/deepresearch/store"
)

// ErrNoQuery is returned when Run is called with a blank query.
var ErrNoQuery = errors.New("no research query provided")

// StageRunner executes one pipeline stage. Implementations record domain
// failures in the returned state's Error field instead of panicking or
// returning an error, so the transition function can route them.
type StageRunner interface {
	Run(ctx context.Context, st research.State) research.State
}

// StageRunnerFunc adapts a plain function to the StageRunner interface.
type StageRunnerFunc func(ctx context.Context, st research.State) research.State

// Run calls the underlying function.
func (f StageRunnerFunc) Run(ctx context.Context, st research.State) research.State {
	return f(ctx, st)
}

// Config wires the engine's collaborators. Search, Analyze, Synthesize,
// and Reflect are required; Clarify and Checkpoints are optional.
type Config struct {
	Clarify    StageRunner
	Search     StageRunner
	Analyze    StageRunner
	Synthesize StageRunner
	Reflect    StageRunner

	Checkpoints   store.CheckpointStore
	MaxIterations int
	Logger        log.Logger
}

// Engine runs the research pipeline: clarify, search, analyze, then a
// synthesize/reflect loop bounded by the iteration budget.
type Engine struct {
	clarify    StageRunner
	search     StageRunner
	analyze    StageRunner
	synthesize StageRunner
	reflect    StageRunner

	checkpoints   store.CheckpointStore
	maxIterations int
	logger        log.Logger
}

// New creates an engine from the config.
func New(cfg Config) (*Engine, error) {
	for _, r := range []struct {
		name   string
		runner StageRunner
	}{
		{"search", cfg.Search},
		{"analyze", cfg.Analyze},
		{"synthesize", cfg.Synthesize},
		{"reflect", cfg.Reflect},
	} {
		if r.runner == nil {
			return nil, fmt.Errorf("missing required stage runner: %s", r.name)
		}
	}

	maxIterations := cfg.MaxIterations
	if maxIterations < 1 {
		maxIterations = research.DefaultMaxIterations
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}

	return &Engine{
		clarify:       cfg.Clarify,
		search:        cfg.Search,
		analyze:       cfg.Analyze,
		synthesize:    cfg.Synthesize,
		reflect:       cfg.Reflect,
		checkpoints:   cfg.Checkpoints,
		maxIterations: maxIterations,
		logger:        logger,
	}, nil
}

// Run executes a full research run for the query and returns the final
// state. Domain failures do not produce an error: they are recorded in the
// state's Error field and the state is returned for inspection. The error
// return covers only unusable input and context cancellation.
func (e *Engine) Run(ctx context.Context, query string) (research.State, error) {
	if strings.TrimSpace(query) == "" {
		return research.State{}, ErrNoQuery
	}

	st := research.NewState(query)
	st.MaxIterations = e.maxIterations

	runID := uuid.NewString()
	e.logger.Info("starting research run %s: %s", runID, query)

	stage := StageSearch
	if e.clarify != nil {
		stage = StageClarify
	}

	seq := 0
	for stage != StageDone {
		if err := ctx.Err(); err != nil {
			st.Error = fmt.Sprintf("run cancelled: %v", err)
			st.CurrentStage = string(StageDone)
			return st, err
		}

		e.logger.Debug("run %s: entering stage %s", runID, stage)
		st = e.runnerFor(stage).Run(ctx, st)
		st.CurrentStage = string(stage)

		seq++
		e.saveCheckpoint(ctx, runID, stage, st, seq)

		stage = Next(stage, st)
	}
	st.CurrentStage = string(StageDone)

	if st.Failed() {
		e.logger.Error("run %s failed: %s", runID, st.Error)
		return st, nil
	}
	if st.FinalReport == "" {
		st.FinalReport = st.DraftReport
	}
	e.logger.Info("run %s finished: %d sources, %d chunks, score %.1f",
		runID, len(st.Sources), st.ChunksStored, st.QualityScore)
	return st, nil
}

func (e *Engine) runnerFor(stage Stage) StageRunner {
	switch stage {
	case StageClarify:
		return e.clarify
	case StageSearch:
		return e.search
	case StageAnalyze:
		return e.analyze
	case StageSynthesize:
		return e.synthesize
	case StageReflect:
		return e.reflect
	default:
		return StageRunnerFunc(func(_ context.Context, st research.State) research.State {
			st.Error = fmt.Sprintf("no runner for stage %q", stage)
			return st
		})
	}
}

// saveCheckpoint persists the post-stage state. Checkpointing is
// best-effort: a store failure is logged and the run continues.
func (e *Engine) saveCheckpoint(ctx context.Context, runID string, stage Stage, st research.State, seq int) {
	if e.checkpoints == nil {
		return
	}
	cp := &store.RunCheckpoint{
		ID:        uuid.NewString(),
		RunID:     runID,
		Stage:     string(stage),
		Seq:       seq,
		State:     st,
		CreatedAt: time.Now(),
	}
	if err := e.checkpoints.Save(ctx, cp); err != nil {
		e.logger.Warn("run %s: failed to save checkpoint after %s: %v", runID, stage, err)
	}
}
