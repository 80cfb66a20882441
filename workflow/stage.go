// Package workflow drives a research run through its stages. The stage
// machine is an explicit enum with a pure transition function, so routing
// is testable without any collaborator in place.
package workflow

import "github.com/smallnest/deepresearch/research"

// Stage identifies one step of the research pipeline.
type Stage string

const (
	StageClarify    Stage = "clarify"
	StageSearch     Stage = "search"
	StageAnalyze    Stage = "analyze"
	StageSynthesize Stage = "synthesize"
	StageReflect    Stage = "reflect"
	StageDone       Stage = "done"
)

// Next returns the stage that follows current given the state the stage
// just produced. A recorded error always routes to done; the only
// conditional edge is reflect, which loops back to synthesize while the
// reviewer wants a revision and the iteration budget holds.
func Next(current Stage, st research.State) Stage {
	if st.Failed() {
		return StageDone
	}

	switch current {
	case StageClarify:
		return StageSearch
	case StageSearch:
		return StageAnalyze
	case StageAnalyze:
		return StageSynthesize
	case StageSynthesize:
		return StageReflect
	case StageReflect:
		if st.NeedsRevision && st.IterationCount < st.MaxIterations {
			return StageSynthesize
		}
		return StageDone
	default:
		return StageDone
	}
}
