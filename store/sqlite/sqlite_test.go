package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/smallnest/deepresearch/research"
	"github.com/smallnest/deepresearch/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func checkpoint(runID, stage string, seq int) *store.RunCheckpoint {
	st := research.NewState("topic")
	st.CurrentStage = stage
	st.ChunksStored = seq * 10
	return &store.RunCheckpoint{RunID: runID, Stage: stage, Seq: seq, State: st}
}

func TestSqliteStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips state", func(t *testing.T) {
		s := newTestStore(t)

		cp := checkpoint("run1", "analyze", 2)
		cp.State.Sources = []research.Source{{URL: "https://a.example", Title: "A"}}
		require.NoError(t, s.Save(ctx, cp))

		latest, err := s.Latest(ctx, "run1")
		require.NoError(t, err)
		assert.Equal(t, "analyze", latest.Stage)
		assert.Equal(t, 20, latest.State.ChunksStored)
		require.Len(t, latest.State.Sources, 1)
		assert.Equal(t, "https://a.example", latest.State.Sources[0].URL)
	})

	t.Run("latest picks highest seq", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.Save(ctx, checkpoint("run1", "search", 1)))
		require.NoError(t, s.Save(ctx, checkpoint("run1", "reflect", 4)))
		require.NoError(t, s.Save(ctx, checkpoint("run1", "analyze", 2)))

		latest, err := s.Latest(ctx, "run1")
		require.NoError(t, err)
		assert.Equal(t, 4, latest.Seq)
	})

	t.Run("list ordered by seq", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.Save(ctx, checkpoint("run1", "analyze", 2)))
		require.NoError(t, s.Save(ctx, checkpoint("run1", "search", 1)))

		cps, err := s.List(ctx, "run1")
		require.NoError(t, err)
		require.Len(t, cps, 2)
		assert.Equal(t, 1, cps[0].Seq)
		assert.Equal(t, 2, cps[1].Seq)
	})

	t.Run("save same id overwrites", func(t *testing.T) {
		s := newTestStore(t)
		cp := checkpoint("run1", "search", 1)
		cp.ID = "fixed"
		require.NoError(t, s.Save(ctx, cp))

		cp2 := checkpoint("run1", "search", 1)
		cp2.ID = "fixed"
		cp2.State.Error = "updated"
		require.NoError(t, s.Save(ctx, cp2))

		cps, err := s.List(ctx, "run1")
		require.NoError(t, err)
		require.Len(t, cps, 1)
		assert.Equal(t, "updated", cps[0].State.Error)
	})

	t.Run("clear removes only the run", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.Save(ctx, checkpoint("run1", "search", 1)))
		require.NoError(t, s.Save(ctx, checkpoint("run2", "search", 1)))

		require.NoError(t, s.Clear(ctx, "run1"))

		_, err := s.Latest(ctx, "run1")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Latest(ctx, "run2")
		assert.NoError(t, err)
	})

	t.Run("unknown run", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Latest(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
