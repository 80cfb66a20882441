package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/smallnest/deepresearch/research"
	"github.com/smallnest/deepresearch/store"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewWithPool(mock), mock
}

func stateJSON(t *testing.T, st research.State) []byte {
	t.Helper()
	data, err := json.Marshal(st)
	require.NoError(t, err)
	return data
}

func TestPostgresStoreSave(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO run_checkpoints").
		WithArgs("cp1", "run1", "search", 1, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	cp := &store.RunCheckpoint{
		ID:    "cp1",
		RunID: "run1",
		Stage: "search",
		Seq:   1,
		State: research.NewState("topic"),
	}
	require.NoError(t, s.Save(ctx, cp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreLatest(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		s, mock := newMockStore(t)

		st := research.NewState("topic")
		st.CurrentStage = "reflect"
		rows := pgxmock.NewRows([]string{"id", "run_id", "stage", "seq", "state", "created_at"}).
			AddRow("cp4", "run1", "reflect", 4, stateJSON(t, st), time.Now())

		mock.ExpectQuery("SELECT id, run_id, stage, seq, state, created_at").
			WithArgs("run1").
			WillReturnRows(rows)

		latest, err := s.Latest(ctx, "run1")
		require.NoError(t, err)
		assert.Equal(t, "cp4", latest.ID)
		assert.Equal(t, 4, latest.Seq)
		assert.Equal(t, "topic", latest.State.OriginalQuery)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery("SELECT id, run_id, stage, seq, state, created_at").
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := s.Latest(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStoreList(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	st := research.NewState("topic")
	rows := pgxmock.NewRows([]string{"id", "run_id", "stage", "seq", "state", "created_at"}).
		AddRow("cp1", "run1", "search", 1, stateJSON(t, st), time.Now()).
		AddRow("cp2", "run1", "analyze", 2, stateJSON(t, st), time.Now())

	mock.ExpectQuery("SELECT id, run_id, stage, seq, state, created_at").
		WithArgs("run1").
		WillReturnRows(rows)

	cps, err := s.List(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, cps, 2)
	assert.Equal(t, "search", cps[0].Stage)
	assert.Equal(t, "analyze", cps[1].Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreClear(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM run_checkpoints").
		WithArgs("run1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	require.NoError(t, s.Clear(ctx, "run1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
