package dbx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcodd23/go-db-core/pkg/dbx"
	"github.com/marcodd23/go-db-core/pkg/errorx"
)

func TestTxCoordinatorBeginCommit(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	coordinator := dbx.NewTxCoordinator(conn)

	require.NoError(t, coordinator.Begin(ctx))
	assert.True(t, coordinator.InTx())

	require.NoError(t, coordinator.Commit(ctx))
	assert.False(t, coordinator.InTx())

	assert.Equal(t, 1, conn.begins)
	assert.Equal(t, 1, conn.commits)
	assert.Equal(t, 0, conn.rollbacks)
}

func TestTxCoordinatorRollback(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	coordinator := dbx.NewTxCoordinator(conn)

	require.NoError(t, coordinator.Begin(ctx))
	require.NoError(t, coordinator.Rollback(ctx))

	assert.False(t, coordinator.InTx())
	assert.Equal(t, 1, conn.rollbacks)
	assert.Equal(t, 0, conn.commits)
}

func TestTxCoordinatorRejectsNestedBegin(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	coordinator := dbx.NewTxCoordinator(conn)

	require.NoError(t, coordinator.Begin(ctx))

	err := coordinator.Begin(ctx)

	var invalidState *errorx.InvalidStateError
	require.ErrorAs(t, err, &invalidState)

	// The open transaction is untouched by the rejected Begin.
	assert.True(t, coordinator.InTx())
	assert.Equal(t, 1, conn.begins)
}

func TestTxCoordinatorRejectsCommitWithoutBegin(t *testing.T) {
	ctx := context.Background()
	coordinator := dbx.NewTxCoordinator(newFakeConn())

	var invalidState *errorx.InvalidStateError

	err := coordinator.Commit(ctx)
	require.ErrorAs(t, err, &invalidState)

	err = coordinator.Rollback(ctx)
	require.ErrorAs(t, err, &invalidState)
}

func TestWithTransactionCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()

	err := dbx.WithTransaction(ctx, conn, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, conn.begins)
	assert.Equal(t, 1, conn.commits)
	assert.Equal(t, 0, conn.rollbacks)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()

	err := dbx.WithTransaction(ctx, conn, func(ctx context.Context) error {
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, 1, conn.begins)
	assert.Equal(t, 0, conn.commits)
	assert.Equal(t, 1, conn.rollbacks)
}

func TestWithTransactionReturnsBeginError(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	conn.beginErr = assert.AnError

	err := dbx.WithTransaction(ctx, conn, func(ctx context.Context) error {
		t.Fatal("body must not run when Begin fails")
		return nil
	})
	require.ErrorIs(t, err, assert.AnError)
}

func TestWithTransactionSurfacesCommitFailure(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	conn.commitErr = assert.AnError

	err := dbx.WithTransaction(ctx, conn, func(ctx context.Context) error {
		return nil
	})
	require.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, 1, conn.begins)
	assert.Equal(t, 0, conn.commits)
}

func TestExecutorParticipatesInTransaction(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	conn.lastInsertID = 7
	executor := newTestExecutor(conn)

	err := dbx.WithTransaction(ctx, conn, func(ctx context.Context) error {
		id, err := executor.Insert(ctx, "audit_log", dbx.Values{
			dbx.Set("action", "login"),
		})
		if err != nil {
			return err
		}

		assert.Equal(t, int64(7), id)

		_, err = executor.Update(ctx, "users",
			dbx.Values{dbx.Set("last_seen", "NOW()")},
			dbx.Filter(dbx.Eq("id", 7)))

		return err
	})
	require.NoError(t, err)

	assert.Equal(t, 1, conn.commits)
	require.NotNil(t, conn.handleFor("UPDATE `users` SET `last_seen` = NOW() WHERE `id` = :id"))
}
