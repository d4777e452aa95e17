package dbx_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcodd23/go-db-core/pkg/dbx"
)

func TestGetOrPreparePreparesOncePerText(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	cache := dbx.NewStatementCache()

	first, err := cache.GetOrPrepare(ctx, conn, "SELECT * FROM users WHERE id = :id")
	require.NoError(t, err)

	second, err := cache.GetOrPrepare(ctx, conn, "SELECT * FROM users WHERE id = :id")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, conn.prepareCount["SELECT * FROM users WHERE id = :id"])
	assert.Equal(t, 1, cache.Len())
}

func TestGetOrPrepareDistinguishesTexts(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	cache := dbx.NewStatementCache()

	_, err := cache.GetOrPrepare(ctx, conn, "SELECT * FROM users")
	require.NoError(t, err)

	// Byte-identical text is the key; even whitespace makes a new entry.
	_, err = cache.GetOrPrepare(ctx, conn, "SELECT *  FROM users")
	require.NoError(t, err)

	assert.Equal(t, 2, cache.Len())
}

func TestGetOrPrepareDoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	conn.prepareErr = assert.AnError
	cache := dbx.NewStatementCache()

	_, err := cache.GetOrPrepare(ctx, conn, "SELECT broken")
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	// Once the connection recovers the text prepares normally.
	conn.prepareErr = nil

	_, err = cache.GetOrPrepare(ctx, conn, "SELECT broken")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
}

func TestConcurrentGetOrPrepareNeverDoublePrepares(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	cache := dbx.NewStatementCache()

	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := cache.GetOrPrepare(ctx, conn, "SELECT * FROM t WHERE a = :a")
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, conn.prepareCount["SELECT * FROM t WHERE a = :a"])
}

func TestGetOrPrepareKeysBySession(t *testing.T) {
	ctx := context.Background()
	connA := newFakeConn()
	connB := newFakeConn()
	cache := dbx.NewStatementCache()

	first, err := cache.GetOrPrepare(ctx, connA, "SELECT 1")
	require.NoError(t, err)

	// The same text on another connection prepares again on that session
	// instead of serving connA's handle.
	second, err := cache.GetOrPrepare(ctx, connB, "SELECT 1")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 1, connA.prepareCount["SELECT 1"])
	assert.Equal(t, 1, connB.prepareCount["SELECT 1"])
	assert.Equal(t, 2, cache.Len())
}

func TestSharedCacheExecutesOnTheCallersSession(t *testing.T) {
	ctx := context.Background()
	connA := newFakeConn()
	connB := newFakeConn()

	// One process-wide cache, one executor per connection.
	cache := dbx.NewStatementCache()
	execA := dbx.NewExecutor(connA, cache, dbx.NewEnumCache())
	execB := dbx.NewExecutor(connB, cache, dbx.NewEnumCache())

	_, err := execA.Delete(ctx, "users", dbx.Filter(dbx.Eq("id", 1)))
	require.NoError(t, err)

	_, err = execB.Delete(ctx, "users", dbx.Filter(dbx.Eq("id", 2)))
	require.NoError(t, err)

	wantSQL := "DELETE FROM `users` WHERE `id` = :id"

	handleA := connA.handleFor(wantSQL)
	handleB := connB.handleFor(wantSQL)
	require.NotNil(t, handleA)
	require.NotNil(t, handleB)

	// Each session ran exactly its own statement.
	require.Len(t, handleA.execParams, 1)
	require.Len(t, handleB.execParams, 1)
	assert.Equal(t, map[string]any{":id": 1}, handleA.execParams[0])
	assert.Equal(t, map[string]any{":id": 2}, handleB.execParams[0])
}

func TestResetAndClose(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	cache := dbx.NewStatementCache()

	_, err := cache.GetOrPrepare(ctx, conn, "SELECT 1")
	require.NoError(t, err)

	cache.Reset()
	assert.Equal(t, 0, cache.Len())

	_, err = cache.GetOrPrepare(ctx, conn, "SELECT 1")
	require.NoError(t, err)

	cache.Close(ctx)
	assert.Equal(t, 0, cache.Len())
	assert.True(t, conn.handleFor("SELECT 1").closed)
}
