package pgxdb

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/marcodd23/go-db-core/pkg/dbx"
	"github.com/marcodd23/go-db-core/pkg/errorx"
	"github.com/marcodd23/go-db-core/pkg/logx"
)

//###################################
//#     PostgresDB - connection     #
//###################################

// PgConnection - one logical PostgreSQL session on top of a shared pgxpool.
// It implements dbx.Connection.
//
// The pool is shared; each PgConnection pins one pooled connection so
// prepared statements, LastInsertID and transaction scope all live on the
// same session. A PgConnection is not safe for concurrent use; concurrent
// callers each connect their own.
type PgConnection struct {
	conn    *pgxpool.Conn
	tx      pgx.Tx
	stmtSeq int
}

// SetupConnectionPool - create the shared PostgreSQL connection pool.
func SetupConnectionPool(ctx context.Context, dbConf dbx.ConnConfig) (*pgxpool.Pool, error) {
	poolConfig, err := createConnectionConfiguration(dbConf)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errorx.NewConnectionErrorWrapper(err, "error creating new connection pool")
	}

	logx.
		GetLogger().
		LogInfo(ctx, fmt.Sprintf("Created new Connection Pool: DB=%s, HOST=%s, PORT=%d",
			pool.Config().ConnConfig.Database,
			pool.Config().ConnConfig.Host,
			pool.Config().ConnConfig.Port))

	return pool, nil
}

func createConnectionConfiguration(dbConf dbx.ConnConfig) (*pgxpool.Config, error) {
	poolConfig, _ := pgxpool.ParseConfig("")

	if dbConf.DBName == "" {
		return nil, errorx.NewConnectionError("error creating connection pool config: DB_Name is EMPTY")
	}

	if dbConf.User == "" {
		return nil, errorx.NewConnectionError("error creating connection pool config: DB_User is EMPTY")
	}

	if dbConf.Password == "" {
		return nil, errorx.NewConnectionError("error creating connection pool config: DB_Password is EMPTY")
	}

	poolConfig.ConnConfig.Database = dbConf.DBName
	poolConfig.ConnConfig.User = dbConf.User
	poolConfig.ConnConfig.Password = dbConf.Password
	poolConfig.ConnConfig.Host = dbConf.Host
	poolConfig.ConnConfig.Port = uint16(dbConf.Port)

	maxConn := dbConf.MaxConn
	if maxConn <= 0 {
		maxConn = 1
	}

	poolConfig.MaxConns = int32(runtime.NumCPU()) * maxConn

	return poolConfig, nil
}

// Connect - pin one session from the pool and return it as a
// dbx.Connection.
func Connect(ctx context.Context, pool *pgxpool.Pool) (*PgConnection, error) {
	if pool == nil {
		return nil, errorx.NewConnectionError("error, connection pool not initialized")
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		logx.GetLogger().LogError(ctx, "Error acquiring connection from pool", err)
		return nil, errorx.NewConnectionErrorWrapper(err, "error acquiring connection from pool")
	}

	return &PgConnection{conn: conn}, nil
}

// QuoteIdentifier - escape an identifier with PostgreSQL double quoting.
func (c *PgConnection) QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// Prepare - parse the statement once on this session. Named `:x`
// placeholders are rewritten to PostgreSQL's `$n` form before preparing.
func (c *PgConnection) Prepare(ctx context.Context, sqlText string) (dbx.PreparedHandle, error) {
	rewritten, names := dbx.RewriteNamedParams(sqlText, func(pos int) string {
		return fmt.Sprintf("$%d", pos+1)
	})

	c.stmtSeq++
	stmtName := fmt.Sprintf("dbcore_stmt_%d", c.stmtSeq)

	if _, err := c.conn.Conn().Prepare(ctx, stmtName, rewritten); err != nil {
		return nil, errorx.NewPrepareErrorWrapper(err, "failed to prepare statement '%s'", sqlText)
	}

	return &pgStatement{conn: c, name: stmtName, sqlText: sqlText, paramNames: names}, nil
}

// ColumnType - introspect the column's type. Enumerated columns come back
// in the canonical `enum('a','b')` descriptor form, assembled from
// pg_enum so the metadata cache parses one format for every engine. A
// missing or non-enumerated column yields "".
func (c *PgConnection) ColumnType(ctx context.Context, table, column string) (string, error) {
	const introspect = `
		SELECT e.enumlabel
		FROM pg_class c
		JOIN pg_attribute a ON a.attrelid = c.oid
		JOIN pg_type t ON t.oid = a.atttypid
		JOIN pg_enum e ON e.enumtypid = t.oid
		WHERE c.relname = $1 AND a.attname = $2
		ORDER BY e.enumsortorder`

	rows, err := c.querier().Query(ctx, introspect, table, column)
	if err != nil {
		return "", errors.Wrap(err, "error introspecting enum labels")
	}

	defer rows.Close()

	var labels []string

	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return "", errors.Wrap(err, "error scanning enum label")
		}

		labels = append(labels, label)
	}

	if err := rows.Err(); err != nil {
		return "", errors.Wrap(err, "error reading enum labels")
	}

	if len(labels) == 0 {
		return "", nil
	}

	quoted := make([]string, 0, len(labels))
	for _, label := range labels {
		quoted = append(quoted, "'"+strings.ReplaceAll(label, "'", "''")+"'")
	}

	return "enum(" + strings.Join(quoted, ",") + ")", nil
}

// lastvalUndefined - SQLSTATE object_not_in_prerequisite_state, what
// lastval() raises when no sequence has fired on the session yet.
const lastvalUndefined = "55000"

// LastInsertID - the identifier most recently generated by a sequence on
// this session. A table without a sequence-backed column generates nothing;
// that case yields 0 with no error so a successful INSERT stays successful.
func (c *PgConnection) LastInsertID(ctx context.Context) (int64, error) {
	var id int64

	if err := c.querier().QueryRow(ctx, "SELECT lastval()").Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == lastvalUndefined {
			return 0, nil
		}

		return 0, errorx.NewQueryErrorWrapper(err, "error reading last insert id")
	}

	return id, nil
}

// UpsertSuffix - PostgreSQL's insert-or-update clause.
func (c *PgConnection) UpsertSuffix(conflictCols, updateCols []string) string {
	conflict := make([]string, 0, len(conflictCols))
	for _, col := range conflictCols {
		conflict = append(conflict, c.QuoteIdentifier(col))
	}

	assignments := make([]string, 0, len(updateCols))
	for _, col := range updateCols {
		quoted := c.QuoteIdentifier(col)
		assignments = append(assignments, quoted+" = EXCLUDED."+quoted)
	}

	return " ON CONFLICT (" + strings.Join(conflict, ", ") + ") DO UPDATE SET " + strings.Join(assignments, ", ")
}

// Begin - open a transaction on this session.
func (c *PgConnection) Begin(ctx context.Context) error {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return errorx.NewConnectionErrorWrapper(err, "error starting transaction")
	}

	c.tx = tx

	return nil
}

// Commit - commit the open transaction.
func (c *PgConnection) Commit(ctx context.Context) error {
	if c.tx == nil {
		return errorx.NewInvalidStateError("no open transaction to commit")
	}

	err := c.tx.Commit(ctx)
	c.tx = nil

	if err != nil {
		return errorx.NewQueryErrorWrapper(err, "error during transaction commit")
	}

	return nil
}

// Rollback - abort the open transaction.
func (c *PgConnection) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return errorx.NewInvalidStateError("no open transaction to roll back")
	}

	err := c.tx.Rollback(ctx)
	c.tx = nil

	if err != nil {
		return errorx.NewQueryErrorWrapper(err, "error during transaction rollback")
	}

	return nil
}

// InTx - reports whether a transaction is open on this session.
func (c *PgConnection) InTx() bool {
	return c.tx != nil
}

// Close - release the pinned connection back to the pool. An open
// transaction is rolled back first so no partial work is left dangling.
func (c *PgConnection) Close(ctx context.Context) error {
	if c.tx != nil {
		if err := c.Rollback(ctx); err != nil {
			logx.GetLogger().LogError(ctx, "error rolling back open transaction on close", err)
		}
	}

	c.conn.Release()

	return nil
}

// querier routes statements through the open transaction when there is
// one, so every operation on the session participates in it.
func (c *PgConnection) querier() querier {
	if c.tx != nil {
		return c.tx
	}

	return c.conn
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
