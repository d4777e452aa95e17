package dbx

import (
	"context"
)

// ConnConfig represents the configuration required for a database connection.
type ConnConfig struct {
	Host       string
	Port       int32
	DBName     string
	User       string
	Password   string
	MaxConn    int32
	IsLocalEnv bool
}

// Quoter escapes a single identifier (table or column name) for the target
// engine. Quoting is always delegated here; the clause builder never
// hand-rolls it.
type Quoter interface {
	QuoteIdentifier(name string) string
}

// Connection defines the contract the executor needs from one logical
// database connection.
//
// This interface abstracts the external connection collaborator: preparing
// statements, identifier quoting, schema introspection, transaction control
// and teardown. It allows the executor, statement cache and enum cache to
// stay engine-agnostic, with concrete adapters below (pgxdb for PostgreSQL,
// mysqldb for MySQL) implementing the engine-specific plumbing.
//
// A Connection is one logical session: it is NOT safe for concurrent use by
// multiple in-flight operations. Callers that need concurrency must hold one
// Connection per concurrent execution context; the adapters share a pool
// underneath so that stays cheap.
//
// Statement text handed to Prepare uses named placeholders in the `:name`
// form. Each adapter rewrites them to its engine's positional placeholders
// and keeps the name order so Exec/Query can bind a parameter map.
type Connection interface {
	Quoter

	// Prepare parses the statement text once and returns a reusable handle.
	Prepare(ctx context.Context, sqlText string) (PreparedHandle, error)

	// ColumnType returns the column's raw type descriptor from the schema,
	// in the `enum('a','b','c')` form for enumerated columns. A column that
	// does not exist yields "" with a nil error.
	ColumnType(ctx context.Context, table, column string) (string, error)

	// LastInsertID returns the identifier generated by the most recent
	// INSERT on this session.
	LastInsertID(ctx context.Context) (int64, error)

	// UpsertSuffix returns the engine's insert-or-update clause for the
	// given conflict and overwrite columns, ready to append to an INSERT.
	UpsertSuffix(conflictCols, updateCols []string) string

	// Begin/Commit/Rollback control the session transaction. While a
	// transaction is open every statement on this Connection participates
	// in it. Nesting is handled by the TxCoordinator, not here.
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	InTx() bool

	Close(ctx context.Context) error
}

// PreparedHandle is a reusable, pre-parsed representation of one exact SQL
// statement text. Handles are owned by the StatementCache and reused across
// calls with different parameter values; per-call state (bind, execute,
// cursor) is never shared.
type PreparedHandle interface {
	// Exec binds the parameter map and runs the statement, returning the
	// number of rows affected.
	Exec(ctx context.Context, params map[string]any) (int64, error)

	// Query binds the parameter map, runs the statement and returns a row
	// cursor. The caller must Close the cursor.
	Query(ctx context.Context, params map[string]any) (Rows, error)

	// Close releases the prepared statement.
	Close(ctx context.Context) error
}

// Rows is a forward-only cursor over a result set.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() []string
	// Values returns the current row as a slice ordered like Columns.
	Values() ([]any, error)
	Err() error
	Close()
}

// Row is one result row keyed by column name.
type Row map[string]any
