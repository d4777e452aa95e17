package mysqldb

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/marcodd23/go-db-core/pkg/dbx"
	"github.com/marcodd23/go-db-core/pkg/errorx"
	"github.com/marcodd23/go-db-core/pkg/logx"
)

//###################################
//#      MySQL - connection         #
//###################################

// MyConnection - one logical MySQL session. It implements dbx.Connection.
//
// Statements are prepared at pool level, so database/sql re-prepares them
// transparently on whichever wire connection serves a call; while a
// transaction is open every statement is rebound onto it so the whole
// session participates. A MyConnection is not safe for concurrent use.
type MyConnection struct {
	db           *sql.DB
	tx           *sql.Tx
	lastInsertID int64
}

// SetupDatabase - open the shared MySQL pool from the connection config.
func SetupDatabase(ctx context.Context, dbConf dbx.ConnConfig) (*sql.DB, error) {
	if dbConf.DBName == "" {
		return nil, errorx.NewConnectionError("error creating connection pool config: DB_Name is EMPTY")
	}

	if dbConf.User == "" {
		return nil, errorx.NewConnectionError("error creating connection pool config: DB_User is EMPTY")
	}

	if dbConf.Password == "" {
		return nil, errorx.NewConnectionError("error creating connection pool config: DB_Password is EMPTY")
	}

	cfg := mysql.NewConfig()
	cfg.User = dbConf.User
	cfg.Passwd = dbConf.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", dbConf.Host, dbConf.Port)
	cfg.DBName = dbConf.DBName
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, errorx.NewConnectionErrorWrapper(err, "error creating MySQL connector")
	}

	db := sql.OpenDB(connector)

	maxConn := dbConf.MaxConn
	if maxConn <= 0 {
		maxConn = 1
	}

	db.SetMaxOpenConns(runtime.NumCPU() * int(maxConn))

	if err := db.PingContext(ctx); err != nil {
		return nil, errorx.NewConnectionErrorWrapper(err, "error connecting to MySQL")
	}

	logx.GetLogger().LogInfo(ctx, fmt.Sprintf("Connected to MySQL: DB=%s, ADDR=%s", dbConf.DBName, cfg.Addr))

	return db, nil
}

// Connect - return one logical session on the shared pool.
func Connect(db *sql.DB) (*MyConnection, error) {
	if db == nil {
		return nil, errorx.NewConnectionError("error, database pool not initialized")
	}

	return &MyConnection{db: db}, nil
}

// QuoteIdentifier - escape an identifier with MySQL backtick quoting.
func (c *MyConnection) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Prepare - parse the statement once. Named `:x` placeholders are rewritten
// to MySQL's `?` form before preparing.
func (c *MyConnection) Prepare(ctx context.Context, sqlText string) (dbx.PreparedHandle, error) {
	rewritten, names := dbx.RewriteNamedParams(sqlText, func(pos int) string {
		return "?"
	})

	stmt, err := c.db.PrepareContext(ctx, rewritten)
	if err != nil {
		return nil, errorx.NewPrepareErrorWrapper(err, "failed to prepare statement '%s'", sqlText)
	}

	return &myStatement{conn: c, stmt: stmt, sqlText: sqlText, paramNames: names}, nil
}

// ColumnType - the raw type descriptor from information_schema. MySQL
// reports enumerated columns natively as `enum('a','b','c')`. A missing
// column yields "".
func (c *MyConnection) ColumnType(ctx context.Context, table, column string) (string, error) {
	const introspect = `
		SELECT COLUMN_TYPE
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?`

	var columnType string

	err := c.queryRow(ctx, introspect, table, column).Scan(&columnType)
	if err == sql.ErrNoRows {
		return "", nil
	}

	if err != nil {
		return "", err
	}

	return columnType, nil
}

// LastInsertID - the identifier generated by the most recent INSERT on this
// session.
func (c *MyConnection) LastInsertID(ctx context.Context) (int64, error) {
	return c.lastInsertID, nil
}

// UpsertSuffix - MySQL's insert-or-update clause. MySQL infers the conflict
// target from the table's unique keys, so only the overwrite columns appear.
func (c *MyConnection) UpsertSuffix(conflictCols, updateCols []string) string {
	assignments := make([]string, 0, len(updateCols))
	for _, col := range updateCols {
		quoted := c.QuoteIdentifier(col)
		assignments = append(assignments, quoted+" = VALUES("+quoted+")")
	}

	return " ON DUPLICATE KEY UPDATE " + strings.Join(assignments, ", ")
}

// Begin - open a transaction on this session.
func (c *MyConnection) Begin(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errorx.NewConnectionErrorWrapper(err, "error starting transaction")
	}

	c.tx = tx

	return nil
}

// Commit - commit the open transaction.
func (c *MyConnection) Commit(ctx context.Context) error {
	if c.tx == nil {
		return errorx.NewInvalidStateError("no open transaction to commit")
	}

	err := c.tx.Commit()
	c.tx = nil

	if err != nil {
		return errorx.NewQueryErrorWrapper(err, "error during transaction commit")
	}

	return nil
}

// Rollback - abort the open transaction.
func (c *MyConnection) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return errorx.NewInvalidStateError("no open transaction to roll back")
	}

	err := c.tx.Rollback()
	c.tx = nil

	if err != nil {
		return errorx.NewQueryErrorWrapper(err, "error during transaction rollback")
	}

	return nil
}

// InTx - reports whether a transaction is open on this session.
func (c *MyConnection) InTx() bool {
	return c.tx != nil
}

// Close - end the session. An open transaction is rolled back first so no
// partial work is left dangling. The shared pool stays open.
func (c *MyConnection) Close(ctx context.Context) error {
	if c.tx != nil {
		if err := c.Rollback(ctx); err != nil {
			logx.GetLogger().LogError(ctx, "error rolling back open transaction on close", err)
		}
	}

	return nil
}

func (c *MyConnection) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	if c.tx != nil {
		return c.tx.QueryRowContext(ctx, query, args...)
	}

	return c.db.QueryRowContext(ctx, query, args...)
}
