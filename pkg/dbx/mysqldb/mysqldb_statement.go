package mysqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/marcodd23/go-db-core/pkg/dbx"
	"github.com/marcodd23/go-db-core/pkg/errorx"
	"github.com/marcodd23/go-db-core/pkg/logx"
)

//###################################
//#      MySQL prepared handle      #
//###################################

// myStatement - one prepared statement on a MyConnection session.
// Implements dbx.PreparedHandle.
type myStatement struct {
	conn       *MyConnection
	stmt       *sql.Stmt
	sqlText    string
	paramNames []string
}

func (s *myStatement) bind(params map[string]any) ([]any, error) {
	args, missing := dbx.OrderedArgs(s.paramNames, params)
	if len(missing) > 0 {
		return nil, errorx.NewInvalidInputError("missing parameters %s for statement '%s'", strings.Join(missing, ", "), s.sqlText)
	}

	return args, nil
}

// Exec - bind the parameter map and run the statement, returning the
// affected row count. The generated insert id, when the engine reports one,
// is remembered on the session for LastInsertID.
func (s *myStatement) Exec(ctx context.Context, params map[string]any) (int64, error) {
	args, err := s.bind(params)
	if err != nil {
		return 0, err
	}

	stmt, closeStmt := s.statementFor(ctx)
	defer closeStmt()

	result, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("Error executing query '%s'", s.sqlText), err)

		return 0, errorx.NewQueryErrorWrapper(err, "error executing query '%s'", s.sqlText)
	}

	if id, idErr := result.LastInsertId(); idErr == nil && id != 0 {
		s.conn.lastInsertID = id
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errorx.NewQueryErrorWrapper(err, "error reading affected rows for query '%s'", s.sqlText)
	}

	return affected, nil
}

// Query - bind the parameter map and run the statement, returning a row
// cursor.
func (s *myStatement) Query(ctx context.Context, params map[string]any) (dbx.Rows, error) {
	args, err := s.bind(params)
	if err != nil {
		return nil, err
	}

	stmt, closeStmt := s.statementFor(ctx)
	defer closeStmt()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("Error executing query '%s'", s.sqlText), err)

		return nil, errorx.NewQueryErrorWrapper(err, "error executing query '%s'", s.sqlText)
	}

	columns, err := rows.Columns()
	if err != nil {
		rows.Close()

		return nil, errorx.NewQueryErrorWrapper(err, "error reading result columns for query '%s'", s.sqlText)
	}

	return &myRows{rows: rows, columns: columns}, nil
}

// Close - release the prepared statement.
func (s *myStatement) Close(ctx context.Context) error {
	if err := s.stmt.Close(); err != nil {
		return errorx.NewQueryErrorWrapper(err, "error closing statement '%s'", s.sqlText)
	}

	return nil
}

// statementFor rebinds the pool-level statement onto the open transaction
// when there is one, so the statement participates in it.
func (s *myStatement) statementFor(ctx context.Context) (*sql.Stmt, func()) {
	if s.conn.tx != nil {
		txStmt := s.conn.tx.StmtContext(ctx, s.stmt)

		return txStmt, func() { _ = txStmt.Close() }
	}

	return s.stmt, func() {}
}

// myRows adapts *sql.Rows to the dbx.Rows cursor.
type myRows struct {
	rows    *sql.Rows
	columns []string
}

func (r *myRows) Next() bool {
	return r.rows.Next()
}

func (r *myRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *myRows) Columns() []string {
	return r.columns
}

func (r *myRows) Values() ([]any, error) {
	values := make([]any, len(r.columns))
	pointers := make([]any, len(r.columns))

	for i := range values {
		pointers[i] = &values[i]
	}

	if err := r.rows.Scan(pointers...); err != nil {
		return nil, err
	}

	// The driver hands string data back as []byte; normalize for callers
	// comparing against plain strings.
	for i, value := range values {
		if b, ok := value.([]byte); ok {
			values[i] = string(b)
		}
	}

	return values, nil
}

func (r *myRows) Err() error {
	return r.rows.Err()
}

func (r *myRows) Close() {
	r.rows.Close()
}
