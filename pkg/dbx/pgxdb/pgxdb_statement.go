package pgxdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/marcodd23/go-db-core/pkg/dbx"
	"github.com/marcodd23/go-db-core/pkg/errorx"
	"github.com/marcodd23/go-db-core/pkg/logx"
)

//###################################
//#    Postgres prepared handle     #
//###################################

// pgStatement - one prepared statement on a PgConnection session.
// Implements dbx.PreparedHandle. The handle stores the placeholder names
// in encounter order so parameter maps can be bound positionally.
type pgStatement struct {
	conn       *PgConnection
	name       string
	sqlText    string
	paramNames []string
}

func (s *pgStatement) bind(params map[string]any) ([]any, error) {
	args, missing := dbx.OrderedArgs(s.paramNames, params)
	if len(missing) > 0 {
		return nil, errorx.NewInvalidInputError("missing parameters %s for statement '%s'", strings.Join(missing, ", "), s.sqlText)
	}

	return args, nil
}

// Exec - bind the parameter map and run the statement, returning the
// affected row count.
func (s *pgStatement) Exec(ctx context.Context, params map[string]any) (int64, error) {
	args, err := s.bind(params)
	if err != nil {
		return 0, err
	}

	tag, err := s.conn.querier().Exec(ctx, s.name, args...)
	if err != nil {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("Error executing query '%s'", s.sqlText), err)

		return 0, errorx.NewQueryErrorWrapper(err, "error executing query '%s'", s.sqlText)
	}

	return tag.RowsAffected(), nil
}

// Query - bind the parameter map and run the statement, returning a row
// cursor.
func (s *pgStatement) Query(ctx context.Context, params map[string]any) (dbx.Rows, error) {
	args, err := s.bind(params)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.querier().Query(ctx, s.name, args...)
	if err != nil {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("Error executing query '%s'", s.sqlText), err)

		return nil, errorx.NewQueryErrorWrapper(err, "error executing query '%s'", s.sqlText)
	}

	return &pgRows{rows: rows}, nil
}

// Close - deallocate the prepared statement on the session.
func (s *pgStatement) Close(ctx context.Context) error {
	if err := s.conn.conn.Conn().Deallocate(ctx, s.name); err != nil {
		return errorx.NewQueryErrorWrapper(err, "error deallocating statement '%s'", s.sqlText)
	}

	return nil
}

// pgRows adapts pgx.Rows to the dbx.Rows cursor.
type pgRows struct {
	rows pgx.Rows
}

func (r *pgRows) Next() bool {
	return r.rows.Next()
}

func (r *pgRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *pgRows) Columns() []string {
	fields := r.rows.FieldDescriptions()
	columns := make([]string, 0, len(fields))

	for _, field := range fields {
		columns = append(columns, field.Name)
	}

	return columns
}

func (r *pgRows) Values() ([]any, error) {
	return r.rows.Values()
}

func (r *pgRows) Err() error {
	return r.rows.Err()
}

func (r *pgRows) Close() {
	r.rows.Close()
}
