package dbx

import (
	"context"
	"strings"

	"github.com/marcodd23/go-db-core/pkg/errorx"
)

// Executor orchestrates the clause builder, the statement cache and one
// logical connection to run CRUD statements and return typed results.
//
// Every operation is synchronous and call-scoped; the two caches are the
// only shared state. Nothing is retried here: every failure is returned to
// the caller carrying enough detail to tell the error categories apart.
type Executor struct {
	conn  Connection
	stmts *StatementCache
	enums *EnumCache
}

// NewExecutor - Executor constructor. The caches are injected so callers
// can share them process-wide and tests can reset them between cases.
func NewExecutor(conn Connection, stmts *StatementCache, enums *EnumCache) *Executor {
	return &Executor{conn: conn, stmts: stmts, enums: enums}
}

// Connection returns the underlying connection, for transaction
// coordination and teardown.
func (e *Executor) Connection() Connection {
	return e.conn
}

// Select builds and runs a SELECT and returns a row cursor the caller must
// close.
//
// A limit greater than zero appends a limit clause with offset and limit
// bound as parameters. Zero or negative means "no limit applied", not
// "zero rows".
func (e *Executor) Select(ctx context.Context, table string, where Conditions, fields Fields, order Order, offset, limit int64) (Rows, error) {
	stmt, err := e.buildSelect(table, where, fields, order, offset, limit)
	if err != nil {
		return nil, err
	}

	handle, err := e.stmts.GetOrPrepare(ctx, e.conn, stmt.SQL)
	if err != nil {
		return nil, err
	}

	rows, err := handle.Query(ctx, stmt.Params)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// SelectOne runs a Select with no order and no limit and returns the first
// row, or found == false when the result set is empty. The zero-row case is
// an ordinary outcome, never an error.
func (e *Executor) SelectOne(ctx context.Context, table string, where Conditions, fields Fields) (row Row, found bool, err error) {
	rows, err := e.Select(ctx, table, where, fields, Unordered(), 0, 0)
	if err != nil {
		return nil, false, err
	}

	defer rows.Close()

	if !rows.Next() {
		return nil, false, rows.Err()
	}

	row, err = rowFromCursor(rows)
	if err != nil {
		return nil, false, err
	}

	return row, true, rows.Err()
}

// Insert builds and runs a parameterized INSERT and returns the generated
// identifier.
func (e *Executor) Insert(ctx context.Context, table string, values Values) (int64, error) {
	stmt, err := e.buildInsert(table, values, nil, nil)
	if err != nil {
		return 0, err
	}

	if err := e.exec(ctx, stmt); err != nil {
		return 0, err
	}

	return e.conn.LastInsertID(ctx)
}

// Update builds and runs a parameterized UPDATE and returns the number of
// rows affected. A value equal to the NOW() literal is emitted into the SET
// clause directly instead of being bound, the same rule BuildParams applies.
func (e *Executor) Update(ctx context.Context, table string, values Values, where Conditions) (int64, error) {
	if err := validateIdentifier(table); err != nil {
		return 0, err
	}

	if err := disjointColumns(values, where); err != nil {
		return 0, err
	}

	setFragment, err := buildSet(e.conn, values)
	if err != nil {
		return 0, err
	}

	whereFragment, err := BuildWhere(e.conn, where)
	if err != nil {
		return 0, err
	}

	params := mergeParams(paramsForPairs(values), BuildParams(where))

	stmt := Statement{
		SQL:    "UPDATE " + e.conn.QuoteIdentifier(table) + " SET " + setFragment + whereFragment,
		Params: params,
	}

	return e.execAffected(ctx, stmt)
}

// Delete builds and runs a parameterized DELETE. The condition set must be
// a real filter: the no-filter sentinel and the empty set both fail with an
// InvalidInputError, so an accidental full-table delete is impossible
// through this operation. Deleting every row is DeleteAll, on purpose a
// separate, clearly named call.
func (e *Executor) Delete(ctx context.Context, table string, where Conditions) (int64, error) {
	if err := validateIdentifier(table); err != nil {
		return 0, err
	}

	if where.IsAllRows() || len(where.Pairs()) == 0 {
		return 0, errorx.NewInvalidInputError("refusing DELETE without a filter on table '%s'; use DeleteAll to delete every row", table)
	}

	whereFragment, err := BuildWhere(e.conn, where)
	if err != nil {
		return 0, err
	}

	stmt := Statement{
		SQL:    "DELETE FROM " + e.conn.QuoteIdentifier(table) + whereFragment,
		Params: BuildParams(where),
	}

	return e.execAffected(ctx, stmt)
}

// DeleteAll deletes every row of the table. This is the explicit full-table
// operation Delete refuses to be.
func (e *Executor) DeleteAll(ctx context.Context, table string) (int64, error) {
	if err := validateIdentifier(table); err != nil {
		return 0, err
	}

	stmt := Statement{SQL: "DELETE FROM " + e.conn.QuoteIdentifier(table)}

	return e.execAffected(ctx, stmt)
}

// Upsert merges values and where into one column set and inserts it with an
// on-conflict-overwrite policy: on a conflict over where's columns, the
// values columns are overwritten.
//
// The target table must carry a uniqueness constraint covering where's
// columns. That precondition is external and not verified here; without it
// the engine reports whatever it reports, surfaced as a QueryError.
func (e *Executor) Upsert(ctx context.Context, table string, values Values, where Conditions) (int64, error) {
	if where.IsAllRows() || len(where.Pairs()) == 0 {
		return 0, errorx.NewInvalidInputError("upsert requires a non-empty condition set naming the conflict columns")
	}

	if err := disjointColumns(values, where); err != nil {
		return 0, err
	}

	if len(values) == 0 {
		return 0, errorx.NewInvalidInputError("upsert requires a non-empty value set")
	}

	conflictCols := make([]string, 0, len(where.Pairs()))
	for _, pair := range where.Pairs() {
		conflictCols = append(conflictCols, pair.Column)
	}

	updateCols := make([]string, 0, len(values))
	for _, pair := range values {
		updateCols = append(updateCols, pair.Column)
	}

	merged := make(Values, 0, len(where.Pairs())+len(values))
	merged = append(merged, where.Pairs()...)
	merged = append(merged, values...)

	stmt, err := e.buildInsert(table, merged, conflictCols, updateCols)
	if err != nil {
		return 0, err
	}

	return e.execAffected(ctx, stmt)
}

// Count builds and runs a COUNT aggregate over the filtered rows.
func (e *Executor) Count(ctx context.Context, table string, where Conditions) (int64, error) {
	rows, err := e.Select(ctx, table, where, RawFields("COUNT(*)"), Unordered(), 0, 0)
	if err != nil {
		return 0, err
	}

	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}

		return 0, errorx.NewQueryError("COUNT on table '%s' returned no rows", table)
	}

	var count int64
	if err := rows.Scan(&count); err != nil {
		return 0, errorx.NewQueryErrorWrapper(err, "error scanning COUNT result for table '%s'", table)
	}

	return count, rows.Err()
}

// RunRaw is the escape hatch for statements the builder does not model. The
// caller is responsible for the SQL being correct; the text still goes
// through the statement cache. Placeholders use the same `:name` form the
// builder emits.
func (e *Executor) RunRaw(ctx context.Context, sqlText string, params map[string]any) (Rows, error) {
	handle, err := e.stmts.GetOrPrepare(ctx, e.conn, sqlText)
	if err != nil {
		return nil, err
	}

	return handle.Query(ctx, params)
}

// ExecRaw is RunRaw for statements that return an affected count instead of
// rows.
func (e *Executor) ExecRaw(ctx context.Context, sqlText string, params map[string]any) (int64, error) {
	handle, err := e.stmts.GetOrPrepare(ctx, e.conn, sqlText)
	if err != nil {
		return 0, err
	}

	return handle.Exec(ctx, params)
}

// EnumValues returns the permitted values of an enumerated column, served
// from the enum cache after the first introspection.
func (e *Executor) EnumValues(ctx context.Context, table, column string) ([]string, error) {
	return e.enums.GetEnumValues(ctx, e.conn, table, column)
}

func (e *Executor) buildSelect(table string, where Conditions, fields Fields, order Order, offset, limit int64) (Statement, error) {
	if err := validateIdentifier(table); err != nil {
		return Statement{}, err
	}

	fieldList, err := BuildFieldList(e.conn, fields)
	if err != nil {
		return Statement{}, err
	}

	whereFragment, err := BuildWhere(e.conn, where)
	if err != nil {
		return Statement{}, err
	}

	orderFragment, err := BuildOrder(e.conn, order)
	if err != nil {
		return Statement{}, err
	}

	sqlText := "SELECT " + fieldList + " FROM " + e.conn.QuoteIdentifier(table) + whereFragment + orderFragment
	params := BuildParams(where)

	if limit > 0 {
		// The limit clause binds :limit and :offset; a condition column of
		// the same name would collapse into the same placeholder with two
		// bindings.
		for _, pair := range where.Pairs() {
			name := placeholder(pair.Column)
			if name == ":limit" || name == ":offset" {
				return Statement{}, errorx.NewInvalidInputError("condition column '%s' collides with the limit clause placeholder '%s'", pair.Column, name)
			}
		}

		sqlText += " LIMIT :limit OFFSET :offset"
		params = mergeParams(params, map[string]any{":limit": limit, ":offset": offset})
	}

	return Statement{SQL: sqlText, Params: params}, nil
}

func (e *Executor) buildInsert(table string, values Values, conflictCols, updateCols []string) (Statement, error) {
	if err := validateIdentifier(table); err != nil {
		return Statement{}, err
	}

	if len(values) == 0 {
		return Statement{}, errorx.NewInvalidInputError("insert requires a non-empty value set")
	}

	columns := make([]string, 0, len(values))
	markers := make([]string, 0, len(values))

	for _, pair := range values {
		if err := validateIdentifier(pair.Column); err != nil {
			return Statement{}, err
		}

		columns = append(columns, e.conn.QuoteIdentifier(pair.Column))

		if isNowLiteral(pair.Value) {
			markers = append(markers, nowLiteral)
			continue
		}

		markers = append(markers, placeholder(pair.Column))
	}

	sqlText := "INSERT INTO " + e.conn.QuoteIdentifier(table) +
		" (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(markers, ", ") + ")"

	if len(conflictCols) > 0 {
		for _, col := range conflictCols {
			if err := validateIdentifier(col); err != nil {
				return Statement{}, err
			}
		}

		for _, col := range updateCols {
			if err := validateIdentifier(col); err != nil {
				return Statement{}, err
			}
		}

		sqlText += e.conn.UpsertSuffix(conflictCols, updateCols)
	}

	return Statement{SQL: sqlText, Params: paramsForPairs(values)}, nil
}

func (e *Executor) exec(ctx context.Context, stmt Statement) error {
	_, err := e.execAffected(ctx, stmt)

	return err
}

func (e *Executor) execAffected(ctx context.Context, stmt Statement) (int64, error) {
	handle, err := e.stmts.GetOrPrepare(ctx, e.conn, stmt.SQL)
	if err != nil {
		return 0, err
	}

	return handle.Exec(ctx, stmt.Params)
}

// disjointColumns rejects a column that appears in both the value set and
// the condition set: the two would collapse into one placeholder name with
// two different bindings.
func disjointColumns(values Values, where Conditions) error {
	if where.IsAllRows() {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	for _, pair := range values {
		seen[pair.Column] = struct{}{}
	}

	for _, pair := range where.Pairs() {
		if _, ok := seen[pair.Column]; ok {
			return errorx.NewInvalidInputError("column '%s' appears in both the value set and the condition set", pair.Column)
		}
	}

	return nil
}

func mergeParams(maps ...map[string]any) map[string]any {
	var merged map[string]any

	for _, m := range maps {
		if len(m) == 0 {
			continue
		}

		if merged == nil {
			merged = make(map[string]any, len(m))
		}

		for k, v := range m {
			merged[k] = v
		}
	}

	return merged
}

func rowFromCursor(rows Rows) (Row, error) {
	values, err := rows.Values()
	if err != nil {
		return nil, errorx.NewQueryErrorWrapper(err, "error reading row values")
	}

	columns := rows.Columns()
	row := make(Row, len(columns))

	for i, col := range columns {
		if i < len(values) {
			row[col] = values[i]
		}
	}

	return row, nil
}
