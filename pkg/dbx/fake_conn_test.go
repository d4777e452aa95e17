package dbx_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/marcodd23/go-db-core/pkg/dbx"
)

// fakeConn implements dbx.Connection in-memory so the executor, caches and
// coordinator can be exercised without an engine. It quotes with MySQL-style
// backticks and records every prepare, introspection and transaction call.
type fakeConn struct {
	prepareCount   map[string]int
	handles        map[string]*fakeHandle
	prepareErr     error
	columnTypes    map[string]string
	columnTypeErr  error
	introspections int
	lastInsertID   int64
	affected       int64
	resultColumns  []string
	resultData     [][]any
	inTx           bool
	begins         int
	commits        int
	rollbacks      int
	beginErr       error
	commitErr      error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		prepareCount: make(map[string]int),
		handles:      make(map[string]*fakeHandle),
		columnTypes:  make(map[string]string),
	}
}

func (c *fakeConn) QuoteIdentifier(name string) string {
	return "`" + name + "`"
}

func (c *fakeConn) Prepare(ctx context.Context, sqlText string) (dbx.PreparedHandle, error) {
	if c.prepareErr != nil {
		return nil, c.prepareErr
	}

	c.prepareCount[sqlText]++

	handle := &fakeHandle{
		sqlText:       sqlText,
		affected:      c.affected,
		resultColumns: c.resultColumns,
		resultData:    c.resultData,
	}
	c.handles[sqlText] = handle

	return handle, nil
}

func (c *fakeConn) ColumnType(ctx context.Context, table, column string) (string, error) {
	c.introspections++

	if c.columnTypeErr != nil {
		return "", c.columnTypeErr
	}

	return c.columnTypes[table+"."+column], nil
}

func (c *fakeConn) LastInsertID(ctx context.Context) (int64, error) {
	return c.lastInsertID, nil
}

func (c *fakeConn) UpsertSuffix(conflictCols, updateCols []string) string {
	assignments := make([]string, 0, len(updateCols))
	for _, col := range updateCols {
		assignments = append(assignments, fmt.Sprintf("`%s` = EXCLUDED.`%s`", col, col))
	}

	return fmt.Sprintf(" ON CONFLICT (`%s`) DO UPDATE SET %s",
		strings.Join(conflictCols, "`, `"), strings.Join(assignments, ", "))
}

func (c *fakeConn) Begin(ctx context.Context) error {
	if c.beginErr != nil {
		return c.beginErr
	}

	c.begins++
	c.inTx = true

	return nil
}

func (c *fakeConn) Commit(ctx context.Context) error {
	if c.commitErr != nil {
		c.inTx = false
		return c.commitErr
	}

	c.commits++
	c.inTx = false

	return nil
}

func (c *fakeConn) Rollback(ctx context.Context) error {
	c.rollbacks++
	c.inTx = false

	return nil
}

func (c *fakeConn) InTx() bool {
	return c.inTx
}

func (c *fakeConn) Close(ctx context.Context) error {
	return nil
}

// handleFor returns the recorded handle for a statement text.
func (c *fakeConn) handleFor(sqlText string) *fakeHandle {
	return c.handles[sqlText]
}

// fakeHandle records executions and serves canned result sets.
type fakeHandle struct {
	sqlText       string
	execParams    []map[string]any
	queryParams   []map[string]any
	execErr       error
	queryErr      error
	affected      int64
	resultColumns []string
	resultData    [][]any
	closed        bool
}

func (h *fakeHandle) Exec(ctx context.Context, params map[string]any) (int64, error) {
	h.execParams = append(h.execParams, params)

	if h.execErr != nil {
		return 0, h.execErr
	}

	return h.affected, nil
}

func (h *fakeHandle) Query(ctx context.Context, params map[string]any) (dbx.Rows, error) {
	h.queryParams = append(h.queryParams, params)

	if h.queryErr != nil {
		return nil, h.queryErr
	}

	return &fakeRows{columns: h.resultColumns, data: h.resultData}, nil
}

func (h *fakeHandle) Close(ctx context.Context) error {
	h.closed = true

	return nil
}

// fakeRows is a forward cursor over canned data.
type fakeRows struct {
	columns []string
	data    [][]any
	idx     int
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}

	r.idx++

	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]

	for i, d := range dest {
		if i >= len(row) {
			break
		}

		switch target := d.(type) {
		case *int64:
			switch v := row[i].(type) {
			case int64:
				*target = v
			case int:
				*target = int64(v)
			default:
				return fmt.Errorf("cannot scan %T into *int64", row[i])
			}
		case *string:
			s, ok := row[i].(string)
			if !ok {
				return fmt.Errorf("cannot scan %T into *string", row[i])
			}

			*target = s
		case *any:
			*target = row[i]
		default:
			return fmt.Errorf("unsupported scan destination %T", d)
		}
	}

	return nil
}

func (r *fakeRows) Columns() []string {
	return r.columns
}

func (r *fakeRows) Values() ([]any, error) {
	row := r.data[r.idx-1]
	values := make([]any, len(row))
	copy(values, row)

	return values, nil
}

func (r *fakeRows) Err() error {
	return nil
}

func (r *fakeRows) Close() {}
