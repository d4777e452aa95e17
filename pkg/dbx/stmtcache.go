package dbx

import (
	"context"
	"fmt"
	"sync"

	"github.com/marcodd23/go-db-core/pkg/logx"
)

// StatementCache maps a finalized statement text to its prepared handle, so
// byte-identical SQL is parsed by the engine once per session and reused
// across calls with different parameter values.
//
// The key is the connection plus the literal SQL string. Prepared handles
// are session-bound resources, so an entry is only ever served back to the
// connection that prepared it: the cache may be shared process-wide by
// callers each holding their own connection, and one caller's statements
// never execute on another caller's session (or join its transaction).
// Parameter values never enter the key because placeholders keep the text
// constant. The set of distinct query shapes is bounded by the caller's
// code paths, not by data volume, so no eviction policy exists: entries
// live until Reset or Close.
//
// The cache is an injectable dependency, not a hidden singleton; tests get
// a fresh one per case. Get-or-prepare is a single critical section, so
// concurrent callers for the same key never race into double preparation.
type StatementCache struct {
	mu       sync.Mutex
	prepared map[Connection]map[string]PreparedHandle
}

// NewStatementCache - StatementCache constructor, empty on startup.
func NewStatementCache() *StatementCache {
	return &StatementCache{prepared: make(map[Connection]map[string]PreparedHandle)}
}

// GetOrPrepare returns the prepared handle for the statement text on the
// given connection, preparing and storing it on first sight. A handle
// cached for another connection is never returned: the text is prepared
// again on this session instead. A preparation failure is surfaced as a
// PrepareError by the connection adapter and nothing is cached for that
// text.
func (c *StatementCache) GetOrPrepare(ctx context.Context, conn Connection, sqlText string) (PreparedHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := c.prepared[conn]
	if session == nil {
		session = make(map[string]PreparedHandle)
		c.prepared[conn] = session
	}

	if handle, ok := session[sqlText]; ok {
		return handle, nil
	}

	logx.GetLogger().LogDebug(ctx, fmt.Sprintf("statement cache miss, preparing: %s", sqlText))

	handle, err := conn.Prepare(ctx, sqlText)
	if err != nil {
		return nil, err
	}

	session[sqlText] = handle

	return handle, nil
}

// Len returns the number of cached statements across every session.
func (c *StatementCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, session := range c.prepared {
		total += len(session)
	}

	return total
}

// Reset drops every cached handle without closing it. Intended for tests
// that reuse a cache across cases.
func (c *StatementCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prepared = make(map[Connection]map[string]PreparedHandle)
}

// Close releases every prepared handle. Called at teardown; the cache is
// reusable afterwards but starts empty.
func (c *StatementCache) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, session := range c.prepared {
		for sqlText, handle := range session {
			if err := handle.Close(ctx); err != nil {
				logx.GetLogger().LogWarning(ctx, fmt.Sprintf("error closing prepared statement: %s", sqlText), err)
			}
		}
	}

	c.prepared = make(map[Connection]map[string]PreparedHandle)
}
