package dbx

import (
	"context"
	"strings"
	"sync"

	"github.com/marcodd23/go-db-core/pkg/errorx"
)

// EnumCache maps a (table, column) pair to the ordered list of permitted
// values of an enumerated column, populated lazily from schema
// introspection through the connection adapter.
//
// A column that is missing or not enumerated is cached as an empty list so
// repeated lookups do not keep hitting the schema. Entries are immutable
// once stored. Like the StatementCache this is injectable shared state with
// one critical section guarding the check-then-populate sequence.
type EnumCache struct {
	mu     sync.Mutex
	values map[string][]string
}

// NewEnumCache - EnumCache constructor, empty on startup.
func NewEnumCache() *EnumCache {
	return &EnumCache{values: make(map[string][]string)}
}

// GetEnumValues returns the permitted values for the column. On a cache hit
// no I/O happens; on a miss the schema is introspected once, the
// `enum('a','b','c')` descriptor parsed, and the result stored. An
// introspection failure surfaces as a MetadataError and nothing is cached.
func (c *EnumCache) GetEnumValues(ctx context.Context, conn Connection, table, column string) ([]string, error) {
	if err := validateIdentifier(table); err != nil {
		return nil, err
	}

	if err := validateIdentifier(column); err != nil {
		return nil, err
	}

	key := table + "." + column

	c.mu.Lock()
	defer c.mu.Unlock()

	if values, ok := c.values[key]; ok {
		return values, nil
	}

	descriptor, err := conn.ColumnType(ctx, table, column)
	if err != nil {
		return nil, errorx.NewMetadataErrorWrapper(err, "error introspecting column '%s'", key)
	}

	values := parseEnumDescriptor(descriptor)
	c.values[key] = values

	return values, nil
}

// Reset drops every cached entry. Intended for tests.
func (c *EnumCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values = make(map[string][]string)
}

// parseEnumDescriptor extracts the ordered value list out of an
// `enum('a','b','c')` type descriptor. Splitting respects quoted segments,
// and a doubled single quote inside a segment is the escaped quote. Any
// descriptor that is not an enum yields the empty list.
func parseEnumDescriptor(descriptor string) []string {
	trimmed := strings.TrimSpace(descriptor)

	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "enum(") || !strings.HasSuffix(trimmed, ")") {
		return []string{}
	}

	body := trimmed[len("enum(") : len(trimmed)-1]

	var (
		values  []string
		current strings.Builder
		inQuote bool
	)

	for i := 0; i < len(body); i++ {
		ch := body[i]

		switch {
		case ch == '\'':
			if inQuote && i+1 < len(body) && body[i+1] == '\'' {
				// Escaped quote inside a value.
				current.WriteByte('\'')
				i++
				continue
			}

			inQuote = !inQuote
			if !inQuote {
				values = append(values, current.String())
				current.Reset()
			}
		case inQuote:
			current.WriteByte(ch)
		default:
			// Commas and whitespace between quoted segments.
		}
	}

	if values == nil {
		return []string{}
	}

	return values
}
