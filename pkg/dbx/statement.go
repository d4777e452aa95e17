package dbx

import (
	"strings"
)

// Statement is a built statement: immutable SQL text plus the mapping from
// placeholder name to bound value. Every placeholder appearing in the text
// has exactly one entry in the mapping, except the NOW() literal, which is
// part of the text and has no parameter entry.
type Statement struct {
	SQL    string
	Params map[string]any
}

// RewriteNamedParams rewrites `:name` placeholders in the statement text to
// the engine's positional form and returns the placeholder names in
// encounter order, so a parameter map can be bound positionally at
// execution time.
//
// placeholderFor receives the zero-based position of each placeholder and
// returns the engine token, for example `$1` for PostgreSQL or `?` for
// MySQL. Named placeholders inside single-quoted string literals are left
// untouched, and a doubled colon (the PostgreSQL cast operator) is not
// treated as a placeholder.
//
// Both adapters share this rewrite; it is the only piece of placeholder
// handling that is engine-independent.
func RewriteNamedParams(sqlText string, placeholderFor func(pos int) string) (string, []string) {
	var (
		out     strings.Builder
		names   []string
		inQuote bool
		i       int
		textLen = len(sqlText)
	)

	out.Grow(textLen)

	for i < textLen {
		ch := sqlText[i]

		switch {
		case ch == '\'':
			inQuote = !inQuote
			out.WriteByte(ch)
			i++
		case !inQuote && ch == ':' && i+1 < textLen && sqlText[i+1] == ':':
			// Cast operator, not a placeholder.
			out.WriteString("::")
			i += 2
		case !inQuote && ch == ':' && i+1 < textLen && isIdentRune(sqlText[i+1]):
			start := i + 1
			end := start

			for end < textLen && isIdentRune(sqlText[end]) {
				end++
			}

			out.WriteString(placeholderFor(len(names)))
			names = append(names, sqlText[i:end])
			i = end
		default:
			out.WriteByte(ch)
			i++
		}
	}

	return out.String(), names
}

// OrderedArgs resolves a parameter map into the positional argument slice
// matching the names returned by RewriteNamedParams. A placeholder with no
// entry in the map resolves to an error string via the returned missing
// list instead of a silent nil bind.
func OrderedArgs(names []string, params map[string]any) (args []any, missing []string) {
	args = make([]any, 0, len(names))

	for _, name := range names {
		value, ok := params[name]
		if !ok {
			missing = append(missing, name)
			continue
		}

		args = append(args, value)
	}

	return args, missing
}

func isIdentRune(ch byte) bool {
	return ch == '_' ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9')
}
