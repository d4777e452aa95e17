package dbx

import (
	"regexp"
	"strings"

	"github.com/marcodd23/go-db-core/pkg/errorx"
)

// nowLiteral is the one value that is emitted into the statement text as a
// literal instead of being bound as a parameter. The comparison is
// case-insensitive and must only ever match this exact token; it is a
// narrowly scoped passthrough rule, not a general "detect SQL functions in
// values" mechanism.
const nowLiteral = "NOW()"

// identifierRegex validates table and column names: letters, digits and
// underscore, starting with a letter or underscore.
var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// placeholderStripRegex removes every rune that is not legal in a
// placeholder name, so a hostile column name cannot inject into the
// placeholder either.
var placeholderStripRegex = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// Pair is one column/value entry of a condition set or value set.
type Pair struct {
	Column string
	Value  any
}

// Eq builds a condition entry: column equals value.
func Eq(column string, value any) Pair {
	return Pair{Column: column, Value: value}
}

// Set builds a value entry for INSERT/UPDATE column sets.
func Set(column string, value any) Pair {
	return Pair{Column: column, Value: value}
}

// Conditions is a structured filter: either the explicit "no filter"
// sentinel built by AllRows, or an ordered, non-empty set of equality pairs
// built by Filter. The zero value is neither and is rejected by the
// builder, so callers must always say which one they mean.
type Conditions struct {
	all   bool
	pairs []Pair
}

// AllRows is the explicit no-filter sentinel: the WHERE clause is omitted
// entirely and the statement matches all rows.
func AllRows() Conditions {
	return Conditions{all: true}
}

// Filter builds an ordered condition set from the given pairs.
func Filter(pairs ...Pair) Conditions {
	return Conditions{pairs: pairs}
}

// IsAllRows reports whether this is the no-filter sentinel.
func (c Conditions) IsAllRows() bool {
	return c.all
}

// Pairs returns the ordered condition entries.
func (c Conditions) Pairs() []Pair {
	return c.pairs
}

// Values is the ordered column set of an INSERT or UPDATE.
type Values []Pair

// Fields selects the columns of a SELECT: the wildcard, a raw caller-trusted
// fragment, or an ordered list of identifiers. The zero value is the
// wildcard.
type Fields struct {
	kind fieldsKind
	raw  string
	cols []string
}

type fieldsKind int

const (
	fieldsAll fieldsKind = iota
	fieldsRaw
	fieldsList
)

// AllColumns selects every column (`*`).
func AllColumns() Fields {
	return Fields{kind: fieldsAll}
}

// RawFields passes the fragment through verbatim. The caller is trusted;
// this exists for expressions like COUNT(*) and is never fed user input.
func RawFields(expr string) Fields {
	return Fields{kind: fieldsRaw, raw: expr}
}

// Columns selects the named columns, each escaped as an identifier.
func Columns(names ...string) Fields {
	return Fields{kind: fieldsList, cols: names}
}

// Direction is a validated ORDER BY direction token.
type Direction string

const (
	// DirectionNone leaves the direction unspecified for a column.
	DirectionNone Direction = ""
	// DirectionAsc sorts ascending.
	DirectionAsc Direction = "ASC"
	// DirectionDesc sorts descending.
	DirectionDesc Direction = "DESC"
)

// ParseDirection validates a direction token against the fixed enumeration.
// An unrecognized token is a construction error, not a silent fallback.
func ParseDirection(token string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "":
		return DirectionNone, nil
	case "ASC":
		return DirectionAsc, nil
	case "DESC":
		return DirectionDesc, nil
	default:
		return DirectionNone, errorx.NewInvalidInputError("unrecognized order direction '%s'", token)
	}
}

// OrderPair is one column/direction entry of an order specification.
type OrderPair struct {
	Column string
	Dir    Direction
}

// Asc orders by the column ascending.
func Asc(column string) OrderPair {
	return OrderPair{Column: column, Dir: DirectionAsc}
}

// Desc orders by the column descending.
func Desc(column string) OrderPair {
	return OrderPair{Column: column, Dir: DirectionDesc}
}

// ByColumn orders by the column with the direction left unspecified.
func ByColumn(column string) OrderPair {
	return OrderPair{Column: column}
}

// Order is an order specification: empty, a single column, or an ordered
// sequence of column/direction pairs. The zero value means no ordering.
type Order struct {
	kind   orderKind
	column string
	pairs  []OrderPair
}

type orderKind int

const (
	orderNone orderKind = iota
	orderSingle
	orderPairs
)

// Unordered omits the ORDER BY clause entirely.
func Unordered() Order {
	return Order{kind: orderNone}
}

// OrderBy orders by a single column.
func OrderBy(column string) Order {
	return Order{kind: orderSingle, column: column}
}

// OrderByColumns orders by the given column/direction pairs in order.
func OrderByColumns(pairs ...OrderPair) Order {
	return Order{kind: orderPairs, pairs: pairs}
}

// BuildWhere turns a condition set into a WHERE fragment.
//
// The no-filter sentinel yields the empty string (the statement matches all
// rows). Otherwise the set must be non-empty; each entry becomes
// `escaped_identifier = :placeholder`, joined with ` AND ` and prefixed
// with ` WHERE `. A value equal to the NOW() literal is emitted directly
// into the text instead of a placeholder.
//
// Every key must be a valid identifier. Raw SQL fragments as keys are
// rejected with an InvalidInputError; that is a deliberate hardening, the
// only raw surface is RawFields and the executor's raw escape hatch.
func BuildWhere(q Quoter, conds Conditions) (string, error) {
	if conds.IsAllRows() {
		return "", nil
	}

	if len(conds.pairs) == 0 {
		return "", errorx.NewInvalidInputError("condition set is empty; use the explicit no-filter sentinel to match all rows")
	}

	terms := make([]string, 0, len(conds.pairs))

	for _, pair := range conds.pairs {
		if err := validateIdentifier(pair.Column); err != nil {
			return "", err
		}

		if isNowLiteral(pair.Value) {
			terms = append(terms, q.QuoteIdentifier(pair.Column)+" = "+nowLiteral)
			continue
		}

		terms = append(terms, q.QuoteIdentifier(pair.Column)+" = "+placeholder(pair.Column))
	}

	return " WHERE " + strings.Join(terms, " AND "), nil
}

// BuildParams turns a condition set into the parameter mapping matching
// BuildWhere's placeholders. The no-filter sentinel (and a set consisting
// only of NOW() literals) yields nil, the no-params sentinel. NOW() literal
// entries are skipped: they live in the statement text, not in the binding.
func BuildParams(conds Conditions) map[string]any {
	if conds.IsAllRows() || len(conds.pairs) == 0 {
		return nil
	}

	return paramsForPairs(conds.pairs)
}

// BuildOrder turns an order specification into an ORDER BY fragment. The
// empty specification yields the empty string. Directions are validated
// against the fixed enumeration; an unrecognized direction fails with an
// InvalidInputError.
func BuildOrder(q Quoter, order Order) (string, error) {
	switch order.kind {
	case orderNone:
		return "", nil
	case orderSingle:
		if err := validateIdentifier(order.column); err != nil {
			return "", err
		}

		return " ORDER BY " + q.QuoteIdentifier(order.column), nil
	case orderPairs:
		if len(order.pairs) == 0 {
			return "", errorx.NewInvalidInputError("order specification is empty")
		}

		terms := make([]string, 0, len(order.pairs))

		for _, pair := range order.pairs {
			if err := validateIdentifier(pair.Column); err != nil {
				return "", err
			}

			switch pair.Dir {
			case DirectionNone:
				terms = append(terms, q.QuoteIdentifier(pair.Column))
			case DirectionAsc, DirectionDesc:
				terms = append(terms, q.QuoteIdentifier(pair.Column)+" "+string(pair.Dir))
			default:
				return "", errorx.NewInvalidInputError("unrecognized order direction '%s' for column '%s'", string(pair.Dir), pair.Column)
			}
		}

		return " ORDER BY " + strings.Join(terms, ", "), nil
	default:
		return "", errorx.NewInvalidInputError("unrecognized order specification")
	}
}

// BuildFieldList turns a field specification into the column list of a
// SELECT. The wildcard yields `*`, a raw fragment passes through verbatim,
// and a column list is escaped identifier by identifier.
func BuildFieldList(q Quoter, fields Fields) (string, error) {
	switch fields.kind {
	case fieldsAll:
		return "*", nil
	case fieldsRaw:
		if fields.raw == "" {
			return "", errorx.NewInvalidInputError("raw field fragment is empty")
		}

		return fields.raw, nil
	case fieldsList:
		if len(fields.cols) == 0 {
			return "", errorx.NewInvalidInputError("field list is empty")
		}

		escaped := make([]string, 0, len(fields.cols))

		for _, col := range fields.cols {
			if err := validateIdentifier(col); err != nil {
				return "", err
			}

			escaped = append(escaped, q.QuoteIdentifier(col))
		}

		return strings.Join(escaped, ", "), nil
	default:
		return "", errorx.NewInvalidInputError("unrecognized field specification")
	}
}

// buildSet turns a value set into the SET clause of an UPDATE, applying the
// NOW() literal rule the same way BuildWhere does.
func buildSet(q Quoter, values Values) (string, error) {
	if len(values) == 0 {
		return "", errorx.NewInvalidInputError("value set is empty")
	}

	terms := make([]string, 0, len(values))

	for _, pair := range values {
		if err := validateIdentifier(pair.Column); err != nil {
			return "", err
		}

		if isNowLiteral(pair.Value) {
			terms = append(terms, q.QuoteIdentifier(pair.Column)+" = "+nowLiteral)
			continue
		}

		terms = append(terms, q.QuoteIdentifier(pair.Column)+" = "+placeholder(pair.Column))
	}

	return strings.Join(terms, ", "), nil
}

// paramsForPairs builds the placeholder→value mapping for a pair list,
// skipping NOW() literal entries.
func paramsForPairs(pairs []Pair) map[string]any {
	params := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		if isNowLiteral(pair.Value) {
			continue
		}

		params[placeholder(pair.Column)] = pair.Value
	}

	if len(params) == 0 {
		return nil
	}

	return params
}

// placeholder derives the named placeholder for a column, stripping every
// rune that is not legal in an identifier so the placeholder name itself
// cannot be injected into.
func placeholder(column string) string {
	return ":" + placeholderStripRegex.ReplaceAllString(column, "")
}

func validateIdentifier(name string) error {
	if name == "" {
		return errorx.NewInvalidInputError("identifier is empty")
	}

	if !identifierRegex.MatchString(name) {
		return errorx.NewInvalidInputError("invalid identifier '%s': only letters, digits and underscore are allowed", name)
	}

	return nil
}

func isNowLiteral(value any) bool {
	s, ok := value.(string)

	return ok && strings.EqualFold(s, nowLiteral)
}
