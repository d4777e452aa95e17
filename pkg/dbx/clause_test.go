package dbx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcodd23/go-db-core/pkg/dbx"
	"github.com/marcodd23/go-db-core/pkg/errorx"
)

// bareQuoter passes identifiers through unchanged, so assertions read like
// the SQL an engine without mandatory quoting would see.
type bareQuoter struct{}

func (bareQuoter) QuoteIdentifier(name string) string { return name }

func TestBuildWhereSingleCondition(t *testing.T) {
	fragment, err := dbx.BuildWhere(bareQuoter{}, dbx.Filter(dbx.Eq("status", "active")))
	require.NoError(t, err)
	assert.Equal(t, " WHERE status = :status", fragment)

	params := dbx.BuildParams(dbx.Filter(dbx.Eq("status", "active")))
	assert.Equal(t, map[string]any{":status": "active"}, params)
}

func TestBuildWhereMultipleConditionsKeepOrder(t *testing.T) {
	conds := dbx.Filter(
		dbx.Eq("status", "active"),
		dbx.Eq("age", 30),
		dbx.Eq("city", "Milan"),
	)

	fragment, err := dbx.BuildWhere(bareQuoter{}, conds)
	require.NoError(t, err)
	assert.Equal(t, " WHERE status = :status AND age = :age AND city = :city", fragment)

	params := dbx.BuildParams(conds)
	assert.Equal(t, map[string]any{":status": "active", ":age": 30, ":city": "Milan"}, params)
}

func TestBuildWhereAllRowsSentinel(t *testing.T) {
	fragment, err := dbx.BuildWhere(bareQuoter{}, dbx.AllRows())
	require.NoError(t, err)
	assert.Equal(t, "", fragment)

	assert.Nil(t, dbx.BuildParams(dbx.AllRows()))
}

func TestBuildWhereEmptySetRejected(t *testing.T) {
	var invalidInput *errorx.InvalidInputError

	// The zero value is neither the sentinel nor a filter.
	_, err := dbx.BuildWhere(bareQuoter{}, dbx.Conditions{})
	require.ErrorAs(t, err, &invalidInput)

	_, err = dbx.BuildWhere(bareQuoter{}, dbx.Filter())
	require.ErrorAs(t, err, &invalidInput)
}

func TestBuildWhereRejectsRawSQLKeys(t *testing.T) {
	var invalidInput *errorx.InvalidInputError

	for _, key := range []string{"", "status = 1 OR 1=1 --", "a;drop table users", "sta tus"} {
		_, err := dbx.BuildWhere(bareQuoter{}, dbx.Filter(dbx.Eq(key, "x")))
		assert.ErrorAs(t, err, &invalidInput, "key %q should be rejected", key)
	}
}

func TestBuildWhereNowLiteral(t *testing.T) {
	conds := dbx.Filter(dbx.Eq("modified", "NOW()"), dbx.Eq("status", "active"))

	fragment, err := dbx.BuildWhere(bareQuoter{}, conds)
	require.NoError(t, err)
	assert.Equal(t, " WHERE modified = NOW() AND status = :status", fragment)

	// The literal lives in the text, never in the binding, regardless of case.
	params := dbx.BuildParams(dbx.Filter(dbx.Eq("modified", "now()"), dbx.Eq("status", "active")))
	assert.Equal(t, map[string]any{":status": "active"}, params)
}

func TestNowLiteralOnlyMatchesTheExactToken(t *testing.T) {
	for _, value := range []string{"NOW() ", "now()x", "CURRENT_TIMESTAMP", "RAND()"} {
		params := dbx.BuildParams(dbx.Filter(dbx.Eq("col", value)))
		assert.Equal(t, map[string]any{":col": value}, params, "value %q must be bound, not inlined", value)
	}
}

func TestBuildParamsStripsPlaceholderNames(t *testing.T) {
	// BuildParams derives placeholders the same way BuildWhere does, so a
	// column that would not survive validation still strips to identifier
	// runes only.
	params := dbx.BuildParams(dbx.Filter(dbx.Pair{Column: "weird-col", Value: 1}))
	assert.Equal(t, map[string]any{":weirdcol": 1}, params)
}

func TestBuildOrderSingleColumn(t *testing.T) {
	fragment, err := dbx.BuildOrder(bareQuoter{}, dbx.OrderBy("name"))
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY name", fragment)
}

func TestBuildOrderUnordered(t *testing.T) {
	fragment, err := dbx.BuildOrder(bareQuoter{}, dbx.Unordered())
	require.NoError(t, err)
	assert.Equal(t, "", fragment)

	// Zero value means no ordering as well.
	fragment, err = dbx.BuildOrder(bareQuoter{}, dbx.Order{})
	require.NoError(t, err)
	assert.Equal(t, "", fragment)
}

func TestBuildOrderColumnDirectionPairs(t *testing.T) {
	fragment, err := dbx.BuildOrder(bareQuoter{}, dbx.OrderByColumns(dbx.Asc("name"), dbx.ByColumn("id")))
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY name ASC, id", fragment)

	fragment, err = dbx.BuildOrder(bareQuoter{}, dbx.OrderByColumns(dbx.Desc("created"), dbx.Asc("id")))
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY created DESC, id ASC", fragment)
}

func TestBuildOrderRejectsUnknownDirection(t *testing.T) {
	var invalidInput *errorx.InvalidInputError

	_, err := dbx.BuildOrder(bareQuoter{}, dbx.OrderByColumns(dbx.OrderPair{Column: "name", Dir: dbx.Direction("SIDEWAYS")}))
	require.ErrorAs(t, err, &invalidInput)
}

func TestParseDirection(t *testing.T) {
	cases := []struct {
		token string
		want  dbx.Direction
	}{
		{"", dbx.DirectionNone},
		{"asc", dbx.DirectionAsc},
		{"ASC", dbx.DirectionAsc},
		{" desc ", dbx.DirectionDesc},
		{"DESC", dbx.DirectionDesc},
	}

	for _, tc := range cases {
		dir, err := dbx.ParseDirection(tc.token)
		require.NoError(t, err, "token %q", tc.token)
		assert.Equal(t, tc.want, dir)
	}

	var invalidInput *errorx.InvalidInputError

	_, err := dbx.ParseDirection("descending")
	require.ErrorAs(t, err, &invalidInput)
}

func TestBuildFieldListWildcard(t *testing.T) {
	fragment, err := dbx.BuildFieldList(bareQuoter{}, dbx.AllColumns())
	require.NoError(t, err)
	assert.Equal(t, "*", fragment)

	// Zero value is the wildcard.
	fragment, err = dbx.BuildFieldList(bareQuoter{}, dbx.Fields{})
	require.NoError(t, err)
	assert.Equal(t, "*", fragment)
}

func TestBuildFieldListRawFragment(t *testing.T) {
	fragment, err := dbx.BuildFieldList(bareQuoter{}, dbx.RawFields("COUNT(*)"))
	require.NoError(t, err)
	assert.Equal(t, "COUNT(*)", fragment)
}

func TestBuildFieldListIsIdempotentForSingleIdentifier(t *testing.T) {
	first, err := dbx.BuildFieldList(bareQuoter{}, dbx.RawFields("name"))
	require.NoError(t, err)

	second, err := dbx.BuildFieldList(bareQuoter{}, dbx.RawFields(first))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildFieldListColumnSequence(t *testing.T) {
	fragment, err := dbx.BuildFieldList(newFakeConn(), dbx.Columns("id", "name", "status"))
	require.NoError(t, err)
	assert.Equal(t, "`id`, `name`, `status`", fragment)
}

func TestBuildFieldListRejectsBadShapes(t *testing.T) {
	var invalidInput *errorx.InvalidInputError

	_, err := dbx.BuildFieldList(bareQuoter{}, dbx.Columns())
	require.ErrorAs(t, err, &invalidInput)

	_, err = dbx.BuildFieldList(bareQuoter{}, dbx.Columns("id", "na me"))
	require.ErrorAs(t, err, &invalidInput)

	_, err = dbx.BuildFieldList(bareQuoter{}, dbx.RawFields(""))
	require.ErrorAs(t, err, &invalidInput)
}

func TestPlaceholdersMatchParamKeys(t *testing.T) {
	// For every valid condition set, the placeholder set in the text equals
	// the key set of the parameter mapping, NOW() literals excepted.
	condSets := []dbx.Conditions{
		dbx.Filter(dbx.Eq("a", 1)),
		dbx.Filter(dbx.Eq("a", 1), dbx.Eq("b", "x"), dbx.Eq("c", nil)),
		dbx.Filter(dbx.Eq("a", 1), dbx.Eq("ts", "NOW()")),
	}

	for _, conds := range condSets {
		fragment, err := dbx.BuildWhere(bareQuoter{}, conds)
		require.NoError(t, err)

		params := dbx.BuildParams(conds)

		_, names := dbx.RewriteNamedParams(fragment, func(pos int) string { return "?" })
		assert.Len(t, names, len(params))

		for _, name := range names {
			assert.Contains(t, params, name)
		}
	}
}
