package crud

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/user-kit/internal/schema"
)

func usersTable() schema.Table {
	return schema.NewTable("users", []schema.Column{
		{Name: "id", Type: "bigint", Class: schema.ClassNumeric, PrimaryKey: true},
		{Name: "name", Type: "character varying", Class: schema.ClassText},
		{Name: "age", Type: "integer", Class: schema.ClassNumeric},
		{Name: "user_id", Type: "bigint", Class: schema.ClassNumeric},
		{Name: "deleted_at", Type: "timestamp without time zone", Class: schema.ClassOther},
		{Name: "created_at", Type: "timestamp without time zone", Class: schema.ClassOther},
	})
}

func whereSQL(t *testing.T, spec SelectSpec) (string, []any) {
	t.Helper()
	and := sq.And{}
	for _, w := range spec.Where() {
		and = append(and, w)
	}
	sql, args, err := and.ToSql()
	require.NoError(t, err)
	return sql, args
}

func TestCompileLikeWithPagination(t *testing.T) {
	in := Input{
		"name":  []string{"like", "admin"},
		"page":  "2",
		"limit": "5",
	}

	spec, err := Compile(in, usersTable(), nil)
	require.NoError(t, err)

	require.Len(t, spec.Clauses, 1)
	require.Equal(t, Clause{Column: "name", Op: OpLike, Value: "%admin%"}, spec.Clauses[0])
	require.Equal(t, 2, spec.Page)
	require.Equal(t, 5, spec.Limit)
	require.Equal(t, "id", spec.Field)
	require.Equal(t, OrderDesc, spec.Order)
	require.Equal(t, FormatNormal, spec.Format)
	require.Equal(t, []string{`"id" DESC`}, spec.OrderBy())

	sql, args := whereSQL(t, spec)
	require.Equal(t, `("name" LIKE ?)`, sql)
	require.Equal(t, []any{"%admin%"}, args)
}

func TestCompileDefaults(t *testing.T) {
	tests := []struct {
		name      string
		in        Input
		wantPage  int
		wantLimit int
		wantOrder string
	}{
		{name: "empty", in: Input{}, wantPage: 1, wantLimit: 10, wantOrder: OrderDesc},
		{name: "tree limit", in: Input{"format": "tree"}, wantPage: 1, wantLimit: 500, wantOrder: OrderDesc},
		{name: "non positive limit", in: Input{"limit": "-3", "page": "0"}, wantPage: 1, wantLimit: 10, wantOrder: OrderDesc},
		{name: "garbage numbers", in: Input{"limit": "abc", "page": "x"}, wantPage: 1, wantLimit: 10, wantOrder: OrderDesc},
		{name: "asc with field", in: Input{"field": "name", "order": "asc"}, wantPage: 1, wantLimit: 10, wantOrder: OrderAsc},
		{name: "unknown order", in: Input{"field": "name", "order": "ASC"}, wantPage: 1, wantLimit: 10, wantOrder: OrderDesc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Compile(tt.in, usersTable(), nil)
			require.NoError(t, err)
			require.Equal(t, tt.wantPage, spec.Page)
			require.Equal(t, tt.wantLimit, spec.Limit)
			require.Equal(t, tt.wantOrder, spec.Order)
		})
	}
}

func TestCompileSortField(t *testing.T) {
	spec, err := Compile(Input{"field": "age", "order": "asc"}, usersTable(), nil)
	require.NoError(t, err)
	require.Equal(t, []string{`"age" ASC`}, spec.OrderBy())

	spec, err = Compile(Input{"field": "password", "order": "asc"}, usersTable(), nil)
	require.NoError(t, err)
	require.Equal(t, "id", spec.Field)
	require.Equal(t, OrderDesc, spec.Order)
}

func TestCompileDropsInvalidKeys(t *testing.T) {
	in := Input{
		"name":     "",
		"password": "secret",
		"age":      []string{">"},
		"user_id":  []string{},
		"format":   "select",
	}

	spec, err := Compile(in, usersTable(), nil)
	require.NoError(t, err)
	require.Empty(t, spec.Clauses)
	require.Equal(t, FormatSelect, spec.Format)
}

func TestCompileOperators(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		wantSQL  string
		wantArgs []any
	}{
		{name: "scalar", value: "30", wantSQL: `("age" = ?)`, wantArgs: []any{"30"}},
		{name: "greater", value: []string{">", "18"}, wantSQL: `("age" > ?)`, wantArgs: []any{"18"}},
		{name: "not equal", value: []string{"<>", "18"}, wantSQL: `("age" <> ?)`, wantArgs: []any{"18"}},
		{name: "in", value: []string{"in", "1,2,3"}, wantSQL: `("age" IN (?,?,?))`, wantArgs: []any{"1", "2", "3"}},
		{name: "not in", value: []string{"not in", "4"}, wantSQL: `("age" NOT IN (?))`, wantArgs: []any{"4"}},
		{name: "null", value: []string{"null"}, wantSQL: `("age" IS NULL)`},
		{name: "not null ignores operand", value: []string{"not null", "x"}, wantSQL: `("age" IS NOT NULL)`},
		{name: "between", value: []string{"10", "20"}, wantSQL: `("age" BETWEEN ? AND ?)`, wantArgs: []any{"10", "20"}},
		{name: "like casts numeric", value: []string{"like", "3"}, wantSQL: `("age"::text LIKE ?)`, wantArgs: []any{"%3%"}},
		{name: "not like casts numeric", value: []string{"not like", "3"}, wantSQL: `("age"::text NOT LIKE ?)`, wantArgs: []any{"%3%"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Compile(Input{"age": tt.value}, usersTable(), nil)
			require.NoError(t, err)
			sql, args := whereSQL(t, spec)
			require.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				require.Empty(t, args)
			} else {
				require.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestCompileLikeOnTimestampCastsToText(t *testing.T) {
	spec, err := Compile(Input{"created_at": []string{"like", "2024-01"}}, usersTable(), nil)
	require.NoError(t, err)
	sql, args := whereSQL(t, spec)
	require.Equal(t, `("created_at"::text LIKE ?)`, sql)
	require.Equal(t, []any{"%2024-01%"}, args)
}

func TestCompileListWithoutClause(t *testing.T) {
	// in・比較演算子に空の値、範囲指定の片側が空の場合は条件を作らない
	for _, v := range [][]string{{"in", ""}, {"not in", ""}, {"", "5"}, {"5", ""}, {">", ""}, {"<>", ""}} {
		spec, err := Compile(Input{"age": v}, usersTable(), nil)
		require.NoError(t, err)
		require.Empty(t, spec.Clauses, "input %q", v)
	}
}

func TestCompileNilValueIsNull(t *testing.T) {
	spec, err := Compile(Input{"deleted_at": nil}, usersTable(), nil)
	require.NoError(t, err)
	require.Equal(t, []Clause{{Column: "deleted_at", Op: OpNull}}, spec.Clauses)
}

func TestCompileScopeOverridesClient(t *testing.T) {
	in := Input{
		"user_id": "99",
		"name":    []string{"like", "a"},
	}
	spec, err := Compile(in, usersTable(), &Scope{Field: "user_id", UserID: 7})
	require.NoError(t, err)

	require.Len(t, spec.Clauses, 2)
	last := spec.Clauses[len(spec.Clauses)-1]
	require.Equal(t, Clause{Column: "user_id", Op: OpEquals, Value: int64(7)}, last)

	sql, args := whereSQL(t, spec)
	require.Equal(t, `("name" LIKE ? AND "user_id" = ?)`, sql)
	require.Equal(t, []any{"%a%", int64(7)}, args)
}

func TestCompileUnknownTable(t *testing.T) {
	_, err := Compile(Input{}, schema.Table{Name: "ghost"}, nil)
	require.Error(t, err)
}

func TestFilterPayload(t *testing.T) {
	in := Input{
		"name":       "",
		"age":        "",
		"user_id":    []string{"1", "2"},
		"password":   "x",
		"created_at": "",
	}
	data, err := FilterPayload(in, usersTable())
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"name":    "",
		"age":     nil,
		"user_id": "1,2",
	}, data)
}
