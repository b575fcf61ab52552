// Package store は PostgreSQL への永続化処理を提供します。
package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Row は1行分のカラム名と値です。
type Row = map[string]any

// Query は検索対象のテーブルと条件です。
type Query struct {
	Table   string
	Where   []sq.Sqlizer
	OrderBy []string
}

// AddWhere は条件を追加します。
func (q *Query) AddWhere(cond sq.Sqlizer) {
	q.Where = append(q.Where, cond)
}

func (q Query) apply(b sq.SelectBuilder) sq.SelectBuilder {
	for _, w := range q.Where {
		b = b.Where(w)
	}
	return b
}

// PoolOps はデータベース操作のインターフェースです。テストでは pgxmock を注入します。
type PoolOps interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
