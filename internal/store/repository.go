package store

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/user-kit/internal/apperr"
	"github.com/yourusername/user-kit/internal/logger"
	"github.com/yourusername/user-kit/internal/schema"
)

const describeSQL = `SELECT c.column_name, c.data_type,
       COALESCE(bool_or(tc.constraint_type = 'PRIMARY KEY'), false) AS is_pk
FROM information_schema.columns c
LEFT JOIN information_schema.key_column_usage k
  ON k.table_schema = c.table_schema AND k.table_name = c.table_name AND k.column_name = c.column_name
LEFT JOIN information_schema.table_constraints tc
  ON tc.table_schema = k.table_schema AND tc.constraint_name = k.constraint_name
WHERE c.table_schema = COALESCE(NULLIF($1, ''), current_schema()) AND c.table_name = $2
GROUP BY c.column_name, c.data_type, c.ordinal_position
ORDER BY c.ordinal_position`

// Repository は任意のテーブルに対する CRUD 操作を提供します。
type Repository struct {
	pool    PoolOps
	scanner Scanner
	logger  logger.Logger
}

// NewRepository は Repository を作成します。
func NewRepository(pool PoolOps, scanner Scanner, log logger.Logger) *Repository {
	return &Repository{
		pool:    pool,
		scanner: scanner,
		logger:  log.Component("store"),
	}
}

// Describe はテーブルのカラム一覧を毎回データベースから取得します。
// "schema.table" 形式の場合はそのスキーマを、それ以外は current_schema() を参照します。
func (r *Repository) Describe(ctx context.Context, table string) (schema.Table, error) {
	schemaName, tableName := splitTableName(table)
	rows, err := r.pool.Query(ctx, describeSQL, schemaName, tableName)
	if err != nil {
		return schema.Table{}, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var name, dataType string
		var isPK bool
		if err := rows.Scan(&name, &dataType, &isPK); err != nil {
			return schema.Table{}, fmt.Errorf("describe %s: %w", table, err)
		}
		columns = append(columns, schema.Column{
			Name:       name,
			Type:       dataType,
			Class:      schema.Classify(dataType),
			PrimaryKey: isPK,
		})
	}
	if err := rows.Err(); err != nil {
		return schema.Table{}, fmt.Errorf("describe %s: %w", table, err)
	}
	if len(columns) == 0 {
		return schema.Table{}, apperr.New(apperr.KindResourceNotFound, "table does not exist")
	}
	return schema.NewTable(table, columns), nil
}

// Paginate は条件に一致する行の件数と、指定ページの行を返します。
func (r *Repository) Paginate(ctx context.Context, q Query, page, limit int) ([]Row, int64, error) {
	countQuery, args, err := q.apply(psql.Select("COUNT(*)").From(quoteTable(q.Table))).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count rows: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	// 最終ページより後ろは問い合わせずに空を返す
	if int64(page-1) > total/int64(limit) {
		return []Row{}, total, nil
	}
	builder := q.apply(psql.Select("*").From(quoteTable(q.Table))).
		OrderBy(q.OrderBy...).
		Limit(uint64(limit)).
		Offset(uint64(page-1) * uint64(limit))

	rows, err := r.selectRows(ctx, builder)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// First は条件に一致する最初の行を返します。存在しない場合は nil です。
func (r *Repository) First(ctx context.Context, q Query) (Row, error) {
	builder := q.apply(psql.Select("*").From(quoteTable(q.Table))).
		OrderBy(q.OrderBy...).
		Limit(1)

	rows, err := r.selectRows(ctx, builder)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Find は主キーで1行を取得します。
func (r *Repository) Find(ctx context.Context, table, pk string, id any) (Row, error) {
	return r.First(ctx, Query{
		Table: table,
		Where: []sq.Sqlizer{sq.Eq{quoteIdent(pk): id}},
	})
}

// Insert は1行を登録し、主キーの値を返します。
func (r *Repository) Insert(ctx context.Context, table string, data map[string]any, pk string) (any, error) {
	builder := psql.Insert(quoteTable(table)).SetMap(quoteKeys(data))
	if pk == "" {
		query, args, err := builder.ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build insert query: %w", err)
		}
		if _, err := r.pool.Exec(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		return nil, nil
	}

	query, args, err := builder.Suffix("RETURNING " + quoteIdent(pk)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	var id any
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return id, nil
}

// Update は主キーで指定した行を更新します。
func (r *Repository) Update(ctx context.Context, table, pk string, id any, data map[string]any) error {
	query, args, err := psql.Update(quoteTable(table)).
		SetMap(quoteKeys(data)).
		Where(sq.Eq{quoteIdent(pk): id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	return nil
}

// Pluck は主キーで指定した行の column の値を返します。
func (r *Repository) Pluck(ctx context.Context, table, column, pk string, ids []any) ([]any, error) {
	query, args, err := psql.Select(quoteIdent(column)).
		From(quoteTable(table)).
		Where(sq.Eq{quoteIdent(pk): ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build pluck query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pluck %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	var values []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to pluck %s.%s: %w", table, column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Destroy は主キーで指定した行を削除し、削除件数を返します。
func (r *Repository) Destroy(ctx context.Context, table, pk string, ids []any) (int64, error) {
	query, args, err := psql.Delete(quoteTable(table)).
		Where(sq.Eq{quoteIdent(pk): ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) selectRows(ctx context.Context, builder sq.SelectBuilder) ([]Row, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	r.logger.Debug().Str("sql", query).Int("args", len(args)).Msg("select")

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []Row
	if err := r.scanner.ScanAll(&result, rows); err != nil {
		return nil, fmt.Errorf("failed to scan rows: %w", err)
	}
	return result, nil
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func splitTableName(name string) (string, string) {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func quoteTable(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func quoteKeys(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[quoteIdent(k)] = v
	}
	return out
}
