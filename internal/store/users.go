package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// User はログインに使うユーザー情報です。
type User struct {
	ID       int64  `db:"id"`
	Username string `db:"username"`
	Nickname string `db:"nickname"`
	Avatar   string `db:"avatar"`
	Email    string `db:"email"`
	Mobile   string `db:"mobile"`
	Password string `db:"password"`
}

var userColumns = []string{
	"id",
	"username",
	"COALESCE(nickname, '') AS nickname",
	"COALESCE(avatar, '') AS avatar",
	"COALESCE(email, '') AS email",
	"COALESCE(mobile, '') AS mobile",
	"COALESCE(password, '') AS password",
}

// UserRepository はユーザーテーブルへのアクセスを提供します。
type UserRepository struct {
	pool    PoolOps
	scanner Scanner
	table   string
}

// NewUserRepository は UserRepository を作成します。
func NewUserRepository(pool PoolOps, scanner Scanner, table string) *UserRepository {
	if table == "" {
		table = "users"
	}
	return &UserRepository{pool: pool, scanner: scanner, table: table}
}

// FindUser は ID でユーザーを取得します。存在しない場合は nil を返します。
func (r *UserRepository) FindUser(ctx context.Context, id int64) (*User, error) {
	return r.findOne(ctx, sq.Eq{"id": id})
}

// FindUserByUsername はユーザー名でユーザーを取得します。存在しない場合は nil を返します。
func (r *UserRepository) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, sq.Eq{"username": username})
}

// TouchLogin は最終ログインIPと日時を記録します。
func (r *UserRepository) TouchLogin(ctx context.Context, id int64, ip string, at time.Time) error {
	query, args, err := psql.Update(quoteTable(r.table)).
		Set("last_ip", ip).
		Set("last_time", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record login of user %d: %w", id, err)
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, cond sq.Sqlizer) (*User, error) {
	query, args, err := psql.Select(userColumns...).
		From(quoteTable(r.table)).
		Where(cond).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	defer rows.Close()

	var user User
	if err := r.scanner.ScanOne(&user, rows); err != nil {
		if r.scanner.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}
