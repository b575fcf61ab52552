package store_test

import (
	"context"
	"errors"
	"math"
	"regexp"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/user-kit/internal/apperr"
	"github.com/yourusername/user-kit/internal/logger"
	"github.com/yourusername/user-kit/internal/store"
)

func runRepoTest(t *testing.T, setupMock func(pgxmock.PgxPoolIface), testFn func(*testing.T, *store.Repository)) {
	t.Helper()
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	setupMock(mock)

	repo := store.NewRepository(mock, store.NewPgxScanner(), logger.NewTestLogger())
	testFn(t, repo)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Describe(t *testing.T) {
	runRepoTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta("SELECT c.column_name, c.data_type")).
				WithArgs("", "users").
				WillReturnRows(pgxmock.NewRows([]string{"column_name", "data_type", "is_pk"}).
					AddRow("id", "bigint", true).
					AddRow("username", "character varying", false).
					AddRow("created_at", "timestamp without time zone", false))
		},
		func(t *testing.T, repo *store.Repository) {
			table, err := repo.Describe(context.Background(), "users")
			require.NoError(t, err)
			require.Equal(t, "id", table.PrimaryKey)
			require.Len(t, table.Columns, 3)

			col, ok := table.Column("username")
			require.True(t, ok)
			require.True(t, col.IsText())
		},
	)
}

func TestRepository_DescribeMissingTable(t *testing.T) {
	runRepoTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta("SELECT c.column_name, c.data_type")).
				WithArgs("", "ghost").
				WillReturnRows(pgxmock.NewRows([]string{"column_name", "data_type", "is_pk"}))
		},
		func(t *testing.T, repo *store.Repository) {
			_, err := repo.Describe(context.Background(), "ghost")
			require.ErrorIs(t, err, apperr.ErrResourceNotFound)
		},
	)
}

func TestRepository_DescribeQualifiedTable(t *testing.T) {
	runRepoTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta("SELECT c.column_name, c.data_type")).
				WithArgs("public", "users").
				WillReturnRows(pgxmock.NewRows([]string{"column_name", "data_type", "is_pk"}).
					AddRow("id", "bigint", true))
		},
		func(t *testing.T, repo *store.Repository) {
			table, err := repo.Describe(context.Background(), "public.users")
			require.NoError(t, err)
			require.Equal(t, "public.users", table.Name)
			require.Equal(t, "id", table.PrimaryKey)
		},
	)
}

func TestRepository_PaginateBeyondLastPage(t *testing.T) {
	runRepoTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "users"`)).
				WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))
		},
		func(t *testing.T, repo *store.Repository) {
			rows, total, err := repo.Paginate(context.Background(), store.Query{Table: "users"}, math.MaxInt, 10)
			require.NoError(t, err)
			require.Equal(t, int64(7), total)
			require.Empty(t, rows)
		},
	)
}

func TestRepository_Paginate(t *testing.T) {
	runRepoTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "users" WHERE "name" LIKE $1`)).
				WithArgs("%admin%").
				WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "name" LIKE $1 ORDER BY "id" DESC LIMIT 5 OFFSET 5`)).
				WithArgs("%admin%").
				WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).
					AddRow(int64(2), "admin2").
					AddRow(int64(1), "admin1"))
		},
		func(t *testing.T, repo *store.Repository) {
			rows, total, err := repo.Paginate(context.Background(), store.Query{
				Table:   "users",
				Where:   []sq.Sqlizer{sq.Like{`"name"`: "%admin%"}},
				OrderBy: []string{`"id" DESC`},
			}, 2, 5)
			require.NoError(t, err)
			require.Equal(t, int64(7), total)
			require.Len(t, rows, 2)
			require.Equal(t, "admin2", rows[0]["name"])
		},
	)
}

func TestRepository_FirstNoRows(t *testing.T) {
	runRepoTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "id" = $1 LIMIT 1`)).
				WithArgs(int64(9)).
				WillReturnRows(pgxmock.NewRows([]string{"id"}))
		},
		func(t *testing.T, repo *store.Repository) {
			row, err := repo.Find(context.Background(), "users", "id", int64(9))
			require.NoError(t, err)
			require.Nil(t, row)
		},
	)
}

func TestRepository_InsertReturningKey(t *testing.T) {
	runRepoTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "articles" ("title","user_id") VALUES ($1,$2) RETURNING "id"`)).
				WithArgs("hello", int64(3)).
				WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
		},
		func(t *testing.T, repo *store.Repository) {
			id, err := repo.Insert(context.Background(), "articles", map[string]any{
				"title":   "hello",
				"user_id": int64(3),
			}, "id")
			require.NoError(t, err)
			require.Equal(t, int64(11), id)
		},
	)
}

func TestRepository_Update(t *testing.T) {
	runRepoTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE "articles" SET "title" = $1 WHERE "id" = $2`)).
				WithArgs("renamed", "4").
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		},
		func(t *testing.T, repo *store.Repository) {
			err := repo.Update(context.Background(), "articles", "id", "4", map[string]any{"title": "renamed"})
			require.NoError(t, err)
		},
	)
}

func TestRepository_PluckAndDestroy(t *testing.T) {
	runRepoTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT "user_id" FROM "articles" WHERE "id" IN ($1,$2)`)).
				WithArgs("1", "2").
				WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(int64(3)).AddRow(int64(3)))
			mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "articles" WHERE "id" IN ($1,$2)`)).
				WithArgs("1", "2").
				WillReturnResult(pgxmock.NewResult("DELETE", 2))
		},
		func(t *testing.T, repo *store.Repository) {
			ids := []any{"1", "2"}
			owners, err := repo.Pluck(context.Background(), "articles", "user_id", "id", ids)
			require.NoError(t, err)
			require.Equal(t, []any{int64(3), int64(3)}, owners)

			count, err := repo.Destroy(context.Background(), "articles", "id", ids)
			require.NoError(t, err)
			require.Equal(t, int64(2), count)
		},
	)
}

func TestRepository_DestroyError(t *testing.T) {
	runRepoTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "articles" WHERE "id" IN ($1)`)).
				WithArgs("1").
				WillReturnError(errors.New("connection reset"))
		},
		func(t *testing.T, repo *store.Repository) {
			_, err := repo.Destroy(context.Background(), "articles", "id", []any{"1"})
			require.Error(t, err)
			require.Contains(t, err.Error(), "connection reset")
		},
	)
}

func TestUserRepository_TouchLogin(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2025, 1, 22, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET last_ip = $1, last_time = $2 WHERE id = $3`)).
		WithArgs("10.0.0.1", at, int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := store.NewUserRepository(mock, store.NewPgxScanner(), "users")
	require.NoError(t, repo.TouchLogin(context.Background(), 5, "10.0.0.1", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindUserByUsername(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	columns := []string{"id", "username", "nickname", "avatar", "email", "mobile", "password"}
	mock.ExpectQuery(`FROM "users" WHERE username = \$1 LIMIT 1`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(columns).AddRow(int64(3), "alice", "Alice", "", "alice@example.com", "", "hash"))
	mock.ExpectQuery(`FROM "users" WHERE username = \$1 LIMIT 1`).
		WithArgs("nobody").
		WillReturnRows(pgxmock.NewRows(columns))

	repo := store.NewUserRepository(mock, store.NewPgxScanner(), "")

	user, err := repo.FindUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, int64(3), user.ID)
	require.Equal(t, "alice@example.com", user.Email)

	user, err = repo.FindUserByUsername(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, user)

	require.NoError(t, mock.ExpectationsWereMet())
}
