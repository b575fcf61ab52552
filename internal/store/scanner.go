package store

import (
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

// Scanner は行の読み取りを抽象化します。
type Scanner interface {
	ScanAll(dst any, rows pgx.Rows) error
	ScanOne(dst any, rows pgx.Rows) error
	IsNotFound(err error) bool
}

// PgxScanner は pgxscan による Scanner の実装です。
type PgxScanner struct{}

// NewPgxScanner は PgxScanner を作成します。
func NewPgxScanner() *PgxScanner {
	return &PgxScanner{}
}

func (s *PgxScanner) ScanAll(dst any, rows pgx.Rows) error {
	return pgxscan.ScanAll(dst, rows)
}

func (s *PgxScanner) ScanOne(dst any, rows pgx.Rows) error {
	return pgxscan.ScanOne(dst, rows)
}

func (s *PgxScanner) IsNotFound(err error) bool {
	return pgxscan.NotFound(err)
}
