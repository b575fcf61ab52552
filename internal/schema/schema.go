// Package schema はテーブル定義（カラムのホワイトリスト）を表します。
package schema

import "strings"

// Class はカラム型の大分類です。
type Class int

const (
	ClassOther Class = iota
	ClassText
	ClassNumeric
)

// Column はカラム1件の定義です。
type Column struct {
	Name       string
	Type       string
	Class      Class
	PrimaryKey bool
}

// IsText は文字列型のカラムかどうかを返します。
func (c Column) IsText() bool {
	return c.Class == ClassText
}

// Table はテーブル名と許可カラムの一覧です。
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey string
}

// NewTable はカラム一覧から Table を作成し、主キーを決定します。
func NewTable(name string, columns []Column) Table {
	t := Table{Name: name, Columns: columns}
	for _, c := range columns {
		if c.PrimaryKey {
			t.PrimaryKey = c.Name
			break
		}
	}
	return t
}

// Column は名前でカラムを引きます。
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Has はカラムが許可リストに含まれるかどうかを返します。
func (t Table) Has(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Classify は SQL の型名を大分類に変換します。
func Classify(sqlType string) Class {
	d := strings.ToLower(sqlType)
	switch {
	case strings.Contains(d, "char"), strings.Contains(d, "text"):
		return ClassText
	case strings.Contains(d, "int"), strings.Contains(d, "numeric"), strings.Contains(d, "decimal"),
		strings.Contains(d, "real"), strings.Contains(d, "double"), strings.Contains(d, "float"):
		return ClassNumeric
	default:
		return ClassOther
	}
}
