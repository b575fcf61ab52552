package crud

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/user-kit/internal/schema"
)

// Op は検索条件の演算子です。
type Op int

const (
	OpEquals Op = iota
	OpLike
	OpNotLike
	OpCompare
	OpIn
	OpNotIn
	OpNull
	OpNotNull
	OpBetween
)

var comparators = map[string]struct{}{
	">":  {},
	"=":  {},
	"<":  {},
	"<>": {},
}

// Clause はカラム1つに対する検索条件です。
type Clause struct {
	Column     string
	Op         Op
	Comparator string // OpCompare のときのみ
	Value      any    // OpEquals, OpLike, OpNotLike, OpCompare
	Values     []any  // OpIn, OpNotIn, OpBetween
	CastText   bool   // 文字列型以外のカラムに LIKE するとき text にキャストする
}

// Sqlizer は Clause を squirrel の条件式に変換します。
func (c Clause) Sqlizer() sq.Sqlizer {
	col := QuoteIdent(c.Column)
	switch c.Op {
	case OpEquals:
		return sq.Eq{col: c.Value}
	case OpLike:
		if c.CastText {
			return sq.Expr(col+"::text LIKE ?", c.Value)
		}
		return sq.Like{col: c.Value}
	case OpNotLike:
		if c.CastText {
			return sq.Expr(col+"::text NOT LIKE ?", c.Value)
		}
		return sq.NotLike{col: c.Value}
	case OpCompare:
		switch c.Comparator {
		case ">":
			return sq.Gt{col: c.Value}
		case "<":
			return sq.Lt{col: c.Value}
		case "<>":
			return sq.NotEq{col: c.Value}
		default:
			return sq.Eq{col: c.Value}
		}
	case OpIn:
		return sq.Eq{col: c.Values}
	case OpNotIn:
		return sq.NotEq{col: c.Values}
	case OpNull:
		return sq.Eq{col: nil}
	case OpNotNull:
		return sq.NotEq{col: nil}
	case OpBetween:
		return sq.Expr(col+" BETWEEN ? AND ?", c.Values[0], c.Values[1])
	}
	return nil
}

// QuoteIdent はカラム名を識別子として安全にクォートします。
func QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// compileList は [演算子, 値] 形式の入力を Clause に変換します。
// 該当する形式がない場合は false を返します。
func compileList(col schema.Column, value []string) (Clause, bool) {
	column := col.Name
	op := value[0]
	operand := ""
	if len(value) > 1 {
		operand = value[1]
	}

	switch {
	case op == "like":
		return Clause{Column: column, Op: OpLike, Value: "%" + operand + "%", CastText: !col.IsText()}, true
	case op == "not like":
		return Clause{Column: column, Op: OpNotLike, Value: "%" + operand + "%", CastText: !col.IsText()}, true
	case isComparator(op):
		if operand == "" {
			return Clause{}, false
		}
		return Clause{Column: column, Op: OpCompare, Comparator: op, Value: operand}, true
	case op == "in" && operand != "":
		return Clause{Column: column, Op: OpIn, Values: splitList(operand)}, true
	case op == "not in" && operand != "":
		return Clause{Column: column, Op: OpNotIn, Values: splitList(operand)}, true
	case op == "null":
		return Clause{Column: column, Op: OpNull}, true
	case op == "not null":
		return Clause{Column: column, Op: OpNotNull}, true
	case op != "" && operand != "":
		// 演算子として認識できない2要素は範囲指定とみなす
		return Clause{Column: column, Op: OpBetween, Values: []any{op, operand}}, true
	}
	return Clause{}, false
}

func isComparator(op string) bool {
	_, ok := comparators[op]
	return ok
}

func splitList(s string) []any {
	parts := strings.Split(strings.TrimSpace(s), ",")
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		out = append(out, p)
	}
	return out
}
