package crud

import (
	"sort"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/yourusername/user-kit/internal/apperr"
	"github.com/yourusername/user-kit/internal/schema"
)

// Format は検索結果の整形方法です。
type Format string

const (
	FormatNormal    Format = "normal"
	FormatSelect    Format = "select"
	FormatTree      Format = "tree"
	FormatTableTree Format = "table_tree"
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"

	defaultLimit     = 10
	defaultTreeLimit = 500
)

// Scope は行レベル制限です。Field の値が UserID と一致する行だけを対象にします。
type Scope struct {
	Field  string
	UserID int64
}

// OwnerValue は所有者カラムと比較するための文字列表現です。
func (s *Scope) OwnerValue() string {
	return strconv.FormatInt(s.UserID, 10)
}

// SelectSpec はコンパイル済みの検索条件です。
type SelectSpec struct {
	Clauses []Clause
	Field   string
	Order   string
	Page    int
	Limit   int
	Format  Format
}

// Where は Clause を squirrel の条件式の列に変換します。
func (s SelectSpec) Where() []sq.Sqlizer {
	where := make([]sq.Sqlizer, 0, len(s.Clauses))
	for _, c := range s.Clauses {
		where = append(where, c.Sqlizer())
	}
	return where
}

// OrderBy は ORDER BY 句の要素を返します。
func (s SelectSpec) OrderBy() []string {
	if s.Field == "" {
		return nil
	}
	return []string{QuoteIdent(s.Field) + " " + strings.ToUpper(s.Order)}
}

// Compile はリクエストの入力とカラムのホワイトリストから SelectSpec を組み立てます。
// ホワイトリストにないキー、空文字、形式の不正なリストは黙って捨てます。
func Compile(in Input, table schema.Table, scope *Scope) (SelectSpec, error) {
	if len(table.Columns) == 0 {
		return SelectSpec{}, apperr.New(apperr.KindResourceNotFound, "table does not exist")
	}

	spec := SelectSpec{
		Format: Format(in.Scalar("format")),
		Order:  OrderDesc,
	}
	if spec.Format == "" {
		spec.Format = FormatNormal
	}
	if in.Scalar("order") == OrderAsc {
		spec.Order = OrderAsc
	}

	spec.Limit = defaultLimit
	if spec.Format == FormatTree {
		spec.Limit = defaultTreeLimit
	}
	if raw := in.Scalar("limit"); raw != "" {
		spec.Limit, _ = strconv.Atoi(raw)
	}
	if spec.Limit <= 0 {
		spec.Limit = defaultLimit
	}

	spec.Page, _ = strconv.Atoi(in.Scalar("page"))
	if spec.Page < 1 {
		spec.Page = 1
	}

	if field := in.Scalar("field"); table.Has(field) {
		spec.Field = field
	}

	for _, column := range sortedKeys(in) {
		col, ok := table.Column(column)
		if !ok {
			continue
		}
		if scope != nil && column == scope.Field {
			continue
		}
		switch v := in[column].(type) {
		case nil:
			spec.Clauses = append(spec.Clauses, Clause{Column: column, Op: OpNull})
		case string:
			if v == "" {
				continue
			}
			spec.Clauses = append(spec.Clauses, Clause{Column: column, Op: OpEquals, Value: v})
		case []string:
			if !validList(v) {
				continue
			}
			if clause, ok := compileList(col, v); ok {
				spec.Clauses = append(spec.Clauses, clause)
			}
		}
	}

	if scope != nil {
		spec.Clauses = append(spec.Clauses, Clause{Column: scope.Field, Op: OpEquals, Value: scope.UserID})
	}

	if spec.Field == "" && table.PrimaryKey != "" {
		spec.Field = table.PrimaryKey
		spec.Order = OrderDesc
	}

	return spec, nil
}

// validList はリスト入力が [演算子, 値] または [null|not null] の形かどうかを返します。
func validList(v []string) bool {
	if len(v) == 0 {
		return false
	}
	if v[0] == "null" || v[0] == "not null" {
		return true
	}
	return len(v) > 1
}

// FilterPayload は登録・更新用の入力からホワイトリスト外のカラムを取り除きます。
// 文字列型以外のカラムの空文字は NULL に、リストはカンマ区切りに変換します。
func FilterPayload(in Input, table schema.Table) (map[string]any, error) {
	if len(table.Columns) == 0 {
		return nil, apperr.New(apperr.KindResourceNotFound, "table does not exist")
	}

	data := make(map[string]any, len(in))
	for key, value := range in {
		col, ok := table.Column(key)
		if !ok {
			continue
		}
		switch v := value.(type) {
		case []string:
			data[key] = strings.Join(v, ",")
		case string:
			if v == "" && !col.IsText() {
				data[key] = nil
				continue
			}
			data[key] = v
		default:
			data[key] = v
		}
	}

	for _, ts := range []string{"created_at", "updated_at"} {
		if v, ok := data[ts]; ok && (v == nil || v == "") {
			delete(data, ts)
		}
	}
	return data, nil
}

func sortedKeys(in Input) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
