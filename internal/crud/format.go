package crud

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/user-kit/internal/schema"
	"github.com/yourusername/user-kit/internal/store"
)

// 名前として使うカラムの優先順位
var nameColumns = []string{"title", "name", "nickname", "username"}

// Option は select 形式の1要素です。
type Option struct {
	Name  any `json:"name"`
	Value any `json:"value"`
}

func (ctrl *Controller) format(c *gin.Context, format Format, table schema.Table, rows []store.Row, total int64) {
	if rows == nil {
		rows = []store.Row{}
	}
	switch format {
	case FormatSelect:
		success(c, FormatOptions(rows, table.PrimaryKey))
	case FormatTree:
		success(c, FormatTreeNodes(rows, table.PrimaryKey))
	case FormatTableTree:
		success(c, FormatTableTreeRows(rows, table.PrimaryKey))
	default:
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok", "count": total, "data": rows})
	}
}

// FormatOptions は行を [{name, value}] に変換します。
func FormatOptions(rows []store.Row, pk string) []Option {
	options := make([]Option, 0, len(rows))
	for _, row := range rows {
		options = append(options, Option{Name: guessName(row, pk), Value: row[pk]})
	}
	return options
}

// SelectEnum は名前と値の対応表を [{name, value}] の応答として返します。
// 名前順に並べます。
func SelectEnum(c *gin.Context, items map[string]any) {
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sort.Strings(names)

	options := make([]Option, 0, len(items))
	for _, name := range names {
		options = append(options, Option{Name: name, Value: items[name]})
	}
	success(c, options)
}

func guessName(row store.Row, pk string) any {
	for _, col := range nameColumns {
		if v, ok := row[col]; ok && v != nil && v != "" {
			return v
		}
	}
	return row[pk]
}

// FormatTreeNodes は行を {name, value, id, pid} のノードに変換し、pid で入れ子にします。
func FormatTreeNodes(rows []store.Row, pk string) []map[string]any {
	nodes := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		nodes = append(nodes, map[string]any{
			"name":  guessName(row, pk),
			"value": fmt.Sprint(row[pk]),
			"id":    row[pk],
			"pid":   row["pid"],
		})
	}
	return buildTree(nodes, "id")
}

// FormatTableTreeRows は行をそのまま pid で入れ子にします。
func FormatTableTreeRows(rows []store.Row, pk string) []map[string]any {
	items := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		items = append(items, row)
	}
	return buildTree(items, pk)
}
