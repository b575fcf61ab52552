package crud

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Input はリクエストパラメータを正規化したものです。
// 値は string、[]string、nil のいずれかです。
type Input map[string]any

// Scalar は key の値を文字列として返します。リストや未指定の場合は空文字です。
func (in Input) Scalar(key string) string {
	if s, ok := in[key].(string); ok {
		return s
	}
	return ""
}

// InputFromValues はクエリ文字列やフォームの値を Input に変換します。
// name[]=a&name[]=b と name[0]=a&name[1]=b はリストとして扱います。
func InputFromValues(values url.Values) Input {
	in := Input{}
	indexed := map[string]map[int]string{}

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		open := strings.IndexByte(key, '[')
		if open <= 0 || !strings.HasSuffix(key, "]") {
			if _, exists := in[key].([]string); !exists {
				in[key] = vals[0]
			}
			continue
		}

		name := key[:open]
		inner := key[open+1 : len(key)-1]
		if inner == "" {
			in[name] = append([]string(nil), vals...)
			continue
		}
		idx, err := strconv.Atoi(inner)
		if err != nil || idx < 0 {
			// name[foo] のような連想配列はサポートしない
			continue
		}
		if indexed[name] == nil {
			indexed[name] = map[int]string{}
		}
		indexed[name][idx] = vals[0]
	}

	for name, items := range indexed {
		keys := make([]int, 0, len(items))
		for k := range items {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		list := make([]string, 0, len(keys))
		for _, k := range keys {
			list = append(list, items[k])
		}
		in[name] = list
	}
	return in
}

// InputFromJSON は JSON オブジェクトを Input に変換します。
func InputFromJSON(raw map[string]any) Input {
	in := Input{}
	for key, v := range raw {
		switch val := v.(type) {
		case nil:
			in[key] = nil
		case []any:
			list := make([]string, 0, len(val))
			for _, item := range val {
				list = append(list, stringify(item))
			}
			in[key] = list
		case map[string]any:
			continue
		default:
			in[key] = stringify(val)
		}
	}
	return in
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}

// QueryInput は GET パラメータを Input として返します。
func QueryInput(c *gin.Context) Input {
	return InputFromValues(c.Request.URL.Query())
}

// PostInput は POST ボディ（JSON またはフォーム）を Input として返します。
func PostInput(c *gin.Context) (Input, error) {
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType == "application/json" {
		raw := map[string]any{}
		dec := json.NewDecoder(c.Request.Body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		return InputFromJSON(raw), nil
	}

	if mediaType == "multipart/form-data" {
		if err := c.Request.ParseMultipartForm(32 << 20); err != nil && err != http.ErrNotMultipart {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}
	} else if err := c.Request.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}
	return InputFromValues(c.Request.PostForm), nil
}
