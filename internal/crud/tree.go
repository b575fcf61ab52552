package crud

import "fmt"

const childrenKey = "children"

// buildTree は pid で親子関係を組み立てます。
// 親が結果に含まれない要素はルートとして扱い、入力順を保ちます。
func buildTree(items []map[string]any, idKey string) []map[string]any {
	byID := make(map[string]map[string]any, len(items))
	for _, item := range items {
		if id, ok := item[idKey]; ok && id != nil {
			byID[fmt.Sprint(id)] = item
		}
	}

	children := make(map[string][]map[string]any, len(items))
	var roots []map[string]any
	for _, item := range items {
		parent := parentKey(item)
		if _, ok := byID[parent]; !ok || parent == "" || parent == fmt.Sprint(item[idKey]) {
			roots = append(roots, item)
			continue
		}
		children[parent] = append(children[parent], item)
	}

	visited := make(map[string]bool, len(items))
	var attach func(node map[string]any)
	attach = func(node map[string]any) {
		id := fmt.Sprint(node[idKey])
		visited[id] = true
		var kids []map[string]any
		for _, kid := range children[id] {
			if visited[fmt.Sprint(kid[idKey])] {
				continue
			}
			kids = append(kids, kid)
			attach(kid)
		}
		if len(kids) > 0 {
			node[childrenKey] = kids
		}
	}
	for _, root := range roots {
		attach(root)
	}
	// 循環参照で到達できなかった要素もルートとして残す
	for _, item := range items {
		if !visited[fmt.Sprint(item[idKey])] {
			roots = append(roots, item)
			attach(item)
		}
	}

	if roots == nil {
		roots = []map[string]any{}
	}
	return roots
}

func parentKey(item map[string]any) string {
	pid, ok := item["pid"]
	if !ok || pid == nil {
		return ""
	}
	return fmt.Sprint(pid)
}
