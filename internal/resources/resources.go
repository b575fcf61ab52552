// Package resources は CRUD リソースの定義ファイル（YAML）を読み込みます。
package resources

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/user-kit/internal/crud"
	"github.com/yourusername/user-kit/internal/gate"
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Definition は定義ファイル上のリソース1件です。
type Definition struct {
	Name      string    `yaml:"name"`
	Table     string    `yaml:"table"`
	NoLogin   []string  `yaml:"no_login"`
	DataLimit DataLimit `yaml:"data_limit"`
	ReadOnly  []string  `yaml:"readonly"`
}

// DataLimit は行レベル制限の設定です。
type DataLimit struct {
	Enabled bool   `yaml:"enabled"`
	Field   string `yaml:"field"`
}

type file struct {
	Resources []Definition `yaml:"resources"`
}

// Load は path の定義ファイルを読み込みます。ファイルが存在しない場合は空の一覧を返します。
func Load(path string) ([]crud.Resource, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open resources file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse は定義を読み込み、crud.Resource に変換します。
// データ制限の設定不備はここでは拒否せず、リクエスト時に 500 として扱います。
func Parse(r io.Reader) ([]crud.Resource, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse resources file: %w", err)
	}

	seen := map[string]bool{}
	out := make([]crud.Resource, 0, len(doc.Resources))
	for i, def := range doc.Resources {
		if !namePattern.MatchString(def.Name) {
			return nil, fmt.Errorf("resources[%d]: invalid name %q", i, def.Name)
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("resources[%d]: duplicate name %q", i, def.Name)
		}
		seen[def.Name] = true

		table := def.Table
		if table == "" {
			table = def.Name
		}
		out = append(out, crud.Resource{
			Name:  def.Name,
			Table: table,
			Policy: gate.ControllerPolicy{
				NoLogin: def.NoLogin,
				DataLimit: gate.DataLimitPolicy{
					Enabled: def.DataLimit.Enabled,
					Field:   def.DataLimit.Field,
				},
			},
			ReadOnly: def.ReadOnly,
		})
	}
	return out, nil
}
