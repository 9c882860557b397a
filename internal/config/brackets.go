package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/hmoreno/cierre-fiscal/internal/domain"

	"gopkg.in/yaml.v3"
)

// bracketsFile is the YAML shape of an external bracket table.
type bracketsFile struct {
	Brackets []domain.Bracket `yaml:"brackets"`
}

// defaultBrackets is the built-in monthly table for the simplified
// individual regime. Estimates only; the real tables change yearly.
var defaultBrackets = domain.BracketTable{
	{UpperLimit: 25000, Rate: 0.010},
	{UpperLimit: 50000, Rate: 0.011},
	{UpperLimit: 83333.33, Rate: 0.015},
	{UpperLimit: 208333.33, Rate: 0.020},
	{UpperLimit: 291666.66, Rate: 0.025},
}

// LoadBracketTable reads the bracket table from a YAML file, falling back to
// the embedded default when path is empty. The table must be non-empty with
// positive rates; it is sorted ascending by upper limit on load.
func LoadBracketTable(path string) (domain.BracketTable, error) {
	if path == "" {
		return append(domain.BracketTable(nil), defaultBrackets...), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bracket table: %w", err)
	}

	var file bracketsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("bracket table: parse %s: %w", path, err)
	}
	if len(file.Brackets) == 0 {
		return nil, fmt.Errorf("bracket table: %s declares no brackets", path)
	}
	for i, b := range file.Brackets {
		if b.UpperLimit <= 0 || b.Rate < 0 {
			return nil, fmt.Errorf("bracket table: entry %d is invalid (upper_limit=%v rate=%v)", i, b.UpperLimit, b.Rate)
		}
	}

	table := append(domain.BracketTable(nil), file.Brackets...)
	sort.Slice(table, func(i, j int) bool { return table[i].UpperLimit < table[j].UpperLimit })
	return table, nil
}
