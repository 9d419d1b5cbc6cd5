package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ImportSchema is the top-level structure of a WBS import file.
type ImportSchema struct {
	Items []ItemImport `json:"items" yaml:"items"`
}

// ItemImport defines one plan item in the import file.
type ItemImport struct {
	Index       string            `json:"index" yaml:"index"`
	ParentIndex *string           `json:"parent_index,omitempty" yaml:"parent_index,omitempty"`
	WorkCode    string            `json:"work_code,omitempty" yaml:"work_code,omitempty"`
	Name        string            `json:"name" yaml:"name"`
	Unit        string            `json:"unit,omitempty" yaml:"unit,omitempty"`
	Quantity    Number            `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	UnitPrice   Number            `json:"unit_price,omitempty" yaml:"unit_price,omitempty"`
	StartDate   *string           `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate     *string           `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Relations   map[string]string `json:"relations,omitempty" yaml:"relations,omitempty"`
	Details     []DetailImport    `json:"details,omitempty" yaml:"details,omitempty"`
}

// DetailImport defines one resource line under an item.
type DetailImport struct {
	Kind       string `json:"kind" yaml:"kind"`
	ResourceID string `json:"resource_id" yaml:"resource_id"`
	Quantity   Number `json:"quantity" yaml:"quantity"`
	UnitPrice  Number `json:"unit_price,omitempty" yaml:"unit_price,omitempty"`
}

// Number holds a decimal literal exactly as written. Files may spell it as
// a number or as a string.
type Number string

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(strings.TrimSpace(s))
		return nil
	}
	*n = Number(data)
	return nil
}

func (n *Number) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", value.Line)
	}
	if value.Tag == "!!null" {
		*n = ""
		return nil
	}
	*n = Number(strings.TrimSpace(value.Value))
	return nil
}

// LoadImportSchema reads a WBS import file. Files ending in .yaml or .yml
// are parsed as YAML, everything else as JSON.
func LoadImportSchema(path string) (*ImportSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var schema ImportSchema
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &schema)
	default:
		err = json.Unmarshal(data, &schema)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing import file: %w", err)
	}
	return &schema, nil
}
