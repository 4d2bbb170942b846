// Package expect evaluates model expectations: declarative rules about
// naming, typing and modeling practice that a semantic model is
// supposed to satisfy. A rule is plain data (a kind, a severity and
// kind-specific parameters), so rule suites can be written in
// configuration files and evaluated without registering any code.
package expect

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/pbiplens/pbiplens/pkg/model"
)

// Kind identifies one expectation check.
type Kind string

// Expectation kinds.
const (
	KindColumnStartsWith        Kind = "expect_col_starts_with"
	KindMeasureStartsWith       Kind = "expect_measure_starts_with"
	KindTableStartsWith         Kind = "expect_table_starts_with"
	KindRelationshipColumnTypes Kind = "expect_cols_in_relationship_has_same_type"
	KindTableNameNoSpaces       Kind = "expect_table_name_no_spaces"
	KindDAXLinesLength          Kind = "expect_dax_lines_length"
	KindMLinesLength            Kind = "expect_m_lines_length"
	KindMeasuresInSpecificTable Kind = "expect_measures_in_specific_table"
	KindNoCalculatedColumns     Kind = "expect_no_calculated_columns"
	KindAllRelationshipsActive  Kind = "expect_all_relationships_active"
	KindNoCalculatedTables      Kind = "expect_no_calculated_tables"
)

// Rule is one expectation to evaluate: a kind, an optional severity
// (defaulting to warning) and kind-specific parameters.
type Rule struct {
	Kind     Kind           `yaml:"kind" koanf:"kind"`
	Severity string         `yaml:"severity" koanf:"severity"`
	Params   map[string]any `yaml:"params" koanf:"params"`
}

// Finding is one failed expectation.
type Finding struct {
	Rule     Kind
	Severity model.Severity
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: [%s] %s", f.Severity, f.Rule, f.Message)
}

// Suite is a set of rules, typically loaded from a YAML document.
type Suite struct {
	Rules []Rule `yaml:"rules"`
}

// LoadSuite reads a rule suite from a YAML file.
func LoadSuite(path string) (*Suite, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Suite
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse expectation suite %s: %w", path, err)
	}
	return &s, nil
}

// Descriptor describes one expectation kind for discovery surfaces.
type Descriptor struct {
	Kind    Kind
	Summary string
	Params  string
}

var descriptors = []Descriptor{
	{KindColumnStartsWith, "column names start with a prefix", "pattern (string), dataTypes (list, optional)"},
	{KindMeasureStartsWith, "measure names start with a prefix", "pattern (string)"},
	{KindTableStartsWith, "table names start with a prefix", "pattern (string)"},
	{KindRelationshipColumnTypes, "relationship endpoints have the same data type", ""},
	{KindTableNameNoSpaces, "table names contain no spaces", ""},
	{KindDAXLinesLength, "measure expressions keep lines under a limit", "maxLength (int)"},
	{KindMLinesLength, "partition sources keep lines under a limit", "maxLength (int)"},
	{KindMeasuresInSpecificTable, "all measures live in one table", "table (string)"},
	{KindNoCalculatedColumns, "no calculated columns", ""},
	{KindAllRelationshipsActive, "every relationship is active", ""},
	{KindNoCalculatedTables, "no calculated tables", ""},
}

// Descriptors returns every known expectation kind in stable order.
func Descriptors() []Descriptor {
	return slices.Clone(descriptors)
}

// KnownKind reports whether the kind names a supported expectation.
func KnownKind(k Kind) bool {
	for _, d := range descriptors {
		if d.Kind == k {
			return true
		}
	}
	return false
}
