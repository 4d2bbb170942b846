// Package model defines the canonical in-memory representation of a tabular
// semantic model: tables, columns, measures, partitions, relationships and
// shared expressions. Both input formats (the TMDL directory layout and the
// single-document model.bim) parse into this one type, so consumers never
// care which format a project was stored in.
package model

import "strings"

// DataType is the declared data type of a column.
type DataType string

// Column data types.
const (
	TypeString   DataType = "string"
	TypeInt64    DataType = "int64"
	TypeDouble   DataType = "double"
	TypeDecimal  DataType = "decimal"
	TypeDateTime DataType = "dateTime"
	TypeBoolean  DataType = "boolean"
	TypeBinary   DataType = "binary"
)

// PartitionType describes how a partition sources its rows.
type PartitionType string

// Partition types.
const (
	PartitionM          PartitionType = "m"
	PartitionCalculated PartitionType = "calculated"
	PartitionQuery      PartitionType = "query"
)

// PartitionMode is the storage mode of a partition.
type PartitionMode string

// Partition modes.
const (
	ModeImport      PartitionMode = "import"
	ModeDirectQuery PartitionMode = "directQuery"
	ModeDual        PartitionMode = "dual"
)

// ExpressionType distinguishes shared query parameters from shared functions.
type ExpressionType string

// Expression types.
const (
	ExprParameter ExpressionType = "parameter"
	ExprFunction  ExpressionType = "function"
)

// RefType classifies a reference found inside a measure expression.
type RefType string

// Reference types.
const (
	RefTable   RefType = "table"
	RefColumn  RefType = "column"
	RefMeasure RefType = "measure"
)

// Annotation is an opaque name/value pair attached to an entity. Property
// lines the parsers do not recognize are preserved here rather than dropped.
type Annotation struct {
	Name  string
	Value string
}

// Reference is a single identifier reference extracted from a measure
// expression. Qualified references (Table[Column]) carry both names; bare
// [Name] references are classified by the resolver against known measures
// and columns. When a bare name matches more than one entity, every
// candidate is recorded and flagged Ambiguous.
type Reference struct {
	Type      RefType
	Name      string
	Column    string
	Ambiguous bool
}

// Column is a table column. Expression is set only for calculated columns;
// Description is filled in by the documentation comment extractor as a
// second pass over the built entity.
type Column struct {
	Name           string
	Expression     string
	IsHidden       bool
	IsNameInferred bool
	DataType       DataType
	LineageTag     string
	SummarizeBy    string
	SourceColumn   string
	Annotations    []Annotation
	Calculated     bool
	Description    string
}

// Measure is a DAX measure owned by a table. References is derived state
// computed by the resolver.
type Measure struct {
	Name          string
	LineageTag    string
	Annotations   []Annotation
	DisplayFolder string
	Expression    string
	FormatString  string
	Description   string
	References    []Reference
}

// Partition is a table partition. RawExpression preserves the script body
// exactly as stored on disk; Expression has documentation comment blocks
// stripped.
type Partition struct {
	Name          string
	Type          PartitionType
	Mode          PartitionMode
	RawExpression string
	Expression    string
	Description   string
	Annotations   []Annotation
}

// Table is a model table with its owned child collections. Child order is
// declaration order and is identical across the two input formats.
type Table struct {
	Name        string
	LineageTag  string
	IsHidden    bool
	IsPrivate   bool
	Columns     []*Column
	Measures    []*Measure
	Partitions  []*Partition
	Annotations []Annotation
}

// Relationship joins two table columns by name. Endpoints are lookup keys,
// not pointers; the resolver verifies they exist. The symbol fields preserve
// the format's symbolic rendering so a report can round-trip them.
type Relationship struct {
	Name                   string
	FromTable              string
	FromColumn             string
	ToTable                string
	ToColumn               string
	FromCardinality        Cardinality
	ToCardinality          Cardinality
	CrossFilteringBehavior CrossFilter
	IsActive               bool

	FilteringSymbol       string
	FromCardinalitySymbol string
	ToCardinalitySymbol   string

	Annotations []Annotation
}

// Expression is a shared expression: an M query parameter or function.
type Expression struct {
	Name        string
	LineageTag  string
	Type        ExpressionType
	Expression  string
	Description string
	Annotations []Annotation
}

// Model is the root aggregate. It exclusively owns all child collections;
// no entity is shared between tables. Sequences are in declaration order.
type Model struct {
	Tables        []*Table
	Relationships []*Relationship
	Expressions   []*Expression

	resolved bool
}

// Table returns the table with the given name, or nil.
func (m *Model) Table(name string) *Table {
	for _, t := range m.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Column returns the named column of the named table, or nil if either does
// not exist.
func (m *Model) Column(table, column string) *Column {
	t := m.Table(table)
	if t == nil {
		return nil
	}
	return t.Column(column)
}

// Measure returns the named measure of the named table, or nil.
func (m *Model) Measure(table, measure string) *Measure {
	t := m.Table(table)
	if t == nil {
		return nil
	}
	return t.Measure(measure)
}

// Column returns the table's column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Measure returns the table's measure with the given name, or nil.
func (t *Table) Measure(name string) *Measure {
	for _, m := range t.Measures {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// IsCalculated reports whether a column is calculated: it either carries an
// expression or its source column is a bracketed formula reference rather
// than a plain source name.
func IsCalculated(sourceColumn, expression string) bool {
	return strings.HasPrefix(sourceColumn, "[") || expression != ""
}
