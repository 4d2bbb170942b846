// Package tmsl parses a single-document model.bim (TMSL) definition
// into the canonical model types. The document is one JSON object; the
// only irregularity is that script text may be spelled either as one
// string or as an array of lines, which StringOrLines papers over.
package tmsl

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pbiplens/pbiplens/internal/textenc"
	"github.com/pbiplens/pbiplens/pkg/doccomment"
	"github.com/pbiplens/pbiplens/pkg/model"
)

// StringOrLines accepts the two JSON spellings of script text: a
// single string or an array of lines joined with newlines.
type StringOrLines string

func (s *StringOrLines) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var lines []string
		if err := json.Unmarshal(data, &lines); err != nil {
			return err
		}
		*s = StringOrLines(strings.Join(lines, "\n"))
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*s = StringOrLines(one)
	return nil
}

func (s StringOrLines) String() string { return string(s) }

// Document shapes. Only the properties the canonical model carries are
// named; everything else inside an entity travels via annotations.
type document struct {
	Model modelDoc `json:"model"`
}

type modelDoc struct {
	Tables        []tableDoc        `json:"tables"`
	Relationships []relationshipDoc `json:"relationships"`
	Expressions   []expressionDoc   `json:"expressions"`
}

type tableDoc struct {
	Name        string          `json:"name"`
	LineageTag  string          `json:"lineageTag"`
	IsHidden    bool            `json:"isHidden"`
	IsPrivate   bool            `json:"isPrivate"`
	Columns     []columnDoc     `json:"columns"`
	Measures    []measureDoc    `json:"measures"`
	Partitions  []partitionDoc  `json:"partitions"`
	Annotations []annotationDoc `json:"annotations"`
}

type columnDoc struct {
	Name           string          `json:"name"`
	Expression     StringOrLines   `json:"expression"`
	IsHidden       bool            `json:"isHidden"`
	IsNameInferred bool            `json:"isNameInferred"`
	DataType       string          `json:"dataType"`
	LineageTag     string          `json:"lineageTag"`
	SummarizeBy    string          `json:"summarizeBy"`
	SourceColumn   string          `json:"sourceColumn"`
	Description    StringOrLines   `json:"description"`
	Annotations    []annotationDoc `json:"annotations"`
}

type measureDoc struct {
	Name          string          `json:"name"`
	Expression    StringOrLines   `json:"expression"`
	FormatString  string          `json:"formatString"`
	DisplayFolder string          `json:"displayFolder"`
	LineageTag    string          `json:"lineageTag"`
	Annotations   []annotationDoc `json:"annotations"`
}

type partitionDoc struct {
	Name        string          `json:"name"`
	Mode        string          `json:"mode"`
	Source      sourceDoc       `json:"source"`
	Annotations []annotationDoc `json:"annotations"`
}

type sourceDoc struct {
	Type       string        `json:"type"`
	Expression StringOrLines `json:"expression"`
}

type relationshipDoc struct {
	Name                   string          `json:"name"`
	FromTable              string          `json:"fromTable"`
	FromColumn             string          `json:"fromColumn"`
	ToTable                string          `json:"toTable"`
	ToColumn               string          `json:"toColumn"`
	FromCardinality        string          `json:"fromCardinality"`
	ToCardinality          string          `json:"toCardinality"`
	CrossFilteringBehavior string          `json:"crossFilteringBehavior"`
	IsActive               *bool           `json:"isActive"`
	Annotations            []annotationDoc `json:"annotations"`
}

type expressionDoc struct {
	Name        string          `json:"name"`
	Expression  StringOrLines   `json:"expression"`
	LineageTag  string          `json:"lineageTag"`
	Description StringOrLines   `json:"description"`
	Annotations []annotationDoc `json:"annotations"`
}

type annotationDoc struct {
	Name  string        `json:"name"`
	Value StringOrLines `json:"value"`
}

// ParseFile parses a model.bim document from disk.
func ParseFile(path string) (*model.Model, []model.Diagnostic, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return Parse(path, raw)
}

// Parse parses model.bim bytes. A JSON error is reported as a
// MalformedDocumentError carrying the byte offset and line of the
// failure. The returned diagnostics are non-fatal.
func Parse(path string, raw []byte) (*model.Model, []model.Diagnostic, error) {
	src, err := textenc.Decode(path, raw)
	if err != nil {
		return nil, nil, err
	}
	var doc document
	if err := json.Unmarshal([]byte(src), &doc); err != nil {
		return nil, nil, malformed(path, src, err)
	}

	b := &builder{path: path}
	m := &model.Model{}
	for _, t := range doc.Model.Tables {
		m.Tables = append(m.Tables, b.table(t))
	}
	for _, r := range doc.Model.Relationships {
		m.Relationships = append(m.Relationships, b.relationship(r))
	}
	for _, e := range doc.Model.Expressions {
		m.Expressions = append(m.Expressions, b.expression(e))
	}
	return m, b.diags, nil
}

type builder struct {
	path  string
	diags []model.Diagnostic
}

func (b *builder) table(doc tableDoc) *model.Table {
	t := &model.Table{
		Name:        doc.Name,
		LineageTag:  doc.LineageTag,
		IsHidden:    doc.IsHidden,
		IsPrivate:   doc.IsPrivate,
		Annotations: annotations(doc.Annotations),
	}
	for _, c := range doc.Columns {
		t.Columns = append(t.Columns, b.column(c))
	}
	for _, ms := range doc.Measures {
		t.Measures = append(t.Measures, b.measure(ms))
	}
	for _, p := range doc.Partitions {
		t.Partitions = append(t.Partitions, b.partition(p))
	}
	b.applyTableDocs(t)
	return t
}

func (b *builder) column(doc columnDoc) *model.Column {
	return &model.Column{
		Name:           doc.Name,
		Expression:     strings.TrimSpace(doc.Expression.String()),
		IsHidden:       doc.IsHidden,
		IsNameInferred: doc.IsNameInferred,
		DataType:       model.DataType(doc.DataType),
		LineageTag:     doc.LineageTag,
		SummarizeBy:    doc.SummarizeBy,
		SourceColumn:   doc.SourceColumn,
		Description:    doc.Description.String(),
		Annotations:    annotations(doc.Annotations),
		Calculated:     model.IsCalculated(doc.SourceColumn, doc.Expression.String()),
	}
}

func (b *builder) measure(doc measureDoc) *model.Measure {
	raw := strings.TrimSpace(doc.Expression.String())
	m := &model.Measure{
		Name:          doc.Name,
		LineageTag:    doc.LineageTag,
		FormatString:  doc.FormatString,
		DisplayFolder: doc.DisplayFolder,
		Annotations:   annotations(doc.Annotations),
		Expression:    doccomment.Strip(raw),
	}
	if d, ok := doccomment.Extract(raw); ok {
		m.Description = d.Description
	}
	return m
}

func (b *builder) partition(doc partitionDoc) *model.Partition {
	raw := strings.TrimSpace(doc.Source.Expression.String())
	mode := model.PartitionMode(doc.Mode)
	if mode == "" {
		mode = model.ModeImport
	}
	p := &model.Partition{
		Name:          doc.Name,
		Type:          model.PartitionType(doc.Source.Type),
		Mode:          mode,
		RawExpression: raw,
		Expression:    doccomment.Strip(raw),
		Annotations:   annotations(doc.Annotations),
	}
	if d, ok := doccomment.Extract(raw); ok {
		p.Description = d.Description
	}
	return p
}

func (b *builder) relationship(doc relationshipDoc) *model.Relationship {
	r := &model.Relationship{
		Name:                   doc.Name,
		FromTable:              doc.FromTable,
		FromColumn:             doc.FromColumn,
		ToTable:                doc.ToTable,
		ToColumn:               doc.ToColumn,
		FromCardinality:        b.cardinality(doc.Name, doc.FromCardinality),
		ToCardinality:          b.cardinality(doc.Name, doc.ToCardinality),
		CrossFilteringBehavior: model.DefaultCrossFilter,
		IsActive:               model.DefaultIsActive,
		Annotations:            annotations(doc.Annotations),
	}
	if doc.CrossFilteringBehavior != "" {
		if f, ok := model.ParseCrossFilter(doc.CrossFilteringBehavior); ok {
			r.CrossFilteringBehavior = f
		} else {
			b.unknownSymbol(fmt.Sprintf("unknown cross-filtering behavior %q in relationship %q, using %q",
				doc.CrossFilteringBehavior, doc.Name, model.DefaultCrossFilter))
		}
	}
	if doc.IsActive != nil {
		r.IsActive = *doc.IsActive
	}
	r.FilteringSymbol, r.FromCardinalitySymbol, r.ToCardinalitySymbol =
		model.FilterCardinalitySymbols(r.CrossFilteringBehavior, r.ToCardinality, r.FromCardinality)
	return r
}

func (b *builder) cardinality(rel, tok string) model.Cardinality {
	if tok == "" {
		return model.DefaultCardinality
	}
	c, ok := model.ParseCardinality(tok)
	if !ok {
		b.unknownSymbol(fmt.Sprintf("unknown cardinality %q in relationship %q, using %q",
			tok, rel, model.DefaultCardinality))
		return model.DefaultCardinality
	}
	return c
}

func (b *builder) expression(doc expressionDoc) *model.Expression {
	e := &model.Expression{
		Name:        doc.Name,
		LineageTag:  doc.LineageTag,
		Description: doc.Description.String(),
		Annotations: annotations(doc.Annotations),
	}
	raw := strings.TrimSpace(doc.Expression.String())
	if isFunction(e) {
		e.Type = model.ExprFunction
		e.Expression = doccomment.Strip(raw)
		if d, ok := doccomment.Extract(raw); ok && e.Description == "" {
			e.Description = d.Description
		}
	} else {
		e.Type = model.ExprParameter
		if idx := strings.Index(raw, " meta "); idx >= 0 {
			raw = raw[:idx]
		}
		e.Expression = strings.TrimSpace(raw)
	}
	return e
}

func isFunction(e *model.Expression) bool {
	for _, a := range e.Annotations {
		if a.Name == "PBI_ResultType" && a.Value == "Function" {
			return true
		}
	}
	return false
}

// applyTableDocs copies documentation from the table's first partition
// onto the table's columns, the same way the TMDL parser does.
func (b *builder) applyTableDocs(t *model.Table) {
	if len(t.Partitions) == 0 {
		return
	}
	doc, ok := doccomment.Extract(t.Partitions[0].RawExpression)
	if !ok {
		return
	}
	for _, name := range doc.FieldOrder {
		if c := t.Column(name); c != nil {
			c.Description = doc.Fields[name]
			continue
		}
		b.diags = append(b.diags, model.Diagnostic{
			Code:     model.CodeUnresolvedDocTarget,
			Severity: model.SeverityWarning,
			Path:     b.path,
			Message:  fmt.Sprintf("@col target %q does not name a column of table '%s'", name, t.Name),
		})
	}
}

func (b *builder) unknownSymbol(msg string) {
	b.diags = append(b.diags, model.Diagnostic{
		Code:     model.CodeUnknownSymbol,
		Severity: model.SeverityWarning,
		Path:     b.path,
		Message:  msg,
	})
}

func annotations(docs []annotationDoc) []model.Annotation {
	var out []model.Annotation
	for _, a := range docs {
		out = append(out, model.Annotation{Name: a.Name, Value: a.Value.String()})
	}
	return out
}

// malformed converts a JSON decoding error into a
// MalformedDocumentError with the byte offset and line of the failure.
func malformed(path, src string, err error) error {
	var offset int64
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syn):
		offset = syn.Offset
	case errors.As(err, &typ):
		offset = typ.Offset
	}
	line := 0
	if offset > 0 && int(offset) <= len(src) {
		line = 1 + strings.Count(src[:offset], "\n")
	}
	return &model.MalformedDocumentError{Path: path, Offset: offset, Line: line, Err: err}
}
