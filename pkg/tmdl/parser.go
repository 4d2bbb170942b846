package tmdl

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/pbiplens/pbiplens/pkg/doccomment"
	"github.com/pbiplens/pbiplens/pkg/model"
)

// line is one physical line of a document: its 1-based number, nesting
// depth (leading indentation runes), and text with the indentation cut
// off. raw keeps the original line for verbatim script capture.
type line struct {
	num   int
	depth int
	text  string
	raw   string
	blank bool
}

type parser struct {
	path  string
	lines []line
	i     int
	diags []model.Diagnostic
}

func newParser(path, src string) *parser {
	p := &parser{path: path}
	for num, raw := range strings.Split(src, "\n") {
		raw = strings.TrimRight(raw, "\r")
		text := strings.TrimLeft(raw, "\t ")
		p.lines = append(p.lines, line{
			num:   num + 1,
			depth: len(raw) - len(text),
			text:  text,
			raw:   raw,
			blank: strings.TrimSpace(raw) == "",
		})
	}
	return p
}

// ParseTables parses one definition/tables/*.tmdl document. A document
// may define more than one table; declaration order is preserved.
func ParseTables(path, src string) ([]*model.Table, []model.Diagnostic, error) {
	p := newParser(path, src)
	var tables []*model.Table
	for !p.eof() {
		ln := p.peek()
		if ln.blank {
			p.i++
			continue
		}
		if ln.depth != 0 {
			return nil, nil, p.indentErr(ln)
		}
		kind, rest := splitKind(ln.text)
		if kind != "table" {
			return nil, nil, p.malformed(ln, fmt.Sprintf("expected table header, found %q", kind))
		}
		t, err := p.parseTable(ln, rest)
		if err != nil {
			return nil, nil, err
		}
		tables = append(tables, t)
	}
	return tables, p.diags, nil
}

// ParseRelationships parses definition/relationships.tmdl.
func ParseRelationships(path, src string) ([]*model.Relationship, []model.Diagnostic, error) {
	p := newParser(path, src)
	var rels []*model.Relationship
	for !p.eof() {
		ln := p.peek()
		if ln.blank {
			p.i++
			continue
		}
		if ln.depth != 0 {
			return nil, nil, p.indentErr(ln)
		}
		kind, rest := splitKind(ln.text)
		if kind != "relationship" {
			return nil, nil, p.malformed(ln, fmt.Sprintf("expected relationship header, found %q", kind))
		}
		r, err := p.parseRelationship(ln, rest)
		if err != nil {
			return nil, nil, err
		}
		rels = append(rels, r)
	}
	return rels, p.diags, nil
}

// ParseExpressions parses definition/expressions.tmdl. A /// comment
// line directly above an expression header becomes the expression's
// description when the expression is a query parameter; functions are
// documented through @doc blocks in their script body instead.
func ParseExpressions(path, src string) ([]*model.Expression, []model.Diagnostic, error) {
	p := newParser(path, src)
	var exprs []*model.Expression
	var pendingDoc []string
	for !p.eof() {
		ln := p.peek()
		if ln.blank {
			pendingDoc = nil
			p.i++
			continue
		}
		if strings.HasPrefix(ln.text, "///") {
			pendingDoc = append(pendingDoc, strings.TrimSpace(strings.TrimPrefix(ln.text, "///")))
			p.i++
			continue
		}
		if ln.depth != 0 {
			return nil, nil, p.indentErr(ln)
		}
		kind, rest := splitKind(ln.text)
		if kind != "expression" {
			return nil, nil, p.malformed(ln, fmt.Sprintf("expected expression header, found %q", kind))
		}
		e, err := p.parseExpression(ln, rest, strings.Join(pendingDoc, " "))
		if err != nil {
			return nil, nil, err
		}
		pendingDoc = nil
		exprs = append(exprs, e)
	}
	return exprs, p.diags, nil
}

func (p *parser) parseTable(header line, rest string) (*model.Table, error) {
	t := &model.Table{Name: unquote(strings.TrimSpace(rest))}
	p.i++
	err := p.children(header.depth, func(ln line) error { return p.tableChild(t, ln) })
	if err != nil {
		return nil, err
	}
	p.applyTableDocs(t)
	return t, nil
}

func (p *parser) tableChild(t *model.Table, ln line) error {
	if key, val, ok := splitProperty(ln.text); ok {
		switch key {
		case "lineageTag":
			t.LineageTag = val
		case "isHidden":
			t.IsHidden = flagValue(val)
		case "isPrivate":
			t.IsPrivate = flagValue(val)
		default:
			t.Annotations = append(t.Annotations, model.Annotation{Name: key, Value: val})
		}
		p.i++
		return nil
	}
	kind, rest := splitKind(ln.text)
	switch kind {
	case "column":
		return p.parseColumn(t, ln, rest)
	case "measure":
		return p.parseMeasure(t, ln, rest)
	case "partition":
		return p.parsePartition(t, ln, rest)
	case "annotation":
		return p.parseAnnotation(&t.Annotations, ln, rest)
	default:
		// hierarchies and other nested blocks the model does not carry
		return p.skipBlock(ln)
	}
}

// columnStops are the property keywords that terminate a calculated
// column's expression body.
var columnStops = map[string]bool{
	"dataType": true, "lineageTag": true, "summarizeBy": true,
	"sourceColumn": true, "formatString": true, "displayFolder": true,
	"annotation": true, "isHidden": true, "isNameInferred": true,
	"changedProperty": true, "sortByColumn": true,
}

func (p *parser) parseColumn(t *model.Table, header line, rest string) error {
	name, expr, hasExpr := splitAssign(rest)
	c := &model.Column{Name: unquote(name)}
	p.i++
	if hasExpr {
		c.Expression = p.captureScript(header, expr, columnStops)
	}
	err := p.children(header.depth, func(ln line) error { return p.columnChild(c, ln) })
	if err != nil {
		return err
	}
	c.Calculated = model.IsCalculated(c.SourceColumn, c.Expression)
	t.Columns = append(t.Columns, c)
	return nil
}

func (p *parser) columnChild(c *model.Column, ln line) error {
	if key, val, ok := splitProperty(ln.text); ok {
		switch key {
		case "dataType":
			c.DataType = model.DataType(val)
		case "lineageTag":
			c.LineageTag = val
		case "summarizeBy":
			c.SummarizeBy = val
		case "sourceColumn":
			c.SourceColumn = val
		case "isHidden":
			c.IsHidden = flagValue(val)
		case "isNameInferred":
			c.IsNameInferred = flagValue(val)
		default:
			c.Annotations = append(c.Annotations, model.Annotation{Name: key, Value: val})
		}
		p.i++
		return nil
	}
	kind, rest := splitKind(ln.text)
	if kind == "annotation" {
		return p.parseAnnotation(&c.Annotations, ln, rest)
	}
	return p.skipBlock(ln)
}

// measureStops are the property keywords that terminate a measure's
// expression body.
var measureStops = map[string]bool{
	"formatString": true, "displayFolder": true, "lineageTag": true,
	"annotation": true, "isHidden": true, "changedProperty": true,
}

func (p *parser) parseMeasure(t *model.Table, header line, rest string) error {
	name, expr, _ := splitAssign(rest)
	m := &model.Measure{Name: unquote(name)}
	p.i++
	raw := p.captureScript(header, expr, measureStops)
	if doc, ok := doccomment.Extract(raw); ok {
		m.Description = doc.Description
	}
	m.Expression = doccomment.Strip(raw)
	err := p.children(header.depth, func(ln line) error { return p.measureChild(m, ln) })
	if err != nil {
		return err
	}
	t.Measures = append(t.Measures, m)
	return nil
}

func (p *parser) measureChild(m *model.Measure, ln line) error {
	if key, val, ok := splitProperty(ln.text); ok {
		switch key {
		case "formatString":
			m.FormatString = val
		case "displayFolder":
			m.DisplayFolder = val
		case "lineageTag":
			m.LineageTag = val
		default:
			m.Annotations = append(m.Annotations, model.Annotation{Name: key, Value: val})
		}
		p.i++
		return nil
	}
	kind, rest := splitKind(ln.text)
	if kind == "annotation" {
		return p.parseAnnotation(&m.Annotations, ln, rest)
	}
	return p.skipBlock(ln)
}

func (p *parser) parsePartition(t *model.Table, header line, rest string) error {
	name, typ, _ := splitAssign(rest)
	part := &model.Partition{
		Name: unquote(name),
		Type: model.PartitionType(strings.TrimSpace(typ)),
	}
	p.i++
	err := p.children(header.depth, func(ln line) error { return p.partitionChild(part, ln) })
	if err != nil {
		return err
	}
	if doc, ok := doccomment.Extract(part.RawExpression); ok {
		part.Description = doc.Description
	}
	t.Partitions = append(t.Partitions, part)
	return nil
}

func (p *parser) partitionChild(part *model.Partition, ln line) error {
	if key, val, ok := splitProperty(ln.text); ok {
		switch key {
		case "mode":
			part.Mode = model.PartitionMode(val)
		default:
			part.Annotations = append(part.Annotations, model.Annotation{Name: key, Value: val})
		}
		p.i++
		return nil
	}
	if name, expr, hasExpr := splitAssign(ln.text); hasExpr && name == "source" {
		p.i++
		raw := p.captureScript(ln, expr, nil)
		part.RawExpression = raw
		part.Expression = doccomment.Strip(raw)
		return nil
	}
	kind, rest := splitKind(ln.text)
	if kind == "annotation" {
		return p.parseAnnotation(&part.Annotations, ln, rest)
	}
	return p.skipBlock(ln)
}

func (p *parser) parseRelationship(header line, rest string) (*model.Relationship, error) {
	r := &model.Relationship{
		Name:                   strings.TrimSpace(rest),
		FromCardinality:        model.DefaultCardinality,
		ToCardinality:          model.DefaultCardinality,
		CrossFilteringBehavior: model.DefaultCrossFilter,
		IsActive:               model.DefaultIsActive,
	}
	p.i++
	err := p.children(header.depth, func(ln line) error { return p.relationshipChild(r, ln) })
	if err != nil {
		return nil, err
	}
	r.FilteringSymbol, r.FromCardinalitySymbol, r.ToCardinalitySymbol =
		model.FilterCardinalitySymbols(r.CrossFilteringBehavior, r.ToCardinality, r.FromCardinality)
	return r, nil
}

func (p *parser) relationshipChild(r *model.Relationship, ln line) error {
	if key, val, ok := splitProperty(ln.text); ok {
		switch key {
		case "fromColumn":
			r.FromTable, r.FromColumn = splitEndpoint(val)
		case "toColumn":
			r.ToTable, r.ToColumn = splitEndpoint(val)
		case "fromCardinality":
			if c, ok := model.ParseCardinality(val); ok {
				r.FromCardinality = c
			} else {
				p.unknownSymbol(ln, "cardinality", val, string(model.DefaultCardinality))
			}
		case "toCardinality":
			if c, ok := model.ParseCardinality(val); ok {
				r.ToCardinality = c
			} else {
				p.unknownSymbol(ln, "cardinality", val, string(model.DefaultCardinality))
			}
		case "crossFilteringBehavior":
			if f, ok := model.ParseCrossFilter(val); ok {
				r.CrossFilteringBehavior = f
			} else {
				p.unknownSymbol(ln, "cross-filtering behavior", val, string(model.DefaultCrossFilter))
			}
		case "isActive":
			if b, ok := model.ParseActive(val); ok {
				r.IsActive = b
			} else {
				p.unknownSymbol(ln, "active state", val, "true")
			}
		default:
			r.Annotations = append(r.Annotations, model.Annotation{Name: key, Value: val})
		}
		p.i++
		return nil
	}
	kind, rest := splitKind(ln.text)
	if kind == "annotation" {
		return p.parseAnnotation(&r.Annotations, ln, rest)
	}
	return p.malformed(ln, fmt.Sprintf("unexpected line in relationship %q", r.Name))
}

// expressionStops are the property keywords that terminate a shared
// expression's script body.
var expressionStops = map[string]bool{
	"lineageTag": true, "annotation": true, "queryGroup": true,
}

func (p *parser) parseExpression(header line, rest, doc string) (*model.Expression, error) {
	name, inline, _ := splitAssign(rest)
	e := &model.Expression{Name: unquote(name)}
	p.i++
	raw := p.captureScript(header, inline, expressionStops)
	err := p.children(header.depth, func(ln line) error { return p.expressionChild(e, ln) })
	if err != nil {
		return nil, err
	}
	if isFunction(e) {
		e.Type = model.ExprFunction
		e.Expression = doccomment.Strip(raw)
		if d, ok := doccomment.Extract(raw); ok {
			e.Description = d.Description
		}
	} else {
		// Query parameter: the value ends where the parameter
		// metadata record begins.
		e.Type = model.ExprParameter
		value := raw
		if idx := strings.Index(value, " meta "); idx >= 0 {
			value = value[:idx]
		}
		e.Expression = strings.TrimSpace(value)
		e.Description = doc
	}
	return e, nil
}

func (p *parser) expressionChild(e *model.Expression, ln line) error {
	if key, val, ok := splitProperty(ln.text); ok {
		switch key {
		case "lineageTag":
			e.LineageTag = val
		default:
			e.Annotations = append(e.Annotations, model.Annotation{Name: key, Value: val})
		}
		p.i++
		return nil
	}
	kind, rest := splitKind(ln.text)
	if kind == "annotation" {
		return p.parseAnnotation(&e.Annotations, ln, rest)
	}
	return p.skipBlock(ln)
}

func isFunction(e *model.Expression) bool {
	for _, a := range e.Annotations {
		if a.Name == "PBI_ResultType" && a.Value == "Function" {
			return true
		}
	}
	return false
}

// parseAnnotation handles an "annotation Name = Value" line. A value
// spanning multiple lines is indented under the annotation.
func (p *parser) parseAnnotation(dst *[]model.Annotation, ln line, rest string) error {
	name, val, ok := strings.Cut(rest, "=")
	if !ok {
		return p.malformed(ln, "annotation requires name = value")
	}
	p.i++
	val = strings.TrimSpace(val)
	if val == "" {
		val = p.captureScript(ln, "", nil)
	}
	*dst = append(*dst, model.Annotation{Name: strings.TrimSpace(name), Value: val})
	return nil
}

// children walks the direct children of a header at the given depth,
// calling fn for each line exactly one level deeper. fn consumes the
// lines it handles. The walk ends when the document dedents back to
// the header's depth or shallower; any other depth matches no open
// block and is malformed.
func (p *parser) children(depth int, fn func(ln line) error) error {
	for !p.eof() {
		ln := p.peek()
		if ln.blank {
			p.i++
			continue
		}
		if ln.depth <= depth {
			return nil
		}
		if ln.depth != depth+1 {
			return p.indentErr(ln)
		}
		if err := fn(ln); err != nil {
			return err
		}
	}
	return nil
}

// captureScript collects a script body that starts on an entity header
// or assignment line. The inline remainder after "=" may be the whole
// expression, the opening of a fenced block, or empty when the body is
// indented under the opener. Continuation lines are captured verbatim
// until the document dedents to the opener's depth or a line one level
// deeper starts with one of the owner's property keywords.
func (p *parser) captureScript(opener line, inline string, stops map[string]bool) string {
	inline = strings.TrimSpace(inline)
	if strings.HasPrefix(inline, "```") {
		return p.captureFenced()
	}
	var body []string
	for !p.eof() {
		ln := p.peek()
		if ln.blank {
			next := p.nextContent()
			if next == nil || next.depth <= opener.depth {
				break
			}
			body = append(body, "")
			p.i++
			continue
		}
		if ln.depth <= opener.depth {
			break
		}
		if ln.depth == opener.depth+1 && stops[keyword(ln.text)] {
			break
		}
		body = append(body, ln.raw)
		p.i++
	}
	block := dedent(body)
	switch {
	case inline == "":
		return block
	case block == "":
		return inline
	default:
		return inline + "\n" + block
	}
}

// captureFenced collects lines verbatim until the closing ``` fence.
func (p *parser) captureFenced() string {
	var body []string
	for !p.eof() {
		ln := p.peek()
		p.i++
		if strings.TrimSpace(ln.text) == "```" {
			break
		}
		body = append(body, ln.raw)
	}
	return dedent(body)
}

// skipBlock consumes a nested block the model does not represent, such
// as column variations.
func (p *parser) skipBlock(header line) error {
	p.i++
	for !p.eof() {
		ln := p.peek()
		if !ln.blank && ln.depth <= header.depth {
			return nil
		}
		p.i++
	}
	return nil
}

// applyTableDocs copies documentation from the table's first partition
// onto the table's columns. An @col tag that names no column produces
// an unresolved-doc-target diagnostic.
func (p *parser) applyTableDocs(t *model.Table) {
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
		p.diags = append(p.diags, model.Diagnostic{
			Code:     model.CodeUnresolvedDocTarget,
			Severity: model.SeverityWarning,
			Path:     p.path,
			Message:  fmt.Sprintf("@col target %q does not name a column of table '%s'", name, t.Name),
		})
	}
}

func (p *parser) unknownSymbol(ln line, what, got, using string) {
	p.diags = append(p.diags, model.Diagnostic{
		Code:     model.CodeUnknownSymbol,
		Severity: model.SeverityWarning,
		Path:     p.path,
		Line:     ln.num,
		Message:  fmt.Sprintf("unknown %s %q, using %q", what, got, using),
	})
}

func (p *parser) eof() bool  { return p.i >= len(p.lines) }
func (p *parser) peek() line { return p.lines[p.i] }

// nextContent returns the next non-blank line at or after the cursor
// without moving it.
func (p *parser) nextContent() *line {
	for j := p.i; j < len(p.lines); j++ {
		if !p.lines[j].blank {
			return &p.lines[j]
		}
	}
	return nil
}

func (p *parser) indentErr(ln line) error {
	return &model.MalformedIndentationError{Path: p.path, Line: ln.num, Indent: ln.depth}
}

func (p *parser) malformed(ln line, msg string) error {
	return &model.MalformedDocumentError{Path: p.path, Line: ln.num, Err: errors.New(msg)}
}

var propertyPattern = regexp.MustCompile(`^([A-Za-z][\w]*)\s*:\s*(.*)$`)

// splitProperty splits "key: value" lines. A bare identifier line is a
// boolean flag and returns the empty value.
func splitProperty(text string) (key, val string, ok bool) {
	if m := propertyPattern.FindStringSubmatch(text); m != nil {
		return m[1], strings.TrimSpace(m[2]), true
	}
	if isIdent(text) {
		return text, "", true
	}
	return "", "", false
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func splitKind(text string) (kind, rest string) {
	kind, rest, _ = strings.Cut(text, " ")
	return kind, strings.TrimSpace(rest)
}

// splitAssign splits "left = right" at the first "=" outside quotes.
func splitAssign(s string) (left, right string, ok bool) {
	inSingle, inDouble := false, false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '=':
			if !inSingle && !inDouble {
				return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
			}
		}
	}
	return strings.TrimSpace(s), "", false
}

// splitEndpoint splits a Table.Column endpoint, honoring quoted table
// names that may contain dots.
func splitEndpoint(s string) (table, column string) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "'") {
		if end := strings.Index(s[1:], "'"); end >= 0 {
			table = s[1 : 1+end]
			column = strings.TrimSpace(strings.TrimPrefix(s[2+end:], "."))
			return table, column
		}
	}
	table, column, _ = strings.Cut(s, ".")
	return table, column
}

// keyword returns the leading identifier of a line, up to the first
// colon, space or equals sign.
func keyword(text string) string {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case ':', ' ', '\t', '=':
			return text[:i]
		}
	}
	return text
}

// unquote strips the surrounding quotes of a quoted object name.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func flagValue(val string) bool { return val == "" || val == "true" }

// dedent removes the indentation shared by every non-blank line, so a
// script body keeps its relative structure but starts flush left.
func dedent(body []string) string {
	min := -1
	for _, l := range body {
		if strings.TrimSpace(l) == "" {
			continue
		}
		d := len(l) - len(strings.TrimLeft(l, "\t "))
		if min == -1 || d < min {
			min = d
		}
	}
	if min > 0 {
		for i, l := range body {
			if len(l) >= min {
				body[i] = l[min:]
			} else {
				body[i] = strings.TrimSpace(l)
			}
		}
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}
