package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// qualifiedRefPattern matches Table[Column] and 'Table Name'[Column]
// references inside a DAX expression.
var qualifiedRefPattern = regexp.MustCompile(`(?:\b[A-Za-z_][A-Za-z0-9_]*\[[^\]]+\])|(?:'[^']+'\[[^\]]+\])`)

// bracketPattern matches any bracketed identifier; bare (unqualified)
// references are filtered from its matches by scanReferences.
var bracketPattern = regexp.MustCompile(`\[[^\]]+\]`)

// Resolve runs the post-parse pass over an assembled model: it verifies
// lineage-tag uniqueness across the whole model, resolves every
// relationship's endpoints against the table/column sequences, and computes
// each measure's references from its expression text. Resolve never touches
// the relationships' symbolic fields.
//
// Resolving an already-resolved model is a no-op. The returned diagnostics
// are non-fatal (currently lineage tags that are not UUID-shaped); a non-nil
// error is fatal and the model must not be used.
func Resolve(m *Model) ([]Diagnostic, error) {
	if m.resolved {
		return nil, nil
	}

	diags, err := checkLineageTags(m)
	if err != nil {
		return nil, err
	}

	if err := resolveRelationships(m); err != nil {
		return nil, err
	}

	for _, t := range m.Tables {
		for _, ms := range t.Measures {
			ms.References = resolveReferences(m, ms.Expression)
		}
	}

	m.resolved = true
	return diags, nil
}

// Resolved reports whether the model has been through Resolve.
func (m *Model) Resolved() bool { return m.resolved }

// checkLineageTags verifies that every lineage tag in the model is unique.
// Tables, columns, measures and shared expressions share one namespace.
// Tags that are not UUID-shaped are reported as warnings but accepted.
func checkLineageTags(m *Model) ([]Diagnostic, error) {
	owners := make(map[string]string)
	var diags []Diagnostic

	claim := func(tag, owner string) error {
		if tag == "" {
			return nil
		}
		if first, ok := owners[tag]; ok {
			return &DuplicateLineageTagError{Tag: tag, First: first, Second: owner}
		}
		owners[tag] = owner
		if _, err := uuid.Parse(tag); err != nil {
			diags = append(diags, Diagnostic{
				Code:     CodeLineageTagFormat,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("lineage tag %q of %s is not a UUID", tag, owner),
			})
		}
		return nil
	}

	for _, t := range m.Tables {
		if err := claim(t.LineageTag, fmt.Sprintf("table '%s'", t.Name)); err != nil {
			return nil, err
		}
		for _, c := range t.Columns {
			if err := claim(c.LineageTag, fmt.Sprintf("column '%s'[%s]", t.Name, c.Name)); err != nil {
				return nil, err
			}
		}
		for _, ms := range t.Measures {
			if err := claim(ms.LineageTag, fmt.Sprintf("measure '%s'[%s]", t.Name, ms.Name)); err != nil {
				return nil, err
			}
		}
	}
	for _, e := range m.Expressions {
		if err := claim(e.LineageTag, fmt.Sprintf("expression '%s'", e.Name)); err != nil {
			return nil, err
		}
	}
	return diags, nil
}

// resolveRelationships checks that both endpoints of every relationship
// exist in the model. Endpoints stay name-based; no pointers are embedded.
func resolveRelationships(m *Model) error {
	for _, r := range m.Relationships {
		if m.Column(r.FromTable, r.FromColumn) == nil {
			return &DanglingRelationshipError{
				Relationship: r.Name, End: "from", Table: r.FromTable, Column: r.FromColumn,
			}
		}
		if m.Column(r.ToTable, r.ToColumn) == nil {
			return &DanglingRelationshipError{
				Relationship: r.Name, End: "to", Table: r.ToTable, Column: r.ToColumn,
			}
		}
	}
	return nil
}

// resolveReferences extracts the references of one measure expression.
// Qualified Table[Column] references resolve directly. Bare [Name]
// references are matched against known measures and columns; every candidate
// is recorded, and flagged ambiguous when there is more than one.
func resolveReferences(m *Model, expression string) []Reference {
	var refs []Reference

	for _, match := range dedupe(qualifiedRefPattern.FindAllString(expression, -1)) {
		table, column := splitQualifiedRef(match)
		refs = append(refs, Reference{Type: RefTable, Name: table, Column: column})
	}

	for _, name := range dedupe(bareReferences(expression)) {
		refs = append(refs, classifyBareRef(m, name)...)
	}
	return refs
}

// bareReferences finds [Name] references that are not qualified by a table
// (no preceding identifier or quoted name) and not part of a Table[Col][x]
// chain.
func bareReferences(expression string) []string {
	var names []string
	for _, loc := range bracketPattern.FindAllStringIndex(expression, -1) {
		start, end := loc[0], loc[1]
		if start > 0 {
			prev := expression[start-1]
			if prev == '\'' || prev == '_' || isWordByte(prev) {
				continue
			}
		}
		if end+1 < len(expression) && expression[end] == '[' && isWordByte(expression[end+1]) {
			continue
		}
		names = append(names, expression[start+1:end-1])
	}
	return names
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// classifyBareRef resolves one bare [Name] reference against the model.
func classifyBareRef(m *Model, name string) []Reference {
	var candidates []Reference
	for _, t := range m.Tables {
		if t.Measure(name) != nil {
			candidates = append(candidates, Reference{Type: RefMeasure, Name: name})
		}
		if t.Column(name) != nil {
			candidates = append(candidates, Reference{Type: RefColumn, Name: t.Name, Column: name})
		}
	}
	switch len(candidates) {
	case 0:
		// Unknown name: keep it as a measure reference so nothing is lost.
		return []Reference{{Type: RefMeasure, Name: name}}
	case 1:
		return candidates
	default:
		for i := range candidates {
			candidates[i].Ambiguous = true
		}
		return candidates
	}
}

// splitQualifiedRef splits Table[Column] or 'Table Name'[Column] into its
// table and column parts.
func splitQualifiedRef(ref string) (table, column string) {
	open := strings.Index(ref, "[")
	table = strings.Trim(ref[:open], "'")
	column = ref[open+1 : len(ref)-1]
	return table, column
}

// dedupe removes duplicates while preserving first-seen order, keeping
// reference sequences deterministic.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
