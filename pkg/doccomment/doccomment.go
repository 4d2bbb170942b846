// Package doccomment extracts structured documentation from the comment
// blocks embedded in DAX and M script bodies. A documentation block is a
// leading /* @doc ... */ comment; text up to the first "@col <name>:" line
// documents the owning entity and each @col section documents one column or
// measure. Comment blocks without the @doc marker are ordinary script text
// and are never touched.
package doccomment

import (
	"regexp"
	"strings"
)

// Doc is the parsed content of one documentation block.
type Doc struct {
	// Description is the entity-level text before the first @col tag.
	Description string
	// Fields maps a sub-tag name to its description.
	Fields map[string]string
	// FieldOrder preserves the order @col tags appeared in.
	FieldOrder []string
}

var (
	blockPattern = regexp.MustCompile(`(?s)/\*\s?@doc(.*?)\*/`)
	colSplit     = regexp.MustCompile(`@col\s+`)
	colHead      = regexp.MustCompile(`(?s)^(\w+):\s*(.*)$`)
)

// Extract parses the first documentation block of a script body. ok is false
// when the body carries no @doc block.
func Extract(script string) (doc Doc, ok bool) {
	m := blockPattern.FindStringSubmatch(script)
	if m == nil {
		return Doc{}, false
	}
	body := m[1]

	doc.Fields = make(map[string]string)

	parts := colSplit.Split(body, -1)
	doc.Description = clean(parts[0])
	for _, part := range parts[1:] {
		h := colHead.FindStringSubmatch(part)
		if h == nil {
			continue
		}
		name := h[1]
		if _, dup := doc.Fields[name]; !dup {
			doc.FieldOrder = append(doc.FieldOrder, name)
		}
		doc.Fields[name] = clean(h[2])
	}
	return doc, true
}

// Strip removes every @doc comment block from a script body. Plain /* ... */
// comments are preserved.
func Strip(script string) string {
	return strings.TrimSpace(blockPattern.ReplaceAllString(script, ""))
}

// clean normalizes extracted description text: tabs introduced by the
// surrounding indentation are dropped and the edges trimmed.
func clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\t", ""))
}
