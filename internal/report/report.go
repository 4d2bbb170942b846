// Package report renders a markdown report of a semantic model: a
// linked table of contents, expectation findings, a mermaid
// relationship chart and one section per table with its source,
// columns and measures.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pbiplens/pbiplens/pkg/expect"
	"github.com/pbiplens/pbiplens/pkg/model"
)

//go:embed template.md.tmpl
var templateText string

// Metadata is one named block of the report's overview section.
type Metadata struct {
	Name  string
	Value string
}

type data struct {
	Metadata    []Metadata
	Tables      []*model.Table
	Expressions []*model.Expression
	Mermaid     string
	Findings    []expect.Finding
}

var titleCaser = cases.Title(language.English)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"id":    sanitizeID,
	"title": titleCaser.String,
	"cell":  func(s string) string { return strings.ReplaceAll(s, "\n", "<br>") },
}).Parse(templateText))

// Render produces the markdown report for a loaded model. Anchors that
// would collide (tables whose names sanitize to the same id) are
// renumbered along with the links pointing at them.
func Render(m *model.Model, findings []expect.Finding, metadata []Metadata) (string, error) {
	d := data{
		Metadata:    metadata,
		Tables:      m.Tables,
		Expressions: m.Expressions,
		Mermaid:     Mermaid(m),
		Findings:    findings,
	}
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, d); err != nil {
		return "", err
	}
	return fixDuplicateIDs(buf.String()), nil
}

var (
	spacePattern  = regexp.MustCompile(`\s+`)
	idCharPattern = regexp.MustCompile(`[^a-z0-9\-]`)
)

// sanitizeID turns an entity name into a markdown-friendly anchor id.
func sanitizeID(s string) string {
	s = strings.ToLower(s)
	s = spacePattern.ReplaceAllString(s, "-")
	return idCharPattern.ReplaceAllString(s, "")
}

var (
	codeBlockPattern = regexp.MustCompile("(?s)```.*?```")
	idAttrPattern    = regexp.MustCompile(`(\bid=")([^"]+)(")`)
	mdLinkPattern    = regexp.MustCompile(`(\]\(#)([^)]+)(\))`)
)

// fixDuplicateIDs renumbers repeated id="..." attributes (first stays,
// second gets a 1 suffix, and so on) and repoints markdown links at
// the renumbered anchors in order of appearance. Code blocks are left
// untouched.
func fixDuplicateIDs(text string) string {
	idMapping := make(map[string][]string)
	counts := make(map[string]int)
	linkCounts := make(map[string]int)

	fixSegment := func(seg string) string {
		seg = idAttrPattern.ReplaceAllStringFunc(seg, func(match string) string {
			m := idAttrPattern.FindStringSubmatch(match)
			orig := m[2]
			newID := orig
			if n := counts[orig]; n > 0 {
				newID = fmt.Sprintf("%s%d", orig, n)
			}
			counts[orig]++
			idMapping[orig] = append(idMapping[orig], newID)
			return m[1] + newID + m[3]
		})
		return mdLinkPattern.ReplaceAllStringFunc(seg, func(match string) string {
			m := mdLinkPattern.FindStringSubmatch(match)
			orig := m[2]
			targets := idMapping[orig]
			if len(targets) == 0 {
				return match
			}
			target := targets[0]
			if n := linkCounts[orig]; n < len(targets) {
				target = targets[n]
			}
			linkCounts[orig]++
			return m[1] + target + m[3]
		})
	}

	var b strings.Builder
	last := 0
	for _, loc := range codeBlockPattern.FindAllStringIndex(text, -1) {
		b.WriteString(fixSegment(text[last:loc[0]]))
		b.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(fixSegment(text[last:]))
	return b.String()
}
