package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pbiplens/pbiplens/pkg/model"
)

// Mermaid renders the model's relationships as a mermaid flowchart:
// one subgraph per table listing the columns that take part in a
// relationship, and one labeled edge per relationship. Tables and
// columns are sorted so the chart is stable across runs; edges follow
// declaration order.
func Mermaid(m *model.Model) string {
	type endpoint struct{ table, column string }

	tableCols := make(map[string]map[string]bool)
	add := func(table, column string) {
		if table == "" || column == "" {
			return
		}
		if tableCols[table] == nil {
			tableCols[table] = make(map[string]bool)
		}
		tableCols[table][column] = true
	}
	for _, r := range m.Relationships {
		add(r.FromTable, r.FromColumn)
		add(r.ToTable, r.ToColumn)
	}

	tables := make([]string, 0, len(tableCols))
	for t := range tableCols {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	lines := []string{"flowchart LR"}
	nodeIDs := make(map[endpoint]string)
	node, sub := 1, 1
	for _, t := range tables {
		lines = append(lines, fmt.Sprintf("subgraph s%d[%q]", sub, t))
		sub++
		cols := make([]string, 0, len(tableCols[t]))
		for c := range tableCols[t] {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		for _, c := range cols {
			id := fmt.Sprintf("n%d", node)
			node++
			nodeIDs[endpoint{t, c}] = id
			lines = append(lines, fmt.Sprintf("%s[%q]", id, c))
		}
		lines = append(lines, "end")
	}

	for _, r := range m.Relationships {
		from := nodeIDs[endpoint{r.FromTable, r.FromColumn}]
		to := nodeIDs[endpoint{r.ToTable, r.ToColumn}]
		fromCard := r.FromCardinalitySymbol
		if fromCard == "*" {
			// a bare asterisk is mermaid markup
			fromCard = `\*`
		}
		lines = append(lines, fmt.Sprintf("%s -- %s %s %s --- %s",
			from, fromCard, r.FilteringSymbol, r.ToCardinalitySymbol, to))
	}
	return strings.Join(lines, "\n")
}
