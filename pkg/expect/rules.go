package expect

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/pbiplens/pbiplens/pkg/model"
)

// Evaluate runs a suite of rules against a model. Rule order and model
// declaration order fully determine the finding order. A rule that
// cannot run (unknown kind, bad severity, bad parameters) contributes
// an error-severity finding instead of aborting the run.
func Evaluate(m *model.Model, rules []Rule) []Finding {
	var findings []Finding
	for _, r := range rules {
		findings = append(findings, evaluate(m, r)...)
	}
	return findings
}

func evaluate(m *model.Model, r Rule) []Finding {
	sev := model.SeverityWarning
	if r.Severity != "" {
		s, ok := model.ParseSeverity(r.Severity)
		if !ok {
			return ruleGap(r, fmt.Sprintf("unknown severity %q", r.Severity))
		}
		sev = s
	}

	switch r.Kind {
	case KindColumnStartsWith:
		var p startsWithParams
		if err := decodeParams(r, &p); err != nil {
			return ruleGap(r, err.Error())
		}
		return columnStartsWith(m, p, sev)
	case KindMeasureStartsWith:
		var p startsWithParams
		if err := decodeParams(r, &p); err != nil {
			return ruleGap(r, err.Error())
		}
		return measureStartsWith(m, p.Pattern, sev)
	case KindTableStartsWith:
		var p startsWithParams
		if err := decodeParams(r, &p); err != nil {
			return ruleGap(r, err.Error())
		}
		return tableStartsWith(m, p.Pattern, sev)
	case KindRelationshipColumnTypes:
		return relationshipColumnTypes(m, sev)
	case KindTableNameNoSpaces:
		return tableNameNoSpaces(m, sev)
	case KindDAXLinesLength:
		var p lineLengthParams
		if err := decodeParams(r, &p); err != nil {
			return ruleGap(r, err.Error())
		}
		return daxLinesLength(m, p.MaxLength, sev)
	case KindMLinesLength:
		var p lineLengthParams
		if err := decodeParams(r, &p); err != nil {
			return ruleGap(r, err.Error())
		}
		return mLinesLength(m, p.MaxLength, sev)
	case KindMeasuresInSpecificTable:
		var p tableParams
		if err := decodeParams(r, &p); err != nil {
			return ruleGap(r, err.Error())
		}
		return measuresInSpecificTable(m, p.Table, sev)
	case KindNoCalculatedColumns:
		return noCalculatedColumns(m, sev)
	case KindAllRelationshipsActive:
		return allRelationshipsActive(m, sev)
	case KindNoCalculatedTables:
		return noCalculatedTables(m, sev)
	default:
		return ruleGap(r, fmt.Sprintf("unknown expectation kind %q", r.Kind))
	}
}

type startsWithParams struct {
	Pattern   string   `mapstructure:"pattern"`
	DataTypes []string `mapstructure:"dataTypes"`
}

type lineLengthParams struct {
	MaxLength int `mapstructure:"maxLength"`
}

type tableParams struct {
	Table string `mapstructure:"table"`
}

func decodeParams(r Rule, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(r.Params); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// ruleGap reports a rule that could not run at all.
func ruleGap(r Rule, msg string) []Finding {
	return []Finding{{Rule: r.Kind, Severity: model.SeverityError, Message: msg}}
}

func columnStartsWith(m *model.Model, p startsWithParams, sev model.Severity) []Finding {
	types := supportedTypes(p.DataTypes)
	var out []Finding
	for _, t := range m.Tables {
		for _, c := range t.Columns {
			if len(types) > 0 && !slices.Contains(types, string(c.DataType)) {
				continue
			}
			if !strings.HasPrefix(c.Name, p.Pattern) {
				out = append(out, Finding{
					Rule:     KindColumnStartsWith,
					Severity: sev,
					Message:  fmt.Sprintf("Column '%s' in table '%s' must start with '%s'", c.Name, t.Name, p.Pattern),
				})
			}
		}
	}
	return out
}

// supportedTypes drops the data types the column check cannot see in a
// tabular model (they only exist inside M scripts).
func supportedTypes(types []string) []string {
	var out []string
	for _, typ := range types {
		switch typ {
		case "binary", "list", "record", "time", "percentage", "duration":
			continue
		}
		out = append(out, typ)
	}
	return out
}

func measureStartsWith(m *model.Model, pattern string, sev model.Severity) []Finding {
	var out []Finding
	for _, t := range m.Tables {
		for _, ms := range t.Measures {
			if !strings.HasPrefix(ms.Name, pattern) {
				out = append(out, Finding{
					Rule:     KindMeasureStartsWith,
					Severity: sev,
					Message:  fmt.Sprintf("Measure '%s' in table '%s' must start with '%s'", ms.Name, t.Name, pattern),
				})
			}
		}
	}
	return out
}

func tableStartsWith(m *model.Model, pattern string, sev model.Severity) []Finding {
	var out []Finding
	for _, t := range m.Tables {
		if !strings.HasPrefix(t.Name, pattern) {
			out = append(out, Finding{
				Rule:     KindTableStartsWith,
				Severity: sev,
				Message:  fmt.Sprintf("Table '%s' must start with '%s'", t.Name, pattern),
			})
		}
	}
	return out
}

func relationshipColumnTypes(m *model.Model, sev model.Severity) []Finding {
	var out []Finding
	for _, r := range m.Relationships {
		from := m.Column(r.FromTable, r.FromColumn)
		to := m.Column(r.ToTable, r.ToColumn)
		if from == nil || to == nil || from.DataType == to.DataType {
			continue
		}
		out = append(out, Finding{
			Rule:     KindRelationshipColumnTypes,
			Severity: sev,
			Message: fmt.Sprintf(
				"Column '%s' in table '%s' and '%s' in table '%s' must have the same type.\n"+
					"But I found '%s' with '%s' type and '%s' with '%s' type.",
				r.FromColumn, r.FromTable, r.ToColumn, r.ToTable,
				r.FromColumn, from.DataType, r.ToColumn, to.DataType),
		})
	}
	return out
}

func tableNameNoSpaces(m *model.Model, sev model.Severity) []Finding {
	var out []Finding
	for _, t := range m.Tables {
		if strings.Contains(t.Name, " ") {
			out = append(out, Finding{
				Rule:     KindTableNameNoSpaces,
				Severity: sev,
				Message:  fmt.Sprintf("Table '%s' must not contain spaces", t.Name),
			})
		}
	}
	return out
}

func daxLinesLength(m *model.Model, maxLength int, sev model.Severity) []Finding {
	var out []Finding
	for _, t := range m.Tables {
		for _, ms := range t.Measures {
			long := longLines(ms.Expression, maxLength)
			if len(long) == 0 {
				continue
			}
			out = append(out, Finding{
				Rule:     KindDAXLinesLength,
				Severity: sev,
				Message: fmt.Sprintf("Measure '%s' in table '%s' has line(s) %s longer than %d characters",
					ms.Name, t.Name, smartJoin(long), maxLength),
			})
		}
	}
	return out
}

func mLinesLength(m *model.Model, maxLength int, sev model.Severity) []Finding {
	var out []Finding
	for _, t := range m.Tables {
		for _, p := range t.Partitions {
			long := longLines(p.Expression, maxLength)
			if len(long) == 0 {
				continue
			}
			out = append(out, Finding{
				Rule:     KindMLinesLength,
				Severity: sev,
				Message: fmt.Sprintf("Source code of table '%s' has line(s) %s longer than %d characters",
					t.Name, smartJoin(long), maxLength),
			})
		}
	}
	return out
}

func measuresInSpecificTable(m *model.Model, table string, sev model.Severity) []Finding {
	var invalid []string
	for _, t := range m.Tables {
		if len(t.Measures) > 0 && t.Name != table {
			invalid = append(invalid, t.Name)
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	return []Finding{{
		Rule:     KindMeasuresInSpecificTable,
		Severity: sev,
		Message: fmt.Sprintf("Measures must be in table '%s' but found in table(s) %s",
			table, smartJoin(invalid)),
	}}
}

func noCalculatedColumns(m *model.Model, sev model.Severity) []Finding {
	var out []Finding
	for _, t := range m.Tables {
		var calculated []string
		for _, c := range t.Columns {
			if c.Calculated {
				calculated = append(calculated, c.Name)
			}
		}
		if len(calculated) > 0 {
			out = append(out, Finding{
				Rule:     KindNoCalculatedColumns,
				Severity: sev,
				Message:  fmt.Sprintf("Table '%s' has calculated columns: %s", t.Name, smartJoin(calculated)),
			})
		}
	}
	return out
}

func allRelationshipsActive(m *model.Model, sev model.Severity) []Finding {
	var out []Finding
	for _, r := range m.Relationships {
		if !r.IsActive {
			out = append(out, Finding{
				Rule:     KindAllRelationshipsActive,
				Severity: sev,
				Message: fmt.Sprintf("Relationship between '%s.%s' and '%s.%s' must be active.",
					r.FromTable, r.FromColumn, r.ToTable, r.ToColumn),
			})
		}
	}
	return out
}

func noCalculatedTables(m *model.Model, sev model.Severity) []Finding {
	var out []Finding
	for _, t := range m.Tables {
		if len(t.Partitions) > 0 && t.Partitions[0].Type == model.PartitionCalculated {
			out = append(out, Finding{
				Rule:     KindNoCalculatedTables,
				Severity: sev,
				Message:  fmt.Sprintf("Table '%s' is calculated", t.Name),
			})
		}
	}
	return out
}

// longLines returns the 1-based numbers, as strings, of the lines
// longer than max.
func longLines(text string, max int) []string {
	var out []string
	for i, l := range strings.Split(text, "\n") {
		if len(l) > max {
			out = append(out, fmt.Sprintf("%d", i+1))
		}
	}
	return out
}

// smartJoin joins quoted items in a human-readable list: one item
// plain, two joined with "and", more with commas and a final "and".
func smartJoin(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	switch len(quoted) {
	case 0:
		return ""
	case 1:
		return quoted[0]
	case 2:
		return quoted[0] + " and " + quoted[1]
	default:
		return strings.Join(quoted[:len(quoted)-1], ", ") + " and " + quoted[len(quoted)-1]
	}
}
