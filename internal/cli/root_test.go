package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbiplens/pbiplens/internal/cli/commands"
)

// writeProject lays out a minimal TMDL project for command tests.
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Demo.pbip"), []byte(`{"version": "1.0"}`), 0o644))

	tablesDir := filepath.Join(dir, "Demo.SemanticModel", "definition", "tables")
	require.NoError(t, os.MkdirAll(tablesDir, 0o755))

	sales := "table Sales\n" +
		"\tcolumn CustomerID\n" +
		"\t\tdataType: int64\n" +
		"\t\tsourceColumn: CustomerID\n" +
		"\tmeasure Total = SUM(Sales[CustomerID])\n"
	customer := "table Customer\n" +
		"\tcolumn ID\n" +
		"\t\tdataType: int64\n" +
		"\t\tsourceColumn: ID\n"
	require.NoError(t, os.WriteFile(filepath.Join(tablesDir, "Sales.tmdl"), []byte(sales), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tablesDir, "Customer.tmdl"), []byte(customer), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestInspectCommand(t *testing.T) {
	dir := writeProject(t)

	out, err := execute(t, "inspect", dir, "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "## Project Demo (tmdl)")
	assert.Contains(t, out, "Sales")
	assert.Contains(t, out, "Customer")
	assert.Contains(t, out, "2 tables, 0 relationships, 0 expressions")
}

func TestInspectCommandJSON(t *testing.T) {
	dir := writeProject(t)

	out, err := execute(t, "inspect", dir, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"project": "Demo"`)
	assert.Contains(t, out, `"format": "tmdl"`)
}

func TestInspectDiagnosticsGoToErrorWriter(t *testing.T) {
	dir := writeProject(t)
	tablesDir := filepath.Join(dir, "Demo.SemanticModel", "definition", "tables")
	tagged := "table Tagged\n" +
		"\tlineageTag: not-a-uuid\n" +
		"\tcolumn ID\n" +
		"\t\tdataType: int64\n" +
		"\t\tsourceColumn: ID\n"
	require.NoError(t, os.WriteFile(filepath.Join(tablesDir, "Tagged.tmdl"), []byte(tagged), 0o644))

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"inspect", dir, "--format", "markdown"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, errOut.String(), "not a UUID")
	assert.NotContains(t, out.String(), "not a UUID")
	assert.Contains(t, out.String(), "3 tables, 0 relationships, 0 expressions")
}

func TestInspectCommandMissingProject(t *testing.T) {
	_, err := execute(t, "inspect", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .pbip file found")
}

func TestLintCommandPassesUnderThreshold(t *testing.T) {
	dir := writeProject(t)
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("rules:\n  - kind: expect_table_starts_with\n    params:\n      pattern: t_\n"), 0o644))

	// warning findings do not fail with the default error threshold
	out, err := execute(t, "lint", dir, "--rules", rules, "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "Table 'Sales' must start with 't_'")
}

func TestLintCommandFailOn(t *testing.T) {
	dir := writeProject(t)
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("rules:\n  - kind: expect_table_starts_with\n    params:\n      pattern: t_\n"), 0o644))

	_, err := execute(t, "lint", dir, "--rules", rules, "--fail-on", "warning")
	var findings *commands.FindingsError
	require.ErrorAs(t, err, &findings)
	assert.Equal(t, 2, findings.Count)
}

func TestLintCommandNoRules(t *testing.T) {
	dir := writeProject(t)
	out, err := execute(t, "lint", dir, "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "No expectation rules configured")
}

func TestReportCommandWritesFile(t *testing.T) {
	dir := writeProject(t)
	dest := filepath.Join(t.TempDir(), "model.md")

	out, err := execute(t, "report", dir, "--file", dest, "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "Report written to")

	raw, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "### <span id=\"sales\">Sales</span>")
	assert.Contains(t, string(raw), "## Project\nDemo")
}

func TestRulesCommand(t *testing.T) {
	out, err := execute(t, "rules", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "expect_col_starts_with")
	assert.Contains(t, out, "expect_no_calculated_tables")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pbiplens v")
}
