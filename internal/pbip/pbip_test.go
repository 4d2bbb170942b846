package pbip

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pbipStub = `{"version": "1.0", "artifacts": [{"report": {"path": "Demo.Report"}}]}`

// writeProject lays out a minimal TMDL project on disk.
func writeProject(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".pbip"), []byte(pbipStub), 0o644))

	tablesDir := filepath.Join(dir, name+".SemanticModel", "definition", "tables")
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
	rels := "relationship r1\n" +
		"\tfromColumn: Sales.CustomerID\n" +
		"\ttoColumn: Customer.ID\n"

	require.NoError(t, os.WriteFile(filepath.Join(tablesDir, "Sales.tmdl"), []byte(sales), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tablesDir, "Customer.tmdl"), []byte(customer), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tablesDir, "..", "relationships.tmdl"), []byte(rels), 0o644))
	return dir
}

func TestDiscoverDirectory(t *testing.T) {
	dir := writeProject(t, "Demo")

	p, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, "Demo", p.Name)
	assert.Equal(t, filepath.Join(dir, "Demo.pbip"), p.PbipPath)
	assert.Equal(t, filepath.Join(dir, "Demo.SemanticModel"), p.SemanticModelDir)
	assert.Equal(t, filepath.Join(dir, "Demo.Report"), p.ReportDir)
	assert.Equal(t, FormatTMDL, p.Format)
}

func TestDiscoverExplicitFile(t *testing.T) {
	dir := writeProject(t, "Demo")

	p, err := Discover(filepath.Join(dir, "Demo.pbip"))
	require.NoError(t, err)
	assert.Equal(t, "Demo", p.Name)
}

func TestDiscoverNotFound(t *testing.T) {
	_, err := Discover(t.TempDir())
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestDiscoverMultipleProjects(t *testing.T) {
	dir := writeProject(t, "Demo")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Other.pbip"), []byte(pbipStub), 0o644))

	_, err := Discover(dir)
	var multiple *MultipleProjectsError
	require.ErrorAs(t, err, &multiple)
	assert.Equal(t, []string{"Demo.pbip", "Other.pbip"}, multiple.Files)
	assert.Contains(t, multiple.Error(), "Demo.pbip")
}

func TestDiscoverMissingSemanticModel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Demo.pbip"), []byte(pbipStub), 0o644))

	_, err := Discover(dir)
	var missing *SemanticModelNotFoundError
	require.ErrorAs(t, err, &missing)
}

func TestDiscoverTMSL(t *testing.T) {
	dir := writeProject(t, "Demo")
	bim := `{"model": {"tables": [{"name": "Sales", "columns": [{"name": "A", "sourceColumn": "A"}]}]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Demo.SemanticModel", "model.bim"), []byte(bim), 0o644))

	p, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, FormatTMSL, p.Format)

	m, diags, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, m.Tables, 1)
	assert.Equal(t, "Sales", m.Tables[0].Name)
}

func TestLoadTMDL(t *testing.T) {
	dir := writeProject(t, "Demo")
	p, err := Discover(dir)
	require.NoError(t, err)

	m, diags, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, m.Tables, 2)
	assert.True(t, m.Resolved())

	// the resolver computed the measure's references
	total := m.Measure("Sales", "Total")
	require.NotNil(t, total)
	require.Len(t, total.References, 1)
	assert.Equal(t, "Sales", total.References[0].Name)
}
