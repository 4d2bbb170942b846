package pbip

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbiplens/pbiplens/pkg/model"
)

// The two storage formats are interchangeable producers of the same
// canonical model. This test describes one model in both formats and
// checks the parsers agree on everything a consumer can observe.

const equivTMDLCustomer = "table Customer\n" +
	"\tlineageTag: aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa\n" +
	"\tcolumn ID\n" +
	"\t\tdataType: int64\n" +
	"\t\tsourceColumn: ID\n"

const equivTMDLSales = "table Sales\n" +
	"\tcolumn CustomerID\n" +
	"\t\tdataType: int64\n" +
	"\t\tsourceColumn: CustomerID\n" +
	"\tmeasure Total = SUM(Sales[CustomerID])\n" +
	"\t\tformatString: #,0\n" +
	"\tpartition Sales = m\n" +
	"\t\tmode: import\n" +
	"\t\tsource = let Source = 1 in Source\n"

const equivTMDLRels = "relationship r1\n" +
	"\tfromColumn: Sales.CustomerID\n" +
	"\ttoColumn: Customer.ID\n"

const equivBim = `{
  "model": {
    "tables": [
      {
        "name": "Customer",
        "lineageTag": "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa",
        "columns": [{"name": "ID", "dataType": "int64", "sourceColumn": "ID"}]
      },
      {
        "name": "Sales",
        "columns": [{"name": "CustomerID", "dataType": "int64", "sourceColumn": "CustomerID"}],
        "measures": [{"name": "Total", "expression": "SUM(Sales[CustomerID])", "formatString": "#,0"}],
        "partitions": [{"name": "Sales", "mode": "import", "source": {"type": "m", "expression": "let Source = 1 in Source"}}]
      }
    ],
    "relationships": [
      {"name": "r1", "fromTable": "Sales", "fromColumn": "CustomerID", "toTable": "Customer", "toColumn": "ID"}
    ]
  }
}`

func loadEquivalent(t *testing.T, format Format) *model.Model {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Demo.pbip"), []byte(pbipStub), 0o644))
	modelDir := filepath.Join(dir, "Demo.SemanticModel")

	switch format {
	case FormatTMSL:
		require.NoError(t, os.MkdirAll(modelDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(modelDir, "model.bim"), []byte(equivBim), 0o644))
	default:
		tablesDir := filepath.Join(modelDir, "definition", "tables")
		require.NoError(t, os.MkdirAll(tablesDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(tablesDir, "Customer.tmdl"), []byte(equivTMDLCustomer), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(tablesDir, "Sales.tmdl"), []byte(equivTMDLSales), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(modelDir, "definition", "relationships.tmdl"), []byte(equivTMDLRels), 0o644))
	}

	p, err := Discover(dir)
	require.NoError(t, err)
	require.Equal(t, format, p.Format)

	m, diags, err := p.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, diags)
	return m
}

func TestFormatsProduceTheSameModel(t *testing.T) {
	fromTMDL := loadEquivalent(t, FormatTMDL)
	fromTMSL := loadEquivalent(t, FormatTMSL)

	require.Len(t, fromTMDL.Tables, len(fromTMSL.Tables))
	for i, want := range fromTMSL.Tables {
		got := fromTMDL.Tables[i]
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.LineageTag, got.LineageTag)
		assert.Equal(t, want.IsHidden, got.IsHidden)
		assert.Equal(t, want.Columns, got.Columns)
		assert.Equal(t, want.Measures, got.Measures)
		assert.Equal(t, want.Partitions, got.Partitions)
	}
	assert.Equal(t, fromTMSL.Relationships, fromTMDL.Relationships)
	assert.Equal(t, fromTMSL.Expressions, fromTMDL.Expressions)
}
