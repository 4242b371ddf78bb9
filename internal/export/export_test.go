package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportSnapshot() database.Snapshot {
	return database.Snapshot{
		"customers": {
			Name: "customers",
			Columns: []database.ColumnInfo{
				{Name: "id", DataType: "int", Nullable: false},
				{Name: "name", DataType: "varchar(100)", Nullable: false},
			},
			PrimaryKeys: []string{"id"},
		},
		"accounts": {
			Name: "accounts",
			Columns: []database.ColumnInfo{
				{Name: "id", DataType: "int", Nullable: false},
				{Name: "customer_id", DataType: "int", Nullable: false},
				{Name: "balance", DataType: "decimal(10,2)", Nullable: true},
			},
			PrimaryKeys: []string{"id"},
			ForeignKeys: []database.ForeignKeyReference{
				{Column: "customer_id", ReferencedTable: "customers", ReferencedColumn: "id"},
			},
		},
	}
}

func TestRenderERD(t *testing.T) {
	erd := RenderERD(exportSnapshot(), "bank")

	assert.Contains(t, erd, "# Entity Relationship Diagram: bank")
	assert.True(t, strings.Contains(erd, "```mermaid\nerDiagram\n"))
	assert.Contains(t, erd, "customers {")
	assert.Contains(t, erd, "accounts {")

	// Key annotations.
	assert.Contains(t, erd, "int id PK")
	assert.Contains(t, erd, "int customer_id FK")

	// Parenthesized type lengths are not Mermaid-safe.
	assert.Contains(t, erd, "decimal balance")
	assert.NotContains(t, erd, "decimal(10,2)")

	// Relation line: child many-to-one parent.
	assert.Contains(t, erd, `accounts }o--|| customers : "customer_id"`)
}

func TestRenderERDColumnBothKeys(t *testing.T) {
	snapshot := database.Snapshot{
		"account_owners": {
			Name: "account_owners",
			Columns: []database.ColumnInfo{
				{Name: "account_id", DataType: "int"},
			},
			PrimaryKeys: []string{"account_id"},
			ForeignKeys: []database.ForeignKeyReference{
				{Column: "account_id", ReferencedTable: "accounts", ReferencedColumn: "id"},
			},
		},
	}

	erd := RenderERD(snapshot, "bank")
	assert.Contains(t, erd, "int account_id PK, FK")
}

func TestWriteJSONRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.json")

	require.NoError(t, WriteJSON(exportSnapshot(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))

	var decoded map[string]database.TableInfo
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Contains(t, decoded, "accounts")
	assert.Equal(t, "customers", decoded["accounts"].ForeignKeys[0].ReferencedTable)
}

func TestWriteERD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ERD.md")

	require.NoError(t, WriteERD(exportSnapshot(), "bank", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "erDiagram")
}

func TestMermaidSanitizers(t *testing.T) {
	assert.Equal(t, "order_items", mermaidName("order-items"))
	assert.Equal(t, "varchar", mermaidType("varchar(255)"))
	assert.Equal(t, "unknown", mermaidType(""))
}
