// Package export writes schema artifacts derived from a reflected snapshot:
// a machine-readable schema.json and a Mermaid entity relationship diagram.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/askdb/askdb/internal/database"
)

// WriteJSON writes the snapshot as indented JSON to path.
func WriteJSON(snapshot database.Snapshot, path string) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteERD writes a markdown document containing a Mermaid erDiagram for
// the snapshot to path.
func WriteERD(snapshot database.Snapshot, dbName, path string) error {
	if err := os.WriteFile(path, []byte(RenderERD(snapshot, dbName)), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

var mermaidUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// RenderERD renders the snapshot as a markdown Mermaid erDiagram. Column
// types are reduced to Mermaid-safe tokens (parenthesized lengths dropped).
func RenderERD(snapshot database.Snapshot, dbName string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# Entity Relationship Diagram: %s\n\n", dbName))
	b.WriteString("```mermaid\nerDiagram\n")

	for _, name := range snapshot.TableNames() {
		info := snapshot[name]
		primary := make(map[string]bool, len(info.PrimaryKeys))
		for _, pk := range info.PrimaryKeys {
			primary[pk] = true
		}
		foreign := make(map[string]bool, len(info.ForeignKeys))
		for _, fk := range info.ForeignKeys {
			foreign[fk.Column] = true
		}

		b.WriteString(fmt.Sprintf("    %s {\n", mermaidName(name)))
		for _, col := range info.Columns {
			line := fmt.Sprintf("        %s %s", mermaidType(col.DataType), mermaidName(col.Name))
			switch {
			case primary[col.Name] && foreign[col.Name]:
				line += " PK, FK"
			case primary[col.Name]:
				line += " PK"
			case foreign[col.Name]:
				line += " FK"
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("    }\n")
	}

	for _, name := range snapshot.TableNames() {
		for _, fk := range snapshot[name].ForeignKeys {
			b.WriteString(fmt.Sprintf("    %s }o--|| %s : %q\n",
				mermaidName(name), mermaidName(fk.ReferencedTable), fk.Column))
		}
	}

	b.WriteString("```\n")
	return b.String()
}

func mermaidName(name string) string {
	return mermaidUnsafe.ReplaceAllString(name, "_")
}

func mermaidType(dataType string) string {
	if idx := strings.IndexByte(dataType, '('); idx > 0 {
		dataType = dataType[:idx]
	}
	dataType = mermaidUnsafe.ReplaceAllString(dataType, "_")
	if dataType == "" {
		dataType = "unknown"
	}
	return dataType
}
