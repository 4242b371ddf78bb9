/*
 * Copyright 2025 The askdb Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package nl2sql

import (
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/database"
)

const promptTemplate = `Based on the table schema below, write a SQL query that would answer the user's question.

Rules:
- Use MySQL syntax only.
- Use MySQL date and time functions (CURDATE, DATE_SUB, DATE_FORMAT, ...).
- When aggregating, every selected column that is not aggregated must appear in the GROUP BY clause.
- For top-N or extremal questions, prefer JOIN-based formulations over correlated subqueries.
- Return exactly one SQL statement. Do not include any explanation, markdown formatting, or line breaks.

Table Schema:
%s
Question: %s
SQL Query:
`

// BuildPrompt renders the fixed instruction template with the reflected
// schema and the user's question verbatim.
func BuildPrompt(snapshot database.Snapshot, question string) string {
	return fmt.Sprintf(promptTemplate, RenderSchema(snapshot), question)
}

// RenderSchema produces the human-readable schema description embedded in
// the prompt: one block per table with columns, primary keys, and foreign
// keys, tables in alphabetical order.
func RenderSchema(snapshot database.Snapshot) string {
	var b strings.Builder
	for _, name := range snapshot.TableNames() {
		info := snapshot[name]
		b.WriteString(fmt.Sprintf("Table: %s\n", name))

		columns := make([]string, len(info.Columns))
		for i, col := range info.Columns {
			nullability := "NOT NULL"
			if col.Nullable {
				nullability = "NULL"
			}
			columns[i] = fmt.Sprintf("%s %s %s", col.Name, col.DataType, nullability)
		}
		b.WriteString(fmt.Sprintf("  Columns: %s\n", strings.Join(columns, ", ")))

		if len(info.PrimaryKeys) > 0 {
			b.WriteString(fmt.Sprintf("  Primary Key: (%s)\n", strings.Join(info.PrimaryKeys, ", ")))
		}
		for _, fk := range info.ForeignKeys {
			b.WriteString(fmt.Sprintf("  Foreign Key: %s references %s.%s\n", fk.Column, fk.ReferencedTable, fk.ReferencedColumn))
		}
		b.WriteString("\n")
	}
	return b.String()
}
