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
package cmd

import (
	"fmt"
	"log"

	"github.com/askdb/askdb/internal/export"
	"github.com/spf13/cobra"
)

var (
	schemaJSONPath string
	schemaERDPath  string
)

var schemaCmd = &cobra.Command{
	Use:     "schema",
	Short:   "Export the reflected schema as JSON and a Mermaid ER diagram",
	Long:    `Reflects tables, columns, primary keys, and foreign keys from the database and writes them to a JSON file and a Mermaid entity-relationship diagram.`,
	Example: `./askdb schema --dialect mysql --username user --password pass --database bank --out-json schema.json --out-erd ERD.md`,
	RunE:    runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	if err := validateDialect(dialect); err != nil {
		return err
	}

	log.Println("INFO: Starting schema export",
		"dialect:", dialect,
		"database:", dbName,
	)

	db, err := setupDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	snapshot, err := db.Snapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to reflect schema: %w", err)
	}

	if err := export.WriteJSON(snapshot, schemaJSONPath); err != nil {
		return fmt.Errorf("failed to write schema JSON: %w", err)
	}
	fmt.Printf("Schema written to: %s\n", schemaJSONPath)

	if err := export.WriteERD(snapshot, dbName, schemaERDPath); err != nil {
		return fmt.Errorf("failed to write ER diagram: %w", err)
	}
	fmt.Printf("ER diagram written to: %s\n", schemaERDPath)

	log.Println("INFO: Schema export completed,", len(snapshot), "tables")
	return nil
}

func init() {
	schemaCmd.Flags().StringVar(&schemaJSONPath, "out-json", "schema.json", "File path for the JSON schema export")
	schemaCmd.Flags().StringVar(&schemaERDPath, "out-erd", "ERD.md", "File path for the Mermaid ER diagram")
}
