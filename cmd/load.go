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

	"github.com/askdb/askdb/internal/loader"
	"github.com/spf13/cobra"
)

var loadDir string

var loadCmd = &cobra.Command{
	Use:     "load",
	Short:   "Load CSV files into the database tables they are named after",
	Long:    `Matches CSV files in a directory against table names, clears the matched tables, and inserts the rows in foreign-key dependency order.`,
	Example: `./askdb load --dialect mysql --username user --password pass --database bank --dir ./data`,
	RunE:    runLoad,
}

func runLoad(cmd *cobra.Command, args []string) error {
	if err := validateDialect(dialect); err != nil {
		return err
	}

	log.Println("INFO: Starting load operation",
		"dialect:", dialect,
		"database:", dbName,
		"dir:", loadDir,
	)

	db, err := setupDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	csvLoader, err := loader.New(db)
	if err != nil {
		return err
	}

	loads, err := csvLoader.LoadDirectory(cmd.Context(), loadDir)
	if err != nil {
		return fmt.Errorf("failed to load CSV files: %w", err)
	}

	total := 0
	for _, l := range loads {
		fmt.Printf("Loaded %d rows into %s from %s\n", l.Rows, l.Table, l.File)
		total += l.Rows
	}
	log.Println("INFO: Load operation completed,", total, "rows across", len(loads), "tables")
	return nil
}

func init() {
	loadCmd.Flags().StringVar(&loadDir, "dir", "", "Directory containing CSV files named after tables - MANDATORY")
	if err := loadCmd.MarkFlagRequired("dir"); err != nil {
		log.Println("WARN: Failed to mark --dir as required:", err)
	}
}
