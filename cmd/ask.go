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
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:     "ask [question]",
	Short:   "Answer a natural-language question with a generated SQL query",
	Long:    `Converts the question into a single SELECT statement, runs it against the configured database, and prints the result as JSON.`,
	Example: `./askdb ask --dialect mysql --username user --password pass --database bank "How many customers live in Berlin?"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := validateDialect(dialect); err != nil {
		return err
	}

	question := strings.Join(args, " ")
	log.Println("INFO: Starting ask operation",
		"dialect:", dialect,
		"database:", dbName,
	)

	db, err := setupDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	generator, err := setupGenerator(ctx)
	if err != nil {
		return err
	}
	defer generator.Close()

	service := newService(db, generator)
	result, genErr := service.Generate(ctx, nl2sql.Request{Question: question})
	if genErr != nil {
		log.Println("WARN: Pipeline did not produce a result:", genErr)
	}

	// Pipeline failures (rejected or failed statements) are part of the
	// payload, not a command failure. Only unreachable dependencies above
	// cause a non-zero exit.
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}
