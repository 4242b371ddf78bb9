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
	"regexp"
	"strings"

	"github.com/askdb/askdb/internal/database"
)

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// TablesUsed scans the sanitized statement's identifier tokens for table
// names present in the snapshot and returns the matches in order of first
// appearance. Matching is case-insensitive and purely textual: aliases are
// not resolved beyond literal name matching, and a table name appearing as
// part of another identifier can over-report. String literal contents are
// masked before scanning.
func TablesUsed(sqlText string, snapshot database.Snapshot) []string {
	canonical := make(map[string]string, len(snapshot))
	for name := range snapshot {
		canonical[strings.ToLower(name)] = name
	}

	seen := make(map[string]bool, len(snapshot))
	used := []string{}
	for _, token := range identifierPattern.FindAllString(maskLiterals(sqlText, false), -1) {
		name, ok := canonical[strings.ToLower(token)]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		used = append(used, name)
	}
	return used
}
