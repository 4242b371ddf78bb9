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
)

var (
	fenceSQLOpen  = regexp.MustCompile("(?i)^```sql\\s*\n?")
	fenceOpen     = regexp.MustCompile("^```\\s*\n?")
	fenceClose    = regexp.MustCompile("\n?```$")
	dialectPrefix = regexp.MustCompile(`(?i)^mysql\s+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// CleanStatement deterministically reduces raw model output to a single-line
// SQL statement: markdown code fences (with or without a language tag) and a
// leading dialect-name token are stripped, runs of whitespace collapse to
// single spaces, and the result is trimmed. The function is idempotent.
func CleanStatement(raw string) string {
	text := strings.TrimSpace(raw)
	for {
		stripped := stripWrappers(text)
		if stripped == text {
			break
		}
		text = stripped
	}
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// stripWrappers removes one layer of fence markers or dialect prefix. It is
// applied to a fixpoint so that doubled wrappers cannot survive a single
// cleaning pass.
func stripWrappers(text string) string {
	text = fenceSQLOpen.ReplaceAllString(text, "")
	text = fenceOpen.ReplaceAllString(text, "")
	text = fenceClose.ReplaceAllString(text, "")
	text = dialectPrefix.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
