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
	"regexp"
	"strings"
)

// GateDecision is the safety gate's classification of a statement. Only
// allowed statements may reach the database.
type GateDecision struct {
	Allowed bool
	Reason  string
}

// deniedKeywords lists mutating and structural keywords that disqualify a
// statement, matched as whole words outside string and identifier literals.
// This is a textual heuristic, not a parser-backed guarantee; keywords
// hiding in comments are still caught because comments are scanned too.
var deniedKeywords = []string{
	"create", "drop", "alter", "insert", "update", "delete", "truncate",
	"grant", "revoke", "rename", "replace", "call", "lock", "load", "set",
	"merge", "exec", "execute",
}

var (
	deniedPattern  = regexp.MustCompile(`(?i)\b(` + strings.Join(deniedKeywords, "|") + `)\b`)
	leadingKeyword = regexp.MustCompile(`^[A-Za-z]+`)
)

// GateStatement classifies a sanitized statement. Allowed means the first
// keyword is SELECT and no denied keyword appears outside literals.
func GateStatement(sqlText string) GateDecision {
	scannable := strings.TrimSpace(maskLiterals(sqlText, true))
	if scannable == "" {
		return GateDecision{Allowed: false, Reason: "empty statement"}
	}

	first := leadingKeyword.FindString(scannable)
	if !strings.EqualFold(first, "select") {
		return GateDecision{Allowed: false, Reason: fmt.Sprintf("statement must begin with SELECT, got %q", first)}
	}

	if match := deniedPattern.FindString(scannable); match != "" {
		return GateDecision{Allowed: false, Reason: fmt.Sprintf("contains denied keyword %s", strings.ToUpper(match))}
	}

	return GateDecision{Allowed: true}
}

// maskLiterals blanks out the contents of single-quoted and double-quoted
// string literals so keyword scans cannot match inside them. When
// maskIdentifiers is true, backtick-quoted identifier contents are blanked
// as well; table extraction keeps them so quoted table names still match.
func maskLiterals(sqlText string, maskIdentifiers bool) string {
	var b strings.Builder
	b.Grow(len(sqlText))

	runes := []rune(sqlText)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '\'', '"':
			quote := r
			b.WriteRune(quote)
			i++
			for i < len(runes) {
				if runes[i] == '\\' && i+1 < len(runes) {
					i += 2
					continue
				}
				if runes[i] == quote {
					// Doubled quote is an escaped quote, not a terminator.
					if i+1 < len(runes) && runes[i+1] == quote {
						i += 2
						continue
					}
					break
				}
				i++
			}
			b.WriteRune(' ')
			if i < len(runes) {
				b.WriteRune(quote)
			}
		case '`':
			b.WriteRune(' ')
			i++
			start := i
			for i < len(runes) && runes[i] != '`' {
				i++
			}
			if !maskIdentifiers {
				b.WriteString(string(runes[start:i]))
			} else {
				b.WriteRune(' ')
			}
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
