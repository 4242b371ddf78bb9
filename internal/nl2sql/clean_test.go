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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanStatement(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain statement untouched",
			raw:  "SELECT * FROM customers",
			want: "SELECT * FROM customers",
		},
		{
			name: "sql fence",
			raw:  "```sql\nSELECT * FROM customers\n```",
			want: "SELECT * FROM customers",
		},
		{
			name: "anonymous fence",
			raw:  "```\nSELECT 1\n```",
			want: "SELECT 1",
		},
		{
			name: "dialect prefix",
			raw:  "mysql\nSELECT COUNT(*) FROM accounts",
			want: "SELECT COUNT(*) FROM accounts",
		},
		{
			name: "fence wrapping dialect prefix",
			raw:  "```sql\nmysql\nSELECT id FROM loans\n```",
			want: "SELECT id FROM loans",
		},
		{
			name: "multiline statement collapses to one line",
			raw:  "SELECT id,\n  name\nFROM customers\nWHERE city = 'Berlin'",
			want: "SELECT id, name FROM customers WHERE city = 'Berlin'",
		},
		{
			name: "surrounding whitespace trimmed",
			raw:  "   SELECT 1   ",
			want: "SELECT 1",
		},
		{
			name: "uppercase fence tag",
			raw:  "```SQL\nSELECT 1\n```",
			want: "SELECT 1",
		},
		{
			name: "mysql as identifier is kept mid-statement",
			raw:  "SELECT mysql FROM settings",
			want: "SELECT mysql FROM settings",
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
		{
			name: "fence only",
			raw:  "```sql\n```",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanStatement(tt.raw)
			assert.Equal(t, tt.want, got)

			// Cleaning an already cleaned statement must change nothing.
			assert.Equal(t, got, CleanStatement(got))
		})
	}
}

func TestCleanStatementIdempotentOnDoubledWrappers(t *testing.T) {
	raw := "mysql mysql SELECT 1"
	once := CleanStatement(raw)
	assert.Equal(t, "SELECT 1", once)
	assert.Equal(t, once, CleanStatement(once))
}
