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

func TestGateStatement(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		allowed bool
	}{
		{
			name:    "simple select",
			sql:     "SELECT * FROM customers",
			allowed: true,
		},
		{
			name:    "aggregate select",
			sql:     "SELECT COUNT(*) FROM accounts WHERE balance > 1000",
			allowed: true,
		},
		{
			name:    "select with join and subquery",
			sql:     "SELECT c.name FROM customers c JOIN accounts a ON a.customer_id = c.id WHERE a.balance = (SELECT MAX(balance) FROM accounts)",
			allowed: true,
		},
		{
			name:    "lowercase select",
			sql:     "select id from loans",
			allowed: true,
		},
		{
			name:    "delete statement",
			sql:     "DELETE FROM customers WHERE id = 1",
			allowed: false,
		},
		{
			name:    "drop statement",
			sql:     "DROP TABLE customers",
			allowed: false,
		},
		{
			name:    "update statement",
			sql:     "UPDATE accounts SET balance = 0",
			allowed: false,
		},
		{
			name:    "insert statement",
			sql:     "INSERT INTO customers (name) VALUES ('x')",
			allowed: false,
		},
		{
			name:    "select hiding a drop",
			sql:     "SELECT 1; DROP TABLE customers",
			allowed: false,
		},
		{
			name:    "denied keyword inside string literal is fine",
			sql:     "SELECT * FROM audit_log WHERE action = 'delete'",
			allowed: true,
		},
		{
			name:    "denied keyword inside double-quoted literal is fine",
			sql:     `SELECT * FROM audit_log WHERE action = "DROP TABLE"`,
			allowed: true,
		},
		{
			name:    "denied keyword as backticked identifier is fine",
			sql:     "SELECT `update` FROM migrations",
			allowed: true,
		},
		{
			name:    "updated_at column is not the update keyword",
			sql:     "SELECT updated_at FROM customers",
			allowed: true,
		},
		{
			name:    "empty statement",
			sql:     "",
			allowed: false,
		},
		{
			name:    "non sql text",
			sql:     "I cannot answer that question",
			allowed: false,
		},
		{
			name:    "with clause is not accepted",
			sql:     "WITH t AS (SELECT 1) SELECT * FROM t",
			allowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := GateStatement(tt.sql)
			assert.Equal(t, tt.allowed, decision.Allowed, "reason: %s", decision.Reason)
			if !tt.allowed {
				assert.NotEmpty(t, decision.Reason)
			}
		})
	}
}

func TestMaskLiterals(t *testing.T) {
	t.Run("single quotes blanked", func(t *testing.T) {
		got := maskLiterals("SELECT 'drop table' FROM t", true)
		assert.NotContains(t, got, "drop table")
		assert.Contains(t, got, "SELECT")
		assert.Contains(t, got, "FROM t")
	})

	t.Run("escaped quote does not end the literal", func(t *testing.T) {
		got := maskLiterals(`SELECT 'it''s a delete' FROM t`, true)
		assert.NotContains(t, got, "delete")
	})

	t.Run("backslash escape does not end the literal", func(t *testing.T) {
		got := maskLiterals(`SELECT 'a\'s drop' FROM t`, true)
		assert.NotContains(t, got, "drop")
	})

	t.Run("backtick contents kept for table extraction", func(t *testing.T) {
		got := maskLiterals("SELECT * FROM `customers`", false)
		assert.Contains(t, got, "customers")
	})

	t.Run("backtick contents blanked for the gate", func(t *testing.T) {
		got := maskLiterals("SELECT `truncate` FROM t", true)
		assert.NotContains(t, got, "truncate")
	})
}
