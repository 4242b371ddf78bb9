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
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDialect(t *testing.T) {
	for _, dialect := range []string{"mysql", "cloudsqlmysql", "postgres", "cloudsqlpostgres", "sqlserver", "cloudsqlsqlserver"} {
		assert.NoError(t, validateDialect(dialect))
	}

	err := validateDialect("oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dialect")

	assert.Error(t, validateDialect(""))
}

func TestEnvironmentBindings(t *testing.T) {
	t.Setenv("ASKDB_HOST", "db.internal")
	t.Setenv("ASKDB_STATEMENT_TIMEOUT", "45s")
	t.Setenv("GEMINI_API_KEY", "test-key")

	assert.Equal(t, "db.internal", viper.GetString("host"))
	assert.Equal(t, "45s", viper.GetString("statement-timeout"))
	assert.Equal(t, "test-key", viper.GetString("gemini-api-key"))
}
