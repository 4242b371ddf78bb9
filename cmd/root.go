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
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/database"
	_ "github.com/askdb/askdb/internal/database/mysql"
	_ "github.com/askdb/askdb/internal/database/postgres"
	_ "github.com/askdb/askdb/internal/database/sqlserver"
	"github.com/askdb/askdb/internal/genai"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Database connection flags
	dialect                        string
	host                           string
	port                           int
	username                       string
	password                       string
	dbName                         string
	sslMode                        string
	cloudSQLInstanceConnectionName string
	cloudSQLUsePrivateIP           bool
	statementTimeout               time.Duration

	// Gemini flags
	geminiAPIKey      string
	geminiModel       string
	geminiTemperature float32
	generationTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "askdb",
	Short: "Ask natural-language questions against a SQL database",
	Long: `askdb converts natural-language questions into read-only SQL statements
using the Gemini API, executes them against the configured database, and
returns the rows. It also serves an HTTP API and exports schema documentation.`,
	PersistentPreRunE: initFlagsAndConfig,
}

// initFlagsAndConfig resolves flags and environment bindings into the global
// configuration. Flags win over environment variables, which win over
// defaults.
func initFlagsAndConfig(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()

	if cmd != nil {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	cfg.Database.Dialect = viper.GetString("dialect")
	cfg.Database.Host = viper.GetString("host")
	cfg.Database.Port = viper.GetInt("port")
	cfg.Database.User = viper.GetString("username")
	cfg.Database.Password = viper.GetString("password")
	cfg.Database.DBName = viper.GetString("database")
	cfg.Database.SSLMode = viper.GetString("ssl-mode")
	cfg.Database.CloudSQLInstanceConnectionName = viper.GetString("cloudsql-instance-connection-name")
	cfg.Database.UsePrivateIP = viper.GetBool("cloudsql-use-private-ip")
	cfg.Database.StatementTimeout = viper.GetDuration("statement-timeout")

	cfg.Gemini.APIKey = viper.GetString("gemini-api-key")
	cfg.Gemini.Model = viper.GetString("gemini-model")
	cfg.Gemini.Temperature = float32(viper.GetFloat64("temperature"))
	cfg.Gemini.Timeout = viper.GetDuration("generation-timeout")

	dbCfg := cfg.Database
	database.SetConfig(&dbCfg)
	config.SetConfig(cfg)

	dialect = cfg.Database.Dialect
	dbName = cfg.Database.DBName
	geminiAPIKey = cfg.Gemini.APIKey

	return nil
}

func validateDialect(dialect string) error {
	supportedDialects := []string{"postgres", "cloudsqlpostgres", "mysql", "cloudsqlmysql", "sqlserver", "cloudsqlsqlserver"}
	isValidDialect := false
	for _, supportedDialect := range supportedDialects {
		if dialect == supportedDialect {
			isValidDialect = true
			break
		}
	}
	if !isValidDialect {
		return fmt.Errorf("unsupported dialect: %s (only %s are supported)", dialect, strings.Join(supportedDialects, ", "))
	}
	return nil
}

func setupDatabase() (*database.DB, error) {
	dbConfig := database.GetConfig()
	if dbConfig == nil {
		return nil, fmt.Errorf("database config is not initialized")
	}
	db, err := database.New(*dbConfig)
	if err != nil {
		log.Println("ERROR: Failed to connect to database:", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// setupGenerator creates a Gemini client and verifies the API key so that
// credential problems surface before any question is accepted.
func setupGenerator(ctx context.Context) (genai.SQLGenerator, error) {
	cfg := config.GetConfig()
	generator, err := genai.NewClient(ctx, genai.Config{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Gemini.Model,
		Temperature: cfg.Gemini.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if err := generator.IsAPIKeyValid(ctx); err != nil {
		generator.Close()
		return nil, fmt.Errorf("Gemini API key validation failed: %w", err)
	}
	return generator, nil
}

func newService(db database.DBAdapter, generator genai.SQLGenerator) *nl2sql.Service {
	cfg := config.GetConfig()
	return nl2sql.NewService(db, generator, nl2sql.Config{
		GenerationTimeout: cfg.Gemini.Timeout,
		StatementTimeout:  cfg.Database.StatementTimeout,
	})
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Database connection flags
	rootCmd.PersistentFlags().StringVar(&dialect, "dialect", "mysql", fmt.Sprintf("Database dialect (%s)", strings.Join([]string{"postgres", "mysql", "sqlserver", "cloudsqlpostgres", "cloudsqlmysql", "cloudsqlsqlserver"}, ", ")))
	rootCmd.PersistentFlags().StringVar(&host, "host", "localhost", "Database host")
	rootCmd.PersistentFlags().IntVar(&port, "port", 3306, "Database port")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "Database username - MANDATORY")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Database password")
	rootCmd.PersistentFlags().StringVar(&dbName, "database", "", "Database name - MANDATORY")
	rootCmd.PersistentFlags().StringVar(&sslMode, "ssl-mode", "disable", "SSL mode for PostgreSQL connections")
	rootCmd.PersistentFlags().StringVar(&cloudSQLInstanceConnectionName, "cloudsql-instance-connection-name", "", "Cloud SQL instance connection name (for Cloud SQL dialects) - MANDATORY for CloudSQL")
	rootCmd.PersistentFlags().BoolVar(&cloudSQLUsePrivateIP, "cloudsql-use-private-ip", false, "Use private IP for Cloud SQL connection (Cloud SQL)")
	rootCmd.PersistentFlags().DurationVar(&statementTimeout, "statement-timeout", 30*time.Second, "Timeout for executing a generated statement")

	// Gemini flags
	rootCmd.PersistentFlags().StringVar(&geminiAPIKey, "gemini-api-key", "", "Gemini API key (can also be set via GEMINI_API_KEY environment variable)")
	rootCmd.PersistentFlags().StringVar(&geminiModel, "gemini-model", "gemini-2.0-flash", "Gemini model used for SQL generation")
	rootCmd.PersistentFlags().Float32Var(&geminiTemperature, "temperature", 0.2, "Sampling temperature for SQL generation")
	rootCmd.PersistentFlags().DurationVar(&generationTimeout, "generation-timeout", 30*time.Second, "Timeout for a single Gemini call")

	// Environment bindings: ASKDB_HOST, ASKDB_PORT and friends fill any flag
	// left unset. GEMINI_API_KEY is also honored without the prefix.
	viper.SetEnvPrefix("ASKDB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("gemini-api-key", "GEMINI_API_KEY", "ASKDB_GEMINI_API_KEY"); err != nil {
		log.Println("WARN: Failed to bind GEMINI_API_KEY environment variable:", err)
	}

	// Add subcommands
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(loadCmd)
}
