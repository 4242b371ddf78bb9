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
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/askdb/askdb/internal/api"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/observability"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	serveAddress string
	logLevel     string
	logJSON      bool
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Serve the HTTP API for query generation and schema reflection",
	Long:    `Starts an HTTP server exposing POST /api/query, GET /api/schema, GET /api/health, and GET /metrics. The server drains in-flight requests on SIGINT or SIGTERM.`,
	Example: `./askdb serve --dialect mysql --username user --password pass --database bank --address :8000`,
	RunE:    runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := validateDialect(dialect); err != nil {
		return err
	}

	logger, err := observability.NewLogger(logLevel, logJSON)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

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

	cfg := config.GetConfig()
	if addr := viper.GetString("address"); addr != "" {
		cfg.Server.Address = addr
	}
	handler := api.NewHandler(api.Dependencies{
		Logger:    logger,
		Generator: newService(db, generator),
		DB:        db,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("address", server.Addr),
			zap.String("dialect", dialect),
			zap.String("database", dbName),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "address", ":8000", "Address for the HTTP server to listen on")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&logJSON, "log-json", true, "Emit structured JSON logs")
}
