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
package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	Database DatabaseConfig
	Gemini   GeminiConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Dialect                        string
	Host                           string
	Port                           int
	User                           string
	Password                       string
	DBName                         string
	SSLMode                        string
	CloudSQLInstanceConnectionName string
	UsePrivateIP                   bool
	StatementTimeout               time.Duration
}

// GeminiConfig holds settings for the Gemini generation calls.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// ServerConfig holds HTTP server settings for the serve command.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

var globalConfig *Config

// GetConfig returns the resolved configuration, or defaults until flags and
// environment bindings have been applied in cmd/root.go.
func GetConfig() *Config {
	if globalConfig != nil {
		return globalConfig
	}
	return &Config{
		Database: DatabaseConfig{
			Dialect:          "mysql",
			Host:             "localhost",
			Port:             3306,
			SSLMode:          "disable",
			StatementTimeout: 30 * time.Second,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.2,
			Timeout:     30 * time.Second,
		},
		Server: ServerConfig{
			Address:      ":8000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  time.Minute,
		},
	}
}

// SetConfig sets the global configuration.
func SetConfig(cfg *Config) {
	globalConfig = cfg
}
