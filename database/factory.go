/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomoncle/dao/utils"
	"github.com/uptrace/bun"
)

// BaseDatabaseFactory builds one manager from configuration and fronts it
// for the rest of the process.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
}

func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{logger: GetLogger()}
}

// CreateFromConfig checks that cfg names a known driver and builds its manager.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if _, ok := lookupDriver(cfg.Type); !ok {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, SupportedTypes())
	}

	f.manager = NewDatabaseManager(cfg)
	f.manager.SetLogger(f.logger)
	return f.manager, nil
}

// OverrideFromEnv replaces config values with the DB_*, DAO_* and LOG_*
// environment variables that are set. Malformed numbers are ignored.
func OverrideFromEnv(cfg *Config) {
	conn := &cfg.ConnectionConfig
	conn.Host = utils.EnvDefaultString("DB_HOST", conn.Host)
	conn.Port = utils.EnvDefaultInt("DB_PORT", conn.Port)
	conn.Username = utils.EnvDefaultString("DB_USERNAME", conn.Username)
	conn.Password = utils.EnvDefaultString("DB_PASSWORD", conn.Password)
	conn.DBName = utils.EnvDefaultString("DB_NAME", conn.DBName)
	conn.SSLMode = utils.EnvDefaultString("DB_SSLMODE", conn.SSLMode)
	conn.MaxIdleConns = utils.EnvDefaultInt("DB_MAX_IDLE_CONNS", conn.MaxIdleConns)
	conn.MaxOpenConns = utils.EnvDefaultInt("DB_MAX_OPEN_CONNS", conn.MaxOpenConns)
	conn.ConnMaxLifetime = utils.EnvDefaultDuration("DB_CONN_MAX_LIFETIME", conn.ConnMaxLifetime)
	conn.EnableQueryLog = utils.EnvDefaultBool("DB_ENABLE_QUERY_LOG", conn.EnableQueryLog)

	repo := &cfg.RepositoryConfig
	repo.OffsetPolicy = utils.EnvDefaultString("DAO_OFFSET_POLICY", repo.OffsetPolicy)
	repo.OrderColumn = utils.EnvDefaultString("DAO_ORDER_COLUMN", repo.OrderColumn)

	cfg.LogConfig.Level = utils.EnvDefaultString("LOG_LEVEL", cfg.LogConfig.Level)
	cfg.LogConfig.Format = utils.EnvDefaultString("LOG_FORMAT", cfg.LogConfig.Format)
}

// InitializeDatabase connects the manager built by CreateFromConfig.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	f.logger.Info("Database ready", "stats", f.manager.GetStats().String())
	return nil
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns nil until a manager has been created and connected.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{LastError: "database manager not created", LastCheckTime: time.Now()}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
