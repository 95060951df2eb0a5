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

package dao

import (
	"context"
	"fmt"

	"github.com/tomoncle/dao/database"
	"github.com/tomoncle/dao/repository"
	"github.com/tomoncle/dao/types"
	"github.com/tomoncle/dao/utils"
	"github.com/uptrace/bun"
)

// Store owns a database connection and builds repositories that share it.
type Store struct {
	factory *database.BaseDatabaseFactory
	config  *database.Config
	logger  database.Logger
}

// Open applies environment overrides to cfg in place, configures logging,
// connects to the configured database and returns a Store. A nil cfg is
// rejected.
func Open(ctx context.Context, cfg *database.Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	database.OverrideFromEnv(cfg)
	if policy := types.ParseOffsetPolicy(cfg.RepositoryConfig.OffsetPolicy); cfg.RepositoryConfig.OffsetPolicy != "" && !policy.IsValid() {
		return nil, fmt.Errorf("unknown offset policy: %q", cfg.RepositoryConfig.OffsetPolicy)
	}
	if err := configureLogging(cfg.LogConfig); err != nil {
		return nil, err
	}

	factory := database.NewDatabaseFactory()
	if _, err := factory.CreateFromConfig(&cfg.ConnectionConfig); err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &Store{factory: factory, config: cfg, logger: database.GetLogger()}, nil
}

// OpenFile loads a YAML config file and opens a Store from it.
func OpenFile(ctx context.Context, path string) (*Store, error) {
	cfg, err := database.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg)
}

func configureLogging(cfg database.LogConfig) error {
	if cfg.Format != "" {
		utils.ConfigureLogFormat(cfg.Format)
	}
	if cfg.File != "" {
		err := utils.ConfigureFileLog(utils.FileLogOptions{
			Path:       cfg.File,
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAgeDays: cfg.MaxAgeDays,
		})
		if err != nil {
			return fmt.Errorf("failed to configure log file: %w", err)
		}
	}
	if cfg.Level != "" {
		utils.ConfigureLogLevel(cfg.Level)
	}
	return nil
}

// DB returns the underlying Bun database.
func (s *Store) DB() *bun.DB {
	return s.factory.GetDB()
}

// Sessions returns the provider repositories use; it honours transactions
// attached with database.ContextWithTx.
func (s *Store) Sessions() database.SessionProvider {
	return s.factory.GetManager()
}

// RunInTx runs fn inside a transaction and passes it a context carrying
// that transaction, so repository calls made with it join the transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.DB().RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(database.ContextWithTx(ctx, tx))
	})
}

// HealthCheck pings the database and reports pool statistics.
func (s *Store) HealthCheck(ctx context.Context) *database.HealthStatus {
	return s.factory.GetHealthStatus(ctx)
}

func (s *Store) Stats() *database.DBStats {
	return s.factory.GetStats()
}

func (s *Store) Close() error {
	return s.factory.Close()
}

// Options returns the repository options derived from the store config.
func (s *Store) Options() []repository.Option {
	rc := s.config.RepositoryConfig
	opts := []repository.Option{repository.WithLogger(s.logger)}
	if rc.OffsetPolicy != "" {
		opts = append(opts, repository.WithOffsetPolicy(types.ParseOffsetPolicy(rc.OffsetPolicy)))
	}
	if rc.OrderColumn != "" {
		opts = append(opts, repository.WithOrderColumn(rc.OrderColumn))
	}
	return opts
}

// NewRepository builds a repository for T bound to the store. Extra options
// are applied after the ones derived from config.
func NewRepository[T any, PT repository.EntityPointer[T]](s *Store, opts ...repository.Option) repository.Repository[T] {
	return repository.NewRepository[T, PT](s.Sessions(), append(s.Options(), opts...)...)
}
