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
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

// driver binds a config type to a database/sql driver and a Bun dialect.
type driver struct {
	sqlName string
	dialect func() schema.Dialect
	dsn     func(cfg *ConnectionConfig) string
	// singleConn pins the pool to one connection, required for in-memory
	// sqlite where each connection opens a separate database.
	singleConn func(cfg *ConnectionConfig) bool
}

var (
	mysqlDriver = &driver{
		sqlName: "mysql",
		dialect: func() schema.Dialect { return mysqldialect.New() },
		dsn:     mysqlDSN,
	}
	postgresDriver = &driver{
		sqlName: "postgres",
		dialect: func() schema.Dialect { return pgdialect.New() },
		dsn:     postgresDSN,
	}
	sqliteDriver = &driver{
		sqlName:    sqliteshim.ShimName,
		dialect:    func() schema.Dialect { return sqlitedialect.New() },
		dsn:        func(cfg *ConnectionConfig) string { return sqliteDSN(cfg.DBName) },
		singleConn: func(cfg *ConnectionConfig) bool { return isSQLiteMemory(cfg.DBName) },
	}

	drivers = map[string]*driver{
		"mysql":      mysqlDriver,
		"postgres":   postgresDriver,
		"postgresql": postgresDriver,
		"sqlite":     sqliteDriver,
		"sqlite3":    sqliteDriver,
	}
)

func lookupDriver(typ string) (*driver, bool) {
	d, ok := drivers[strings.ToLower(typ)]
	return d, ok
}

// SupportedTypes lists the accepted ConnectionConfig.Type values.
func SupportedTypes() []string {
	out := make([]string, 0, len(drivers))
	for name := range drivers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func mysqlDSN(cfg *ConnectionConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = cfg.ConnectTimeout
	mc.ReadTimeout = cfg.ReadTimeout
	mc.WriteTimeout = cfg.WriteTimeout
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

func postgresDSN(cfg *ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// sqliteDSN keeps ":memory:" and "file:" URIs as given and maps a bare name
// to "<name>.db".
func sqliteDSN(name string) string {
	if isSQLiteMemory(name) || strings.HasPrefix(name, "file:") {
		return name
	}
	return name + ".db"
}

func isSQLiteMemory(name string) bool {
	return name == ":memory:" || strings.Contains(name, "mode=memory")
}

type bunManager struct {
	config *ConnectionConfig
	logger Logger

	mu    sync.RWMutex
	db    *bun.DB
	sqlDB *sql.DB
}

// NewDatabaseManager returns a Bun-backed manager for config, or for
// DefaultConnectionConfig when config is nil. It does not connect.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &bunManager{config: config, logger: NopLogger()}
}

func (m *bunManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return nil
	}

	d, ok := lookupDriver(m.config.Type)
	if !ok {
		return fmt.Errorf("unsupported database type: %s", m.config.Type)
	}

	sqlDB, err := sql.Open(d.sqlName, d.dsn(m.config))
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", m.config.Type, err)
	}
	m.applyPool(sqlDB, d)

	db := bun.NewDB(sqlDB, d.dialect())
	m.installHooks(db)

	timeout := m.config.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return fmt.Errorf("database connection test failed: %w", err)
	}

	m.db, m.sqlDB = db, sqlDB
	m.logger.Info("Database connected", "type", m.config.Type, "host", m.config.Host, "dbname", m.config.DBName)
	return nil
}

func (m *bunManager) applyPool(sqlDB *sql.DB, d *driver) {
	if d.singleConn != nil && d.singleConn(m.config) {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
		return
	}
	sqlDB.SetMaxIdleConns(m.config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(m.config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(m.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(m.config.ConnMaxIdleTime)
}

func (m *bunManager) installHooks(db *bun.DB) {
	if m.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if m.config.SlowQueryTime > 0 {
		db.AddQueryHook(NewSlowQueryHook(m.config.SlowQueryTime, m.logger))
	}
}

func (m *bunManager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db, m.sqlDB = nil, nil
	if err != nil {
		m.logger.Error("Failed to close database connection", "error", err)
		return err
	}
	m.logger.Info("Database connection closed")
	return nil
}

func (m *bunManager) Ping(ctx context.Context) error {
	db := m.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (m *bunManager) GetDB() *bun.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

func (m *bunManager) GetSQLDB() *sql.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sqlDB
}

// Session returns the transaction attached to ctx, or the managed *bun.DB.
func (m *bunManager) Session(ctx context.Context) bun.IDB {
	return sessionFor(ctx, m.GetDB())
}

func (m *bunManager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{LastCheckTime: start}

	m.mu.RLock()
	db, sqlDB := m.db, m.sqlDB
	m.mu.RUnlock()
	if db == nil {
		status.LastError = "database not connected"
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)

	stats := sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections

	if err != nil {
		status.LastError = err.Error()
		return status
	}
	status.Healthy = true
	status.Connected = true
	return status
}

func (m *bunManager) GetStats() *DBStats {
	sqlDB := m.GetSQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}
	s := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      s.MaxOpenConnections,
		OpenConns:         s.OpenConnections,
		InUse:             s.InUse,
		Idle:              s.Idle,
		WaitCount:         s.WaitCount,
		WaitDuration:      s.WaitDuration,
		MaxIdleClosed:     s.MaxIdleClosed,
		MaxIdleTimeClosed: s.MaxIdleTimeClosed,
		MaxLifetimeClosed: s.MaxLifetimeClosed,
	}
}

// SetLogger replaces the manager logger; nil installs a no-op logger.
// Hooks installed by an earlier Connect keep the previous logger.
func (m *bunManager) SetLogger(logger Logger) {
	if logger == nil {
		logger = NopLogger()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}
