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

	"github.com/uptrace/bun"
)

// SessionProvider supplies the bun session an operation runs against.
type SessionProvider interface {
	Session(ctx context.Context) bun.IDB
}

// SessionProviderFunc adapts a function to SessionProvider.
type SessionProviderFunc func(ctx context.Context) bun.IDB

func (f SessionProviderFunc) Session(ctx context.Context) bun.IDB { return f(ctx) }

type txContextKey struct{}

// ContextWithTx attaches tx to ctx. Repositories resolving their session from
// the returned context run inside tx.
func ContextWithTx(ctx context.Context, tx bun.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the transaction attached by ContextWithTx.
func TxFromContext(ctx context.Context) (bun.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(bun.Tx)
	return tx, ok
}

type dbSessionProvider struct {
	db *bun.DB
}

// NewSessionProvider returns a provider that prefers the transaction carried
// by the context and falls back to db.
func NewSessionProvider(db *bun.DB) SessionProvider {
	return &dbSessionProvider{db: db}
}

func (p *dbSessionProvider) Session(ctx context.Context) bun.IDB {
	return sessionFor(ctx, p.db)
}

func sessionFor(ctx context.Context, db *bun.DB) bun.IDB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	if db == nil {
		return nil
	}
	return db
}
