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

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/tomoncle/dao/database"
	"github.com/tomoncle/dao/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any, PT EntityPointer[T]] struct {
	sessions database.SessionProvider
	opts     *options
	name     string
}

// NewRepository returns a repository for entity type T whose sessions come
// from the given provider.
func NewRepository[T any, PT EntityPointer[T]](sessions database.SessionProvider, opts ...Option) Repository[T] {
	return &baseRepositoryImpl[T, PT]{
		sessions: sessions,
		opts:     newOptions(opts),
		name:     reflect.TypeFor[T]().Name(),
	}
}

func (r *baseRepositoryImpl[T, PT]) Session(ctx context.Context) bun.IDB {
	return r.sessions.Session(ctx)
}

func (r *baseRepositoryImpl[T, PT]) session(ctx context.Context) (bun.IDB, error) {
	sess := r.sessions.Session(ctx)
	if sess == nil {
		return nil, ErrNoSession
	}
	return sess, nil
}

func (r *baseRepositoryImpl[T, PT]) table(sess bun.IDB) *schema.Table {
	return sess.Dialect().Tables().Get(reflect.TypeFor[T]())
}

func (r *baseRepositoryImpl[T, PT]) pkColumn(sess bun.IDB) (schema.Safe, error) {
	table := r.table(sess)
	if len(table.PKs) != 1 {
		return "", fmt.Errorf("%w: %s", ErrCompositeKeys, r.name)
	}
	return table.PKs[0].SQLName, nil
}

func (r *baseRepositoryImpl[T, PT]) Get(ctx context.Context, id int64) (*T, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	pk, err := r.pkColumn(sess)
	if err != nil {
		return nil, err
	}
	entity := new(T)
	err = sess.NewSelect().Model(entity).Where("?TableAlias.? = ?", pk, id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logFailure("get", err, "id", id)
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T, PT]) Create(ctx context.Context, entity *T) (*T, error) {
	return r.persist(ctx, "create", entity)
}

func (r *baseRepositoryImpl[T, PT]) Update(ctx context.Context, entity *T) (*T, error) {
	return r.persist(ctx, "update", entity)
}

func (r *baseRepositoryImpl[T, PT]) persist(ctx context.Context, op string, entity *T) (*T, error) {
	if entity == nil {
		return nil, ErrNilEntity
	}
	sess, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	if PT(entity).GetID() == 0 {
		err = r.insert(ctx, sess, entity)
	} else {
		err = r.upsert(ctx, sess, entity)
	}
	if err != nil {
		r.logFailure(op, err, "id", PT(entity).GetID())
		return nil, err
	}
	r.opts.logger.Debug("Entity persisted", "op", op, "entity", r.name, "id", PT(entity).GetID())
	return entity, nil
}

func (r *baseRepositoryImpl[T, PT]) insert(ctx context.Context, sess bun.IDB, entity *T) error {
	q := sess.NewInsert().Model(entity)
	if sess.Dialect().Features().Has(feature.InsertReturning) {
		q = q.Returning("*")
	}
	_, err := q.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T, PT]) upsert(ctx context.Context, sess bun.IDB, entity *T) error {
	pk, err := r.pkColumn(sess)
	if err != nil {
		return err
	}
	fields := r.table(sess).DataFields
	features := sess.Dialect().Features()
	q := sess.NewInsert().Model(entity)

	switch {
	case features.Has(feature.InsertOnConflict):
		if len(fields) == 0 {
			q = q.On(fmt.Sprintf("CONFLICT (%s) DO NOTHING", pk))
			break
		}
		assignments := make([]string, 0, len(fields))
		for _, f := range fields {
			assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", f.SQLName, f.SQLName))
		}
		q = q.On(fmt.Sprintf("CONFLICT (%s) DO UPDATE", pk)).Set(strings.Join(assignments, ", "))
	case features.Has(feature.InsertOnDuplicateKey):
		if len(fields) == 0 {
			q = q.Ignore()
			break
		}
		assignments := make([]string, 0, len(fields))
		for _, f := range fields {
			assignments = append(assignments, fmt.Sprintf("%s = VALUES(%s)", f.SQLName, f.SQLName))
		}
		q = q.On("DUPLICATE KEY UPDATE " + strings.Join(assignments, ", "))
	default:
		return r.upsertFallback(ctx, sess, entity)
	}

	if features.Has(feature.InsertReturning) {
		q = q.Returning("*")
	}
	_, err = q.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T, PT]) upsertFallback(ctx context.Context, sess bun.IDB, entity *T) error {
	_, err := sess.NewInsert().Model(entity).Exec(ctx)
	if err == nil {
		return nil
	}
	if _, updateErr := sess.NewUpdate().Model(entity).WherePK().Exec(ctx); updateErr != nil {
		return fmt.Errorf("upsert failed for %s: insert error: %v, update error: %w", r.name, err, updateErr)
	}
	return nil
}

func (r *baseRepositoryImpl[T, PT]) Refresh(ctx context.Context, entity *T) (*T, error) {
	sess, err := r.attached(ctx, entity)
	if err != nil {
		return nil, err
	}
	if err := sess.NewSelect().Model(entity).WherePK().Scan(ctx); err != nil {
		r.logFailure("refresh", err, "id", PT(entity).GetID())
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T, PT]) Delete(ctx context.Context, entity *T) (bool, error) {
	sess, err := r.attached(ctx, entity)
	if err != nil {
		return false, err
	}
	if _, err := sess.NewDelete().Model(entity).WherePK().Exec(ctx); err != nil {
		r.logFailure("delete", err, "id", PT(entity).GetID())
		return false, err
	}
	r.opts.logger.Debug("Entity deleted", "entity", r.name, "id", PT(entity).GetID())
	return true, nil
}

func (r *baseRepositoryImpl[T, PT]) Lock(ctx context.Context, entity *T) (bool, error) {
	sess, err := r.attached(ctx, entity)
	if err != nil {
		return false, err
	}
	pk, err := r.pkColumn(sess)
	if err != nil {
		return false, err
	}
	id := PT(entity).GetID()

	if sess.Dialect().Name() == dialect.SQLite {
		err = r.lockSQLite(ctx, sess, pk, id)
	} else {
		var locked int64
		err = sess.NewSelect().
			Model((*T)(nil)).
			ColumnExpr("?TableAlias.?", pk).
			Where("?TableAlias.? = ?", pk, id).
			For("UPDATE").
			Scan(ctx, &locked)
	}
	if err != nil {
		r.logFailure("lock", err, "id", id)
		return false, err
	}
	return true, nil
}

// lockSQLite acquires the database write lock with a no-op update, SQLite
// has no row-level locks.
func (r *baseRepositoryImpl[T, PT]) lockSQLite(ctx context.Context, sess bun.IDB, pk schema.Safe, id int64) error {
	res, err := sess.ExecContext(ctx, "UPDATE ? SET ? = ? WHERE ? = ?", r.table(sess).SQLName, pk, pk, pk, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *baseRepositoryImpl[T, PT]) DeleteByID(ctx context.Context, id int64) (bool, error) {
	entity, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if entity == nil {
		return true, nil
	}
	return r.Delete(ctx, entity)
}

func (r *baseRepositoryImpl[T, PT]) List(ctx context.Context) ([]*T, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	entities := make([]*T, 0)
	if err := sess.NewSelect().Model(&entities).Scan(ctx); err != nil {
		r.logFailure("list", err)
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T, PT]) ListPage(ctx context.Context, page int, limit int) ([]*T, error) {
	pagination, err := r.Page(ctx, types.NewPageRequest(page, limit))
	if err != nil {
		return nil, err
	}
	return pagination.Items, nil
}

func (r *baseRepositoryImpl[T, PT]) Page(ctx context.Context, req *types.PageRequest) (*types.Pagination[T], error) {
	if req == nil {
		return nil, ErrInvalidPage
	}
	if req.GetLimit() <= 0 {
		return nil, ErrInvalidLimit
	}
	if req.GetPage() < 0 {
		return nil, ErrInvalidPage
	}
	sess, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	pk, err := r.pkColumn(sess)
	if err != nil {
		return nil, err
	}

	pagination := types.NewDefaultPagination[T](req.GetPage(), req.GetLimit())
	total, err := sess.NewSelect().Model((*T)(nil)).Count(ctx)
	if err != nil {
		r.logFailure("count", err)
		return nil, err
	}

	offset, adjusted := ResolveOffset(total, req.GetPage(), req.GetLimit(), r.opts.policy)
	if adjusted {
		lastPage := total / req.GetLimit()
		r.opts.logger.Warn("Requested page is past the end of the result set, using the last full page",
			"entity", r.name,
			"total", total,
			"limit", req.GetLimit(),
			"last_page", lastPage,
			"first_result", lastPage*req.GetLimit(),
			"offset", offset,
			"policy", r.opts.policy,
		)
	}

	entities := make([]*T, 0)
	err = sess.NewSelect().
		Model(&entities).
		OrderExpr("?TableAlias.? ASC", bun.Ident(r.opts.orderColumn)).
		OrderExpr("?TableAlias.? ASC", pk).
		Offset(offset).
		Limit(req.GetLimit()).
		Scan(ctx)
	if err != nil {
		r.logFailure("page", err, "offset", offset, "limit", req.GetLimit())
		return nil, err
	}

	pagination.Offset = offset
	pagination.Total = total
	pagination.Adjusted = adjusted
	pagination.Items = entities
	return pagination, nil
}

// attached resolves the session for an operation that requires a persisted
// entity.
func (r *baseRepositoryImpl[T, PT]) attached(ctx context.Context, entity *T) (bun.IDB, error) {
	if entity == nil {
		return nil, ErrNilEntity
	}
	if PT(entity).GetID() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotPersisted, r.name)
	}
	return r.session(ctx)
}

func (r *baseRepositoryImpl[T, PT]) logFailure(op string, err error, fields ...interface{}) {
	_, kind := database.Classify(err)
	fields = append([]interface{}{"op", op, "entity", r.name, "kind", kind, "error", err}, fields...)
	r.opts.logger.Debug("Repository operation failed", fields...)
}
