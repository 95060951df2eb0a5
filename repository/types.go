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

	"github.com/tomoncle/dao/types"
	"github.com/uptrace/bun"
)

// EntityPointer constrains the pointer type of an entity struct T.
type EntityPointer[T any] interface {
	*T
	types.Entity
}

// CrudRepository defines the single-entity operations.
type CrudRepository[T any] interface {
	// Get returns the entity with the given id, or nil when it does not exist.
	Get(ctx context.Context, id int64) (*T, error)

	// Create inserts entity immediately and returns the same pointer with
	// generated columns filled in.
	Create(ctx context.Context, entity *T) (*T, error)

	// Update persists entity with the same call sequence as Create; a
	// non-zero id turns the insert into an upsert on the primary key.
	Update(ctx context.Context, entity *T) (*T, error)

	// Refresh reloads every column of a persisted entity into entity.
	Refresh(ctx context.Context, entity *T) (*T, error)

	Delete(ctx context.Context, entity *T) (bool, error)

	// Lock takes a pessimistic write lock on the entity's row for the
	// transaction attached to ctx.
	Lock(ctx context.Context, entity *T) (bool, error)

	// DeleteByID deletes the entity if it exists. A missing id is a success.
	DeleteByID(ctx context.Context, id int64) (bool, error)
}

// ListRepository defines listing operations.
type ListRepository[T any] interface {
	List(ctx context.Context) ([]*T, error)

	// ListPage returns a creation-ordered window of at most limit entities.
	ListPage(ctx context.Context, page int, limit int) ([]*T, error)

	Page(ctx context.Context, req *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines CRUD and listing operations and exposes the session
// used for custom Bun queries.
type Repository[T any] interface {
	CrudRepository[T]
	ListRepository[T]
	Session(ctx context.Context) bun.IDB
}
