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

package types

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Entity is the capability contract for records handled by the repository:
// an identifier and a creation timestamp used for ordering.
type Entity interface {
	GetID() int64
	GetCreatedDate() time.Time
}

// Model is an embeddable base that satisfies Entity.
//
//	type Article struct {
//		bun.BaseModel `bun:"table:articles"`
//		types.Model
//		Title string `bun:"title"`
//	}
type Model struct {
	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	CreatedDate time.Time `bun:"created_date,notnull" json:"created_date"`
}

var _ bun.BeforeAppendModelHook = (*Model)(nil)

func (m *Model) GetID() int64 { return m.ID }

func (m *Model) GetCreatedDate() time.Time { return m.CreatedDate }

// BeforeAppendModel stamps CreatedDate on insert when the caller left it zero.
func (m *Model) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && m.CreatedDate.IsZero() {
		m.CreatedDate = time.Now().UTC()
	}
	return nil
}
