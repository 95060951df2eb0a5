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
	"github.com/tomoncle/dao/database"
	"github.com/tomoncle/dao/types"
)

const defaultOrderColumn = "created_date"

type options struct {
	policy      types.OffsetPolicy
	orderColumn string
	logger      database.Logger
}

// Option configures a repository.
type Option func(*options)

// WithOffsetPolicy selects how ListPage and Page resolve the first result.
// Invalid policies are ignored.
func WithOffsetPolicy(policy types.OffsetPolicy) Option {
	return func(o *options) {
		if policy.IsValid() {
			o.policy = policy
		}
	}
}

// WithOrderColumn sets the creation-time column used to order pages.
func WithOrderColumn(column string) Option {
	return func(o *options) {
		if column != "" {
			o.orderColumn = column
		}
	}
}

func WithLogger(logger database.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		policy:      types.OffsetPolicyLegacy,
		orderColumn: defaultOrderColumn,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = database.GetLogger()
	}
	return o
}
