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

// PageRequest describes a zero-based page and the maximum window size.
type PageRequest struct {
	page  int
	limit int
}

// NewPageRequest constructs a PageRequest. Values are kept as given; range
// checks happen in the repository.
func NewPageRequest(page int, limit int) *PageRequest {
	return &PageRequest{page, limit}
}

func (p *PageRequest) GetPage() int {
	return p.page
}

func (p *PageRequest) GetLimit() int {
	return p.limit
}

// GetFirstResult returns page * limit, the offset requested before any
// out-of-range adjustment.
func (p *PageRequest) GetFirstResult() int {
	return p.page * p.limit
}

// Pagination holds a window of items along with pagination metadata.
type Pagination[T any] struct {
	Page     int
	Limit    int
	Offset   int
	Total    int
	Adjusted bool
	Items    []*T
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, limit int) *Pagination[T] {
	return &Pagination[T]{Page: page, Limit: limit, Items: make([]*T, 0)}
}
