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

import "github.com/tomoncle/dao/types"

// ResolveOffset computes the first result for a page request over total
// rows. limit must be positive and page non-negative.
//
// A request at or past the end is moved to floor(total/limit)*limit and
// reported as adjusted. OffsetPolicyLegacy then applies min(offset, 0).
func ResolveOffset(total, page, limit int, policy types.OffsetPolicy) (offset int, adjusted bool) {
	// compare before multiplying so huge pages cannot overflow
	if page <= total/limit {
		offset = page * limit
	}
	if page > total/limit || offset >= total {
		lastPage := total / limit
		offset = lastPage * limit
		adjusted = true
	}
	if policy == types.OffsetPolicyLegacy {
		offset = min(offset, 0)
	}
	return offset, adjusted
}
