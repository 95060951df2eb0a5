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

import "strings"

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// OffsetPolicy decides how a paginated listing treats the computed first
// result after an out-of-range page has been moved to the last full page.
type OffsetPolicy int

const (
	// OffsetPolicyLegacy applies min(firstResult, 0) after the last-page
	// substitution, so every listing starts at the first row.
	OffsetPolicyLegacy OffsetPolicy = iota
	// OffsetPolicyLastPage keeps the requested offset, or the start of the
	// last full page when the request lands past the end.
	OffsetPolicyLastPage
)

var _ BaseEnum = OffsetPolicy(0)

var offsetPolicyNames = map[OffsetPolicy]string{
	OffsetPolicyLegacy:   "legacy",
	OffsetPolicyLastPage: "last_page",
}

var offsetPolicyDescs = map[OffsetPolicy]string{
	OffsetPolicyLegacy:   "first result is clamped with min(offset, 0)",
	OffsetPolicyLastPage: "out-of-range pages fall back to the last full page",
}

// ParseOffsetPolicy resolves a policy by name. Unknown names return an
// invalid policy; callers should check IsValid.
func ParseOffsetPolicy(name string) OffsetPolicy {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "-", "_")
	for p, n := range offsetPolicyNames {
		if n == s {
			return p
		}
	}
	return OffsetPolicy(IllegalValue)
}

func (p OffsetPolicy) IsValid() bool {
	_, ok := offsetPolicyNames[p]
	return ok
}

func (p OffsetPolicy) Number() int {
	if !p.IsValid() {
		return IllegalValue
	}
	return int(p)
}

func (p OffsetPolicy) String() string { return p.Name() }

func (p OffsetPolicy) Name() string {
	if n, ok := offsetPolicyNames[p]; ok {
		return n
	}
	return IllegalName
}

func (p OffsetPolicy) Desc() string {
	if d, ok := offsetPolicyDescs[p]; ok {
		return d
	}
	return IllegalDesc
}
