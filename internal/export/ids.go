/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"strings"
	"sync"
)

// IDIssuer hands out identifiers for exported entities. index is the 0-based
// position of the entity within its category (sections, or items counted
// across all sections in export order).
//
// Identifiers are placeholders until the downstream system assigns real ones;
// consumers must not treat them as stable across exports.
type IDIssuer interface {
	SectionID(index int) int64
	ItemID(index int) int64
}

const (
	DefaultSectionIDBase int64 = 1000
	DefaultItemIDBase    int64 = 5000
)

// OffsetIDs derives ids as base + index per category.
type OffsetIDs struct {
	SectionBase int64
	ItemBase    int64
}

func (o OffsetIDs) SectionID(index int) int64 { return o.SectionBase + int64(index) }
func (o OffsetIDs) ItemID(index int) int64    { return o.ItemBase + int64(index) }

// DefaultIDs returns the offset scheme with the default bases.
func DefaultIDs() OffsetIDs {
	return OffsetIDs{SectionBase: DefaultSectionIDBase, ItemBase: DefaultItemIDBase}
}

// SequentialIDs issues ids from one counter shared by all categories, so
// every id it hands out is distinct for the lifetime of the issuer.
// It is safe for concurrent use.
type SequentialIDs struct {
	mu   sync.Mutex
	next int64
}

// NewSequentialIDs starts issuing at start (1 when start <= 0).
func NewSequentialIDs(start int64) *SequentialIDs {
	if start <= 0 {
		start = 1
	}
	return &SequentialIDs{next: start}
}

func (s *SequentialIDs) take() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	return id
}

func (s *SequentialIDs) SectionID(int) int64 { return s.take() }
func (s *SequentialIDs) ItemID(int) int64    { return s.take() }

// IssuerByName maps a configuration value to an issuer: "offset" (default) or "sequential".
func IssuerByName(name string) (IDIssuer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "offset":
		return DefaultIDs(), nil
	case "sequential":
		return NewSequentialIDs(1), nil
	default:
		return nil, fmt.Errorf("unknown id scheme: %s", name)
	}
}
