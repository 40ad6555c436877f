/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout holds the in-memory item store of an editing session and the
// operations that move images between packs and sections.
//
// A Store is a snapshot value. Operations never modify a Store they are given;
// they build a new one, sharing untouched groups and item slices with the old
// snapshot. Callers that want to edit a Store in place must Clone it first.
package layout

import (
	"errors"
	"fmt"
	"strings"

	"cutlayout/internal/domain"
)

// Store is the complete set of groups of an editing session.
type Store struct {
	Packs    []domain.Group `json:"packs"`
	Sections []domain.Group `json:"sections"`
}

// NewStore builds a store and checks its invariants: group ids are unique and
// non-empty, every item id is unique across all groups. Group kinds are set
// from the slice the group was passed in and a missing item list becomes an
// empty one, so groups always encode "images": [].
func NewStore(packs, sections []domain.Group) (Store, error) {
	s := Store{
		Packs:    make([]domain.Group, len(packs)),
		Sections: make([]domain.Group, len(sections)),
	}
	copy(s.Packs, packs)
	copy(s.Sections, sections)
	for i := range s.Packs {
		s.Packs[i].Kind = domain.KindPack
		s.Packs[i].Items = nonNil(s.Packs[i].Items)
	}
	for i := range s.Sections {
		s.Sections[i].Kind = domain.KindSection
		s.Sections[i].Items = nonNil(s.Sections[i].Items)
	}
	if err := s.Validate(); err != nil {
		return Store{}, err
	}
	return s, nil
}

// Validate reports the first invariant violation found in the store.
func (s Store) Validate() error {
	groups := map[string]struct{}{}
	items := map[string]string{}
	check := func(g domain.Group) error {
		if strings.TrimSpace(g.ID) == "" {
			return fmt.Errorf("group %q has no id", g.Title)
		}
		if _, dup := groups[g.ID]; dup {
			return fmt.Errorf("duplicate group id %s", g.ID)
		}
		groups[g.ID] = struct{}{}
		for _, it := range g.Items {
			if strings.TrimSpace(it.ID) == "" {
				return fmt.Errorf("item without id in group %s", g.ID)
			}
			if owner, dup := items[it.ID]; dup {
				return fmt.Errorf("item %s held by both %s and %s", it.ID, owner, g.ID)
			}
			items[it.ID] = g.ID
		}
		return nil
	}
	for _, g := range s.Packs {
		if g.Kind != domain.KindPack {
			return fmt.Errorf("group %s listed as pack has kind %q", g.ID, g.Kind)
		}
		if err := check(g); err != nil {
			return err
		}
	}
	for _, g := range s.Sections {
		if g.Kind != domain.KindSection {
			return fmt.Errorf("group %s listed as section has kind %q", g.ID, g.Kind)
		}
		if err := check(g); err != nil {
			return err
		}
	}
	return nil
}

// Group returns the group with the given id.
func (s Store) Group(id string) (domain.Group, bool) {
	if g, _, ok := s.groupRef(id); ok {
		return g, true
	}
	return domain.Group{}, false
}

// groupRef resolves a group id to the group value and its slot in the
// store. Packs are searched before sections.
func (s Store) groupRef(id string) (domain.Group, groupSlot, bool) {
	for i := range s.Packs {
		if s.Packs[i].ID == id {
			return s.Packs[i], groupSlot{kind: domain.KindPack, index: i}, true
		}
	}
	for i := range s.Sections {
		if s.Sections[i].ID == id {
			return s.Sections[i], groupSlot{kind: domain.KindSection, index: i}, true
		}
	}
	return domain.Group{}, groupSlot{}, false
}

type groupSlot struct {
	kind  domain.GroupKind
	index int
}

// ItemCount returns the number of items across all groups.
func (s Store) ItemCount() int {
	n := 0
	for _, g := range s.Packs {
		n += len(g.Items)
	}
	for _, g := range s.Sections {
		n += len(g.Items)
	}
	return n
}

// Clone returns a deep copy that shares no slices with s.
func (s Store) Clone() Store {
	return Store{Packs: cloneGroups(s.Packs), Sections: cloneGroups(s.Sections)}
}

func cloneGroups(in []domain.Group) []domain.Group {
	if in == nil {
		return nil
	}
	out := make([]domain.Group, len(in))
	for i, g := range in {
		out[i] = g
		if g.Items != nil {
			out[i].Items = make([]domain.Item, len(g.Items))
			for j, it := range g.Items {
				if it.ProductID != nil {
					pid := *it.ProductID
					it.ProductID = &pid
				}
				out[i].Items[j] = it
			}
		}
	}
	return out
}

// ErrDuplicateItem is returned when replenishing a pack would put an item id
// into the store a second time.
var ErrDuplicateItem = errors.New("item id already present in store")

// AddPack returns a new store with pack appended to the pack list.
func (s Store) AddPack(pack domain.Group) (Store, error) {
	pack.Kind = domain.KindPack
	pack.Items = nonNil(pack.Items)
	if _, ok := s.Group(pack.ID); ok {
		return s, fmt.Errorf("add pack %s: duplicate group id", pack.ID)
	}
	for _, it := range pack.Items {
		if _, found := Locate(s, it.ID); found {
			return s, fmt.Errorf("add pack %s: %w: %s", pack.ID, ErrDuplicateItem, it.ID)
		}
	}
	out := Store{Packs: make([]domain.Group, 0, len(s.Packs)+1), Sections: s.Sections}
	out.Packs = append(out.Packs, s.Packs...)
	out.Packs = append(out.Packs, pack)
	if err := out.Validate(); err != nil {
		return s, fmt.Errorf("add pack %s: %w", pack.ID, err)
	}
	return out, nil
}

func nonNil(items []domain.Item) []domain.Item {
	if items == nil {
		return []domain.Item{}
	}
	return items
}
