/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"errors"
	"fmt"

	"cutlayout/internal/domain"
)

var (
	// ErrItemNotFound means no group holds the requested item.
	ErrItemNotFound = errors.New("item not found")
	// ErrGroupNotFound means the target group id is unknown.
	ErrGroupNotFound = errors.New("group not found")
	// ErrDropNotAllowed means the target section does not accept drops.
	ErrDropNotAllowed = errors.New("drop not allowed")
)

// Move describes one transfer of an item into a target group.
//
// Index is the slot the item takes in the target collection after it has been
// removed from its source; a negative index or one past the end appends.
// Position, when set, overwrites the item's left/top.
type Move struct {
	ItemID        string           `json:"itemId"`
	TargetGroupID string           `json:"targetGroupId"`
	Index         int              `json:"index"`
	Position      *domain.Position `json:"position,omitempty"`
}

// Transfer removes the item from its current group and inserts it into the
// target group. On error the input store is returned as is. The returned store
// never shares a modified slice with s: the source and target groups get fresh
// item slices and the group lists they live in are copied.
func Transfer(s Store, m Move) (Store, error) {
	loc, ok := Locate(s, m.ItemID)
	if !ok {
		return s, fmt.Errorf("transfer %s: %w", m.ItemID, ErrItemNotFound)
	}
	target, tslot, ok := s.groupRef(m.TargetGroupID)
	if !ok {
		return s, fmt.Errorf("transfer %s to %s: %w", m.ItemID, m.TargetGroupID, ErrGroupNotFound)
	}
	// checked before anything is removed so a refused drop cannot lose the item
	if !target.AcceptsDrops() {
		return s, fmt.Errorf("transfer %s to %s: %w", m.ItemID, m.TargetGroupID, ErrDropNotAllowed)
	}

	item := loc.Item
	if m.Position != nil {
		item.Left = m.Position.Left
		item.Top = m.Position.Top
	}

	out := Store{Packs: s.Packs, Sections: s.Sections}
	src := out.group(loc.slot())
	remaining := removeAt(src.Items, loc.ItemIndex)

	if loc.slot() == tslot {
		src.Items = insertAt(remaining, m.Index, item)
		out = out.replace(tslot, src)
		return out, nil
	}

	src.Items = remaining
	out = out.replace(loc.slot(), src)
	dst := out.group(tslot)
	dst.Items = insertAt(dst.Items, m.Index, item)
	out = out.replace(tslot, dst)
	return out, nil
}

func (s Store) group(slot groupSlot) domain.Group {
	if slot.kind == domain.KindPack {
		return s.Packs[slot.index]
	}
	return s.Sections[slot.index]
}

// replace returns a store whose group list for slot.kind is a copy with g at slot.index.
func (s Store) replace(slot groupSlot, g domain.Group) Store {
	if slot.kind == domain.KindPack {
		packs := make([]domain.Group, len(s.Packs))
		copy(packs, s.Packs)
		packs[slot.index] = g
		s.Packs = packs
		return s
	}
	sections := make([]domain.Group, len(s.Sections))
	copy(sections, s.Sections)
	sections[slot.index] = g
	s.Sections = sections
	return s
}

// removeAt returns a new slice without the element at i.
func removeAt(items []domain.Item, i int) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

// insertAt returns a new slice with it placed at index, appending when index is out of range.
func insertAt(items []domain.Item, index int, it domain.Item) []domain.Item {
	if index < 0 || index > len(items) {
		index = len(items)
	}
	out := make([]domain.Item, 0, len(items)+1)
	out = append(out, items[:index]...)
	out = append(out, it)
	return append(out, items[index:]...)
}
