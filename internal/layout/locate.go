/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import "cutlayout/internal/domain"

// Location tells where an item currently lives.
// GroupIndex is the index within Store.Packs or Store.Sections depending on Kind.
type Location struct {
	Kind       domain.GroupKind
	GroupIndex int
	GroupID    string
	ItemIndex  int
	Item       domain.Item
}

// Locate finds the group holding itemID. Packs are scanned before sections,
// each in store order, and the first match wins.
func Locate(s Store, itemID string) (Location, bool) {
	for gi := range s.Packs {
		if ii := s.Packs[gi].IndexOf(itemID); ii >= 0 {
			return Location{Kind: domain.KindPack, GroupIndex: gi, GroupID: s.Packs[gi].ID, ItemIndex: ii, Item: s.Packs[gi].Items[ii]}, true
		}
	}
	for gi := range s.Sections {
		if ii := s.Sections[gi].IndexOf(itemID); ii >= 0 {
			return Location{Kind: domain.KindSection, GroupIndex: gi, GroupID: s.Sections[gi].ID, ItemIndex: ii, Item: s.Sections[gi].Items[ii]}, true
		}
	}
	return Location{}, false
}

func (l Location) slot() groupSlot { return groupSlot{kind: l.Kind, index: l.GroupIndex} }
