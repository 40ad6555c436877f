/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cutlayout/internal/domain"
)

func TestNewStoreRejectsDuplicates(t *testing.T) {
	if _, err := NewStore([]domain.Group{{ID: "a"}, {ID: "a"}}, nil); err == nil {
		t.Fatalf("expected duplicate group id error")
	}
	if _, err := NewStore(
		[]domain.Group{{ID: "p", Items: []domain.Item{{ID: "1"}}}},
		[]domain.Group{{ID: "s", Items: []domain.Item{{ID: "1"}}}},
	); err == nil {
		t.Fatalf("expected duplicate item id error")
	}
	if _, err := NewStore([]domain.Group{{ID: " "}}, nil); err == nil {
		t.Fatalf("expected empty id error")
	}
}

func TestNewStoreSetsKinds(t *testing.T) {
	s, err := NewStore([]domain.Group{{ID: "p", Kind: domain.KindSection}}, []domain.Group{{ID: "s"}})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if s.Packs[0].Kind != domain.KindPack || s.Sections[0].Kind != domain.KindSection {
		t.Fatalf("kinds not normalized: %+v", s)
	}
}

func TestLocatePrefersPacksAndReportsSlots(t *testing.T) {
	s := fixtureStore(t)
	loc, ok := Locate(s, "4")
	if !ok {
		t.Fatalf("item 4 not found")
	}
	if loc.Kind != domain.KindPack || loc.GroupIndex != 1 || loc.ItemIndex != 1 || loc.GroupID != "pack-2" {
		t.Fatalf("unexpected location: %+v", loc)
	}
	if _, ok := Locate(s, "missing"); ok {
		t.Fatalf("expected not found")
	}
	// a store that breaks the one-group rule still resolves deterministically to the pack
	broken := Store{
		Packs:    []domain.Group{{ID: "p", Kind: domain.KindPack, Items: []domain.Item{{ID: "x"}}}},
		Sections: []domain.Group{{ID: "s", Kind: domain.KindSection, Items: []domain.Item{{ID: "x"}}}},
	}
	if loc, _ := Locate(broken, "x"); loc.Kind != domain.KindPack {
		t.Fatalf("expected pack to win, got %+v", loc)
	}
}

func TestCloneIsDeep(t *testing.T) {
	pid := int64(7)
	s, err := NewStore([]domain.Group{{ID: "p", Items: []domain.Item{{ID: "1", ProductID: &pid}}}}, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	c := s.Clone()
	c.Packs[0].Items[0].Left = 99
	*c.Packs[0].Items[0].ProductID = 8
	if s.Packs[0].Items[0].Left != 0 || *s.Packs[0].Items[0].ProductID != 7 {
		t.Fatalf("clone shares memory with original")
	}
}

func TestAddPack(t *testing.T) {
	s := fixtureStore(t)
	out, err := s.AddPack(domain.Group{ID: "pack-3", Title: "Pack 3", Items: []domain.Item{{ID: "9"}}})
	if err != nil {
		t.Fatalf("AddPack: %v", err)
	}
	if len(out.Packs) != 3 || len(s.Packs) != 2 {
		t.Fatalf("unexpected pack counts: out=%d in=%d", len(out.Packs), len(s.Packs))
	}
	if _, err := out.AddPack(domain.Group{ID: "pack-4", Items: []domain.Item{{ID: "1"}}}); !errors.Is(err, ErrDuplicateItem) {
		t.Fatalf("expected ErrDuplicateItem, got %v", err)
	}
	if _, err := out.AddPack(domain.Group{ID: "pack-3"}); err == nil {
		t.Fatalf("expected duplicate group error")
	}
}

func TestEmptyGroupsEncodeEmptyImages(t *testing.T) {
	s, err := NewStore([]domain.Group{{ID: "p"}}, []domain.Group{{ID: "s", AllowDrop: true}})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s, err = s.AddPack(domain.Group{ID: "p2"})
	if err != nil {
		t.Fatalf("AddPack: %v", err)
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), `"images":null`) {
		t.Fatalf("nil item list leaked into JSON: %s", b)
	}
	if n := strings.Count(string(b), `"images":[]`); n != 3 {
		t.Fatalf("expected 3 empty image lists, got %d: %s", n, b)
	}
}
