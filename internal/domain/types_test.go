/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGroupJSONUsesImagesKey(t *testing.T) {
	pid := int64(42)
	g := Group{
		ID:    "section-1",
		Kind:  KindSection,
		Title: "Content 1",
		Items: []Item{{ID: "1", Src: "/image1.jpg", Width: 100, Height: 100, ProductID: &pid}},
		Grid:  Grid{Row: 2, Column: 1},
		Span:  Span{Columns: 2, Rows: 1},
	}
	b, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"images":[`, `"productId":42`, `"kind":"section"`, `"grid":{"row":2,"column":1}`} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected %s in %s", want, s)
		}
	}
	var got Group
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Items[0].ProductID == nil || *got.Items[0].ProductID != 42 {
		t.Fatalf("productId lost: %+v", got.Items[0])
	}
}

func TestAcceptsDrops(t *testing.T) {
	if !(Group{Kind: KindPack}).AcceptsDrops() {
		t.Fatalf("packs must always accept returned items")
	}
	if (Group{Kind: KindSection}).AcceptsDrops() {
		t.Fatalf("section without allowDrop accepted a drop")
	}
	if !(Group{Kind: KindSection, AllowDrop: true}).AcceptsDrops() {
		t.Fatalf("section with allowDrop refused a drop")
	}
}

func TestRectRelative(t *testing.T) {
	r := Rect{X: 100, Y: 50, Width: 300, Height: 300}
	p := r.Relative(Point{X: 110, Y: 60})
	if p.Left != 10 || p.Top != 10 {
		t.Fatalf("unexpected relative position: %+v", p)
	}
	// points outside the box are not clamped
	if p := r.Relative(Point{X: 450, Y: 20}); p.Left != 350 || p.Top != -30 {
		t.Fatalf("unexpected outside position: %+v", p)
	}
}

func TestIndexOf(t *testing.T) {
	g := Group{Items: []Item{{ID: "a"}, {ID: "b"}}}
	if g.IndexOf("b") != 1 || g.IndexOf("z") != -1 {
		t.Fatalf("IndexOf mismatch")
	}
}
