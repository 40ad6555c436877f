/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"cutlayout/internal/domain"
)

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func fixedOptions() Options {
	return Options{AdID: 42, Now: func() time.Time { return fixedNow }}
}

func sampleSections() []domain.Group {
	pid := int64(777)
	return []domain.Group{
		{ID: "section-header", Kind: domain.KindSection, Title: "Header", Grid: domain.Grid{Row: 1, Column: 1}, Span: domain.Span{Columns: 2, Rows: 1}},
		{
			ID: "section-content-1", Kind: domain.KindSection, Title: "Content 1", AllowDrop: true,
			Grid: domain.Grid{Row: 2, Column: 1}, Span: domain.Span{Columns: 1, Rows: 1},
			Editorial: domain.Editorial{Headline: "Spring", CallToAction: "Shop now"},
			Items: []domain.Item{
				{ID: "3", Src: "/image3.jpg", Left: 10, Top: 10, Width: 100, Height: 100, ProductID: &pid, Photography: "studio"},
				{ID: "4", Src: "/image4.jpg", Name: "Jacket", Left: 150, Top: 0, Width: 300, Height: 450},
			},
		},
		{ID: "section-content-2", Kind: domain.KindSection, Title: "Content 2", AllowDrop: true, Grid: domain.Grid{Row: 2, Column: 2}},
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSerializeNormalizesByReferenceDimension(t *testing.T) {
	rec := Serialize(sampleSections(), fixedOptions())
	if len(rec.CutContentItems.Updated) != 2 {
		t.Fatalf("expected 2 items, got %d", len(rec.CutContentItems.Updated))
	}
	it := rec.CutContentItems.Updated[0]
	if !approx(it.Size.Width, 100.0/300) || !approx(it.Size.Height, 100.0/300) {
		t.Fatalf("unexpected size: %+v", it.Size)
	}
	if !approx(it.Position.Left, 10.0/300) || !approx(it.Position.Top, 10.0/300) {
		t.Fatalf("unexpected position: %+v", it.Position)
	}
	// values outside [0,1] are not clamped
	big := rec.CutContentItems.Updated[1]
	if !approx(big.Size.Height, 1.5) {
		t.Fatalf("expected unclamped height 1.5, got %v", big.Size.Height)
	}
}

func TestSerializeCutNumbersAndIDs(t *testing.T) {
	rec := Serialize(sampleSections(), fixedOptions())
	if rec.AdID != 42 || !rec.IsSuccess || rec.ErrorCodeID != 0 {
		t.Fatalf("unexpected envelope: %+v", rec)
	}
	if len(rec.CutLayouts.Updated) != 3 || len(rec.CutDetails.Updated) != 3 {
		t.Fatalf("expected one layout and one detail per section")
	}
	for i, l := range rec.CutLayouts.Updated {
		if l.CutNumber != i+1 {
			t.Fatalf("layout %d has cut number %d", i, l.CutNumber)
		}
		if l.ID != DefaultSectionIDBase+int64(i) {
			t.Fatalf("layout %d has id %d", i, l.ID)
		}
		if rec.CutDetails.Updated[i].CutNumber != i+1 || rec.CutDetails.Updated[i].ID != l.ID {
			t.Fatalf("detail %d does not match its layout", i)
		}
	}
	l := rec.CutLayouts.Updated[1]
	if l.Name != "Content 1" || l.Position.Row != 2 || l.Position.Column != 1 || l.Span.Columns != 1 {
		t.Fatalf("unexpected layout: %+v", l)
	}
	items := rec.CutContentItems.Updated
	if items[0].CutNumber != 2 || items[0].ContentBlockID != DefaultSectionIDBase+1 {
		t.Fatalf("item not attached to its cut: %+v", items[0])
	}
	if items[0].ID != DefaultItemIDBase || items[1].ID != DefaultItemIDBase+1 {
		t.Fatalf("unexpected item ids: %d %d", items[0].ID, items[1].ID)
	}
	if items[0].ProductID == nil || *items[0].ProductID != 777 || items[1].ProductID != nil {
		t.Fatalf("productId not carried over")
	}
	if items[0].Name != "/image3.jpg" || items[1].Name != "Jacket" {
		t.Fatalf("unexpected names: %q %q", items[0].Name, items[1].Name)
	}
	d := rec.CutDetails.Updated[1]
	if d.CutHeadline != "Spring" || d.CallToAction != "Shop now" || d.CreatedBy != DefaultActor || !d.LastModifiedDate.Equal(fixedNow) {
		t.Fatalf("unexpected detail: %+v", d)
	}
}

func TestSerializeEmptySections(t *testing.T) {
	sections := []domain.Group{{ID: "a", Kind: domain.KindSection}, {ID: "b", Kind: domain.KindSection}}
	rec := Serialize(sections, fixedOptions())
	if len(rec.CutDetails.Updated) != 2 || len(rec.CutLayouts.Updated) != 2 {
		t.Fatalf("expected 2 details and layouts")
	}
	if len(rec.CutContentItems.Updated) != 0 {
		t.Fatalf("expected no items")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if strings.Contains(s, "null") {
		t.Fatalf("empty collections must encode as []: %s", s)
	}
	for _, want := range []string{`"cutContentItemExclusions":{"created":[],"updated":[]}`, `"imported":[]`, `"childCuts":[]`} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected %s in %s", want, s)
		}
	}
}

func TestSerializeIsDeterministic(t *testing.T) {
	a, _ := json.Marshal(Serialize(sampleSections(), fixedOptions()))
	b, _ := json.Marshal(Serialize(sampleSections(), fixedOptions()))
	if string(a) != string(b) {
		t.Fatalf("serialization differs between runs")
	}
}

func TestSerializeDoesNotRetainInput(t *testing.T) {
	secs := sampleSections()
	rec := Serialize(secs, fixedOptions())
	*secs[1].Items[0].ProductID = 1
	secs[1].Title = "changed"
	if *rec.CutContentItems.Updated[0].ProductID != 777 || rec.CutLayouts.Updated[1].Name != "Content 1" {
		t.Fatalf("record aliases the input sections")
	}
}

func TestSerializeOptions(t *testing.T) {
	opt := fixedOptions()
	opt.ReferenceDimension = 100
	opt.Actor = "alice"
	opt.IDs = NewSequentialIDs(1)
	rec := Serialize(sampleSections(), opt)
	it := rec.CutContentItems.Updated[0]
	if !approx(it.Size.Width, 1) || it.CreatedBy != "alice" || it.ModifiedBy != "alice" {
		t.Fatalf("options not applied: %+v", it)
	}
	seen := map[int64]bool{}
	for _, l := range rec.CutLayouts.Updated {
		seen[l.ID] = true
	}
	for _, it := range rec.CutContentItems.Updated {
		if seen[it.ID] {
			t.Fatalf("sequential issuer reused id %d", it.ID)
		}
		seen[it.ID] = true
	}
}
