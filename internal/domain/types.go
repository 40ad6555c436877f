/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the data model of the cut layout editor: draggable image items
// and the groups that hold them. Packs are the image sources, sections are the
// cuts of an advertisement layout that images get dropped into.

// GroupKind distinguishes source packs from destination sections.
type GroupKind string

const (
	KindPack    GroupKind = "pack"
	KindSection GroupKind = "section"
)

// Item is a draggable image unit. Coordinates are pixels relative to the
// top-left corner of the group container that currently holds the item.
type Item struct {
	ID          string  `json:"id" yaml:"id" toml:"id"`
	Src         string  `json:"src" yaml:"src" toml:"src"`
	Left        float64 `json:"left" yaml:"left" toml:"left"`
	Top         float64 `json:"top" yaml:"top" toml:"top"`
	Width       float64 `json:"width" yaml:"width" toml:"width"`
	Height      float64 `json:"height" yaml:"height" toml:"height"`
	ProductID   *int64  `json:"productId,omitempty" yaml:"productId,omitempty" toml:"productId,omitempty"`
	Name        string  `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Photography string  `json:"photography,omitempty" yaml:"photography,omitempty" toml:"photography,omitempty"`
}

// Position returns the item's top-left corner.
func (it Item) Position() Position { return Position{Left: it.Left, Top: it.Top} }

// Size returns the item's extent.
func (it Item) Size() Size { return Size{Width: it.Width, Height: it.Height} }

// Group is either a pack or a section.
// AllowDrop only gates sections; packs always take their images back.
type Group struct {
	ID        string    `json:"id" yaml:"id" toml:"id"`
	Kind      GroupKind `json:"kind" yaml:"kind,omitempty" toml:"kind,omitempty"`
	Title     string    `json:"title" yaml:"title" toml:"title"`
	AllowDrop bool      `json:"allowDrop" yaml:"allowDrop" toml:"allowDrop"`
	Items     []Item    `json:"images" yaml:"images" toml:"images"`
	Grid      Grid      `json:"grid" yaml:"grid,omitempty" toml:"grid,omitempty"`
	Span      Span      `json:"span" yaml:"span,omitempty" toml:"span,omitempty"`
	Editorial Editorial `json:"editorial" yaml:"editorial,omitempty" toml:"editorial,omitempty"`
}

// AcceptsDrops reports whether items may be dropped into the group.
func (g Group) AcceptsDrops() bool {
	return g.Kind == KindPack || g.AllowDrop
}

// IndexOf returns the slot of the item with the given id or -1.
func (g Group) IndexOf(itemID string) int {
	for i := range g.Items {
		if g.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// Grid is the placement of a section on the layout grid (1-based).
type Grid struct {
	Row    int `json:"row" yaml:"row" toml:"row"`
	Column int `json:"column" yaml:"column" toml:"column"`
}

// Span is the number of grid tracks a section covers.
type Span struct {
	Columns int `json:"columns" yaml:"columns" toml:"columns"`
	Rows    int `json:"rows" yaml:"rows" toml:"rows"`
}

// Editorial holds the free-text fields a copywriter or art director fills in per cut.
type Editorial struct {
	Headline         string `json:"cutHeadline,omitempty" yaml:"headline,omitempty" toml:"headline,omitempty"`
	CallToAction     string `json:"callToAction,omitempty" yaml:"callToAction,omitempty" toml:"callToAction,omitempty"`
	CopyDirection    string `json:"copyDirection,omitempty" yaml:"copyDirection,omitempty" toml:"copyDirection,omitempty"`
	StylingDirection string `json:"stylingDirection,omitempty" yaml:"stylingDirection,omitempty" toml:"stylingDirection,omitempty"`
	ArtDirectorNotes string `json:"artDirectorNotes,omitempty" yaml:"artDirectorNotes,omitempty" toml:"artDirectorNotes,omitempty"`
	CopywriterNotes  string `json:"copywriterNotes,omitempty" yaml:"copywriterNotes,omitempty" toml:"copywriterNotes,omitempty"`
}

// Geometry primitives.

type Position struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a screen coordinate as reported by the gesture layer.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned screen rectangle, e.g. a container's bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Relative translates a screen point into coordinates relative to r's top-left corner.
func (r Rect) Relative(p Point) Position {
	return Position{Left: p.X - r.X, Top: p.Y - r.Y}
}
