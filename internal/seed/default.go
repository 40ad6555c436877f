/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package seed

import (
	"fmt"

	"cutlayout/internal/domain"
	"cutlayout/internal/layout"
)

const defaultImageSize = 100

// DefaultDocument is the demo layout: six images split over two packs, a
// header that refuses drops and three content cuts below it.
func DefaultDocument() Document {
	img := func(n int) domain.Item {
		return domain.Item{
			ID:     fmt.Sprint(n),
			Src:    fmt.Sprintf("/image%d.jpg", n),
			Width:  defaultImageSize,
			Height: defaultImageSize,
		}
	}
	return Document{
		Packs: []domain.Group{
			{ID: "pack-1", Kind: domain.KindPack, Title: "Pack 1", Items: []domain.Item{img(1), img(2)}},
			{ID: "pack-2", Kind: domain.KindPack, Title: "Pack 2", Items: []domain.Item{img(3), img(4), img(5), img(6)}},
		},
		Sections: []domain.Group{
			{ID: "section-header", Kind: domain.KindSection, Title: "Header", AllowDrop: false, Items: []domain.Item{},
				Grid: domain.Grid{Row: 1, Column: 1}, Span: domain.Span{Columns: 3, Rows: 1}},
			{ID: "section-content-1", Kind: domain.KindSection, Title: "Content 1", AllowDrop: true, Items: []domain.Item{},
				Grid: domain.Grid{Row: 2, Column: 1}, Span: domain.Span{Columns: 1, Rows: 1}},
			{ID: "section-content-2", Kind: domain.KindSection, Title: "Content 2", AllowDrop: true, Items: []domain.Item{},
				Grid: domain.Grid{Row: 2, Column: 2}, Span: domain.Span{Columns: 1, Rows: 1}},
			{ID: "section-content-3", Kind: domain.KindSection, Title: "Content 3", AllowDrop: true, Items: []domain.Item{},
				Grid: domain.Grid{Row: 2, Column: 3}, Span: domain.Span{Columns: 1, Rows: 1}},
		},
	}
}

// Default returns the demo layout as a store.
func Default() layout.Store {
	s, err := DefaultDocument().Store()
	if err != nil {
		// the demo layout is static
		panic(err)
	}
	return s
}
