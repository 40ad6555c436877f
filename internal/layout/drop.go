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

// ErrMalformedDrop means the gesture layer did not report a pointer offset or container bounds.
var ErrMalformedDrop = errors.New("malformed drop")

// Drop is a completed drag gesture as reported by the gesture layer.
// ScreenOffset is the pointer position in screen coordinates and
// ContainerBounds the bounding box of the target container on screen.
// Index optionally pins the slot in the target collection.
type Drop struct {
	ItemID          string        `json:"itemId"`
	TargetGroupID   string        `json:"targetGroupId"`
	ScreenOffset    *domain.Point `json:"screenOffset,omitempty"`
	ContainerBounds *domain.Rect  `json:"containerBounds,omitempty"`
	Index           *int          `json:"index,omitempty"`
}

// ResolveDrop turns a drop gesture into a Move against s. The pointer offset is
// translated into container-relative left/top. Without an explicit index a drop
// back into the item's own group keeps its slot and a drop elsewhere appends.
func ResolveDrop(s Store, d Drop) (Move, error) {
	if d.ScreenOffset == nil || d.ContainerBounds == nil {
		return Move{}, fmt.Errorf("drop %s: %w", d.ItemID, ErrMalformedDrop)
	}
	pos := d.ContainerBounds.Relative(*d.ScreenOffset)
	m := Move{ItemID: d.ItemID, TargetGroupID: d.TargetGroupID, Index: -1, Position: &pos}
	if d.Index != nil {
		m.Index = *d.Index
		return m, nil
	}
	if loc, ok := Locate(s, d.ItemID); ok && loc.GroupID == d.TargetGroupID {
		m.Index = loc.ItemIndex
	}
	return m, nil
}

// ApplyDrop resolves and performs a drop in one step.
func ApplyDrop(s Store, d Drop) (Store, error) {
	m, err := ResolveDrop(s, d)
	if err != nil {
		return s, err
	}
	return Transfer(s, m)
}
