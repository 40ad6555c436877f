/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"strings"
	"time"

	"cutlayout/internal/domain"
)

const (
	// DefaultReferenceDimension is the container edge length, in pixels, that
	// item coordinates are divided by.
	DefaultReferenceDimension = 300.0
	// DefaultActor is stamped into createdBy/modifiedBy.
	DefaultActor = "System"

	parentTypeCutLayout = "CutLayout"
	parentTypeAd        = "Ad"
)

// Options controls serialization. Zero values fall back to defaults.
type Options struct {
	AdID               int
	ReferenceDimension float64
	Actor              string
	Now                func() time.Time
	IDs                IDIssuer
}

func (o Options) withDefaults() Options {
	if o.ReferenceDimension <= 0 {
		o.ReferenceDimension = DefaultReferenceDimension
	}
	if strings.TrimSpace(o.Actor) == "" {
		o.Actor = DefaultActor
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.IDs == nil {
		o.IDs = DefaultIDs()
	}
	return o
}

// Serialize flattens the sections into a fresh export record. Cut numbers are
// the 1-based section positions. Item coordinates are divided by the reference
// dimension and are not clamped, so items hanging over a container edge yield
// values outside [0,1]. The clock is read once so all entities share one timestamp.
func Serialize(sections []domain.Group, opt Options) Record {
	opt = opt.withDefaults()
	now := opt.Now().UTC()
	ref := opt.ReferenceDimension

	rec := Record{
		AdID:                     opt.AdID,
		CutLayouts:               CutLayouts{Created: []CutLayout{}, Updated: make([]CutLayout, 0, len(sections))},
		CutContentItems:          CutContentItems{Imported: []CutContentItem{}, Created: []CutContentItem{}, Updated: []CutContentItem{}},
		CutContentItemExclusions: CutContentExclusions{Created: []CutContentItem{}, Updated: []CutContentItem{}},
		CutDetails:               CutDetailsSet{Imported: []CutDetail{}, Created: []CutDetail{}, Updated: make([]CutDetail, 0, len(sections))},
		IsSuccess:                true,
		ErrorCodeID:              0,
	}

	itemIdx := 0
	for i, sec := range sections {
		cutNumber := i + 1
		sectionID := opt.IDs.SectionID(i)
		rec.CutLayouts.Updated = append(rec.CutLayouts.Updated, CutLayout{
			AdID:      opt.AdID,
			CutNumber: cutNumber,
			Position:  GridCell{Row: sec.Grid.Row, Column: sec.Grid.Column},
			Span:      GridExtent{Columns: sec.Span.Columns, Rows: sec.Span.Rows},
			ID:        sectionID,
			Name:      sec.Title,
		})
		for _, it := range sec.Items {
			var pid *int64
			if it.ProductID != nil {
				v := *it.ProductID
				pid = &v
			}
			rec.CutContentItems.Updated = append(rec.CutContentItems.Updated, CutContentItem{
				ParentType:       parentTypeCutLayout,
				AdID:             opt.AdID,
				CutNumber:        cutNumber,
				ContentBlockID:   sectionID,
				ProductID:        pid,
				Photography:      it.Photography,
				Size:             NormalizedSize{Width: it.Width / ref, Height: it.Height / ref},
				Position:         NormalizedPos{Top: it.Top / ref, Left: it.Left / ref},
				CreatedBy:        opt.Actor,
				ModifiedBy:       opt.Actor,
				LastModifiedDate: now,
				ID:               opt.IDs.ItemID(itemIdx),
				Name:             itemName(it),
			})
			itemIdx++
		}
		ed := sec.Editorial
		rec.CutDetails.Updated = append(rec.CutDetails.Updated, CutDetail{
			ParentType:           parentTypeAd,
			AdID:                 opt.AdID,
			CutNumber:            cutNumber,
			ChildCuts:            []int{},
			CutHeadline:          ed.Headline,
			CallToAction:         ed.CallToAction,
			CopyDirection:        ed.CopyDirection,
			StylingDirection:     ed.StylingDirection,
			ArtDirectorNotes:     ed.ArtDirectorNotes,
			CopywriterNotes:      ed.CopywriterNotes,
			CreatedBy:            opt.Actor,
			ModifiedBy:           opt.Actor,
			LastModifiedDate:     now,
			Attachments:          []string{},
			PhotographyOverrides: []string{},
			ID:                   sectionID,
			Name:                 sec.Title,
		})
	}
	return rec
}

func itemName(it domain.Item) string {
	if s := strings.TrimSpace(it.Name); s != "" {
		return s
	}
	return it.Src
}
