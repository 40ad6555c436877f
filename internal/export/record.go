/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import "time"

// Record is the export payload consumed by the downstream ad system.
// Field names are part of that contract; do not rename JSON tags.
type Record struct {
	AdID                     int                  `json:"adId"`
	CutLayouts               CutLayouts           `json:"cutLayouts"`
	CutContentItems          CutContentItems      `json:"cutContentItems"`
	CutContentItemExclusions CutContentExclusions `json:"cutContentItemExclusions"`
	CutDetails               CutDetailsSet        `json:"cutDetails"`
	IsSuccess                bool                 `json:"isSuccess"`
	ErrorCodeID              int                  `json:"errorCodeId"`
}

type CutLayouts struct {
	Created []CutLayout `json:"created"`
	Updated []CutLayout `json:"updated"`
}

type CutContentItems struct {
	Imported []CutContentItem `json:"imported"`
	Created  []CutContentItem `json:"created"`
	Updated  []CutContentItem `json:"updated"`
}

// CutContentExclusions is always empty; the editor has no exclusion concept.
type CutContentExclusions struct {
	Created []CutContentItem `json:"created"`
	Updated []CutContentItem `json:"updated"`
}

type CutDetailsSet struct {
	Imported []CutDetail `json:"imported"`
	Created  []CutDetail `json:"created"`
	Updated  []CutDetail `json:"updated"`
}

// CutLayout is a section's placement on the ad grid.
type CutLayout struct {
	AdID      int        `json:"adId"`
	CutNumber int        `json:"cutNumber"`
	Position  GridCell   `json:"position"`
	Span      GridExtent `json:"span"`
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
}

type GridCell struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

type GridExtent struct {
	Columns int `json:"columns"`
	Rows    int `json:"rows"`
}

// CutContentItem is one image placed in a cut. Size and position are
// fractions of the reference container dimension.
type CutContentItem struct {
	ParentType       string         `json:"parentType"`
	AdID             int            `json:"adId"`
	CutNumber        int            `json:"cutNumber"`
	ContentBlockID   int64          `json:"contentBlockId"`
	ProductID        *int64         `json:"productId"`
	Photography      string         `json:"photography"`
	Size             NormalizedSize `json:"size"`
	Position         NormalizedPos  `json:"position"`
	CreatedBy        string         `json:"createdBy"`
	ModifiedBy       string         `json:"modifiedBy"`
	LastModifiedDate time.Time      `json:"lastModifiedDate"`
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
}

type NormalizedSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type NormalizedPos struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// CutDetail carries the editorial fields of a cut.
type CutDetail struct {
	ParentType           string    `json:"parentType"`
	AdID                 int       `json:"adId"`
	CutNumber            int       `json:"cutNumber"`
	ChildCuts            []int     `json:"childCuts"`
	CutHeadline          string    `json:"cutHeadline"`
	CallToAction         string    `json:"callToAction"`
	CopyDirection        string    `json:"copyDirection"`
	StylingDirection     string    `json:"stylingDirection"`
	ArtDirectorNotes     string    `json:"artDirectorNotes"`
	CopywriterNotes      string    `json:"copywriterNotes"`
	CreatedBy            string    `json:"createdBy"`
	ModifiedBy           string    `json:"modifiedBy"`
	LastModifiedDate     time.Time `json:"lastModifiedDate"`
	Attachments          []string  `json:"attachments"`
	PhotographyOverrides []string  `json:"photographyOverrides"`
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
}
