/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"cutlayout/internal/domain"
	"cutlayout/internal/layout"
)

// Step is one scripted transfer, used to replay drops without a gesture layer.
// Left/Top nil keeps the item's coordinates; Index nil appends.
type Step struct {
	Item   string   `yaml:"item" toml:"item"`
	Target string   `yaml:"target" toml:"target"`
	Left   *float64 `yaml:"left,omitempty" toml:"left,omitempty"`
	Top    *float64 `yaml:"top,omitempty" toml:"top,omitempty"`
	Index  *int     `yaml:"index,omitempty" toml:"index,omitempty"`
}

// Move converts the step into a transfer request.
func (s Step) Move() layout.Move {
	m := layout.Move{ItemID: s.Item, TargetGroupID: s.Target, Index: -1}
	if s.Index != nil {
		m.Index = *s.Index
	}
	if s.Left != nil || s.Top != nil {
		var p domain.Position
		if s.Left != nil {
			p.Left = *s.Left
		}
		if s.Top != nil {
			p.Top = *s.Top
		}
		m.Position = &p
	}
	return m
}

type script struct {
	Steps []Step `yaml:"steps" toml:"steps"`
}

// LoadScript reads a list of steps from a YAML or TOML file with a top-level
// "steps" list.
func LoadScript(path string) ([]Step, error) {
	f, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var sc script
	switch f {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&sc); errors.Is(err, io.EOF) {
			err = nil
		}
	case FormatTOML:
		var md toml.MetaData
		md, err = toml.Decode(string(data), &sc)
		if undec := md.Undecoded(); err == nil && len(undec) > 0 {
			err = fmt.Errorf("unknown key %s", undec[0])
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	for i, s := range sc.Steps {
		if strings.TrimSpace(s.Item) == "" || strings.TrimSpace(s.Target) == "" {
			return nil, fmt.Errorf("%s: step %d: %w", filepath.Base(path), i+1, errors.New("item and target are required"))
		}
	}
	return sc.Steps, nil
}
