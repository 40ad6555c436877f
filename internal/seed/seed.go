/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package seed builds the initial packs and sections of an editing session,
// either from the built-in demo layout or from a YAML or TOML seed file.
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

// Format selects the seed file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat is returned for unsupported file extensions or format names.
var ErrUnknownFormat = errors.New("unknown seed format")

// Document is the on-disk shape of a seed file.
type Document struct {
	AdID     int            `yaml:"adId,omitempty" toml:"adId,omitempty"`
	Packs    []domain.Group `yaml:"packs" toml:"packs"`
	Sections []domain.Group `yaml:"sections" toml:"sections"`
}

// Store validates the document and returns it as a layout store.
func (d Document) Store() (layout.Store, error) {
	return layout.NewStore(d.Packs, d.Sections)
}

// FromStore captures a store as a seed document.
func FromStore(adID int, s layout.Store) Document {
	c := s.Clone()
	return Document{AdID: adID, Packs: c.Packs, Sections: c.Sections}
}

// FormatFor maps a file path or a format name to a Format.
func FormatFor(pathOrName string) (Format, error) {
	s := strings.ToLower(strings.TrimSpace(pathOrName))
	if ext := filepath.Ext(s); ext != "" {
		s = ext[1:]
	}
	switch s {
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, pathOrName)
	}
}

// Load reads a seed file; the format follows the file extension.
func Load(path string) (Document, layout.Store, error) {
	f, err := FormatFor(path)
	if err != nil {
		return Document{}, layout.Store{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, layout.Store{}, fmt.Errorf("read seed: %w", err)
	}
	doc, err := Decode(bytes.NewReader(data), f)
	if err != nil {
		return Document{}, layout.Store{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	st, err := doc.Store()
	if err != nil {
		return Document{}, layout.Store{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return doc, st, nil
}

// Decode parses a seed document.
func Decode(r io.Reader, f Format) (Document, error) {
	var doc Document
	switch f {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return Document{}, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&doc)
		if err != nil {
			return Document{}, fmt.Errorf("decode toml: %w", err)
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			return Document{}, fmt.Errorf("decode toml: unknown key %s", undec[0])
		}
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return doc, nil
}

// Encode writes doc in the given format.
func Encode(w io.Writer, doc Document, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}
