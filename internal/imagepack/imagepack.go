/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imagepack replenishes packs from zip archives of images.
// An archive holds image files and an optional pack.yaml manifest that names
// the pack and carries per-image metadata.
package imagepack

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"cutlayout/internal/domain"
	applog "cutlayout/internal/log"
)

// ManifestName is the manifest entry at the archive root.
const ManifestName = "pack.yaml"

// DefaultImageSize is used for images whose manifest entry has no size.
const DefaultImageSize = 100

// ErrUnsafePath is returned for archive entries that would escape the pack directory.
var ErrUnsafePath = errors.New("unsafe path in pack archive")

// Manifest describes a pack archive.
type Manifest struct {
	ID     string          `yaml:"id"`
	Title  string          `yaml:"title"`
	Images []ManifestImage `yaml:"images"`
}

// ManifestImage carries the metadata of one archive image. File is the entry
// name relative to the archive root.
type ManifestImage struct {
	File        string  `yaml:"file"`
	ID          string  `yaml:"id,omitempty"`
	Name        string  `yaml:"name,omitempty"`
	ProductID   *int64  `yaml:"productId,omitempty"`
	Photography string  `yaml:"photography,omitempty"`
	Width       float64 `yaml:"width,omitempty"`
	Height      float64 `yaml:"height,omitempty"`
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// newID issues ids for images the manifest does not name.
var newID = uuid.NewString

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// Install extracts the pack archive into assetsDir/<pack-id>/ and returns the
// pack as a group ready for Store.AddPack. Existing files are not overwritten;
// if a file already exists, it is skipped. The second result is the count of
// files written.
func Install(zipPath, assetsDir string) (domain.Group, int, error) {
	l := applog.WithOperation(applog.WithComponent("imagepack"), "install").With(slog.String("zip", zipPath))
	if strings.TrimSpace(zipPath) == "" {
		return domain.Group{}, 0, errors.New("zipPath is required")
	}
	if strings.TrimSpace(assetsDir) == "" {
		return domain.Group{}, 0, errors.New("assetsDir is required")
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return domain.Group{}, 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	var man Manifest
	var images []*zip.File
	for _, f := range r.File {
		name := f.Name
		if f.FileInfo().IsDir() {
			continue
		}
		if err := checkEntry(name); err != nil {
			return domain.Group{}, 0, err
		}
		if name == ManifestName {
			if err := readManifest(f, &man); err != nil {
				return domain.Group{}, 0, err
			}
			continue
		}
		if imageExts[strings.ToLower(path.Ext(name))] {
			images = append(images, f)
		}
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Name < images[j].Name })

	base := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	packID := slug(man.ID)
	if packID == "" {
		packID = slug(base)
	}
	if packID == "" {
		packID = newID()
	}
	title := strings.TrimSpace(man.Title)
	if title == "" {
		title = base
	}
	meta := make(map[string]ManifestImage, len(man.Images))
	for _, mi := range man.Images {
		meta[path.Clean(mi.File)] = mi
	}

	packDir := filepath.Join(assetsDir, packID)
	if err := os.MkdirAll(packDir, 0o755); err != nil {
		return domain.Group{}, 0, fmt.Errorf("ensure pack dir: %w", err)
	}

	g := domain.Group{ID: "pack-" + packID, Kind: domain.KindPack, Title: title, Items: make([]domain.Item, 0, len(images))}
	installed := 0
	for _, f := range images {
		target := filepath.Join(packDir, filepath.FromSlash(f.Name))
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
		} else {
			if err := extract(f, target); err != nil {
				return domain.Group{}, installed, err
			}
			installed++
		}
		g.Items = append(g.Items, itemFor(packID, f.Name, meta[path.Clean(f.Name)]))
	}
	l.Info("image pack installed", slog.String("pack", g.ID), slog.Int("images", len(g.Items)), slog.Int("files", installed))
	return g, installed, nil
}

func itemFor(packID, entry string, mi ManifestImage) domain.Item {
	it := domain.Item{
		ID:          strings.TrimSpace(mi.ID),
		Src:         path.Join(packID, entry),
		Width:       mi.Width,
		Height:      mi.Height,
		Name:        mi.Name,
		Photography: mi.Photography,
	}
	if it.ID == "" {
		it.ID = newID()
	}
	if mi.ProductID != nil {
		v := *mi.ProductID
		it.ProductID = &v
	}
	if it.Width <= 0 {
		it.Width = DefaultImageSize
	}
	if it.Height <= 0 {
		it.Height = DefaultImageSize
	}
	return it
}

func checkEntry(name string) error {
	clean := path.Clean(name)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(name, `\`) {
		return fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return nil
}

func readManifest(f *zip.File, man *Manifest) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = rc.Close() }()
	if err := yaml.NewDecoder(rc).Decode(man); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse manifest: %w", err)
	}
	return nil
}

func extract(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Export writes the pack g to zipPath: every image whose Src resolves to a
// file under assetsDir, plus a manifest carrying the item metadata. Items
// whose file is missing are still listed in the manifest.
func Export(g domain.Group, assetsDir, zipPath string) error {
	l := applog.WithOperation(applog.WithComponent("imagepack"), "export").With(slog.String("pack", g.ID))
	if strings.TrimSpace(zipPath) == "" {
		return errors.New("zipPath is required")
	}
	if err := os.MkdirAll(filepath.Dir(zipPath), 0o755); err != nil {
		return fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(zipPath)

	zf, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	man := Manifest{ID: strings.TrimPrefix(g.ID, "pack-"), Title: g.Title}
	used := map[string]bool{}
	added := 0
	for _, it := range g.Items {
		entry := path.Base(it.Src)
		if used[entry] {
			entry = it.ID + "-" + entry
		}
		used[entry] = true
		man.Images = append(man.Images, ManifestImage{
			File: entry, ID: it.ID, Name: it.Name, ProductID: it.ProductID,
			Photography: it.Photography, Width: it.Width, Height: it.Height,
		})
		src := filepath.Join(assetsDir, filepath.FromSlash(strings.TrimPrefix(it.Src, "/")))
		ok, err := addFile(zw, entry, src)
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("add %s: %w", entry, err)
		}
		if ok {
			added++
		} else {
			l.Warn("image file missing", slog.String("src", it.Src))
		}
	}

	data, err := yaml.Marshal(man)
	if err != nil {
		_ = zw.Close()
		return fmt.Errorf("marshal manifest: %w", err)
	}
	w, err := zw.Create(ManifestName)
	if err != nil {
		_ = zw.Close()
		return fmt.Errorf("add manifest: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}
	l.Info("image pack exported", slog.Int("files", added), slog.String("zip", zipPath))
	return nil
}

func addFile(zw *zip.Writer, entry, src string) (bool, error) {
	f, err := os.Open(src)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()
	fw, err := zw.Create(entry)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return false, err
	}
	return true, nil
}
