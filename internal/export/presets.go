/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"cutlayout/internal/storage"
)

// PresetName represents a named sink preset.
type PresetName string

const (
	PresetConsole PresetName = "console"
	PresetLocal   PresetName = "local"
	PresetArchive PresetName = "archive"
)

// SinkOptions controls which sinks OpenSinks builds.
//
// Path semantics:
//   - OutDir is used as given; callers resolve it against the workspace.
//     Empty means <Root>/exports.
//   - The archive always lives at <Root>/.cut/archive.sqlite.
type SinkOptions struct {
	Preset   PresetName
	Names    []string // allowed: log, file, archive; empty means preset defaults
	Root     string   // workspace root
	OutDir   string   // file sink directory
	KeepLast int      // archive retention per ad; 0 keeps everything
	Logger   *slog.Logger
}

// OpenSinks resolves the configured sink names into a MultiSink. Callers must
// Close it to release the archive.
func OpenSinks(opt SinkOptions) (*MultiSink, error) {
	names := opt.Names
	if len(names) == 0 {
		names = presetDefaultSinks(opt.Preset)
	}
	root := opt.Root
	if strings.TrimSpace(root) == "" {
		root = "."
	}

	m := &MultiSink{}
	seen := map[string]bool{}
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		switch name {
		case "log":
			m.Sinks = append(m.Sinks, LogSink{Logger: opt.Logger})
		case "file":
			out := opt.OutDir
			if out == "" {
				out = filepath.Join(root, "exports")
			}
			m.Sinks = append(m.Sinks, FileSink{Dir: out})
		case "archive":
			a, err := storage.OpenArchive(root)
			if err != nil {
				_ = m.Close()
				return nil, fmt.Errorf("open archive: %w", err)
			}
			m.Sinks = append(m.Sinks, ArchiveSink{Archive: a, KeepLast: opt.KeepLast})
			m.closers = append(m.closers, a.Close)
		default:
			_ = m.Close()
			return nil, fmt.Errorf("unknown sink: %s", raw)
		}
	}
	if len(m.Sinks) == 0 {
		return nil, fmt.Errorf("no sinks configured")
	}
	return m, nil
}

// ParseSinkNames splits a comma separated list such as "log,file".
func ParseSinkNames(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func presetDefaultSinks(p PresetName) []string {
	switch p {
	case PresetLocal:
		return []string{"log", "file"}
	case PresetArchive:
		return []string{"log", "file", "archive"}
	default:
		return []string{"log"}
	}
}
