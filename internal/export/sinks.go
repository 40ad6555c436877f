/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	applog "cutlayout/internal/log"
	"cutlayout/internal/storage"
)

// Sink is the downstream consumer of export records. Implementations must
// not retain rec after Write returns.
type Sink interface {
	Name() string
	Write(ctx context.Context, rec Record) error
}

// LogSink emits the record through the structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (LogSink) Name() string { return "log" }

func (s LogSink) Write(ctx context.Context, rec Record) error {
	l := s.Logger
	if l == nil {
		l = applog.WithComponent("export")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	l.InfoContext(ctx, "export record",
		slog.Int("ad_id", rec.AdID),
		slog.Int("cuts", len(rec.CutLayouts.Updated)),
		slog.Int("items", len(rec.CutContentItems.Updated)),
		slog.String("record", string(data)),
	)
	return nil
}

// LatestFileName is rewritten on every FileSink write; older versions are
// kept under backups/.
const LatestFileName = "latest.json"

// FileSink writes each record to Dir/ad-<adId>-<stamp>.json and refreshes
// Dir/latest.json.
type FileSink struct {
	Dir string
	Now func() time.Time
}

func (FileSink) Name() string { return "file" }

func (s FileSink) Write(_ context.Context, rec Record) error {
	if strings.TrimSpace(s.Dir) == "" {
		return errors.New("file sink: output dir is required")
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	stamp := now().UTC().Format("20060102-150405.000")
	out := filepath.Join(s.Dir, fmt.Sprintf("ad-%d-%s.json", rec.AdID, stamp))
	if err := storage.WriteJSON(out, rec); err != nil {
		return fmt.Errorf("file sink: %w", err)
	}
	if err := storage.WriteJSON(filepath.Join(s.Dir, LatestFileName), rec); err != nil {
		return fmt.Errorf("file sink latest: %w", err)
	}
	return nil
}

// ReadLatest loads the most recent record a FileSink wrote to dir, falling
// back to its newest backup when latest.json is unreadable.
func ReadLatest(dir string) (Record, error) {
	var rec Record
	if err := storage.ReadJSON(filepath.Join(dir, LatestFileName), &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ArchiveSink stores records in the SQLite export archive. When KeepLast is
// positive older exports of the same ad are pruned after each write.
type ArchiveSink struct {
	Archive  *storage.Archive
	KeepLast int
}

func (ArchiveSink) Name() string { return "archive" }

func (s ArchiveSink) Write(ctx context.Context, rec Record) error {
	if s.Archive == nil {
		return errors.New("archive sink: archive is not open")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	ts := time.Now()
	if len(rec.CutDetails.Updated) > 0 {
		ts = rec.CutDetails.Updated[0].LastModifiedDate
	}
	_, err = s.Archive.SaveExport(ctx, storage.ExportEntry{
		AdID:      rec.AdID,
		CreatedAt: ts,
		Sections:  len(rec.CutLayouts.Updated),
		Items:     len(rec.CutContentItems.Updated),
		Payload:   data,
	})
	if err != nil {
		return fmt.Errorf("archive sink: %w", err)
	}
	if s.KeepLast > 0 {
		if _, err := s.Archive.PruneExports(ctx, rec.AdID, s.KeepLast); err != nil {
			return fmt.Errorf("archive sink prune: %w", err)
		}
	}
	return nil
}

// MultiSink fans a record out to every sink. All sinks run; the first error
// is returned.
type MultiSink struct {
	Sinks   []Sink
	closers []func() error
}

func (m *MultiSink) Name() string {
	names := make([]string, 0, len(m.Sinks))
	for _, s := range m.Sinks {
		names = append(names, s.Name())
	}
	return strings.Join(names, ",")
}

func (m *MultiSink) Write(ctx context.Context, rec Record) error {
	var firstErr error
	for _, s := range m.Sinks {
		if err := s.Write(ctx, rec); err != nil {
			applog.WithOperation(applog.WithComponent("export"), "sink_write").Warn("sink failed",
				slog.String("sink", s.Name()), slog.Any("err", err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Archive returns the archive of the first ArchiveSink, or nil.
func (m *MultiSink) Archive() *storage.Archive {
	for _, s := range m.Sinks {
		if a, ok := s.(ArchiveSink); ok && a.Archive != nil {
			return a.Archive
		}
	}
	return nil
}

// FileDir returns the directory of the first FileSink, or "".
func (m *MultiSink) FileDir() string {
	for _, s := range m.Sinks {
		if f, ok := s.(FileSink); ok {
			return f.Dir
		}
	}
	return ""
}

// Close releases resources opened by OpenSinks.
func (m *MultiSink) Close() error {
	var firstErr error
	for _, c := range m.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.closers = nil
	return firstErr
}
