/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor owns the layout state of one editing session. Every
// transition swaps the current store snapshot for a new one under a single
// mutex, so gesture handlers and export triggers never observe a partly
// applied move.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"cutlayout/internal/domain"
	"cutlayout/internal/export"
	"cutlayout/internal/layout"
	applog "cutlayout/internal/log"
	"cutlayout/internal/storage"
	"cutlayout/internal/telemetry"
)

// Refusal reasons reported in Outcome.Reason.
const (
	ReasonItemNotFound   = "item_not_found"
	ReasonGroupNotFound  = "group_not_found"
	ReasonDropNotAllowed = "drop_not_allowed"
	ReasonMalformedDrop  = "malformed_drop"
)

// ErrSinkFailed wraps sink errors returned by Export. The record itself was
// valid in that case.
var ErrSinkFailed = errors.New("export sink failed")

// Outcome reports whether a gesture changed the layout. Refused gestures are
// not errors: the layout simply stays as it was.
type Outcome struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
	ItemID  string `json:"itemId"`
	Target  string `json:"targetGroupId"`
}

// Options configures a session.
type Options struct {
	// Workspace is the root for crash reports and autosaves; empty disables autosave.
	Workspace string
	Export    export.Options
	// Sink receives every export; nil only serializes and validates.
	Sink   export.Sink
	Events telemetry.Recorder
	Logger *slog.Logger
}

// Session is safe for concurrent use.
type Session struct {
	mu    sync.Mutex
	store layout.Store
	last  *export.Record

	opt    Options
	log    *slog.Logger
	events telemetry.Recorder
}

// New starts a session on the given initial layout.
func New(initial layout.Store, opt Options) *Session {
	l := opt.Logger
	if l == nil {
		l = applog.WithComponent("editor")
	}
	ev := opt.Events
	if ev == nil {
		ev = telemetry.Nop{}
	}
	return &Session{store: initial, opt: opt, log: l, events: ev}
}

// Snapshot returns the current layout. The returned store is shared with the
// session and must not be modified; Clone it to edit.
func (s *Session) Snapshot() layout.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// Drop applies a completed drag gesture.
func (s *Session) Drop(ctx context.Context, d layout.Drop) Outcome {
	out := s.apply(ctx, "drop", d.ItemID, d.TargetGroupID, func(cur layout.Store) (layout.Store, error) {
		return layout.ApplyDrop(cur, d)
	})
	s.events.Event(telemetry.EventDrop, map[string]any{"applied": out.Applied, "reason": out.Reason})
	return out
}

// Move applies a transfer request that already carries container-relative
// coordinates (or none at all).
func (s *Session) Move(ctx context.Context, m layout.Move) Outcome {
	out := s.apply(ctx, "move", m.ItemID, m.TargetGroupID, func(cur layout.Store) (layout.Store, error) {
		return layout.Transfer(cur, m)
	})
	s.events.Event(telemetry.EventMove, map[string]any{"applied": out.Applied, "reason": out.Reason})
	return out
}

func (s *Session) apply(ctx context.Context, op, itemID, target string, fn func(layout.Store) (layout.Store, error)) Outcome {
	out := Outcome{ItemID: itemID, Target: target}
	s.mu.Lock()
	next, err := fn(s.store)
	if err == nil {
		s.store = next
	}
	s.mu.Unlock()

	l := applog.WithOperation(s.log, op).With(slog.String("item", itemID), slog.String("target", target))
	if err != nil {
		out.Reason = reasonFor(err)
		l.DebugContext(ctx, "gesture refused", slog.String("reason", out.Reason), slog.Any("err", err))
		return out
	}
	out.Applied = true
	l.DebugContext(ctx, "gesture applied")
	return out
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, layout.ErrItemNotFound):
		return ReasonItemNotFound
	case errors.Is(err, layout.ErrGroupNotFound):
		return ReasonGroupNotFound
	case errors.Is(err, layout.ErrDropNotAllowed):
		return ReasonDropNotAllowed
	case errors.Is(err, layout.ErrMalformedDrop):
		return ReasonMalformedDrop
	default:
		return err.Error()
	}
}

// Replenish adds a pack to the layout.
func (s *Session) Replenish(pack domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.store.AddPack(pack)
	if err != nil {
		return err
	}
	s.store = next
	s.log.Info("pack added", slog.String("pack", pack.ID), slog.Int("images", len(pack.Items)))
	return nil
}

// Export serializes the current sections, validates the record and hands it
// to the sink. The layout is never changed by an export, whether or not the
// sink succeeds. A record that passed validation is kept for LastExport even
// when the sink fails.
func (s *Session) Export(ctx context.Context) (export.Record, error) {
	sections := s.Snapshot().Sections
	l := applog.WithOperation(s.log, "export")

	rec := export.Serialize(sections, s.opt.Export)
	if err := export.Validate(rec); err != nil {
		l.ErrorContext(ctx, "export record invalid", slog.Any("err", err))
		return export.Record{}, err
	}
	s.mu.Lock()
	kept := rec
	s.last = &kept
	s.mu.Unlock()

	sinkName := ""
	if s.opt.Sink != nil {
		sinkName = s.opt.Sink.Name()
		if err := s.opt.Sink.Write(ctx, rec); err != nil {
			l.ErrorContext(ctx, "export sink failed", slog.String("sink", sinkName), slog.Any("err", err))
			return rec, fmt.Errorf("%w: %s: %w", ErrSinkFailed, sinkName, err)
		}
	}
	s.events.Event(telemetry.EventExport, map[string]any{
		"cuts":  len(rec.CutLayouts.Updated),
		"items": len(rec.CutContentItems.Updated),
	})
	l.InfoContext(ctx, "export done",
		slog.Int("ad_id", rec.AdID),
		slog.Int("cuts", len(rec.CutLayouts.Updated)),
		slog.Int("items", len(rec.CutContentItems.Updated)),
		slog.String("sink", sinkName),
	)
	return rec, nil
}

// LastExport returns the most recent validated export record.
func (s *Session) LastExport() (export.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return export.Record{}, false
	}
	return *s.last, true
}

// Workspace returns the workspace root of the session.
func (s *Session) Workspace() string { return s.opt.Workspace }

// Autosave writes the last export record, or a fresh serialization of the
// current layout when nothing was exported yet, to
// <workspace>/backups/autosave-<stamp>.json. Without a workspace it does nothing.
func (s *Session) Autosave() (string, error) {
	if s.opt.Workspace == "" {
		return "", nil
	}
	rec, ok := s.LastExport()
	if !ok {
		rec = export.Serialize(s.Snapshot().Sections, s.opt.Export)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(s.opt.Workspace, storage.BackupsDirName, fmt.Sprintf("autosave-%s.json", stamp))
	if err := storage.WriteJSON(path, rec); err != nil {
		return "", fmt.Errorf("autosave: %w", err)
	}
	return path, nil
}
