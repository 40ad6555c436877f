/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


// Package crash turns panics into a crash report plus an autosave of the
// editing session.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "cutlayout/internal/log"
	"cutlayout/internal/storage"
	"cutlayout/internal/telemetry"
	"cutlayout/internal/version"
)

// Test seams.
var (
	exitFn           = os.Exit
	stderr io.Writer = os.Stderr
)

const uploadTimeout = 3 * time.Second

// Autosaver is implemented by the editing session. Workspace is the root
// crash reports are written under; Autosave persists whatever the session
// can still serialize and returns the written path.
type Autosaver interface {
	Workspace() string
	Autosave() (string, error)
}

// Recover handles a panic in the calling goroutine: the report is written
// to disk and uploaded when the user opted in, the session is autosaved and
// the process exits with status 2.
//
// Usage: defer crash.Recover(session)
func Recover(s Autosaver) {
	if r := recover(); r != nil {
		handle(s, r)
	}
}

func handle(s Autosaver, r any) {
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	now := time.Now()
	report := buildReport(s, r, stack, now)
	path, err := saveReport(ReportDir(s), report, now)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	if err := telemetry.Default().UploadCrash(ctx, report); err != nil {
		l.Warn("crash upload failed", slog.Any("err", err))
	}
	cancel()

	if s != nil {
		if saved, err := s.Autosave(); err != nil {
			l.Error("autosave failed", slog.Any("err", err))
		} else if saved != "" {
			l.Info("autosave written", slog.String("path", saved))
		}
	}

	_, _ = fmt.Fprintf(stderr, "A fatal error occurred. A crash report was saved to: %s\n", path)
	_, _ = fmt.Fprintf(stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

// ReportDir is where crash reports for the given session go: the workspace
// backups folder, or the temp dir when there is no workspace.
func ReportDir(s Autosaver) string {
	if s != nil {
		if root := s.Workspace(); root != "" {
			return filepath.Join(root, storage.BackupsDirName)
		}
	}
	return os.TempDir()
}

func buildReport(s Autosaver, panicVal any, stack []byte, at time.Time) []byte {
	var b bytes.Buffer
	b.WriteString("Cut Layout Crash Report\n")
	fmt.Fprintf(&b, "Timestamp: %s\n", at.Format(time.RFC3339))
	fmt.Fprintf(&b, "Version: %s\n", version.String())
	fmt.Fprintf(&b, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if s != nil && s.Workspace() != "" {
		fmt.Fprintf(&b, "Workspace: %s\n", s.Workspace())
	}
	fmt.Fprintf(&b, "\nPanic: %v\n\nStack:\n%s\n", panicVal, stack)
	return b.Bytes()
}

func saveReport(dir string, report []byte, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", at.Format("20060102-150405.000")))
	if err := storage.WriteFileAtomic(path, report); err != nil {
		return path, err
	}
	return path, nil
}
