/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cutlayout/internal/config"
	"cutlayout/internal/export"
	"cutlayout/internal/seed"
)

type memTokens struct{ m map[string]string }

func (s *memTokens) Get(service, key string) (string, error) {
	v, ok := s.m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (s *memTokens) Set(service, key, value string) error {
	s.m[service+"/"+key] = value
	return nil
}
func (s *memTokens) Delete(service, key string) error {
	delete(s.m, service+"/"+key)
	return nil
}

// isolate keeps config, keyring and environment away from the developer machine.
func isolate(t *testing.T) *memTokens {
	t.Helper()
	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "config.yaml"))
	for _, k := range []string{config.EnvWorkspace, config.EnvAdID, config.EnvSinks, config.EnvSeedFile, config.EnvTelemetryOptIn} {
		t.Setenv(k, "")
	}
	ts := &memTokens{m: map[string]string{}}
	t.Cleanup(config.SetTokenStore(ts))
	return ts
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	a := &app{}
	cmd := a.rootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, _, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "cutlayout ") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSeedCommandFormats(t *testing.T) {
	isolate(t)
	out, _, err := run(t, "seed", "--format", "toml")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "[[packs]]") || !strings.Contains(out, "section-header") {
		t.Fatalf("unexpected toml: %s", out)
	}

	path := filepath.Join(t.TempDir(), "layout.yaml")
	if _, _, err := run(t, "seed", "--out", path); err != nil {
		t.Fatalf("seed --out: %v", err)
	}
	doc, st, err := seed.Load(path)
	if err != nil {
		t.Fatalf("reload seed: %v", err)
	}
	if len(doc.Packs) != 2 || st.ItemCount() != 6 {
		t.Fatalf("unexpected seed: %d packs, %d items", len(doc.Packs), st.ItemCount())
	}
}

func TestExportReplaysScriptToFileSink(t *testing.T) {
	isolate(t)
	ws := t.TempDir()
	script := writeFile(t, filepath.Join(t.TempDir(), "drops.yaml"), `steps:
  - item: "3"
    target: section-content-1
    left: 150
    top: 75
  - item: "1"
    target: section-header
`)
	out, errOut, err := run(t, "-w", ws, "export", "--drops", script, "--sinks", "file", "--print")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(errOut, "drop_not_allowed") {
		t.Fatalf("refused step not reported: %q", errOut)
	}
	var rec export.Record
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("stdout is not a record: %v\n%s", err, out)
	}
	if len(rec.CutContentItems.Updated) != 1 {
		t.Fatalf("expected one placed item, got %d", len(rec.CutContentItems.Updated))
	}
	it := rec.CutContentItems.Updated[0]
	if it.CutNumber != 2 || it.Position.Left != 0.5 || it.Position.Top != 0.25 {
		t.Fatalf("unexpected item: %+v", it)
	}
	latest, err := export.ReadLatest(filepath.Join(ws, "exports"))
	if err != nil {
		t.Fatalf("latest.json: %v", err)
	}
	if len(latest.CutLayouts.Updated) != 4 {
		t.Fatalf("unexpected latest record: %+v", latest.CutLayouts)
	}
}

func TestExportStrictFailsOnRefusal(t *testing.T) {
	isolate(t)
	script := writeFile(t, filepath.Join(t.TempDir(), "drops.yaml"), "steps:\n  - item: \"42\"\n    target: section-content-1\n")
	if _, _, err := run(t, "-w", t.TempDir(), "export", "--drops", script, "--strict"); err == nil {
		t.Fatalf("expected strict export to fail")
	}
}

func TestArchiveListAndShow(t *testing.T) {
	isolate(t)
	ws := t.TempDir()
	t.Setenv(config.EnvAdID, "12")
	for i := 0; i < 2; i++ {
		if _, _, err := run(t, "-w", ws, "export", "--sinks", "archive"); err != nil {
			t.Fatalf("export %d: %v", i, err)
		}
	}
	out, _, err := run(t, "-w", ws, "archive", "list")
	if err != nil {
		t.Fatalf("archive list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected archive line, header and two rows, got:\n%s", out)
	}
	if want := filepath.Join(ws, ".cut", "archive.sqlite") + " (schema 3)"; lines[0] != "# "+want {
		t.Fatalf("archive line = %q, want %q", lines[0], want)
	}
	out, _, err = run(t, "-w", ws, "archive", "show", "--ad-id", "12")
	if err != nil {
		t.Fatalf("archive show: %v", err)
	}
	if err := export.ValidateJSON([]byte(out)); err != nil {
		t.Fatalf("archived payload invalid: %v", err)
	}
	out, _, err = run(t, "-w", ws, "archive", "prune", "--ad-id", "12", "--keep", "1")
	if err != nil || !strings.Contains(out, "removed 1") {
		t.Fatalf("prune: %q %v", out, err)
	}
}

func TestPacksInstallAddsToSeed(t *testing.T) {
	isolate(t)
	ws := t.TempDir()
	seedPath := filepath.Join(ws, "layout.toml")
	if _, _, err := run(t, "seed", "--out", seedPath); err != nil {
		t.Fatalf("seed: %v", err)
	}

	zipPath := filepath.Join(t.TempDir(), "summer.zip")
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("a.png")
	_, _ = w.Write([]byte("png"))
	_ = zw.Close()
	writeFile(t, zipPath, buf.String())

	out, _, err := run(t, "-w", ws, "--seed", seedPath, "packs", "install", zipPath)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if !strings.Contains(out, "pack-summer") {
		t.Fatalf("unexpected output: %s", out)
	}
	_, st, err := seed.Load(seedPath)
	if err != nil {
		t.Fatalf("reload seed: %v", err)
	}
	if _, ok := st.Group("pack-summer"); !ok || st.ItemCount() != 7 {
		t.Fatalf("pack not added to seed")
	}
	if _, err := os.Stat(filepath.Join(ws, "assets", "summer", "a.png")); err != nil {
		t.Fatalf("image not extracted: %v", err)
	}

	exported := filepath.Join(t.TempDir(), "out.zip")
	if _, _, err := run(t, "-w", ws, "--seed", seedPath, "packs", "export", "pack-summer", exported); err != nil {
		t.Fatalf("packs export: %v", err)
	}
	if _, _, err := run(t, "-w", ws, "--seed", seedPath, "packs", "export", "section-header", exported); err == nil {
		t.Fatalf("exporting a section as a pack should fail")
	}
}

func TestConfigShowAndToken(t *testing.T) {
	ts := isolate(t)
	t.Setenv(config.EnvActor, "Layout Bot")
	if _, _, err := run(t, "config", "set-token", "secret"); err != nil {
		t.Fatalf("set-token: %v", err)
	}
	if len(ts.m) != 1 {
		t.Fatalf("token not stored")
	}
	out, _, err := run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"editor.actor from CUT_ACTOR", "actor: Layout Bot", "telemetry token: set"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if _, _, err := run(t, "config", "clear-token"); err != nil || len(ts.m) != 0 {
		t.Fatalf("clear-token: %v", err)
	}
}

func TestAutosaveWithoutSessionIsNoop(t *testing.T) {
	a := &app{}
	if p, err := a.Autosave(); p != "" || err != nil {
		t.Fatalf("expected no-op, got %q %v", p, err)
	}
}
