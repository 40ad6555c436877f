/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cli wires configuration, the editing session and its sinks into the
// cutlayout command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cutlayout/internal/config"
	"cutlayout/internal/crash"
	"cutlayout/internal/editor"
	"cutlayout/internal/export"
	"cutlayout/internal/layout"
	applog "cutlayout/internal/log"
	"cutlayout/internal/seed"
	"cutlayout/internal/telemetry"
	"cutlayout/internal/version"
)

// app holds state shared by all commands of one invocation. It doubles as the
// crash autosaver, delegating to whichever session is active.
type app struct {
	cfg   config.AppConfig
	token string

	workspace string
	seedFile  string
	verbose   bool

	mu        sync.Mutex
	session   *editor.Session
	telemetry *telemetry.Client
}

// Execute runs the cutlayout CLI.
func Execute() error {
	a := &app{}
	defer crash.Recover(a)
	return a.rootCmd().ExecuteContext(context.Background())
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cutlayout",
		Short:        "Arrange pack images into ad cuts and export the layout record",
		Version:      version.String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.flush()
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("cutlayout %s\n", version.String()))
	root.PersistentFlags().StringVarP(&a.workspace, "workspace", "w", "", "workspace root for exports, archive and backups")
	root.PersistentFlags().StringVar(&a.seedFile, "seed", "", "seed file (yaml or toml); empty uses the demo layout")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(a.versionCmd())
	root.AddCommand(a.seedCmd())
	root.AddCommand(a.exportCmd())
	root.AddCommand(a.serveCmd())
	root.AddCommand(a.packsCmd())
	root.AddCommand(a.archiveCmd())
	root.AddCommand(a.configCmd())
	return root
}

func (a *app) load() error {
	cfg, tok, err := config.Load()
	if err != nil {
		return err
	}
	if a.workspace != "" {
		cfg.General.Workspace = a.workspace
	}
	if a.seedFile != "" {
		cfg.Editor.SeedFile = a.seedFile
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	a.cfg, a.token = cfg, tok
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	return nil
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cutlayout %s\n", version.String())
		},
	}
}

// loadLayout returns the configured seed document and its store.
func (a *app) loadLayout() (seed.Document, layout.Store, error) {
	if a.cfg.Editor.SeedFile == "" {
		return seed.DefaultDocument(), seed.Default(), nil
	}
	return seed.Load(a.cfg.Editor.SeedFile)
}

// newSession builds the editing session on the configured layout. sink may be nil.
func (a *app) newSession(sink export.Sink) (*editor.Session, error) {
	doc, st, err := a.loadLayout()
	if err != nil {
		return nil, err
	}
	ids, err := export.IssuerByName(a.cfg.Editor.IDScheme)
	if err != nil {
		return nil, err
	}
	adID := a.cfg.Editor.AdID
	if adID == 0 {
		adID = doc.AdID
	}
	sess := editor.New(st, editor.Options{
		Workspace: a.cfg.General.Workspace,
		Export: export.Options{
			AdID:               adID,
			ReferenceDimension: a.cfg.Editor.ReferenceDimension,
			Actor:              a.cfg.Editor.Actor,
			IDs:                ids,
		},
		Sink:   sink,
		Events: a.events(),
	})
	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()
	applog.WithComponent("cli").Debug("session ready",
		slog.Int("ad_id", adID),
		slog.Int("items", st.ItemCount()),
		slog.String("workspace", a.cfg.General.Workspace),
	)
	return sess, nil
}

func (a *app) events() telemetry.Recorder {
	if !a.cfg.General.TelemetryOptIn {
		return telemetry.Nop{}
	}
	tc := telemetry.FromEnv()
	tc.OptIn = true
	tc.Token = a.token
	a.telemetry = telemetry.New(tc)
	// crash uploads carry the same token
	telemetry.SetDefault(a.telemetry)
	return a.telemetry
}

func (a *app) flush() {
	if a.telemetry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	a.telemetry.Flush(ctx)
	a.telemetry.Close()
}

// openSinks resolves sinks from the flag value, then the preset, then config.
func (a *app) openSinks(flagSinks, preset string) (*export.MultiSink, error) {
	names := export.ParseSinkNames(flagSinks)
	if len(names) == 0 && preset == "" {
		names = a.cfg.Export.Sinks
	}
	return export.OpenSinks(export.SinkOptions{
		Preset:   export.PresetName(preset),
		Names:    names,
		Root:     a.cfg.General.Workspace,
		OutDir:   a.cfg.ExportRoot(),
		KeepLast: a.cfg.Export.KeepLast,
	})
}

// Workspace implements crash.Autosaver.
func (a *app) Workspace() string { return a.cfg.General.Workspace }

// Autosave implements crash.Autosaver.
func (a *app) Autosave() (string, error) {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s == nil {
		return "", nil
	}
	return s.Autosave()
}
