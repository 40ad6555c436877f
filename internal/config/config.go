/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	keyring "github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Workspace      string `yaml:"workspace"` // root for exports and the archive
	// Telemetry token is not stored on disk; it lives in the OS keychain.
}

type EditorConfig struct {
	AdID               int     `yaml:"ad_id"`
	ReferenceDimension float64 `yaml:"reference_dimension"`
	Actor              string  `yaml:"actor"`
	IDScheme           string  `yaml:"id_scheme"` // "offset" | "sequential"
	SeedFile           string  `yaml:"seed_file"` // empty uses the built-in demo layout
}

type ExportConfig struct {
	Sinks    []string `yaml:"sinks"`
	OutDir   string   `yaml:"out_dir"`
	KeepLast int      `yaml:"keep_last"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Export        ExportConfig  `yaml:"export"`
	Server        ServerConfig  `yaml:"server"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Workspace: "."},
		Editor:        EditorConfig{AdID: 0, ReferenceDimension: 300, Actor: "System", IDScheme: "offset"},
		Export:        ExportConfig{Sinks: []string{"log"}, OutDir: "exports", KeepLast: 0},
		Server:        ServerConfig{Addr: "127.0.0.1:8088", ReadTimeoutMs: 15000},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "CUT_CONFIG"
	EnvWorkspace      = "CUT_WORKSPACE"
	EnvTelemetryOptIn = "CUT_TELEMETRY_OPT_IN"
	EnvAdID           = "CUT_AD_ID"
	EnvRefDimension   = "CUT_REFERENCE_DIMENSION"
	EnvActor          = "CUT_ACTOR"
	EnvIDScheme       = "CUT_ID_SCHEME"
	EnvSeedFile       = "CUT_SEED"
	EnvSinks          = "CUT_SINKS"
	EnvExportDir      = "CUT_EXPORT_DIR"
	EnvKeepLast       = "CUT_KEEP_LAST"
	EnvServerAddr     = "CUT_ADDR"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "CUT_LOG_LEVEL"
	EnvLogFormat = "CUT_LOG_FORMAT"
	EnvLogSource = "CUT_LOG_SOURCE"
	EnvLogFile   = "CUT_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "CutLayout"
	keyringToken   = "telemetry_token"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// SetTokenStore swaps the keyring backend and returns a func restoring the previous one.
func SetTokenStore(ts TokenStore) (restore func()) {
	prev := tokenStore
	tokenStore = ts
	return func() { tokenStore = prev }
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error {
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// ConfigPath returns the per-user config file path. CUT_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "CutLayout")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "CutLayout")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "cutlayout")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the telemetry token from keyring (not kept inside the struct; returned separately).
// A config file that exists but cannot be parsed is an error.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	// a missing keyring entry or backend just means no token
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
	}
	return nil
}

// SetToken stores the telemetry token in the keyring without touching the config file.
func SetToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return tokenStore.Set(keyringService, keyringToken, token)
}

// ClearToken removes the telemetry token from the keyring.
func ClearToken() error { return tokenStore.Delete(keyringService, keyringToken) }

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if s := strings.TrimSpace(src.General.Workspace); s != "" {
		dst.General.Workspace = s
	}
	// editor
	if src.Editor.AdID != 0 {
		dst.Editor.AdID = src.Editor.AdID
	}
	if src.Editor.ReferenceDimension > 0 {
		dst.Editor.ReferenceDimension = src.Editor.ReferenceDimension
	}
	if s := strings.TrimSpace(src.Editor.Actor); s != "" {
		dst.Editor.Actor = s
	}
	if s := strings.TrimSpace(src.Editor.IDScheme); s != "" {
		dst.Editor.IDScheme = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Editor.SeedFile); s != "" {
		dst.Editor.SeedFile = s
	}
	// export
	if len(src.Export.Sinks) > 0 {
		dst.Export.Sinks = append([]string(nil), src.Export.Sinks...)
	}
	if s := strings.TrimSpace(src.Export.OutDir); s != "" {
		dst.Export.OutDir = s
	}
	if src.Export.KeepLast > 0 {
		dst.Export.KeepLast = src.Export.KeepLast
	}
	// server
	if s := strings.TrimSpace(src.Server.Addr); s != "" {
		dst.Server.Addr = s
	}
	if src.Server.ReadTimeoutMs > 0 {
		dst.Server.ReadTimeoutMs = src.Server.ReadTimeoutMs
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkspace)); v != "" {
		cfg.General.Workspace = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAdID)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Editor.AdID = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvRefDimension)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Editor.ReferenceDimension = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvActor)); v != "" {
		cfg.Editor.Actor = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvIDScheme)); v != "" {
		cfg.Editor.IDScheme = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvSeedFile)); v != "" {
		cfg.Editor.SeedFile = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSinks)); v != "" {
		var sinks []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				sinks = append(sinks, strings.ToLower(p))
			}
		}
		if len(sinks) > 0 {
			cfg.Export.Sinks = sinks
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportDir)); v != "" {
		cfg.Export.OutDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvKeepLast)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Export.KeepLast = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"general.telemetry_opt_in":   EnvTelemetryOptIn,
	"general.workspace":          EnvWorkspace,
	"editor.ad_id":               EnvAdID,
	"editor.reference_dimension": EnvRefDimension,
	"editor.actor":               EnvActor,
	"editor.id_scheme":           EnvIDScheme,
	"editor.seed_file":           EnvSeedFile,
	"export.sinks":               EnvSinks,
	"export.out_dir":             EnvExportDir,
	"export.keep_last":           EnvKeepLast,
	"server.addr":                EnvServerAddr,
	"logging.level":              EnvLogLevel,
	"logging.format":             EnvLogFormat,
	"logging.source":             EnvLogSource,
	"logging.file":               EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envByKey[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// ExportRoot resolves the file sink directory against the workspace.
func (c AppConfig) ExportRoot() string {
	if filepath.IsAbs(c.Export.OutDir) {
		return c.Export.OutDir
	}
	return filepath.Join(c.General.Workspace, c.Export.OutDir)
}
