/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in usage events about layout editing and,
// separately, crash reports. Nothing is sent unless the user opted in and an
// endpoint is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	applog "cutlayout/internal/log"
	"cutlayout/internal/version"
)

// Config holds runtime configuration for telemetry and crash uploads.
//
// FromEnv reads:
//   - CUT_TELEMETRY_OPT_IN: 1/true/yes/on enables sending
//   - CUT_TELEMETRY_URL: endpoint events are POSTed to as JSON
//   - CUT_CRASH_UPLOAD_URL: endpoint crash reports are POSTed to as text
//   - CUT_TELEMETRY_TIMEOUT_MS: per-request timeout, 1500 by default
//   - CUT_TELEMETRY_DEBUG: any value logs each delivery attempt
//
// Token is sent as a bearer token. It comes from the OS keyring via the
// config package, never from the environment.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Token        string
	Timeout      time.Duration
	DebugLogging bool
}

// Event names emitted by the editor.
const (
	EventDrop   = "layout.drop"
	EventMove   = "layout.move"
	EventExport = "layout.export"
)

const queueSize = 64

// Recorder is the subset of Client used by callers that only emit events.
type Recorder interface {
	Event(name string, props map[string]any)
}

// Nop discards events.
type Nop struct{}

func (Nop) Event(string, map[string]any) {}

func FromEnv() Config {
	cfg := Config{
		OptIn:        envFlag("CUT_TELEMETRY_OPT_IN"),
		EventsURL:    strings.TrimSpace(os.Getenv("CUT_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("CUT_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("CUT_TELEMETRY_DEBUG") != "",
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv("CUT_TELEMETRY_TIMEOUT_MS"))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

func envFlag(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// payload is the JSON body of one event.
type payload struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client delivers events from a bounded queue on a background goroutine.
// Event never blocks; when the queue is full the event is dropped.
type Client struct {
	cfg     Config
	log     *slog.Logger
	http    *http.Client
	queue   chan payload
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once

	mu       sync.Mutex
	inflight int
	idle     chan struct{} // closed when inflight drops to zero
}

// New starts a client. Close it to stop the delivery goroutine.
func New(cfg Config) *Client {
	c := &Client{
		cfg:   cfg,
		log:   applog.WithComponent("telemetry"),
		http:  &http.Client{Timeout: cfg.Timeout},
		queue: make(chan payload, queueSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go c.run()
	return c
}

// Enabled reports whether events are sent at all.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a usage event. Props must not carry user content; the editor
// sends outcome flags and counts only.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	p := payload{
		Name:    name,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
	if len(props) > 0 {
		p.Props = make(map[string]any, len(props))
		for k, v := range props {
			p.Props[k] = v
		}
	}
	select {
	case <-c.stop:
		return
	default:
	}
	c.track(1)
	select {
	case c.queue <- p:
	default:
		c.track(-1)
		c.debug("event dropped, queue full", slog.String("event", name))
	}
}

func (c *Client) track(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == 0 && delta > 0 {
		c.idle = make(chan struct{})
	}
	c.inflight += delta
	if c.inflight == 0 {
		close(c.idle)
	}
}

// Flush waits until every queued event was delivered or given up on, or ctx
// ends.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	c.mu.Lock()
	idle, n := c.idle, c.inflight
	c.mu.Unlock()
	if n == 0 {
		return
	}
	select {
	case <-idle:
	case <-ctx.Done():
	}
}

// Close stops the delivery goroutine. Events still queued are discarded;
// call Flush first to deliver them.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() {
		close(c.stop)
		<-c.done
		for {
			select {
			case <-c.queue:
				c.track(-1)
			default:
				return
			}
		}
	})
}

func (c *Client) run() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		case p := <-c.queue:
			body, err := json.Marshal(p)
			if err == nil {
				err = c.post(context.Background(), c.cfg.EventsURL, "application/json", body)
			}
			if err != nil {
				c.debug("event not delivered", slog.String("event", p.Name), slog.Any("err", err))
			} else {
				c.debug("event delivered", slog.String("event", p.Name))
			}
			c.track(-1)
		}
	}
}

// UploadCrash posts a crash report and waits for the answer. It is a no-op
// unless the user opted in and a crash URL is configured.
func (c *Client) UploadCrash(ctx context.Context, report []byte) error {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return nil
	}
	if err := c.post(ctx, c.cfg.CrashURL, "text/plain; charset=utf-8", report); err != nil {
		c.debug("crash upload failed", slog.Any("err", err))
		return err
	}
	c.debug("crash report uploaded", slog.Int("bytes", len(report)))
	return nil
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if tok := strings.TrimSpace(c.cfg.Token); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}
	return nil
}

func (c *Client) debug(msg string, attrs ...any) {
	if c.cfg.DebugLogging {
		c.log.Debug(msg, attrs...)
	}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the client crash reports go through: the one installed by
// SetDefault, or one configured from the environment.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault installs c as the client returned by Default. Passing nil makes
// the next Default call read the environment again.
func SetDefault(c *Client) {
	defaultMu.Lock()
	defaultClient = c
	defaultMu.Unlock()
}
