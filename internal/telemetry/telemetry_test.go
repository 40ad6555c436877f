/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type collector struct {
	mu      sync.Mutex
	bodies  []string
	headers []http.Header
	status  int
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.bodies = append(c.bodies, string(b))
	c.headers = append(c.headers, r.Header.Clone())
	status := c.status
	c.mu.Unlock()
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func (c *collector) snapshot() ([]string, []http.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.bodies...), append([]http.Header(nil), c.headers...)
}

func newCollector(t *testing.T) (*collector, string) {
	t.Helper()
	c := &collector{}
	srv := httptest.NewServer(c)
	t.Cleanup(srv.Close)
	return c, srv.URL
}

func flush(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Flush(ctx)
	if ctx.Err() != nil {
		t.Fatalf("flush timed out")
	}
}

func TestEventPayloadAndToken(t *testing.T) {
	col, url := newCollector(t)
	c := New(Config{OptIn: true, EventsURL: url, Token: " tok-123 ", Timeout: time.Second})
	defer c.Close()

	c.Event(EventExport, map[string]any{"cuts": 4, "items": 3})
	flush(t, c)

	bodies, headers := col.snapshot()
	if len(bodies) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(bodies))
	}
	if h := headers[0].Get("Authorization"); h != "Bearer tok-123" {
		t.Fatalf("Authorization = %q", h)
	}
	if ct := headers[0].Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
	var p struct {
		Name  string         `json:"name"`
		TS    string         `json:"ts"`
		OS    string         `json:"os"`
		Props map[string]any `json:"props"`
	}
	if err := json.Unmarshal([]byte(bodies[0]), &p); err != nil {
		t.Fatalf("bad event json %s: %v", bodies[0], err)
	}
	if p.Name != EventExport || p.Props["cuts"] != float64(4) || p.Props["items"] != float64(3) {
		t.Fatalf("unexpected event: %+v", p)
	}
	if _, err := time.Parse(time.RFC3339Nano, p.TS); err != nil || p.OS == "" {
		t.Fatalf("bad envelope: %+v", p)
	}
}

func TestEventCopiesProps(t *testing.T) {
	col, url := newCollector(t)
	c := New(Config{OptIn: true, EventsURL: url, Timeout: time.Second})
	defer c.Close()

	props := map[string]any{"applied": true, "reason": ""}
	c.Event(EventDrop, props)
	props["applied"] = false
	flush(t, c)

	bodies, _ := col.snapshot()
	if len(bodies) != 1 || !strings.Contains(bodies[0], `"applied":true`) {
		t.Fatalf("event changed after Event returned: %v", bodies)
	}
}

func TestDisabledClientSendsNothing(t *testing.T) {
	col, url := newCollector(t)
	for _, cfg := range []Config{
		{OptIn: false, EventsURL: url, CrashURL: url},
		{OptIn: true},
	} {
		c := New(cfg)
		if c.Enabled() {
			t.Fatalf("client enabled for %+v", cfg)
		}
		c.Event(EventMove, nil)
		if err := c.UploadCrash(context.Background(), []byte("panic")); err != nil {
			t.Fatalf("UploadCrash on disabled client: %v", err)
		}
		flush(t, c)
		c.Close()
	}
	enabled := New(Config{OptIn: true, EventsURL: url})
	enabled.Event("", nil)
	flush(t, enabled)
	enabled.Close()

	if bodies, _ := col.snapshot(); len(bodies) != 0 {
		t.Fatalf("expected no requests, got %v", bodies)
	}
	var nilClient *Client
	nilClient.Event(EventDrop, nil)
	nilClient.Flush(context.Background())
	nilClient.Close()
}

func TestUploadCrashReportsStatus(t *testing.T) {
	col, url := newCollector(t)
	c := New(Config{OptIn: true, CrashURL: url, Token: "tok", Timeout: time.Second})
	defer c.Close()

	if err := c.UploadCrash(context.Background(), []byte("Panic: boom")); err != nil {
		t.Fatalf("UploadCrash: %v", err)
	}
	bodies, headers := col.snapshot()
	if len(bodies) != 1 || bodies[0] != "Panic: boom" {
		t.Fatalf("unexpected upload: %v", bodies)
	}
	if !strings.HasPrefix(headers[0].Get("Content-Type"), "text/plain") || headers[0].Get("Authorization") != "Bearer tok" {
		t.Fatalf("unexpected headers: %v", headers[0])
	}

	col.mu.Lock()
	col.status = http.StatusServiceUnavailable
	col.mu.Unlock()
	if err := c.UploadCrash(context.Background(), []byte("again")); err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected 503 error, got %v", err)
	}
}

func TestUnreachableEndpointDoesNotBlock(t *testing.T) {
	c := New(Config{
		OptIn:        true,
		EventsURL:    "http://127.0.0.1:1/events",
		CrashURL:     "http://127.0.0.1:1/crash",
		Timeout:      50 * time.Millisecond,
		DebugLogging: true,
	})
	defer c.Close()
	c.Event(EventDrop, map[string]any{"applied": false, "reason": "drop_not_allowed"})
	flush(t, c)
	if err := c.UploadCrash(context.Background(), []byte("oops")); err == nil {
		t.Fatalf("expected error from unreachable crash endpoint")
	}
}

func TestFullQueueDropsEvents(t *testing.T) {
	release := make(chan struct{})
	var hits sync.WaitGroup
	hits.Add(1)
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(hits.Done)
		<-release
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: 5 * time.Second})
	c.Event(EventMove, nil)
	hits.Wait() // first event is in flight, the queue is empty
	for i := 0; i < queueSize+10; i++ {
		c.Event(EventMove, nil)
	}
	c.mu.Lock()
	n := c.inflight
	c.mu.Unlock()
	if n != queueSize+1 {
		t.Fatalf("inflight = %d, want %d", n, queueSize+1)
	}
	close(release)
	flush(t, c)
	c.Close()
}

func TestFromEnvAndDefault(t *testing.T) {
	t.Setenv("CUT_TELEMETRY_OPT_IN", "yes")
	t.Setenv("CUT_TELEMETRY_URL", " http://127.0.0.1:0/events ")
	t.Setenv("CUT_CRASH_UPLOAD_URL", "")
	t.Setenv("CUT_TELEMETRY_TIMEOUT_MS", "250")
	t.Setenv("CUT_TELEMETRY_DEBUG", "")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL != "http://127.0.0.1:0/events" || cfg.Timeout != 250*time.Millisecond || cfg.DebugLogging {
		t.Fatalf("FromEnv mismatch: %+v", cfg)
	}
	t.Setenv("CUT_TELEMETRY_TIMEOUT_MS", "soon")
	if FromEnv().Timeout != 1500*time.Millisecond {
		t.Fatalf("bad timeout should keep the default")
	}

	SetDefault(nil)
	t.Cleanup(func() { SetDefault(nil) })
	if d := Default(); !d.Enabled() || Default() != d {
		t.Fatalf("Default should be built once from env")
	}
	own := New(Config{})
	defer own.Close()
	SetDefault(own)
	if Default() != own {
		t.Fatalf("SetDefault not honoured")
	}

	var _ Recorder = Nop{}
	var _ Recorder = (*Client)(nil)
}
