/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	applog "cutlayout/internal/log"
)

type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) lines(t *testing.T) []map[string]any {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(l.b.Bytes()))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("log line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestRequestIDReachesEditorLogs(t *testing.T) {
	logs := &lockedBuffer{}
	applog.Init(applog.Options{Level: "debug", Format: "json", Writer: logs})
	t.Cleanup(func() { applog.Init(applog.Options{Writer: io.Discard}) })

	ts, _ := newTestServer(t, nil, nil)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/drops", strings.NewReader(
		`{"itemId":"3","targetGroupId":"section-content-1","screenOffset":{"x":130,"y":160},"containerBounds":{"x":100,"y":100,"width":300,"height":300}}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", "req-42")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post drop: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	seen := map[string]map[string]any{}
	for _, m := range logs.lines(t) {
		if msg, _ := m["msg"].(string); msg == "request" || msg == "gesture applied" {
			seen[msg] = m
		}
	}
	gesture, request := seen["gesture applied"], seen["request"]
	if gesture == nil || request == nil {
		t.Fatalf("missing log lines: %v", seen)
	}
	if gesture["request_id"] != "req-42" || gesture["component"] != "editor" || gesture["op"] != "drop" {
		t.Fatalf("editor line lacks request context: %v", gesture)
	}
	if request["request_id"] != "req-42" || request["component"] != "server" ||
		request["path"] != "/api/drops" || request["status"] != float64(http.StatusOK) {
		t.Fatalf("unexpected request line: %v", request)
	}
}
