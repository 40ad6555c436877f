/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package editor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"cutlayout/internal/export"
	"cutlayout/internal/layout"
	"cutlayout/internal/seed"
	"cutlayout/internal/telemetry"
)

type sentEvent struct {
	Name  string         `json:"name"`
	Props map[string]any `json:"props"`
}

func TestGesturesAndExportEmitTelemetry(t *testing.T) {
	var (
		mu   sync.Mutex
		got  []sentEvent
		auth []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev sentEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		got = append(got, ev)
		auth = append(auth, r.Header.Get("Authorization"))
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	tc := telemetry.New(telemetry.Config{OptIn: true, EventsURL: srv.URL, Token: "ws-token", Timeout: time.Second})
	defer tc.Close()
	s := New(seed.Default(), Options{
		Export: export.Options{AdID: 7, Now: func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }},
		Events: tc,
	})

	ctx := context.Background()
	s.Drop(ctx, dropAt("3", "section-content-1", 130, 160))
	s.Drop(ctx, dropAt("4", "section-header", 110, 110))
	s.Move(ctx, layout.Move{ItemID: "99", TargetGroupID: "pack-1", Index: -1})
	rec, err := s.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	fctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	tc.Flush(fctx)

	mu.Lock()
	defer mu.Unlock()
	want := []sentEvent{
		{Name: telemetry.EventDrop, Props: map[string]any{"applied": true, "reason": ""}},
		{Name: telemetry.EventDrop, Props: map[string]any{"applied": false, "reason": ReasonDropNotAllowed}},
		{Name: telemetry.EventMove, Props: map[string]any{"applied": false, "reason": ReasonItemNotFound}},
		{Name: telemetry.EventExport, Props: map[string]any{
			"cuts":  float64(len(rec.CutLayouts.Updated)),
			"items": float64(len(rec.CutContentItems.Updated)),
		}},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Name != want[i].Name {
			t.Fatalf("event %d: name %q, want %q", i, got[i].Name, want[i].Name)
		}
		for k, v := range want[i].Props {
			if got[i].Props[k] != v {
				t.Fatalf("event %d (%s): %s = %v, want %v", i, got[i].Name, k, got[i].Props[k], v)
			}
		}
		if auth[i] != "Bearer ws-token" {
			t.Fatalf("event %d sent without token: %q", i, auth[i])
		}
	}
	if want[3].Props["items"] != float64(1) {
		t.Fatalf("export should count the one placed item, got %v", want[3].Props["items"])
	}
}
