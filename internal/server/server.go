/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package server exposes an editing session over HTTP so a gesture front end
// can post drops and trigger exports.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cutlayout/internal/domain"
	"cutlayout/internal/editor"
	"cutlayout/internal/export"
	"cutlayout/internal/layout"
	applog "cutlayout/internal/log"
	"cutlayout/internal/storage"
	"cutlayout/internal/version"
)

const maxBody = 1 << 20

// Options configures the HTTP surface.
type Options struct {
	// Archive backs GET /api/exports; nil answers 404 there.
	Archive *storage.Archive
	// ExportDir is the file sink directory. GET /api/exports/latest reads
	// its latest.json until the session exports for the first time.
	ExportDir string
	Logger  *slog.Logger
	// Timeout bounds each request; 0 means 30s.
	Timeout time.Duration
}

// Server routes HTTP requests to an editing session.
type Server struct {
	session *editor.Session
	archive   *storage.Archive
	exportDir string
	log       *slog.Logger
	router  chi.Router
}

// New builds the router.
func New(session *editor.Session, opt Options) *Server {
	l := opt.Logger
	if l == nil {
		l = applog.WithComponent("server")
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 30 * time.Second
	}
	s := &Server{session: session, archive: opt.Archive, exportDir: opt.ExportDir, log: l}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opt.Timeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(version.String()))
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/layout", s.getLayout)
		r.Post("/drops", s.postDrop)
		r.Post("/moves", s.postMove)
		r.Post("/packs", s.postPack)
		r.Post("/export", s.postExport)
		r.Get("/export/schema", s.getSchema)
		r.Get("/exports", s.listExports)
		r.Get("/exports/latest", s.latestExport)
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully, giving in-flight requests five seconds to finish.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, readTimeout time.Duration) error {
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		applog.WithComponent("server").Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := applog.ContextWith(r.Context(), slog.String("request_id", middleware.GetReqID(r.Context())))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		s.log.DebugContext(ctx, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
		)
	})
}

func (s *Server) getLayout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) postDrop(w http.ResponseWriter, r *http.Request) {
	var d layout.Drop
	if err := decodeBody(r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeOutcome(w, s.session.Drop(r.Context(), d))
}

type moveRequest struct {
	ItemID        string           `json:"itemId"`
	TargetGroupID string           `json:"targetGroupId"`
	Index         *int             `json:"index,omitempty"`
	Position      *domain.Position `json:"position,omitempty"`
}

func (s *Server) postMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	m := layout.Move{ItemID: req.ItemID, TargetGroupID: req.TargetGroupID, Index: -1, Position: req.Position}
	if req.Index != nil {
		m.Index = *req.Index
	}
	writeOutcome(w, s.session.Move(r.Context(), m))
}

func (s *Server) postPack(w http.ResponseWriter, r *http.Request) {
	var g domain.Group
	if err := decodeBody(r, &g); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.Replenish(g); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, layout.ErrDuplicateItem) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.session.Snapshot())
}

func (s *Server) postExport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.session.Export(r.Context())
	switch {
	case errors.Is(err, editor.ErrSinkFailed):
		writeError(w, http.StatusBadGateway, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) latestExport(w http.ResponseWriter, r *http.Request) {
	if rec, ok := s.session.LastExport(); ok {
		writeJSON(w, http.StatusOK, rec)
		return
	}
	if s.exportDir != "" {
		rec, err := export.ReadLatest(s.exportDir)
		if err == nil {
			writeJSON(w, http.StatusOK, rec)
			return
		}
		s.log.DebugContext(r.Context(), "no file export to fall back to", slog.Any("err", err))
	}
	writeError(w, http.StatusNotFound, errors.New("nothing exported yet"))
}

func (s *Server) getSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Schema())
}

func (s *Server) listExports(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, errors.New("export archive is not enabled"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	list, err := s.archive.ListExports(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- Helpers: JSON ---

func decodeBody(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeOutcome(w http.ResponseWriter, out editor.Outcome) {
	switch {
	case out.Applied:
		writeJSON(w, http.StatusOK, out)
	case out.Reason == editor.ReasonMalformedDrop:
		writeJSON(w, http.StatusBadRequest, out)
	case out.Reason == editor.ReasonItemNotFound, out.Reason == editor.ReasonGroupNotFound:
		writeJSON(w, http.StatusNotFound, out)
	default:
		writeJSON(w, http.StatusConflict, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
