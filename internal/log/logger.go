/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


// Package log configures the process-wide slog logger. Every record passes
// through a handler that appends the attributes carried on its context (see
// ContextWith), then fans out to the console and, optionally, a rotating
// JSON file.
package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"cutlayout/internal/version"
)

// Options controls logger initialization. FromEnv fills it from:
//   - CUT_LOG_LEVEL=debug|info|warn|error
//   - CUT_LOG_FORMAT=console|json
//   - CUT_LOG_FILE=<path> (adds a rotated JSON file)
//   - CUT_LOG_SOURCE=true|false
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string    // optional path for file logging (rotated)
	MaxSizeMB int       // rotation size for File; 10 when zero
	Writer    io.Writer // console destination; os.Stderr when nil
}

var current atomic.Pointer[slog.Logger]

// L returns the application logger, initializing it from the environment on
// first use.
func L() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return current.Load()
}

// Init replaces the application logger and slog.Default.
func Init(opts Options) {
	hopts := &slog.HandlerOptions{Level: parseLevel(opts.Level), AddSource: opts.AddSource}
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}

	var outputs fanout
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		outputs = append(outputs, slog.NewJSONHandler(out, hopts))
	} else {
		outputs = append(outputs, newConsoleHandler(out, hopts))
	}
	if f := strings.TrimSpace(opts.File); f != "" {
		outputs = append(outputs, slog.NewJSONHandler(rotating(f, opts.MaxSizeMB), hopts))
	}

	var h slog.Handler = outputs
	if len(outputs) == 1 {
		h = outputs[0]
	}
	l := slog.New(contextAttrs{next: h}).With(
		slog.String("app", "cutlayout"),
		slog.String("ver", version.Version),
	)
	current.Store(l)
	slog.SetDefault(l)
}

func rotating(path string, sizeMB int) io.Writer {
	if sizeMB <= 0 {
		sizeMB = 10
	}
	return &lj.Logger{Filename: path, MaxSize: sizeMB, MaxBackups: 3, MaxAge: 28, Compress: true}
}

// FromEnv builds Options from CUT_LOG_* variables.
func FromEnv() Options {
	o := Options{Level: "info", Format: "console", File: os.Getenv("CUT_LOG_FILE")}
	if v := strings.TrimSpace(os.Getenv("CUT_LOG_LEVEL")); v != "" {
		o.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("CUT_LOG_FORMAT")); v != "" {
		o.Format = v
	}
	o.AddSource, _ = strconv.ParseBool(os.Getenv("CUT_LOG_SOURCE"))
	return o
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// parseLevel accepts slog level names in any case plus "warning".
// Anything it cannot read is INFO.
func parseLevel(s string) slog.Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

type ctxAttrsKey struct{}

// ContextWith returns a context whose log records (emitted via the *Context
// slog methods) carry attrs in addition to any attributes already attached.
func ContextWith(ctx context.Context, attrs ...slog.Attr) context.Context {
	return context.WithValue(ctx, ctxAttrsKey{}, append(slices.Clip(attrsFrom(ctx)), attrs...))
}

func attrsFrom(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	a, _ := ctx.Value(ctxAttrsKey{}).([]slog.Attr)
	return a
}

// contextAttrs appends the attributes stored by ContextWith to each record.
type contextAttrs struct{ next slog.Handler }

func (c contextAttrs) Enabled(ctx context.Context, lvl slog.Level) bool {
	return c.next.Enabled(ctx, lvl)
}

func (c contextAttrs) Handle(ctx context.Context, r slog.Record) error {
	if a := attrsFrom(ctx); len(a) > 0 {
		r = r.Clone()
		r.AddAttrs(a...)
	}
	return c.next.Handle(ctx, r)
}

func (c contextAttrs) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextAttrs{next: c.next.WithAttrs(attrs)}
}

func (c contextAttrs) WithGroup(name string) slog.Handler {
	return contextAttrs{next: c.next.WithGroup(name)}
}

// fanout hands each record to every output whose level admits it.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, lvl slog.Level) bool {
	return slices.ContainsFunc(f, func(h slog.Handler) bool { return h.Enabled(ctx, lvl) })
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}

// consoleHandler prints one line per record:
//
//	2025-01-02T03:04:05Z INF msg key=value group.key=value
//
// Attributes added through WithAttrs are rendered once and reused.
type consoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   slog.HandlerOptions
	prefix string // open groups, dot-terminated
	pre    []byte
}

func newConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, opts: *opts}
}

func (h *consoleHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	floor := slog.LevelInfo
	if h.opts.Level != nil {
		floor = h.opts.Level.Level()
	}
	return lvl >= floor
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	buf := make([]byte, 0, 256)
	buf = t.AppendFormat(buf, time.RFC3339)
	buf = append(buf, ' ')
	buf = append(buf, levelTag(r.Level)...)
	if r.Message != "" {
		buf = append(buf, ' ')
		buf = append(buf, r.Message...)
	}
	buf = append(buf, h.pre...)
	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, h.prefix, a)
		return true
	})
	if h.opts.AddSource && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		buf = fmt.Appendf(buf, " src=%s:%d", filepath.Base(f.File), f.Line)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.pre = slices.Clip(h.pre)
	for _, a := range attrs {
		c.pre = appendAttr(c.pre, h.prefix, a)
	}
	return &c
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, g := range a.Value.Group() {
			buf = appendAttr(buf, prefix, g)
		}
		return buf
	}
	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	return appendValue(buf, a.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
			return strconv.AppendQuote(buf, s)
		}
		return append(buf, s...)
	case slog.KindFloat64:
		return strconv.AppendFloat(buf, v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return v.Time().AppendFormat(buf, time.RFC3339)
	default:
		return append(buf, v.String()...)
	}
}

func levelTag(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DBG"
	case l < slog.LevelWarn:
		return "INF"
	case l < slog.LevelError:
		return "WRN"
	default:
		return "ERR"
	}
}
