// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// logLineMsg shows one log record on the status line.
type logLineMsg struct {
	Summary string
	Level   slog.Level
}

// LogHandler is a slog.Handler that shows records at or above its
// level on the TUI status line. It stands in for the stderr handler
// while the TUI owns the screen. Records before SetProgram are
// dropped.
//
// Handlers derived with WithAttrs and WithGroup share the program
// pointer with their parent.
type LogHandler struct {
	level   slog.Level
	program *atomic.Pointer[tea.Program]
	attrs   []slog.Attr
	group   string
}

// NewLogHandler returns a handler for records at or above level.
func NewLogHandler(level slog.Level) *LogHandler {
	return &LogHandler{level: level, program: &atomic.Pointer[tea.Program]{}}
}

// SetProgram starts delivery to program.
func (h *LogHandler) SetProgram(program *tea.Program) { h.program.Store(program) }

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *LogHandler) Handle(_ context.Context, record slog.Record) error {
	program := h.program.Load()
	if program == nil {
		return nil
	}
	go program.Send(logLineMsg{Summary: h.summarize(record), Level: record.Level})
	return nil
}

// summarize renders "message (key=value, ...)".
func (h *LogHandler) summarize(record slog.Record) string {
	var parts []string
	for _, attr := range h.attrs {
		parts = append(parts, attr.Key+"="+attr.Value.String())
	}
	record.Attrs(func(attr slog.Attr) bool {
		key := attr.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		parts = append(parts, key+"="+attr.Value.String())
		return true
	})
	if len(parts) == 0 {
		return record.Message
	}
	return record.Message + " (" + strings.Join(parts, ", ") + ")"
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *h
	derived.attrs = append(slices.Clone(h.attrs), attrs...)
	return &derived
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	derived := *h
	if derived.group != "" {
		name = derived.group + "." + name
	}
	derived.group = name
	return &derived
}
