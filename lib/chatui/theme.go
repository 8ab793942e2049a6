// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/chainedsocial/chainedsocial/lib/notify"
)

// Theme is the palette of the terminal client. All colors are ANSI
// 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	LinkForeground   lipgloss.Color

	// Own messages and system notices in a conversation.
	OwnMessage    lipgloss.Color
	SystemMessage lipgloss.Color

	// Unread badge.
	BadgeForeground lipgloss.Color
	BadgeBackground lipgloss.Color

	// Toast and log line colors by severity.
	Success lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color
	Info    lipgloss.Color
}

// KindColor returns the toast color for a notification kind.
func (theme Theme) KindColor(kind notify.Kind) lipgloss.Color {
	switch kind {
	case notify.Success:
		return theme.Success
	case notify.Error:
		return theme.Error
	case notify.Warning:
		return theme.Warning
	case notify.Info:
		return theme.Info
	default:
		return theme.NormalText
	}
}

// DefaultTheme suits a dark 256-color terminal.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	LinkForeground:   lipgloss.Color("75"),

	OwnMessage:    lipgloss.Color("117"), // light blue
	SystemMessage: lipgloss.Color("244"),

	BadgeForeground: lipgloss.Color("255"),
	BadgeBackground: lipgloss.Color("27"),

	Success: lipgloss.Color("114"), // green
	Error:   lipgloss.Color("196"), // red
	Warning: lipgloss.Color("220"), // amber
	Info:    lipgloss.Color("75"),  // blue
}
