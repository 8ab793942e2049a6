// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings of the normal (non-input) mode.
type KeyMap struct {
	Quit     key.Binding
	Feed     key.Binding
	Messages key.Binding
	Profile  key.Binding
	Up       key.Binding
	Down     key.Binding
	Open     key.Binding
	Back     key.Binding
	Refresh  key.Binding

	Post    key.Binding
	Like    key.Binding
	Comment key.Binding

	Follow     key.Binding
	Lookup     key.Binding
	EditSelf   key.Binding
	Write      key.Binding
	Attach     key.Binding
	Edit       key.Binding
	Delete     key.Binding
	NewChat    key.Binding
	Privacy    key.Binding
	ToggleGrp  key.Binding
	NextField  key.Binding
	SavePrefs  key.Binding
	TogglePref key.Binding
}

// DefaultKeyMap uses vi-style movement.
var DefaultKeyMap = KeyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Feed:     key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "feed")),
	Messages: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "messages")),
	Profile:  key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "profile")),
	Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
	Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
	Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),

	Post:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new post")),
	Like:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "like")),
	Comment: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "comment")),

	Follow:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow/unfollow")),
	Lookup:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "find user")),
	EditSelf:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit profile")),
	Write:      key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "write")),
	Attach:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "attach file")),
	Edit:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	Delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	NewChat:    key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "new conversation")),
	Privacy:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "privacy")),
	ToggleGrp:  key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("C-g", "group chat")),
	NextField:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
	SavePrefs:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("C-s", "save")),
	TogglePref: key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "toggle")),
}
