// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/identity"
	"github.com/chainedsocial/chainedsocial/lib/present"
	"github.com/chainedsocial/chainedsocial/store/auth"
)

// conversationListWidth is the width of the conversation column when
// a conversation is open beside it.
const conversationListWidth = 32

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	var body string
	switch m.mode {
	case modeNewConversation:
		body = m.viewNewConversation(width)
	case modePrivacy:
		body = m.viewPrivacy()
	default:
		switch m.screen {
		case ScreenFeed:
			body = m.viewFeed(width)
		case ScreenProfile:
			body = m.viewProfile(width)
		default:
			body = m.viewMessages(width)
		}
	}

	footer := m.viewFooter(width)
	if m.height > 0 {
		bodyHeight := m.height - 1 - lipgloss.Height(footer)
		body = clip(body, max(bodyHeight, 1))
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.viewHeader(width), body, footer)
}

func (m Model) viewHeader(width int) string {
	tab := func(label string, screen Screen) string {
		style := lipgloss.NewStyle().Padding(0, 1).Foreground(m.theme.FaintText)
		if m.screen == screen {
			style = style.Bold(true).Foreground(m.theme.SelectedForeground).Background(m.theme.SelectedBackground)
		}
		return style.Render(label)
	}

	messages := "2 Messages"
	if unread := m.options.Messaging.View().UnreadCount; unread > 0 {
		messages += " " + present.UnreadBadge(unread)
	}
	tabs := tab("1 Feed", ScreenFeed) + tab(messages, ScreenMessages) + tab("3 Profile", ScreenProfile)

	who := "signed out"
	if view := m.options.Auth.View(); view.Profile != nil {
		who = "@" + view.Profile.Name
	} else if view.State == auth.Authenticated {
		who = view.Principal.String()
	}
	right := lipgloss.NewStyle().Foreground(m.theme.FaintText).Render(who)
	gap := max(width-lipgloss.Width(tabs)-lipgloss.Width(right), 1)
	return tabs + strings.Repeat(" ", gap) + right
}

func (m Model) viewFeed(width int) string {
	view := m.options.Feed.View()
	now := m.options.Clock.Now()
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)

	var lines []string
	if view.Error != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(m.theme.Error).Render(view.Error))
	}
	if view.Loading && len(view.Posts) == 0 {
		lines = append(lines, faint.Render("Loading posts..."))
	}
	if !view.Loading && len(view.Posts) == 0 && view.Error == "" {
		lines = append(lines, faint.Render("No posts yet. Press n to write the first one."))
	}

	for index, post := range view.Posts {
		selected := index == m.postCursor
		lines = append(lines, m.renderPost(post, selected, width, now)...)
		if selected {
			for _, comment := range post.Comments {
				lines = append(lines, faint.Render(fmt.Sprintf("    %s · %s", comment.AuthorName, present.RelativeTime(comment.Timestamp, now))))
				lines = append(lines, "    "+comment.Content)
			}
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderPost(post actor.Post, selected bool, width int, now time.Time) []string {
	author := lipgloss.NewStyle().Bold(true).Render(post.AuthorName)
	meta := lipgloss.NewStyle().Foreground(m.theme.FaintText).Render(" · " + present.RelativeTime(post.Timestamp, now))
	marker := "  "
	if selected {
		marker = lipgloss.NewStyle().Foreground(m.theme.LinkForeground).Render("▌ ")
	}

	lines := []string{marker + author + meta}
	for _, line := range strings.Split(RenderMarkdown(post.Content, m.theme, width-4), "\n") {
		lines = append(lines, marker+line)
	}
	counts := fmt.Sprintf("♥ %s  ✎ %s", present.Count(post.Likes), present.Count(uint64(len(post.Comments))))
	lines = append(lines, marker+lipgloss.NewStyle().Foreground(m.theme.FaintText).Render(counts))
	return lines
}

func (m Model) viewProfile(width int) string {
	page, loading, errText := m.options.Profile.Current()
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)

	var lines []string
	if errText != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(m.theme.Error).Render(errText))
	}
	if page == nil {
		if loading {
			return strings.Join(append(lines, faint.Render("Loading profile...")), "\n")
		}
		return strings.Join(append(lines, faint.Render("Press / to look up a user.")), "\n")
	}

	profile := page.Profile
	avatar := lipgloss.NewStyle().Bold(true).Padding(0, 1).
		Foreground(m.theme.BadgeForeground).Background(m.theme.BadgeBackground).
		Render(present.Initials(profile.Name))
	title := avatar + " " + lipgloss.NewStyle().Bold(true).Render(profile.Name)
	switch {
	case page.Own:
		title += faint.Render("  (you)")
	case page.Following:
		title += faint.Render("  following")
	}
	lines = append(lines, title, faint.Render(profile.ID), "", profile.Bio, "")

	if m.mode == modeInput && (m.target == inputUsername || m.target == inputBio) {
		lines = append(lines, m.viewAvailability(), "")
	}

	lines = append(lines, lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Posts (%d)", len(page.Posts))))
	now := m.options.Clock.Now()
	for _, post := range page.Posts {
		lines = append(lines, m.renderPost(post, false, width, now)...)
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewAvailability() string {
	view := m.options.Auth.View()
	switch {
	case m.checker.Pending():
		return lipgloss.NewStyle().Foreground(m.theme.FaintText).Render("checking...")
	case view.Availability == auth.Available:
		return lipgloss.NewStyle().Foreground(m.theme.Success).Render("✓ username available")
	case view.Availability == auth.Taken:
		return lipgloss.NewStyle().Foreground(m.theme.Error).Render("✗ username taken")
	case view.Availability == auth.Current:
		return lipgloss.NewStyle().Foreground(m.theme.FaintText).Render("your current username")
	}
	return ""
}

func (m Model) viewMessages(width int) string {
	view := m.options.Messaging.View()
	viewer := m.options.Auth.View().Principal
	now := m.options.Clock.Now()
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)

	listWidth := width
	if m.inWindow {
		listWidth = min(conversationListWidth, width/3)
	}

	var list []string
	if view.Loading && len(view.Conversations) == 0 {
		list = append(list, faint.Render("Loading conversations..."))
	}
	if !view.Loading && len(view.Conversations) == 0 {
		list = append(list, faint.Render("No conversations. Press N to start one."))
	}
	for index, conversation := range view.Conversations {
		list = append(list, m.renderConversation(conversation, viewer, index == m.convCursor, listWidth, now)...)
	}
	column := strings.Join(list, "\n")

	var banner string
	if view.Error != "" {
		banner = lipgloss.NewStyle().Foreground(m.theme.Error).Render(view.Error) + "\n"
	}
	if !m.inWindow || view.Active == nil {
		return banner + column
	}

	windowWidth := max(width-listWidth-3, 20)
	window := m.viewWindow(*view.Active, view.Messages, viewer, windowWidth, now)
	separator := lipgloss.NewStyle().Foreground(m.theme.BorderColor).
		Render(strings.Repeat(" │ \n", max(lipgloss.Height(column), lipgloss.Height(window))))
	return banner + lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(listWidth).Render(column), separator, window)
}

func (m Model) renderConversation(conversation actor.Conversation, viewer identity.Principal, selected bool, width int, now time.Time) []string {
	title := present.ConversationTitle(conversation, viewer)
	when := present.RelativeTime(conversation.LastMessageAt, now)
	if conversation.LastMessageAt == 0 {
		when = ""
	}
	badge := ""
	if unread := present.UnreadFor(conversation, viewer); unread > 0 {
		badge = " " + lipgloss.NewStyle().Padding(0, 1).
			Foreground(m.theme.BadgeForeground).Background(m.theme.BadgeBackground).
			Render(present.UnreadBadge(unread))
	}

	nameStyle := lipgloss.NewStyle().Foreground(m.theme.NormalText)
	if selected {
		nameStyle = nameStyle.Bold(true).Foreground(m.theme.SelectedForeground).Background(m.theme.SelectedBackground)
	}
	head := ansi.Truncate(title, max(width-lipgloss.Width(when)-lipgloss.Width(badge)-1, 4), "…")
	gap := max(width-lipgloss.Width(head)-lipgloss.Width(when)-lipgloss.Width(badge), 1)
	preview := ansi.Truncate(present.Preview(conversation), max(width-2, 4), "…")
	return []string{
		nameStyle.Render(head) + strings.Repeat(" ", gap) + lipgloss.NewStyle().Foreground(m.theme.FaintText).Render(when) + badge,
		"  " + lipgloss.NewStyle().Foreground(m.theme.FaintText).Render(preview),
	}
}

func (m Model) viewWindow(conversation actor.Conversation, messages []actor.Message, viewer identity.Principal, width int, now time.Time) string {
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)
	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(m.theme.HeaderForeground).
		Render(present.ConversationTitle(conversation, viewer))}
	if conversation.IsGroup {
		lines = append(lines, faint.Render(strings.Join(conversation.ParticipantNames, ", ")))
	}
	lines = append(lines, "")

	if len(messages) == 0 {
		lines = append(lines, faint.Render(present.NoMessages))
	}
	selected := m.selectedMessage(messages)
	for index, message := range messages {
		if message.MessageType == actor.MessageSystem {
			lines = append(lines, lipgloss.PlaceHorizontal(width, lipgloss.Center,
				lipgloss.NewStyle().Italic(true).Foreground(m.theme.SystemMessage).Render(message.Content)))
			continue
		}

		nameStyle := lipgloss.NewStyle().Bold(true)
		if message.Sender == viewer {
			nameStyle = nameStyle.Foreground(m.theme.OwnMessage)
		}
		head := nameStyle.Render(message.SenderName) + faint.Render(" · "+present.MessageTime(message.Timestamp, now))
		if message.IsEdited {
			head += faint.Render(" (edited)")
		}
		marker := "  "
		if index == selected {
			marker = lipgloss.NewStyle().Foreground(m.theme.LinkForeground).Render("▌ ")
		}
		lines = append(lines, marker+head)
		for _, line := range strings.Split(RenderMarkdown(message.Content, m.theme, width-2), "\n") {
			lines = append(lines, marker+line)
		}
		for _, file := range message.Attachments {
			lines = append(lines, marker+lipgloss.NewStyle().Foreground(m.theme.LinkForeground).Render("📎 "+present.AttachmentLabel(file)))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewNewConversation(width int) string {
	form := m.form
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)
	label := func(field int, text string) string {
		style := lipgloss.NewStyle().Bold(true)
		if m.formField == field {
			style = style.Foreground(m.theme.LinkForeground)
		}
		return style.Render(text)
	}

	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(m.theme.HeaderForeground).Render("New conversation"), ""}

	var chips []string
	for _, user := range form.Selected {
		chips = append(chips, lipgloss.NewStyle().Padding(0, 1).Background(m.theme.SelectedBackground).Render(user.Username))
	}
	lines = append(lines, label(0, "To: ")+strings.Join(chips, " ")+" "+form.Query+cursorFor(m.formField == 0))
	for index, user := range form.Results {
		line := "  " + user.Username + faint.Render(" "+user.Principal.String())
		if index == form.Cursor {
			line = lipgloss.NewStyle().Foreground(m.theme.SelectedForeground).Background(m.theme.SelectedBackground).Render(ansi.Strip(line))
		}
		lines = append(lines, ansi.Truncate(line, width, "…"))
	}
	if len([]rune(form.Query)) > 0 && len(form.Results) == 0 {
		lines = append(lines, faint.Render("  no matching users"))
	}

	group := "[ ]"
	if form.Group {
		group = "[x]"
	}
	lines = append(lines, "", faint.Render(group+" group chat (ctrl+g)"))
	if form.Group {
		lines = append(lines, label(1, "Title: ")+form.Title+cursorFor(m.formField == 1))
	}
	lines = append(lines, label(2, "Message: ")+form.InitialMessage+cursorFor(m.formField == 2))
	if form.Creating {
		lines = append(lines, "", faint.Render("Creating..."))
	}
	return strings.Join(lines, "\n")
}

func cursorFor(focused bool) string {
	if focused {
		return "█"
	}
	return ""
}

func (m Model) viewPrivacy() string {
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)
	row := func(index int, text string) string {
		if index == m.privacyCursor {
			return lipgloss.NewStyle().Foreground(m.theme.SelectedForeground).Background(m.theme.SelectedBackground).Render("› " + text)
		}
		return "  " + text
	}
	check := func(on bool) string {
		if on {
			return "[x]"
		}
		return "[ ]"
	}

	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(m.theme.HeaderForeground).Render("Privacy settings"), "",
		lipgloss.NewStyle().Bold(true).Render("Who can message you"),
	}
	for index, policy := range policies {
		radio := "( )"
		if m.privacy.AllowMessagesFrom == policy {
			radio = "(•)"
		}
		lines = append(lines, row(index, radio+" "+present.PrivacyLabel(policy))+faint.Render("  "+present.PrivacyDescription(policy)))
	}
	lines = append(lines, "",
		row(4, check(m.privacy.AllowGroupInvites)+" Allow group invites"),
		row(5, check(m.privacy.ShowOnlineStatus)+" Show online status"),
		row(6, check(m.privacy.ShowReadReceipts)+" Show read receipts"),
	)
	return strings.Join(lines, "\n")
}

func (m Model) viewFooter(width int) string {
	var lines []string
	if m.toast != nil {
		lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(m.theme.KindColor(m.toast.Kind)).Render(m.toast.Message))
	}
	if m.status != "" {
		color := m.theme.Info
		switch {
		case m.statusLevel >= slog.LevelError:
			color = m.theme.Error
		case m.statusLevel >= slog.LevelWarn:
			color = m.theme.Warning
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(color).Render(ansi.Truncate(m.status, width, "…")))
	}
	if m.mode == modeInput {
		lines = append(lines, m.input.View())
	}
	lines = append(lines, lipgloss.NewStyle().Foreground(m.theme.HelpText).Render(ansi.Truncate(m.help(), width, "…")))
	return strings.Join(lines, "\n")
}

// help lists the bindings that act in the current state.
func (m Model) help() string {
	var bindings []key.Binding
	switch {
	case m.mode == modeInput:
		return "enter submit · esc cancel"
	case m.mode == modeNewConversation:
		return "tab next field · ↑/↓ choose · enter add/create · ctrl+g group · esc cancel"
	case m.mode == modePrivacy:
		bindings = []key.Binding{m.keys.Up, m.keys.Down, m.keys.TogglePref, m.keys.SavePrefs, m.keys.Back}
	case m.screen == ScreenFeed:
		bindings = []key.Binding{m.keys.Post, m.keys.Like, m.keys.Comment, m.keys.Open, m.keys.Refresh}
	case m.screen == ScreenProfile:
		bindings = []key.Binding{m.keys.Lookup, m.keys.Follow, m.keys.EditSelf, m.keys.Refresh}
	case m.inWindow:
		bindings = []key.Binding{m.keys.Write, m.keys.Attach, m.keys.Edit, m.keys.Delete, m.keys.Back}
	default:
		bindings = []key.Binding{m.keys.Open, m.keys.NewChat, m.keys.Privacy, m.keys.Refresh}
	}
	bindings = append(bindings, m.keys.Quit)

	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return strings.Join(parts, " · ")
}

// clip keeps the first height lines of s.
func clip(s string, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= height {
		return s
	}
	return strings.Join(lines[:height], "\n")
}
