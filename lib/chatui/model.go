// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/attachment"
	"github.com/chainedsocial/chainedsocial/lib/clock"
	"github.com/chainedsocial/chainedsocial/lib/notify"
	"github.com/chainedsocial/chainedsocial/store"
	"github.com/chainedsocial/chainedsocial/store/auth"
	"github.com/chainedsocial/chainedsocial/store/feed"
	"github.com/chainedsocial/chainedsocial/store/messaging"
	"github.com/chainedsocial/chainedsocial/store/profile"
)

// Screen is the top-level view.
type Screen int

const (
	ScreenFeed Screen = iota
	ScreenMessages
	ScreenProfile
)

// mode says where keystrokes go.
type mode int

const (
	modeNormal mode = iota
	modeInput
	modeNewConversation
	modePrivacy
)

// inputTarget says what the single-line input is for.
type inputTarget int

const (
	inputPost inputTarget = iota
	inputComment
	inputMessage
	inputEdit
	inputAttach
	inputLookup
	inputUsername
	inputBio
)

// statusFadeDelay is how long a log line or action error stays on the
// status line.
const statusFadeDelay = 5 * time.Second

// Relay delivers notifications and background results into a running
// program. It satisfies notify.Dispatcher, so stores created before
// the program can already point their notifier at it. Anything sent
// before SetProgram is dropped.
type Relay struct {
	program atomic.Pointer[tea.Program]
}

// SetProgram starts delivery to program.
func (r *Relay) SetProgram(program *tea.Program) { r.program.Store(program) }

func (r *Relay) Notify(_ context.Context, notification notify.Notification) {
	r.send(toastMsg{notification})
}

// send never blocks: it may be called from inside Update, where a
// synchronous Send would wait on the loop it is running in.
func (r *Relay) send(msg tea.Msg) {
	if program := r.program.Load(); program != nil {
		go program.Send(msg)
	}
}

type toastMsg struct{ notify.Notification }

type toastFadeMsg struct{ id int }

type statusFadeMsg struct{ id int }

// changedMsg reports a store change; source indexes Model.signals.
type changedMsg struct{ source int }

// resultMsg is the outcome of one asynchronous intent.
type resultMsg struct {
	action string
	err    error
}

// availabilityMsg carries a debounced username check.
type availabilityMsg struct{ availability auth.Availability }

// Options wires the model to the client's stores.
type Options struct {
	Auth      *auth.Store
	Feed      *feed.Store
	Profile   *profile.Store
	Messaging *messaging.Store
	Search    UserSearcher
	Relay     *Relay

	// LogHandler, when set, is attached to the program so warnings
	// show on the status line.
	LogHandler *LogHandler

	Clock            clock.Clock
	UsernameDebounce time.Duration
	SearchDebounce   time.Duration
	SearchMinLength  int
}

// Model is the bubbletea model of the terminal client.
type Model struct {
	ctx     context.Context
	options Options
	theme   Theme
	keys    KeyMap
	signals []<-chan struct{}
	checker *auth.UsernameChecker
	search  *UserSearch

	width, height int

	screen        Screen
	postCursor    int
	convCursor    int
	messageCursor int
	inWindow      bool

	mode    mode
	input   textinput.Model
	target  inputTarget
	subject string
	postID  uint64

	form          *conversationForm
	formField     int
	privacy       actor.PrivacySettings
	privacyCursor int

	toast   *notify.Notification
	toastID int

	status      string
	statusLevel slog.Level
	statusID    int
}

// NewModel returns the model for options. ctx bounds every backend
// call the model makes.
func NewModel(ctx context.Context, options Options) Model {
	if options.Relay == nil {
		options.Relay = &Relay{}
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.SearchDebounce <= 0 {
		options.SearchDebounce = DefaultSearchDebounce
	}
	if options.UsernameDebounce <= 0 {
		options.UsernameDebounce = auth.DefaultUsernameDebounce
	}

	input := textinput.New()
	input.Prompt = "> "

	relay := options.Relay
	model := Model{
		ctx:     ctx,
		options: options,
		theme:   DefaultTheme,
		keys:    DefaultKeyMap,
		input:   input,
		signals: []<-chan struct{}{
			options.Auth.Changes(),
			options.Feed.Changes(),
			options.Profile.Changes(),
			options.Messaging.Changes(),
		},
		checker: auth.NewUsernameChecker(options.Auth, options.Clock, options.UsernameDebounce),
	}
	model.search = NewUserSearch(options.Search, options.Clock, options.SearchDebounce, options.SearchMinLength,
		func(result searchResultMsg) { relay.send(result) })
	return model
}

// Run shows the client until the user quits or ctx ends.
func Run(ctx context.Context, options Options) error {
	model := NewModel(ctx, options)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.options.Relay.SetProgram(program)
	if options.LogHandler != nil {
		options.LogHandler.SetProgram(program)
	}
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	commands := []tea.Cmd{
		m.run("load feed", m.options.Feed.LoadPosts),
		m.waitForAvailability(),
	}
	for index := range m.signals {
		commands = append(commands, m.listen(index))
	}
	if own := m.options.Auth.Profile(); own != nil {
		name := own.Name
		commands = append(commands, m.run("load profile", func(ctx context.Context) error {
			_, err := m.options.Profile.Load(ctx, name)
			return err
		}))
	}
	return tea.Batch(commands...)
}

func (m Model) listen(source int) tea.Cmd {
	signal := m.signals[source]
	return func() tea.Msg {
		<-signal
		return changedMsg{source}
	}
}

func (m Model) waitForAvailability() tea.Cmd {
	results := m.checker.Results()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case availability := <-results:
			return availabilityMsg{availability}
		case <-ctx.Done():
			return nil
		}
	}
}

// run executes f off the update loop and reports its outcome.
func (m Model) run(action string, f func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return resultMsg{action: action, err: f(ctx)}
	}
}

func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = message.Width, message.Height
		m.input.Width = max(message.Width-4, 10)

	case tea.KeyMsg:
		switch m.mode {
		case modeInput:
			return m.updateInput(message)
		case modeNewConversation:
			return m.updateNewConversation(message)
		case modePrivacy:
			return m.updatePrivacy(message)
		}
		return m.updateNormal(message)

	case changedMsg:
		return m, m.listen(message.source)

	case availabilityMsg:
		return m, m.waitForAvailability()

	case searchResultMsg:
		if m.form != nil {
			m.form.setResults(message)
			if message.Err != nil {
				return m.setStatus(fmt.Sprintf("search: %v", message.Err), slog.LevelWarn)
			}
		}

	case resultMsg:
		return m.handleResult(message)

	case conversationCreatedMsg:
		message.form.Creating = false
		if message.err != nil {
			return m.handleResult(resultMsg{action: "create conversation", err: message.err})
		}
		if m.form == message.form {
			m.mode = modeNormal
			m.form = nil
		}

	case toastMsg:
		notification := message.Notification
		if notification.Duration <= 0 {
			notification.Duration = notify.DefaultDuration
		}
		m.toast = &notification
		m.toastID++
		id := m.toastID
		return m, tea.Tick(notification.Duration, func(time.Time) tea.Msg { return toastFadeMsg{id} })

	case toastFadeMsg:
		if message.id == m.toastID {
			m.toast = nil
		}

	case logLineMsg:
		return m.setStatus(message.Summary, message.Level)

	case statusFadeMsg:
		if message.id == m.statusID {
			m.status = ""
		}
	}
	return m, nil
}

func (m Model) setStatus(text string, level slog.Level) (Model, tea.Cmd) {
	m.status = text
	m.statusLevel = level
	m.statusID++
	id := m.statusID
	return m, tea.Tick(statusFadeDelay, func(time.Time) tea.Msg { return statusFadeMsg{id} })
}

func (m Model) handleResult(result resultMsg) (tea.Model, tea.Cmd) {
	if result.err == nil || errors.Is(result.err, context.Canceled) {
		return m, nil
	}
	var validation *store.ValidationError
	if errors.As(result.err, &validation) {
		return m.setStatus(validation.Message, slog.LevelWarn)
	}
	return m.setStatus(fmt.Sprintf("%s: %v", result.action, result.err), slog.LevelError)
}

func (m Model) updateNormal(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(message, m.keys.Feed):
		m.screen = ScreenFeed
		return m, nil
	case key.Matches(message, m.keys.Messages):
		m.screen = ScreenMessages
		return m, tea.Batch(
			m.run("load conversations", m.options.Messaging.LoadConversations),
			m.run("load unread count", m.options.Messaging.LoadUnreadCount),
			m.run("load privacy settings", m.options.Messaging.LoadPrivacySettings),
		)
	case key.Matches(message, m.keys.Profile):
		m.screen = ScreenProfile
		return m, nil
	}

	switch m.screen {
	case ScreenFeed:
		return m.updateFeed(message)
	case ScreenProfile:
		return m.updateProfile(message)
	default:
		return m.updateMessages(message)
	}
}

func (m Model) updateFeed(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	posts := m.options.Feed.View().Posts
	switch {
	case key.Matches(message, m.keys.Up):
		m.postCursor = max(m.postCursor-1, 0)
	case key.Matches(message, m.keys.Down):
		m.postCursor = min(m.postCursor+1, max(len(posts)-1, 0))
	case key.Matches(message, m.keys.Refresh):
		return m, m.run("load feed", m.options.Feed.LoadPosts)
	case key.Matches(message, m.keys.Post):
		return m.startInput(inputPost, "What's on your mind?", "", feed.MaxPostLength)
	case key.Matches(message, m.keys.Like):
		if post, ok := at(posts, m.postCursor); ok {
			return m, m.run("like", func(ctx context.Context) error {
				_, err := m.options.Feed.LikePost(ctx, post.ID)
				return err
			})
		}
	case key.Matches(message, m.keys.Comment):
		if post, ok := at(posts, m.postCursor); ok {
			m.postID = post.ID
			return m.startInput(inputComment, "Add a comment...", "", feed.MaxCommentLength)
		}
	case key.Matches(message, m.keys.Open):
		if post, ok := at(posts, m.postCursor); ok {
			m.screen = ScreenProfile
			return m, m.loadProfile(post.AuthorName)
		}
	}
	return m, nil
}

func (m Model) loadProfile(username string) tea.Cmd {
	return m.run("load profile", func(ctx context.Context) error {
		_, err := m.options.Profile.Load(ctx, username)
		return err
	})
}

func (m Model) updateProfile(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	page, _, _ := m.options.Profile.Current()
	switch {
	case key.Matches(message, m.keys.Lookup):
		return m.startInput(inputLookup, "username", "", 0)
	case key.Matches(message, m.keys.Refresh):
		if page != nil {
			return m, m.loadProfile(page.Profile.Name)
		}
	case key.Matches(message, m.keys.Follow):
		if page == nil || page.Own || page.Placeholder {
			return m, nil
		}
		name, following := page.Profile.Name, page.Following
		return m, m.run("follow", func(ctx context.Context) error {
			if following {
				return m.options.Profile.Unfollow(ctx, name)
			}
			return m.options.Profile.Follow(ctx, name)
		})
	case key.Matches(message, m.keys.EditSelf):
		m.options.Auth.BeginEdit()
		form := m.options.Auth.View().Form
		return m.startInput(inputUsername, "username", form.Username, 0)
	}
	return m, nil
}

func (m Model) updateMessages(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	view := m.options.Messaging.View()
	if !m.inWindow {
		switch {
		case key.Matches(message, m.keys.Up):
			m.convCursor = max(m.convCursor-1, 0)
		case key.Matches(message, m.keys.Down):
			m.convCursor = min(m.convCursor+1, max(len(view.Conversations)-1, 0))
		case key.Matches(message, m.keys.Refresh):
			return m, m.run("load conversations", m.options.Messaging.LoadConversations)
		case key.Matches(message, m.keys.Open):
			if conversation, ok := at(view.Conversations, m.convCursor); ok {
				m.inWindow = true
				m.messageCursor = -1
				return m, m.run("open conversation", func(ctx context.Context) error {
					return m.options.Messaging.SelectConversation(ctx, &conversation)
				})
			}
		case key.Matches(message, m.keys.NewChat):
			m.mode = modeNewConversation
			m.form = &conversationForm{}
			m.formField = 0
		case key.Matches(message, m.keys.Privacy):
			m.mode = modePrivacy
			m.privacy = actor.DefaultPrivacySettings()
			if view.Privacy != nil {
				m.privacy = *view.Privacy
			}
			m.privacyCursor = 0
		case key.Matches(message, m.keys.Back):
			m.options.Messaging.DismissError()
		}
		return m, nil
	}

	viewer := m.options.Auth.View().Principal
	selected, haveSelected := at(view.Messages, m.selectedMessage(view.Messages))
	own := haveSelected && selected.Sender == viewer && selected.MessageType != actor.MessageSystem
	switch {
	case key.Matches(message, m.keys.Back):
		m.inWindow = false
		return m, m.run("close conversation", func(ctx context.Context) error {
			return m.options.Messaging.SelectConversation(ctx, nil)
		})
	case key.Matches(message, m.keys.Up):
		m.messageCursor = max(m.selectedMessage(view.Messages)-1, 0)
	case key.Matches(message, m.keys.Down):
		m.messageCursor = min(m.selectedMessage(view.Messages)+1, max(len(view.Messages)-1, 0))
	case key.Matches(message, m.keys.Refresh):
		return m, m.run("load messages", m.options.Messaging.ReloadMessages)
	case key.Matches(message, m.keys.Write):
		return m.startInput(inputMessage, "Type a message...", "", 0)
	case key.Matches(message, m.keys.Attach):
		return m.startInput(inputAttach, "path of file to attach", "", 0)
	case key.Matches(message, m.keys.Edit):
		if own {
			m.subject = selected.ID
			return m.startInput(inputEdit, "", selected.Content, 0)
		}
	case key.Matches(message, m.keys.Delete):
		if own {
			id := selected.ID
			return m, m.run("delete message", func(ctx context.Context) error {
				return m.options.Messaging.DeleteMessage(ctx, id)
			})
		}
	}
	return m, nil
}

// selectedMessage resolves the message cursor; -1 follows the newest
// message.
func (m Model) selectedMessage(messages []actor.Message) int {
	if m.messageCursor < 0 || m.messageCursor >= len(messages) {
		return len(messages) - 1
	}
	return m.messageCursor
}

func (m Model) startInput(target inputTarget, placeholder, value string, limit int) (tea.Model, tea.Cmd) {
	m.mode = modeInput
	m.target = target
	m.input.Placeholder = placeholder
	m.input.CharLimit = limit
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m Model) endInput() Model {
	m.mode = modeNormal
	m.input.Blur()
	m.input.Reset()
	return m
}

func (m Model) updateInput(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyEsc:
		if m.target == inputUsername || m.target == inputBio {
			m.checker.Cancel()
			m.options.Auth.CancelEdit()
		}
		return m.endInput(), nil
	case tea.KeyEnter:
		return m.submitInput(strings.TrimSpace(m.input.Value()))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(message)
	if m.target == inputUsername {
		value := m.input.Value()
		form := m.options.Auth.View().Form
		form.Username = value
		m.options.Auth.UpdateForm(form)
		m.checker.Input(m.ctx, value)
	}
	return m, cmd
}

func (m Model) submitInput(value string) (tea.Model, tea.Cmd) {
	target := m.target
	m = m.endInput()
	if value == "" && target != inputBio {
		return m, nil
	}

	switch target {
	case inputPost:
		return m, m.run("post", func(ctx context.Context) error {
			_, err := m.options.Feed.CreatePost(ctx, value)
			return err
		})
	case inputComment:
		postID := m.postID
		return m, m.run("comment", func(ctx context.Context) error {
			_, err := m.options.Feed.AddComment(ctx, postID, value)
			return err
		})
	case inputLookup:
		return m, m.loadProfile(value)
	case inputUsername:
		form := m.options.Auth.View().Form
		return m.startInput(inputBio, "bio", form.Bio, 0)
	case inputBio:
		form := m.options.Auth.View().Form
		form.Bio = value
		m.options.Auth.UpdateForm(form)
		return m, m.run("save profile", func(ctx context.Context) error {
			saved, err := m.options.Auth.SetProfile(ctx, form.Username, form.Bio)
			if err != nil {
				return err
			}
			m.options.Feed.SetProfile(&saved)
			_, err = m.options.Profile.Load(ctx, saved.Name)
			return err
		})
	}

	active := m.options.Messaging.View().Active
	if active == nil {
		return m, nil
	}
	conversationID := active.ID
	switch target {
	case inputMessage:
		return m, m.run("send", func(ctx context.Context) error {
			_, err := m.options.Messaging.SendMessage(ctx, actor.SendMessageRequest{
				ConversationID: conversationID,
				Content:        value,
				MessageType:    actor.MessageText,
			})
			return err
		})
	case inputAttach:
		return m, m.run("attach", func(ctx context.Context) error {
			file, err := attachment.ReadFile(value)
			if err != nil {
				return err
			}
			_, err = m.options.Messaging.SendMessage(ctx, actor.SendMessageRequest{
				ConversationID: conversationID,
				Content:        file.Name,
				MessageType:    attachment.MessageType(file.MimeType),
				Attachments:    []actor.Attachment{file},
			})
			return err
		})
	case inputEdit:
		messageID := m.subject
		return m, m.run("edit", func(ctx context.Context) error {
			_, err := m.options.Messaging.EditMessage(ctx, messageID, value)
			return err
		})
	}
	return m, nil
}

func (m Model) updateNewConversation(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	form := m.form
	switch {
	case message.Type == tea.KeyEsc:
		m.search.Cancel()
		m.mode = modeNormal
		m.form = nil
		return m, nil
	case key.Matches(message, m.keys.NextField):
		m.formField = (m.formField + 1) % 3
		if m.formField == 1 && !form.Group {
			m.formField = 2
		}
		return m, nil
	case key.Matches(message, m.keys.ToggleGrp):
		if len(form.Selected) > 1 {
			form.Group = !form.Group
		}
		return m, nil
	case message.Type == tea.KeyUp:
		form.Cursor = max(form.Cursor-1, 0)
		return m, nil
	case message.Type == tea.KeyDown:
		form.Cursor = min(form.Cursor+1, max(len(form.Results)-1, 0))
		return m, nil
	case message.Type == tea.KeyEnter:
		if m.formField == 0 && form.pick() {
			m.search.Cancel()
			return m, nil
		}
		return m.submitConversation()
	}

	switch m.formField {
	case 0:
		switch message.Type {
		case tea.KeyBackspace:
			if form.Query == "" {
				form.remove()
				return m, nil
			}
			form.Query = dropLast(form.Query)
		case tea.KeyRunes, tea.KeySpace:
			form.Query += string(message.Runes)
		default:
			return m, nil
		}
		m.search.Input(m.ctx, form.Query, form.selectedPrincipals())
	case 1:
		switch message.Type {
		case tea.KeyBackspace:
			form.Title = dropLast(form.Title)
		case tea.KeyRunes, tea.KeySpace:
			form.Title = appendLimited(form.Title, message.Runes, maxGroupTitleLength)
		}
	case 2:
		switch message.Type {
		case tea.KeyBackspace:
			form.InitialMessage = dropLast(form.InitialMessage)
		case tea.KeyRunes, tea.KeySpace:
			form.InitialMessage = appendLimited(form.InitialMessage, message.Runes, maxInitialMessageLength)
		}
	}
	return m, nil
}

func (m Model) submitConversation() (tea.Model, tea.Cmd) {
	if m.form.Creating {
		return m, nil
	}
	request, err := m.form.request()
	if errors.Is(err, errGroupRequired) {
		m.formField = 1
		return m.setStatus(err.Error(), slog.LevelInfo)
	}
	if err != nil {
		return m.setStatus(err.Error(), slog.LevelWarn)
	}

	m.form.Creating = true
	form := m.form
	return m, func() tea.Msg {
		_, err := m.options.Messaging.CreateConversation(m.ctx, request)
		return conversationCreatedMsg{form: form, err: err}
	}
}

type conversationCreatedMsg struct {
	form *conversationForm
	err  error
}

func (m Model) updatePrivacy(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	const rows = 7
	switch {
	case message.Type == tea.KeyEsc:
		m.mode = modeNormal
	case key.Matches(message, m.keys.Up):
		m.privacyCursor = max(m.privacyCursor-1, 0)
	case key.Matches(message, m.keys.Down):
		m.privacyCursor = min(m.privacyCursor+1, rows-1)
	case key.Matches(message, m.keys.TogglePref):
		switch m.privacyCursor {
		case 0, 1, 2, 3:
			m.privacy.AllowMessagesFrom = policies[m.privacyCursor]
		case 4:
			m.privacy.AllowGroupInvites = !m.privacy.AllowGroupInvites
		case 5:
			m.privacy.ShowOnlineStatus = !m.privacy.ShowOnlineStatus
		case 6:
			m.privacy.ShowReadReceipts = !m.privacy.ShowReadReceipts
		}
	case key.Matches(message, m.keys.SavePrefs):
		settings := m.privacy
		m.mode = modeNormal
		return m, m.run("save privacy settings", func(ctx context.Context) error {
			return m.options.Messaging.UpdatePrivacySettings(ctx, settings)
		})
	}
	return m, nil
}

var policies = []actor.MessagePolicy{actor.Everyone, actor.FollowersOnly, actor.ConnectionsOnly, actor.Nobody}

func at[T any](items []T, index int) (T, bool) {
	var zero T
	if index < 0 || index >= len(items) {
		return zero, false
	}
	return items[index], true
}
