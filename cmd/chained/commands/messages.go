// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/chainedsocial/chainedsocial/cmd/chained/cli"
	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/attachment"
	"github.com/chainedsocial/chainedsocial/lib/identity"
	"github.com/chainedsocial/chainedsocial/lib/present"
	"github.com/chainedsocial/chainedsocial/store/messaging"
)

func messagesCommand(g *globals) *cli.Command {
	return &cli.Command{
		Name:    "messages",
		Summary: "Direct and group conversations",
		Subcommands: []*cli.Command{
			conversationsCommand(g),
			openCommand(g),
			sendCommand(g),
			editCommand(g),
			deleteCommand(g),
			newConversationCommand(g),
			unreadCommand(g),
		},
	}
}

// conversationJSON is the --json form of a conversation row.
type conversationJSON struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Group         bool     `json:"group"`
	Participants  []string `json:"participants"`
	LastMessage   string   `json:"last_message"`
	LastMessageAt int64    `json:"last_message_at"`
	Unread        uint64   `json:"unread"`
}

func describeConversation(conversation actor.Conversation, viewer identity.Principal) conversationJSON {
	return conversationJSON{
		ID:            conversation.ID,
		Title:         present.ConversationTitle(conversation, viewer),
		Group:         conversation.IsGroup,
		Participants:  conversation.ParticipantNames,
		LastMessage:   conversation.LastMessage,
		LastMessageAt: conversation.LastMessageAt,
		Unread:        present.UnreadFor(conversation, viewer),
	}
}

func conversationsCommand(g *globals) *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "list",
		Summary: "List your conversations, most recent first",
		Flags: func() *pflag.FlagSet {
			flagSet := g.flagSet("list")
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			inbox := c.messaging(0)
			if err := inbox.LoadConversations(ctx); err != nil {
				return cli.Classify(err)
			}
			viewer := c.session.Principal
			conversations := inbox.View().Conversations
			rows := make([]conversationJSON, 0, len(conversations))
			for _, conversation := range conversations {
				rows = append(rows, describeConversation(conversation, viewer))
			}
			if done, err := g.emit(&output, rows); done {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(g.out(), "No conversations yet. Start one with: chained messages new --with <username>")
				return nil
			}

			now := time.Now()
			for index, row := range rows {
				badge := present.UnreadBadge(row.Unread)
				if badge != "" {
					badge = " (" + badge + ")"
				}
				when := ""
				if row.LastMessageAt != 0 {
					when = " · " + present.RelativeTime(row.LastMessageAt, now)
				}
				fmt.Fprintf(g.out(), "%s  %s%s%s\n", row.ID, row.Title, badge, when)
				fmt.Fprintf(g.out(), "    %s\n", present.Preview(conversations[index]))
			}
			return nil
		},
	}
}

func openCommand(g *globals) *cli.Command {
	var (
		limit  int
		output cli.JSONOutput
	)
	return &cli.Command{
		Name:    "open",
		Summary: "Show a conversation's recent messages and mark it read",
		Usage:   "chained messages open <conversation-id>",
		Flags: func() *pflag.FlagSet {
			flagSet := g.flagSet("open")
			flagSet.IntVar(&limit, "limit", 0, "messages to show (default messaging.page_size)")
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: chained messages open <conversation-id>")
			}
			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			inbox := c.messaging(limit)
			conversation, err := findConversation(ctx, inbox, args[0])
			if err != nil {
				return err
			}
			if err := inbox.SelectConversation(ctx, &conversation); err != nil {
				return cli.Classify(err)
			}
			view := inbox.View()
			if done, err := g.emit(&output, view.Messages); done {
				return err
			}
			writeConversation(g.out(), conversation, view.Messages, c.session.Principal, time.Now())
			return nil
		},
	}
}

func findConversation(ctx context.Context, inbox *messaging.Store, id string) (actor.Conversation, error) {
	if err := inbox.LoadConversations(ctx); err != nil {
		return actor.Conversation{}, cli.Classify(err)
	}
	conversation, ok := inbox.Conversation(id)
	if !ok {
		return actor.Conversation{}, cli.NotFound("no conversation %q (see chained messages list)", id)
	}
	return conversation, nil
}

func writeConversation(w io.Writer, conversation actor.Conversation, messages []actor.Message, viewer identity.Principal, now time.Time) {
	fmt.Fprintf(w, "%s\n", present.ConversationTitle(conversation, viewer))
	if conversation.IsGroup {
		fmt.Fprintf(w, "  %s\n", strings.Join(conversation.ParticipantNames, ", "))
	}
	if len(messages) == 0 {
		fmt.Fprintf(w, "\n  %s\n", present.NoMessages)
		return
	}
	for _, message := range messages {
		if message.MessageType == actor.MessageSystem {
			fmt.Fprintf(w, "\n  -- %s --\n", message.Content)
			continue
		}
		sender := message.SenderName
		if message.Sender == viewer {
			sender = "you"
		}
		edited := ""
		if message.IsEdited {
			edited = " (edited)"
		}
		fmt.Fprintf(w, "\n[%s] %s · %s%s\n", message.ID, sender, present.MessageTime(message.Timestamp, now), edited)
		if message.ReplyTo != nil {
			fmt.Fprintf(w, "  ↳ reply to %s\n", *message.ReplyTo)
		}
		if message.Content != "" {
			fmt.Fprintf(w, "  %s\n", message.Content)
		}
		for _, attached := range message.Attachments {
			fmt.Fprintf(w, "  📎 %s\n", present.AttachmentLabel(attached))
		}
	}
}

func sendCommand(g *globals) *cli.Command {
	var (
		attachPaths []string
		replyTo     string
		output      cli.JSONOutput
	)
	return &cli.Command{
		Name:    "send",
		Summary: "Send a message to a conversation",
		Usage:   "chained messages send <conversation-id> [text] [--attach <file>]...",
		Flags: func() *pflag.FlagSet {
			flagSet := g.flagSet("send")
			flagSet.StringSliceVar(&attachPaths, "attach", nil, "attach a file (repeatable)")
			flagSet.StringVar(&replyTo, "reply-to", "", "id of the message being answered")
			output.AddFlag(flagSet)
			return flagSet
		},
		Examples: []cli.Example{
			{Command: `chained messages send 3 "See you at noon"`},
			{Description: "Send a photo", Command: "chained messages send 3 --attach lunch.jpg"},
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return cli.Validation("usage: chained messages send <conversation-id> [text]")
			}
			request := actor.SendMessageRequest{
				ConversationID: args[0],
				Content:        strings.Join(args[1:], " "),
				MessageType:    actor.MessageText,
			}
			if replyTo != "" {
				request.ReplyTo = &replyTo
			}
			for _, path := range attachPaths {
				attached, err := attachment.ReadFile(path)
				if err != nil {
					return cli.Validation("%w", err)
				}
				request.Attachments = append(request.Attachments, attached)
			}
			if len(request.Attachments) > 0 && strings.TrimSpace(request.Content) == "" {
				request.MessageType = attachment.MessageType(request.Attachments[0].MimeType)
			}

			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			message, err := c.messaging(0).SendMessage(ctx, request)
			if err != nil {
				return cli.Classify(err)
			}
			if done, err := g.emit(&output, message); done {
				return err
			}
			fmt.Fprintf(g.out(), "Sent message %s\n", message.ID)
			return nil
		},
	}
}

func editCommand(g *globals) *cli.Command {
	return &cli.Command{
		Name:    "edit",
		Summary: "Replace the text of one of your messages",
		Usage:   "chained messages edit <message-id> <text>",
		Flags:   func() *pflag.FlagSet { return g.flagSet("edit") },
		Run: func(args []string) error {
			if len(args) < 2 {
				return cli.Validation("usage: chained messages edit <message-id> <text>")
			}
			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			edited, err := c.messaging(0).EditMessage(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return cli.Classify(err)
			}
			fmt.Fprintf(g.out(), "Edited message %s\n", edited.ID)
			return nil
		},
	}
}

func deleteCommand(g *globals) *cli.Command {
	return &cli.Command{
		Name:    "delete",
		Summary: "Delete one of your messages",
		Usage:   "chained messages delete <message-id>",
		Flags:   func() *pflag.FlagSet { return g.flagSet("delete") },
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: chained messages delete <message-id>")
			}
			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.messaging(0).DeleteMessage(ctx, args[0]); err != nil {
				return cli.Classify(err)
			}
			fmt.Fprintf(g.out(), "Deleted message %s\n", args[0])
			return nil
		},
	}
}

func newConversationCommand(g *globals) *cli.Command {
	var (
		with    []string
		title   string
		group   bool
		message string
		output  cli.JSONOutput
	)
	return &cli.Command{
		Name:    "new",
		Summary: "Start a direct or group conversation",
		Description: `Start a conversation with one or more users. More than one
participant, or --group, makes a group conversation, which needs a
--title. Starting a direct conversation with someone you already talk
to reopens the existing one.`,
		Flags: func() *pflag.FlagSet {
			flagSet := g.flagSet("new")
			flagSet.StringSliceVar(&with, "with", nil, "usernames to include (comma-separated)")
			flagSet.StringVar(&title, "title", "", "group title")
			flagSet.BoolVar(&group, "group", false, "create a group even with one participant")
			flagSet.StringVar(&message, "message", "", "first message")
			output.AddFlag(flagSet)
			return flagSet
		},
		Examples: []cli.Example{
			{Command: "chained messages new --with bob --message hi"},
			{Command: `chained messages new --with bob,carol --title "Weekend plans"`},
		},
		Run: func(args []string) error {
			if len(with) == 0 {
				return cli.Validation("--with needs at least one username")
			}
			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			request := actor.CreateConversationRequest{IsGroup: group || len(with) > 1}
			backend := c.session.Backend()
			for _, name := range with {
				name = strings.TrimPrefix(strings.TrimSpace(name), "@")
				principal, err := backend.GetPrincipalByUsername(ctx, name)
				if err != nil {
					return cli.Classify(err)
				}
				request.Participants = append(request.Participants, principal)
				request.ParticipantNames = append(request.ParticipantNames, name)
			}
			if title != "" {
				request.Title = &title
			}
			if message != "" {
				request.InitialMessage = &message
			}

			conversation, err := c.messaging(0).CreateConversation(ctx, request)
			if err != nil {
				return cli.Classify(err)
			}
			row := describeConversation(conversation, c.session.Principal)
			if done, err := g.emit(&output, row); done {
				return err
			}
			fmt.Fprintf(g.out(), "Conversation %s with %s\n", row.ID, row.Title)
			return nil
		},
	}
}

func unreadCommand(g *globals) *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "unread",
		Summary: "Print your total unread message count",
		Flags: func() *pflag.FlagSet {
			flagSet := g.flagSet("unread")
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			inbox := c.messaging(0)
			if err := inbox.LoadUnreadCount(ctx); err != nil {
				return cli.Classify(err)
			}
			count := inbox.View().UnreadCount
			if done, err := g.emit(&output, map[string]uint64{"unread": count}); done {
				return err
			}
			fmt.Fprintln(g.out(), count)
			return nil
		},
	}
}
