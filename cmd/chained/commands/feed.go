// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/chainedsocial/chainedsocial/cmd/chained/cli"
	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/present"
	"github.com/chainedsocial/chainedsocial/store/feed"
)

func feedCommand(g *globals) *cli.Command {
	return &cli.Command{
		Name:    "feed",
		Summary: "Read and write the shared feed",
		Subcommands: []*cli.Command{
			feedListCommand(g),
			feedPostCommand(g),
			feedLikeCommand(g),
			feedCommentCommand(g),
		},
	}
}

func feedListCommand(g *globals) *cli.Command {
	var (
		limit  int
		output cli.JSONOutput
	)
	return &cli.Command{
		Name:    "list",
		Summary: "Show the newest posts",
		Flags: func() *pflag.FlagSet {
			flagSet := g.flagSet("list")
			flagSet.IntVar(&limit, "limit", feed.PageSize, "show at most this many posts")
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

			posts := c.feed()
			if err := posts.LoadPosts(ctx); err != nil {
				return cli.Classify(err)
			}
			list := posts.View().Posts
			if limit >= 0 && len(list) > limit {
				list = list[:limit]
			}
			if done, err := g.emit(&output, list); done {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(g.out(), "No posts yet.")
				return nil
			}
			now := time.Now()
			for _, post := range list {
				writePost(g.out(), post, now)
			}
			return nil
		},
	}
}

func feedPostCommand(g *globals) *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "post",
		Summary: "Publish a post under your username",
		Usage:   "chained feed post <text>",
		Flags: func() *pflag.FlagSet {
			flagSet := g.flagSet("post")
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return cli.Validation("usage: chained feed post <text>")
			}
			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			post, err := c.feed().CreatePost(ctx, strings.Join(args, " "))
			if err != nil {
				return feedError(err)
			}
			if done, err := g.emit(&output, post); done {
				return err
			}
			fmt.Fprintf(g.out(), "Posted #%d\n", post.ID)
			return nil
		},
	}
}

func feedLikeCommand(g *globals) *cli.Command {
	return &cli.Command{
		Name:    "like",
		Summary: "Like a post",
		Usage:   "chained feed like <post-id>",
		Flags:   func() *pflag.FlagSet { return g.flagSet("like") },
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: chained feed like <post-id>")
			}
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			post, err := c.feed().LikePost(ctx, id)
			if err != nil {
				return feedError(err)
			}
			fmt.Fprintf(g.out(), "#%d now has %s likes\n", post.ID, present.Count(post.Likes))
			return nil
		},
	}
}

func feedCommentCommand(g *globals) *cli.Command {
	return &cli.Command{
		Name:    "comment",
		Summary: "Comment on a post",
		Usage:   "chained feed comment <post-id> <text>",
		Flags:   func() *pflag.FlagSet { return g.flagSet("comment") },
		Run: func(args []string) error {
			if len(args) < 2 {
				return cli.Validation("usage: chained feed comment <post-id> <text>")
			}
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			post, err := c.feed().AddComment(ctx, id, strings.Join(args[1:], " "))
			if err != nil {
				return feedError(err)
			}
			fmt.Fprintf(g.out(), "#%d now has %d comments\n", post.ID, len(post.Comments))
			return nil
		},
	}
}

func parsePostID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil {
		return 0, cli.Validation("post id must be a number, got %q", arg)
	}
	return id, nil
}

func feedError(err error) error {
	if errors.Is(err, feed.ErrNoProfile) {
		return cli.Validation("%w: chained profile set --username <name>", err)
	}
	return cli.Classify(err)
}

func writePost(w io.Writer, post actor.Post, now time.Time) {
	fmt.Fprintf(w, "\n#%d  @%s · %s\n", post.ID, post.AuthorName, present.RelativeTime(post.Timestamp, now))
	for _, line := range strings.Split(post.Content, "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintf(w, "  ♥ %s  💬 %d\n", present.Count(post.Likes), len(post.Comments))
	for _, comment := range post.Comments {
		fmt.Fprintf(w, "    @%s: %s\n", comment.AuthorName, comment.Content)
	}
}
