// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	markdownOnce   sync.Once
	markdownParser goldmark.Markdown
)

// Messages and posts are chat-sized: tables and definition lists are
// left to render as plain paragraphs.
func parser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(
			extension.Strikethrough,
			extension.Linkify,
		))
	})
	return markdownParser
}

// RenderMarkdown renders a message body as styled terminal text
// wrapped to width. Soft line breaks reflow; fenced code is
// highlighted with chroma.
func RenderMarkdown(input string, theme Theme, width int) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	source := []byte(input)
	document := parser().Parser().Parse(text.NewReader(source))

	// Always ANSI256: the output goes to the TUI even when tests run
	// without a terminal.
	lip := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
	lip.SetColorProfile(termenv.ANSI256)

	m := &messageRenderer{source: source, theme: theme, width: width, lip: lip}
	ast.Walk(document, m.walk)
	return strings.TrimRight(m.out.String(), "\n")
}

type messageRenderer struct {
	source []byte
	theme  Theme
	width  int
	lip    *lipgloss.Renderer

	out    strings.Builder
	inline strings.Builder

	prefix      string
	prefixWidth int
	prefixes    []prefixLevel
	bullet      string

	bold, italic, strike int

	lists []listLevel

	trailing int
}

type prefixLevel struct {
	bytes, width int
}

type listLevel struct {
	ordered bool
	next    int
	tight   bool
}

func (m *messageRenderer) style() lipgloss.Style { return m.lip.NewStyle() }

func (m *messageRenderer) available() int {
	return max(m.width-m.prefixWidth, 10)
}

func (m *messageRenderer) push(prefix string, width int) {
	m.prefixes = append(m.prefixes, prefixLevel{len(prefix), width})
	m.prefix += prefix
	m.prefixWidth += width
}

func (m *messageRenderer) pop() {
	if len(m.prefixes) == 0 {
		return
	}
	top := m.prefixes[len(m.prefixes)-1]
	m.prefixes = m.prefixes[:len(m.prefixes)-1]
	m.prefix = m.prefix[:len(m.prefix)-top.bytes]
	m.prefixWidth -= top.width
}

func (m *messageRenderer) tight() bool {
	return len(m.lists) > 0 && m.lists[len(m.lists)-1].tight
}

func (m *messageRenderer) write(s string) {
	if s == "" {
		return
	}
	m.out.WriteString(s)
	trimmed := strings.TrimRight(s, "\n")
	if trimmed == "" {
		m.trailing += len(s)
	} else {
		m.trailing = len(s) - len(trimmed)
	}
}

func (m *messageRenderer) newline() {
	if m.trailing < 1 {
		m.write("\n")
	}
}

// blank separates blocks. Nothing is emitted before the first block.
func (m *messageRenderer) blank() {
	if m.out.Len() == 0 {
		return
	}
	for m.trailing < 2 {
		m.write("\n")
	}
}

// linePrefix returns the pending list bullet for the first line of an
// item, the container prefix otherwise.
func (m *messageRenderer) linePrefix() string {
	if m.bullet != "" {
		bullet := m.bullet
		m.bullet = ""
		return bullet
	}
	return m.prefix
}

func (m *messageRenderer) prefixed(content string) string {
	lines := strings.Split(content, "\n")
	for index := range lines {
		if index == 0 {
			lines[index] = m.linePrefix() + lines[index]
		} else {
			lines[index] = m.prefix + lines[index]
		}
	}
	return strings.Join(lines, "\n")
}

func (m *messageRenderer) flush() {
	content := m.inline.String()
	m.inline.Reset()
	if content == "" {
		return
	}
	m.write(m.prefixed(ansi.Wrap(content, m.available(), " ,.;-+|")))
	m.newline()
	if !m.tight() {
		m.blank()
	}
}

func (m *messageRenderer) styled(content string) string {
	style := m.style().Foreground(m.theme.NormalText)
	if m.bold > 0 {
		style = style.Bold(true)
	}
	if m.italic > 0 {
		style = style.Italic(true)
	}
	if m.strike > 0 {
		style = style.Strikethrough(true)
	}
	return style.Render(content)
}

func (m *messageRenderer) faint(content string) string {
	return m.style().Foreground(m.theme.FaintText).Render(content)
}

func (m *messageRenderer) highlight(code, language string) string {
	if language != "" {
		var buffer strings.Builder
		if err := quick.Highlight(&buffer, code, language, "terminal256", "monokai"); err == nil {
			return buffer.String()
		}
	}
	return m.faint(code)
}

func (m *messageRenderer) lines(node ast.Node) string {
	var code strings.Builder
	segments := node.Lines()
	for index := 0; index < segments.Len(); index++ {
		segment := segments.At(index)
		code.Write(segment.Value(m.source))
	}
	return code.String()
}

func (m *messageRenderer) block(rendered string) {
	m.blank()
	for _, line := range strings.Split(strings.TrimRight(rendered, "\n"), "\n") {
		m.write(m.linePrefix() + line)
		m.newline()
	}
	m.blank()
}

func (m *messageRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {
	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			m.inline.Reset()
		} else {
			m.flush()
		}

	case ast.KindHeading:
		if entering {
			m.inline.Reset()
			break
		}
		content := ansi.Strip(m.inline.String())
		m.inline.Reset()
		if content != "" {
			heading := m.style().Bold(true).Foreground(m.theme.HeaderForeground).Render(content)
			m.blank()
			m.write(m.prefixed(ansi.Wrap(heading, m.available(), " ")))
			m.newline()
			m.blank()
		}

	case ast.KindFencedCodeBlock:
		if entering {
			fenced := node.(*ast.FencedCodeBlock)
			m.block(m.highlight(m.lines(node), string(fenced.Language(m.source))))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindCodeBlock:
		if entering {
			m.block(m.faint(m.lines(node)))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindBlockquote:
		if entering {
			m.push("│ ", 2)
		} else {
			m.pop()
			m.blank()
		}

	case ast.KindList:
		if entering {
			list := node.(*ast.List)
			m.lists = append(m.lists, listLevel{ordered: list.IsOrdered(), next: list.Start, tight: list.IsTight})
		} else {
			m.lists = m.lists[:len(m.lists)-1]
			if !m.tight() {
				m.blank()
			}
		}

	case ast.KindListItem:
		if len(m.lists) == 0 {
			break
		}
		if !entering {
			m.pop()
			m.newline()
			break
		}
		level := &m.lists[len(m.lists)-1]
		bullet := "• "
		if level.ordered {
			bullet = fmt.Sprintf("%d. ", level.next)
			level.next++
		}
		width := ansi.StringWidth(bullet)
		m.bullet = m.prefix + bullet
		m.push(strings.Repeat(" ", width), width)

	case ast.KindThematicBreak:
		if entering {
			m.block(m.style().Foreground(m.theme.BorderColor).Render(strings.Repeat("─", m.available())))
		}

	case ast.KindText:
		if entering {
			textNode := node.(*ast.Text)
			m.inline.WriteString(m.styled(string(textNode.Segment.Value(m.source))))
			switch {
			case textNode.HardLineBreak():
				m.inline.WriteString("\n")
			case textNode.SoftLineBreak():
				m.inline.WriteString(" ")
			}
		}

	case ast.KindString:
		if entering {
			m.inline.WriteString(m.styled(string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		delta := 1
		if !entering {
			delta = -1
		}
		if node.(*ast.Emphasis).Level >= 2 {
			m.bold += delta
		} else {
			m.italic += delta
		}

	case extast.KindStrikethrough:
		if entering {
			m.strike++
		} else {
			m.strike--
		}

	case ast.KindCodeSpan:
		if entering {
			var code strings.Builder
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				if textNode, ok := child.(*ast.Text); ok {
					code.Write(textNode.Segment.Value(m.source))
				}
			}
			m.inline.WriteString(m.style().Foreground(m.theme.LinkForeground).Render(code.String()))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindLink:
		if entering {
			link := node.(*ast.Link)
			saved := m.inline.String()
			m.inline.Reset()
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				ast.Walk(child, m.walk)
			}
			label := m.inline.String()
			m.inline.Reset()
			m.inline.WriteString(saved + label)
			if destination := string(link.Destination); destination != "" {
				m.inline.WriteString(" " + m.faint("("+destination+")"))
			}
			return ast.WalkSkipChildren, nil
		}

	case ast.KindAutoLink:
		if entering {
			url := string(node.(*ast.AutoLink).URL(m.source))
			m.inline.WriteString(m.style().Foreground(m.theme.LinkForeground).Underline(true).Render(url))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindImage:
		if entering {
			m.inline.WriteString(m.faint("[image: " + string(node.(*ast.Image).Destination) + "]"))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindRawHTML, ast.KindHTMLBlock:
		// Shown as source text.
		if entering {
			var raw strings.Builder
			if rawHTML, ok := node.(*ast.RawHTML); ok {
				for index := 0; index < rawHTML.Segments.Len(); index++ {
					segment := rawHTML.Segments.At(index)
					raw.Write(segment.Value(m.source))
				}
				m.inline.WriteString(m.faint(raw.String()))
			} else {
				m.block(m.faint(m.lines(node)))
			}
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}
