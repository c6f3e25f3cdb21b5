// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package console turns a character LCD into a line-oriented scrolling log.
//
// Each Log call appends wrapped lines to an in-memory history and re-renders
// a window of the most recent lines onto the display. New lines appear at the
// bottom and older content scrolls up and off, teletype style, or the other
// way around with Opts.RecentFirst.
package console

import (
	"strings"
)

// Display is the character grid the console renders to. *lcd2004.Dev
// satisfies it; so does anything with a framebuffer-and-flush model.
type Display interface {
	Clear() error
	SetCursor(col, row int) error
	Write(p []byte) (int, error)
	Flush() error
	Rows() int
	Cols() int
}

// Opts holds the configuration for a Console.
type Opts struct {
	// RecentFirst renders the newest line at row 0, pushing older content
	// downward and off. The default is classic teletype order: new lines at
	// the bottom, older content scrolling upward.
	RecentFirst bool
	// NoWrap truncates lines longer than the display width instead of
	// wrapping them onto extra rows.
	NoWrap bool
	// MaxHistory caps retained lines. Values below the display height are
	// raised to it; only the last Rows lines are ever rendered again, so the
	// default keeps exactly those.
	MaxHistory int

	_ struct{}
}

// Line is one wrapped line of console output. Seq increases monotonically
// across the life of the console and survives history trimming.
type Line struct {
	Seq  uint64
	Text string
}

// Console is a scrolling text console over a fixed character grid. Like the
// display driver it is meant for a single goroutine.
type Console struct {
	disp        Display
	rows, cols  int
	recentFirst bool
	wrap        bool
	maxHistory  int

	nextSeq uint64
	lines   []Line
}

// New returns a Console rendering to disp and clears the display.
func New(disp Display, opts *Opts) (*Console, error) {
	if opts == nil {
		opts = &Opts{}
	}
	c := &Console{
		disp:        disp,
		rows:        disp.Rows(),
		cols:        disp.Cols(),
		recentFirst: opts.RecentFirst,
		wrap:        !opts.NoWrap,
		maxHistory:  opts.MaxHistory,
	}
	if c.maxHistory < c.rows {
		c.maxHistory = c.rows
	}
	if err := c.disp.Clear(); err != nil {
		return nil, err
	}
	return c, nil
}

// Log appends text to the console and re-renders the visible window.
//
// Embedded line breaks split text into independent lines. Lines longer than
// the display width are wrapped character by character onto extra rows, or
// truncated with Opts.NoWrap. Any string is acceptable, including empty (one
// blank line); Log only fails when the underlying display fails, and then
// the history still holds the logged text, so the next successful Log or
// Flush catches the screen up.
func (c *Console) Log(text string) error {
	for _, segment := range strings.Split(text, "\n") {
		if c.wrap {
			for _, chunk := range wrapLine(segment, c.cols) {
				c.append(chunk)
			}
		} else {
			if len(segment) > c.cols {
				segment = segment[:c.cols]
			}
			c.append(segment)
		}
	}
	if len(c.lines) > c.maxHistory {
		c.lines = c.lines[len(c.lines)-c.maxHistory:]
	}
	return c.render()
}

// Clear drops the history and blanks the display. Sequence numbers keep
// counting.
func (c *Console) Clear() error {
	c.lines = c.lines[:0]
	return c.disp.Clear()
}

// Lines returns the retained history, oldest first.
func (c *Console) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Console) append(text string) {
	c.lines = append(c.lines, Line{Seq: c.nextSeq, Text: text})
	c.nextSeq++
}

// wrapLine greedily splits s into chunks of at most width bytes. The empty
// string still produces one line: logging "" advances the console.
func wrapLine(s string, width int) []string {
	if len(s) <= width {
		return []string{s}
	}
	out := make([]string, 0, (len(s)+width-1)/width)
	for len(s) > width {
		out = append(out, s[:width])
		s = s[width:]
	}
	return append(out, s)
}

// render writes the visible window into the display framebuffer and flushes.
// Every row is padded to the full width so stale characters from the
// previous frame never show through.
func (c *Console) render() error {
	visible := c.lines
	if len(visible) > c.rows {
		visible = visible[len(visible)-c.rows:]
	}
	pad := make([]byte, 0, c.cols)
	for r := 0; r < c.rows; r++ {
		ix := r
		if c.recentFirst {
			ix = len(visible) - 1 - r
		}
		var text string
		if ix >= 0 && ix < len(visible) {
			text = visible[ix].Text
		}
		if len(text) > c.cols {
			text = text[:c.cols]
		}
		pad = pad[:0]
		pad = append(pad, text...)
		for len(pad) < c.cols {
			pad = append(pad, ' ')
		}
		if err := c.disp.SetCursor(0, r); err != nil {
			return err
		}
		if _, err := c.disp.Write(pad); err != nil {
			return err
		}
	}
	return c.disp.Flush()
}
