// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"github.com/monadic/cfgport/internal/transfer"
)

var (
	infoColor    = color.New(color.FgBlue)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	titleColor   = color.New(color.Bold)
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}

// consoleNotifier prints notifications as one colored line each.
type consoleNotifier struct {
	mu     sync.Mutex
	out    io.Writer
	logger *TransferLogger
	// counts per level, for the exit status
	counts map[transfer.Level]int
}

func newConsoleNotifier(out io.Writer, logger *TransferLogger) *consoleNotifier {
	return &consoleNotifier{out: out, logger: logger, counts: map[transfer.Level]int{}}
}

func (n *consoleNotifier) Notify(note transfer.Notification) {
	n.logger.LogNotification(note)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.counts[note.Level]++

	c, icon := levelStyle(note.Level)
	line := c.Sprint(icon)
	if note.Title != "" {
		line += " " + titleColor.Sprint(note.Title) + ":"
	}
	fmt.Fprintf(n.out, "%s %s\n", line, note.Message)
}

// Count returns how many notifications of level were shown.
func (n *consoleNotifier) Count(level transfer.Level) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counts[level]
}

func levelStyle(level transfer.Level) (*color.Color, string) {
	switch level {
	case transfer.LevelSuccess:
		return successColor, "✓"
	case transfer.LevelWarning:
		return warningColor, "!"
	case transfer.LevelError:
		return errorColor, "✗"
	default:
		return infoColor, "•"
	}
}
