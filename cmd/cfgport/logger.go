// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/monadic/cfgport/internal/transfer"
)

// logDir is relative to the working directory.
const logDir = ".cfgport/logs"

// TransferLogger logs the steps of one command to a file. A nil
// *TransferLogger discards everything.
type TransferLogger struct {
	mu        sync.Mutex
	file      *os.File
	startTime time.Time
	command   string
}

// NewTransferLogger creates .cfgport/logs/<command>-<timestamp>.log.
func NewTransferLogger(command string) (*TransferLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02-150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-%s.log", command, timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	logger := &TransferLogger{
		file:      file,
		startTime: time.Now(),
		command:   command,
	}
	logger.writeHeader()
	return logger, nil
}

func (l *TransferLogger) writeHeader() {
	l.file.WriteString(strings.Repeat("=", 80) + "\n")
	l.file.WriteString(fmt.Sprintf("cfgport: %s\n", l.command))
	l.file.WriteString(fmt.Sprintf("Started: %s\n", l.startTime.Format(time.RFC3339)))
	l.file.WriteString(strings.Repeat("=", 80) + "\n\n")
}

// Log writes a timestamped line. Downloads log from their own goroutines.
func (l *TransferLogger) Log(format string, args ...interface{}) {
	if l == nil || l.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05")
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.file.WriteString(fmt.Sprintf("[%s] %s\n", timestamp, msg))
}

// Section writes a section header
func (l *TransferLogger) Section(title string) {
	if l == nil || l.file == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.file.WriteString(fmt.Sprintf("\n--- %s ---\n", title))
}

// LogNotification mirrors a notification shown to the user.
func (l *TransferLogger) LogNotification(n transfer.Notification) {
	if l == nil || l.file == nil {
		return
	}
	if n.Title != "" {
		l.Log("notify %s: %s: %s", n.Level, n.Title, n.Message)
		return
	}
	l.Log("notify %s: %s", n.Level, n.Message)
}

// LogResult writes the command result
func (l *TransferLogger) LogResult(saved []string, err error) {
	if l == nil || l.file == nil {
		return
	}
	l.Section("RESULT")
	if err != nil {
		l.Log("ERROR: %v", err)
	}
	for _, loc := range saved {
		l.Log("Saved: %s", loc)
	}
	l.Log("Duration: %s", time.Since(l.startTime).Round(time.Millisecond))
}

// Close closes the log file and returns its path
func (l *TransferLogger) Close() string {
	if l == nil || l.file == nil {
		return ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.file.WriteString(fmt.Sprintf("\n\nCompleted: %s\n", time.Now().Format(time.RFC3339)))
	l.file.WriteString(fmt.Sprintf("Duration: %s\n", time.Since(l.startTime).Round(time.Millisecond)))

	path := l.file.Name()
	l.file.Close()
	l.file = nil
	return path
}
