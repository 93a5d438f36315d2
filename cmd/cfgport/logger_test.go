// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/monadic/cfgport/internal/transfer"
)

func TestNewTransferLogger(t *testing.T) {
	testChdir(t, t.TempDir())

	logger, err := NewTransferLogger("test")
	if err != nil {
		t.Fatalf("NewTransferLogger failed: %v", err)
	}

	logger.Log("Test message %d", 1)
	logger.Section("TEST SECTION")
	logger.Log("Another message")

	logPath := logger.Close()
	if logPath == "" {
		t.Fatal("Expected log path, got empty string")
	}
	if !strings.HasPrefix(logPath, ".cfgport/logs/test-") {
		t.Errorf("Unexpected log path: %s", logPath)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	contentStr := string(content)

	if !strings.Contains(contentStr, "cfgport: test") {
		t.Error("Missing header in log")
	}
	if !strings.Contains(contentStr, "Test message 1") {
		t.Error("Missing 'Test message 1' in log")
	}
	if !strings.Contains(contentStr, "--- TEST SECTION ---") {
		t.Error("Missing section header in log")
	}
	if !strings.Contains(contentStr, "Completed:") {
		t.Error("Missing completion timestamp in log")
	}
}

func TestLogNotification(t *testing.T) {
	testChdir(t, t.TempDir())

	logger, err := NewTransferLogger("notify-test")
	if err != nil {
		t.Fatalf("NewTransferLogger failed: %v", err)
	}

	logger.LogNotification(transfer.Notification{Level: transfer.LevelSuccess, Message: "Export succeeded"})
	logger.LogNotification(transfer.Notification{Level: transfer.LevelError, Title: "Import failed", Message: "forced status 500"})
	logPath := logger.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	contentStr := string(content)

	if !strings.Contains(contentStr, "notify success: Export succeeded") {
		t.Error("Missing success notification")
	}
	if !strings.Contains(contentStr, "notify error: Import failed: forced status 500") {
		t.Error("Missing titled notification")
	}
}

func TestLogResult(t *testing.T) {
	testChdir(t, t.TempDir())

	logger, err := NewTransferLogger("result-test")
	if err != nil {
		t.Fatalf("NewTransferLogger failed: %v", err)
	}

	logger.LogResult([]string{"out/export-DEV.zip"}, errors.New("download: boom"))
	logPath := logger.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	contentStr := string(content)

	if !strings.Contains(contentStr, "--- RESULT ---") {
		t.Error("Missing result section")
	}
	if !strings.Contains(contentStr, "ERROR: download: boom") {
		t.Error("Missing error")
	}
	if !strings.Contains(contentStr, "Saved: out/export-DEV.zip") {
		t.Error("Missing saved location")
	}
}

func TestLogDirectoryCreation(t *testing.T) {
	testChdir(t, t.TempDir())

	logger, err := NewTransferLogger("dir-test")
	if err != nil {
		t.Fatalf("NewTransferLogger failed: %v", err)
	}
	logger.Close()

	info, err := os.Stat(".cfgport/logs")
	if err != nil {
		t.Fatalf("Log directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("Expected .cfgport/logs to be a directory")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *TransferLogger

	logger.Log("ignored")
	logger.Section("ignored")
	logger.LogNotification(transfer.Notification{Message: "ignored"})
	logger.LogResult(nil, nil)
	if path := logger.Close(); path != "" {
		t.Errorf("Expected empty path, got %q", path)
	}
}

func TestCloseTwice(t *testing.T) {
	testChdir(t, t.TempDir())

	logger, err := NewTransferLogger("twice")
	if err != nil {
		t.Fatalf("NewTransferLogger failed: %v", err)
	}
	if logger.Close() == "" {
		t.Fatal("Expected log path on first close")
	}
	if path := logger.Close(); path != "" {
		t.Errorf("Expected empty path on second close, got %q", path)
	}
	logger.Log("after close")
}
