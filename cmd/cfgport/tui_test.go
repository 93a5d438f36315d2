// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monadic/cfgport/internal/i18n"
	"github.com/monadic/cfgport/internal/transfer"
	"github.com/monadic/cfgport/pkg/portal"
	"github.com/monadic/cfgport/pkg/portal/portaltest"
)

type tuiNavigator struct {
	mu   sync.Mutex
	urls []string
}

func (n *tuiNavigator) Navigate(rawURL string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, rawURL)
}

func (n *tuiNavigator) URLs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.urls...)
}

// immediateScheduler runs delayed notifications right away.
type immediateScheduler struct{}

func (immediateScheduler) AfterFunc(_ time.Duration, f func()) { f() }

type tuiHarness struct {
	srv *portaltest.Server
	nav *tuiNavigator
	vm  *transfer.Model
	m   tuiModel
}

func newTUIHarness(t *testing.T) *tuiHarness {
	t.Helper()
	srv := portaltest.New(t, "")
	client := portal.NewClient(portal.Config{BaseURL: srv.URL})
	nav := &tuiNavigator{}
	notes := make(chan transfer.Notification, 64)
	box := &stateBox{}
	vm := transfer.New(client, &toastNotifier{ch: notes}, i18n.New("en"), nav,
		transfer.WithRenderer(box),
		transfer.WithScheduler(immediateScheduler{}),
	)
	return &tuiHarness{
		srv: srv,
		nav: nav,
		vm:  vm,
		m:   newTUIModel(context.Background(), vm, box, notes, srv.URL),
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func waitForOutput(t *testing.T, tm *teatest.TestModel, want string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte(want))
	}, teatest.WithDuration(5*time.Second), teatest.WithCheckInterval(20*time.Millisecond))
}

func TestTUIExport(t *testing.T) {
	h := newTUIHarness(t)

	tm := teatest.NewTestModel(t, h.m, teatest.WithInitialTermSize(100, 30))
	waitForOutput(t, tm, "FAT")

	// check FAT with space, DEV with enter
	tm.Send(keyRunes("j"))
	tm.Send(keyRunes(" "))
	tm.Send(keyRunes("k"))
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	tm.Send(keyRunes("x"))
	waitForOutput(t, tm, "Export succeeded")

	tm.Send(keyRunes("q"))
	fm := tm.FinalModel(t, teatest.WithFinalTimeout(3*time.Second)).(tuiModel)

	urls := h.nav.URLs()
	require.Len(t, urls, 1)
	assert.True(t, strings.HasSuffix(urls[0], "/configs/export?envs=DEV,FAT"), urls[0])

	st := fm.state.get()
	assert.True(t, st.ExportEnvs[0].Checked)
	assert.True(t, st.ExportEnvs[1].Checked)
	assert.False(t, st.ImportEnvs[0].Checked)
}

func TestTUIExportWithoutSelection(t *testing.T) {
	h := newTUIHarness(t)

	tm := teatest.NewTestModel(t, h.m, teatest.WithInitialTermSize(100, 30))
	waitForOutput(t, tm, "FAT")
	tm.Send(keyRunes("x"))
	waitForOutput(t, tm, "Please choose at least one environment")

	tm.Send(keyRunes("q"))
	tm.FinalModel(t, teatest.WithFinalTimeout(3*time.Second))
	assert.Empty(t, h.nav.URLs())
}

func TestTUIImport(t *testing.T) {
	h := newTUIHarness(t)
	path := filepath.Join(t.TempDir(), "configs.zip")
	require.NoError(t, os.WriteFile(path, []byte("zip"), 0o644))

	tm := teatest.NewTestModel(t, h.m, teatest.WithInitialTermSize(100, 30))
	waitForOutput(t, tm, "FAT")

	tm.Send(tea.KeyMsg{Type: tea.KeyTab})
	tm.Send(keyRunes(" "))
	tm.Send(keyRunes("c"))
	tm.Send(keyRunes("f"))
	tm.Type(path)
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	tm.Send(keyRunes("x"))
	waitForOutput(t, tm, "Import succeeded")

	tm.Send(keyRunes("q"))
	fm := tm.FinalModel(t, teatest.WithFinalTimeout(3*time.Second)).(tuiModel)

	reqs := h.srv.RequestsTo("POST", "/configs/import")
	require.Len(t, reqs, 1)
	assert.Equal(t, "envs=DEV&conflictAction=cover", reqs[0].RawQuery)
	assert.Equal(t, "configs.zip", reqs[0].Filename)
	assert.Equal(t, "configs.zip", fm.state.get().ImportFile)
}

func TestTUIAppExport(t *testing.T) {
	h := newTUIHarness(t)
	h.srv.AddCluster("sample", "DEV", "default")

	tm := teatest.NewTestModel(t, h.m, teatest.WithInitialTermSize(100, 30))
	waitForOutput(t, tm, "FAT")

	tm.Send(tea.KeyMsg{Type: tea.KeyShiftTab})
	tm.Send(keyRunes("e"))
	tm.Type("sample")
	tm.Send(tea.KeyMsg{Type: tea.KeyTab})
	tm.Type("DEV")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	tm.Send(keyRunes("l"))
	waitForOutput(t, tm, "Cluster confirmed")
	tm.Send(keyRunes("x"))
	waitForOutput(t, tm, "Export succeeded")

	tm.Send(keyRunes("q"))
	fm := tm.FinalModel(t, teatest.WithFinalTimeout(3*time.Second)).(tuiModel)

	st := fm.state.get()
	assert.True(t, st.AppConfigEnabled)
	assert.Equal(t, "AppId: sample, Env: DEV, Cluster: default", st.Cluster.Info)
	assert.Equal(t, []string{h.srv.URL + "/apps/sample/envs/DEV/clusters/default/export"}, h.nav.URLs())
}

func TestTUILoadFailure(t *testing.T) {
	h := newTUIHarness(t)
	h.srv.SetStatus("GET", "/envs", 500)

	tm := teatest.NewTestModel(t, h.m, teatest.WithInitialTermSize(100, 30))
	waitForOutput(t, tm, "Could not load environments")

	tm.Send(keyRunes("q"))
	fm := tm.FinalModel(t, teatest.WithFinalTimeout(3*time.Second)).(tuiModel)
	assert.False(t, fm.loaded)
	assert.Error(t, fm.loadErr)
}

func TestTUIPaneSwitching(t *testing.T) {
	h := newTUIHarness(t)
	m := h.m
	m.loaded = true

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(tuiModel)
	assert.Equal(t, paneImport, m.pane)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(tuiModel)
	assert.Equal(t, paneApp, m.pane)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(tuiModel)
	assert.Equal(t, paneExport, m.pane)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = next.(tuiModel)
	assert.Equal(t, paneApp, m.pane)
	assert.Contains(t, m.View(), "Look the cluster up")
}

func TestTUISpaceTogglesCurrentEnv(t *testing.T) {
	h := newTUIHarness(t)
	require.NoError(t, h.vm.Load(context.Background()))
	m := h.m
	m.loaded = true

	next, _ := m.Update(keyRunes("j"))
	m = next.(tuiModel)
	next, _ = m.Update(keyRunes(" "))
	m = next.(tuiModel)

	st := h.vm.Snapshot()
	assert.False(t, st.ExportEnvs[0].Checked)
	assert.True(t, st.ExportEnvs[1].Checked)
	assert.Equal(t, paneExport, m.pane, "the toggle key does nothing else")
	assert.Equal(t, 1, m.cursor[paneExport])

	next, _ = m.Update(keyRunes(" "))
	m = next.(tuiModel)
	assert.False(t, h.vm.Snapshot().ExportEnvs[1].Checked)
}

func TestTUIEditingCapturesKeys(t *testing.T) {
	h := newTUIHarness(t)
	m := h.m
	m.loaded = true
	m.pane = paneApp

	next, _ := m.Update(keyRunes("e"))
	m = next.(tuiModel)
	require.True(t, m.editing)

	next, _ = m.Update(keyRunes("q"))
	m = next.(tuiModel)
	assert.False(t, m.quit, "q is typed while editing")
	assert.Equal(t, "q", m.appInputs[fieldApp].Value())

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(tuiModel)
	assert.False(t, m.editing)
	assert.Equal(t, transfer.ClusterTarget{}, h.vm.Snapshot().Cluster, "esc does not apply")
}

func TestTUINotesAreCapped(t *testing.T) {
	h := newTUIHarness(t)
	m := h.m
	for i := 0; i < maxNotes+3; i++ {
		next, _ := m.Update(tuiToastMsg{Level: transfer.LevelInfo, Message: "note"})
		m = next.(tuiModel)
	}
	assert.Len(t, m.notes, maxNotes)
}
