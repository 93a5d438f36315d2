// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package transfer is the export/import view-model. It keeps the selection
// state of the UI and turns user actions into portal requests, reporting
// every outcome as a notification.
package transfer

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/monadic/cfgport/internal/clierr"
	"github.com/monadic/cfgport/internal/i18n"
	"github.com/monadic/cfgport/pkg/portal"
)

// ExportNoticeDelay is how long a per-app export waits after navigating
// before it reports success.
const ExportNoticeDelay = time.Second

// Model is the export/import view-model. It is safe for concurrent use;
// network calls run without holding the lock, so the last response to
// arrive wins.
type Model struct {
	backend   Backend
	notifier  Notifier
	tr        Translator
	nav       Navigator
	scheduler Scheduler
	renderer  Renderer
	recorder  Recorder
	logger    Logger

	mu               sync.Mutex
	ready            bool
	exportEnvs       []*EnvironmentSelection
	importEnvs       []*EnvironmentSelection
	conflictAction   portal.ConflictAction
	cluster          ClusterTarget
	appConfigEnabled bool
	importFile       *Upload
	appImportFile    *Upload

	pending sync.WaitGroup
}

// Option customizes a Model.
type Option func(*Model)

// WithScheduler replaces time.AfterFunc for delayed notifications.
func WithScheduler(s Scheduler) Option {
	return func(m *Model) { m.scheduler = s }
}

// WithRenderer sets the hook called after every state change.
func WithRenderer(r Renderer) Option {
	return func(m *Model) { m.renderer = r }
}

// WithRecorder records every operation that reached the portal.
func WithRecorder(r Recorder) Option {
	return func(m *Model) { m.recorder = r }
}

// WithLogger logs each operation step.
func WithLogger(l Logger) Option {
	return func(m *Model) { m.logger = l }
}

// New creates a view-model. Call Load before anything else.
func New(backend Backend, notifier Notifier, tr Translator, nav Navigator, opts ...Option) *Model {
	m := &Model{
		backend:        backend,
		notifier:       notifier,
		tr:             tr,
		nav:            nav,
		scheduler:      timeScheduler{},
		conflictAction: portal.DefaultConflictAction,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load fetches the environment list and resets both selections.
func (m *Model) Load(ctx context.Context) error {
	envs, err := m.backend.ListEnvironments(ctx)
	if err != nil {
		m.log("load environments failed: %v", err)
		m.notify(LevelError, m.failureText(err), m.tr.T(i18n.LoadEnvsFailed))
		m.record(ctx, Transfer{Kind: KindEnvironmentLoad, Outcome: outcomeOf(err), Message: err.Error()})
		return fmt.Errorf("load environments: %w", err)
	}

	exportEnvs := make([]*EnvironmentSelection, 0, len(envs))
	importEnvs := make([]*EnvironmentSelection, 0, len(envs))
	for _, env := range envs {
		exportEnvs = append(exportEnvs, &EnvironmentSelection{Name: env})
		importEnvs = append(importEnvs, &EnvironmentSelection{Name: env})
	}

	m.mu.Lock()
	m.exportEnvs = exportEnvs
	m.importEnvs = importEnvs
	m.ready = true
	m.mu.Unlock()

	m.log("loaded %d environments: %v", len(envs), envs)
	m.render()
	return nil
}

// SwitchChecked flips env and stops ev from reaching parent handlers.
func (m *Model) SwitchChecked(env *EnvironmentSelection, ev Event) {
	m.toggle(env)
	if ev != nil {
		ev.StopPropagation()
	}
}

// ToggleEnvCheckedStatus flips env.
func (m *Model) ToggleEnvCheckedStatus(env *EnvironmentSelection) {
	m.toggle(env)
}

func (m *Model) toggle(env *EnvironmentSelection) {
	if env == nil {
		return
	}
	m.mu.Lock()
	env.Checked = !env.Checked
	m.mu.Unlock()
	m.render()
}

// ExportEnvs returns the live export selections, in portal order.
func (m *Model) ExportEnvs() []*EnvironmentSelection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*EnvironmentSelection(nil), m.exportEnvs...)
}

// ImportEnvs returns the live import selections, in portal order.
func (m *Model) ImportEnvs() []*EnvironmentSelection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*EnvironmentSelection(nil), m.importEnvs...)
}

// SelectExportEnvs checks exactly the named export environments.
func (m *Model) SelectExportEnvs(names ...string) error {
	return m.selectEnvs(func() []*EnvironmentSelection { return m.exportEnvs }, names)
}

// SelectImportEnvs checks exactly the named import environments.
func (m *Model) SelectImportEnvs(names ...string) error {
	return m.selectEnvs(func() []*EnvironmentSelection { return m.importEnvs }, names)
}

func (m *Model) selectEnvs(list func() []*EnvironmentSelection, names []string) error {
	m.mu.Lock()
	if !m.ready {
		m.mu.Unlock()
		return ErrNotLoaded
	}
	envs := list()
	byName := make(map[string]*EnvironmentSelection, len(envs))
	for _, env := range envs {
		byName[env.Name] = env
	}
	for _, name := range names {
		if _, ok := byName[name]; !ok {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrUnknownEnvironment, name)
		}
	}
	want := make(map[string]bool, len(names))
	for _, name := range names {
		want[name] = true
	}
	for _, env := range envs {
		env.Checked = want[env.Name]
	}
	m.mu.Unlock()
	m.render()
	return nil
}

// SetConflictAction changes the action sent with both import kinds.
func (m *Model) SetConflictAction(action portal.ConflictAction) error {
	parsed, err := portal.ParseConflictAction(string(action))
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.conflictAction = parsed
	m.mu.Unlock()
	m.render()
	return nil
}

// SetCluster describes the per-app target. Changing any field drops the
// confirmation, so the target must be looked up again.
func (m *Model) SetCluster(appID, env, name string) {
	m.mu.Lock()
	if appID != m.cluster.AppID || env != m.cluster.Env || name != m.cluster.Name {
		m.cluster = ClusterTarget{AppID: appID, Env: env, Name: name}
		m.appConfigEnabled = false
	}
	m.mu.Unlock()
	m.render()
}

// ChooseImportFile sets the archive for multi-environment import. nil clears it.
func (m *Model) ChooseImportFile(u *Upload) {
	m.mu.Lock()
	m.importFile = u
	m.mu.Unlock()
	m.render()
}

// ChooseAppImportFile sets the archive for per-app import. nil clears it.
func (m *Model) ChooseAppImportFile(u *Upload) {
	m.mu.Lock()
	m.appImportFile = u
	m.mu.Unlock()
	m.render()
}

// Snapshot returns a copy of the current state.
func (m *Model) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := State{
		Ready:            m.ready,
		ExportEnvs:       copyEnvs(m.exportEnvs),
		ImportEnvs:       copyEnvs(m.importEnvs),
		ConflictAction:   m.conflictAction,
		Cluster:          m.cluster,
		AppConfigEnabled: m.appConfigEnabled,
	}
	if m.importFile != nil {
		s.ImportFile = m.importFile.Filename
	}
	if m.appImportFile != nil {
		s.AppImportFile = m.appImportFile.Filename
	}
	return s
}

// Wait blocks until every delayed notification has been delivered.
func (m *Model) Wait() {
	m.pending.Wait()
}

func copyEnvs(envs []*EnvironmentSelection) []EnvironmentSelection {
	out := make([]EnvironmentSelection, len(envs))
	for i, env := range envs {
		out[i] = *env
	}
	return out
}

func checkedNames(envs []*EnvironmentSelection) []string {
	var names []string
	for _, env := range envs {
		if env.Checked {
			names = append(names, env.Name)
		}
	}
	return names
}

func (m *Model) notify(level Level, msg, title string) {
	if m.notifier == nil {
		return
	}
	m.notifier.Notify(Notification{Level: level, Message: msg, Title: title})
}

// failureText is the portal's message for err, or the localized generic
// failure when the response had no body. The raw error goes to the log and
// the ledger only.
func (m *Model) failureText(err error) string {
	if msg := clierr.BackendMessage(err); msg != "" {
		return msg
	}
	return m.tr.T(i18n.RequestFailed)
}

func (m *Model) warn(key string) {
	m.notify(LevelWarning, m.tr.T(key), "")
}

func (m *Model) render() {
	if m.renderer == nil {
		return
	}
	m.renderer.Render(m.Snapshot())
}

func (m *Model) record(ctx context.Context, t Transfer) {
	if m.recorder == nil {
		return
	}
	m.recorder.Record(ctx, t)
}

func (m *Model) log(format string, args ...interface{}) {
	if m.logger == nil {
		return
	}
	m.logger.Log(format, args...)
}

// outcomeOf maps a portal error to an Outcome.
func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case portal.IsForbidden(err):
		return OutcomeForbidden
	default:
		return OutcomeFailed
	}
}

func uploadReader(u *Upload) *bytes.Reader {
	return bytes.NewReader(u.Data)
}
