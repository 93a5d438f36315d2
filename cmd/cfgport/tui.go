// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/monadic/cfgport/internal/transfer"
	"github.com/monadic/cfgport/pkg/portal"
)

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive export and import",
		Long: `Interactive export and import.

Panes (switch with tab):
  Export      check environments, x exports them
  Import      check environments, f picks the archive, c cycles the
              conflict action, x imports
  App config  e edits app/env/cluster/file, l looks the cluster up,
              x exports it, u imports into it

space or enter toggles the environment under the cursor, q quits.
Archives are saved to the configured output when the program exits.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			notes := make(chan transfer.Notification, 64)
			box := &stateBox{}
			s, err := openSession(cmd, opts, "tui", sessionOptions{
				notifier: func(l *TransferLogger) transfer.Notifier {
					return &toastNotifier{ch: notes, logger: l}
				},
				renderer: box,
			})
			if err != nil {
				return err
			}

			m := newTUIModel(cmd.Context(), s.model, box, notes, s.client.PrefixPath())
			_, runErr := tea.NewProgram(m, tea.WithAltScreen()).Run()
			closeErr := s.Close()
			if runErr != nil {
				return runErr
			}
			return closeErr
		},
	}
}

// toastNotifier hands notifications to the running program. Nothing
// blocks when the program stopped reading.
type toastNotifier struct {
	ch     chan transfer.Notification
	logger *TransferLogger
}

func (n *toastNotifier) Notify(note transfer.Notification) {
	n.logger.LogNotification(note)
	select {
	case n.ch <- note:
	default:
	}
}

// stateBox keeps the last rendered view-model state.
type stateBox struct {
	mu    sync.Mutex
	state transfer.State
}

func (b *stateBox) Render(s transfer.State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

func (b *stateBox) get() transfer.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// keyEvent is the key press that toggled an environment. Key messages
// only reach the focused pane, so there is nothing to stop.
type keyEvent struct{}

func (keyEvent) StopPropagation() {}

type tuiKeyMap struct {
	Quit      key.Binding
	NextPane  key.Binding
	PrevPane  key.Binding
	Up        key.Binding
	Down      key.Binding
	Switch    key.Binding
	Toggle    key.Binding
	Conflict  key.Binding
	File      key.Binding
	Edit      key.Binding
	Reload    key.Binding
	Run       key.Binding
	Lookup    key.Binding
	AppImport key.Binding

	// while editing
	Apply     key.Binding
	Cancel    key.Binding
	NextField key.Binding
	PrevField key.Binding
}

func defaultTUIKeyMap() tuiKeyMap {
	return tuiKeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
		NextPane: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "pane"),
		),
		PrevPane: key.NewBinding(
			key.WithKeys("shift+tab"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Switch: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "toggle"),
		),
		Conflict: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "conflict"),
		),
		File: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "file"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Run: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "run"),
		),
		Lookup: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "lookup"),
		),
		AppImport: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "import"),
		),
		Apply: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
		),
	}
}

type pane int

const (
	paneExport pane = iota
	paneImport
	paneApp
	paneCount
)

func (p pane) String() string {
	switch p {
	case paneExport:
		return "Export"
	case paneImport:
		return "Import"
	default:
		return "App config"
	}
}

// App config fields
const (
	fieldApp = iota
	fieldEnv
	fieldCluster
	fieldFile
	fieldCount
)

// maxNotes is how many notifications stay on screen.
const maxNotes = 4

type tuiLoadedMsg struct{ err error }

type tuiToastMsg transfer.Notification

type tuiOpDoneMsg struct {
	op      string
	outcome transfer.Outcome
}

// TUI styles
var (
	tuiTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			MarginBottom(1)

	tuiTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	tuiTabActiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true).
				Underline(true).
				Padding(0, 1)

	tuiPaneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	tuiSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true)

	tuiCheckboxOn = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	tuiCheckboxOff = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	tuiLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Width(10)

	tuiDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	tuiHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	tuiInfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	tuiSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	tuiWarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	tuiErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// tuiModel is the bubbletea front end of a transfer.Model.
type tuiModel struct {
	ctx    context.Context
	vm     *transfer.Model
	state  *stateBox
	toasts <-chan transfer.Notification
	portal string

	keymap  tuiKeyMap
	pane    pane
	cursor  [paneCount]int
	editing bool
	focus   int

	fileInput textinput.Model
	appInputs []textinput.Model
	spinner   spinner.Model

	loaded  bool
	loadErr error
	busy    string
	notes   []transfer.Notification

	width  int
	height int
	quit   bool
}

func newTUIModel(ctx context.Context, vm *transfer.Model, state *stateBox, toasts <-chan transfer.Notification, portalPath string) tuiModel {
	if ctx == nil {
		ctx = context.Background()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	newInput := func(placeholder string) textinput.Model {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = placeholder
		ti.CharLimit = 256
		ti.Width = 40
		return ti
	}

	appInputs := make([]textinput.Model, fieldCount)
	appInputs[fieldApp] = newInput("app id")
	appInputs[fieldEnv] = newInput("environment")
	appInputs[fieldCluster] = newInput("cluster")
	appInputs[fieldCluster].SetValue("default")
	appInputs[fieldFile] = newInput("archive to import")

	return tuiModel{
		ctx:       ctx,
		vm:        vm,
		state:     state,
		toasts:    toasts,
		portal:    portalPath,
		keymap:    defaultTUIKeyMap(),
		fileInput: newInput("archive to import"),
		appInputs: appInputs,
		spinner:   s,
		width:     80,
		height:    24,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(), waitForToast(m.toasts))
}

func (m tuiModel) load() tea.Cmd {
	return func() tea.Msg {
		return tuiLoadedMsg{err: m.vm.Load(m.ctx)}
	}
}

func waitForToast(ch <-chan transfer.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return tuiToastMsg(<-ch)
	}
}

// run executes a view-model operation off the update loop.
func (m tuiModel) run(op string, f func(ctx context.Context) transfer.Outcome) (tea.Model, tea.Cmd) {
	m.busy = op
	ctx := m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return tuiOpDoneMsg{op: op, outcome: f(ctx)}
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tuiLoadedMsg:
		m.loaded = msg.err == nil
		m.loadErr = msg.err
		m.busy = ""
		return m, nil

	case tuiToastMsg:
		m.addNote(transfer.Notification(msg))
		return m, waitForToast(m.toasts)

	case tuiOpDoneMsg:
		m.busy = ""
		return m, nil

	case spinner.TickMsg:
		if m.loaded && m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quit = true
			return m, tea.Quit
		}
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m tuiModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.Quit) {
		m.quit = true
		return m, tea.Quit
	}
	if m.busy != "" {
		return m, nil
	}
	if !m.loaded {
		if key.Matches(msg, m.keymap.Reload) {
			m.busy = "load"
			m.loadErr = nil
			return m, tea.Batch(m.spinner.Tick, m.load())
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.NextPane):
		m.pane = (m.pane + 1) % paneCount
	case key.Matches(msg, m.keymap.PrevPane):
		m.pane = (m.pane + paneCount - 1) % paneCount
	case key.Matches(msg, m.keymap.Up):
		if m.cursor[m.pane] > 0 {
			m.cursor[m.pane]--
		}
	case key.Matches(msg, m.keymap.Down):
		if m.cursor[m.pane] < len(m.envs())-1 {
			m.cursor[m.pane]++
		}
	case key.Matches(msg, m.keymap.Switch):
		if env := m.currentEnv(); env != nil {
			m.vm.SwitchChecked(env, keyEvent{})
		}
	case key.Matches(msg, m.keymap.Toggle):
		if m.pane == paneApp {
			return m.startEditing(fieldApp)
		}
		if env := m.currentEnv(); env != nil {
			m.vm.ToggleEnvCheckedStatus(env)
		}
	case key.Matches(msg, m.keymap.Conflict):
		m.cycleConflictAction()
	case key.Matches(msg, m.keymap.File):
		if m.pane == paneImport {
			return m.startEditing(0)
		}
		if m.pane == paneApp {
			return m.startEditing(fieldFile)
		}
	case key.Matches(msg, m.keymap.Edit):
		if m.pane == paneApp {
			return m.startEditing(fieldApp)
		}
	case key.Matches(msg, m.keymap.Reload):
		m.busy = "load"
		return m, tea.Batch(m.spinner.Tick, m.load())
	case key.Matches(msg, m.keymap.Run):
		switch m.pane {
		case paneExport:
			return m.run("export", func(context.Context) transfer.Outcome { return m.vm.Export() })
		case paneImport:
			return m.run("import", m.vm.Import)
		case paneApp:
			return m.run("app export", m.vm.ExportAppConfig)
		}
	case key.Matches(msg, m.keymap.Lookup):
		if m.pane == paneApp {
			return m.run("lookup", m.vm.GetClusterInfo)
		}
	case key.Matches(msg, m.keymap.AppImport):
		if m.pane == paneApp {
			return m.run("app import", m.vm.ImportAppConfig)
		}
	}
	return m, nil
}

func (m tuiModel) startEditing(field int) (tea.Model, tea.Cmd) {
	m.editing = true
	if m.pane == paneImport {
		return m, m.fileInput.Focus()
	}
	m.focus = field
	return m, m.appInputs[field].Focus()
}

func (m tuiModel) stopEditing() tuiModel {
	m.editing = false
	m.fileInput.Blur()
	for i := range m.appInputs {
		m.appInputs[i].Blur()
	}
	return m
}

func (m tuiModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		return m.stopEditing(), nil
	case key.Matches(msg, m.keymap.Apply):
		m = m.stopEditing()
		m.applyInputs()
		return m, nil
	case key.Matches(msg, m.keymap.NextField):
		if m.pane == paneApp {
			m.appInputs[m.focus].Blur()
			m.focus = (m.focus + 1) % fieldCount
			return m, m.appInputs[m.focus].Focus()
		}
	case key.Matches(msg, m.keymap.PrevField):
		if m.pane == paneApp {
			m.appInputs[m.focus].Blur()
			m.focus = (m.focus + fieldCount - 1) % fieldCount
			return m, m.appInputs[m.focus].Focus()
		}
	}

	var cmd tea.Cmd
	if m.pane == paneImport {
		m.fileInput, cmd = m.fileInput.Update(msg)
	} else {
		m.appInputs[m.focus], cmd = m.appInputs[m.focus].Update(msg)
	}
	return m, cmd
}

// applyInputs hands the edited values to the view-model.
func (m *tuiModel) applyInputs() {
	if m.pane == paneImport {
		if u, ok := m.readFile(m.fileInput.Value()); ok {
			m.vm.ChooseImportFile(u)
		}
		return
	}

	m.vm.SetCluster(
		strings.TrimSpace(m.appInputs[fieldApp].Value()),
		strings.TrimSpace(m.appInputs[fieldEnv].Value()),
		strings.TrimSpace(m.appInputs[fieldCluster].Value()),
	)
	if u, ok := m.readFile(m.appInputs[fieldFile].Value()); ok {
		m.vm.ChooseAppImportFile(u)
	}
}

// readFile loads path. An empty path clears the choice.
func (m *tuiModel) readFile(path string) (*transfer.Upload, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, true
	}
	u, err := transfer.ReadUpload(path)
	if err != nil {
		m.addNote(transfer.Notification{Level: transfer.LevelError, Message: err.Error()})
		return nil, false
	}
	return u, true
}

func (m *tuiModel) cycleConflictAction() {
	actions := portal.ConflictActions()
	current := m.state.get().ConflictAction
	next := actions[0]
	for i, a := range actions {
		if a == current {
			next = actions[(i+1)%len(actions)]
		}
	}
	m.vm.SetConflictAction(next)
}

func (m *tuiModel) addNote(n transfer.Notification) {
	m.notes = append(m.notes, n)
	if len(m.notes) > maxNotes {
		m.notes = m.notes[len(m.notes)-maxNotes:]
	}
}

// envs returns the live selections of the current pane.
func (m tuiModel) envs() []*transfer.EnvironmentSelection {
	switch m.pane {
	case paneExport:
		return m.vm.ExportEnvs()
	case paneImport:
		return m.vm.ImportEnvs()
	default:
		return nil
	}
}

func (m tuiModel) currentEnv() *transfer.EnvironmentSelection {
	envs := m.envs()
	c := m.cursor[m.pane]
	if c < 0 || c >= len(envs) {
		return nil
	}
	return envs[c]
}

func (m tuiModel) View() string {
	if m.quit {
		return ""
	}
	var b strings.Builder

	b.WriteString(tuiTitleStyle.Render("cfgport " + m.portal))
	b.WriteString("\n")

	switch {
	case m.loadErr != nil:
		b.WriteString(tuiErrorStyle.Render("Could not load environments"))
		b.WriteString("\n")
	case !m.loaded:
		b.WriteString(m.spinner.View() + " Loading environments...\n")
	default:
		b.WriteString(m.viewTabs())
		b.WriteString("\n")
		b.WriteString(tuiPaneStyle.Width(m.paneWidth()).Render(m.viewPane()))
		b.WriteString("\n")
	}

	if m.busy != "" && m.loaded {
		b.WriteString(m.spinner.View() + " " + m.busy + "...\n")
	}
	for _, n := range m.notes {
		b.WriteString(viewNote(n))
		b.WriteString("\n")
	}
	b.WriteString(tuiHelpStyle.Render(m.help()))
	return b.String()
}

func (m tuiModel) paneWidth() int {
	if m.width > 4 {
		return m.width - 4
	}
	return 60
}

func (m tuiModel) viewTabs() string {
	var tabs []string
	for p := pane(0); p < paneCount; p++ {
		if p == m.pane {
			tabs = append(tabs, tuiTabActiveStyle.Render(p.String()))
		} else {
			tabs = append(tabs, tuiTabStyle.Render(p.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m tuiModel) viewPane() string {
	st := m.state.get()
	switch m.pane {
	case paneExport:
		return m.viewEnvList(st.ExportEnvs)
	case paneImport:
		var b strings.Builder
		b.WriteString(m.viewEnvList(st.ImportEnvs))
		b.WriteString("\n")
		b.WriteString(tuiLabelStyle.Render("Conflict") + string(st.ConflictAction) + "\n")
		b.WriteString(tuiLabelStyle.Render("File"))
		if m.editing {
			b.WriteString(m.fileInput.View())
		} else {
			b.WriteString(orNone(st.ImportFile))
		}
		return b.String()
	default:
		return m.viewApp(st)
	}
}

func (m tuiModel) viewEnvList(envs []transfer.EnvironmentSelection) string {
	if len(envs) == 0 {
		return tuiDimStyle.Render("No environments")
	}
	var b strings.Builder
	b.WriteString("Environments\n")
	for i, env := range envs {
		cursor := "  "
		name := env.Name
		if i == m.cursor[m.pane] {
			cursor = "> "
			name = tuiSelectedStyle.Render(name)
		}
		box := tuiCheckboxOff.Render("[ ]")
		if env.Checked {
			box = tuiCheckboxOn.Render("[x]")
		}
		fmt.Fprintf(&b, "%s%s %s\n", cursor, box, name)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m tuiModel) viewApp(st transfer.State) string {
	labels := [fieldCount]string{"App ID", "Env", "Cluster", "File"}
	var b strings.Builder
	for i, in := range m.appInputs {
		marker := "  "
		if m.editing && i == m.focus {
			marker = "> "
		}
		b.WriteString(marker + tuiLabelStyle.Render(labels[i]) + in.View() + "\n")
	}
	b.WriteString(tuiLabelStyle.Render("Conflict") + string(st.ConflictAction) + "\n")
	if st.Cluster.Info != "" {
		b.WriteString(tuiInfoStyle.Render(st.Cluster.Info) + "\n")
	}
	if st.AppConfigEnabled {
		b.WriteString(tuiSuccessStyle.Render("Cluster confirmed: x export, u import"))
	} else {
		b.WriteString(tuiDimStyle.Render("Look the cluster up (l) to enable export and import"))
	}
	return b.String()
}

func (m tuiModel) help() string {
	switch {
	case m.editing && m.pane == paneApp:
		return "tab: next field  enter: apply  esc: cancel"
	case m.editing:
		return "enter: apply  esc: cancel"
	case !m.loaded:
		return "r: retry  q: quit"
	}
	switch m.pane {
	case paneExport:
		return "tab: pane  j/k: move  space: toggle  x: export  r: reload  q: quit"
	case paneImport:
		return "tab: pane  j/k: move  space: toggle  f: file  c: conflict  x: import  q: quit"
	default:
		return "tab: pane  e: edit  f: file  l: lookup  x: export  u: import  c: conflict  q: quit"
	}
}

func viewNote(n transfer.Notification) string {
	var style lipgloss.Style
	icon := "•"
	switch n.Level {
	case transfer.LevelSuccess:
		style, icon = tuiSuccessStyle, "✓"
	case transfer.LevelWarning:
		style, icon = tuiWarningStyle, "!"
	case transfer.LevelError:
		style, icon = tuiErrorStyle, "✗"
	default:
		style = tuiInfoStyle
	}
	text := n.Message
	if n.Title != "" {
		text = n.Title + ": " + n.Message
	}
	return style.Render(icon + " " + text)
}

func orNone(s string) string {
	if s == "" {
		return tuiDimStyle.Render("(none)")
	}
	return s
}
