// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/monadic/cfgport/pkg/portal"
)

// Backend is the portal contract the model drives.
type Backend interface {
	ListEnvironments(ctx context.Context) ([]string, error)
	LoadCluster(ctx context.Context, appID, env, cluster string) (*portal.Cluster, error)
	ExportConfigsURL(envs []string) string
	AppExportURL(appID, env, cluster string) string
	CheckDownload(ctx context.Context, rawURL string) error
	ImportConfigs(ctx context.Context, envs []string, action portal.ConflictAction, filename string, data io.Reader) (string, error)
	ImportAppConfig(ctx context.Context, appID, env, cluster string, action portal.ConflictAction, filename string, data io.Reader) (string, error)
}

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is a transient message for the user. Title is optional.
type Notification struct {
	Level   Level
	Message string
	Title   string
}

// Notifier shows notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Translator resolves localized message keys.
type Translator interface {
	T(key string, args ...any) string
}

// Navigator opens a download URL. It does not report the outcome.
type Navigator interface {
	Navigate(rawURL string)
}

// Scheduler runs f after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// Renderer receives the state after every mutation.
type Renderer interface {
	Render(s State)
}

// Recorder keeps a ledger of finished transfers.
type Recorder interface {
	Record(ctx context.Context, t Transfer)
}

// Logger receives a line per operation step.
type Logger interface {
	Log(format string, args ...interface{})
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// Event is the UI event that triggered a toggle.
type Event interface {
	StopPropagation()
}

// EnvironmentSelection is one checkbox of an environment list.
type EnvironmentSelection struct {
	Name    string
	Checked bool
}

// ClusterTarget is the single cluster per-app operations act on. Info is
// only set by a successful lookup and marks the target as confirmed.
type ClusterTarget struct {
	AppID string
	Env   string
	Name  string
	Info  string
}

// complete reports whether the identifying fields are all set.
func (c ClusterTarget) complete() bool {
	return c.AppID != "" && c.Env != "" && c.Name != ""
}

// Confirmed reports whether per-app operations may run on c.
func (c ClusterTarget) Confirmed() bool {
	return c.complete() && c.Info != ""
}

// Upload is a file chosen for import.
type Upload struct {
	Filename string
	Data     []byte
}

// ReadUpload reads path into an Upload.
func ReadUpload(path string) (*Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &Upload{Filename: filepath.Base(path), Data: data}, nil
}

// Outcome summarizes how an operation ended.
type Outcome int

const (
	// OutcomeOK means the request (or navigation) went out and succeeded.
	OutcomeOK Outcome = iota
	// OutcomeInvalid means local validation stopped the operation.
	OutcomeInvalid
	// OutcomeForbidden means the portal answered 403.
	OutcomeForbidden
	// OutcomeFailed means the request failed for any other reason.
	OutcomeFailed
	// OutcomeStarted is recorded for downloads handed to the Navigator.
	// Operations return OutcomeOK for them; the download result is
	// recorded separately under KindDownload.
	OutcomeStarted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeFailed:
		return "failed"
	case OutcomeStarted:
		return "started"
	default:
		return "unknown"
	}
}

// Kind names a transfer operation in the ledger.
type Kind string

const (
	KindExport          Kind = "export"
	KindImport          Kind = "import"
	KindAppExport       Kind = "app-export"
	KindAppImport       Kind = "app-import"
	KindClusterLookup   Kind = "cluster"
	KindEnvironmentLoad Kind = "envs"
	KindDownload        Kind = "download"
)

// Transfer is a finished operation as the ledger sees it.
type Transfer struct {
	Kind           Kind
	Envs           []string
	Cluster        ClusterTarget
	ConflictAction portal.ConflictAction
	Filename       string
	Outcome        Outcome
	Message        string
}

// State is a copy of everything the UI renders.
type State struct {
	// Ready is false until the environment list loaded.
	Ready            bool
	ExportEnvs       []EnvironmentSelection
	ImportEnvs       []EnvironmentSelection
	ConflictAction   portal.ConflictAction
	Cluster          ClusterTarget
	AppConfigEnabled bool
	ImportFile       string
	AppImportFile    string
}

var (
	// ErrUnknownEnvironment is returned when selecting a name the portal did not list.
	ErrUnknownEnvironment = errors.New("unknown environment")
	// ErrNotLoaded is returned when selecting before the environment list loaded.
	ErrNotLoaded = errors.New("environments not loaded")
)
