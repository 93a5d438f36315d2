// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/monadic/cfgport/internal/config"
	"github.com/monadic/cfgport/internal/fetch"
	"github.com/monadic/cfgport/internal/i18n"
	"github.com/monadic/cfgport/internal/transfer"
	"github.com/monadic/cfgport/pkg/history"
	"github.com/monadic/cfgport/pkg/portal"
	"github.com/monadic/cfgport/pkg/storage"
)

// loadConfig reads the config file and applies the persistent flags.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.url != "" {
		cfg.Portal.URL = o.url
	}
	if o.prefix != "" {
		cfg.Portal.Prefix = o.prefix
	}
	if o.locale != "" {
		cfg.Locale = o.locale
	}
	return cfg, nil
}

// session wires one command run: portal client, storage, history and the
// view-model.
type session struct {
	cfg        *config.Config
	client     *portal.Client
	tr         *i18n.Translator
	store      storage.Storage
	downloader *fetch.Downloader
	history    *history.Store
	recorder   *historyRecorder
	logger     *TransferLogger
	model      *transfer.Model
	out        io.Writer
	errOut     io.Writer
}

// sessionOptions tune openSession for a command.
type sessionOptions struct {
	// notifier overrides the console notifier (the TUI shows toasts).
	notifier func(logger *TransferLogger) transfer.Notifier
	renderer transfer.Renderer
	// outputDir overrides the local output directory.
	outputDir string
}

func openSession(cmd *cobra.Command, opts *rootOptions, command string, so sessionOptions) (*session, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	if so.outputDir != "" {
		cfg.Output.Type = "local"
		cfg.Output.Local.Dir = so.outputDir
	}

	s := &session{
		cfg:    cfg,
		tr:     i18n.New(cfg.Locale),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}

	if !opts.noLog {
		s.logger, err = NewTransferLogger(command)
		if err != nil {
			fmt.Fprintf(s.errOut, "Warning: could not create log file: %v\n", err)
		}
	}

	s.client = portal.NewClient(portal.Config{
		BaseURL:   cfg.Portal.URL,
		Prefix:    cfg.Portal.Prefix,
		Token:     s.resolveToken(),
		Timeout:   cfg.Portal.Timeout,
		UserAgent: "cfgport/" + BuildTag,
	})
	s.logger.Log("portal %s (%s)", s.client.PrefixPath(), s.client.Mode())

	s.store, err = storage.New(cfg.Output)
	if err != nil {
		s.logger.Close()
		return nil, fmt.Errorf("open output: %w", err)
	}
	s.logger.Log("output: %s", s.store.Location(""))

	if cfg.History.Enabled() && !opts.noHistory {
		s.history, err = history.Open(cfg.History)
		if err != nil {
			fmt.Fprintf(s.errOut, "Warning: history disabled: %v\n", err)
			s.history = nil
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s.downloader = fetch.New(ctx, s.client, s.store, fetch.WithLogger(s.logger))

	var notifier transfer.Notifier = newConsoleNotifier(s.out, s.logger)
	if so.notifier != nil {
		notifier = so.notifier(s.logger)
	}
	modelOpts := []transfer.Option{transfer.WithLogger(s.logger)}
	if so.renderer != nil {
		modelOpts = append(modelOpts, transfer.WithRenderer(so.renderer))
	}
	if s.history != nil {
		s.recorder = &historyRecorder{store: s.history, logger: s.logger}
		modelOpts = append(modelOpts, transfer.WithRecorder(s.recorder))
	}
	s.model = transfer.New(s.client, notifier, s.tr, s.downloader, modelOpts...)
	return s, nil
}

// resolveToken prefers CFGPORT_TOKEN, then the token saved by auth login.
func (s *session) resolveToken() string {
	if s.cfg.Portal.Token != "" {
		return s.cfg.Portal.Token
	}
	tokens, err := openTokenStore(s.cfg)
	if err != nil {
		s.logger.Log("keyring unavailable: %v", err)
		return ""
	}
	token, err := tokens.Load(s.cfg.Portal.URL)
	if err != nil {
		s.logger.Log("read saved token: %v", err)
		return ""
	}
	return token
}

// Close waits for delayed notifications and downloads, reports where
// archives were saved and releases resources. It returns the download
// errors.
func (s *session) Close() error {
	s.model.Wait()
	results, err := s.downloader.Wait()

	var saved []string
	for _, r := range results {
		s.recordDownload(r)
		if r.Err == nil {
			saved = append(saved, r.Location)
			fmt.Fprintf(s.out, "Saved: %s\n", r.Location)
		}
	}
	if err != nil {
		err = fmt.Errorf("download: %w", err)
	}
	s.logger.LogResult(saved, err)

	if s.history != nil {
		s.history.Close()
	}
	if logPath := s.logger.Close(); logPath != "" {
		fmt.Fprintf(s.out, "Log: %s\n", logPath)
	}
	return err
}

// recordDownload adds the result of a finished download to the history.
func (s *session) recordDownload(r fetch.Result) {
	if s.recorder == nil {
		return
	}
	t := transfer.Transfer{
		Kind:     transfer.KindDownload,
		Filename: r.Key,
		Outcome:  transfer.OutcomeOK,
		Message:  r.Location,
	}
	if r.Err != nil {
		t.Outcome = transfer.OutcomeFailed
		if portal.IsForbidden(r.Err) {
			t.Outcome = transfer.OutcomeForbidden
		}
		t.Message = fmt.Sprintf("%s: %v", r.URL, r.Err)
	}
	s.recorder.Record(context.Background(), t)
}

// outcomeError turns a failed outcome into the command's error. The
// notification already told the user why.
func outcomeError(op string, o transfer.Outcome) error {
	if o == transfer.OutcomeOK {
		return nil
	}
	return fmt.Errorf("%s: %s", op, o)
}

// historyRecorder stores finished transfers in the history database.
type historyRecorder struct {
	store  *history.Store
	logger *TransferLogger
}

func (r *historyRecorder) Record(ctx context.Context, t transfer.Transfer) {
	rec := &history.Record{
		Kind:           string(t.Kind),
		Envs:           strings.Join(t.Envs, ","),
		AppID:          t.Cluster.AppID,
		Env:            t.Cluster.Env,
		Cluster:        t.Cluster.Name,
		ConflictAction: string(t.ConflictAction),
		Filename:       t.Filename,
		Status:         t.Outcome.String(),
		Message:        t.Message,
	}
	if err := r.store.Add(ctx, rec); err != nil {
		r.logger.Log("record history: %v", err)
	}
}

// splitEnvs parses a comma separated flag value.
func splitEnvs(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
