// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package fetch turns export URLs into stored archives. A Downloader is the
// terminal stand-in for a browser navigating to a download link.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/monadic/cfgport/pkg/portal"
	"github.com/monadic/cfgport/pkg/storage"
)

// Source streams a download. *portal.Client satisfies it.
type Source interface {
	Download(ctx context.Context, rawURL string) (*portal.Download, error)
}

// Logger receives a line per download.
type Logger interface {
	Log(format string, args ...interface{})
}

// Result is one finished download.
type Result struct {
	URL      string
	Key      string
	Location string
	Err      error
}

// Downloader saves every navigated URL into a storage backend.
type Downloader struct {
	ctx    context.Context
	source Source
	store  storage.Storage
	logger Logger
	now    func() time.Time

	wg      sync.WaitGroup
	mu      sync.Mutex
	results []Result
	// claimed keys that are still being written
	claimed map[string]bool
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithLogger logs each download.
func WithLogger(l Logger) Option {
	return func(d *Downloader) { d.logger = l }
}

// WithClock replaces time.Now for fallback file names.
func WithClock(now func() time.Time) Option {
	return func(d *Downloader) { d.now = now }
}

// New creates a Downloader. ctx bounds all downloads it starts.
func New(ctx context.Context, source Source, store storage.Storage, opts ...Option) *Downloader {
	d := &Downloader{
		ctx:     ctx,
		source:  source,
		store:   store,
		now:     time.Now,
		claimed: map[string]bool{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Navigate starts downloading rawURL and returns immediately.
func (d *Downloader) Navigate(rawURL string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		res := d.fetch(rawURL)
		if d.logger != nil {
			if res.Err != nil {
				d.logger.Log("download %s failed: %v", rawURL, res.Err)
			} else {
				d.logger.Log("download %s saved to %s", rawURL, res.Location)
			}
		}
		d.mu.Lock()
		d.results = append(d.results, res)
		d.mu.Unlock()
	}()
}

// Wait blocks until every started download finished. It returns the
// results in completion order and the joined download errors.
func (d *Downloader) Wait() ([]Result, error) {
	d.wg.Wait()
	d.mu.Lock()
	defer d.mu.Unlock()
	results := append([]Result(nil), d.results...)
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.URL, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

func (d *Downloader) fetch(rawURL string) Result {
	res := Result{URL: rawURL}

	dl, err := d.source.Download(d.ctx, rawURL)
	if err != nil {
		res.Err = err
		return res
	}
	defer dl.Body.Close()

	key, err := d.claim(dl.Filename)
	if err != nil {
		res.Err = err
		return res
	}
	defer d.release(key)

	res.Key = key
	contentType := dl.ContentType
	if contentType == "" {
		contentType = "application/zip"
	}
	if err := d.store.PutObject(d.ctx, key, dl.Body, contentType, dl.Size); err != nil {
		res.Err = fmt.Errorf("store %s: %w", key, err)
		return res
	}
	res.Location = d.store.Location(key)
	return res
}

// claim picks a key that neither exists in storage nor is being written.
func (d *Downloader) claim(filename string) (string, error) {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "" || base == "." || base == "/" {
		base = fmt.Sprintf("export-%s.zip", d.now().Format("20060102-150405"))
	}
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; ; i++ {
		key := base
		if i > 0 {
			key = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		if d.claimed[key] {
			continue
		}
		exists, err := d.store.ObjectExists(d.ctx, key)
		if err != nil {
			return "", err
		}
		if !exists {
			d.claimed[key] = true
			return key, nil
		}
	}
}

func (d *Downloader) release(key string) {
	d.mu.Lock()
	delete(d.claimed, key)
	d.mu.Unlock()
}
