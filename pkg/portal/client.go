// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds every portal request.
const DefaultTimeout = 30 * time.Second

// Config describes how to reach a portal.
type Config struct {
	// BaseURL is the scheme and host, e.g. http://portal.example.com:8070.
	BaseURL string
	// Prefix is the deployment base path the portal is served under.
	Prefix    string
	Token     string
	Timeout   time.Duration
	UserAgent string
}

// Client is the central connection manager for the portal.
// All portal API requests should go through this client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	prefix     string
	token      string
	userAgent  string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Cluster is the portal's view of one cluster of an app.
type Cluster struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	AppID           string `json:"appId"`
	ParentClusterID int64  `json:"parentClusterId"`
	Comment         string `json:"comment,omitempty"`
}

// Download is a streamed response body. Body must be closed.
type Download struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// NewClient creates a new portal client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "cfgport"
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		prefix:    normalizePrefix(cfg.Prefix),
		token:     cfg.Token,
		userAgent: userAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// Mode returns whether requests carry credentials.
func (c *Client) Mode() Mode {
	if c.token == "" {
		return Anonymous
	}
	return Authenticated
}

// PrefixPath returns the absolute base every endpoint path is appended to.
func (c *Client) PrefixPath() string {
	return c.baseURL + c.prefix
}

// ExportConfigsURL returns the download URL of a multi-environment export.
func (c *Client) ExportConfigsURL(envs []string) string {
	return c.PrefixPath() + ConfigsExportPath + "?envs=" + JoinEnvs(envs)
}

// AppExportURL returns the download URL of a single cluster export.
func (c *Client) AppExportURL(appID, env, cluster string) string {
	return c.PrefixPath() + AppExportPath(appID, env, cluster)
}

// ListEnvironments returns the environment names known to the portal.
func (c *Client) ListEnvironments(ctx context.Context) ([]string, error) {
	var envs []string
	if err := c.getJSON(ctx, c.PrefixPath()+EnvsPath, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

// LoadCluster fetches a single cluster.
func (c *Client) LoadCluster(ctx context.Context, appID, env, cluster string) (*Cluster, error) {
	var out Cluster
	if err := c.getJSON(ctx, c.PrefixPath()+ClusterPath(appID, env, cluster), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckDownload issues a HEAD request. It succeeds when the portal would serve rawURL.
func (c *Client) CheckDownload(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ImportConfigs uploads an archive into every env in envs and returns the
// portal's response text.
func (c *Client) ImportConfigs(ctx context.Context, envs []string, action ConflictAction, filename string, data io.Reader) (string, error) {
	rawURL := c.PrefixPath() + ConfigsImportPath +
		"?envs=" + JoinEnvs(envs) +
		"&conflictAction=" + string(action)
	return c.upload(ctx, rawURL, filename, data)
}

// ImportAppConfig uploads an archive into a single cluster and returns the
// portal's response text.
func (c *Client) ImportAppConfig(ctx context.Context, appID, env, cluster string, action ConflictAction, filename string, data io.Reader) (string, error) {
	rawURL := c.PrefixPath() + AppImportPath(appID, env, cluster) +
		"?conflictAction=" + string(action)
	return c.upload(ctx, rawURL, filename, data)
}

// Download starts a GET of rawURL and hands back the streaming body.
func (c *Client) Download(ctx context.Context, rawURL string) (*Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return &Download{
		Filename:    attachmentName(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
		Body:        resp.Body,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

func (c *Client) upload(ctx context.Context, rawURL, filename string, data io.Reader) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, &buf)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(body), nil
}

// do sends req and converts non-2xx responses into *StatusError.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return nil, &StatusError{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}

// attachmentName extracts the filename of a Content-Disposition header.
func attachmentName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
