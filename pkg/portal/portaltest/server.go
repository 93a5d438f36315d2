// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package portaltest runs an in-process fake portal for tests.
package portaltest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/monadic/cfgport/pkg/portal"
)

// Request is one request the fake portal received.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	// Filename and Data are set for multipart uploads.
	Filename string
	Data     []byte
}

// Server is a fake portal. Exported fields may be changed between requests.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request

	// Envs is returned by GET /envs.
	Envs []string
	// Clusters are keyed by ClusterKey(appID, env, name).
	Clusters map[string]portal.Cluster
	// Archive is served by the export endpoints.
	Archive []byte
	// Status forces a response status for "METHOD /path" (path without
	// prefix and query), e.g. "HEAD /apps/a/envs/DEV/clusters/default/export".
	Status map[string]int
	// ImportReply is the body of a successful import.
	ImportReply string
}

// ClusterKey builds the Clusters map key.
func ClusterKey(appID, env, name string) string {
	return appID + "/" + env + "/" + name
}

// New starts a fake portal serving under prefix ("" for the root) and
// closes it when the test ends.
func New(t testing.TB, prefix string) *Server {
	t.Helper()
	s := &Server{
		Envs:        []string{"DEV", "FAT"},
		Clusters:    map[string]portal.Cluster{},
		Archive:     []byte("PK\x05\x06fake-archive"),
		Status:      map[string]int{},
		ImportReply: "import finished",
	}
	s.Server = httptest.NewServer(s.router(prefix))
	t.Cleanup(s.Close)
	return s
}

// AddCluster registers a cluster for lookups.
func (s *Server) AddCluster(appID, env, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Clusters[ClusterKey(appID, env, name)] = portal.Cluster{
		ID:    int64(len(s.Clusters) + 1),
		Name:  name,
		AppID: appID,
	}
}

// SetStatus forces the response status of "METHOD path".
func (s *Server) SetStatus(method, path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status[method+" "+path] = code
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the requests with the given method and path.
func (s *Server) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) router(prefix string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record(prefix))
	r.Use(s.forcedStatus(prefix))

	routes := func(r chi.Router) {
		r.Get(portal.EnvsPath, s.listEnvs)
		r.Get(portal.ConfigsExportPath, s.export)
		r.Post(portal.ConfigsImportPath, s.importConfigs)
		r.Get("/apps/{appId}/envs/{env}/clusters/{cluster}", s.loadCluster)
		r.Head("/apps/{appId}/envs/{env}/clusters/{cluster}/export", s.appExport)
		r.Get("/apps/{appId}/envs/{env}/clusters/{cluster}/export", s.appExport)
		r.Post("/apps/{appId}/envs/{env}/clusters/{cluster}/import", s.importConfigs)
	}
	if p := strings.Trim(prefix, "/"); p != "" {
		r.Route("/"+p, routes)
	} else {
		routes(r)
	}
	return r
}

func (s *Server) record(prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rec := Request{
				Method:   req.Method,
				Path:     stripPrefix(prefix, req.URL.Path),
				RawQuery: req.URL.RawQuery,
				Header:   req.Header.Clone(),
			}
			if strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
				if f, hdr, err := req.FormFile("file"); err == nil {
					rec.Filename = hdr.Filename
					rec.Data, _ = io.ReadAll(f)
					f.Close()
				}
			}
			s.mu.Lock()
			s.requests = append(s.requests, rec)
			s.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	}
}

func (s *Server) forcedStatus(prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s.mu.Lock()
			code, ok := s.Status[req.Method+" "+stripPrefix(prefix, req.URL.Path)]
			s.mu.Unlock()
			if ok {
				writeError(w, code, fmt.Sprintf("forced status %d", code))
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func stripPrefix(prefix, path string) string {
	if p := strings.Trim(prefix, "/"); p != "" {
		return strings.TrimPrefix(path, "/"+p)
	}
	return path
}

func (s *Server) listEnvs(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	envs := s.Envs
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, envs)
}

func (s *Server) loadCluster(w http.ResponseWriter, req *http.Request) {
	key := ClusterKey(chi.URLParam(req, "appId"), chi.URLParam(req, "env"), chi.URLParam(req, "cluster"))
	s.mu.Lock()
	c, ok := s.Clusters[key]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "cluster not found for "+key)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) export(w http.ResponseWriter, req *http.Request) {
	envs := req.URL.Query().Get("envs")
	if envs == "" {
		writeError(w, http.StatusBadRequest, "envs is required")
		return
	}
	s.serveArchive(w, "export-"+strings.ReplaceAll(envs, ",", "-")+".zip")
}

func (s *Server) appExport(w http.ResponseWriter, req *http.Request) {
	key := ClusterKey(chi.URLParam(req, "appId"), chi.URLParam(req, "env"), chi.URLParam(req, "cluster"))
	s.mu.Lock()
	_, ok := s.Clusters[key]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "cluster not found for "+key)
		return
	}
	s.serveArchive(w, strings.ReplaceAll(key, "/", "+")+".zip")
}

func (s *Server) serveArchive(w http.ResponseWriter, filename string) {
	s.mu.Lock()
	archive := s.Archive
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(archive)
}

func (s *Server) importConfigs(w http.ResponseWriter, req *http.Request) {
	action := req.URL.Query().Get("conflictAction")
	if action != string(portal.ConflictIgnore) && action != string(portal.ConflictCover) {
		writeError(w, http.StatusBadRequest, "ConflictAction is incorrect.")
		return
	}
	if _, _, err := req.FormFile("file"); err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	s.mu.Lock()
	reply := s.ImportReply
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, reply)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"status":  code,
		"message": msg,
	})
}
