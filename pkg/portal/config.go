// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package portal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Endpoint paths, relative to the portal prefix.
// This file is the single source of truth for portal URLs.
const (
	// EnvsPath lists the environments known to the portal.
	EnvsPath = "/envs"

	// ConfigsExportPath downloads an archive of every app in the given envs.
	ConfigsExportPath = "/configs/export"

	// ConfigsImportPath uploads an archive into the given envs.
	ConfigsImportPath = "/configs/import"
)

// EnvSeparator joins environment names in the envs query parameter.
const EnvSeparator = ","

// ConflictAction decides what an import does with namespaces that already
// exist at the destination.
type ConflictAction string

const (
	// ConflictIgnore keeps existing namespaces untouched.
	ConflictIgnore ConflictAction = "ignore"
	// ConflictCover overwrites existing namespaces with the archive content.
	ConflictCover ConflictAction = "cover"
)

// DefaultConflictAction is sent when the user never picked one.
const DefaultConflictAction = ConflictIgnore

// ErrInvalidConflictAction is returned for a conflict action the portal
// would reject.
var ErrInvalidConflictAction = errors.New("invalid conflict action")

// ConflictActions returns the values the portal accepts.
func ConflictActions() []ConflictAction {
	return []ConflictAction{ConflictIgnore, ConflictCover}
}

// ParseConflictAction validates a user supplied conflict action.
func ParseConflictAction(s string) (ConflictAction, error) {
	switch a := ConflictAction(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return DefaultConflictAction, nil
	case ConflictIgnore, ConflictCover:
		return a, nil
	default:
		return "", fmt.Errorf("%w %q (want %s or %s)", ErrInvalidConflictAction, s, ConflictIgnore, ConflictCover)
	}
}

// ClusterPath returns the path of a single cluster.
func ClusterPath(appID, env, cluster string) string {
	return "/apps/" + url.PathEscape(appID) +
		"/envs/" + url.PathEscape(env) +
		"/clusters/" + url.PathEscape(cluster)
}

// AppExportPath returns the export path of a single cluster.
func AppExportPath(appID, env, cluster string) string {
	return ClusterPath(appID, env, cluster) + "/export"
}

// AppImportPath returns the import path of a single cluster.
func AppImportPath(appID, env, cluster string) string {
	return ClusterPath(appID, env, cluster) + "/import"
}

// JoinEnvs renders env names for the envs query parameter.
// Names are escaped individually so the separators stay literal.
func JoinEnvs(envs []string) string {
	escaped := make([]string, len(envs))
	for i, env := range envs {
		escaped[i] = url.QueryEscape(env)
	}
	return strings.Join(escaped, EnvSeparator)
}
