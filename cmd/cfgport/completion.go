// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/monadic/cfgport/pkg/portal"
)

// Environment completion cache (avoid repeated portal calls during tab-complete)
var (
	cachedEnvs     []string
	envCacheExpiry time.Time
	envCacheMu     sync.Mutex
)

// completeEnvs completes environment names from the portal.
func completeEnvs(opts *rootOptions) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		envCacheMu.Lock()
		defer envCacheMu.Unlock()

		// Comma separated lists complete their last element
		done, current := "", toComplete
		if i := strings.LastIndex(toComplete, ","); i >= 0 {
			done, current = toComplete[:i+1], toComplete[i+1:]
		}

		if time.Now().After(envCacheExpiry) || len(cachedEnvs) == 0 {
			cfg, err := opts.loadConfig()
			if err != nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			client := portal.NewClient(portal.Config{
				BaseURL: cfg.Portal.URL,
				Prefix:  cfg.Portal.Prefix,
				Token:   cfg.Portal.Token,
			})

			// Quick timeout for completion - don't block shell
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			envs, err := client.ListEnvironments(ctx)
			if err != nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			cachedEnvs = envs
			envCacheExpiry = time.Now().Add(3 * time.Second)
		}

		var out []string
		for _, env := range filterPrefix(cachedEnvs, current) {
			out = append(out, done+env)
		}
		return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
	}
}

// completeConflictActions completes --conflict.
func completeConflictActions(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var actions []string
	for _, a := range portal.ConflictActions() {
		actions = append(actions, string(a))
	}
	return filterPrefix(actions, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeHistoryKinds completes history --kind.
func completeHistoryKinds(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return filterPrefix(historyKinds, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// filterPrefix returns items that start with prefix (case-insensitive)
func filterPrefix(items []string, prefix string) []string {
	if prefix == "" {
		return items
	}
	prefix = strings.ToLower(prefix)
	var result []string
	for _, item := range items {
		if strings.HasPrefix(strings.ToLower(item), prefix) {
			result = append(result, item)
		}
	}
	return result
}
