// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/monadic/cfgport/internal/clierr"
	"github.com/monadic/cfgport/internal/config"
	"github.com/monadic/cfgport/pkg/portal"
)

func newAuthCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the portal access token",
		Long: `Manage the access token sent to the portal.

Tokens are kept in the OS keyring (Keychain, Windows Credential Manager,
Secret Service) with an encrypted file under ~/.cfgport/keyring as the
fallback. CFGPORT_TOKEN overrides the saved token.
`,
	}
	cmd.AddCommand(newAuthLoginCmd(opts), newAuthLogoutCmd(opts), newAuthStatusCmd(opts))
	return cmd
}

func openTokens(opts *rootOptions) (*config.Config, *portal.TokenStore, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	tokens, err := openTokenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, tokens, nil
}

// openTokenStore opens the keyring configured in cfg.
func openTokenStore(cfg *config.Config) (*portal.TokenStore, error) {
	tokens, err := portal.OpenTokenStore(cfg.Keyring.Backend, cfg.Keyring.FileDir)
	if err != nil {
		return nil, clierr.WrapWithHint(err, "set keyring.backend to file in "+config.DefaultPath()+" when no OS keyring is available")
	}
	return tokens, nil
}

func newAuthLoginCmd(opts *rootOptions) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a token for the portal",
		Long: `Save a token for the portal. Without --token it is read from stdin.

Examples:
  cfgport auth login --token 0123abcd
  echo "$TOKEN" | cfgport auth login
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, tokens, err := openTokens(opts)
			if err != nil {
				return err
			}
			if token == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Token: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return clierr.Validation("no token given")
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return clierr.Validation("no token given")
			}
			if err := tokens.Save(cfg.Portal.URL, token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved token for %s\n", cfg.Portal.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Access token")
	return cmd
}

func newAuthLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the token saved for the portal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, tokens, err := openTokens(opts)
			if err != nil {
				return err
			}
			if err := tokens.Delete(cfg.Portal.URL); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed token for %s\n", cfg.Portal.URL)
			return nil
		},
	}
}

func newAuthStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether requests carry a token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, tokens, err := openTokens(opts)
			if err != nil {
				return err
			}
			source := "environment"
			token := cfg.Portal.Token
			if token == "" {
				source = "keyring"
				if token, err = tokens.Load(cfg.Portal.URL); err != nil {
					return err
				}
			}

			client := portal.NewClient(portal.Config{BaseURL: cfg.Portal.URL, Prefix: cfg.Portal.Prefix, Token: token})
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Portal:  %s\n", client.PrefixPath())
			switch client.Mode() {
			case portal.Authenticated:
				fmt.Fprintf(out, "Mode:    %s (token from %s)\n", successColor.Sprint(client.Mode()), source)
			default:
				fmt.Fprintf(out, "Mode:    %s\n", warningColor.Sprint(client.Mode()))
				fmt.Fprintln(out, "         Run: cfgport auth login")
			}
			return nil
		},
	}
}
