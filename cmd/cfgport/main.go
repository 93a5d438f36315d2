// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Command cfgport exports and imports configuration between the
// environments and clusters of a configuration portal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monadic/cfgport/internal/clierr"
)

var (
	// BuildTag is set during build
	BuildTag = "dev"
	// BuildDate is set during build
	BuildDate = "unknown"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	url        string
	prefix     string
	locale     string
	noLog      bool
	noHistory  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "cfgport",
		Short: "Export and import portal configuration",
		Long: `cfgport - export and import portal configuration

cfgport talks to a configuration portal and moves configuration archives
between environments and clusters:

  - Export the configs of selected environments to an archive
  - Import an archive into selected environments
  - Look up a cluster and export or import only its configs
  - Browse all of this interactively with "cfgport tui"

Exported archives are saved to the configured output (a local directory
or an S3 bucket). Finished transfers are kept in a local history.

Environment Variables:
  CFGPORT_URL      Portal base URL (default: http://localhost:8070)
  CFGPORT_PREFIX   Path prefix the portal is served under
  CFGPORT_TOKEN    Access token (overrides the saved token)
  CFGPORT_LOCALE   Message language, e.g. en or zh-CN
  CFGPORT_CONFIG   Config file (default: ~/.cfgport/config.yaml)
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (default: ~/.cfgport/config.yaml)")
	pf.StringVar(&opts.url, "url", "", "Portal base URL")
	pf.StringVar(&opts.prefix, "prefix", "", "Path prefix the portal is served under")
	pf.StringVar(&opts.locale, "locale", "", "Message language (en, zh-CN)")
	pf.BoolVar(&opts.noLog, "no-log", false, "Do not write a log file")
	pf.BoolVar(&opts.noHistory, "no-history", false, "Do not record transfers in the history")

	root.AddCommand(
		newEnvsCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newClusterCmd(opts),
		newAppCmd(opts),
		newTUICmd(opts),
		newHistoryCmd(opts),
		newAuthCmd(opts),
		newVersionCmd(),
		newCompletionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, clierr.Pretty(err))
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cfgport version %s (built %s)\n", BuildTag, BuildDate)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for cfgport.

Bash:
  $ source <(cfgport completion bash)
  # Or add to ~/.bashrc:
  $ cfgport completion bash >> ~/.bashrc

Zsh:
  $ source <(cfgport completion zsh)
  # Or install to fpath:
  $ cfgport completion zsh > "${fpath[1]}/_cfgport"

Fish:
  $ cfgport completion fish | source
  # Or install:
  $ cfgport completion fish > ~/.config/fish/completions/cfgport.fish

PowerShell:
  PS> cfgport completion powershell | Out-String | Invoke-Expression
`,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
