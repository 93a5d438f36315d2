// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/spf13/cobra"

	"github.com/monadic/cfgport/internal/clierr"
	"github.com/monadic/cfgport/internal/transfer"
	"github.com/monadic/cfgport/pkg/portal"
)

func newEnvsCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "envs",
		Short: "List the environments the portal knows",
		Long: `List the environments the portal knows.

Examples:
  cfgport envs
  cfgport envs --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				opts.noLog = true
			}
			s, err := openSession(cmd, opts, "envs", sessionOptions{})
			if err != nil {
				return err
			}
			if err := s.model.Load(cmd.Context()); err != nil {
				s.Close()
				return err
			}

			var names []string
			for _, env := range s.model.Snapshot().ExportEnvs {
				names = append(names, env.Name)
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(names); err != nil {
					return err
				}
			} else {
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
			}
			return s.Close()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		envs      []string
		outputDir string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the configs of one or more environments",
		Long: `Export the configs of the selected environments into one archive.

The archive is saved to the configured output under the name the portal
chooses. Existing files are never overwritten.

Examples:
  cfgport export --envs DEV
  cfgport export --envs DEV,FAT --out ./archives
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts, "export", sessionOptions{outputDir: outputDir})
			if err != nil {
				return err
			}
			if err := s.model.Load(cmd.Context()); err != nil {
				s.Close()
				return err
			}
			if err := s.model.SelectExportEnvs(splitEnvs(envs)...); err != nil {
				s.Close()
				return clierr.Validation("%v", err)
			}

			outcome := s.model.Export()
			if err := s.Close(); err != nil {
				return err
			}
			return outcomeError("export", outcome)
		},
	}
	cmd.Flags().StringSliceVar(&envs, "envs", nil, "Environments to export (comma separated)")
	cmd.Flags().StringVar(&outputDir, "out", "", "Save into this local directory instead of the configured output")
	cmd.RegisterFlagCompletionFunc("envs", completeEnvs(opts))
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		envs      []string
		file      string
		fromStore string
		conflict  string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an archive into one or more environments",
		Long: `Import a config archive into the selected environments.

--conflict decides what happens to items that already exist:
  ignore  keep the existing item (default)
  cover   overwrite it with the archived one

The archive is read from --file, or with --from-store from the configured
output (for example an S3 bucket an export was saved to).

Examples:
  cfgport import --envs FAT --file export-DEV.zip
  cfgport import --envs FAT,UAT --file export-DEV.zip --conflict cover
  cfgport import --envs PRO --from-store export-DEV.zip
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := portal.ParseConflictAction(conflict)
			if err != nil {
				return clierr.Validation("%v", err)
			}
			if file != "" && fromStore != "" {
				return clierr.Validation("--file and --from-store are mutually exclusive")
			}

			s, err := openSession(cmd, opts, "import", sessionOptions{})
			if err != nil {
				return err
			}
			if err := s.model.Load(cmd.Context()); err != nil {
				s.Close()
				return err
			}
			if err := s.model.SelectImportEnvs(splitEnvs(envs)...); err != nil {
				s.Close()
				return clierr.Validation("%v", err)
			}
			if err := s.model.SetConflictAction(action); err != nil {
				s.Close()
				return clierr.Validation("%v", err)
			}

			upload, err := s.readUpload(cmd, file, fromStore)
			if err != nil {
				s.Close()
				return err
			}
			if upload != nil {
				s.model.ChooseImportFile(upload)
			}

			outcome := s.model.Import(cmd.Context())
			if err := s.Close(); err != nil {
				return err
			}
			return outcomeError("import", outcome)
		},
	}
	cmd.Flags().StringSliceVar(&envs, "envs", nil, "Environments to import into (comma separated)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Archive to upload")
	cmd.Flags().StringVar(&fromStore, "from-store", "", "Archive key in the configured output")
	cmd.Flags().StringVar(&conflict, "conflict", string(portal.DefaultConflictAction), "Conflict action: ignore or cover")
	cmd.RegisterFlagCompletionFunc("envs", completeEnvs(opts))
	cmd.RegisterFlagCompletionFunc("conflict", completeConflictActions)
	return cmd
}

// readUpload reads an archive from disk or from the configured output.
// It returns nil when neither source is given.
func (s *session) readUpload(cmd *cobra.Command, file, key string) (*transfer.Upload, error) {
	switch {
	case file != "":
		return transfer.ReadUpload(file)
	case key != "":
		rc, err := s.store.GetObject(cmd.Context(), key)
		if err != nil {
			return nil, clierr.WrapWithHint(fmt.Errorf("read %s: %w", s.store.Location(key), err),
				"saved archives are listed by: cfgport history --kind download")
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.store.Location(key), err)
		}
		return &transfer.Upload{Filename: path.Base(key), Data: data}, nil
	default:
		return nil, nil
	}
}

// clusterFlags are the flags naming one cluster.
type clusterFlags struct {
	appID   string
	env     string
	cluster string
}

func (f *clusterFlags) register(cmd *cobra.Command, opts *rootOptions) {
	cmd.Flags().StringVar(&f.appID, "app", "", "App ID")
	cmd.Flags().StringVar(&f.env, "env", "", "Environment")
	cmd.Flags().StringVar(&f.cluster, "cluster", "default", "Cluster name")
	cmd.RegisterFlagCompletionFunc("env", completeEnvs(opts))
}

// lookup confirms the cluster, which enables the per-app operations.
func (f *clusterFlags) lookup(cmd *cobra.Command, s *session) transfer.Outcome {
	s.model.SetCluster(f.appID, f.env, f.cluster)
	return s.model.GetClusterInfo(cmd.Context())
}

func newClusterCmd(opts *rootOptions) *cobra.Command {
	var target clusterFlags
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Look up a cluster of an app",
		Long: `Look up a cluster of an app and print what the portal reports.

Examples:
  cfgport cluster --app sample --env DEV
  cfgport cluster --app sample --env DEV --cluster shanghai
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts, "cluster", sessionOptions{})
			if err != nil {
				return err
			}
			outcome := target.lookup(cmd, s)
			if outcome == transfer.OutcomeOK {
				fmt.Fprintln(s.out, s.model.Snapshot().Cluster.Info)
			}
			if err := s.Close(); err != nil {
				return err
			}
			return outcomeError("cluster lookup", outcome)
		},
	}
	target.register(cmd, opts)
	return cmd
}

func newAppCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "app",
		Short: "Export or import the configs of a single cluster",
	}
	cmd.AddCommand(newAppExportCmd(opts), newAppImportCmd(opts))
	return cmd
}

func newAppExportCmd(opts *rootOptions) *cobra.Command {
	var (
		target    clusterFlags
		outputDir string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the configs of one cluster",
		Long: `Export the configs of one cluster of an app.

The cluster is looked up first. Exporting needs app admin rights.

Examples:
  cfgport app export --app sample --env DEV
  cfgport app export --app sample --env DEV --cluster shanghai --out .
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts, "app-export", sessionOptions{outputDir: outputDir})
			if err != nil {
				return err
			}
			outcome := target.lookup(cmd, s)
			if outcome == transfer.OutcomeOK {
				outcome = s.model.ExportAppConfig(cmd.Context())
			}
			if err := s.Close(); err != nil {
				return err
			}
			return outcomeError("app export", outcome)
		},
	}
	target.register(cmd, opts)
	cmd.Flags().StringVar(&outputDir, "out", "", "Save into this local directory instead of the configured output")
	return cmd
}

func newAppImportCmd(opts *rootOptions) *cobra.Command {
	var (
		target    clusterFlags
		file      string
		fromStore string
		conflict  string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an archive into one cluster",
		Long: `Import a config archive into one cluster of an app.

The cluster is looked up first. Importing needs app admin rights.

Examples:
  cfgport app import --app sample --env FAT --file sample+DEV+default.zip
  cfgport app import --app sample --env FAT --file app.zip --conflict cover
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := portal.ParseConflictAction(conflict)
			if err != nil {
				return clierr.Validation("%v", err)
			}
			if file != "" && fromStore != "" {
				return clierr.Validation("--file and --from-store are mutually exclusive")
			}

			s, err := openSession(cmd, opts, "app-import", sessionOptions{})
			if err != nil {
				return err
			}
			if err := s.model.SetConflictAction(action); err != nil {
				s.Close()
				return clierr.Validation("%v", err)
			}
			upload, err := s.readUpload(cmd, file, fromStore)
			if err != nil {
				s.Close()
				return err
			}
			if upload != nil {
				s.model.ChooseAppImportFile(upload)
			}

			outcome := target.lookup(cmd, s)
			if outcome == transfer.OutcomeOK {
				outcome = s.model.ImportAppConfig(cmd.Context())
			}
			if err := s.Close(); err != nil {
				return err
			}
			return outcomeError("app import", outcome)
		},
	}
	target.register(cmd, opts)
	cmd.Flags().StringVarP(&file, "file", "f", "", "Archive to upload")
	cmd.Flags().StringVar(&fromStore, "from-store", "", "Archive key in the configured output")
	cmd.Flags().StringVar(&conflict, "conflict", string(portal.DefaultConflictAction), "Conflict action: ignore or cover")
	cmd.RegisterFlagCompletionFunc("conflict", completeConflictActions)
	return cmd
}
