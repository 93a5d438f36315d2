// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package transfer

import (
	"context"

	"github.com/monadic/cfgport/internal/i18n"
)

// Export downloads the configs of every checked export environment.
// Success is reported as soon as the download starts; the navigator has no
// way to report how it ended, so the ledger records the export as started.
func (m *Model) Export() Outcome {
	m.mu.Lock()
	envs := checkedNames(m.exportEnvs)
	m.mu.Unlock()

	if len(envs) == 0 {
		m.warn(i18n.ChooseEnvironment)
		return OutcomeInvalid
	}

	exportURL := m.backend.ExportConfigsURL(envs)
	m.log("export %v: %s", envs, exportURL)
	m.nav.Navigate(exportURL)
	m.notify(LevelSuccess, m.tr.T(i18n.ExportSuccess), "")
	m.record(context.Background(), Transfer{Kind: KindExport, Envs: envs, Outcome: OutcomeStarted})
	return OutcomeOK
}

// Import uploads the chosen file into every checked import environment.
func (m *Model) Import(ctx context.Context) Outcome {
	m.mu.Lock()
	envs := checkedNames(m.importEnvs)
	file := m.importFile
	action := m.conflictAction
	m.mu.Unlock()

	if len(envs) == 0 {
		m.warn(i18n.ChooseEnvironment)
		return OutcomeInvalid
	}
	if file == nil {
		m.warn(i18n.ChooseFile)
		return OutcomeInvalid
	}

	m.notify(LevelInfo, m.tr.T(i18n.Importing), "")
	m.log("import %s into %v (conflictAction=%s)", file.Filename, envs, action)

	t := Transfer{Kind: KindImport, Envs: envs, ConflictAction: action, Filename: file.Filename}
	reply, err := m.backend.ImportConfigs(ctx, envs, action, file.Filename, uploadReader(file))
	if err != nil {
		m.log("import failed: %v", err)
		m.notify(LevelError, m.failureText(err), m.tr.T(i18n.ImportFailed))
		t.Outcome, t.Message = outcomeOf(err), err.Error()
		m.record(ctx, t)
		return t.Outcome
	}

	m.log("import succeeded: %s", reply)
	m.notify(LevelSuccess, reply, m.tr.T(i18n.ImportSuccess))
	t.Outcome, t.Message = OutcomeOK, reply
	m.record(ctx, t)
	return OutcomeOK
}

// GetClusterInfo looks up the described cluster. A successful lookup is the
// only way to enable the per-app operations.
func (m *Model) GetClusterInfo(ctx context.Context) Outcome {
	m.mu.Lock()
	target := m.cluster
	if !target.complete() {
		m.appConfigEnabled = false
		m.mu.Unlock()
		m.render()
		m.warn(i18n.ClusterFieldsRequired)
		return OutcomeInvalid
	}
	m.cluster.Info = ""
	m.appConfigEnabled = false
	m.mu.Unlock()
	m.render()

	m.log("lookup cluster %s/%s/%s", target.AppID, target.Env, target.Name)
	cluster, err := m.backend.LoadCluster(ctx, target.AppID, target.Env, target.Name)

	m.mu.Lock()
	// The user may have retyped the target while the lookup was in flight.
	stale := m.cluster.AppID != target.AppID || m.cluster.Env != target.Env || m.cluster.Name != target.Name
	if err != nil {
		if !stale {
			m.appConfigEnabled = false
		}
		m.mu.Unlock()
		m.render()
		m.log("lookup failed: %v", err)
		msg, title := m.failureText(err), m.tr.T(i18n.RequestFailed)
		if msg == title {
			title = ""
		}
		m.notify(LevelError, msg, title)
		m.record(ctx, Transfer{Kind: KindClusterLookup, Cluster: target, Outcome: outcomeOf(err), Message: err.Error()})
		return outcomeOf(err)
	}
	info := m.tr.T(i18n.ClusterInfo, cluster.AppID, target.Env, cluster.Name)
	if !stale {
		m.cluster.Info = info
		m.appConfigEnabled = true
	}
	m.mu.Unlock()
	m.render()

	m.log("lookup succeeded: %s", info)
	target.Info = info
	m.record(ctx, Transfer{Kind: KindClusterLookup, Cluster: target, Outcome: OutcomeOK, Message: info})
	return OutcomeOK
}

// ExportAppConfig downloads the configs of the confirmed cluster after a
// HEAD check. Success is reported ExportNoticeDelay after the download
// starts.
func (m *Model) ExportAppConfig(ctx context.Context) Outcome {
	m.mu.Lock()
	target := m.cluster
	m.mu.Unlock()

	if !target.Confirmed() {
		m.warn(i18n.ClusterFieldsRequired)
		return OutcomeInvalid
	}

	exportURL := m.backend.AppExportURL(target.AppID, target.Env, target.Name)
	t := Transfer{Kind: KindAppExport, Cluster: target}
	if err := m.backend.CheckDownload(ctx, exportURL); err != nil {
		m.log("export check %s failed: %v", exportURL, err)
		t.Outcome, t.Message = outcomeOf(err), err.Error()
		if t.Outcome == OutcomeForbidden {
			m.warn(i18n.NoPermission)
		} else {
			m.notify(LevelError, m.tr.T(i18n.ExportFailed), "")
		}
		m.record(ctx, t)
		return t.Outcome
	}

	m.log("export %s", exportURL)
	m.nav.Navigate(exportURL)
	m.pending.Add(1)
	m.scheduler.AfterFunc(ExportNoticeDelay, func() {
		defer m.pending.Done()
		m.notify(LevelSuccess, m.tr.T(i18n.ExportSuccess), "")
	})
	t.Outcome = OutcomeStarted
	m.record(ctx, t)
	return OutcomeOK
}

// ImportAppConfig uploads the chosen file into the confirmed cluster.
func (m *Model) ImportAppConfig(ctx context.Context) Outcome {
	m.mu.Lock()
	target := m.cluster
	file := m.appImportFile
	action := m.conflictAction
	m.mu.Unlock()

	if !target.Confirmed() {
		m.warn(i18n.ClusterFieldsRequired)
		return OutcomeInvalid
	}
	if file == nil {
		m.warn(i18n.ChooseFile)
		return OutcomeInvalid
	}

	m.notify(LevelInfo, m.tr.T(i18n.Importing), "")
	m.log("import %s into %s/%s/%s (conflictAction=%s)", file.Filename, target.AppID, target.Env, target.Name, action)

	t := Transfer{Kind: KindAppImport, Cluster: target, ConflictAction: action, Filename: file.Filename}
	reply, err := m.backend.ImportAppConfig(ctx, target.AppID, target.Env, target.Name, action, file.Filename, uploadReader(file))
	if err != nil {
		m.log("import failed: %v", err)
		t.Outcome, t.Message = outcomeOf(err), err.Error()
		if t.Outcome == OutcomeForbidden {
			m.warn(i18n.NoPermission)
		} else {
			m.notify(LevelError, m.failureText(err), m.tr.T(i18n.ImportFailed))
		}
		m.record(ctx, t)
		return t.Outcome
	}

	m.log("import succeeded: %s", reply)
	m.notify(LevelSuccess, reply, m.tr.T(i18n.ImportSuccess))
	t.Outcome, t.Message = OutcomeOK, reply
	m.record(ctx, t)
	return OutcomeOK
}
