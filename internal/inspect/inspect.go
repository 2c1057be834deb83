// Package inspect builds read-only status reports for message stores.
// It gathers git facts without mutating anything; session state recorded
// in the registry (access level, last sync) is merged in afterwards so a
// report reflects what the engine last observed.
package inspect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/skaphos/gitpost/internal/gitx"
	"github.com/skaphos/gitpost/internal/model"
	"github.com/skaphos/gitpost/internal/msgfile"
	"github.com/skaphos/gitpost/internal/registry"
	"github.com/skaphos/gitpost/internal/sortutil"
)

const defaultConcurrency = 4

// Options bounds a full-registry report run.
type Options struct {
	// Concurrency caps parallel store inspections. Zero means a small default.
	Concurrency int
	// Timeout bounds each per-store inspection. Zero means no bound.
	Timeout time.Duration
}

// Inspector gathers store status from live repositories.
type Inspector struct {
	runner gitx.Runner
}

// New returns an Inspector backed by the given runner, defaulting to the
// real git binary.
func New(runner gitx.Runner) *Inspector {
	if runner == nil {
		runner = &gitx.GitRunner{}
	}
	return &Inspector{runner: runner}
}

// InspectStore collects the git facts for one store path.
func (ins *Inspector) InspectStore(ctx context.Context, path string) (*model.StoreStatus, error) {
	ok, err := gitx.IsRepo(ctx, ins.runner, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("inspect %s: %w", path, gitx.ErrNotRepo)
	}

	remotes, err := gitx.Remotes(ctx, ins.runner, path)
	if err != nil {
		return nil, err
	}
	var remoteNames []string
	for _, remote := range remotes {
		remoteNames = append(remoteNames, remote.Name)
	}
	primary := gitx.PrimaryRemote(remoteNames)
	var remoteURL string
	for _, remote := range remotes {
		if remote.Name == primary {
			remoteURL = remote.URL
			break
		}
	}
	storeID := gitx.NormalizeURL(remoteURL)
	if storeID == "" {
		storeID = filepath.Clean(path)
	}

	status := &model.StoreStatus{
		StoreID:       storeID,
		Path:          path,
		RemoteURL:     remoteURL,
		PrimaryRemote: primary,
		Remotes:       remotes,
	}

	if hasData, _ := gitx.HasLocalBranch(ctx, ins.runner, path, model.DataBranch); hasData {
		if head, err := gitx.RevParse(ctx, ins.runner, path, model.DataBranch); err == nil {
			status.Head = head
		}
	}

	gitDir, err := gitx.GitDir(ctx, ins.runner, path)
	if err != nil {
		return status, nil
	}
	worktree := model.WorktreePathIn(gitDir)
	if info, err := os.Stat(worktree); err == nil && info.IsDir() {
		status.WorktreePath = worktree
		if channels, err := msgfile.Channels(worktree); err == nil {
			status.Channels = len(channels)
		}
	}
	return status, nil
}

// Report inspects every registry entry and assembles a status report.
// Per-store failures are reported in-band so one broken checkout never
// hides the rest of the fleet.
func (ins *Inspector) Report(ctx context.Context, reg *registry.Registry, opts Options) (*model.StatusReport, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry not loaded")
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	// Snapshot entries to decouple workers from concurrent registry updates.
	entries := append([]registry.Entry(nil), reg.Entries...)
	out := make(chan model.StoreStatus, len(entries))
	sem := make(chan struct{}, concurrency)

	for _, entry := range entries {
		sem <- struct{}{}
		go func(entry registry.Entry) {
			defer func() { <-sem }()
			out <- ins.inspectEntry(ctx, entry, opts.Timeout)
		}(entry)
	}

	report := &model.StatusReport{GeneratedAt: time.Now()}
	for range entries {
		report.Stores = append(report.Stores, <-out)
	}
	sortutil.SortStoreStatuses(report.Stores)
	return report, nil
}

func (ins *Inspector) inspectEntry(ctx context.Context, entry registry.Entry, timeout time.Duration) model.StoreStatus {
	if entry.Status == registry.StatusMissing {
		return model.StoreStatus{
			StoreID:    entry.StoreID,
			Path:       entry.Path,
			Error:      "path missing",
			ErrorClass: "missing",
		}
	}
	storeCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		storeCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	status, err := ins.InspectStore(storeCtx, entry.Path)
	if err != nil {
		return model.StoreStatus{
			StoreID:    entry.StoreID,
			Path:       entry.Path,
			Error:      err.Error(),
			ErrorClass: string(gitx.Classify(err)),
		}
	}
	mergeEntry(status, entry)
	return *status
}

// mergeEntry overlays registry-recorded session state onto git facts.
func mergeEntry(status *model.StoreStatus, entry registry.Entry) {
	if status.StoreID == "" {
		status.StoreID = entry.StoreID
	}
	if entry.Access == string(model.AccessReadOnly) {
		status.ReadOnly = true
	}
	if !entry.LastSyncAt.IsZero() {
		status.LastSync = &model.SyncRecord{OK: entry.LastSyncOK, At: entry.LastSyncAt}
	}
}
