// SPDX-License-Identifier: MIT
// Package remotemismatch reconciles disagreement between the registry's
// recorded remote URL for a store and the live git remote configuration.
package remotemismatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/skaphos/gitpost/internal/gitx"
	"github.com/skaphos/gitpost/internal/model"
	"github.com/skaphos/gitpost/internal/registry"
)

// ReconcileMode controls how remote mismatch reconciliation is applied.
type ReconcileMode string

const (
	ReconcileNone     ReconcileMode = "none"
	ReconcileRegistry ReconcileMode = "registry"
	ReconcileGit      ReconcileMode = "git"
)

// Plan describes one remote mismatch reconcile action for a store.
type Plan struct {
	StoreID        string
	Path           string
	PrimaryRemote  string
	StoreRemoteURL string
	RegistryURL    string
	EntryIndex     int
	Action         string
}

// ParseReconcileMode validates and parses a reconcile mode flag value.
func ParseReconcileMode(raw string) (ReconcileMode, error) {
	mode := ReconcileMode(strings.ToLower(strings.TrimSpace(raw)))
	switch mode {
	case "", ReconcileNone:
		return ReconcileNone, nil
	case ReconcileRegistry, ReconcileGit:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported --reconcile-remote-mismatch value %q (expected none, registry, or git)", raw)
	}
}

// BuildPlans computes reconcile plans from status data and registry state.
func BuildPlans(stores []model.StoreStatus, reg *registry.Registry, mode ReconcileMode) []Plan {
	if reg == nil || mode == ReconcileNone {
		return nil
	}
	plans := make([]Plan, 0)
	for _, store := range stores {
		entryIndex := findRegistryEntryIndexForStatus(reg, store)
		if entryIndex < 0 {
			continue
		}
		entry := reg.Entries[entryIndex]
		registryURL := strings.TrimSpace(entry.RemoteURL)
		if registryURL == "" || strings.TrimSpace(store.StoreID) == "" {
			continue
		}
		if gitx.NormalizeURL(registryURL) == gitx.NormalizeURL(store.RemoteURL) {
			continue
		}
		storeRemoteURL := primaryRemoteURL(store)
		action := ""
		switch mode {
		case ReconcileRegistry:
			if storeRemoteURL == "" {
				continue
			}
			action = "set registry remote_url to live git remote"
		case ReconcileGit:
			if strings.TrimSpace(store.PrimaryRemote) == "" {
				continue
			}
			action = "set git remote URL to registry remote_url"
		}
		plans = append(plans, Plan{
			StoreID:        store.StoreID,
			Path:           store.Path,
			PrimaryRemote:  store.PrimaryRemote,
			StoreRemoteURL: storeRemoteURL,
			RegistryURL:    registryURL,
			EntryIndex:     entryIndex,
			Action:         action,
		})
	}
	return plans
}

// ApplyPlans applies plans to registry and/or git remotes based on mode.
func ApplyPlans(ctx context.Context, plans []Plan, reg *registry.Registry, mode ReconcileMode, runner gitx.Runner, now func() time.Time) error {
	if len(plans) == 0 {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	switch mode {
	case ReconcileRegistry:
		for _, plan := range plans {
			if reg == nil {
				continue
			}
			if plan.EntryIndex < 0 || plan.EntryIndex >= len(reg.Entries) {
				continue
			}
			reg.Entries[plan.EntryIndex].RemoteURL = plan.StoreRemoteURL
			reg.Entries[plan.EntryIndex].LastSeen = now()
		}
	case ReconcileGit:
		if runner == nil {
			return fmt.Errorf("git runner is required for git remote reconciliation")
		}
		for _, plan := range plans {
			if strings.TrimSpace(plan.PrimaryRemote) == "" {
				continue
			}
			if err := gitx.SetRemoteURL(ctx, runner, plan.Path, plan.PrimaryRemote, plan.RegistryURL); err != nil {
				return fmt.Errorf("git remote set-url %q %q (%q): %w", plan.PrimaryRemote, plan.RegistryURL, plan.Path, err)
			}
		}
	}
	return nil
}

func findRegistryEntryIndexForStatus(reg *registry.Registry, store model.StoreStatus) int {
	for i := range reg.Entries {
		if reg.Entries[i].StoreID == store.StoreID && reg.Entries[i].Path == store.Path {
			return i
		}
	}
	for i := range reg.Entries {
		if reg.Entries[i].StoreID == store.StoreID {
			return i
		}
	}
	return -1
}

func primaryRemoteURL(store model.StoreStatus) string {
	for _, remote := range store.Remotes {
		if remote.Name == store.PrimaryRemote {
			return strings.TrimSpace(remote.URL)
		}
	}
	return ""
}
