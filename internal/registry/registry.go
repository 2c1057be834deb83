// SPDX-License-Identifier: MIT
// Package registry handles persistence and staleness detection for the
// per-machine message store registry.
package registry

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"
)

// EntryStatus represents whether a registry entry's path is still valid.
type EntryStatus string

const (
	StatusPresent EntryStatus = "present"
	StatusMissing EntryStatus = "missing"
	StatusMoved   EntryStatus = "moved"
)

// Entry is a single message store entry in the registry.
type Entry struct {
	StoreID      string      `yaml:"store_id"`
	Path         string      `yaml:"path"`
	RemoteURL    string      `yaml:"remote_url,omitempty"`
	RemoteName   string      `yaml:"remote,omitempty"`
	WorktreePath string      `yaml:"worktree,omitempty"`
	Access       string      `yaml:"access,omitempty"` // writable | read-only
	LastSyncAt   time.Time   `yaml:"last_sync_at,omitempty"`
	LastSyncOK   bool        `yaml:"last_sync_ok,omitempty"`
	LastSeen     time.Time   `yaml:"last_seen,omitempty"`
	Status       EntryStatus `yaml:"status"`
}

// Registry is the per-machine mapping of store identities to local paths.
type Registry struct {
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
	Entries   []Entry   `yaml:"stores"`
}

// Load reads a registry file from the given path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Save writes the registry to the given path.
func Save(reg *Registry, path string) error {
	if reg == nil {
		return errors.New("registry is nil")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(reg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Upsert adds or updates an entry in the registry by store_id.
// If the store_id already exists, it updates path, last_seen, and status,
// keeping remote, worktree, access, and sync details that the incoming
// entry leaves blank. If new, it appends the entry.
func (r *Registry) Upsert(entry Entry) {
	for i := range r.Entries {
		if r.Entries[i].StoreID != entry.StoreID {
			continue
		}
		if r.Entries[i].Path != entry.Path {
			entry.Status = StatusMoved
		} else if entry.Status == "" {
			entry.Status = StatusPresent
		}
		if entry.RemoteName == "" {
			entry.RemoteName = r.Entries[i].RemoteName
		}
		if entry.WorktreePath == "" {
			entry.WorktreePath = r.Entries[i].WorktreePath
		}
		if entry.Access == "" {
			entry.Access = r.Entries[i].Access
		}
		if entry.LastSyncAt.IsZero() {
			entry.LastSyncAt = r.Entries[i].LastSyncAt
			entry.LastSyncOK = r.Entries[i].LastSyncOK
		}
		r.Entries[i].Path = entry.Path
		r.Entries[i].RemoteURL = entry.RemoteURL
		r.Entries[i].RemoteName = entry.RemoteName
		r.Entries[i].WorktreePath = entry.WorktreePath
		r.Entries[i].Access = entry.Access
		r.Entries[i].LastSyncAt = entry.LastSyncAt
		r.Entries[i].LastSyncOK = entry.LastSyncOK
		r.Entries[i].LastSeen = entry.LastSeen
		r.Entries[i].Status = entry.Status
		return
	}
	if entry.Status == "" {
		entry.Status = StatusPresent
	}
	r.Entries = append(r.Entries, entry)
}

// RecordSync stamps the outcome of a sync pass onto the matching entry.
// It reports whether an entry with the given store_id was found.
func (r *Registry) RecordSync(storeID string, at time.Time, ok bool) bool {
	for i := range r.Entries {
		if r.Entries[i].StoreID == storeID {
			r.Entries[i].LastSyncAt = at
			r.Entries[i].LastSyncOK = ok
			r.Entries[i].LastSeen = at
			return true
		}
	}
	return false
}

// ValidatePaths checks all entries against the filesystem and marks
// entries as missing or moved as appropriate.
func (r *Registry) ValidatePaths() error {
	for i := range r.Entries {
		_, err := os.Stat(r.Entries[i].Path)
		if err != nil {
			if os.IsNotExist(err) {
				r.Entries[i].Status = StatusMissing
				continue
			}
			return err
		}
		r.Entries[i].Status = StatusPresent
	}
	return nil
}

// PruneStale removes entries marked as missing that are older than
// the given threshold.
func (r *Registry) PruneStale(olderThan time.Duration) int {
	if olderThan <= 0 {
		return 0
	}
	now := time.Now()
	var kept []Entry
	pruned := 0
	for _, entry := range r.Entries {
		if entry.Status == StatusMissing && entry.LastSeen.Before(now.Add(-olderThan)) {
			pruned++
			continue
		}
		kept = append(kept, entry)
	}
	r.Entries = kept
	return pruned
}

// FindByStoreID returns the entry matching the given store_id, or nil.
func (r *Registry) FindByStoreID(storeID string) *Entry {
	for i := range r.Entries {
		if r.Entries[i].StoreID == storeID {
			return &r.Entries[i]
		}
	}
	return nil
}

// FindByPath returns the entry whose path matches the given directory, or nil.
func (r *Registry) FindByPath(path string) *Entry {
	cleaned := filepath.Clean(path)
	for i := range r.Entries {
		if filepath.Clean(r.Entries[i].Path) == cleaned {
			return &r.Entries[i]
		}
	}
	return nil
}
