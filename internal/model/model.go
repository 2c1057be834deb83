// Package model defines the core data types shared across the GitPost
// engine, CLI, and persistence layers.
package model

import (
	"path/filepath"
	"time"
)

// DataBranch is the single branch dedicated to holding conversation
// content. It is constant for the lifetime of the protocol: every writer
// and reader of a store uses this name, separate from the host
// repository's normal branches.
const DataBranch = "gitpost-data"

// ProbeRefPrefix is the ref namespace used for disposable write-access
// probe refs pushed to the remote.
const ProbeRefPrefix = "refs/gitpost/probe-"

// AttachmentsDir is the worktree directory reserved for binary content.
const AttachmentsDir = "attachments"

// SeedChannel is the channel created when a brand-new store is seeded.
const SeedChannel = "general"

// WorktreePathIn returns the data worktree location for a repository
// whose metadata lives at gitDir. Every component derives the path the
// same way so relocation detection and inspection agree.
func WorktreePathIn(gitDir string) string {
	return filepath.Join(gitDir, "gitpost", "worktree")
}

// Handle identifies one host repository to attach a session to.
type Handle struct {
	// Path is the local filesystem path of the host repository.
	Path string `json:"path" yaml:"path"`
	// Remote is the remote name used for replication (usually "origin").
	Remote string `json:"remote" yaml:"remote"`
}

// AccessLevel enumerates the write-access states of a session.
type AccessLevel string

const (
	// AccessUnknown means no probe or push has determined access yet.
	AccessUnknown AccessLevel = "unknown"
	// AccessWritable means pushes are permitted (or optimistically assumed).
	AccessWritable AccessLevel = "writable"
	// AccessReadOnly means a push was unambiguously denied. Sticky until
	// the session is reset or disposed.
	AccessReadOnly AccessLevel = "read-only"
)

// AccessState is the tri-state write-access record for a session.
type AccessState struct {
	// Level is the current access level.
	Level AccessLevel `json:"level" yaml:"level"`
	// Reason explains a read-only transition (for example, "no-permission").
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// ReadOnly reports whether the state has made the sticky read-only
// transition.
func (s AccessState) ReadOnly() bool { return s.Level == AccessReadOnly }

// StoreState is the detection tuple driving branch and worktree
// resolution during initialization.
type StoreState struct {
	// HasRemote indicates the handle's remote is configured.
	HasRemote bool `json:"has_remote" yaml:"has_remote"`
	// HasRemoteBranch indicates the remote already carries DataBranch.
	HasRemoteBranch bool `json:"has_remote_branch" yaml:"has_remote_branch"`
	// HasLocalBranch indicates DataBranch exists locally.
	HasLocalBranch bool `json:"has_local_branch" yaml:"has_local_branch"`
	// HasWorktree indicates a worktree is registered at the expected path.
	HasWorktree bool `json:"has_worktree" yaml:"has_worktree"`
	// WorktreeValid indicates the registered worktree's metadata is intact.
	WorktreeValid bool `json:"worktree_valid" yaml:"worktree_valid"`
}

// Remote represents a single configured git remote.
type Remote struct {
	// Name is the configured remote name (for example, "origin").
	Name string `json:"name" yaml:"name"`
	// URL is the remote fetch/push URL.
	URL string `json:"url" yaml:"url"`
}

// WorktreeEntry is one registration from worktree enumeration.
type WorktreeEntry struct {
	// Path is the worktree checkout directory.
	Path string `json:"path" yaml:"path"`
	// Head is the commit hash checked out in the worktree.
	Head string `json:"head" yaml:"head"`
	// Branch is the attached branch ref short name; empty when detached.
	Branch string `json:"branch" yaml:"branch"`
	// Detached reports a detached-HEAD worktree.
	Detached bool `json:"detached" yaml:"detached"`
	// Bare marks the main bare entry git reports first.
	Bare bool `json:"bare" yaml:"bare"`
	// Prunable marks registrations git itself considers stale.
	Prunable bool `json:"prunable" yaml:"prunable"`
}

// MessageMeta is the header block of a message file. The engine composes
// these for its own writes and otherwise treats message bodies as opaque;
// validation belongs to consumers.
type MessageMeta struct {
	// From is the sender identity. Required.
	From string `json:"from" yaml:"from"`
	// Date is the ISO-8601 creation timestamp. Required.
	Date string `json:"date" yaml:"date"`
	// ReplyTo is the filename of the message being replied to.
	ReplyTo string `json:"reply_to,omitempty" yaml:"reply_to,omitempty"`
	// Tags are free-form labels.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	// Edited is the ISO-8601 timestamp of the last external edit.
	Edited string `json:"edited,omitempty" yaml:"edited,omitempty"`
	// Attachments are worktree-relative paths to attached content.
	Attachments []string `json:"attachments,omitempty" yaml:"attachments,omitempty"`
	// Images are worktree-relative paths to attached images.
	Images []string `json:"images,omitempty" yaml:"images,omitempty"`
	// Files are worktree-relative paths to attached files.
	Files []string `json:"files,omitempty" yaml:"files,omitempty"`
}

// SyncRecord is the outcome of the most recent sync attempt for a store.
type SyncRecord struct {
	// OK is true when the last sync completed successfully.
	OK bool `json:"ok" yaml:"ok"`
	// At is the timestamp of the last sync attempt.
	At time.Time `json:"at" yaml:"at"`
	// Error contains the sync error message when OK is false.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// StoreStatus is the full status report for one message store.
type StoreStatus struct {
	// StoreID is the normalized remote URL, or the path for local-only stores.
	StoreID string `json:"store_id" yaml:"store_id"`
	// Path is the host repository path.
	Path string `json:"path" yaml:"path"`
	// RemoteURL is the replication remote URL, empty for local-only stores.
	RemoteURL string `json:"remote_url,omitempty" yaml:"remote_url,omitempty"`
	// PrimaryRemote is the remote the store replicates through.
	PrimaryRemote string `json:"primary_remote,omitempty" yaml:"primary_remote,omitempty"`
	// Remotes lists every configured remote of the host repository.
	Remotes []Remote `json:"remotes,omitempty" yaml:"remotes,omitempty"`
	// WorktreePath is the resolved message worktree directory.
	WorktreePath string `json:"worktree_path,omitempty" yaml:"worktree_path,omitempty"`
	// Head is the current DataBranch head commit hash.
	Head string `json:"head,omitempty" yaml:"head,omitempty"`
	// ReadOnly reports the sticky access state.
	ReadOnly bool `json:"read_only" yaml:"read_only"`
	// ReadOnlyReason explains a read-only state when set.
	ReadOnlyReason string `json:"read_only_reason,omitempty" yaml:"read_only_reason,omitempty"`
	// PushQueued reports whether local commits await a push.
	PushQueued bool `json:"push_queued" yaml:"push_queued"`
	// Channels is the number of channel directories in the worktree.
	Channels int `json:"channels" yaml:"channels"`
	// LastSync is the latest sync outcome metadata when available.
	LastSync *SyncRecord `json:"last_sync,omitempty" yaml:"last_sync,omitempty"`
	// Error holds store-specific inspect failure text.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
	// ErrorClass is the coarse category for Error.
	ErrorClass string `json:"error_class,omitempty" yaml:"error_class,omitempty"`
}

// StatusReport is the top-level output of the status command.
type StatusReport struct {
	// GeneratedAt is the timestamp when this report was produced.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	// Stores is the full set of store status rows in the report.
	Stores []StoreStatus `json:"stores" yaml:"stores"`
}
