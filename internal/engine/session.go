// SPDX-License-Identifier: MIT

// Package engine implements the synchronization core of GitPost: it
// bootstraps the data branch and its isolated worktree inside a host
// repository, determines write access truthfully before creating local
// state, keeps local and remote converged under concurrent writers, and
// recovers from corrupted or stale worktree state on its own.
//
// One Session owns one message store. Every git-touching operation is
// serialized by a per-session mutex; the background scheduler shares
// the same mutex, so ticks never overlap consumer calls.
package engine

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skaphos/gitpost/internal/gitrepo"
	"github.com/skaphos/gitpost/internal/gitx"
	"github.com/skaphos/gitpost/internal/model"
)

const (
	// DefaultSyncInterval is the scheduler tick period.
	DefaultSyncInterval = 10 * time.Second
	// DefaultOpTimeout bounds each engine operation, including the full
	// body of a scheduler tick. A stalled subprocess fails the tick
	// instead of blocking the loop forever.
	DefaultOpTimeout = 60 * time.Second

	eventBuffer = 64
)

// Session is the live attachment to one message store. Create one with
// NewSession, call Initialize, then use the message operations and the
// scheduler. A Session must be released with Close.
type Session struct {
	handle model.Handle
	repo   gitrepo.Repo
	log    *zap.Logger

	interval  time.Duration
	opTimeout time.Duration

	// opMu serializes every operation that may touch the repository.
	// The metadata directory is not safe for concurrent mutation, so
	// at most one primitive-running operation is in flight per session.
	opMu sync.Mutex

	// mu guards the plain state fields below.
	mu          sync.Mutex
	initialized bool
	access      model.AccessState
	queued      bool
	worktree    string
	remoteURL   string
	hasRemote   bool
	lastSync    *model.SyncRecord
	announced   bool // read-only transition already emitted

	events   chan Event
	callback func(Event)

	schedMu   sync.Mutex
	schedStop chan struct{}
	schedDone chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithRepo substitutes the repository implementation. Tests use this to
// run the engine against a stub.
func WithRepo(repo gitrepo.Repo) Option {
	return func(s *Session) { s.repo = repo }
}

// WithRunner substitutes only the subprocess runner underneath the
// default git implementation.
func WithRunner(runner gitx.Runner) Option {
	return func(s *Session) { s.repo = gitrepo.NewGit(runner) }
}

// WithLogger attaches a zap logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSyncInterval overrides the scheduler tick period.
func WithSyncInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithOpTimeout overrides the per-operation timeout.
func WithOpTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithEventCallback registers a synchronous observer invoked for every
// event in addition to the Events channel.
func WithEventCallback(fn func(Event)) Option {
	return func(s *Session) { s.callback = fn }
}

// NewSession builds a Session for the handle. The remote name defaults
// to "origin" when the handle leaves it empty.
func NewSession(handle model.Handle, opts ...Option) *Session {
	if handle.Remote == "" {
		handle.Remote = "origin"
	}
	s := &Session{
		handle:    handle,
		repo:      gitrepo.NewGit(nil),
		log:       zap.NewNop(),
		interval:  DefaultSyncInterval,
		opTimeout: DefaultOpTimeout,
		access:    model.AccessState{Level: model.AccessUnknown},
		events:    make(chan Event, eventBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the handle the session was built for.
func (s *Session) Handle() model.Handle { return s.handle }

// WorktreePath returns the resolved worktree directory, empty before a
// successful Initialize.
func (s *Session) WorktreePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.worktree
}

// ReadOnly reports whether the session has made the sticky read-only
// transition.
func (s *Session) ReadOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access.ReadOnly()
}

// Access returns the current access state.
func (s *Session) Access() model.AccessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

// PushQueued reports whether a local commit awaits replication.
func (s *Session) PushQueued() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queued
}

// LastSync returns the most recent sync outcome, nil before any sync.
func (s *Session) LastSync() *model.SyncRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSync == nil {
		return nil
	}
	rec := *s.lastSync
	return &rec
}

// QueuePush marks local content as awaiting replication. It is a no-op
// on a read-only session: once pushes are denied, nothing is queued
// again until the session is reset by a new Initialize.
func (s *Session) QueuePush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queuePushLocked()
}

func (s *Session) queuePushLocked() {
	if s.access.ReadOnly() {
		return
	}
	s.queued = true
}

// Close stops the scheduler, clears session state, and closes the event
// stream. The session can be re-initialized afterwards, but consumers
// normally build a fresh one.
func (s *Session) Close() {
	s.StopScheduler()

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.mu.Lock()
	s.initialized = false
	s.access = model.AccessState{Level: model.AccessUnknown}
	s.queued = false
	s.worktree = ""
	s.announced = false
	events := s.events
	s.events = nil
	s.mu.Unlock()

	if events != nil {
		close(events)
	}
	s.log.Debug("session closed", zap.String("path", s.handle.Path))
}

// resetLocked restores the clean pre-initialization state. Initialize
// calls this first so a session reused across stores (or re-initialized
// after a denial) never inherits stale access or queue state.
func (s *Session) resetLocked() {
	s.initialized = false
	s.access = model.AccessState{Level: model.AccessUnknown}
	s.queued = false
	s.worktree = ""
	s.remoteURL = ""
	s.hasRemote = false
	s.lastSync = nil
	s.announced = false
}
