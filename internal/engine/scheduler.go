// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skaphos/gitpost/internal/gitx"
	"github.com/skaphos/gitpost/internal/model"
)

// StartScheduler runs the sync loop in the background until Close or
// StopScheduler. Each tick performs one SyncOnce pass; ticks never
// overlap because the loop awaits each pass and the ticker drops
// intervals that elapse meanwhile.
func (s *Session) StartScheduler() error {
	s.mu.Lock()
	initialized := s.initialized
	s.mu.Unlock()
	if !initialized {
		return ErrNotInitialized
	}

	s.schedMu.Lock()
	defer s.schedMu.Unlock()
	if s.schedStop != nil {
		return errors.New("scheduler already running")
	}
	s.schedStop = make(chan struct{})
	s.schedDone = make(chan struct{})

	go s.runScheduler(s.schedStop, s.schedDone)
	s.log.Info("scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// StopScheduler stops the sync loop and waits for an in-flight tick to
// finish. Safe to call when the scheduler never started.
func (s *Session) StopScheduler() {
	s.schedMu.Lock()
	stop, done := s.schedStop, s.schedDone
	s.schedStop, s.schedDone = nil, nil
	s.schedMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	s.log.Info("scheduler stopped")
}

func (s *Session) runScheduler(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := s.SyncOnce(context.Background()); err != nil {
				s.log.Warn("sync tick failed", zap.Error(err))
			}
		}
	}
}

// SyncOnce performs one full sync pass: scoped fetch, divergence check,
// pull when behind, then the queued push when one is due. Transient
// failures leave the queue set for the next pass; an unambiguous push
// denial latches the session read-only and clears the queue.
func (s *Session) SyncOnce(ctx context.Context) (Outcome, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	s.mu.Lock()
	initialized := s.initialized
	hasRemote := s.hasRemote
	worktree := s.worktree
	s.mu.Unlock()
	// Nothing to sync without a remote; a denied session has no local
	// store at all. Read-only sessions with local state still pull.
	if !initialized || !hasRemote || worktree == "" {
		return OutcomeSkipped, nil
	}

	s.emit(Event{Kind: EventSyncStart})
	outcome := OutcomeSucceeded

	dir := s.handle.Path
	remoteHasBranch := true
	if err := s.repo.FetchBranch(ctx, dir, s.handle.Remote, model.DataBranch); err != nil {
		if gitx.Classify(err) != gitx.KindMissingRef {
			err = fmt.Errorf("fetch %s: %w", model.DataBranch, err)
			s.recordSync(false, err)
			s.emit(Event{Kind: EventSyncError, Err: err})
			return OutcomeFailed, err
		}
		// The remote carries no data branch yet; nothing to pull, and
		// the queued push below is what will create it.
		remoteHasBranch = false
	}

	if remoteHasBranch {
		remoteRef := s.handle.Remote + "/" + model.DataBranch
		_, behind, err := s.repo.AheadBehind(ctx, dir, model.DataBranch, remoteRef)
		if err != nil {
			err = fmt.Errorf("divergence check: %w", err)
			s.recordSync(false, err)
			s.emit(Event{Kind: EventSyncError, Err: err})
			return OutcomeFailed, err
		}

		if behind > 0 {
			res, err := s.pull(ctx)
			if err != nil {
				s.recordSync(false, err)
				s.emit(Event{Kind: EventSyncError, Err: err})
				return OutcomeFailed, err
			}
			if res.Merged {
				s.emit(Event{Kind: EventNewContent, Head: res.Head})
			}
			if res.Warning != "" {
				outcome = OutcomeSucceededWithWarning
			}
		}
	}

	s.mu.Lock()
	pushDue := s.queued && !s.access.ReadOnly()
	s.mu.Unlock()

	if pushDue {
		if err := s.pushDataBranch(ctx); err != nil {
			if gitx.Classify(err) == gitx.KindPermission {
				s.enterReadOnly(reasonNoPermission)
				s.recordSync(false, err)
				return OutcomeFailed, fmt.Errorf("push denied: %w", err)
			}
			// Transient: the queue stays set and the next pass retries.
			s.recordSync(false, err)
			s.emit(Event{Kind: EventPushError, Err: err})
			return OutcomeFailed, fmt.Errorf("push: %w", err)
		}
		s.mu.Lock()
		s.queued = false
		s.mu.Unlock()
		s.markWritable()
		s.emit(Event{Kind: EventPushComplete})
	}

	s.recordSync(true, nil)
	return outcome, nil
}

func (s *Session) recordSync(ok bool, err error) {
	rec := model.SyncRecord{OK: ok, At: time.Now()}
	if err != nil {
		rec.Error = err.Error()
	}
	s.mu.Lock()
	s.lastSync = &rec
	s.mu.Unlock()
}
