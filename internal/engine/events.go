// SPDX-License-Identifier: MIT
package engine

import (
	"time"

	"go.uber.org/zap"
)

// EventKind names the sync notifications a session emits.
type EventKind string

const (
	// EventSyncStart opens every scheduler tick that does work.
	EventSyncStart EventKind = "sync_start"
	// EventNewContent reports remote content merged locally; Head holds
	// the new data branch head.
	EventNewContent EventKind = "new_content"
	// EventSyncError reports a failed fetch or merge.
	EventSyncError EventKind = "sync_error"
	// EventPushComplete reports a confirmed push; the queue is clear.
	EventPushComplete EventKind = "push_complete"
	// EventPushError reports a transient push failure; the queue stays
	// set and the next tick retries.
	EventPushError EventKind = "push_error"
	// EventReadOnly reports the sticky read-only transition. Emitted
	// once per transition.
	EventReadOnly EventKind = "entered_read_only"
)

// Event is one sync notification.
type Event struct {
	Kind EventKind
	// Head is the data branch head hash for EventNewContent.
	Head string
	// Reason explains EventReadOnly.
	Reason string
	// Err carries the failure for error events.
	Err error
	// At is the emission time.
	At time.Time
}

// Events returns the session's event stream. The channel is closed by
// Close. Slow consumers lose events rather than stalling the engine.
func (s *Session) Events() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

// emit delivers an event to the channel and the optional callback. The
// send never blocks: when the buffer is full the event is dropped and
// logged, since sync progress must not depend on consumer speed.
func (s *Session) emit(ev Event) {
	ev.At = time.Now()

	s.mu.Lock()
	ch := s.events
	cb := s.callback
	s.mu.Unlock()

	if cb != nil {
		cb(ev)
	}
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
		s.log.Warn("event dropped, buffer full", zap.String("kind", string(ev.Kind)))
	}
}
