// SPDX-License-Identifier: MIT
package engine

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skaphos/gitpost/internal/gitx"
	"github.com/skaphos/gitpost/internal/model"
)

// probeResult is the outcome of a write-access probe.
type probeResult struct {
	CanWrite bool
	// Reason explains a denial ("no-permission").
	Reason string
	// Warning records a swallowed cleanup failure on success.
	Warning string
}

const reasonNoPermission = "no-permission"

// checkWriteAccess determines truthfully whether the remote accepts
// pushes. A dry-run cannot answer this because it never reaches the
// server's authorization layer, so the probe pushes a disposable root
// commit to a throwaway ref and reads the server's verdict.
//
// Only an unambiguous denial reports non-writable: false negatives
// would block local-only operation that must always work, so every
// other failure (network, ambiguous auth) stays optimistic and leaves
// discovery to the first real push.
func (s *Session) checkWriteAccess(ctx context.Context) probeResult {
	if !s.hasRemote {
		return probeResult{CanWrite: true}
	}
	dir := s.handle.Path

	tree, err := s.repo.WriteEmptyTree(ctx, dir)
	if err != nil {
		s.log.Warn("probe: empty tree failed, assuming writable", zap.Error(err))
		return probeResult{CanWrite: true}
	}
	commit, err := s.repo.CommitTree(ctx, dir, tree, "gitpost: write access probe")
	if err != nil {
		s.log.Warn("probe: commit-tree failed, assuming writable", zap.Error(err))
		return probeResult{CanWrite: true}
	}

	ref := model.ProbeRefPrefix + uuid.NewString()
	if err := s.repo.PushRef(ctx, dir, s.handle.Remote, commit+":"+ref); err != nil {
		if gitx.Classify(err) == gitx.KindPermission {
			s.log.Info("probe: push denied", zap.String("ref", ref))
			return probeResult{Reason: reasonNoPermission}
		}
		s.log.Warn("probe: push failed ambiguously, assuming writable", zap.Error(err))
		return probeResult{CanWrite: true}
	}

	// The probe ref is disposable; a failed delete leaves junk on the
	// remote but must not fail the probe.
	if err := s.repo.PushRef(ctx, dir, s.handle.Remote, ":"+ref); err != nil {
		s.log.Warn("probe: ref cleanup failed", zap.String("ref", ref), zap.Error(err))
		return probeResult{CanWrite: true, Warning: "probe ref cleanup failed: " + ref}
	}
	return probeResult{CanWrite: true}
}
