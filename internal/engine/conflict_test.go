// SPDX-License-Identifier: MIT
package engine_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/gitpost/internal/engine"
	"github.com/skaphos/gitpost/internal/model"
)

var _ = Describe("sync conflict handling", func() {
	const record = "20260110T090000-ivy-111111.md"

	var (
		stub      *storeStub
		sess      *engine.Session
		collector *eventCollector
	)

	BeforeEach(func() {
		stub = newStoreStub(GinkgoT())
		stub.remoteURL = "git@example.com:team/notes.git"
		stub.remoteBranch = true
		stub.remoteHead = "base01"
		stub.checkout = map[string]string{filepath.Join(model.SeedChannel, ".gitkeep"): ""}
		collector = &eventCollector{}
		sess = stub.session(engine.WithEventCallback(collector.add))
		_, err := sess.Initialize(context.Background())
		Expect(err).NotTo(HaveOccurred())

		// A queued local record and a diverged remote.
		Expect(sess.WriteMessage(context.Background(), model.SeedChannel, record, []byte("local side"))).To(Succeed())
		stub.SetBehind(1)
	})

	AfterEach(func() {
		sess.Close()
	})

	It("resolves conflicts local-wins and replicates the resolution", func() {
		stub.mergeErrs = append(stub.mergeErrs, conflictErr())
		stub.conflicted = []string{model.SeedChannel + "/" + record}

		outcome, err := sess.SyncOnce(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(engine.OutcomeSucceededWithWarning))

		Expect(stub.OursPaths()).To(HaveLen(1))
		Expect(stub.OursPaths()[0]).To(ConsistOf(model.SeedChannel + "/" + record))
		Expect(stub.Commits()).To(ContainElement("gitpost: resolve sync conflict (local wins)"))
		Expect(stub.MergeAborts()).To(BeZero())

		// The resolution commit rode the same pass to the remote.
		Expect(stub.Pushes()).To(Equal(1))
		Expect(sess.PushQueued()).To(BeFalse())
		Expect(collector.count(engine.EventNewContent)).To(Equal(1))
		Expect(collector.count(engine.EventPushComplete)).To(Equal(1))
	})

	It("aborts the merge when the resolution cannot be committed", func() {
		stub.mergeErrs = append(stub.mergeErrs, conflictErr())
		stub.conflicted = []string{model.SeedChannel + "/" + record}
		stub.commitErrs = append(stub.commitErrs, gitErr("fatal: could not write commit"))

		outcome, err := sess.SyncOnce(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(engine.OutcomeSucceededWithWarning))

		Expect(stub.MergeAborts()).To(Equal(1))
		Expect(stub.Commits()).NotTo(ContainElement("gitpost: resolve sync conflict (local wins)"))
		Expect(collector.count(engine.EventNewContent)).To(BeZero())
		// The queued record still went out; only the merge was given up on.
		Expect(sess.PushQueued()).To(BeFalse())
		Expect(stub.Pushes()).To(Equal(1))
	})

	It("fails the pass on a non-conflict merge error", func() {
		stub.mergeErrs = append(stub.mergeErrs, networkErr())

		outcome, err := sess.SyncOnce(context.Background())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("merge"))
		Expect(outcome).To(Equal(engine.OutcomeFailed))
		Expect(stub.MergeAborts()).To(Equal(1))
		Expect(collector.count(engine.EventSyncError)).To(Equal(1))
		Expect(sess.PushQueued()).To(BeTrue(), "the queue survives for the next pass")
	})

	It("pulls a clean merge without involving the resolver", func() {
		outcome, err := sess.SyncOnce(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(engine.OutcomeSucceeded))
		Expect(stub.OursPaths()).To(BeEmpty())
		Expect(collector.count(engine.EventNewContent)).To(Equal(1))
		Expect(stub.Head()).To(Equal("merged-base01"))
	})
})
