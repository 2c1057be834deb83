// SPDX-License-Identifier: MIT
package gitx_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/gitpost/internal/gitx"
)

var _ = Describe("ParseWorktreeList", func() {
	It("returns nil for empty output", func() {
		Expect(gitx.ParseWorktreeList("")).To(BeNil())
	})

	It("parses the primary worktree", func() {
		output := "worktree /home/u/notes\nHEAD 1f2e3d4c5b6a79881f2e3d4c5b6a79881f2e3d4c\nbranch refs/heads/main\n"
		entries := gitx.ParseWorktreeList(output)
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Path).To(Equal("/home/u/notes"))
		Expect(entries[0].Head).To(Equal("1f2e3d4c5b6a79881f2e3d4c5b6a79881f2e3d4c"))
		Expect(entries[0].Branch).To(Equal("main"))
	})

	It("parses multiple blank-line separated entries", func() {
		output := "worktree /home/u/notes\nHEAD aaaa\nbranch refs/heads/main\n\n" +
			"worktree /home/u/notes/.git/gitpost/worktree\nHEAD bbbb\nbranch refs/heads/gitpost-data\n"
		entries := gitx.ParseWorktreeList(output)
		Expect(entries).To(HaveLen(2))
		Expect(entries[1].Path).To(Equal("/home/u/notes/.git/gitpost/worktree"))
		Expect(entries[1].Branch).To(Equal("gitpost-data"))
	})

	It("marks bare entries", func() {
		output := "worktree /srv/git/store.git\nbare\n"
		entries := gitx.ParseWorktreeList(output)
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Bare).To(BeTrue())
		Expect(entries[0].Branch).To(Equal(""))
	})

	It("marks detached entries", func() {
		output := "worktree /tmp/wt\nHEAD cccc\ndetached\n"
		entries := gitx.ParseWorktreeList(output)
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Detached).To(BeTrue())
	})

	It("marks prunable entries with and without reasons", func() {
		output := "worktree /gone/wt\nHEAD dddd\nbranch refs/heads/gitpost-data\nprunable gitdir file points to non-existent location\n\n" +
			"worktree /also/gone\nHEAD eeee\nprunable\n"
		entries := gitx.ParseWorktreeList(output)
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].Prunable).To(BeTrue())
		Expect(entries[1].Prunable).To(BeTrue())
	})

	It("tolerates missing trailing blank line", func() {
		output := "worktree /a\nHEAD 1\n\nworktree /b\nHEAD 2"
		entries := gitx.ParseWorktreeList(output)
		Expect(entries).To(HaveLen(2))
	})

	It("skips attribute lines before any worktree line", func() {
		output := "HEAD orphaned\n\nworktree /a\nHEAD 1\n"
		entries := gitx.ParseWorktreeList(output)
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Path).To(Equal("/a"))
	})

	It("handles CRLF line endings", func() {
		output := "worktree /a\r\nHEAD 1\r\nbranch refs/heads/main\r\n"
		entries := gitx.ParseWorktreeList(output)
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Branch).To(Equal("main"))
	})
})

var _ = Describe("ParseRevListCount", func() {
	It("parses normal counts", func() {
		ahead, behind := gitx.ParseRevListCount("2\t3")
		Expect(ahead).To(Equal(2))
		Expect(behind).To(Equal(3))
	})

	It("parses zeros", func() {
		ahead, behind := gitx.ParseRevListCount("0\t0")
		Expect(ahead).To(Equal(0))
		Expect(behind).To(Equal(0))
	})

	It("handles empty string", func() {
		ahead, behind := gitx.ParseRevListCount("")
		Expect(ahead).To(Equal(0))
		Expect(behind).To(Equal(0))
	})

	It("handles trailing whitespace", func() {
		ahead, behind := gitx.ParseRevListCount("5\t10\n")
		Expect(ahead).To(Equal(5))
		Expect(behind).To(Equal(10))
	})

	It("returns zeros for malformed output", func() {
		ahead, behind := gitx.ParseRevListCount("what")
		Expect(ahead).To(Equal(0))
		Expect(behind).To(Equal(0))
	})
})
