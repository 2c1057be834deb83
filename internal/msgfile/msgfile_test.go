// SPDX-License-Identifier: MIT
package msgfile_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/gitpost/internal/model"
	"github.com/skaphos/gitpost/internal/msgfile"
)

var _ = Describe("Filename", func() {
	It("encodes timestamp, sender, and id", func() {
		at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		name := msgfile.Filename(at, "alice")
		Expect(name).To(HavePrefix("20260314T092653-alice-"))
		Expect(name).To(HaveSuffix(".md"))

		info, ok := msgfile.ParseFilename(name)
		Expect(ok).To(BeTrue())
		Expect(info.Time).To(Equal(at))
		Expect(info.Sender).To(Equal("alice"))
		Expect(info.ID).To(HaveLen(6))
	})

	It("normalizes the timestamp to UTC", func() {
		zone := time.FixedZone("plus2", 2*60*60)
		at := time.Date(2026, 3, 14, 11, 0, 0, 0, zone)
		name := msgfile.Filename(at, "alice")
		Expect(name).To(HavePrefix("20260314T090000-"))
	})

	It("generates distinct ids for same-second posts", func() {
		at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
		Expect(msgfile.Filename(at, "alice")).NotTo(Equal(msgfile.Filename(at, "alice")))
	})

	DescribeTable("sanitizes senders",
		func(sender, want string) {
			Expect(msgfile.SanitizeSender(sender)).To(Equal(want))
		},
		Entry("already clean", "alice", "alice"),
		Entry("uppercase", "Alice", "alice"),
		Entry("email", "Alice@Example.com", "aliceexamplecom"),
		Entry("spaces and punctuation", "A. Lice-Smith", "alicesmith"),
		Entry("digits survive", "agent007", "agent007"),
		Entry("nothing usable", "@@@", "anon"),
		Entry("empty", "", "anon"),
	)
})

var _ = Describe("ParseFilename", func() {
	DescribeTable("rejects malformed names",
		func(name string) {
			_, ok := msgfile.ParseFilename(name)
			Expect(ok).To(BeFalse())
		},
		Entry("wrong extension", "20260314T092653-alice-a1b2c3.txt"),
		Entry("no timestamp", "alice-a1b2c3.md"),
		Entry("bad timestamp", "2026-03-14-alice-a1b2c3.md"),
		Entry("missing sender", "20260314T092653--a1b2c3.md"),
		Entry("uppercase sender", "20260314T092653-Alice-a1b2c3.md"),
		Entry("short id", "20260314T092653-alice-a1b.md"),
		Entry("long id", "20260314T092653-alice-a1b2c3d4.md"),
		Entry("non-alnum id", "20260314T092653-alice-a1b_c3.md"),
		Entry("extra segment", "20260314T092653-alice-bob-a1b2c3.md"),
		Entry("empty", ""),
		Entry("plain note", "notes.md"),
	)

	It("accepts a canonical name", func() {
		info, ok := msgfile.ParseFilename("20251231T235959-bob42-zz9top.md")
		Expect(ok).To(BeTrue())
		Expect(info.Sender).To(Equal("bob42"))
		Expect(info.ID).To(Equal("zz9top"))
		Expect(info.Time.Year()).To(Equal(2025))
	})
})

var _ = Describe("Compose and Parse", func() {
	It("round-trips a full header", func() {
		meta := model.MessageMeta{
			From:        "alice",
			Date:        "2026-03-14T09:26:53Z",
			ReplyTo:     "20260314T090000-bob-x1y2z3.md",
			Tags:        []string{"infra", "urgent"},
			Attachments: []string{"attachments/diagram.png"},
		}
		data, err := msgfile.Compose(meta, "The fetch loop stalls on large packs.\n")
		Expect(err).NotTo(HaveOccurred())

		got, body, err := msgfile.Parse(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(meta))
		Expect(body).To(Equal("The fetch loop stalls on large packs.\n"))
	})

	It("separates header and body with a blank line", func() {
		meta := model.MessageMeta{From: "alice", Date: "2026-03-14T09:26:53Z"}
		data, err := msgfile.Compose(meta, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Count(string(data), "\n\n")).To(Equal(1))
		Expect(string(data)).To(HaveSuffix("hello\n"))
	})

	It("requires from", func() {
		_, err := msgfile.Compose(model.MessageMeta{Date: "2026-03-14T09:26:53Z"}, "x")
		Expect(err).To(MatchError(ContainSubstring("from")))
	})

	It("requires date", func() {
		_, err := msgfile.Compose(model.MessageMeta{From: "alice"}, "x")
		Expect(err).To(MatchError(ContainSubstring("date")))
	})

	It("rejects content without a separator", func() {
		_, _, err := msgfile.Parse([]byte("from: alice\ndate: 2026-01-01\nno separator"))
		Expect(err).To(MatchError(ContainSubstring("separator")))
	})

	It("rejects a non-YAML header", func() {
		_, _, err := msgfile.Parse([]byte("not: [valid\n\nbody"))
		Expect(err).To(HaveOccurred())
	})

	It("rejects a header missing required fields", func() {
		_, _, err := msgfile.Parse([]byte("from: alice\n\nbody"))
		Expect(err).To(MatchError(ContainSubstring("date")))
	})

	It("keeps blank lines inside the body", func() {
		meta := model.MessageMeta{From: "alice", Date: "2026-03-14T09:26:53Z"}
		body := "first paragraph\n\nsecond paragraph\n"
		data, err := msgfile.Compose(meta, body)
		Expect(err).NotTo(HaveOccurred())

		_, got, err := msgfile.Parse(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(body))
	})

	It("parses CRLF content", func() {
		data := "from: alice\r\ndate: 2026-03-14T09:26:53Z\r\n\r\nwindows body\r\n"
		meta, body, err := msgfile.Parse([]byte(data))
		Expect(err).NotTo(HaveOccurred())
		Expect(meta.From).To(Equal("alice"))
		Expect(body).To(ContainSubstring("windows body"))
	})
})
