package registry_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/gitpost/internal/registry"
)

var _ = Describe("Registry", func() {
	It("saves and loads registry", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "registry.yaml")
		reg := &registry.Registry{
			UpdatedAt: time.Now(),
			Entries: []registry.Entry{
				{StoreID: "github.com/team/notes", Path: filepath.Join(dir, "notes"), LastSeen: time.Now(), Status: registry.StatusPresent},
			},
		}
		Expect(registry.Save(reg, path)).To(Succeed())
		loaded, err := registry.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Entries).To(HaveLen(1))
		Expect(loaded.Entries[0].StoreID).To(Equal("github.com/team/notes"))
	})

	It("upserts entries by store ID", func() {
		reg := &registry.Registry{}
		reg.Upsert(registry.Entry{StoreID: "store1", Path: "/a", Status: registry.StatusPresent})
		reg.Upsert(registry.Entry{StoreID: "store1", Path: "/a", RemoteURL: "git@example.com:team/notes.git"})
		Expect(reg.Entries).To(HaveLen(1))
		Expect(reg.Entries[0].RemoteURL).To(Equal("git@example.com:team/notes.git"))
		Expect(reg.Entries[0].Status).To(Equal(registry.StatusPresent))
	})

	It("marks relocated stores as moved", func() {
		reg := &registry.Registry{}
		reg.Upsert(registry.Entry{StoreID: "store1", Path: "/a", Status: registry.StatusPresent})
		reg.Upsert(registry.Entry{StoreID: "store1", Path: "/b"})
		Expect(reg.Entries).To(HaveLen(1))
		Expect(reg.Entries[0].Path).To(Equal("/b"))
		Expect(reg.Entries[0].Status).To(Equal(registry.StatusMoved))
	})

	It("keeps remote, worktree, and sync details across sparse upserts", func() {
		reg := &registry.Registry{}
		stamp := time.Now().Add(-time.Hour)
		reg.Upsert(registry.Entry{
			StoreID:      "store1",
			Path:         "/a",
			RemoteName:   "origin",
			WorktreePath: "/a/.git/gitpost/worktree",
			Access:       "writable",
			LastSyncAt:   stamp,
			LastSyncOK:   true,
		})
		reg.Upsert(registry.Entry{StoreID: "store1", Path: "/a", LastSeen: time.Now()})
		Expect(reg.Entries[0].RemoteName).To(Equal("origin"))
		Expect(reg.Entries[0].WorktreePath).To(Equal("/a/.git/gitpost/worktree"))
		Expect(reg.Entries[0].Access).To(Equal("writable"))
		Expect(reg.Entries[0].LastSyncAt).To(BeTemporally("==", stamp))
		Expect(reg.Entries[0].LastSyncOK).To(BeTrue())
	})

	It("records sync outcomes", func() {
		reg := &registry.Registry{Entries: []registry.Entry{{StoreID: "store1", Path: "/a"}}}
		at := time.Now()
		Expect(reg.RecordSync("store1", at, true)).To(BeTrue())
		Expect(reg.Entries[0].LastSyncAt).To(BeTemporally("==", at))
		Expect(reg.Entries[0].LastSyncOK).To(BeTrue())
		Expect(reg.Entries[0].LastSeen).To(BeTemporally("==", at))
		Expect(reg.RecordSync("unknown", at, false)).To(BeFalse())
	})

	It("validates paths and marks missing", func() {
		dir := GinkgoT().TempDir()
		existing := filepath.Join(dir, "exists")
		Expect(os.MkdirAll(existing, 0o755)).To(Succeed())
		reg := &registry.Registry{
			Entries: []registry.Entry{
				{StoreID: "store1", Path: existing},
				{StoreID: "store2", Path: filepath.Join(dir, "missing")},
			},
		}
		Expect(reg.ValidatePaths()).To(Succeed())
		Expect(reg.Entries[0].Status).To(Equal(registry.StatusPresent))
		Expect(reg.Entries[1].Status).To(Equal(registry.StatusMissing))
	})

	It("prunes stale missing entries", func() {
		old := time.Now().Add(-48 * time.Hour)
		reg := &registry.Registry{
			Entries: []registry.Entry{
				{StoreID: "old", Status: registry.StatusMissing, LastSeen: old},
				{StoreID: "new", Status: registry.StatusMissing, LastSeen: time.Now()},
			},
		}
		pruned := reg.PruneStale(24 * time.Hour)
		Expect(pruned).To(Equal(1))
		Expect(reg.Entries).To(HaveLen(1))
		Expect(reg.Entries[0].StoreID).To(Equal("new"))
	})

	It("finds entries by store ID and by path", func() {
		reg := &registry.Registry{Entries: []registry.Entry{{StoreID: "store1", Path: "/data/notes"}}}
		entry := reg.FindByStoreID("store1")
		Expect(entry).NotTo(BeNil())
		Expect(entry.StoreID).To(Equal("store1"))
		Expect(reg.FindByPath("/data/notes/")).NotTo(BeNil())
		Expect(reg.FindByPath("/data/other")).To(BeNil())
		Expect(reg.FindByStoreID("absent")).To(BeNil())
	})
})
