package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/gitpost/internal/config"
	"github.com/skaphos/gitpost/internal/registry"
)

var _ = Describe("Config", func() {
	It("resolves config path from override directory", func() {
		path, err := config.ConfigPath(filepath.Join("tmp", "gitpost"))
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveSuffix(filepath.Join("gitpost", "config.yaml")))
	})

	It("resolves config path from override file", func() {
		path, err := config.ConfigPath(filepath.Join("tmp", "config.yaml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveSuffix(filepath.Join("tmp", "config.yaml")))
	})

	It("resolves config path from env", func() {
		Expect(os.Setenv(config.EnvConfig, filepath.Join("cfg", "config.yaml"))).To(Succeed())
		defer func() { _ = os.Unsetenv(config.EnvConfig) }()
		path, err := config.ConfigPath("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveSuffix(filepath.Join("cfg", "config.yaml")))
	})

	It("resolves init path to local dotfile by default", func() {
		dir := GinkgoT().TempDir()
		path, err := config.InitConfigPath("", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(dir, ".gitpost.yaml")))
	})

	It("prefers local dotfile for runtime config resolution", func() {
		dir := GinkgoT().TempDir()
		localPath := filepath.Join(dir, ".gitpost.yaml")
		Expect(os.WriteFile(localPath, []byte("exclude: []\n"), 0o644)).To(Succeed())

		path, err := config.ResolveConfigPath("", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(localPath))
	})

	It("resolves runtime config from nearest parent dotfile", func() {
		dir := GinkgoT().TempDir()
		parentPath := filepath.Join(dir, ".gitpost.yaml")
		Expect(os.WriteFile(parentPath, []byte("exclude: []\n"), 0o644)).To(Succeed())

		nested := filepath.Join(dir, "a", "b", "c")
		Expect(os.MkdirAll(nested, 0o755)).To(Succeed())

		path, err := config.ResolveConfigPath("", nested)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(parentPath))
	})

	It("prefers nearer dotfile over farther parent", func() {
		dir := GinkgoT().TempDir()
		parentPath := filepath.Join(dir, ".gitpost.yaml")
		Expect(os.WriteFile(parentPath, []byte("exclude: []\n"), 0o644)).To(Succeed())

		childDir := filepath.Join(dir, "a", "b")
		Expect(os.MkdirAll(childDir, 0o755)).To(Succeed())
		childPath := filepath.Join(childDir, ".gitpost.yaml")
		Expect(os.WriteFile(childPath, []byte("exclude: []\n"), 0o644)).To(Succeed())

		nested := filepath.Join(childDir, "c")
		Expect(os.MkdirAll(nested, 0o755)).To(Succeed())

		path, err := config.ResolveConfigPath("", nested)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(childPath))
	})

	It("falls back to global runtime config when local dotfile is absent", func() {
		dir := GinkgoT().TempDir()
		path, err := config.ResolveConfigPath("", dir)
		Expect(err).NotTo(HaveOccurred())

		globalPath, err := config.ConfigPath("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(globalPath))
	})

	It("saves and loads config with defaults", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "config.yaml")
		cfg := config.DefaultConfig()
		cfg.Defaults.Sender = "alice"
		cfg.RegistryPath = "registry.yaml"

		Expect(config.Save(&cfg, path)).To(Succeed())
		loaded, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Defaults.Sender).To(Equal("alice"))
		Expect(loaded.Defaults.RemoteName).To(Equal("origin"))
		Expect(loaded.Defaults.SyncIntervalSeconds).To(Equal(10))
	})

	It("backfills zero defaults on load", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "config.yaml")
		raw := "apiVersion: skaphos.io/gitpost/v1beta1\nkind: GitPostConfig\ndefaults:\n  sync_interval_seconds: 0\n"
		Expect(os.WriteFile(path, []byte(raw), 0o644)).To(Succeed())

		loaded, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Defaults.SyncIntervalSeconds).To(Equal(10))
		Expect(loaded.Defaults.TimeoutSeconds).To(Equal(60))
		Expect(loaded.Defaults.DebounceMillis).To(Equal(500))
	})

	It("loads the registry referenced by registry_path", func() {
		dir := GinkgoT().TempDir()
		regPath := filepath.Join(dir, "registry.yaml")
		reg := &registry.Registry{Entries: []registry.Entry{
			{StoreID: "github.com/team/notes", Path: filepath.Join(dir, "notes"), Status: registry.StatusPresent},
		}}
		Expect(registry.Save(reg, regPath)).To(Succeed())

		cfgPath := filepath.Join(dir, "config.yaml")
		cfg := config.DefaultConfig()
		cfg.RegistryPath = "registry.yaml"
		Expect(config.Save(&cfg, cfgPath)).To(Succeed())

		loaded, err := config.Load(cfgPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Registry).NotTo(BeNil())
		Expect(loaded.Registry.Entries).To(HaveLen(1))
		Expect(loaded.Registry.Entries[0].StoreID).To(Equal("github.com/team/notes"))
	})

	It("rejects configs with a foreign apiVersion", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "config.yaml")
		raw := "apiVersion: example.io/v1\nkind: GitPostConfig\n"
		Expect(os.WriteFile(path, []byte(raw), 0o644)).To(Succeed())

		_, err := config.Load(path)
		Expect(err).To(MatchError(ContainSubstring("unsupported config apiVersion")))
	})

	It("converts interval fields to durations", func() {
		cfg := config.DefaultConfig()
		Expect(cfg.SyncInterval()).To(Equal(10 * time.Second))
		Expect(cfg.OpTimeout()).To(Equal(60 * time.Second))
		Expect(cfg.Debounce()).To(Equal(500 * time.Millisecond))
	})

	It("returns an RFC3339 timestamp for last updated", func() {
		ts := config.LastUpdated()
		_, err := time.Parse(time.RFC3339, ts)
		Expect(err).NotTo(HaveOccurred())
	})
})
