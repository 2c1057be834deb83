package discovery_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/gitpost/internal/discovery"
)

func gitIn(dir string, args ...string) error {
	full := append([]string{"-C", dir, "-c", "user.email=dev@example.com", "-c", "user.name=dev"}, args...)
	return exec.Command("git", full...).Run()
}

var _ = Describe("Discovery", func() {
	It("matches exclude patterns", func() {
		Expect(discovery.MatchesExclude("/code/repo/.git", []string{"**/.git/**"})).To(BeTrue())
		Expect(discovery.MatchesExclude("/code/repo", []string{"**/node_modules/**"})).To(BeFalse())
	})

	It("scans for git repositories", func() {
		root := GinkgoT().TempDir()
		repo := filepath.Join(root, "repo1")
		Expect(exec.Command("git", "init", repo).Run()).To(Succeed())

		results, err := discovery.Scan(context.Background(), discovery.Options{
			Roots: []string{root},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Path).To(Equal(repo))
		Expect(results[0].Bare).To(BeFalse())
		Expect(results[0].HasStore).To(BeFalse())
	})

	It("flags repositories carrying the data branch as stores", func() {
		root := GinkgoT().TempDir()
		repo := filepath.Join(root, "notes")
		Expect(exec.Command("git", "init", repo).Run()).To(Succeed())
		Expect(gitIn(repo, "commit", "--allow-empty", "-m", "seed")).To(Succeed())
		Expect(gitIn(repo, "branch", "gitpost-data")).To(Succeed())

		results, err := discovery.Scan(context.Background(), discovery.Options{
			Roots: []string{root},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].HasStore).To(BeTrue())
		Expect(discovery.Stores(results)).To(HaveLen(1))
	})

	It("respects exclude patterns during scan", func() {
		root := GinkgoT().TempDir()
		repo := filepath.Join(root, "vendor", "repo2")
		Expect(exec.Command("git", "init", repo).Run()).To(Succeed())

		results, err := discovery.Scan(context.Background(), discovery.Options{
			Roots:   []string{root},
			Exclude: []string{"**/vendor/**"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})

	It("detects linked .git directories", func() {
		root := GinkgoT().TempDir()
		repo := filepath.Join(root, "repo3")
		Expect(exec.Command("git", "init", repo).Run()).To(Succeed())

		gitDir := filepath.Join(root, "repo3.gitdir")
		Expect(os.Rename(filepath.Join(repo, ".git"), gitDir)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(repo, ".git"), []byte("gitdir: "+gitDir), 0o644)).To(Succeed())

		results, err := discovery.Scan(context.Background(), discovery.Options{
			Roots: []string{root},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Path).To(Equal(repo))
	})

	It("resolves the repo root from a nested directory", func() {
		root := GinkgoT().TempDir()
		repo := filepath.Join(root, "repo4")
		Expect(exec.Command("git", "init", repo).Run()).To(Succeed())
		nested := filepath.Join(repo, "a", "b")
		Expect(os.MkdirAll(nested, 0o755)).To(Succeed())

		top, err := discovery.FindRepoRoot(context.Background(), nil, nested)
		Expect(err).NotTo(HaveOccurred())
		resolved, err := filepath.EvalSymlinks(repo)
		Expect(err).NotTo(HaveOccurred())
		Expect(top).To(Equal(resolved))
	})
})
