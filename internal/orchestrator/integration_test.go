package orchestrator_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rancher/pages-deploy-action/internal/git"
	"github.com/rancher/pages-deploy-action/internal/orchestrator"
)

func gitCmd(dir string, args ...string) string {
	GinkgoHelper()
	if dir != "" {
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		args = append([]string{"-C", dir}, args...)
	}
	cmd := exec.Command("git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	Expect(err).NotTo(HaveOccurred(), "git %s\n%s", strings.Join(args, " "), string(out))
	return strings.TrimSpace(string(out))
}

func writeFile(path, contents string) {
	GinkgoHelper()
	Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(contents), 0o644)).To(Succeed())
}

func checkoutFiles(dir string) []string {
	GinkgoHelper()
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if !d.IsDir() {
			rel, relErr := filepath.Rel(dir, path)
			if relErr != nil {
				return relErr
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	Expect(err).NotTo(HaveOccurred())
	return files
}

var _ = Describe("Deployment against a real remote", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		tmp       string
		remoteDir string
		buildDir  string
		runner    *git.ShellRunner
		settings  orchestrator.Settings
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), time.Minute)
		DeferCleanup(cancel)

		tmp = GinkgoT().TempDir()
		remoteDir = filepath.Join(tmp, "remote.git")
		buildDir = filepath.Join(tmp, "build")

		gitCmd("", "init", "--bare", remoteDir)
		writeFile(filepath.Join(buildDir, "index.html"), "<h1>hello</h1>\n")

		runner = &git.ShellRunner{NetworkRetries: -1}
		settings = orchestrator.Settings{
			BuildDirectory: buildDir,
			TargetBranch:   "gh-pages",
			BaseBranch:     "main",
			RemoteURL:      remoteDir,
			CommitterName:  "Pages Bot",
			CommitterEmail: "bot@example.com",
			HasCredential:  true,
			RevisionID:     "abc123",
		}
	})

	It("publishes the build directory and skips an unchanged repeat", func() {
		result := orchestrator.New(orchestrator.Config{}, settings, runner, nil).Run(ctx)
		Expect(result.Err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(orchestrator.StatusSuccess))

		Expect(gitCmd("", "--git-dir", remoteDir, "ls-tree", "--name-only", "gh-pages")).To(Equal("index.html"))
		Expect(gitCmd("", "--git-dir", remoteDir, "log", "-1", "--format=%s", "gh-pages")).To(Equal("Deploying to gh-pages from main abc123"))
		Expect(gitCmd("", "--git-dir", remoteDir, "log", "-1", "--format=%an <%ae>", "gh-pages")).To(Equal("Pages Bot <bot@example.com>"))

		clone := filepath.Join(tmp, "clone")
		gitCmd("", "clone", "--branch", "gh-pages", remoteDir, clone)
		Expect(checkoutFiles(clone)).To(ConsistOf("index.html"))

		head := gitCmd("", "--git-dir", remoteDir, "rev-parse", "gh-pages")

		repeat := orchestrator.New(orchestrator.Config{}, settings, runner, nil).Run(ctx)
		Expect(repeat.Err).NotTo(HaveOccurred())
		Expect(repeat.Status).To(Equal(orchestrator.StatusSkipped))
		Expect(gitCmd("", "--git-dir", remoteDir, "rev-parse", "gh-pages")).To(Equal(head))
	})

	It("publishes deletions on the next run", func() {
		writeFile(filepath.Join(buildDir, "old.css"), "body{}\n")
		result := orchestrator.New(orchestrator.Config{}, settings, runner, nil).Run(ctx)
		Expect(result.Status).To(Equal(orchestrator.StatusSuccess))

		Expect(os.Remove(filepath.Join(buildDir, "old.css"))).To(Succeed())
		result = orchestrator.New(orchestrator.Config{}, settings, runner, nil).Run(ctx)
		Expect(result.Status).To(Equal(orchestrator.StatusSuccess))

		Expect(gitCmd("", "--git-dir", remoteDir, "ls-tree", "--name-only", "gh-pages")).To(Equal("index.html"))
	})

	It("fails without touching the remote when no credential is present", func() {
		settings.HasCredential = false

		result := orchestrator.New(orchestrator.Config{}, settings, runner, nil).Run(ctx)
		Expect(result.Status).To(Equal(orchestrator.StatusFailed))
		Expect(gitCmd("", "--git-dir", remoteDir, "for-each-ref")).To(BeEmpty())
		Expect(filepath.Join(buildDir, ".git")).NotTo(BeADirectory())
	})

	Context("with a source checkout", func() {
		var workspace string

		BeforeEach(func() {
			workspace = filepath.Join(tmp, "workspace")
			gitCmd(workspace, "init")
			gitCmd(workspace, "config", "user.name", "Test User")
			gitCmd(workspace, "config", "user.email", "test@example.com")
			writeFile(filepath.Join(workspace, "README.md"), "source\n")
			gitCmd(workspace, "add", "README.md")
			gitCmd(workspace, "commit", "-m", "initial commit")
			gitCmd(workspace, "branch", "-M", "main")
			gitCmd(workspace, "remote", "add", "origin", remoteDir)
			gitCmd(workspace, "push", "-u", "origin", "main")

			settings.WorkspaceDirectory = workspace
		})

		It("creates an empty orphan branch and returns to the base branch", func() {
			Expect(orchestrator.EnsureBranch(ctx, runner, settings)).To(Succeed())

			Expect(gitCmd(workspace, "rev-parse", "--abbrev-ref", "HEAD")).To(Equal("main"))
			Expect(filepath.Join(workspace, "README.md")).To(BeAnExistingFile())

			Expect(gitCmd("", "--git-dir", remoteDir, "rev-list", "--count", "gh-pages")).To(Equal("1"))
			Expect(gitCmd("", "--git-dir", remoteDir, "ls-tree", "gh-pages")).To(BeEmpty())
			Expect(gitCmd("", "--git-dir", remoteDir, "log", "-1", "--format=%s", "gh-pages")).To(Equal("Initial gh-pages commit."))
		})

		It("replaces the branch history with the deployed commit", func() {
			checker := orchestrator.RemoteBranchChecker{Runner: runner, RemoteURL: remoteDir, Dir: workspace}

			exists, err := checker.BranchExists(ctx, "gh-pages")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())

			cfg := orchestrator.Config{BranchPolicy: orchestrator.BranchPolicyIfMissing, Checker: checker}
			result := orchestrator.New(cfg, settings, runner, nil).Run(ctx)
			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Warnings).To(BeEmpty())
			Expect(result.Status).To(Equal(orchestrator.StatusSuccess))

			exists, err = checker.BranchExists(ctx, "gh-pages")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())

			Expect(gitCmd("", "--git-dir", remoteDir, "rev-list", "--count", "gh-pages")).To(Equal("1"))
			Expect(gitCmd("", "--git-dir", remoteDir, "ls-tree", "--name-only", "gh-pages")).To(Equal("index.html"))
			Expect(gitCmd(workspace, "rev-parse", "--abbrev-ref", "HEAD")).To(Equal("main"))
		})
	})
})
