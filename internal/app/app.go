package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rancher/pages-deploy-action/internal/event"
	"github.com/rancher/pages-deploy-action/internal/git"
	gh "github.com/rancher/pages-deploy-action/internal/github"
	"github.com/rancher/pages-deploy-action/internal/orchestrator"
)

// ErrDeploymentFailed is returned by Run when the deployment ends in the failed status.
var ErrDeploymentFailed = errors.New("deployment failed")

// Runner glues together the orchestrator and supporting services to execute the deployment.
type Runner struct {
	cfg       Config
	log       *slog.Logger
	ghFactory gh.Factory
	gitRunner git.Runner // only set for testing via NewRunnerWithDeps
	stdout    io.Writer
}

// NewRunner constructs a Runner with the supplied configuration.
func NewRunner(cfg Config) (*Runner, error) {
	logger, err := NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &Runner{
		cfg:       cfg,
		log:       logger,
		ghFactory: gh.NewRESTFactory(cfg.GitHubBaseURL, cfg.GitHubUploadURL),
		stdout:    os.Stdout,
	}, nil
}

// NewRunnerWithDeps constructs a Runner with injected dependencies for testing.
func NewRunnerWithDeps(cfg Config, log *slog.Logger, ghFactory gh.Factory, runner git.Runner, stdout io.Writer) *Runner {
	if stdout == nil {
		stdout = io.Discard
	}
	return &Runner{cfg: cfg, log: log, ghFactory: ghFactory, gitRunner: runner, stdout: stdout}
}

// Run executes the deployment, reports the status to the workflow and returns
// the orchestrator result. The error is non-nil only when the status is failed.
func (r *Runner) Run(ctx context.Context) (orchestrator.Result, error) {
	log := r.logger()
	log.Info("starting pages deployment",
		"folder", r.cfg.Folder,
		"branch", r.cfg.TargetBranch,
		"base_branch", r.cfg.BaseBranch,
		"ensure_branch", string(r.cfg.BranchPolicy),
		"dry_run", r.cfg.DryRun,
	)

	payload := r.loadEvent()

	repository := r.cfg.Repository
	if repository == "" {
		repository = payload.Repository.FullName()
	}

	name, email := committer(r.cfg, payload)
	settings := orchestrator.Settings{
		BuildDirectory:     r.cfg.Folder,
		WorkspaceDirectory: r.cfg.Workspace,
		TargetBranch:       r.cfg.TargetBranch,
		BaseBranch:         r.cfg.BaseBranch,
		CommitterName:      name,
		CommitterEmail:     email,
		HasCredential:      r.cfg.HasCredential(),
		RevisionID:         orchestrator.RevisionFromEnv(),
	}
	if settings.RevisionID == "" {
		settings.RevisionID = payload.After
	}

	details := summaryDetails{
		Repository:   repository,
		BaseBranch:   settings.BaseBranch,
		TargetBranch: settings.TargetBranch,
		Revision:     settings.RevisionID,
		DryRun:       r.cfg.DryRun,
	}

	result, err := r.deploy(ctx, repository, settings)
	if err != nil {
		result = orchestrator.Result{Status: orchestrator.StatusFailed, Err: err}
	}

	log.Info("deployment finished", "status", string(result.Status), "warnings", len(result.Warnings))

	if _, err := fmt.Fprintln(r.stdout, result.Status.Message()); err != nil {
		log.Warn("failed to print deployment status", "error", err)
	}

	if err := writeStatus(result.Status); err != nil {
		log.Warn("failed to write deployment status", "error", err)
	}

	if err := writeStepSummary(result, details); err != nil {
		log.Warn("failed to write step summary", "error", err)
	}

	if result.Status == orchestrator.StatusFailed {
		if result.Err != nil {
			return result, fmt.Errorf("%w: %w", ErrDeploymentFailed, result.Err)
		}
		return result, ErrDeploymentFailed
	}

	return result, nil
}

// deploy prepares credentials and collaborators, then runs the orchestrator.
func (r *Runner) deploy(ctx context.Context, repository string, settings orchestrator.Settings) (orchestrator.Result, error) {
	log := r.logger()

	var remote string
	switch {
	case repository != "":
		built, tokenType, err := repositoryURL(r.cfg, repository)
		if err != nil {
			return orchestrator.Result{}, fmt.Errorf("build repository url: %w", err)
		}
		remote = built
		log.Info("resolved deployment remote", "repository", repository, "remote", git.Redact(remote), "token_type", tokenType)
	case settings.HasCredential:
		return orchestrator.Result{}, fmt.Errorf("repository is required (set INPUT_REPOSITORY_NAME or GITHUB_REPOSITORY)")
	}
	settings.RemoteURL = remote

	var env []string
	if r.cfg.pushToken() == "" && strings.TrimSpace(r.cfg.SSHKey) != "" {
		key, err := writeSSHKey(r.cfg.SSHKey)
		if err != nil {
			return orchestrator.Result{}, fmt.Errorf("configure ssh key: %w", err)
		}
		defer func() {
			if err := key.Remove(); err != nil {
				log.Warn("failed to remove ssh key", "error", err)
			}
		}()
		env = key.Env()
	}

	runner := r.buildGitRunner(env)

	orchCfg := orchestrator.Config{BranchPolicy: r.cfg.BranchPolicy}
	if orchCfg.BranchPolicy == orchestrator.BranchPolicyIfMissing {
		orchCfg.Checker = r.branchChecker(ctx, repository, remote, runner)
	}

	return orchestrator.New(orchCfg, settings, runner, log).Run(ctx), nil
}

func (r *Runner) buildGitRunner(env []string) git.Runner {
	runner := r.gitRunner
	if runner == nil {
		shell := git.NewShellRunner()
		shell.Env = env
		shell.Log = r.log
		runner = shell
	}

	if r.cfg.DryRun {
		return git.NewDryRunRunner(runner, r.log)
	}
	return runner
}

// branchChecker prefers the REST API when a token is available and falls back
// to ls-remote against the deployment remote.
func (r *Runner) branchChecker(ctx context.Context, repository, remote string, runner git.Runner) orchestrator.BranchChecker {
	fallback := orchestrator.RemoteBranchChecker{Runner: runner, RemoteURL: remote, Dir: r.cfg.Workspace}

	token := r.cfg.apiToken()
	if token == "" || r.ghFactory == nil {
		return fallback
	}

	owner, name, err := splitRepository(repository)
	if err != nil {
		return fallback
	}

	client, err := r.ghFactory.New(ctx, token)
	if err != nil {
		r.logger().Debug("github client unavailable, checking branch with git", "error", err)
		return fallback
	}

	return gh.BranchChecker{Client: client, Owner: owner, Repo: name, Log: r.log}
}

// loadEvent reads the triggering event when one is available. Only push events
// carry the fields used here; any other payload decodes to empty values.
func (r *Runner) loadEvent() event.PushPayload {
	path := strings.TrimSpace(os.Getenv("GITHUB_EVENT_PATH"))
	if path == "" {
		return event.PushPayload{}
	}

	payload, err := event.ParsePushEventFile(path)
	if err != nil {
		r.logger().Debug("ignoring unreadable event payload", "path", path, "error", err)
		return event.PushPayload{}
	}
	return payload
}

func (r *Runner) logger() *slog.Logger {
	if r.log != nil {
		return r.log
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
