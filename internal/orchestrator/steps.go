package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rancher/pages-deploy-action/internal/git"
)

// Initialize turns the build directory into a git repository owned by the
// configured committer. It refuses to run anything without a credential.
func Initialize(ctx context.Context, runner git.Runner, settings Settings) error {
	if !settings.HasCredential {
		return ErrMissingCredential
	}

	dir := settings.BuildDirectory
	commands := [][]string{
		{"init", "--initial-branch=" + settings.baseBranch()},
		{"config", "user.name", settings.CommitterName},
		{"config", "user.email", settings.CommitterEmail},
	}

	for _, args := range commands {
		if err := runStep(ctx, runner, StepInitialize, dir, args...); err != nil {
			return err
		}
	}
	return nil
}

// EnsureBranch creates TargetBranch on the remote as an orphan branch holding a
// single empty commit, then returns the workspace to BaseBranch.
func EnsureBranch(ctx context.Context, runner git.Runner, settings Settings) error {
	if !settings.HasCredential {
		return ErrMissingCredential
	}

	dir := settings.workspaceDirectory()
	base := settings.baseBranch()
	target := settings.TargetBranch

	if err := runStep(ctx, runner, StepEnsureBranch, dir, "switch", base); err != nil {
		return err
	}

	commit := identityArgs(settings)
	commit = append(commit, "commit", "--allow-empty", "-m", fmt.Sprintf("Initial %s commit.", target))

	commands := [][]string{
		{"switch", "--orphan", target},
		{"reset", "--hard"},
		commit,
		{"push", settings.RemoteURL, target},
	}

	for _, args := range commands {
		if err := runStep(ctx, runner, StepEnsureBranch, dir, args...); err != nil {
			// Leave the checkout where we found it; the original error wins.
			runner.Run(ctx, dir, "switch", base)
			return err
		}
	}

	return runStep(ctx, runner, StepEnsureBranch, dir, "switch", base)
}

// Deploy commits the build directory and force-pushes it over TargetBranch.
// A commit with no changes yields StatusSkipped and no error.
func Deploy(ctx context.Context, runner git.Runner, settings Settings) (Status, error) {
	if !settings.HasCredential {
		return StatusFailed, ErrMissingCredential
	}

	dir := settings.BuildDirectory
	base := settings.baseBranch()
	target := settings.TargetBranch

	if err := runStep(ctx, runner, StepDeploy, dir, "add", "--all"); err != nil {
		return StatusFailed, err
	}

	message := strings.TrimSpace(fmt.Sprintf("Deploying to %s from %s %s", target, base, settings.RevisionID))
	commit := runner.Run(ctx, dir, "commit", "-m", message, "--quiet")
	if !commit.Succeeded() {
		if nothingToCommit(ctx, runner, dir, commit) {
			return StatusSkipped, nil
		}
		return StatusFailed, newStepError(StepDeploy, commit)
	}

	if err := runStep(ctx, runner, StepDeploy, dir, "push", "--force", settings.RemoteURL, base+":"+target); err != nil {
		return StatusFailed, err
	}

	return StatusSuccess, nil
}

func runStep(ctx context.Context, runner git.Runner, step, dir string, args ...string) error {
	outcome := runner.Run(ctx, dir, args...)
	if outcome.Succeeded() {
		return nil
	}
	return newStepError(step, outcome)
}

func identityArgs(settings Settings) []string {
	var args []string
	if settings.CommitterName != "" {
		args = append(args, "-c", "user.name="+settings.CommitterName)
	}
	if settings.CommitterEmail != "" {
		args = append(args, "-c", "user.email="+settings.CommitterEmail)
	}
	return args
}

// nothingToCommit decides whether a failed commit only failed because the
// index matches HEAD. git reports this on stdout; when the output does not
// say so, an empty porcelain status settles it.
func nothingToCommit(ctx context.Context, runner git.Runner, dir string, commit git.Outcome) bool {
	if ctx.Err() != nil {
		return false
	}

	output := strings.ToLower(commit.Output())
	if strings.Contains(output, "nothing to commit") || strings.Contains(output, "nothing added to commit") {
		return true
	}

	status := runner.Run(ctx, dir, "status", "--porcelain")
	return status.Succeeded() && strings.TrimSpace(status.Stdout) == ""
}
