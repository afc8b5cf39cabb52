package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rancher/pages-deploy-action/internal/git"
)

// BranchChecker reports whether a branch exists on the deployment remote.
type BranchChecker interface {
	BranchExists(ctx context.Context, branch string) (bool, error)
}

// RemoteBranchChecker asks the remote directly with git ls-remote. It works for
// any remote the runner can reach, including SSH remotes.
type RemoteBranchChecker struct {
	Runner    git.Runner
	RemoteURL string
	// Dir is the working directory for the command; any existing directory works.
	Dir string
}

func (c RemoteBranchChecker) BranchExists(ctx context.Context, branch string) (bool, error) {
	outcome := c.Runner.Run(ctx, c.Dir, "ls-remote", "--heads", c.RemoteURL, branch)
	if !outcome.Succeeded() {
		return false, fmt.Errorf("ls-remote %s: %w", branch, outcome.Err)
	}

	want := "refs/heads/" + branch
	for _, line := range strings.Split(outcome.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == want {
			return true, nil
		}
	}
	return false, nil
}
