package orchestrator

import (
	"os"
	"strings"
)

// DefaultBaseBranch is used when Settings.BaseBranch is empty.
const DefaultBaseBranch = "master"

// Settings captures the immutable inputs of one deployment run.
type Settings struct {
	// BuildDirectory holds the artifacts to publish. It becomes its own git
	// repository; its history is what gets force-pushed.
	BuildDirectory string

	// WorkspaceDirectory is the source checkout used when the target branch has
	// to be created. Defaults to BuildDirectory.
	WorkspaceDirectory string

	TargetBranch string
	BaseBranch   string

	// RemoteURL is either credential-embedded HTTPS or an SSH remote.
	RemoteURL string

	CommitterName  string
	CommitterEmail string

	// HasCredential must be true before any remote-mutating command runs.
	HasCredential bool

	// RevisionID identifies the triggering commit and is embedded verbatim in
	// the deployment commit message.
	RevisionID string
}

func (s Settings) baseBranch() string {
	if b := strings.TrimSpace(s.BaseBranch); b != "" {
		return b
	}
	return DefaultBaseBranch
}

func (s Settings) workspaceDirectory() string {
	if s.WorkspaceDirectory != "" {
		return s.WorkspaceDirectory
	}
	return s.BuildDirectory
}

// RevisionFromEnv returns the commit SHA that triggered the workflow.
func RevisionFromEnv() string {
	return strings.TrimSpace(os.Getenv("GITHUB_SHA"))
}

// Config captures the runtime controls the orchestrator needs.
type Config struct {
	BranchPolicy BranchPolicy
	// Checker is consulted by BranchPolicyIfMissing.
	Checker BranchChecker
}

func (c Config) branchPolicy() BranchPolicy {
	if c.BranchPolicy == "" {
		return BranchPolicyNever
	}
	return c.BranchPolicy
}
