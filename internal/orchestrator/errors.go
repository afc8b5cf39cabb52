package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rancher/pages-deploy-action/internal/git"
)

// ErrMissingCredential means no token or SSH key was supplied. It halts the
// run before any command is issued.
var ErrMissingCredential = errors.New("no credential provided: set an access token, the GitHub token, or an SSH key")

// Step names used in StepError and Warning.
const (
	StepInitialize   = "initialize"
	StepEnsureBranch = "ensure-branch"
	StepDeploy       = "deploy"
)

// StepError reports a failed git command within a deployment step. Command
// and Detail are redacted; Err keeps the full *git.GitError.
type StepError struct {
	Step    string
	Command string
	// Detail is git's own failure text, usually its stderr.
	Detail  string
	Err     error
}

func newStepError(step string, outcome git.Outcome) *StepError {
	return &StepError{
		Step:    step,
		Command: strings.Join(git.RedactArgs(outcome.Args), " "),
		Detail:  git.Redact(outcome.ErrorText()),
		Err:     outcome.Err,
	}
}

func (e *StepError) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	if e.Command == "" {
		return fmt.Sprintf("%s: %s", e.Step, e.Detail)
	}
	return fmt.Sprintf("%s: git %s: %s", e.Step, e.Command, e.Detail)
}

func (e *StepError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Warning is a best-effort step failure that did not stop the run.
type Warning struct {
	Step string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Step, w.Err)
}
