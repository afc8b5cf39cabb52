package git

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ShellRunner shells out to the system git binary.
type ShellRunner struct {
	// Git is the git binary to execute. Defaults to "git" when empty.
	Git string

	// Env is appended to the process environment of every command, for example
	// GIT_SSH_COMMAND when deploying with an SSH key.
	Env []string

	// NetworkRetries controls how many additional attempts should be made for network
	// oriented git commands (fetch, push, ls-remote). When zero, a default of 2 retries is used.
	NetworkRetries int

	// NetworkRetryDelay controls the initial backoff delay between retries. When zero,
	// a default of 1 second is used. Backoff grows exponentially per attempt.
	NetworkRetryDelay time.Duration

	// NetworkTimeout bounds each network command attempt that would otherwise inherit
	// an unbounded context. When zero, a default of 2 minutes is used.
	NetworkTimeout time.Duration

	// Log receives one debug record per command. Optional.
	Log *slog.Logger
}

// NewShellRunner returns a Runner backed by system git commands.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{}
}

func (r *ShellRunner) gitBinary() string {
	if r.Git == "" {
		return "git"
	}
	return r.Git
}

// Run executes git with args inside dir. Network commands are retried with
// exponential backoff; the last attempt's output is returned.
func (r *ShellRunner) Run(ctx context.Context, dir string, args ...string) Outcome {
	primary := primaryGitCommand(args)
	isNetwork := isNetworkCommand(primary)

	retries := 0
	if isNetwork {
		retries = r.networkRetriesValue()
	}

	delay := r.networkRetryDelayValue()
	var outcome Outcome

	for attempt := 0; attempt <= retries; attempt++ {
		attemptCtx, cancel := r.applyNetworkTimeout(ctx, isNetwork)
		outcome = r.runOnce(attemptCtx, dir, args...)
		cancel()

		if r.Log != nil {
			r.Log.Debug("git command finished",
				"args", strings.Join(RedactArgs(args), " "),
				"dir", dir,
				"attempt", attempt+1,
				"succeeded", outcome.Succeeded())
		}

		if outcome.Succeeded() {
			return outcome
		}

		if !isNetwork {
			break
		}
		if errors.Is(outcome.Err, context.Canceled) || errors.Is(outcome.Err, context.DeadlineExceeded) {
			break
		}
		if attempt == retries {
			break
		}

		select {
		case <-ctx.Done():
			outcome.Err = ctx.Err()
			return outcome
		case <-time.After(delay):
		}
		delay *= 2
	}

	return outcome
}

func (r *ShellRunner) runOnce(ctx context.Context, dir string, args ...string) Outcome {
	outcome := Outcome{Args: args, Dir: dir}

	cmd := exec.CommandContext(ctx, r.gitBinary(), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.Env = append(cmd.Env, r.Env...)
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		outcome.Err = &GitError{Args: args, Output: stderr.String(), Err: err}
		return outcome
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	select {
	case <-ctx.Done():
		terminateProcessGroup(cmd)
		<-done
		waitErr = ctx.Err()
	case waitErr = <-done:
		if waitErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				waitErr = ctxErr
			}
		}
	}

	outcome.Stdout = stdout.String()
	outcome.Stderr = stderr.String()

	if waitErr != nil {
		if errors.Is(waitErr, context.Canceled) || errors.Is(waitErr, context.DeadlineExceeded) {
			outcome.Err = waitErr
		} else {
			outcome.Err = &GitError{Args: args, Output: outcome.Output(), Err: waitErr}
		}
	}

	return outcome
}

func primaryGitCommand(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			if i+1 < len(args) {
				return args[i+1]
			}
			return ""
		}
		if strings.HasPrefix(arg, "-") {
			switch arg {
			case "-C", "--git-dir", "-c":
				i++
			}
			continue
		}
		return arg
	}
	return ""
}

func isNetworkCommand(cmd string) bool {
	switch cmd {
	case "clone", "fetch", "push", "pull", "ls-remote":
		return true
	default:
		return false
	}
}

func (r *ShellRunner) networkRetriesValue() int {
	if r.NetworkRetries < 0 {
		return 0
	}
	if r.NetworkRetries == 0 {
		return 2
	}
	return r.NetworkRetries
}

func (r *ShellRunner) networkRetryDelayValue() time.Duration {
	if r.NetworkRetryDelay <= 0 {
		return time.Second
	}
	return r.NetworkRetryDelay
}

func (r *ShellRunner) networkTimeoutValue() time.Duration {
	if r.NetworkTimeout <= 0 {
		return 2 * time.Minute
	}
	return r.NetworkTimeout
}

func (r *ShellRunner) applyNetworkTimeout(ctx context.Context, network bool) (context.Context, context.CancelFunc) {
	if !network {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok && !deadline.IsZero() {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.networkTimeoutValue())
}

// Subcommand returns the git subcommand named by args, skipping global options.
func Subcommand(args []string) string {
	return primaryGitCommand(args)
}
