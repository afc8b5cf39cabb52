package git

import (
	"context"
	"log/slog"
	"strings"
)

// DryRunRunner forwards local commands to Inner and skips commands that would
// mutate the remote. Skipped commands report success with no output, so the
// deployment flow runs to completion without publishing anything.
type DryRunRunner struct {
	Inner Runner
	Log   *slog.Logger

	skipped [][]string
}

// NewDryRunRunner wraps inner so that pushes are logged instead of executed.
func NewDryRunRunner(inner Runner, logger *slog.Logger) *DryRunRunner {
	return &DryRunRunner{Inner: inner, Log: logger}
}

func (r *DryRunRunner) Run(ctx context.Context, dir string, args ...string) Outcome {
	if Subcommand(args) == "push" {
		r.skipped = append(r.skipped, append([]string(nil), args...))
		if r.Log != nil {
			r.Log.Info("dry run: skipping remote update", "args", strings.Join(RedactArgs(args), " "), "dir", dir)
		}
		return Outcome{Args: args, Dir: dir}
	}
	return r.Inner.Run(ctx, dir, args...)
}

// Skipped returns the commands that were not executed, in call order.
func (r *DryRunRunner) Skipped() [][]string {
	return r.skipped
}
