package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rancher/pages-deploy-action/internal/git"
)

// Orchestrator runs the deployment steps in order and classifies the outcome.
type Orchestrator struct {
	cfg      Config
	settings Settings
	git      git.Runner
	log      *slog.Logger
}

// Result captures the outcome of a single orchestrator run.
type Result struct {
	Status   Status
	Warnings []Warning
	// Err is set when Status is StatusFailed.
	Err error
}

// New returns a configured Orchestrator instance.
func New(cfg Config, settings Settings, runner git.Runner, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, settings: settings, git: runner, log: logger}
}

// runState is threaded through the steps of one run.
type runState struct {
	settings Settings
	tracker  Tracker
	warnings []Warning
}

type step struct {
	name string
	// bestEffort steps record failures as warnings instead of ending the run.
	bestEffort bool
	run        func(ctx context.Context, state *runState) error
}

// Run executes initialize, the branch policy and deploy. It always returns a
// Result with a terminal Status.
func (o *Orchestrator) Run(ctx context.Context) (result Result) {
	state := &runState{settings: o.settings}

	defer func() {
		if r := recover(); r != nil {
			if !state.tracker.Status().Terminal() {
				_ = state.tracker.Resolve(StatusFailed)
			}
			result = Result{Status: state.tracker.Status(), Warnings: state.warnings, Err: fmt.Errorf("deployment aborted: %v", r)}
		}
	}()

	if o.git == nil {
		_ = state.tracker.Resolve(StatusFailed)
		return Result{Status: StatusFailed, Err: errors.New("git runner is required")}
	}

	steps := []step{
		{name: StepInitialize, bestEffort: true, run: o.initialize},
		{name: StepEnsureBranch, bestEffort: true, run: o.ensureBranch},
		{name: StepDeploy, run: o.deploy},
	}

	for _, s := range steps {
		if state.tracker.Status().Terminal() {
			break
		}

		err := s.run(ctx, state)
		if err == nil {
			continue
		}

		if !s.bestEffort || errors.Is(err, ErrMissingCredential) || ctx.Err() != nil {
			if !state.tracker.Status().Terminal() {
				_ = state.tracker.Resolve(StatusFailed)
			}
			if o.log != nil {
				o.log.Error("deployment step failed", "step", s.name, "error", git.Redact(err.Error()))
			}
			return Result{Status: state.tracker.Status(), Warnings: state.warnings, Err: err}
		}

		state.warnings = append(state.warnings, Warning{Step: s.name, Err: err})
		if o.log != nil {
			o.log.Warn("deployment step failed, continuing", "step", s.name, "error", git.Redact(err.Error()))
		}
	}

	if !state.tracker.Status().Terminal() {
		_ = state.tracker.Resolve(StatusFailed)
		return Result{Status: StatusFailed, Warnings: state.warnings, Err: errors.New("deployment finished without a status")}
	}

	return Result{Status: state.tracker.Status(), Warnings: state.warnings}
}

func (o *Orchestrator) initialize(ctx context.Context, state *runState) error {
	if o.log != nil {
		o.log.Info("initializing build repository", "dir", state.settings.BuildDirectory)
	}
	return Initialize(ctx, o.git, state.settings)
}

func (o *Orchestrator) ensureBranch(ctx context.Context, state *runState) error {
	target := state.settings.TargetBranch

	switch o.cfg.branchPolicy() {
	case BranchPolicyNever:
		return nil
	case BranchPolicyIfMissing:
		if o.cfg.Checker == nil {
			return errors.New("branch policy if-missing requires a branch checker")
		}
		exists, err := o.cfg.Checker.BranchExists(ctx, target)
		if err != nil {
			return fmt.Errorf("check branch %s: %w", target, err)
		}
		if exists {
			if o.log != nil {
				o.log.Debug("deployment branch exists", "branch", target)
			}
			return nil
		}
	}

	if o.log != nil {
		o.log.Info("creating deployment branch", "branch", target, "base", state.settings.baseBranch())
	}
	return EnsureBranch(ctx, o.git, state.settings)
}

func (o *Orchestrator) deploy(ctx context.Context, state *runState) error {
	if o.log != nil {
		o.log.Info("publishing build directory", "dir", state.settings.BuildDirectory, "branch", state.settings.TargetBranch)
	}

	status, err := Deploy(ctx, o.git, state.settings)
	if resolveErr := state.tracker.Resolve(status); resolveErr != nil {
		return errors.Join(err, resolveErr)
	}
	if status == StatusSkipped && o.log != nil {
		o.log.Info("no changes to deploy", "branch", state.settings.TargetBranch)
	}
	return err
}

// BranchPolicy controls when the target branch is created before deploying.
type BranchPolicy string

const (
	// BranchPolicyNever deploys straight away; the force push creates the branch
	// on remotes that accept it.
	BranchPolicyNever BranchPolicy = "never"
	// BranchPolicyAlways runs the orphan-branch creation on every run.
	BranchPolicyAlways BranchPolicy = "always"
	// BranchPolicyIfMissing creates the branch only when the checker cannot find it.
	BranchPolicyIfMissing BranchPolicy = "if-missing"
)

// ParseBranchPolicy maps an input string to a BranchPolicy. Empty means never.
func ParseBranchPolicy(raw string) (BranchPolicy, error) {
	switch policy := BranchPolicy(strings.ToLower(strings.TrimSpace(raw))); policy {
	case "":
		return BranchPolicyNever, nil
	case BranchPolicyNever, BranchPolicyAlways, BranchPolicyIfMissing:
		return policy, nil
	default:
		return "", fmt.Errorf("unsupported branch policy %q", raw)
	}
}
