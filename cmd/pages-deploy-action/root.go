package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rancher/pages-deploy-action/internal/app"
	"github.com/rancher/pages-deploy-action/internal/orchestrator"
)

// options mirrors the action inputs. Only flags that were set on the command
// line override the values read from the environment.
type options struct {
	branch       string
	folder       string
	baseBranch   string
	repository   string
	workspace    string
	serverURL    string
	ensureBranch string
	userName     string
	userEmail    string
	logLevel     string
	logFormat    string
	dryRun       bool
	verbose      bool
}

func newRootCommand() *cobra.Command {
	return newCommand(&options{})
}

func newCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages-deploy-action",
		Short: "Publish a build folder to a branch of a GitHub repository",
		Long: `Publish a build folder to a branch of a GitHub repository.

The folder is committed as a single commit and force-pushed to the target
branch, replacing its history. Inputs are read from the GitHub Actions
environment (INPUT_*, GITHUB_*); flags override them.

Credentials are read from INPUT_ACCESS_TOKEN, INPUT_GITHUB_TOKEN/GITHUB_TOKEN
or INPUT_SSH_KEY and are never accepted as flags.`,
		Example: `  # publish ./public to gh-pages of the current repository
  GITHUB_TOKEN=... pages-deploy-action --branch gh-pages --folder public --repository rancher/site

  # create the branch first when it does not exist yet
  pages-deploy-action --branch gh-pages --folder public --ensure-branch if-missing`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), opts)
			if err != nil {
				return app.ReportFailure(cmd.OutOrStdout(), err)
			}

			runner, err := app.NewRunner(cfg)
			if err != nil {
				return app.ReportFailure(cmd.OutOrStdout(), fmt.Errorf("failed to create runner: %w", err))
			}

			_, err = runner.Run(cmd.Context())
			return err
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.branch, "branch", "", "branch to deploy to (INPUT_BRANCH)")
	fs.StringVar(&opts.folder, "folder", "", "build folder to publish (INPUT_FOLDER)")
	fs.StringVar(&opts.baseBranch, "base-branch", "", "branch the deployment is made from (INPUT_BASE_BRANCH, default "+orchestrator.DefaultBaseBranch+")")
	fs.StringVar(&opts.repository, "repository", "", "owner/name of the destination repository (INPUT_REPOSITORY_NAME)")
	fs.StringVar(&opts.workspace, "workspace", "", "source checkout used to create the branch (INPUT_WORKSPACE)")
	fs.StringVar(&opts.serverURL, "server-url", "", "GitHub server URL (INPUT_GITHUB_SERVER_URL)")
	fs.StringVar(&opts.ensureBranch, "ensure-branch", "", "create the target branch: never, always or if-missing (INPUT_ENSURE_BRANCH)")
	fs.StringVar(&opts.userName, "git-user-name", "", "committer name (INPUT_GIT_USER_NAME)")
	fs.StringVar(&opts.userEmail, "git-user-email", "", "committer email (INPUT_GIT_USER_EMAIL)")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (INPUT_LOG_LEVEL)")
	fs.StringVar(&opts.logFormat, "log-format", "", "text or json (INPUT_LOG_FORMAT)")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "run every step but skip pushes (INPUT_DRY_RUN)")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging (INPUT_VERBOSE)")

	return cmd
}

func loadConfig(fs *pflag.FlagSet, opts *options) (app.Config, error) {
	cfg, err := app.LoadConfig(func(cfg *app.Config) error {
		return applyFlags(fs, opts, cfg)
	})
	if err != nil {
		return app.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func applyFlags(fs *pflag.FlagSet, opts *options, cfg *app.Config) error {
	stringFlags := map[string]struct {
		value  string
		target *string
	}{
		"branch":         {opts.branch, &cfg.TargetBranch},
		"folder":         {opts.folder, &cfg.Folder},
		"base-branch":    {opts.baseBranch, &cfg.BaseBranch},
		"repository":     {opts.repository, &cfg.Repository},
		"workspace":      {opts.workspace, &cfg.Workspace},
		"server-url":     {opts.serverURL, &cfg.ServerURL},
		"git-user-name":  {opts.userName, &cfg.GitUserName},
		"git-user-email": {opts.userEmail, &cfg.GitUserEmail},
		"log-level":      {opts.logLevel, &cfg.LogLevel},
		"log-format":     {opts.logFormat, &cfg.LogFormat},
	}
	for name, flag := range stringFlags {
		if fs.Changed(name) {
			*flag.target = flag.value
		}
	}

	if fs.Changed("ensure-branch") {
		policy, err := orchestrator.ParseBranchPolicy(opts.ensureBranch)
		if err != nil {
			return fmt.Errorf("--ensure-branch: %w", err)
		}
		cfg.BranchPolicy = policy
	}
	if fs.Changed("dry-run") {
		cfg.DryRun = opts.dryRun
	}
	if fs.Changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	return nil
}
