package app

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rancher/pages-deploy-action/internal/orchestrator"
	"github.com/rancher/pages-deploy-action/internal/refname"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
	defaultServerURL = "https://github.com"
)

// Config captures runtime options sourced from GitHub Action inputs, environment
// variables or command-line flags.
type Config struct {
	// TargetBranch receives the deployment; its history is replaced on every run.
	TargetBranch string
	// Folder is the build output to publish. Relative paths resolve against Workspace.
	Folder     string
	BaseBranch string

	AccessToken string
	GitHubToken string
	SSHKey      string

	// Repository is owner/name of the deployment destination.
	Repository string

	GitUserName  string
	GitUserEmail string

	BranchPolicy orchestrator.BranchPolicy

	Workspace string

	ServerURL       string
	GitHubBaseURL   string
	GitHubUploadURL string

	DryRun    bool
	Verbose   bool
	LogLevel  string
	LogFormat string
}

// LoadConfig reads action inputs from the environment, applies each override
// in order, then fills defaults and validates the result. Overrides see the
// raw inputs, before branch names are normalized.
func LoadConfig(overrides ...func(*Config) error) (Config, error) {
	cfg, err := configFromEnv()
	if err != nil {
		return Config{}, err
	}
	for _, override := range overrides {
		if err := override(&cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func configFromEnv() (Config, error) {
	cfg := Config{
		TargetBranch:    strings.TrimSpace(os.Getenv("INPUT_BRANCH")),
		Folder:          strings.TrimSpace(os.Getenv("INPUT_FOLDER")),
		BaseBranch:      strings.TrimSpace(os.Getenv("INPUT_BASE_BRANCH")),
		AccessToken:     strings.TrimSpace(os.Getenv("INPUT_ACCESS_TOKEN")),
		GitHubToken:     firstEnv("INPUT_GITHUB_TOKEN", "GITHUB_TOKEN"),
		SSHKey:          os.Getenv("INPUT_SSH_KEY"),
		Repository:      firstEnv("INPUT_REPOSITORY_NAME", "GITHUB_REPOSITORY"),
		GitUserName:     strings.TrimSpace(os.Getenv("INPUT_GIT_USER_NAME")),
		GitUserEmail:    strings.TrimSpace(os.Getenv("INPUT_GIT_USER_EMAIL")),
		Workspace:       firstEnv("INPUT_WORKSPACE", "GITHUB_WORKSPACE"),
		ServerURL:       firstEnv("INPUT_GITHUB_SERVER_URL", "GITHUB_SERVER_URL"),
		GitHubBaseURL:   strings.TrimSpace(os.Getenv("INPUT_GITHUB_BASE_URL")),
		GitHubUploadURL: strings.TrimSpace(os.Getenv("INPUT_GITHUB_UPLOAD_URL")),
		LogLevel:        strings.ToLower(strings.TrimSpace(os.Getenv("INPUT_LOG_LEVEL"))),
		LogFormat:       strings.ToLower(strings.TrimSpace(os.Getenv("INPUT_LOG_FORMAT"))),
	}

	policy, err := orchestrator.ParseBranchPolicy(os.Getenv("INPUT_ENSURE_BRANCH"))
	if err != nil {
		return Config{}, fmt.Errorf("parse INPUT_ENSURE_BRANCH: %w", err)
	}
	cfg.BranchPolicy = policy

	if rawDryRun := strings.TrimSpace(os.Getenv("INPUT_DRY_RUN")); rawDryRun != "" {
		dryRun, err := strconv.ParseBool(rawDryRun)
		if err != nil {
			return Config{}, fmt.Errorf("parse INPUT_DRY_RUN: %w", err)
		}
		cfg.DryRun = dryRun
	}

	if rawVerbose := strings.TrimSpace(os.Getenv("INPUT_VERBOSE")); rawVerbose != "" {
		verbose, err := strconv.ParseBool(rawVerbose)
		if err != nil {
			return Config{}, fmt.Errorf("parse INPUT_VERBOSE: %w", err)
		}
		cfg.Verbose = verbose
	}

	return cfg, nil
}

// finalize applies defaults and validates the configuration in place.
func (cfg *Config) finalize() error {
	target, err := refname.Parse(cfg.TargetBranch)
	if err != nil {
		return fmt.Errorf("invalid target branch %q (set INPUT_BRANCH): %w", cfg.TargetBranch, err)
	}
	cfg.TargetBranch = target

	if strings.TrimSpace(cfg.BaseBranch) == "" {
		cfg.BaseBranch = orchestrator.DefaultBaseBranch
	}
	base, err := refname.Parse(cfg.BaseBranch)
	if err != nil {
		return fmt.Errorf("invalid base branch %q: %w", cfg.BaseBranch, err)
	}
	cfg.BaseBranch = base

	if cfg.Workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determine workspace: %w", err)
		}
		cfg.Workspace = wd
	}

	if strings.TrimSpace(cfg.Folder) == "" {
		return fmt.Errorf("build folder is required (set INPUT_FOLDER)")
	}
	if !filepath.IsAbs(cfg.Folder) {
		cfg.Folder = filepath.Join(cfg.Workspace, cfg.Folder)
	}
	cfg.Folder = filepath.Clean(cfg.Folder)

	info, err := os.Stat(cfg.Folder)
	if err != nil {
		return fmt.Errorf("build folder %q: %w", cfg.Folder, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("build folder %q is not a directory", cfg.Folder)
	}

	if cfg.Repository != "" {
		if _, _, err := splitRepository(cfg.Repository); err != nil {
			return err
		}
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = defaultServerURL
	}
	if parsed, err := url.Parse(cfg.ServerURL); err != nil || parsed.Host == "" {
		return fmt.Errorf("invalid github server url %q", cfg.ServerURL)
	}

	if (cfg.GitHubBaseURL == "") != (cfg.GitHubUploadURL == "") {
		return fmt.Errorf("INPUT_GITHUB_BASE_URL and INPUT_GITHUB_UPLOAD_URL must both be set for GitHub Enterprise")
	}

	if cfg.BranchPolicy == "" {
		cfg.BranchPolicy = orchestrator.BranchPolicyNever
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaultLogFormat
	}

	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return err
	}

	supportedFormats := map[string]struct{}{"text": {}, "json": {}}
	if _, ok := supportedFormats[cfg.LogFormat]; !ok {
		return fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}

	return nil
}

// HasCredential reports whether any credential able to push was supplied.
func (cfg Config) HasCredential() bool {
	return cfg.pushToken() != "" || strings.TrimSpace(cfg.SSHKey) != ""
}

// pushToken is the token embedded in the HTTPS remote.
func (cfg Config) pushToken() string {
	if cfg.AccessToken != "" {
		return cfg.AccessToken
	}
	return cfg.GitHubToken
}

// apiToken is the token used for REST lookups.
func (cfg Config) apiToken() string {
	if cfg.GitHubToken != "" {
		return cfg.GitHubToken
	}
	return cfg.AccessToken
}

func splitRepository(full string) (string, string, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(full), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("repository %q must be in owner/name form", full)
	}
	return owner, strings.TrimSuffix(name, ".git"), nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
