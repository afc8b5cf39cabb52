package gh

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultLookupAttempts = 3
	defaultLookupDelay    = time.Second
)

// BranchChecker answers branch existence questions for a single repository
// through the GitHub API, retrying transient failures.
type BranchChecker struct {
	Client Client
	Owner  string
	Repo   string

	// Attempts bounds the number of lookups; zero uses the default of 3.
	Attempts int
	// Delay is the initial backoff between attempts and doubles each retry.
	Delay time.Duration
	Log   *slog.Logger
}

// BranchExists reports whether the branch exists in Owner/Repo.
func (c BranchChecker) BranchExists(ctx context.Context, branch string) (bool, error) {
	if c.Client == nil {
		return false, fmt.Errorf("github client is not configured")
	}
	if c.Owner == "" || c.Repo == "" {
		return false, fmt.Errorf("repository owner and name are required")
	}

	attempts := c.Attempts
	if attempts <= 0 {
		attempts = defaultLookupAttempts
	}
	delay := c.Delay
	if delay <= 0 {
		delay = defaultLookupDelay
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		exists, err := c.Client.BranchExists(ctx, c.Owner, c.Repo, branch)
		if err == nil {
			return exists, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == attempts {
			break
		}

		if c.Log != nil {
			c.Log.Debug("retrying branch lookup",
				slog.String("repository", c.Owner+"/"+c.Repo),
				slog.String("branch", branch),
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return false, lastErr
}
