// Package refname normalizes and validates branch names supplied as action inputs.
package refname

import (
	"errors"
	"strings"
)

const headsPrefix = "refs/heads/"

// Normalize trims whitespace, removes leading/trailing slashes, and strips a
// refs/heads/ prefix from a branch name. The prefix is matched before any
// trailing slash is removed, so "refs/heads/" alone normalizes to "".
func Normalize(branch string) string {
	branch = strings.TrimLeft(strings.TrimSpace(branch), "/")

	if strings.EqualFold(strings.TrimRight(branch, "/"), strings.TrimSuffix(headsPrefix, "/")) {
		return ""
	}
	if len(branch) >= len(headsPrefix) && strings.EqualFold(branch[:len(headsPrefix)], headsPrefix) {
		branch = branch[len(headsPrefix):]
	}

	return strings.TrimSpace(strings.Trim(branch, "/"))
}

// Validate applies the subset of git check-ref-format rules that matter for
// names passed straight to git switch and git push.
func Validate(branch string) error {
	if branch == "" {
		return errors.New("branch cannot be empty")
	}

	if strings.HasPrefix(branch, "-") {
		return errors.New("branch cannot start with '-'")
	}

	if strings.ContainsAny(branch, " \t\n\r") {
		return errors.New("branch cannot contain whitespace")
	}

	if strings.Contains(branch, "..") || strings.Contains(branch, "//") {
		return errors.New("branch cannot contain '..' or '//'")
	}

	if strings.ContainsAny(branch, "~^:?*[\\") || strings.Contains(branch, "@{") {
		return errors.New("branch contains forbidden git characters")
	}

	if strings.HasSuffix(branch, ".lock") || strings.HasSuffix(branch, ".") {
		return errors.New("branch cannot end with '.lock' or '.'")
	}

	for _, segment := range strings.Split(branch, "/") {
		if strings.HasPrefix(segment, ".") {
			return errors.New("branch path segments cannot start with '.'")
		}
	}

	return nil
}

// Parse normalizes branch and validates the result.
func Parse(branch string) (string, error) {
	normalized := Normalize(branch)
	if err := Validate(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
