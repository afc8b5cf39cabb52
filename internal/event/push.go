package event

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/go-github/v55/github"
)

// PushPayload captures the subset of a GitHub push event used by the action.
// Fields are empty when the triggering event carries no such data (for example
// workflow_dispatch).
type PushPayload struct {
	Ref        string
	After      string
	Repository Repository
	Pusher     Identity
}

// Repository identifies the owner/name of the repository where the event originated.
type Repository struct {
	Owner string
	Name  string
}

// FullName returns owner/name, or "" when either part is missing.
func (r Repository) FullName() string {
	if r.Owner == "" || r.Name == "" {
		return ""
	}
	return r.Owner + "/" + r.Name
}

// Identity is a git author identity.
type Identity struct {
	Name  string
	Email string
}

// ParsePushEvent decodes a GitHub push event payload from the provided reader.
func ParsePushEvent(r io.Reader) (PushPayload, error) {
	var raw github.PushEvent

	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return PushPayload{}, fmt.Errorf("decode push event: %w", err)
	}

	repo := raw.GetRepo()
	owner := strings.TrimSpace(repo.GetOwner().GetLogin())
	if owner == "" {
		owner = strings.TrimSpace(repo.GetOwner().GetName())
	}

	payload := PushPayload{
		Ref:   strings.TrimSpace(raw.GetRef()),
		After: strings.TrimSpace(raw.GetAfter()),
		Repository: Repository{
			Owner: owner,
			Name:  strings.TrimSpace(repo.GetName()),
		},
		Pusher: Identity{
			Name:  strings.TrimSpace(raw.GetPusher().GetName()),
			Email: strings.TrimSpace(raw.GetPusher().GetEmail()),
		},
	}

	if payload.Repository.Owner == "" || payload.Repository.Name == "" {
		if parts := strings.SplitN(strings.TrimSpace(repo.GetFullName()), "/", 2); len(parts) == 2 {
			payload.Repository = Repository{Owner: parts[0], Name: parts[1]}
		}
	}

	return payload, nil
}

// ParsePushEventFile reads the event JSON from disk.
func ParsePushEventFile(path string) (PushPayload, error) {
	f, err := os.Open(path)
	if err != nil {
		return PushPayload{}, fmt.Errorf("open event file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "failed to close event file: %v\n", closeErr)
		}
	}()

	return ParsePushEvent(f)
}
