package app

import (
	"os"
	"strings"

	"github.com/rancher/pages-deploy-action/internal/event"
)

const (
	defaultGitUserName  = "github-actions[bot]"
	defaultGitUserEmail = "41898282+github-actions[bot]@users.noreply.github.com"
)

// committer resolves the identity used for deployment commits. Explicit inputs
// win, then the pusher of the triggering event, then the workflow actor.
func committer(cfg Config, payload event.PushPayload) (string, string) {
	name, email := cfg.GitUserName, cfg.GitUserEmail

	if name == "" {
		name = payload.Pusher.Name
	}
	if email == "" {
		email = payload.Pusher.Email
	}

	actor := strings.TrimSpace(os.Getenv("GITHUB_ACTOR"))
	if name == "" {
		name = actor
	}
	if email == "" && actor != "" {
		email = actor + "@users.noreply.github.com"
	}

	if name == "" {
		name = defaultGitUserName
	}
	if email == "" {
		email = defaultGitUserEmail
	}

	return name, email
}
