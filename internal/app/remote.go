package app

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	tokenTypeDeployToken = "Deploy Token"
	tokenTypeSSHKey      = "SSH Deploy Key"
	tokenTypeNone        = "None"
)

// repositoryURL builds the push remote for owner/name. A token produces an
// authenticated HTTPS remote; an SSH key alone produces an SSH remote.
func repositoryURL(cfg Config, repository string) (string, string, error) {
	owner, name, err := splitRepository(repository)
	if err != nil {
		return "", tokenTypeNone, err
	}

	server, err := url.Parse(strings.TrimSpace(cfg.ServerURL))
	if err != nil || server.Host == "" {
		return "", tokenTypeNone, fmt.Errorf("invalid github server url %q", cfg.ServerURL)
	}

	if token := cfg.pushToken(); token != "" {
		scheme := server.Scheme
		if scheme == "" {
			scheme = "https"
		}
		remote := url.URL{
			Scheme: scheme,
			User:   url.UserPassword("x-access-token", token),
			Host:   server.Host,
			Path:   fmt.Sprintf("/%s/%s.git", owner, name),
		}
		return remote.String(), tokenTypeDeployToken, nil
	}

	if strings.TrimSpace(cfg.SSHKey) != "" {
		return fmt.Sprintf("git@%s:%s/%s.git", server.Hostname(), owner, name), tokenTypeSSHKey, nil
	}

	// No credential: the orchestrator refuses to run, the URL is informational.
	remote := url.URL{Scheme: server.Scheme, Host: server.Host, Path: fmt.Sprintf("/%s/%s.git", owner, name)}
	return remote.String(), tokenTypeNone, nil
}
