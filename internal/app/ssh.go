package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sshKeyFile is a private key materialized on disk for the duration of a run.
type sshKeyFile struct {
	dir  string
	path string
}

func writeSSHKey(key string) (*sshKeyFile, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("ssh key is empty")
	}

	dir, err := os.MkdirTemp("", "pages-deploy-ssh-")
	if err != nil {
		return nil, fmt.Errorf("create ssh key directory: %w", err)
	}

	path := filepath.Join(dir, "deploy_key")
	// ssh rejects keys without a trailing newline.
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("write ssh key: %w", err)
	}

	return &sshKeyFile{dir: dir, path: path}, nil
}

// Command returns the GIT_SSH_COMMAND value that uses only this key.
func (k *sshKeyFile) Command() string {
	return fmt.Sprintf("ssh -i %s -o IdentitiesOnly=yes -o StrictHostKeyChecking=accept-new", shellQuote(k.path))
}

// Env returns the environment entries to hand to the git runner.
func (k *sshKeyFile) Env() []string {
	return []string{"GIT_SSH_COMMAND=" + k.Command()}
}

func (k *sshKeyFile) Remove() error {
	if k == nil || k.dir == "" {
		return nil
	}
	return os.RemoveAll(k.dir)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
