package gh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	github "github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"
)

const defaultUserAgent = "rancher-pages-deploy-action"

// NewRESTFactory returns a Factory backed by the go-github REST client. A
// non-empty baseURL targets GitHub Enterprise Server, which also needs the
// matching uploadURL.
func NewRESTFactory(baseURL, uploadURL string) Factory {
	return &restFactory{
		baseURL:   strings.TrimSpace(baseURL),
		uploadURL: strings.TrimSpace(uploadURL),
	}
}

type restFactory struct {
	baseURL   string
	uploadURL string
}

type restClient struct {
	client *github.Client
}

func (f *restFactory) New(ctx context.Context, token string) (Client, error) {
	if token == "" {
		return nil, fmt.Errorf("github token is required")
	}

	client := github.NewClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})))
	client.UserAgent = defaultUserAgent

	switch {
	case f.baseURL == "" && f.uploadURL == "":
		return &restClient{client: client}, nil
	case f.baseURL == "":
		return nil, fmt.Errorf("github upload url cannot be set without base url")
	case f.uploadURL == "":
		return nil, fmt.Errorf("github upload url must be provided when base url is set")
	}

	base, err := normalizeGitHubURL(f.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse github base url: %w", err)
	}
	upload, err := normalizeGitHubURL(f.uploadURL)
	if err != nil {
		return nil, fmt.Errorf("parse github upload url: %w", err)
	}

	client, err = client.WithEnterpriseURLs(base, upload)
	if err != nil {
		return nil, fmt.Errorf("construct enterprise github client: %w", err)
	}
	return &restClient{client: client}, nil
}

// normalizeGitHubURL drops query and fragment and forces a trailing slash,
// which go-github requires of its base URLs.
func normalizeGitHubURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url cannot be empty")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch {
	case parsed.Scheme == "":
		return "", fmt.Errorf("url must include scheme (e.g. https://)")
	case parsed.Host == "":
		return "", fmt.Errorf("url must include host")
	}

	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/"
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}

func (c *restClient) BranchExists(ctx context.Context, owner, repo, branch string) (bool, error) {
	_, resp, err := c.client.Repositories.GetBranch(ctx, owner, repo, branch, false)
	if err == nil {
		return true, nil
	}
	if failed := lookupResponse(resp, err); failed != nil && failed.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("get branch %s: %w", branch, classifyLookupError(resp, err))
}

// lookupResponse returns the HTTP response behind a failed lookup. Without
// redirect following, go-github reports non-200 answers as plain errors and
// only the returned *github.Response carries the status.
func lookupResponse(resp *github.Response, err error) *http.Response {
	if resp != nil && resp.Response != nil {
		return resp.Response
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		return respErr.Response
	}
	return nil
}

// classifyLookupError marks failures that a later branch lookup may not hit
// again. Authentication and permission errors are returned unchanged.
func classifyLookupError(resp *github.Response, err error) error {
	if err == nil {
		return nil
	}
	if isTransientLookupFailure(lookupResponse(resp, err), err) {
		return &retryableError{err: err}
	}
	return err
}

func isTransientLookupFailure(failed *http.Response, err error) bool {
	if failed != nil {
		switch code := failed.StatusCode; {
		case code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
			return true
		case code == http.StatusForbidden:
			// Exhausted tokens answer 403 with an empty quota.
			return failed.Header.Get("X-RateLimit-Remaining") == "0"
		}
	}

	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
