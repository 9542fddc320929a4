package release

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Masterminds/semver/v3"
	gh "github.com/google/go-github/v60/github"
)

// Checker looks up published releases of harbormaster.
type Checker struct {
	gh    *gh.Client
	owner string
	repo  string
}

// New creates a Checker for owner/repo. The token is optional; without it
// requests are unauthenticated and rate limited.
func New(token, owner, repo string) *Checker {
	client := gh.NewClient(&http.Client{})
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return newWithClient(client, owner, repo)
}

// newWithClient creates a Checker with an injected GitHub client (for testing).
func newWithClient(client *gh.Client, owner, repo string) *Checker {
	return &Checker{gh: client, owner: owner, repo: repo}
}

// Latest returns the tag of the latest published release.
func (c *Checker) Latest(ctx context.Context) (string, error) {
	release, _, err := c.gh.Repositories.GetLatestRelease(ctx, c.owner, c.repo)
	if err != nil {
		return "", fmt.Errorf("getting latest release for %s/%s: %w", c.owner, c.repo, err)
	}
	return release.GetTagName(), nil
}

// Newer reports the latest release tag and whether it is newer than
// current. A current version that is not semver (e.g. "dev") is never
// considered up to date.
func (c *Checker) Newer(ctx context.Context, current string) (string, bool, error) {
	latest, err := c.Latest(ctx)
	if err != nil {
		return "", false, err
	}
	lv, err := semver.NewVersion(latest)
	if err != nil {
		return latest, false, fmt.Errorf("parsing release tag %q: %w", latest, err)
	}
	cv, err := semver.NewVersion(current)
	if err != nil {
		return latest, true, nil
	}
	return latest, lv.GreaterThan(cv), nil
}
