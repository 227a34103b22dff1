package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/kessler/gitstow/apps/server/internal/upload"
)

// Compile-time check: *Resolver implements upload.ExistenceResolver.
var _ upload.ExistenceResolver = (*Resolver)(nil)

// Resolver looks up whether a path already has content on a branch. The
// lookup is fresh per file per batch — concurrent external edits are
// possible, so shas are never cached across files.
type Resolver struct {
	client *Client
}

// NewResolver creates a Resolver on top of the gateway client.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

// Lookup returns the blob sha at path on branch, or "" when the path is
// absent. A NotFound from the gateway is the expected "create new file"
// signal and never surfaces as an error; every other kind propagates so the
// caller does not attempt an overwrite without the required sha.
func (r *Resolver) Lookup(ctx context.Context, owner, repo, path, branch string) (string, error) {
	p := contentsPath(owner, repo, path) + "?ref=" + url.QueryEscape(branch)
	raw, err := r.client.Get(ctx, p)
	if err != nil {
		if IsKind(err, KindNotFound) {
			return "", nil
		}
		return "", err
	}

	var content struct {
		SHA string `json:"sha"`
	}
	if err := json.Unmarshal(raw, &content); err != nil {
		return "", fmt.Errorf("decode contents response for %s: %w", path, err)
	}
	return content.SHA, nil
}
