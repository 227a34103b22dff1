package githubapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kessler/gitstow/apps/server/internal/upload"
)

// Compile-time check: *Executor implements upload.UploadExecutor.
var _ upload.UploadExecutor = (*Executor)(nil)

// Executor commits a single file through the contents PUT API. It carries no
// retry logic of its own; the gateway already retries transient failures.
type Executor struct {
	client *Client
}

// NewExecutor creates an Executor on top of the gateway client.
func NewExecutor(client *Client) *Executor {
	return &Executor{client: client}
}

type putBody struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	// SHA must identify the current blob when updating. Omitted on create.
	SHA string `json:"sha,omitempty"`
}

type putResponse struct {
	Content struct {
		Path string `json:"path"`
		SHA  string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// Put creates or updates the file at req.Path on req.Branch. A non-empty
// req.SHA makes this an update of that blob; empty creates a new file.
func (e *Executor) Put(ctx context.Context, req upload.PutRequest) (*upload.CommitResult, error) {
	raw, err := e.client.Put(ctx, contentsPath(req.Owner, req.Repo, req.Path), putBody{
		Message: req.Message,
		Content: req.Content,
		Branch:  req.Branch,
		SHA:     req.SHA,
	})
	if err != nil {
		return nil, err
	}

	var resp putResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode put response for %s: %w", req.Path, err)
	}
	return &upload.CommitResult{
		Path:       resp.Content.Path,
		ContentSHA: resp.Content.SHA,
		CommitSHA:  resp.Commit.SHA,
	}, nil
}
