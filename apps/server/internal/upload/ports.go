package upload

import (
	"context"

	"github.com/kessler/gitstow/pkg/api"
)

// ExistenceResolver answers whether a path already has content on a branch.
// Lookup returns the blob sha of the current version, or "" when the path is
// absent — absence is an expected outcome, not an error. Every other failure
// propagates unchanged so the caller never attempts a blind overwrite.
type ExistenceResolver interface {
	Lookup(ctx context.Context, owner, repo, path, branch string) (string, error)
}

// PutRequest is one create-or-update call against the contents API.
type PutRequest struct {
	Owner   string
	Repo    string
	Path    string
	Content string // base64
	Message string
	Branch  string
	// SHA of the existing blob when updating; empty when creating.
	SHA string
}

// CommitResult identifies the commit produced by a content put.
type CommitResult struct {
	Path       string
	ContentSHA string
	CommitSHA  string
}

// UploadExecutor performs a single file's create-or-update call. It is a
// thin, single-attempt command; retry behavior lives in the API gateway.
type UploadExecutor interface {
	Put(ctx context.Context, req PutRequest) (*CommitResult, error)
}

// SessionStore persists the batch session snapshot so an observer can
// reattach after the batch started. Load returns nil when no session exists.
type SessionStore interface {
	Save(ctx context.Context, s api.SessionSnapshot) error
	Load(ctx context.Context) (*api.SessionSnapshot, error)
	Clear(ctx context.Context) error
}

// CredentialStore holds the single-slot bearer token used for GitHub calls.
// Token returns "" when no credential is stored. The gateway clears the slot
// on a 401 so subsequent calls fail fast without a network attempt.
type CredentialStore interface {
	Token(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// ProgressPublisher delivers per-file progress events to zero or more
// observers. Delivery is best-effort: implementations must never block or
// fail the batch.
type ProgressPublisher interface {
	Publish(ev api.ProgressEvent)
}
