// Package api holds the wire types shared by the gitstow server, the push
// CLI, and tests: batch requests, per-file outcomes, progress events, and
// the persisted session snapshot.
package api

import "time"

// FileRecord is one file handed to the batch orchestrator. The caller owns
// it and has already validated and encoded it; the orchestrator only reads.
type FileRecord struct {
	// Path is repo-relative and forward-slash separated.
	Path string `json:"path" binding:"required"`
	// Content is the file body, base64-encoded.
	Content string `json:"content" binding:"required"`
	// Size is the decoded size in bytes.
	Size int64 `json:"size"`
	// Type is an advisory mime type.
	Type string `json:"type,omitempty"`
}

// BatchRequest starts one batch: an ordered file set targeting a single
// owner/repo/branch with one commit message.
type BatchRequest struct {
	Owner   string       `json:"owner"   binding:"required"`
	Repo    string       `json:"repo"    binding:"required"`
	Branch  string       `json:"branch"  binding:"required"`
	Message string       `json:"message"`
	Files   []FileRecord `json:"files"   binding:"required"`
}

// FileResult records a successfully committed file.
type FileResult struct {
	File       string `json:"file"`
	CommitSHA  string `json:"commitSha"`
	ContentSHA string `json:"contentSha"`
	// Updated is true when the file already existed on the branch and the
	// upload replaced it, false when it was created.
	Updated bool `json:"updated"`
}

// FileError records a file that failed to upload.
type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// BatchReport is the final result of a batch: succeeded and failed files,
// both in input order. Files in Results stay uploaded even when later files
// land in Errors.
type BatchReport struct {
	Results []FileResult `json:"results"`
	Errors  []FileError  `json:"errors"`
}

// ProgressStatus is the per-file outcome carried on a progress event.
type ProgressStatus string

// Progress statuses.
const (
	ProgressSuccess ProgressStatus = "success"
	ProgressError   ProgressStatus = "error"
)

// ProgressEvent is pushed to observers after every file completes.
type ProgressEvent struct {
	BatchID string         `json:"batchId"`
	File    string         `json:"file"`
	Status  ProgressStatus `json:"status"`
	Current int            `json:"current"`
	Total   int            `json:"total"`
	Error   string         `json:"error,omitempty"`
}

// SessionSnapshot is the persisted state of an in-flight or just-finished
// batch. An observer that attaches mid-batch reconstructs its view entirely
// from this snapshot; it never depends on having seen every progress event.
type SessionSnapshot struct {
	BatchID     string       `json:"batchId"`
	Active      bool         `json:"active"`
	Total       int          `json:"total"`
	Current     int          `json:"current"`
	CurrentFile string       `json:"currentFile,omitempty"`
	Results     []FileResult `json:"results"`
	Errors      []FileError  `json:"errors"`
	StartedAt   time.Time    `json:"startedAt"`
	FinishedAt  *time.Time   `json:"finishedAt,omitempty"`
}

// CredentialRequest carries the bearer token stored for GitHub API calls.
type CredentialRequest struct {
	Token string `json:"token" binding:"required"`
}
