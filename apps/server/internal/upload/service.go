package upload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kessler/gitstow/pkg/api"
)

// Service is the batch orchestrator. It sequences a file set through the
// existence resolver and upload executor, persists a session snapshot after
// every file, and publishes progress events. Files are processed strictly
// sequentially in input order so progress and snapshots stay monotonic.
// It depends only on port interfaces — no framework imports.
type Service struct {
	resolver ExistenceResolver
	executor UploadExecutor
	sessions SessionStore
	progress ProgressPublisher
	log      *slog.Logger

	mu          sync.Mutex
	activeBatch string
}

// NewService creates a new Service. progress may be nil when nothing
// observes the batch.
func NewService(
	resolver ExistenceResolver,
	executor UploadExecutor,
	sessions SessionStore,
	progress ProgressPublisher,
	log *slog.Logger,
) *Service {
	return &Service{
		resolver: resolver,
		executor: executor,
		sessions: sessions,
		progress: progress,
		log:      log,
	}
}

// Run uploads every file in the request, one at a time, and returns the
// final report. Per-file failures are recorded and the batch continues;
// nothing already uploaded is rolled back. A second Run while one is in
// flight fails with BatchActiveError.
func (s *Service) Run(ctx context.Context, req api.BatchRequest) (*api.BatchReport, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	batchID := uuid.New().String()
	if err := s.acquire(batchID); err != nil {
		return nil, err
	}
	defer s.release()

	session := api.SessionSnapshot{
		BatchID:   batchID,
		Active:    true,
		Total:     len(req.Files),
		Results:   []api.FileResult{},
		Errors:    []api.FileError{},
		StartedAt: time.Now().UTC(),
	}
	s.persist(ctx, session)
	s.log.Info("batch started",
		"batchId", batchID, "owner", req.Owner, "repo", req.Repo,
		"branch", req.Branch, "files", len(req.Files))

	for _, f := range req.Files {
		result, err := s.uploadOne(ctx, req, f)

		var status api.ProgressStatus
		var errMsg string
		if err != nil {
			status = api.ProgressError
			errMsg = err.Error()
			session.Errors = append(session.Errors, api.FileError{File: f.Path, Error: errMsg})
			s.log.Warn("file upload failed", "batchId", batchID, "file", f.Path, "error", err)
		} else {
			status = api.ProgressSuccess
			session.Results = append(session.Results, *result)
		}

		session.Current++
		session.CurrentFile = f.Path
		s.persist(ctx, session)
		s.notify(api.ProgressEvent{
			BatchID: batchID,
			File:    f.Path,
			Status:  status,
			Current: session.Current,
			Total:   session.Total,
			Error:   errMsg,
		})
	}

	finished := time.Now().UTC()
	session.Active = false
	session.FinishedAt = &finished
	s.persist(ctx, session)
	s.log.Info("batch finished",
		"batchId", batchID, "uploaded", len(session.Results), "failed", len(session.Errors))

	return &api.BatchReport{Results: session.Results, Errors: session.Errors}, nil
}

// Session returns the persisted snapshot, or nil when none exists.
func (s *Service) Session(ctx context.Context) (*api.SessionSnapshot, error) {
	snap, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return snap, nil
}

// ClearSession removes the persisted snapshot of a finished batch.
func (s *Service) ClearSession(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// uploadOne resolves the existing blob sha for one file and commits its
// content. A resolved sha makes the put an update; absence makes it a create.
func (s *Service) uploadOne(ctx context.Context, req api.BatchRequest, f api.FileRecord) (*api.FileResult, error) {
	sha, err := s.resolver.Lookup(ctx, req.Owner, req.Repo, f.Path, req.Branch)
	if err != nil {
		return nil, fmt.Errorf("check existing content: %w", err)
	}

	message := req.Message
	if message == "" {
		message = "Upload " + f.Path
	}

	commit, err := s.executor.Put(ctx, PutRequest{
		Owner:   req.Owner,
		Repo:    req.Repo,
		Path:    f.Path,
		Content: f.Content,
		Message: message,
		Branch:  req.Branch,
		SHA:     sha,
	})
	if err != nil {
		return nil, err
	}

	return &api.FileResult{
		File:       f.Path,
		CommitSHA:  commit.CommitSHA,
		ContentSHA: commit.ContentSHA,
		Updated:    sha != "",
	}, nil
}

// persist writes the snapshot once per file completion. A store failure is
// logged but never stops the batch — files already committed stay committed.
func (s *Service) persist(ctx context.Context, session api.SessionSnapshot) {
	if err := s.sessions.Save(ctx, session); err != nil {
		s.log.Error("failed to persist session snapshot", "batchId", session.BatchID, "error", err)
	}
}

// notify publishes a progress event. Fire-and-forget: no observer is fine.
func (s *Service) notify(ev api.ProgressEvent) {
	if s.progress == nil {
		return
	}
	s.progress.Publish(ev)
}

func (s *Service) acquire(batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeBatch != "" {
		return BatchActiveError{BatchID: s.activeBatch}
	}
	s.activeBatch = batchID
	return nil
}

func (s *Service) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeBatch = ""
}

func validate(req api.BatchRequest) error {
	switch {
	case req.Owner == "":
		return InvalidBatchError{Reason: "owner is empty"}
	case req.Repo == "":
		return InvalidBatchError{Reason: "repo is empty"}
	case req.Branch == "":
		return InvalidBatchError{Reason: "branch is empty"}
	case len(req.Files) == 0:
		return InvalidBatchError{Reason: "no files"}
	}
	for _, f := range req.Files {
		if f.Path == "" {
			return InvalidBatchError{Reason: "file with empty path"}
		}
	}
	return nil
}
