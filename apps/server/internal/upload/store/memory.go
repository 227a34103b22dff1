package store

import (
	"context"
	"sync"

	"github.com/kessler/gitstow/apps/server/internal/upload"
	"github.com/kessler/gitstow/pkg/api"
)

// Compile-time check: *MemorySessionStore implements upload.SessionStore.
var _ upload.SessionStore = (*MemorySessionStore)(nil)

// MemorySessionStore is an in-process SessionStore. Used by unit tests and
// when the server runs without redis; the snapshot then survives observer
// reattachment but not a server restart.
type MemorySessionStore struct {
	mu   sync.Mutex
	snap *api.SessionSnapshot
}

// NewMemorySessionStore creates an empty MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

// Save overwrites the snapshot.
func (s *MemorySessionStore) Save(_ context.Context, snap api.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := snap
	cp.Results = append([]api.FileResult(nil), snap.Results...)
	cp.Errors = append([]api.FileError(nil), snap.Errors...)
	s.snap = &cp
	return nil
}

// Load returns a copy of the snapshot, or nil when none is stored.
func (s *MemorySessionStore) Load(_ context.Context) (*api.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, nil //nolint:nilnil // caller checks nil value to detect "no session"
	}
	cp := *s.snap
	cp.Results = append([]api.FileResult(nil), s.snap.Results...)
	cp.Errors = append([]api.FileError(nil), s.snap.Errors...)
	return &cp, nil
}

// Clear removes the snapshot.
func (s *MemorySessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	return nil
}

// Compile-time check: *MemoryCredentialStore implements upload.CredentialStore.
var _ upload.CredentialStore = (*MemoryCredentialStore)(nil)

// MemoryCredentialStore is an in-process single-slot credential store.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryCredentialStore creates a MemoryCredentialStore holding token.
func NewMemoryCredentialStore(token string) *MemoryCredentialStore {
	return &MemoryCredentialStore{token: token}
}

// Token returns the stored token, or "" when cleared.
func (s *MemoryCredentialStore) Token(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

// Set stores the token.
func (s *MemoryCredentialStore) Set(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Clear removes the token.
func (s *MemoryCredentialStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
