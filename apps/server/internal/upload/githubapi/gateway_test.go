package githubapi_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessler/gitstow/apps/server/internal/upload/githubapi"
	"github.com/kessler/gitstow/apps/server/internal/upload/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newClient wires a gateway against srv with a millisecond backoff so retry
// tests stay fast.
func newClient(srv *httptest.Server, creds *store.MemoryCredentialStore) *githubapi.Client {
	return githubapi.NewClient(srv.URL, creds, testLogger(),
		githubapi.WithBackoff(time.Millisecond))
}

// ─── happy path ───────────────────────────────────────────────────────────────

func TestGet_ReturnsBodyAndSendsAuthHeaders(t *testing.T) {
	var gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{"sha":"abc"}`))
	}))
	defer srv.Close()

	c := newClient(srv, store.NewMemoryCredentialStore("tok-123"))
	raw, err := c.Get(context.Background(), "/repos/acme/website/contents/a.txt")

	require.NoError(t, err)
	assert.JSONEq(t, `{"sha":"abc"}`, string(raw))
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "application/vnd.github+json", gotAccept)
}

// ─── credential handling ──────────────────────────────────────────────────────

func TestRequest_NoCredential_FailsWithoutNetworkCall(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newClient(srv, store.NewMemoryCredentialStore(""))
	_, err := c.Get(context.Background(), "/repos/acme/website/contents/a.txt")

	require.Error(t, err)
	assert.True(t, githubapi.IsKind(err, githubapi.KindUnauthenticated))
	assert.Zero(t, requests.Load())
}

func TestRequest_401_ClearsCredentialAndNeverRetries(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer srv.Close()

	creds := store.NewMemoryCredentialStore("expired")
	c := newClient(srv, creds)

	_, err := c.Get(context.Background(), "/repos/acme/website/contents/a.txt")
	require.Error(t, err)
	assert.True(t, githubapi.IsKind(err, githubapi.KindUnauthenticated))
	assert.Contains(t, err.Error(), "Bad credentials")
	assert.Equal(t, int32(1), requests.Load(), "401 must not be retried")

	tok, err := creds.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok, "401 must evict the stored credential")

	// The next call fails fast: the credential is gone, so no request goes out.
	_, err = c.Get(context.Background(), "/repos/acme/website/contents/b.txt")
	assert.True(t, githubapi.IsKind(err, githubapi.KindUnauthenticated))
	assert.Equal(t, int32(1), requests.Load())
}

// ─── classification ───────────────────────────────────────────────────────────

func TestRequest_403WithExhaustedLimit_IsRateLimited(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	}))
	defer srv.Close()

	c := newClient(srv, store.NewMemoryCredentialStore("tok"))
	_, err := c.Get(context.Background(), "/repos/acme/website/contents/a.txt")

	require.Error(t, err)
	assert.True(t, githubapi.IsKind(err, githubapi.KindRateLimited))
	assert.Equal(t, int32(1), requests.Load(), "rate limiting must not be retried")
}

func TestRequest_Plain403_IsForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Resource not accessible"}`))
	}))
	defer srv.Close()

	c := newClient(srv, store.NewMemoryCredentialStore("tok"))
	_, err := c.Get(context.Background(), "/repos/acme/private/contents/a.txt")

	assert.True(t, githubapi.IsKind(err, githubapi.KindForbidden))
}

func TestRequest_404_IsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer srv.Close()

	c := newClient(srv, store.NewMemoryCredentialStore("tok"))
	_, err := c.Get(context.Background(), "/repos/acme/website/contents/missing.txt")

	assert.True(t, githubapi.IsKind(err, githubapi.KindNotFound))
}

func TestRequest_409_IsConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"sha does not match"}`))
	}))
	defer srv.Close()

	c := newClient(srv, store.NewMemoryCredentialStore("tok"))
	_, err := c.Put(context.Background(), "/repos/acme/website/contents/a.txt", map[string]string{})

	assert.True(t, githubapi.IsKind(err, githubapi.KindConflict))
}

// ─── retry budget ─────────────────────────────────────────────────────────────

func TestRequest_TransientFailuresRetryWithinBudget(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"sha":"ok"}`))
	}))
	defer srv.Close()

	c := newClient(srv, store.NewMemoryCredentialStore("tok"))
	raw, err := c.Get(context.Background(), "/repos/acme/website-flaky/contents/a.txt")

	require.NoError(t, err, "two 500s then a 200 fits a budget of three attempts")
	assert.JSONEq(t, `{"sha":"ok"}`, string(raw))
	assert.Equal(t, int32(3), requests.Load())
}

func TestRequest_BudgetExhausted_SurfacesTransient(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newClient(srv, store.NewMemoryCredentialStore("tok"))
	_, err := c.Get(context.Background(), "/repos/acme/website/contents/a.txt")

	require.Error(t, err)
	assert.True(t, githubapi.IsKind(err, githubapi.KindTransient))
	assert.Equal(t, int32(3), requests.Load(), "budget counts total attempts")
}

func TestRequest_CustomRetryBudget(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := githubapi.NewClient(srv.URL, store.NewMemoryCredentialStore("tok"), testLogger(),
		githubapi.WithRetries(1), githubapi.WithBackoff(time.Millisecond))
	_, err := c.Get(context.Background(), "/repos/acme/website/contents/a.txt")

	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load())
}

func TestRequest_NetworkFailure_IsRetriedThenSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listens anymore

	c := newClient(srv, store.NewMemoryCredentialStore("tok"))
	_, err := c.Get(context.Background(), "/repos/acme/website/contents/a.txt")

	require.Error(t, err)
	assert.True(t, githubapi.IsKind(err, githubapi.KindNetwork))
}

func TestRequest_ContextCancelStopsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := githubapi.NewClient(srv.URL, store.NewMemoryCredentialStore("tok"), testLogger(),
		githubapi.WithBackoff(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Get(ctx, "/repos/acme/website/contents/a.txt")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
