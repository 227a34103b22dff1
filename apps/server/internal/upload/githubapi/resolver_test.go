package githubapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessler/gitstow/apps/server/internal/upload/githubapi"
	"github.com/kessler/gitstow/apps/server/internal/upload/store"
)

func newResolver(srv *httptest.Server) *githubapi.Resolver {
	return githubapi.NewResolver(newClient(srv, store.NewMemoryCredentialStore("tok")))
}

func TestLookup_ExistingPath_ReturnsSha(t *testing.T) {
	var gotPath, gotRef string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRef = r.URL.Query().Get("ref")
		_, _ = w.Write([]byte(`{"sha":"95d09f2b","path":"docs/readme.md"}`))
	}))
	defer srv.Close()

	sha, err := newResolver(srv).Lookup(context.Background(), "acme", "website", "docs/readme.md", "main")

	require.NoError(t, err)
	assert.Equal(t, "95d09f2b", sha)
	assert.Equal(t, "/repos/acme/website/contents/docs/readme.md", gotPath)
	assert.Equal(t, "main", gotRef)
}

func TestLookup_AbsentPath_ReturnsEmptyShaNoError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer srv.Close()

	sha, err := newResolver(srv).Lookup(context.Background(), "acme", "website", "new.txt", "main")

	require.NoError(t, err, "absence is the create-new-file signal, not a failure")
	assert.Empty(t, sha)
}

func TestLookup_OtherFailures_Propagate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newResolver(srv).Lookup(context.Background(), "acme", "website", "a.txt", "main")

	require.Error(t, err)
	assert.True(t, githubapi.IsKind(err, githubapi.KindRateLimited))
}

func TestLookup_EscapesPathSegmentsAndBranch(t *testing.T) {
	var gotURI string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newResolver(srv).Lookup(context.Background(), "acme", "website", "docs/release notes.md", "feature/v2")

	require.NoError(t, err)
	assert.Equal(t, "/repos/acme/website/contents/docs/release%20notes.md?ref=feature%2Fv2", gotURI)
}

func TestLookup_FreshPerCall(t *testing.T) {
	shas := []string{`{"sha":"first"}`, `{"sha":"second"}`}
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(shas[calls]))
		calls++
	}))
	defer srv.Close()

	r := newResolver(srv)
	first, err := r.Lookup(context.Background(), "acme", "website", "a.txt", "main")
	require.NoError(t, err)
	second, err := r.Lookup(context.Background(), "acme", "website", "a.txt", "main")
	require.NoError(t, err)

	assert.Equal(t, "first", first)
	assert.Equal(t, "second", second, "lookups must not cache across calls")
	assert.Equal(t, 2, calls)
}

func TestLookup_HonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := newResolver(srv).Lookup(ctx, "acme", "website", "a.txt", "main")

	assert.Error(t, err)
}
