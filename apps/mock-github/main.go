// mock-github is a stand-in for the GitHub REST contents API, used for
// local development and end-to-end exercise of the upload pipeline without
// touching the network. It implements GET and PUT on
// /repos/:owner/:repo/contents/*path with real create/update sha semantics,
// bearer-token auth, and fault injection via magic repo suffixes:
//
//	owner/<repo>-flaky        every request fails 500 twice, then succeeds
//	owner/<repo>-ratelimited  every request fails 403 with the rate-limit
//	                          header exhausted
//
// The expected bearer token comes from MOCK_GITHUB_TOKEN; when unset, any
// non-empty token is accepted.
package main

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

type fileEntry struct {
	content []byte // decoded bytes
	sha     string // git blob sha of content
}

// repoStore holds file content keyed by "owner/repo", plus per-path fault
// counters for the flaky repos.
type repoStore struct {
	mu       sync.Mutex
	files    map[string]map[string]fileEntry // repo key → path → entry
	failures map[string]int                  // "owner/repo/path" → 500s served so far
	commits  map[string]int                  // repo key → commit count
}

func newRepoStore() *repoStore {
	return &repoStore{
		files:    make(map[string]map[string]fileEntry),
		failures: make(map[string]int),
		commits:  make(map[string]int),
	}
}

// blobSHA computes the git blob object id for content, the same value the
// real contents API reports and requires for updates.
func blobSHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *repoStore) seed(owner, repo, path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := owner + "/" + repo
	if s.files[key] == nil {
		s.files[key] = make(map[string]fileEntry)
	}
	s.files[key][path] = fileEntry{content: []byte(content), sha: blobSHA([]byte(content))}
}

func (s *repoStore) get(owner, repo, path string) (fileEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.files[owner+"/"+repo][path]
	return e, ok
}

// put creates or updates a file. reqSHA must match the stored blob sha when
// the file already exists; a mismatch or omission is a conflict, exactly as
// the real API refuses a lost update.
func (s *repoStore) put(owner, repo, path string, content []byte, reqSHA string) (entry fileEntry, commitSHA string, created bool, conflict bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := owner + "/" + repo
	if s.files[key] == nil {
		s.files[key] = make(map[string]fileEntry)
	}

	existing, exists := s.files[key][path]
	if exists && reqSHA != existing.sha {
		return fileEntry{}, "", false, true
	}

	entry = fileEntry{content: content, sha: blobSHA(content)}
	s.files[key][path] = entry

	s.commits[key]++
	commitSHA = blobSHA(fmt.Appendf(nil, "commit %s %s %d", key, path, s.commits[key]))
	return entry, commitSHA, !exists, false
}

// nextFailure advances the flaky counter for a path and reports whether this
// request should fail. Two failures are served per successful request so a
// default retry budget of 3 eventually gets through.
func (s *repoStore) nextFailure(owner, repo, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := owner + "/" + repo + "/" + path
	s.failures[key]++
	if s.failures[key]%3 == 0 {
		return false
	}
	return true
}

func (s *repoStore) listRepos() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	repos := make([]string, 0, len(s.files))
	for key := range s.files {
		repos = append(repos, key)
	}
	sort.Strings(repos)
	return repos
}

func (s *repoStore) listPaths(owner, repo string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.files[owner+"/"+repo]))
	for p := range s.files[owner+"/"+repo] {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	s := newRepoStore()

	seedRepos(s)
	log.Info("seeded repos", "repos", len(s.files))

	r := gin.Default()
	registerRoutes(r, s, log)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	log.Info("mock-github starting", "port", port)
	if err := r.Run(":" + port); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func registerRoutes(r *gin.Engine, s *repoStore, log *slog.Logger) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Plain-text listing of seeded repos and their files, handy in a browser.
	r.GET("/", func(c *gin.Context) {
		var sb strings.Builder
		for _, repo := range s.listRepos() {
			fmt.Fprintf(&sb, "%s\n", repo)
			parts := strings.SplitN(repo, "/", 2)
			for _, p := range s.listPaths(parts[0], parts[1]) {
				fmt.Fprintf(&sb, "  %s\n", p)
			}
		}
		c.String(http.StatusOK, sb.String())
	})

	authed := r.Group("/", requireBearer(log))

	authed.GET("/repos/:owner/:repo/contents/*path", func(c *gin.Context) {
		owner := c.Param("owner")
		repo := c.Param("repo")
		path := strings.TrimPrefix(c.Param("path"), "/")

		if injectFault(c, s, owner, repo, path) {
			return
		}

		entry, ok := s.get(owner, repo, path)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"message": "Not Found",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"name":     path[strings.LastIndex(path, "/")+1:],
			"path":     path,
			"sha":      entry.sha,
			"size":     len(entry.content),
			"content":  base64.StdEncoding.EncodeToString(entry.content),
			"encoding": "base64",
		})
	})

	authed.PUT("/repos/:owner/:repo/contents/*path", func(c *gin.Context) {
		owner := c.Param("owner")
		repo := c.Param("repo")
		path := strings.TrimPrefix(c.Param("path"), "/")

		if injectFault(c, s, owner, repo, path) {
			return
		}

		var req struct {
			Message string `json:"message" binding:"required"`
			Content string `json:"content" binding:"required"`
			Branch  string `json:"branch"`
			SHA     string `json:"sha"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}

		content, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "content is not valid base64"})
			return
		}

		entry, commitSHA, created, conflict := s.put(owner, repo, path, content, req.SHA)
		if conflict {
			c.JSON(http.StatusConflict, gin.H{
				"message": fmt.Sprintf("%s does not match the current blob sha", path),
			})
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		log.Info("content put", "owner", owner, "repo", repo, "path", path,
			"created", created, "message", req.Message)
		c.JSON(status, gin.H{
			"content": gin.H{"path": path, "sha": entry.sha},
			"commit":  gin.H{"sha": commitSHA},
		})
	})
}

// requireBearer enforces Authorization: Bearer <token>. The expected token
// comes from MOCK_GITHUB_TOKEN; unset means any non-empty token passes.
func requireBearer(log *slog.Logger) gin.HandlerFunc {
	expected := os.Getenv("MOCK_GITHUB_TOKEN")
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" || token == c.GetHeader("Authorization") ||
			(expected != "" && token != expected) {
			log.Warn("rejected request with bad credentials", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Bad credentials"})
			return
		}
		c.Next()
	}
}

// injectFault applies the magic-suffix fault behaviors. Returns true when a
// response has already been written.
func injectFault(c *gin.Context, s *repoStore, owner, repo, path string) bool {
	switch {
	case strings.HasSuffix(repo, "-ratelimited"):
		c.Header("X-RateLimit-Remaining", "0")
		c.JSON(http.StatusForbidden, gin.H{"message": "API rate limit exceeded"})
		return true
	case strings.HasSuffix(repo, "-flaky"):
		if s.nextFailure(owner, repo, path) {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "temporary hiccup"})
			return true
		}
	}
	return false
}
