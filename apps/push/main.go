// push is the command-line collaborator for the gitstow server: it flattens
// a local directory into file records, preflights the target repo/branch,
// stores the credential, starts a batch, and prints per-file progress.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/kessler/gitstow/apps/push/internal/platform/github"
	"github.com/kessler/gitstow/apps/push/internal/scan"
	"github.com/kessler/gitstow/pkg/api"
	"github.com/kessler/gitstow/pkg/logging"
)

func main() {
	var (
		dir       = flag.String("dir", ".", "local directory to upload")
		owner     = flag.String("owner", "", "repository owner")
		repo      = flag.String("repo", "", "repository name")
		branch    = flag.String("branch", "main", "target branch")
		message   = flag.String("message", "", "commit message (per-file default when empty)")
		serverURL = flag.String("server", "http://localhost:8080", "gitstow server URL")
		githubURL = flag.String("github", "", "GitHub API URL override (mock server)")
		token     = flag.String("token", os.Getenv("GITHUB_TOKEN"), "GitHub bearer token")
	)
	flag.Parse()

	log := logging.New()
	if *owner == "" || *repo == "" {
		log.Error("both -owner and -repo are required")
		os.Exit(1)
	}
	if *token == "" {
		log.Error("no token: pass -token or set GITHUB_TOKEN")
		os.Exit(1)
	}

	ctx := context.Background()

	records, err := scan.Collect(*dir)
	if err != nil {
		log.Error("failed to scan directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		log.Error("nothing to upload", "dir", *dir)
		os.Exit(1)
	}
	log.Info("collected files", "dir", *dir, "count", len(records))

	// Fail on a bad target before any upload is attempted.
	gh := github.NewTokenClient(*token, *githubURL)
	if err := github.Preflight(ctx, gh, *owner, *repo, *branch); err != nil {
		log.Error("preflight failed", "error", err)
		os.Exit(1)
	}

	if err := putCredential(ctx, *serverURL, *token); err != nil {
		log.Error("failed to store credential", "error", err)
		os.Exit(1)
	}

	// Best-effort progress stream; the final report arrives either way.
	go streamProgress(ctx, *serverURL, log)

	report, err := runBatch(ctx, *serverURL, api.BatchRequest{
		Owner:   *owner,
		Repo:    *repo,
		Branch:  *branch,
		Message: *message,
		Files:   records,
	})
	if err != nil {
		log.Error("batch failed", "error", err)
		os.Exit(1)
	}

	log.Info("batch finished", "uploaded", len(report.Results), "failed", len(report.Errors))
	for _, fe := range report.Errors {
		fmt.Fprintf(os.Stderr, "failed: %s: %s\n", fe.File, fe.Error)
	}
	if len(report.Errors) > 0 {
		os.Exit(1)
	}
}

func putCredential(ctx context.Context, serverURL, token string) error {
	body, err := json.Marshal(api.CredentialRequest{Token: token})
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, serverURL+"/credential", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("PUT /credential: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // non-actionable after reading

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("PUT /credential returned %d", resp.StatusCode)
	}
	return nil
}

func runBatch(ctx context.Context, serverURL string, batch api.BatchRequest) (*api.BatchReport, error) {
	body, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL+"/batches", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// The server responds when the whole batch is done; no client timeout.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST /batches: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // non-actionable after reading

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, fmt.Errorf("POST /batches returned %d: %s", resp.StatusCode, apiErr.Error)
	}

	var report api.BatchReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// streamProgress tails the server's SSE progress stream and prints one line
// per completed file. Purely cosmetic — errors here never fail the push.
func streamProgress(ctx context.Context, serverURL string, log *slog.Logger) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL+"/progress", http.NoBody)
	if err != nil {
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Debug("progress stream unavailable", "error", err)
		return
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // non-actionable after reading

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var ev api.ProgressEvent
		if err := json.Unmarshal([]byte(strings.TrimSpace(line[len("data:"):])), &ev); err != nil {
			continue
		}
		mark := "ok"
		if ev.Status == api.ProgressError {
			mark = "ERR"
		}
		fmt.Printf("[%d/%d] %s %s\n", ev.Current, ev.Total, mark, ev.File)
	}
}
