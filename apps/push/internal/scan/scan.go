// Package scan flattens a local directory tree into the upload file records
// the server consumes. The filesystem's file-or-directory entries collapse
// here, at the collaborator boundary — the batch orchestrator only ever sees
// flat, repo-relative file records.
package scan

import (
	"encoding/base64"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"

	"github.com/kessler/gitstow/pkg/api"
)

// Collect walks root and returns one FileRecord per regular file, ordered
// by path. Paths are repo-relative and forward-slash separated, content is
// base64-encoded, and the mime type is derived from the extension
// (advisory). VCS metadata under .git is skipped.
func Collect(root string) ([]api.FileRecord, error) {
	var records []api.FileRecord

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", p, err)
		}

		records = append(records, api.FileRecord{
			Path:    filepath.ToSlash(rel),
			Content: base64.StdEncoding.EncodeToString(data),
			Size:    int64(len(data)),
			Type:    mime.TypeByExtension(filepath.Ext(p)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, nil
}
