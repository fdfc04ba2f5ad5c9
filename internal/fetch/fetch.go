// Package fetch downloads a remote resource to local disk.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// FetchError reports a non-200 response. Nothing is written when it occurs.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("download %s failed: %s", e.URL, e.Status)
}

// Result describes a completed download.
type Result struct {
	Path  string
	Bytes int64
}

// Resource issues a single GET for url and writes the body to destPath,
// replacing any existing file. There are no retries and no content checks.
// A nil client uses http.DefaultClient.
func Resource(ctx context.Context, client *http.Client, url, destPath string) (Result, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Result{}, &FetchError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, err
		}
	}
	tmp := destPath + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return Result{}, err
	}
	n, err := io.Copy(out, resp.Body)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return Result{}, fmt.Errorf("write %s: %w", destPath, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return Result{}, err
	}
	if err := os.Rename(tmp, destPath); err != nil {
		return Result{}, err
	}
	return Result{Path: destPath, Bytes: n}, nil
}
