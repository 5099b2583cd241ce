// Package blob provides blob storage for uploaded data files.
//
// The store writes objects and hands back fetchable URLs; pipelines only
// ever read file content back through a generic HTTP fetch of that URL,
// never through a storage-specific API.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidKey indicates an unsafe or empty object key.
	ErrInvalidKey = errors.New("invalid object key")
)

// Store writes blobs and returns URLs they can be fetched from.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
}

// FSStore is a filesystem-backed Store. Objects are written under Root and
// addressed as PublicBaseURL/<key>; the HTTP server serves Root at that
// prefix.
type FSStore struct {
	Root          string
	PublicBaseURL string
}

// NewFSStore creates a filesystem store rooted at root.
func NewFSStore(root, publicBaseURL string) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("root is required")
	}
	if publicBaseURL == "" {
		return nil, fmt.Errorf("public base URL is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	return &FSStore{
		Root:          root,
		PublicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

// Put implements Store.
func (s *FSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	dst := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("creating object directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("writing object: %w", err)
	}

	return s.PublicBaseURL + "/" + key, nil
}

// validateKey rejects keys that would escape the storage root.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: absolute path", ErrInvalidKey)
	}
	cleaned := path.Clean(key)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("%w: path traversal", ErrInvalidKey)
	}
	return nil
}

// FetchText GETs url and returns at most maxBytes of the body as text.
// The truncation bounds prompt size for the analysis pipeline.
func FetchText(ctx context.Context, client *http.Client, url string, maxBytes int64) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	return string(body), nil
}
