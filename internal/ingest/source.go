package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Source lists and fetches documents from some backing location.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, key string) (*Document, error)
}

// FSSource reads documents from a directory tree. Keys are paths
// relative to the root; only text-like files are listed.
type FSSource struct {
	root       string
	extensions map[string]bool
}

// NewFSSource creates a filesystem source rooted at dir. With no
// extensions given, markdown and plain text files are picked up.
func NewFSSource(dir string, extensions ...string) *FSSource {
	if len(extensions) == 0 {
		extensions = []string{".md", ".txt"}
	}
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &FSSource{root: dir, extensions: allowed}
}

func (s *FSSource) List(_ context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !s.extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *FSSource) Fetch(_ context.Context, key string) (*Document, error) {
	content, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		return nil, err
	}

	title := strings.TrimSuffix(filepath.Base(key), filepath.Ext(key))
	return &Document{
		ID:      key,
		Title:   title,
		Content: string(content),
		Metadata: map[string]string{
			"source": "fs",
			"path":   key,
		},
	}, nil
}
