package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Output filename suffixes recognized by Combine.
const (
	SuffixBlog     = "_blog_articles.json"
	SuffixArticles = "_articles.json"
	SuffixNews     = "_news.json"
)

// ValidFilename reports whether name follows the output naming convention.
func ValidFilename(name string) bool {
	if name != filepath.Base(name) {
		return false
	}
	return strings.HasSuffix(name, SuffixArticles) || strings.HasSuffix(name, SuffixNews)
}

// JSONStorage writes each batch as a JSON array to <dir>/<filename>.
type JSONStorage struct {
	dir    string
	logger *slog.Logger
}

// NewJSONStorage creates the output directory if needed.
func NewJSONStorage(dir string, logger *slog.Logger) (*JSONStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "json", Err: fmt.Errorf("create output dir: %w", err)}
	}
	return &JSONStorage{dir: dir, logger: logger.With("component", "json_storage")}, nil
}

func (s *JSONStorage) Name() string { return "json" }

func (s *JSONStorage) Store(_ context.Context, b Batch) error {
	path, err := WriteArticles(s.dir, b.Filename, b.Articles)
	if err != nil {
		return err
	}
	s.logger.Info("JSON written", "site", b.Site, "path", path, "articles", len(b.Articles))
	return nil
}

func (s *JSONStorage) Close() error { return nil }

// WriteArticles writes UTF-8 JSON with two-space indentation and without
// HTML escaping, replacing any previous file.
func WriteArticles(dir, filename string, articles []types.Article) (string, error) {
	if !ValidFilename(filename) {
		return "", &types.StorageError{Backend: "json", Err: fmt.Errorf("filename %q must end in %s or %s", filename, SuffixArticles, SuffixNews)}
	}
	if articles == nil {
		articles = []types.Article{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(articles); err != nil {
		return "", &types.StorageError{Backend: "json", Err: fmt.Errorf("encode JSON: %w", err)}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &types.StorageError{Backend: "json", Err: err}
	}
	path := filepath.Join(dir, filename)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return "", &types.StorageError{Backend: "json", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", &types.StorageError{Backend: "json", Err: err}
	}
	return path, nil
}

// ReadArticles loads a JSON array of articles.
func ReadArticles(path string) ([]types.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.StorageError{Backend: "json", Err: err}
	}
	var out []types.Article
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &types.StorageError{Backend: "json", Err: fmt.Errorf("decode %s: %w", filepath.Base(path), err)}
	}
	return out, nil
}

// DumpHTML saves a raw page snapshot as <dir>/debug_<site>_page_<n>.html.
func DumpHTML(dir, site string, page int, html string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("debug_%s_page_%d.html", site, page))
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
