package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// CombineResult summarizes one Combine run.
type CombineResult struct {
	Files      int
	Read       int
	Inserted   int
	Duplicates int
	Skipped    int
}

// Combine loads every scrape output file in dataDir into the articles
// table. Links already stored, or seen earlier in this run, are skipped.
func Combine(ctx context.Context, dataDir string, store *SQLiteStore, logger *slog.Logger) (*CombineResult, error) {
	logger = logger.With("component", "combine")

	files, err := OutputFiles(dataDir)
	if err != nil {
		return nil, err
	}

	existing, err := store.Links(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(existing))
	for _, l := range existing {
		seen[parser.CanonicalizeLink(l)] = true
	}

	res := &CombineResult{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		name := filepath.Base(path)
		articles, err := ReadArticles(path)
		if err != nil {
			logger.Warn("skipping unreadable file", "file", name, "error", err)
			res.Skipped++
			continue
		}
		res.Files++

		source, kind := SourceOf(name)
		for _, a := range articles {
			res.Read++
			key := parser.CanonicalizeLink(a.Link)
			if key == "" || seen[key] {
				res.Duplicates++
				continue
			}
			seen[key] = true

			ok, err := store.InsertArticle(ctx, ArticleRow{
				Title:       a.Title,
				Date:        a.Date,
				Link:        a.Link,
				Description: a.Description,
				Source:      source,
				Type:        string(kind),
				Tags:        a.Tags,
			})
			if err != nil {
				return res, fmt.Errorf("insert %s: %w", a.Link, err)
			}
			if ok {
				res.Inserted++
			} else {
				res.Duplicates++
			}
		}
		logger.Info("file combined", "file", name, "source", source, "type", kind, "articles", len(articles))
	}

	logger.Info("combine complete",
		"files", res.Files,
		"read", res.Read,
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
		"skipped", res.Skipped,
	)
	return res, nil
}

// OutputFiles lists scrape output files in dir, sorted by name.
func OutputFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*" + SuffixArticles, "*" + SuffixNews} {
		m, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, m...)
	}
	sort.Strings(files)
	return files, nil
}

// SourceOf derives the source name and record kind from an output filename:
// "ibm_news.json" is ("Ibm", news), "nokia_blog_articles.json" is ("Nokia", blog).
func SourceOf(filename string) (string, types.Kind) {
	var prefix string
	kind := types.KindArticles
	switch {
	case strings.HasSuffix(filename, SuffixBlog):
		prefix, kind = strings.TrimSuffix(filename, SuffixBlog), types.KindBlog
	case strings.HasSuffix(filename, SuffixNews):
		prefix, kind = strings.TrimSuffix(filename, SuffixNews), types.KindNews
	default:
		prefix = strings.TrimSuffix(filename, SuffixArticles)
	}
	if prefix == "" {
		return "", kind
	}
	return strings.ToUpper(prefix[:1]) + strings.ToLower(prefix[1:]), kind
}
