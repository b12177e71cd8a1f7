package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// ArticleRow is one row of the articles table.
type ArticleRow struct {
	ID           int64
	Title        string
	Date         string
	Link         string
	Description  string
	Source       string
	Type         string
	MainIdeas    []string
	Tags         []string
	OriginalText string

	// Tri-state: nil means not yet validated.
	ValidationStatus  *int
	ValidationComment *string
	// Relevance is set by human reviewers only.
	Relevance *int
}

// Validation is a verdict to write back for one article.
type Validation struct {
	ID      int64
	Status  int
	Comment string
}

const articlesSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT,
	date TEXT,
	link TEXT UNIQUE,
	description TEXT,
	source TEXT,
	type TEXT,
	main_ideas TEXT,
	tags TEXT,
	original_text TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source);
`

// validationColumns are added on demand, in order.
var validationColumns = []struct{ name, decl string }{
	{"validation_status", "INTEGER DEFAULT NULL"},
	{"validation_comment", "TEXT DEFAULT NULL"},
	{"relevance", "INTEGER DEFAULT NULL"},
}

// SQLiteStore is the relational article store.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database and the articles table.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("pragma %s: %w", p, err)}
		}
	}
	if _, err := db.Exec(articlesSchema); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("schema: %w", err)}
	}

	return &SQLiteStore{db: db, logger: logger.With("component", "sqlite_store")}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Columns returns the column names of the articles table.
func (s *SQLiteStore) Columns(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(articles)")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// EnsureValidationColumns adds validation_status, validation_comment and
// relevance when missing. Safe to call repeatedly.
func (s *SQLiteStore) EnsureValidationColumns(ctx context.Context) error {
	cols, err := s.Columns(ctx)
	if err != nil {
		return &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("inspect columns: %w", err)}
	}
	for _, c := range validationColumns {
		if cols[c.name] {
			continue
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE articles ADD COLUMN %s %s", c.name, c.decl)); err != nil {
			return &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("add column %s: %w", c.name, err)}
		}
		s.logger.Info("column added", "table", "articles", "column", c.name)
	}
	return nil
}

// InsertArticle inserts a row unless its link already exists.
func (s *SQLiteStore) InsertArticle(ctx context.Context, r ArticleRow) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO articles (title, date, link, description, source, type, main_ideas, tags, original_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Title, r.Date, r.Link, r.Description, r.Source, r.Type,
		encodeList(r.MainIdeas), encodeList(r.Tags), r.OriginalText,
	)
	if err != nil {
		return false, &types.StorageError{Backend: "sqlite", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &types.StorageError{Backend: "sqlite", Err: err}
	}
	return n > 0, nil
}

// Links returns every stored link.
func (s *SQLiteStore) Links(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT link FROM articles WHERE link IS NOT NULL")
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}
	defer rows.Close()

	var links []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: err}
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

const rowColumns = `id, title, date, link, description, source, type, main_ideas, tags, original_text`

// ListForValidation returns rows ordered by id, optionally only those
// never validated. EnsureValidationColumns must have run first.
func (s *SQLiteStore) ListForValidation(ctx context.Context, onlyUnvalidated bool) ([]ArticleRow, error) {
	q := "SELECT " + rowColumns + ", validation_status, validation_comment, relevance FROM articles"
	if onlyUnvalidated {
		q += " WHERE validation_status IS NULL"
	}
	q += " ORDER BY id"
	return s.query(ctx, q, true)
}

// Get returns one row by id, or types.ErrNotFound. Validation fields are
// read only once the validation columns exist.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*ArticleRow, error) {
	cols, err := s.Columns(ctx)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("inspect columns: %w", err)}
	}
	q := "SELECT " + rowColumns
	withValidation := cols["validation_status"] && cols["validation_comment"] && cols["relevance"]
	if withValidation {
		q += ", validation_status, validation_comment, relevance"
	}
	rows, err := s.query(ctx, q+" FROM articles WHERE id = ?", withValidation, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("article %d: %w", id, types.ErrNotFound)
	}
	return &rows[0], nil
}

// ListForEnrichment returns up to limit rows with no original_text. With
// withIdeas it also returns rows whose main_ideas list is empty.
func (s *SQLiteStore) ListForEnrichment(ctx context.Context, limit int, withIdeas bool) ([]ArticleRow, error) {
	where := "original_text IS NULL OR original_text = ''"
	if withIdeas {
		where += " OR main_ideas IS NULL OR TRIM(main_ideas) IN ('', '[]')"
	}
	q := "SELECT " + rowColumns + " FROM articles WHERE " + where + " ORDER BY id"
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return s.query(ctx, q, false)
}

// SetEnhancement stores the body text, main ideas and tags of an article.
func (s *SQLiteStore) SetEnhancement(ctx context.Context, id int64, ideas, tags []string, text string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE articles SET main_ideas = ?, tags = ?, original_text = ? WHERE id = ?",
		encodeList(ideas), encodeList(tags), text, id)
	if err != nil {
		return &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("update article %d: %w", id, err)}
	}
	return nil
}

// SaveValidations writes verdicts in a single transaction. Relevance is
// never touched.
func (s *SQLiteStore) SaveValidations(ctx context.Context, vs []Validation) error {
	if len(vs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &types.StorageError{Backend: "sqlite", Err: err}
	}
	stmt, err := tx.PrepareContext(ctx, "UPDATE articles SET validation_status = ?, validation_comment = ? WHERE id = ?")
	if err != nil {
		_ = tx.Rollback()
		return &types.StorageError{Backend: "sqlite", Err: err}
	}
	defer stmt.Close()

	for _, v := range vs {
		if _, err := stmt.ExecContext(ctx, v.Status, v.Comment, v.ID); err != nil {
			_ = tx.Rollback()
			return &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("update article %d: %w", v.ID, err)}
		}
	}
	if err := tx.Commit(); err != nil {
		return &types.StorageError{Backend: "sqlite", Err: err}
	}
	return nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, withValidation bool, args ...any) ([]ArticleRow, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}
	defer rows.Close()

	var out []ArticleRow
	for rows.Next() {
		var r ArticleRow
		var title, date, link, desc, source, typ, ideas, tags, text, comment sql.NullString
		var status, relevance sql.NullInt64
		dest := []any{&r.ID, &title, &date, &link, &desc, &source, &typ, &ideas, &tags, &text}
		if withValidation {
			dest = append(dest, &status, &comment, &relevance)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: err}
		}

		r.Title, r.Date, r.Link = title.String, date.String, link.String
		r.Description, r.Source, r.Type = desc.String, source.String, typ.String
		r.MainIdeas = decodeList(ideas.String)
		r.Tags = decodeList(tags.String)
		r.OriginalText = text.String
		if status.Valid {
			v := int(status.Int64)
			r.ValidationStatus = &v
		}
		if comment.Valid {
			c := comment.String
			r.ValidationComment = &c
		}
		if relevance.Valid {
			v := int(relevance.Int64)
			r.Relevance = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func encodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

// decodeList parses a JSON array column. Non-JSON text becomes a single item.
func decodeList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{raw}
	}
	return out
}

// IsNotFound reports whether err means a missing row.
func IsNotFound(err error) bool { return errors.Is(err, types.ErrNotFound) }
