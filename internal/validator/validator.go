// Package validator asks an LLM to flag incomplete or mis-scraped article
// rows and records its verdict next to each row.
package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/IshaanNene/NewsHarvest/internal/ai"
	"github.com/IshaanNene/NewsHarvest/internal/observability"
	"github.com/IshaanNene/NewsHarvest/internal/storage"
)

// Store is the subset of the article store the validator needs.
type Store interface {
	EnsureValidationColumns(ctx context.Context) error
	ListForValidation(ctx context.Context, onlyUnvalidated bool) ([]storage.ArticleRow, error)
	Get(ctx context.Context, id int64) (*storage.ArticleRow, error)
	SaveValidations(ctx context.Context, vs []storage.Validation) error
}

// Options controls a validation pass.
type Options struct {
	BatchSize       int
	Delay           time.Duration
	OnlyUnvalidated bool
	PreviewChars    int
}

// Summary counts the outcome of a pass.
type Summary struct {
	Processed int
	Valid     int
	Invalid   int
}

// Validator runs LLM quality checks over stored articles.
type Validator struct {
	store   Store
	llm     ai.Generator
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a validator. metrics may be nil.
func New(store Store, llm ai.Generator, metrics *observability.Metrics, logger *slog.Logger) *Validator {
	return &Validator{
		store:   store,
		llm:     llm,
		metrics: metrics,
		logger:  logger.With("component", "validator"),
	}
}

// EnsureSchema adds the validation columns when missing.
func (v *Validator) EnsureSchema(ctx context.Context) error {
	return v.store.EnsureValidationColumns(ctx)
}

// ValidateAll checks every row (or only unvalidated ones), committing every
// BatchSize verdicts and once more at the end.
func (v *Validator) ValidateAll(ctx context.Context, opts Options) (*Summary, error) {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if err := v.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	rows, err := v.store.ListForValidation(ctx, opts.OnlyUnvalidated)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		v.logger.Info("no articles to validate")
		return &Summary{}, nil
	}
	v.logger.Info("validation started", "articles", len(rows), "only_unvalidated", opts.OnlyUnvalidated)

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	sum := &Summary{}
	pending := make([]storage.Validation, 0, opts.BatchSize)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := v.store.SaveValidations(ctx, pending); err != nil {
			return err
		}
		v.logger.Debug("batch committed", "size", len(pending), "processed", sum.Processed)
		pending = pending[:0]
		return nil
	}

	for i := range rows {
		if err := limiter.Wait(ctx); err != nil {
			// Keep what was already judged.
			_ = flush()
			return sum, err
		}

		row := &rows[i]
		status, comment := v.check(ctx, row, opts.PreviewChars)
		pending = append(pending, storage.Validation{ID: row.ID, Status: status, Comment: comment})
		v.tally(sum, status)
		v.logger.Info("article validated",
			"progress", fmt.Sprintf("%d/%d", i+1, len(rows)),
			"id", row.ID,
			"status", status,
			"comment", truncate(comment, 100),
		)

		if len(pending) >= opts.BatchSize {
			if err := flush(); err != nil {
				return sum, err
			}
		}
	}
	if err := flush(); err != nil {
		return sum, err
	}

	v.logger.Info("validation complete", "processed", sum.Processed, "valid", sum.Valid, "invalid", sum.Invalid)
	return sum, nil
}

// ValidateOne checks a single row by id.
func (v *Validator) ValidateOne(ctx context.Context, id int64, previewChars int) (storage.Validation, error) {
	if err := v.EnsureSchema(ctx); err != nil {
		return storage.Validation{}, err
	}
	row, err := v.store.Get(ctx, id)
	if err != nil {
		return storage.Validation{}, err
	}

	status, comment := v.check(ctx, row, previewChars)
	res := storage.Validation{ID: id, Status: status, Comment: comment}
	if err := v.store.SaveValidations(ctx, []storage.Validation{res}); err != nil {
		return storage.Validation{}, err
	}
	v.metrics.Validated(status)
	v.logger.Info("article validated", "id", id, "title", row.Title, "status", status, "comment", comment)
	return res, nil
}

// check never fails: call and parse errors become status 0 with a comment.
func (v *Validator) check(ctx context.Context, row *storage.ArticleRow, previewChars int) (int, string) {
	out, err := v.llm.Generate(ctx, systemPrompt, BuildPrompt(row, previewChars))
	if err != nil {
		v.logger.Warn("llm call failed", "id", row.ID, "error", err)
		return 0, fmt.Sprintf("Error during validation: %v", err)
	}
	status, comment, err := ParseVerdict(out)
	if err != nil {
		v.logger.Warn("unparseable llm response", "id", row.ID, "response", truncate(out, 200), "error", err)
		return 0, fmt.Sprintf("Error parsing validation response: %v", err)
	}
	return status, comment
}

func (v *Validator) tally(sum *Summary, status int) {
	sum.Processed++
	if status == 1 {
		sum.Valid++
	} else {
		sum.Invalid++
	}
	v.metrics.Validated(status)
}

// ParseVerdict decodes {"status": 0|1, "comment": "..."}. Only a numeric
// 1 or true counts as valid; a missing status counts as 1.
func ParseVerdict(raw string) (int, string, error) {
	var verdict map[string]any
	if err := json.Unmarshal([]byte(ai.StripCodeFences(raw)), &verdict); err != nil {
		return 0, "", err
	}
	comment, _ := verdict["comment"].(string)

	status, ok := verdict["status"]
	if !ok {
		return 1, comment, nil
	}
	switch s := status.(type) {
	case float64:
		if s == 1 {
			return 1, comment, nil
		}
	case bool:
		if s {
			return 1, comment, nil
		}
	}
	return 0, comment, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
