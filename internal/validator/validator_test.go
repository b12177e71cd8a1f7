package validator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/NewsHarvest/internal/storage"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type scriptedLLM struct {
	replies []string
	errs    []error
	prompts []string
}

func (s *scriptedLLM) Generate(_ context.Context, _, prompt string) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], err
	}
	return `{"status": 1, "comment": ""}`, err
}

func seedDB(t *testing.T, n int) *storage.SQLiteStore {
	t.Helper()
	s, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "v.db"), testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	for i := 0; i < n; i++ {
		_, err := s.InsertArticle(context.Background(), storage.ArticleRow{
			Title:        "Nokia and partner deploy 5G core",
			Date:         "2025-11-14",
			Link:         "https://www.nokia.com/newsroom/" + string(rune('a'+i)),
			Source:       "Nokia",
			Tags:         []string{"5G"},
			MainIdeas:    []string{"deployment"},
			OriginalText: strings.Repeat("body ", 50),
		})
		require.NoError(t, err)
	}
	return s
}

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		status  int
		comment string
		wantErr bool
	}{
		{"plain", `{"status": 1, "comment": ""}`, 1, "", false},
		{"fenced", "```json\n{\"status\": 0, \"comment\": \"6. No tags\"}\n```", 0, "6. No tags", false},
		{"coerced", `{"status": 2, "comment": "odd"}`, 0, "odd", false},
		{"missing status", `{"comment": "fine"}`, 1, "fine", false},
		{"float one", `{"status": 1.0, "comment": ""}`, 1, "", false},
		{"boolean true", `{"status": true, "comment": "ok"}`, 1, "ok", false},
		{"boolean false", `{"status": false}`, 0, "", false},
		{"string one", `{"status": "1", "comment": "quoted"}`, 0, "quoted", false},
		{"null status", `{"status": null}`, 0, "", false},
		{"array reply", `[{"status": 1}]`, 0, "", true},
		{"garbage", "I think it looks fine", 0, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, comment, err := ParseVerdict(tc.raw)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.comment, comment)
		})
	}
}

func TestBuildPromptBoundsBody(t *testing.T) {
	row := &storage.ArticleRow{Title: "T", OriginalText: strings.Repeat("x", 7000)}
	p := BuildPrompt(row, 0)
	assert.Contains(t, p, "Original Text Full Length: 7000 characters")
	assert.Contains(t, p, "Main Ideas: None (empty array)")
	assert.NotContains(t, p, strings.Repeat("x", 5001))
	assert.Contains(t, p, strings.Repeat("x", 5000))
	assert.Contains(t, p, "8. Original text contains error messages")
}

func TestValidateAllWritesVerdicts(t *testing.T) {
	ctx := context.Background()
	db := seedDB(t, 3)
	llm := &scriptedLLM{
		replies: []string{
			`{"status": 1, "comment": ""}`,
			"not json at all",
			`{"status": 1, "comment": ""}`,
		},
		errs: []error{nil, nil, errors.New("rate limited")},
	}

	v := New(db, llm, nil, testLogger)
	sum, err := v.ValidateAll(ctx, Options{BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 3, Valid: 1, Invalid: 2}, *sum)
	assert.Len(t, llm.prompts, 3)

	rows, err := db.ListForValidation(ctx, false)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, *rows[0].ValidationStatus)
	assert.Equal(t, 0, *rows[1].ValidationStatus)
	assert.True(t, strings.HasPrefix(*rows[1].ValidationComment, "Error parsing validation response:"))
	assert.Equal(t, 0, *rows[2].ValidationStatus)
	assert.Equal(t, "Error during validation: rate limited", *rows[2].ValidationComment)
	for _, r := range rows {
		assert.Nil(t, r.Relevance)
	}
}

func TestValidateAllOnlyUnvalidated(t *testing.T) {
	ctx := context.Background()
	db := seedDB(t, 2)
	require.NoError(t, db.EnsureValidationColumns(ctx))
	require.NoError(t, db.SaveValidations(ctx, []storage.Validation{{ID: 1, Status: 1}}))

	llm := &scriptedLLM{}
	sum, err := New(db, llm, nil, testLogger).ValidateAll(ctx, Options{OnlyUnvalidated: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	require.Len(t, llm.prompts, 1)
}

func TestValidateOne(t *testing.T) {
	ctx := context.Background()
	db := seedDB(t, 2)
	llm := &scriptedLLM{replies: []string{`{"status": 0, "comment": "1. Title doesn't match"}`}}

	res, err := New(db, llm, nil, testLogger).ValidateOne(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Status)

	row, err := db.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "1. Title doesn't match", *row.ValidationComment)
	first, err := db.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, first.ValidationStatus)

	_, err = New(db, llm, nil, testLogger).ValidateOne(ctx, 42, 0)
	assert.True(t, storage.IsNotFound(err))
}

func TestValidateAllCanceled(t *testing.T) {
	db := seedDB(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(db, &scriptedLLM{}, nil, testLogger).ValidateAll(ctx, Options{})
	assert.Error(t, err)
}
