package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrAccessDenied   = errors.New("access denied")
	ErrFetchExhausted = errors.New("fetch attempts exhausted")
	ErrEmptyResponse  = errors.New("empty response body")
	ErrInvalidURL     = errors.New("invalid URL")
	ErrUnknownSite    = errors.New("unknown site")
	ErrNotFound       = errors.New("not found")
)

// AccessDeniedError reports that a blocking page was still served after
// escalating to a visible browser, or that the server answered 403.
type AccessDeniedError struct {
	URL       string
	Headless  bool
	Indicator string
}

func (e *AccessDeniedError) Error() string {
	mode := "non-headless"
	if e.Headless {
		mode = "headless"
	}
	if e.Indicator != "" {
		return fmt.Sprintf("access denied for %s (%s, matched %q)", e.URL, mode, e.Indicator)
	}
	return fmt.Sprintf("access denied for %s (%s)", e.URL, mode)
}

func (e *AccessDeniedError) Is(target error) bool { return target == ErrAccessDenied }

// FetchExhaustedError is returned once every (attempt, mode) step failed.
type FetchExhaustedError struct {
	URL      string
	Attempts int
	Last     error
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("failed to fetch %s after %d attempts: %v", e.URL, e.Attempts, e.Last)
}

func (e *FetchExhaustedError) Unwrap() error { return e.Last }

func (e *FetchExhaustedError) Is(target error) bool { return target == ErrFetchExhausted }

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ParseError wraps errors that occur while extracting one item.
type ParseError struct {
	Site     string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.Site, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the processing pipeline.
type PipelineError struct {
	Stage string
	Link  string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q for %s: %v", e.Stage, e.Link, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
