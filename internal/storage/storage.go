package storage

import (
	"context"
	"time"

	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Batch is the output of one site scrape.
type Batch struct {
	Site      string
	Kind      types.Kind
	Filename  string
	ScrapedAt time.Time
	Articles  []types.Article
}

// Storage is the interface for scrape output backends.
type Storage interface {
	// Store persists one site's batch.
	Store(ctx context.Context, b Batch) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}
