package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// MongoStorage mirrors scraped articles into a MongoDB collection,
// upserting on the canonical link.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	count      int
	logger     *slog.Logger
}

// NewMongoStorage connects and pings the server.
func NewMongoStorage(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoStorage{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

func (s *MongoStorage) Store(ctx context.Context, b Batch) error {
	if len(b.Articles) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(b.Articles))
	for _, a := range b.Articles {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": parser.CanonicalizeLink(a.Link)}).
			SetUpdate(bson.M{"$set": articleDoc(b, a)}).
			SetUpsert(true))
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := s.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Err: err}
	}

	s.count += len(b.Articles)
	s.logger.Debug("articles mirrored to mongodb",
		"site", b.Site,
		"upserted", res.UpsertedCount,
		"modified", res.ModifiedCount,
	)
	return nil
}

func articleDoc(b Batch, a types.Article) bson.M {
	return bson.M{
		"site":         b.Site,
		"kind":         string(b.Kind),
		"scraped_at":   b.ScrapedAt,
		"title":        a.Title,
		"date":         a.Date,
		"link":         a.Link,
		"description":  a.Description,
		"tags":         a.Tags,
		"authors":      a.Authors,
		"content_type": a.ContentType,
		"image_url":    a.ImageURL,
		"access_type":  a.AccessType,
	}
}

func (s *MongoStorage) Close() error {
	s.logger.Info("mongodb storage closing", "total_articles", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// --- Multi-Storage Fan-Out ---

// MultiStorage writes batches to several backends. A failing backend does
// not stop the others.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to multiple backends.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

func (s *MultiStorage) Store(ctx context.Context, b Batch) error {
	var errs []error
	for _, backend := range s.backends {
		if err := backend.Store(ctx, b); err != nil {
			s.logger.Error("backend store failed", "backend", backend.Name(), "site", b.Site, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *MultiStorage) Close() error {
	var errs []error
	for _, backend := range s.backends {
		errs = append(errs, backend.Close())
	}
	return errors.Join(errs...)
}
