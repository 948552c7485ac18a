package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"easel/internal/domain"
)

const documentsCollection = "documents"

// mongoDocument is the stored shape of a document: the canonical JSON text
// keyed by path.
type mongoDocument struct {
	Path      string    `bson:"_id"`
	Body      string    `bson:"body"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoStore implements domain.DocumentGateway on a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongoStore connects to uri and uses the documents collection of
// database.
func OpenMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	log.Printf("[MONGO] Using database %s", database)
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(documentsCollection),
	}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Load(ctx context.Context, path string) (*domain.Document, error) {
	var rec mongoDocument
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: path}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrIO, path, err)
	}
	doc, err := domain.ParseDocument([]byte(rec.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// Save replaces the stored record in a single upsert.
func (s *MongoStore) Save(ctx context.Context, path string, doc *domain.Document) error {
	data, err := domain.EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	rec := mongoDocument{Path: path, Body: string(data), UpdatedAt: time.Now().UTC()}
	_, err = s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: path}}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: save %s: %v", domain.ErrIO, path, err)
	}
	return nil
}

func (s *MongoStore) Exists(ctx context.Context, path string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: path}})
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %v", domain.ErrIO, path, err)
	}
	return n > 0, nil
}

func (s *MongoStore) List(ctx context.Context, dir string) ([]string, error) {
	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$regex", Value: listPattern(dir)}}}}
	opts := options.Find().
		SetProjection(bson.D{{Key: "_id", Value: 1}}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", domain.ErrIO, dir, err)
	}
	var recs []mongoDocument
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", domain.ErrIO, dir, err)
	}

	paths := make([]string, 0, len(recs))
	for _, r := range recs {
		paths = append(paths, r.Path)
	}
	return paths, nil
}

func (s *MongoStore) Delete(ctx context.Context, path string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: path}}); err != nil {
		return fmt.Errorf("%w: delete %s: %v", domain.ErrIO, path, err)
	}
	return nil
}

// listPattern matches document paths below dir. The current directory
// matches every relative path.
func listPattern(dir string) string {
	ext := regexp.QuoteMeta(domain.Extension) + "$"
	prefix := listPrefix(dir)
	if prefix == "" {
		return "^[^" + regexp.QuoteMeta(string(filepath.Separator)) + "].*" + ext
	}
	return "^" + regexp.QuoteMeta(prefix) + ".*" + ext
}
