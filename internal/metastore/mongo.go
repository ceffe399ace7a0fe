package metastore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoOptions locates the metadata collection.
type MongoOptions struct {
	Addr       string // host[:port] or a full mongodb:// URI
	Database   string
	Collection string
	Timeout    time.Duration // per operation; zero means no limit
}

// MongoStore implements Store on a MongoDB collection.
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

// MongoURI turns a bare address such as "mongo.local" into a connection URI.
func MongoURI(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	return "mongodb://" + addr
}

// NewMongoStore creates a client for opts. The driver connects lazily, so an
// unreachable server surfaces as per-operation errors rather than here.
func NewMongoStore(opts MongoOptions) (*MongoStore, error) {
	clientOpts := options.Client().ApplyURI(MongoURI(opts.Addr))
	if opts.Timeout > 0 {
		clientOpts.SetServerSelectionTimeout(opts.Timeout)
	}
	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb at %s: %w", opts.Addr, err)
	}
	return &MongoStore{
		client:  client,
		coll:    client.Database(opts.Database).Collection(opts.Collection),
		timeout: opts.Timeout,
	}, nil
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Upsert replaces the document matching uuid, inserting it if absent.
func (s *MongoStore) Upsert(ctx context.Context, uuid string, doc Document) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.coll.ReplaceOne(ctx, bson.M{"uuid": uuid}, bson.M(doc), options.Replace().SetUpsert(true))
	if err != nil {
		return opError(OpUpsert, uuid, err)
	}
	return nil
}

// Delete removes every document matching uuid.
func (s *MongoStore) Delete(ctx context.Context, uuid string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.coll.DeleteMany(ctx, bson.M{"uuid": uuid}); err != nil {
		return opError(OpDelete, uuid, err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := s.withTimeout(context.Background())
	defer cancel()
	return s.client.Disconnect(ctx)
}
