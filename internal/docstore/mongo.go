package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coffeehouse-service/internal/util"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// MongoStore implements Store over a hosted MongoDB. Live subscriptions are
// driven by change streams: every change event triggers a full collection
// reload which is pushed to the subscriber, matching the snapshot-per-change
// contract. Reloads are coalesced through singleflight so a burst of writes
// does not fan out into a burst of reads.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	sfg    singleflight.Group
	logger *zap.Logger
}

// NewMongoStore connects to the document database
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("document store ping failed: %w", err)
	}

	return &MongoStore{
		client: client,
		db:     client.Database(database),
		logger: util.GetLogger(),
	}, nil
}

// Client returns the underlying mongo client
func (s *MongoStore) Client() *mongo.Client {
	return s.client
}

// Database returns the underlying database handle
func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

// Close disconnects from the document store
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Create(ctx context.Context, collection string, doc interface{}) (string, error) {
	res, err := s.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create document in %s: %w", collection, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string, out interface{}) error {
	filter, err := idFilter(id)
	if err != nil {
		return err
	}

	err = s.db.Collection(collection).FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, collection string) ([]Document, error) {
	cur, err := s.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var docs []Document
	for cur.Next(ctx) {
		// cur.Current is reused between iterations, copy it out
		raw := make(bson.Raw, len(cur.Current))
		copy(raw, cur.Current)

		docs = append(docs, Document{ID: rawID(raw), Data: raw})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor error on %s: %w", collection, err)
	}
	return docs, nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, doc interface{}) error {
	filter, err := idFilter(id)
	if err != nil {
		return err
	}

	opts := options.Replace().SetUpsert(true)
	_, err = s.db.Collection(collection).ReplaceOne(ctx, filter, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	filter, err := idFilter(id)
	if err != nil {
		return err
	}

	res, err := s.db.Collection(collection).DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Subscribe(ctx context.Context, collection string) (<-chan Snapshot, func(), error) {
	streamCtx, cancel := context.WithCancel(ctx)

	stream, err := s.db.Collection(collection).Watch(streamCtx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to watch collection %s: %w", collection, err)
	}

	ch := make(chan Snapshot, 1)

	go func() {
		defer close(ch)
		defer stream.Close(context.Background())

		s.pushSnapshot(streamCtx, collection, ch)

		for stream.Next(streamCtx) {
			s.pushSnapshot(streamCtx, collection, ch)
		}

		if err := stream.Err(); err != nil && streamCtx.Err() == nil {
			s.logger.Error("Change stream terminated",
				zap.String("collection", collection),
				zap.Error(err))
		}
	}()

	return ch, cancel, nil
}

// pushSnapshot reloads the collection and delivers it latest-wins: a slow
// subscriber only ever misses intermediate snapshots, never the newest one.
func (s *MongoStore) pushSnapshot(ctx context.Context, collection string, ch chan Snapshot) {
	v, err, _ := s.sfg.Do(collection, func() (interface{}, error) {
		return s.List(ctx, collection)
	})
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Snapshot reload failed",
				zap.String("collection", collection),
				zap.Error(err))
		}
		return
	}

	snap := Snapshot{Collection: collection, Documents: v.([]Document)}
	for {
		select {
		case ch <- snap:
			util.SnapshotsPushedTotal.WithLabelValues(collection).Inc()
			return
		default:
			select {
			case <-ch:
				util.SnapshotsDroppedTotal.WithLabelValues(collection).Inc()
			default:
			}
		}
	}
}

func idFilter(id string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("malformed document id %q: %w", id, err)
	}
	return bson.M{"_id": oid}, nil
}

func rawID(raw bson.Raw) string {
	val := raw.Lookup("_id")
	switch val.Type {
	case bsontype.ObjectID:
		return val.ObjectID().Hex()
	case bsontype.String:
		return val.StringValue()
	default:
		return ""
	}
}
