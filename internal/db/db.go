package db

import (
	"context"
	"time"

	apperrors "github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	UsersCollection  = "Users"
	QuestsCollection = "Quests"
)

// Collection is the part of *mongo.Collection the repositories use.
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

var _ Collection = (*mongo.Collection)(nil)

// DB owns the process-wide client. It is opened once by the composition root.
type DB struct {
	client   *mongo.Client
	database *mongo.Database
	timeout  time.Duration
	log      *logger.Logger
}

func Open(ctx context.Context, uri, name string, timeout time.Duration) (*DB, error) {
	log := logger.Default().WithPrefix("db")
	log.Info("connecting to document store: database=%s", name)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		log.Error("failed to create client: %v", err)
		return nil, apperrors.NewStorageUnavailable(err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Error("failed to reach document store: %v", err)
		_ = client.Disconnect(context.Background())
		return nil, apperrors.NewStorageUnavailable(err)
	}

	db := &DB{client: client, database: client.Database(name), timeout: timeout, log: log}

	log.Debug("ensuring indexes")
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Error("failed to ensure indexes: %v", err)
		_ = client.Disconnect(context.Background())
		return nil, apperrors.NewStorageUnavailable(err)
	}

	log.Info("document store ready")
	return db, nil
}

// Ping checks that the primary is reachable.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()
	if err := db.client.Ping(ctx, readpref.Primary()); err != nil {
		db.log.Warn("ping failed: %v", err)
		return apperrors.NewStorageUnavailable(err)
	}
	return nil
}

func (db *DB) Close(ctx context.Context) error {
	db.log.Info("disconnecting from document store")
	return db.client.Disconnect(ctx)
}

func (db *DB) Users() *mongo.Collection {
	return db.database.Collection(UsersCollection)
}

func (db *DB) Quests() *mongo.Collection {
	return db.database.Collection(QuestsCollection)
}

// EnsureIndexes creates the indexes of both collections. It is idempotent.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	for coll, models := range Indexes() {
		names, err := db.database.Collection(coll).Indexes().CreateMany(ctx, models)
		if err != nil {
			return err
		}
		db.log.Debug("indexes on %s: %v", coll, names)
	}
	return nil
}

// Indexes lists the indexes per collection. The unique email index makes a
// duplicate signup fail at insert time even when two pre-checks race.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		UsersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("email_unique"),
			},
		},
		QuestsCollection: {
			{
				Keys:    bson.D{{Key: "created_by", Value: 1}},
				Options: options.Index().SetName("created_by"),
			},
			{
				Keys:    bson.D{{Key: "created_at", Value: -1}},
				Options: options.Index().SetName("created_at_desc"),
			},
		},
	}
}
