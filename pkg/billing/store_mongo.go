package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	mongopkg "github.com/agentcoach/billing/pkg/mongo"
)

const (
	mongoCollection       = "payments"
	mongoSubscriptionIdx  = "subscriptionId_unique"
	mongoEmailIdx         = "userEmail_unique"
	mongoCreatedAtSortIdx = "createdAt_desc"
)

// MongoStore keeps records in the "payments" collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore ensures the unique indexes the store depends on exist.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	if db == nil {
		panic("billing: mongo database is required")
	}
	coll := db.Collection(mongoCollection)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subscriptionId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(mongoSubscriptionIdx),
		},
		{
			Keys:    bson.D{{Key: "userEmail", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(mongoEmailIdx),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName(mongoCreatedAtSortIdx),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create payment indexes: %w", err)
	}
	return &MongoStore{coll: coll}, nil
}

func (s *MongoStore) Create(ctx context.Context, rec Record) error {
	rec.UserEmail = NormalizeEmail(rec.UserEmail)
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return mongoWriteError(err)
	}
	return nil
}

func (s *MongoStore) Replace(ctx context.Context, rec Record) (Record, error) {
	rec.UserEmail = NormalizeEmail(rec.UserEmail)
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var prev Record
	err := s.coll.FindOneAndReplace(ctx,
		bson.D{{Key: "userEmail", Value: rec.UserEmail}},
		rec,
		options.FindOneAndReplace().SetReturnDocument(options.Before),
	).Decode(&prev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, mongoWriteError(err)
	}
	return normalizeTimes(prev), nil
}

func (s *MongoStore) GetBySubscriptionID(ctx context.Context, subscriptionID string) (Record, error) {
	return s.findOne(ctx, bson.D{{Key: "subscriptionId", Value: subscriptionID}})
}

func (s *MongoStore) GetByEmail(ctx context.Context, email string) (Record, error) {
	return s.findOne(ctx, bson.D{{Key: "userEmail", Value: NormalizeEmail(email)}})
}

func (s *MongoStore) ListByEmail(ctx context.Context, email string) ([]Record, error) {
	return s.find(ctx, bson.D{{Key: "userEmail", Value: NormalizeEmail(email)}})
}

func (s *MongoStore) List(ctx context.Context) ([]Record, error) {
	return s.find(ctx, bson.D{})
}

func (s *MongoStore) Update(ctx context.Context, subscriptionID string, u SubscriptionUpdate) (Record, error) {
	rec, err := s.GetBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		return Record{}, err
	}
	u.apply(&rec)
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}

	var updated Record
	err = s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "subscriptionId", Value: subscriptionID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: rec.Status},
			{Key: "currentPeriodEnd", Value: rec.CurrentPeriodEnd},
			{Key: "cancelAtPeriodEnd", Value: rec.CancelAtPeriodEnd},
		}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("update payment: %w", err)
	}
	return normalizeTimes(updated), nil
}

func (s *MongoStore) Delete(ctx context.Context, subscriptionID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "subscriptionId", Value: subscriptionID}})
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return mongopkg.Healthcheck(s.coll.Database().Client())(ctx)
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.D) (Record, error) {
	var rec Record
	err := s.coll.FindOne(ctx, filter).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("find payment: %w", err)
	}
	return normalizeTimes(rec), nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.D) ([]Record, error) {
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find payments: %w", err)
	}
	out := []Record{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode payments: %w", err)
	}
	for i := range out {
		out[i] = normalizeTimes(out[i])
	}
	return out, nil
}

func mongoWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		if strings.Contains(err.Error(), mongoEmailIdx) {
			return ErrEmailTaken
		}
		return ErrDuplicateSubscription
	}
	return fmt.Errorf("write payment: %w", err)
}

// normalizeTimes converts decoded BSON datetimes, which come back in local
// time, to UTC.
func normalizeTimes(rec Record) Record {
	rec.CurrentPeriodEnd = rec.CurrentPeriodEnd.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec
}
