// Package profile reads user profiles from the document database.
package profile

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/KaanK026/Harvia/internal/domain"
)

// Store looks up user profiles. Get returns nil, nil for unknown users.
type Store interface {
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// MongoStore reads profiles from a collection keyed by uid.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore wraps coll.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

var _ Store = (*MongoStore)(nil)

func (s *MongoStore) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile %s: %w", userID, err)
	}
	return &p, nil
}

// Upsert stores p, replacing any existing document.
func (s *MongoStore) Upsert(ctx context.Context, p *domain.UserProfile) error {
	_, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: p.UserID}}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.UserID, err)
	}
	return nil
}

// StaticStore serves profiles from a map. Used in tests and local runs.
type StaticStore map[string]domain.UserProfile

func (s StaticStore) Get(_ context.Context, userID string) (*domain.UserProfile, error) {
	p, ok := s[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
