package rag

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoIndex stores chunks in a MongoDB collection and searches them with an
// Atlas vector search index on the "embedding" field.
type MongoIndex struct {
	coll      *mongo.Collection
	indexName string
}

// NewMongoIndex wraps coll; indexName is the Atlas vector index to query.
func NewMongoIndex(coll *mongo.Collection, indexName string) *MongoIndex {
	return &MongoIndex{coll: coll, indexName: indexName}
}

var _ Index = (*MongoIndex)(nil)

func (m *MongoIndex) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(chunks))
	for _, c := range chunks {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: c.ID}}).
			SetReplacement(c).
			SetUpsert(true))
	}
	if _, err := m.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}
	return nil
}

func (m *MongoIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: m.indexName},
			{Key: "path", Value: "embedding"},
			{Key: "queryVector", Value: vector},
			{Key: "numCandidates", Value: k * 10},
			{Key: "limit", Value: k},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 1},
			{Key: "source", Value: 1},
			{Key: "text", Value: 1},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}

	cur, err := m.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	var hits []Hit
	if err := cur.All(ctx, &hits); err != nil {
		return nil, fmt.Errorf("decode hits: %w", err)
	}
	return hits, nil
}

func (m *MongoIndex) Len(ctx context.Context) (int, error) {
	n, err := m.coll.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return int(n), nil
}
