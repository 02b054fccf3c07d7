package profile

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/KaanK026/Harvia/internal/domain"
)

func TestStaticStore(t *testing.T) {
	age := 33
	s := StaticStore{"u1": {UserID: "u1", Age: &age}}

	p, err := s.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 33, *p.Age)

	p, err = s.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	coll := client.Database("harvia_test").Collection("users")
	t.Cleanup(func() { _ = coll.Drop(ctx) })
	s := NewMongoStore(coll)

	height := 181.0
	require.NoError(t, s.Upsert(ctx, &domain.UserProfile{UserID: "u1", Height: &height, Goals: []string{"relax"}}))

	p, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 181.0, *p.Height)
	assert.Nil(t, p.Age)
	assert.Equal(t, []string{"relax"}, p.Goals)

	p, err = s.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, p)
}
