package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/KaanK026/Harvia/internal/domain"
)

// GCSStore keeps objects in a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

var _ Store = (*GCSStore)(nil)

// NewGCSStore connects to bucket. An empty credentialsFile uses application
// default credentials.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (g *GCSStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", key, err)
	}
	return nil
}

func (g *GCSStore) Get(ctx context.Context, key string) (*Object, error) {
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, domain.ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return &Object{Data: data, ContentType: r.Attrs.ContentType}, nil
}

// Close releases the underlying client.
func (g *GCSStore) Close() error {
	return g.client.Close()
}
