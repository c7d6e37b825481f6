// Package gcs loads a statement CSV stored as a Cloud Storage object.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"behavior/internal/core"
	"behavior/internal/source"
	"behavior/internal/statement"
)

var (
	_ source.Provider = (*Provider)(nil)
	_ source.Pinger   = (*Provider)(nil)
)

// objectStore is the slice of the storage client the provider uses.
type objectStore interface {
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	Exists(ctx context.Context, bucket, object string) error
}

type Provider struct {
	store  objectStore
	close  func() error
	bucket string
	object string
}

// New opens a storage client with Application Default Credentials.
func New(ctx context.Context, bucket, object string) (*Provider, error) {
	if bucket == "" || object == "" {
		return nil, errors.New("missing GCS_BUCKET or GCS_OBJECT")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Provider{
		store:  clientStore{client},
		close:  client.Close,
		bucket: bucket,
		object: object,
	}, nil
}

func (p *Provider) Name() string {
	return "gs://" + p.bucket + "/" + p.object
}

func (p *Provider) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

func (p *Provider) Load(ctx context.Context) ([]core.Record, error) {
	r, err := p.store.NewReader(ctx, p.bucket, p.object)
	if err != nil {
		return nil, mapError(p.Name(), err)
	}
	defer r.Close()

	records, err := statement.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	return records, nil
}

func (p *Provider) Ping(ctx context.Context) error {
	if err := p.store.Exists(ctx, p.bucket, p.object); err != nil {
		return mapError(p.Name(), err)
	}
	return nil
}

// Fetch downloads gs://bucket/object in full.
func Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := clientStore{client}.NewReader(ctx, bucket, object)
	if err != nil {
		return nil, mapError(uri, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

// ParseURI splits a gs://bucket/path URI.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// IsURI reports whether s looks like a gs:// URI.
func IsURI(s string) bool {
	return strings.HasPrefix(s, "gs://")
}

func mapError(name string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%w: %s", core.ErrMissingDataSource, name)
	}
	return fmt.Errorf("open GCS object reader: %w", err)
}

type clientStore struct {
	client *storage.Client
}

func (s clientStore) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return s.client.Bucket(bucket).Object(object).NewReader(ctx)
}

func (s clientStore) Exists(ctx context.Context, bucket, object string) error {
	_, err := s.client.Bucket(bucket).Object(object).Attrs(ctx)
	return err
}
