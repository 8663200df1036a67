package storage

import (
	"context"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig configures a Google Cloud Storage bucket.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
}

// GCS stores objects in a Google Cloud Storage bucket.
type GCS struct {
	bucket string
	client *gcs.Client
}

// NewGCS validates cfg and opens a client. Without a credentials file the
// client uses application default credentials.
func NewGCS(ctx context.Context, cfg GCSConfig) (*GCS, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("%w: gcs requires a bucket", ErrIncompleteConfig)
	}
	opts := []option.ClientOption{option.WithScopes(gcs.ScopeReadWrite)}
	if file := strings.TrimSpace(cfg.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCS{bucket: bucket, client: client}, nil
}

// Name implements Provider.
func (p *GCS) Name() ProviderName { return ProviderGCS }

// Put implements Provider.
func (p *GCS) Put(ctx context.Context, key string, body []byte, contentType string) error {
	w := p.client.Bucket(p.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close %s: %w", key, err)
	}
	return nil
}

// Delete implements Provider.
func (p *GCS) Delete(ctx context.Context, key string) error {
	if err := p.client.Bucket(p.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("gcs delete %s: %w", key, err)
	}
	return nil
}

// Close implements Provider.
func (p *GCS) Close() error { return p.client.Close() }
