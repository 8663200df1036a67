package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/GruntingRhino/Athlemetry/pkg/logger"
	"github.com/GruntingRhino/Athlemetry/pkg/metrics"
)

// Config selects the upload provider and configures every backend.
type Config struct {
	Provider string
	LocalDir string
	S3       S3Config
	GCS      GCSConfig
}

// Factory constructs a provider from configuration.
type Factory func(ctx context.Context, cfg Config) (Provider, error)

// Resolver opens a provider per operation, so configuration changes and
// objects stored under a different provider are both honoured.
type Resolver struct {
	cfg       Config
	factories map[ProviderName]Factory
	logger    logger.Logger
	now       func() time.Time
}

// NewResolver creates a resolver with the built-in factories.
func NewResolver(cfg Config, opts ...Option) *Resolver {
	r := &Resolver{
		cfg: cfg,
		factories: map[ProviderName]Factory{
			ProviderLocal: func(_ context.Context, c Config) (Provider, error) { return NewLocal(c.LocalDir), nil },
			ProviderS3:    func(_ context.Context, c Config) (Provider, error) { return NewS3(c.S3) },
			ProviderGCS:   func(ctx context.Context, c Config) (Provider, error) { return NewGCS(ctx, c.GCS) },
		},
		logger: logger.Named("storage"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open constructs the named provider. Configuration errors surface here.
func (r *Resolver) Open(ctx context.Context, name string) (Provider, error) {
	parsed, err := ParseProviderName(name)
	if err != nil {
		return nil, err
	}
	factory, ok := r.factories[parsed]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, parsed)
	}
	return factory(ctx, r.cfg)
}

// Validate opens and closes the configured upload provider.
func (r *Resolver) Validate(ctx context.Context) error {
	p, err := r.Open(ctx, r.cfg.Provider)
	if err != nil {
		return err
	}
	return p.Close()
}

// Upload stores a video under a fresh key with the configured provider.
func (r *Resolver) Upload(ctx context.Context, in UploadInput) (StoredAsset, error) {
	p, err := r.Open(ctx, r.cfg.Provider)
	if err != nil {
		return StoredAsset{}, err
	}
	defer r.close(ctx, p)

	key := NewKey(r.now(), in.FileName)
	if err := p.Put(ctx, key, in.Body, in.ContentType); err != nil {
		metrics.RecordStorageOperation(string(p.Name()), "put", metrics.ResultFailure)
		return StoredAsset{}, err
	}
	metrics.RecordStorageOperation(string(p.Name()), "put", metrics.ResultSuccess)

	hash, status := Describe(in.Body)
	return StoredAsset{
		Provider:          p.Name(),
		Key:               key,
		Hash:              hash,
		Size:              int64(len(in.Body)),
		CompressionStatus: status,
	}, nil
}

// Delete removes key from the named provider.
func (r *Resolver) Delete(ctx context.Context, provider, key string) error {
	p, err := r.Open(ctx, provider)
	if err != nil {
		return err
	}
	defer r.close(ctx, p)

	if err := p.Delete(ctx, key); err != nil {
		metrics.RecordStorageOperation(string(p.Name()), "delete", metrics.ResultFailure)
		return err
	}
	metrics.RecordStorageOperation(string(p.Name()), "delete", metrics.ResultSuccess)
	return nil
}

func (r *Resolver) close(ctx context.Context, p Provider) {
	if err := p.Close(); err != nil {
		r.logger.Warn(ctx, "failed to close storage provider", logger.String("provider", string(p.Name())), logger.Error(err))
	}
}
