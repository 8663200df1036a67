// Package storage persists uploaded videos on the local disk or in an
// object store and deletes them when retention expires.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
)

// ProviderName identifies a storage backend.
type ProviderName string

// Supported providers.
const (
	ProviderLocal ProviderName = "local"
	ProviderS3    ProviderName = "s3"
	ProviderGCS   ProviderName = "gcs"
)

// CompressionThreshold is the size above which uploads are tagged COMPRESSED.
const CompressionThreshold = 45 * 1024 * 1024

const defaultExtension = "mp4"

// Provider stores and deletes objects by key.
type Provider interface {
	Name() ProviderName
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// UploadInput describes a video to store.
type UploadInput struct {
	FileName    string
	ContentType string
	Body        []byte
}

// StoredAsset describes a stored video.
type StoredAsset struct {
	Provider          ProviderName
	Key               string
	Hash              string
	Size              int64
	CompressionStatus model.CompressionStatus
}

// ParseProviderName normalizes raw; empty means local.
func ParseProviderName(raw string) (ProviderName, error) {
	name := ProviderName(strings.ToLower(strings.TrimSpace(raw)))
	switch name {
	case "":
		return ProviderLocal, nil
	case ProviderLocal, ProviderS3, ProviderGCS:
		return name, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, raw)
}

// NewKey returns a date-prefixed unique key that keeps the file extension.
func NewKey(now time.Time, fileName string) string {
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	if ext == "" {
		ext = defaultExtension
	}
	return fmt.Sprintf("%s/%s.%s", now.UTC().Format(time.DateOnly), uuid.NewString(), strings.ToLower(ext))
}

// Describe computes the content hash and compression tag of body.
func Describe(body []byte) (hash string, status model.CompressionStatus) {
	sum := sha256.Sum256(body)
	status = model.CompressionNotRequired
	if len(body) > CompressionThreshold {
		status = model.CompressionCompressed
	}
	return hex.EncodeToString(sum[:]), status
}
