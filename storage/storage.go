// Package storage holds the blob backends behind uploaded files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bbasli/bdrive/config"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// UploadTarget tells a client where to send the bytes of a new object.
type UploadTarget struct {
	URL       string    `json:"upload_url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ObjectInfo struct {
	Size        int64
	ContentType string
}

type Store interface {
	UploadTarget(ctx context.Context, key string, ttl time.Duration) (UploadTarget, error)
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	URL(ctx context.Context, key string) (string, error)
	// Delete removes the object; deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// NewKey allocates a storage id for a new upload.
func NewKey() string {
	return uuid.NewString()
}

// ValidateKey accepts only ids minted by NewKey.
func ValidateKey(key string) error {
	if _, err := uuid.Parse(key); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return nil
}

func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case "local":
		return NewLocalStore(cfg.Storage.BasePath, cfg.Server.PublicURL)
	case "s3":
		return NewS3Store(ctx, cfg.Storage.S3)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
