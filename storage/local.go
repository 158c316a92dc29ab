package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore keeps objects on disk. Uploads go through the service's own
// upload endpoint and downloads through its /storage route.
type LocalStore struct {
	basePath  string
	publicURL string
}

func NewLocalStore(basePath string, publicURL string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(basePath, "objects"), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{basePath: basePath, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *LocalStore) objectPath(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, "objects", key[:2], key), nil
}

func (s *LocalStore) UploadTarget(_ context.Context, key string, ttl time.Duration) (UploadTarget, error) {
	if err := ValidateKey(key); err != nil {
		return UploadTarget{}, err
	}
	return UploadTarget{
		URL:       s.publicURL + "/api/storage/upload/" + key,
		Method:    http.MethodPost,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func (s *LocalStore) Put(_ context.Context, key string, body io.Reader, _ string) error {
	path, err := s.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), key+".*.part")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close object: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *LocalStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	f, err := s.Open(ctx, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	defer f.Close()

	info, err := f.(*os.File).Stat()
	if err != nil {
		return ObjectInfo{}, err
	}

	head, _ := bufio.NewReader(f).Peek(512)
	return ObjectInfo{Size: info.Size(), ContentType: http.DetectContentType(head)}, nil
}

func (s *LocalStore) URL(_ context.Context, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return s.publicURL + "/storage/" + key, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	path, err := s.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
