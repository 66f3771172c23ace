package storage

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// StubObjectStorage hands out fake URLs and remembers "uploaded" keys in
// memory. Selected when no bucket is configured.
type StubObjectStorage struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string]bool
}

// NewStubObjectStorage creates a stub rooted at baseURL
func NewStubObjectStorage(baseURL string) *StubObjectStorage {
	if baseURL == "" {
		baseURL = "http://localhost:8080/_stub-storage"
	}
	return &StubObjectStorage{BaseURL: baseURL, objects: make(map[string]bool)}
}

// GenerateUploadURL returns a fake upload URL and marks key as present
func (s *StubObjectStorage) GenerateUploadURL(_ context.Context, key, _ string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrKeyRequired
	}
	s.mu.Lock()
	s.objects[key] = true
	s.mu.Unlock()
	return s.url("upload", key, expiresIn)
}

// GenerateDownloadURL returns a fake download URL
func (s *StubObjectStorage) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrKeyRequired
	}
	return s.url("download", key, expiresIn)
}

// ObjectExists reports whether an upload URL was issued for key
func (s *StubObjectStorage) ObjectExists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[key], nil
}

func (s *StubObjectStorage) url(action, key string, expiresIn time.Duration) (string, time.Time, error) {
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}
	expiresAt := time.Now().Add(expiresIn)
	u := s.BaseURL + "/" + action + "/" + url.PathEscape(key) + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339))
	return u, expiresAt, nil
}
