// Package store keeps small named blobs across restarts.
package store

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound = errors.New("blob not found")
	ErrTooLarge = errors.New("blob larger than requested length")
)

// BlobStore persists byte blobs by key.
type BlobStore interface {
	SetBlob(key string, data []byte) error
	// GetBlob returns ErrNotFound for unknown keys and ErrTooLarge when the
	// blob exceeds maxLen. A maxLen of zero or less means no limit.
	GetBlob(key string, maxLen int) ([]byte, error)
}

type document struct {
	Blobs map[string]string `yaml:"blobs"`
}

// FileStore is a BlobStore backed by a yaml file. Every SetBlob rewrites the
// file through a temporary file and a rename.
type FileStore struct {
	mu    sync.Mutex
	path  string
	blobs map[string][]byte
}

// Open loads path, or starts empty if it does not exist yet.
func Open(path string) (*FileStore, error) {
	s := &FileStore{path: path, blobs: map[string][]byte{}}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store %s: %w", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse store %s: %w", path, err)
	}
	for k, v := range doc.Blobs {
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("failed to decode blob %q in %s: %w", k, path, err)
		}
		s.blobs[k] = b
	}
	return s, nil
}

func (s *FileStore) SetBlob(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.blobs[key]
	s.blobs[key] = append([]byte(nil), data...)
	if err := s.flushLocked(); err != nil {
		if had {
			s.blobs[key] = prev
		} else {
			delete(s.blobs, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) GetBlob(key string, maxLen int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	if maxLen > 0 && len(b) > maxLen {
		return nil, ErrTooLarge
	}
	return append([]byte(nil), b...), nil
}

func (s *FileStore) flushLocked() error {
	doc := document{Blobs: make(map[string]string, len(s.blobs))}
	for k, v := range s.blobs {
		doc.Blobs[k] = base64.StdEncoding.EncodeToString(v)
	}

	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary store file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace store %s: %w", s.path, err)
	}
	return nil
}

// Memory is an in-process BlobStore.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: map[string][]byte{}}
}

func (m *Memory) SetBlob(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) GetBlob(key string, maxLen int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	if maxLen > 0 && len(b) > maxLen {
		return nil, ErrTooLarge
	}
	return append([]byte(nil), b...), nil
}
