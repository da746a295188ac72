package blobstore

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore is an in-process blob store for tests
type MemoryStore struct {
	mu    sync.Mutex
	next  int
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory blob store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Upload(_ context.Context, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	ref := fmt.Sprintf("%smem-%d", refPrefix, s.next)
	s.blobs[ref] = data
	return ref, nil
}

func (s *MemoryStore) Download(_ context.Context, ref string, w io.Writer) error {
	s.mu.Lock()
	data, ok := s.blobs[ref]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("blob not found: %s", ref)
	}
	_, err := w.Write(data)
	return err
}

func (s *MemoryStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[ref]; !ok {
		return fmt.Errorf("blob not found: %s", ref)
	}
	delete(s.blobs, ref)
	return nil
}
