package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore is an in-process Store used by tests and local development.
// It mirrors the Mongo implementation's semantics: id-keyed collections,
// full-replace updates, and snapshot-per-change subscriptions.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	subscribers map[string][]chan Snapshot
}

type memoryCollection struct {
	order []string
	docs  map[string]bson.Raw
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memoryCollection),
		subscribers: make(map[string][]chan Snapshot),
	}
}

func (s *MemoryStore) collection(name string) *memoryCollection {
	coll, ok := s.collections[name]
	if !ok {
		coll = &memoryCollection{docs: make(map[string]bson.Raw)}
		s.collections[name] = coll
	}
	return coll
}

func (s *MemoryStore) Create(_ context.Context, collection string, doc interface{}) (string, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	s.mu.Lock()
	id := uuid.NewString()
	coll := s.collection(collection)
	coll.docs[id] = data
	coll.order = append(coll.order, id)
	s.mu.Unlock()

	s.notify(collection)
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, collection, id string, out interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return ErrNotFound
	}
	data, ok := coll.docs[id]
	if !ok {
		return ErrNotFound
	}
	return bson.Unmarshal(data, out)
}

func (s *MemoryStore) List(_ context.Context, collection string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(collection).Documents, nil
}

func (s *MemoryStore) Update(_ context.Context, collection, id string, doc interface{}) error {
	data, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	s.mu.Lock()
	coll := s.collection(collection)
	if _, ok := coll.docs[id]; !ok {
		coll.order = append(coll.order, id)
	}
	coll.docs[id] = data
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	coll, ok := s.collections[collection]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if _, ok := coll.docs[id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(coll.docs, id)
	for i, existing := range coll.order {
		if existing == id {
			coll.order = append(coll.order[:i], coll.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, collection string) (<-chan Snapshot, func(), error) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	s.subscribers[collection] = append(s.subscribers[collection], ch)
	deliver(ch, s.snapshotLocked(collection))
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// removal and close happen under the same lock as notify,
			// so a snapshot is never sent on a closed channel
			s.mu.Lock()
			subs := s.subscribers[collection]
			for i, sub := range subs {
				if sub == ch {
					s.subscribers[collection] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			close(ch)
			s.mu.Unlock()
		})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel, nil
}

func (s *MemoryStore) snapshotLocked(collection string) Snapshot {
	snap := Snapshot{Collection: collection}
	coll, ok := s.collections[collection]
	if !ok {
		return snap
	}
	for _, id := range coll.order {
		snap.Documents = append(snap.Documents, Document{ID: id, Data: coll.docs[id]})
	}
	return snap
}

func (s *MemoryStore) notify(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked(collection)
	for _, ch := range s.subscribers[collection] {
		deliver(ch, snap)
	}
}

// deliver pushes latest-wins into a buffered channel
func deliver(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
