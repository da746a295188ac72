package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound is returned when a document id does not exist in a collection
var ErrNotFound = errors.New("document not found")

// Document is one stored document: the store-assigned id plus the raw body
type Document struct {
	ID   string
	Data bson.Raw
}

// Decode unmarshals the document body into out
func (d Document) Decode(out interface{}) error {
	return bson.Unmarshal(d.Data, out)
}

// Snapshot is the full contents of a collection at some point in time,
// pushed to subscribers on every observed change.
type Snapshot struct {
	Collection string
	Documents  []Document
}

// Store is the thin surface this service needs from a hosted document
// database: id-keyed CRUD per collection plus a live subscription that
// pushes a collection snapshot on every change.
type Store interface {
	// Create inserts a new document and returns the store-assigned id
	Create(ctx context.Context, collection string, doc interface{}) (string, error)
	// Get reads one document by id into out; ErrNotFound when absent
	Get(ctx context.Context, collection, id string, out interface{}) error
	// List returns every document in the collection
	List(ctx context.Context, collection string) ([]Document, error)
	// Update fully replaces the document body (upsert by id)
	Update(ctx context.Context, collection, id string, doc interface{}) error
	// Delete removes one document by id
	Delete(ctx context.Context, collection, id string) error
	// Subscribe pushes a snapshot of the collection on every change,
	// starting with the current contents. The returned cancel func tears
	// the subscription down; after cancel the channel is closed.
	Subscribe(ctx context.Context, collection string) (<-chan Snapshot, func(), error)
}
