package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
)

const refPrefix = "/blobs/"

// GridFSStore keeps uploaded photos in a GridFS bucket next to the
// document collections. References look like "/blobs/<file id>".
type GridFSStore struct {
	bucket *gridfs.Bucket
}

// NewGridFSStore creates a blob store over the given database
func NewGridFSStore(db *mongo.Database) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob bucket: %w", err)
	}
	return &GridFSStore{bucket: bucket}, nil
}

func (s *GridFSStore) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	id, err := s.bucket.UploadFromStream(name, r)
	if err != nil {
		return "", fmt.Errorf("failed to upload blob %q: %w", name, err)
	}
	return refPrefix + id.Hex(), nil
}

func (s *GridFSStore) Download(_ context.Context, ref string, w io.Writer) error {
	id, err := parseRef(ref)
	if err != nil {
		return err
	}
	if _, err := s.bucket.DownloadToStream(id, w); err != nil {
		return fmt.Errorf("failed to download blob %s: %w", ref, err)
	}
	return nil
}

func (s *GridFSStore) Delete(_ context.Context, ref string) error {
	id, err := parseRef(ref)
	if err != nil {
		return err
	}
	if err := s.bucket.Delete(id); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", ref, err)
	}
	return nil
}

func parseRef(ref string) (primitive.ObjectID, error) {
	hex := strings.TrimPrefix(ref, refPrefix)
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("malformed blob reference %q: %w", ref, err)
	}
	return id, nil
}
