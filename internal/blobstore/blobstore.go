package blobstore

import (
	"context"
	"io"
)

// Store is the object-storage surface: upload bytes under a name, get back
// a stable reference, and stream the bytes back out by reference.
type Store interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
	Download(ctx context.Context, ref string, w io.Writer) error
	Delete(ctx context.Context, ref string) error
}
