// Package objectstore provides the blob storage port the worker uses to
// read staged records and write validated/quarantined output.
package objectstore

import (
	"context"
	"iter"
)

// Object is a named blob as returned by IterByPrefix and ReadObject.
type Object struct {
	Name string
	Data []byte
}

// Store is the blob storage port. Bucket names are opaque to the caller;
// object names within a bucket include the namespace prefix
// (e.g. "rfb/json/file-001.json").
type Store interface {
	// BucketExists reports whether bucket is present.
	BucketExists(ctx context.Context, bucket string) (bool, error)

	// CreateBucket creates bucket if it does not already exist. Creating an
	// existing bucket is not an error.
	CreateBucket(ctx context.Context, bucket string) error

	// RemoveBucketIfExists deletes bucket and all of its objects. It
	// reports false, nil if the bucket did not exist.
	RemoveBucketIfExists(ctx context.Context, bucket string) (bool, error)

	// PutObject writes data to bucket under name.
	PutObject(ctx context.Context, bucket, name string, data []byte, contentType string) error

	// ReadObject returns the full contents of an object.
	ReadObject(ctx context.Context, bucket, name string) ([]byte, error)

	// DeleteObject removes an object. Deleting a missing object is not an
	// error — redelivery of an already-processed message must be able to
	// retry the delete safely.
	DeleteObject(ctx context.Context, bucket, name string) error

	// IterByPrefix lists objects under prefix, yielding each object's base
	// name (directory components stripped) and its full contents, in the
	// underlying store's listing order. Directory markers are skipped.
	IterByPrefix(ctx context.Context, bucket, prefix string) iter.Seq2[Object, error]
}
