// Package blob stores alarm audio payloads outside the alarm document,
// keyed by alarm id.
package blob

import (
	"context"
	"errors"
	"io"
)

// Driver identifies a concrete blob storage backend.
type Driver string

const (
	// DriverFilesystem stores blobs under a local directory (default).
	DriverFilesystem Driver = "fs"
	// DriverS3 stores blobs in an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps blobs in process memory (tests).
	DriverMemory Driver = "memory"
)

// ErrNotFound is returned by Get and Delete for unknown keys. Callers in
// the firing path treat it as "no audio available", never as fatal.
var ErrNotFound = errors.New("blob not found")

// Info describes a stored blob.
type Info struct {
	Key         string `json:"key"`
	Size        int64  `json:"size_bytes"`
	ContentType string `json:"content_type,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Store is the audio blob collaborator. Keys are alarm ids; Put replaces
// any existing blob under the key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, info Info) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Info, error)
	Driver() Driver
}

// ReadAll fetches a blob fully, mapping any failure to "no audio".
func ReadAll(ctx context.Context, s Store, key string) ([]byte, bool) {
	if key == "" {
		return nil, false
	}
	_, rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}
