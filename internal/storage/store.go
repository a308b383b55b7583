// Package storage provides content-addressable storage for compiled render
// units and the manifests of compilation runs.
package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"lukechampine.com/blake3"
)

// ObjectStore provides content-addressable storage for compilation output.
// Objects are stored by their content hash, so unchanged render units are
// written once no matter how many runs produce them.
type ObjectStore interface {
	// Put stores an object and returns its content hash.
	// If the object already exists, it returns the existing hash without writing.
	Put(ctx context.Context, obj *Object) (hash string, err error)

	// Get retrieves an object by its content hash.
	// Returns ErrNotFound if the object doesn't exist.
	Get(ctx context.Context, hash string) (*Object, error)

	// Exists checks if an object with the given hash exists.
	Exists(ctx context.Context, hash string) (bool, error)

	// Delete removes an object by its content hash.
	Delete(ctx context.Context, hash string) error

	// List returns all object hashes matching the given type filter.
	// If objectType is empty, returns all objects.
	List(ctx context.Context, objectType ObjectType) ([]string, error)

	// AddRunRef associates a run with the objects it produced.
	AddRunRef(ctx context.Context, runID string, hashes []string) error

	// RunRef returns the object hashes recorded for a run.
	RunRef(ctx context.Context, runID string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// Object represents a stored artifact with its metadata.
type Object struct {
	// Hash is the content hash (BLAKE3, hex) of the data.
	Hash string

	// Type identifies the kind of object.
	Type ObjectType

	// Size is the size of the data in bytes.
	Size int64

	// Data is the object content.
	Data []byte

	// Metadata stores additional key-value pairs.
	Metadata Metadata
}

// Metadata stores object metadata.
type Metadata struct {
	// CreatedAt is when the object was first stored.
	CreatedAt time.Time

	// LastAccessed is when the object was last retrieved.
	LastAccessed time.Time

	// RefCount tracks how many runs referenced this object.
	RefCount int

	// Custom allows storage-specific metadata, such as the topic identifier.
	Custom map[string]string
}

// ObjectType identifies the kind of stored object.
type ObjectType string

const (
	// ObjectTypeRenderUnit is the JSON form of one render unit.
	ObjectTypeRenderUnit ObjectType = "render_unit"

	// ObjectTypeLinkIndex is the JSON list of link summaries of a run.
	ObjectTypeLinkIndex ObjectType = "link_index"

	// ObjectTypeRunManifest maps topic identifiers to render unit hashes.
	ObjectTypeRunManifest ObjectType = "run_manifest"
)

// ErrNotFound is returned when an object doesn't exist.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	return "object not found: " + e.Hash
}

// IsNotFound returns true if the error is ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// Hash returns the content hash objects are addressed by.
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
