package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/doctopics/internal/logfields"
)

// FSStore is a filesystem-based implementation of ObjectStore.
// It stores objects in a content-addressable layout:
//
//	<base>/
//	  objects/
//	    ab/
//	      cd1234... (first 2 chars = subdir, rest = filename)
//	  refs/
//	    runs/
//	      <run-id> (file containing list of object hashes)
type FSStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFSStore creates a new filesystem-based object store.
func NewFSStore(basePath string) (*FSStore, error) {
	dirs := []string{
		filepath.Join(basePath, "objects"),
		filepath.Join(basePath, "refs", "runs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return &FSStore{basePath: basePath}, nil
}

// Put stores an object and returns its content hash.
func (s *FSStore) Put(ctx context.Context, obj *Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := obj.Hash
	if hash == "" {
		hash = Hash(obj.Data)
	}

	objectPath := s.objectPath(hash)
	if _, err := os.Stat(objectPath); err == nil {
		metadata, err := s.readMetadata(hash)
		if err == nil {
			metadata.RefCount++
			metadata.LastAccessed = time.Now()
			if err := s.writeMetadata(hash, metadata); err != nil {
				return hash, fmt.Errorf("update metadata: %w", err)
			}
		}
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(objectPath), 0o750); err != nil {
		return "", fmt.Errorf("create object directory: %w", err)
	}
	tmp := objectPath + ".tmp"
	if err := os.WriteFile(tmp, obj.Data, 0o600); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp, objectPath); err != nil {
		return "", fmt.Errorf("rename object: %w", err)
	}

	now := time.Now()
	metadata := Metadata{
		CreatedAt:    now,
		LastAccessed: now,
		RefCount:     1,
		Custom:       make(map[string]string, len(obj.Metadata.Custom)+1),
	}
	maps.Copy(metadata.Custom, obj.Metadata.Custom)
	metadata.Custom["object_type"] = string(obj.Type)

	if err := s.writeMetadata(hash, metadata); err != nil {
		return hash, fmt.Errorf("write metadata: %w", err)
	}
	return hash, nil
}

// Get retrieves an object by its content hash.
func (s *FSStore) Get(ctx context.Context, hash string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// #nosec G304 - objectPath is internal, constructed from a content hash
	data, err := os.ReadFile(s.objectPath(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound{Hash: hash}
		}
		return nil, fmt.Errorf("read object: %w", err)
	}

	metadata, err := s.readMetadata(hash)
	if err != nil {
		metadata = Metadata{CreatedAt: time.Now(), RefCount: 1, Custom: map[string]string{}}
	}
	metadata.LastAccessed = time.Now()
	if err := s.writeMetadata(hash, metadata); err != nil {
		slog.Warn("Failed to update object metadata", slog.String("hash", hash), logfields.Error(err))
	}

	return &Object{
		Hash:     hash,
		Type:     ObjectType(metadata.Custom["object_type"]),
		Size:     int64(len(data)),
		Data:     data,
		Metadata: metadata,
	}, nil
}

// Exists checks if an object with the given hash exists.
func (s *FSStore) Exists(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.objectPath(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

// Delete removes an object by its content hash.
func (s *FSStore) Delete(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteUnlocked(hash)
}

// List returns all object hashes matching the given type filter, sorted.
func (s *FSStore) List(ctx context.Context, objectType ObjectType) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listUnlocked(ctx, objectType)
}

// Close releases resources.
func (s *FSStore) Close() error { return nil }

// GC removes every object not in referenced and returns how many it removed.
func (s *FSStore) GC(ctx context.Context, referenced map[string]bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.listUnlocked(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list objects: %w", err)
	}
	removed := 0
	for _, hash := range all {
		if referenced[hash] {
			continue
		}
		if err := s.deleteUnlocked(hash); err != nil && !IsNotFound(err) {
			return removed, fmt.Errorf("delete object %s: %w", hash, err)
		}
		removed++
	}
	return removed, nil
}

func (s *FSStore) listUnlocked(ctx context.Context, objectType ObjectType) ([]string, error) {
	var hashes []string
	objectsDir := filepath.Join(s.basePath, "objects")
	err := filepath.WalkDir(objectsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".meta.json") || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(objectsDir, path)
		if err != nil {
			return nil
		}
		hash := strings.ReplaceAll(rel, string(filepath.Separator), "")
		if objectType != "" {
			if md, err := s.readMetadata(hash); err == nil && ObjectType(md.Custom["object_type"]) != objectType {
				return nil
			}
		}
		hashes = append(hashes, hash)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk objects: %w", err)
	}
	slices.Sort(hashes)
	return hashes, nil
}

func (s *FSStore) deleteUnlocked(hash string) error {
	objectPath := s.objectPath(hash)
	if err := os.Remove(objectPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound{Hash: hash}
		}
		return fmt.Errorf("delete object: %w", err)
	}
	_ = os.Remove(s.metadataPath(hash))
	_ = os.Remove(filepath.Dir(objectPath)) // only succeeds when empty
	return nil
}

func (s *FSStore) objectPath(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(s.basePath, "objects", hash)
	}
	return filepath.Join(s.basePath, "objects", hash[:2], hash[2:])
}

func (s *FSStore) metadataPath(hash string) string {
	return s.objectPath(hash) + ".meta.json"
}

func (s *FSStore) readMetadata(hash string) (Metadata, error) {
	// #nosec G304 - metadataPath is internal, constructed from a content hash
	data, err := os.ReadFile(s.metadataPath(hash))
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}
	var metadata Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return metadata, nil
}

func (s *FSStore) writeMetadata(hash string, metadata Metadata) error {
	path := s.metadataPath(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// AddRunRef associates a run ID with a set of object hashes.
func (s *FSStore) AddRunRef(_ context.Context, runID string, hashes []string) error {
	if err := validRunID(runID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.basePath, "refs", "runs", runID)
	return os.WriteFile(path, []byte(strings.Join(hashes, "\n")), 0o600)
}

// RunRef retrieves the object hashes of a run. Unknown runs have none.
func (s *FSStore) RunRef(_ context.Context, runID string) ([]string, error) {
	if err := validRunID(runID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	// #nosec G304 - runID is validated to be a single path element
	data, err := os.ReadFile(filepath.Join(s.basePath, "refs", "runs", runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run ref: %w", err)
	}
	var hashes []string
	for line := range strings.Lines(string(data)) {
		if line = strings.TrimSpace(line); line != "" {
			hashes = append(hashes, line)
		}
	}
	return hashes, nil
}

func validRunID(runID string) error {
	if runID == "" || runID != filepath.Base(runID) || strings.HasPrefix(runID, ".") {
		return fmt.Errorf("invalid run id %q", runID)
	}
	return nil
}
