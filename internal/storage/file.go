package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

const fileExt = ".json"

// FileStore keeps each index in <dir>/<key>.json.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file that holds key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

// Dir returns the root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Backend returns "file".
func (s *FileStore) Backend() string {
	return "file"
}

// Save writes the index to a temp file and renames it over the target.
func (s *FileStore) Save(ctx context.Context, key string, index models.EmbeddingIndex) error {
	if err := ValidateKey(key); err != nil {
		return persistFailure(key, err)
	}
	data, err := Encode(index)
	if err != nil {
		return persistFailure(key, err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return persistFailure(key, fmt.Errorf("failed to create context dir: %w", err))
	}
	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return persistFailure(key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return persistFailure(key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return persistFailure(key, err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		_ = os.Remove(tmpName)
		return persistFailure(key, err)
	}
	return nil
}

// Load reads and decodes <dir>/<key>.json.
func (s *FileStore) Load(ctx context.Context, key string) (models.EmbeddingIndex, error) {
	if err := ValidateKey(key); err != nil {
		return nil, loadFailure(key, err)
	}
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		return nil, loadFailure(key, err)
	}
	index, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return index, nil
}

// List returns the stored keys sorted by name.
func (s *FileStore) List(ctx context.Context) ([]IndexInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read context dir: %w", err)
	}
	var out []IndexInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, IndexInfo{
			Key:       strings.TrimSuffix(name, fileExt),
			SizeBytes: info.Size(),
			UpdatedAt: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
