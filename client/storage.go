package client

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	pkgerrors "github.com/pkg/errors"
)

// StorageKey names the persisted technician session record.
const StorageKey = "technician-session"

var ErrNotStored = errors.New("no stored value")

// Storage is a durable key/value store for client state.
type Storage interface {
	// Load returns ErrNotStored when key has never been saved or was removed.
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Remove(key string) error
}

var (
	_ Storage = (*FileStorage)(nil)
	_ Storage = (*MemoryStorage)(nil)
)

// FileStorage keeps one JSON file per key under a directory.
type FileStorage struct {
	dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, errors.New("[NewFileStorage] directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, pkgerrors.Wrap(err, "[NewFileStorage] create directory")
	}
	return &FileStorage{dir: dir}, nil
}

func (fs *FileStorage) path(key string) string {
	return filepath.Join(fs.dir, key+".json")
}

func (fs *FileStorage) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(fs.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotStored
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "[Load] read %s", key)
	}
	return data, nil
}

// Save writes through a temporary file and renames it, so a crash never leaves a
// half-written record behind.
func (fs *FileStorage) Save(key string, data []byte) error {
	tmp, err := os.CreateTemp(fs.dir, key+".*.tmp")
	if err != nil {
		return pkgerrors.Wrap(err, "[Save] create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return pkgerrors.Wrap(err, "[Save] write temp file")
	}
	if err := tmp.Close(); err != nil {
		return pkgerrors.Wrap(err, "[Save] close temp file")
	}
	if err := os.Rename(tmp.Name(), fs.path(key)); err != nil {
		return pkgerrors.Wrapf(err, "[Save] replace %s", key)
	}
	return nil
}

func (fs *FileStorage) Remove(key string) error {
	err := os.Remove(fs.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return pkgerrors.Wrapf(err, "[Remove] %s", key)
	}
	return nil
}

// MemoryStorage is a process-local Storage, used in tests and for ephemeral clients.
type MemoryStorage struct {
	values map[string][]byte
	lock   sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

func (ms *MemoryStorage) Load(key string) ([]byte, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	data, ok := ms.values[key]
	if !ok {
		return nil, ErrNotStored
	}
	return append([]byte(nil), data...), nil
}

func (ms *MemoryStorage) Save(key string, data []byte) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	ms.values[key] = append([]byte(nil), data...)
	return nil
}

func (ms *MemoryStorage) Remove(key string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	delete(ms.values, key)
	return nil
}
