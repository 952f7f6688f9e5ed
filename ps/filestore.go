package ps

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"
)

// FileKV stores each document as <sanitized-key>.json inside one directory.
// The whole directory is guarded by a single read-write lock.
type FileKV struct {
	fs billy.Filesystem
	mu sync.RWMutex
}

// NewFileKV opens (creating if needed) a document directory on disk.
func NewFileKV(baseDir string) (*FileKV, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &FileKV{fs: osfs.New(baseDir)}, nil
}

// NewMemoryKV returns a FileKV backed by an in-memory filesystem.
func NewMemoryKV() *FileKV {
	return &FileKV{fs: memfs.New()}
}

func documentName(key string) string {
	return SanitizeKey(key) + ".json"
}

func (kv *FileKV) Write(key string, data []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	return util.WriteFile(kv.fs, documentName(key), data, 0644)
}

func (kv *FileKV) Read(key string) ([]byte, bool, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	data, err := util.ReadFile(kv.fs, documentName(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (kv *FileKV) Delete(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	err := kv.fs.Remove(documentName(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
