package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"story-creation-assistant/story"
)

const snapshotExt = ".json"

// FileStore keeps one JSON file per thread in a directory.
type FileStore struct {
	dir   string
	locks sync.Map
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) lock(thread string) *sync.RWMutex {
	v, _ := s.locks.LoadOrStore(thread, &sync.RWMutex{})
	return v.(*sync.RWMutex)
}

func (s *FileStore) path(thread string) string {
	return filepath.Join(s.dir, thread+snapshotExt)
}

func (s *FileStore) Load(ctx context.Context, thread string) (*story.State, error) {
	if err := ValidateThread(thread); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := s.lock(thread)
	l.RLock()
	defer l.RUnlock()

	data, err := os.ReadFile(s.path(thread))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, thread)
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}

	var st story.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decoding checkpoint %s: %w", thread, err)
	}
	return &st, nil
}

// Save writes the snapshot to a temporary file and renames it into place,
// so a reader never sees a partial snapshot.
func (s *FileStore) Save(ctx context.Context, thread string, st *story.State) error {
	if err := ValidateThread(thread); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}

	l := s.lock(thread)
	l.Lock()
	defer l.Unlock()

	path := s.path(thread)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

func (s *FileStore) Threads(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	var threads []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		thread := strings.TrimSuffix(name, snapshotExt)
		if ValidateThread(thread) == nil {
			threads = append(threads, thread)
		}
	}
	slices.Sort(threads)
	return threads, nil
}

func (s *FileStore) Close() error { return nil }
