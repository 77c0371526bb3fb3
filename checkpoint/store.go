// Package checkpoint persists story snapshots by thread id so a story can be
// resumed by a later process.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"story-creation-assistant/story"
)

var (
	// ErrNotFound is returned by Load for a thread with no snapshot.
	ErrNotFound = errors.New("checkpoint not found")

	ErrInvalidThread = errors.New("invalid thread id")
)

// Store saves and loads the latest snapshot of each thread.
type Store interface {
	Load(ctx context.Context, thread string) (*story.State, error)
	Save(ctx context.Context, thread string, s *story.State) error
	// Threads lists the known thread ids in ascending order.
	Threads(ctx context.Context) ([]string, error)
	Close() error
}

var threadPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidateThread rejects ids that are not safe as file names.
func ValidateThread(thread string) error {
	if !threadPattern.MatchString(thread) {
		return fmt.Errorf("%w: %q", ErrInvalidThread, thread)
	}
	return nil
}

// Open returns the store of driver ("file" or "sqlite") at path.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "file", "":
		return NewFileStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	}
	return nil, fmt.Errorf("unknown checkpoint driver %q", driver)
}
