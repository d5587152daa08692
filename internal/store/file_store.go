package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/username/day-planner/internal/schedule"
	"github.com/username/day-planner/internal/transfer"
	"go.uber.org/zap"
)

const (
	stateExt     = ".json"
	tmpSuffix    = ".tmp"
	backupSuffix = ".bak"
)

// FileStore keeps one JSON document per owner in a directory
type FileStore struct {
	dir    string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewFileStore creates a file store rooted at dir, creating it if needed
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (fs *FileStore) path(owner string) string {
	return filepath.Join(fs.dir, owner+stateExt)
}

// Load loads the owner's state from its file
func (fs *FileStore) Load(ctx context.Context, owner string) (*schedule.State, error) {
	if err := ValidateOwner(owner); err != nil {
		return nil, err
	}

	f, err := os.Open(fs.path(owner))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(owner)
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	defer f.Close()

	doc, err := transfer.Decode(f, transfer.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	state, err := doc.ToState(owner)
	if err != nil {
		return nil, fmt.Errorf("state file of %s is corrupt: %w", owner, err)
	}
	state.UpdatedAt = doc.ExportedAt

	fs.logger.Debug("State loaded",
		zap.String("owner", owner),
		zap.Int("day_types", len(state.DayTypes)),
		zap.Int("overrides", len(state.Overrides)))

	return state, nil
}

// Save writes the state to a temp file and renames it over the previous one.
// The previous file is kept as a .bak copy.
func (fs *FileStore) Save(ctx context.Context, state *schedule.State) error {
	if err := ValidateOwner(state.Owner); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := transfer.Encode(&buf, transfer.FromState(state, time.Now()), transfer.FormatJSON); err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	target := fs.path(state.Owner)
	tmpFile := target + tmpSuffix
	if err := os.WriteFile(tmpFile, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	if _, err := os.Stat(target); err == nil {
		if err := copyFile(target, target+backupSuffix); err != nil {
			fs.logger.Warn("Failed to create state backup", zap.String("owner", state.Owner), zap.Error(err))
		}
	}

	if err := os.Rename(tmpFile, target); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	fs.logger.Info("State saved",
		zap.String("owner", state.Owner),
		zap.String("file", target))

	return nil
}

// Owners lists owners that have a state file
func (fs *FileStore) Owners(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list state directory: %w", err)
	}

	var owners []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, stateExt) {
			continue
		}
		owner := strings.TrimSuffix(name, stateExt)
		if ValidateOwner(owner) == nil {
			owners = append(owners, owner)
		}
	}
	sort.Strings(owners)
	return owners, nil
}

// Close is a no-op for the file store
func (fs *FileStore) Close() error {
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
