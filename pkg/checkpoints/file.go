package checkpoints

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/avi3tal/flowgraph/pkg/types"
)

const fileExt = ".json"

// FileStore persists one JSON file per execution under a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed and returns a store
// rooted there.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create checkpoint dir")
	}
	return &FileStore{root: root}, nil
}

func (f *FileStore) path(executionID string) string {
	return filepath.Join(f.root, executionID+fileExt)
}

// Save writes the checkpoint to a temp file and renames it into place,
// so readers never observe a partial write.
func (f *FileStore) Save(_ context.Context, cp types.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal checkpoint")
	}

	tmp, err := os.CreateTemp(f.root, cp.ExecutionID+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp checkpoint")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "write checkpoint")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "close checkpoint")
	}
	if err := os.Rename(tmp.Name(), f.path(cp.ExecutionID)); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "rename checkpoint")
	}
	return nil
}

// Load reads an execution's checkpoint file.
func (f *FileStore) Load(_ context.Context, executionID string) (*types.Checkpoint, error) {
	data, err := os.ReadFile(f.path(executionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrNotFound, executionID)
		}
		return nil, errors.Wrap(err, "read checkpoint")
	}

	var cp types.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, errors.Wrap(err, "unmarshal checkpoint")
	}
	return &cp, nil
}

// List scans the root directory for checkpoint files.
func (f *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, errors.Wrap(err, "read checkpoint dir")
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes an execution's checkpoint file. A missing file is not
// an error.
func (f *FileStore) Delete(_ context.Context, executionID string) error {
	err := os.Remove(f.path(executionID))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "delete checkpoint")
	}
	return nil
}
