package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const defaultLocalDir = "uploads"

// Local stores objects as flat files in a directory.
type Local struct {
	dir string
}

// NewLocal creates a local provider rooted at dir.
func NewLocal(dir string) *Local {
	if strings.TrimSpace(dir) == "" {
		dir = defaultLocalDir
	}
	return &Local{dir: dir}
}

// Name implements Provider.
func (l *Local) Name() ProviderName { return ProviderLocal }

// Path returns the file path for key; slashes are flattened.
func (l *Local) Path(key string) string {
	return filepath.Join(l.dir, strings.ReplaceAll(key, "/", "_"))
}

// Put implements Provider.
func (l *Local) Put(_ context.Context, key string, body []byte, _ string) error {
	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(l.Path(key), body, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Delete implements Provider. A missing file is not an error.
func (l *Local) Delete(_ context.Context, key string) error {
	if err := os.Remove(l.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close implements Provider.
func (l *Local) Close() error { return nil }
