package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// LocalBackend mirrors chunks onto disk under <root>/<region>/<key>.
// It is always available and is the last-resort fallback when no
// cloud backend or SCP host is configured for a region.
type LocalBackend struct {
	root string
}

func NewLocalBackend(root string) *LocalBackend {
	return &LocalBackend{root: root}
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) Upload(ctx context.Context, region, key string, r io.Reader) error {
	dest := filepath.Join(b.root, region, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}
