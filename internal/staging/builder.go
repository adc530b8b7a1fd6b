// Package staging materializes disposable copies of assets for test builds.
// A staged copy lives in a uniquely named directory under the staging base
// and carries the placeholder identity in its marker, so installing it never
// collides with the real catalog entry. Staged directories are released after
// each install attempt; CleanStale sweeps up leftovers from crashed runs.
package staging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"tzbuild/internal/asset"
	"tzbuild/internal/fileutil"
	"tzbuild/internal/kuid"
	"tzbuild/internal/logging"
)

// ErrStagingIO reports a copy or write failure while materializing a staged
// asset.
var ErrStagingIO = errors.New("staging io failure")

// dirPrefix marks directories owned by this tool inside the staging base.
const dirPrefix = "asset-"

// Staged is a disposable copy of an asset. Dir holds the copy, Identity the
// placeholder written into its marker, Source the asset it was staged from.
type Staged struct {
	Dir      string
	Identity kuid.Identity
	Source   asset.Root
	Files    int
	Bytes    int64
}

// Release removes the staged directory. Safe to call more than once.
func (s *Staged) Release() error {
	if s == nil || s.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("release staged asset: %w", err)
	}
	s.Dir = ""
	return nil
}

// Builder stages assets under a base directory.
type Builder struct {
	base   string
	logger *slog.Logger
}

// NewBuilder returns a Builder that stages under base. A nil logger disables
// logging.
func NewBuilder(base string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{base: base, logger: logging.NewComponentLogger(logger, "staging")}
}

// Base returns the staging base directory.
func (b *Builder) Base() string {
	return b.base
}

// EnsureBase creates the staging base directory if needed. A base that cannot
// be created makes every build impossible, so callers treat this as fatal.
func (b *Builder) EnsureBase() error {
	if err := os.MkdirAll(b.base, 0o755); err != nil {
		return fmt.Errorf("%w: create staging base: %v", ErrStagingIO, err)
	}
	return nil
}

// Stage copies root's directory into a fresh uniquely named directory under
// the base and rewrites the copy's marker identity to the placeholder for the
// asset's variant. The original asset is never touched. Partial copies are
// removed before the error is returned.
func (b *Builder) Stage(root asset.Root) (*Staged, error) {
	if err := b.EnsureBase(); err != nil {
		return nil, err
	}

	dir := filepath.Join(b.base, dirPrefix+uuid.NewString())
	files, size, err := fileutil.CopyTree(root.Dir, dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: copy %s: %v", ErrStagingIO, root.Dir, err)
	}

	placeholder, err := rewriteMarker(dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	b.logger.Debug("staged asset",
		logging.String("source", root.Dir),
		logging.String("staged", dir),
		logging.String("placeholder", placeholder.String()),
		logging.Int("files", files),
		logging.Int64("bytes", size),
	)

	return &Staged{
		Dir:      dir,
		Identity: placeholder,
		Source:   root,
		Files:    files,
		Bytes:    size,
	}, nil
}

// rewriteMarker replaces the identity span inside the staged copy's marker
// with the placeholder, leaving every other byte of the file as copied.
func rewriteMarker(dir string) (kuid.Identity, error) {
	path := asset.MarkerPath(dir)
	text, err := os.ReadFile(path)
	if err != nil {
		return kuid.Identity{}, fmt.Errorf("%w: read staged marker: %v", ErrStagingIO, err)
	}
	m, err := kuid.Find(string(text))
	if err != nil {
		return kuid.Identity{}, fmt.Errorf("%w: staged marker: %v", ErrStagingIO, err)
	}
	placeholder := kuid.Placeholder(m.Identity.Variant)
	rewritten := m.Rewrite(string(text), placeholder)
	if err := os.WriteFile(path, []byte(rewritten), 0o644); err != nil {
		return kuid.Identity{}, fmt.Errorf("%w: write staged marker: %v", ErrStagingIO, err)
	}
	return placeholder, nil
}
