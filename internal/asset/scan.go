package asset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"tzbuild/internal/kuid"
)

// KnownSkipDirs are directory names never worth descending into.
var KnownSkipDirs = []string{".git", ".hg"}

// Options controls a scan. Recursive allows descending below the root's
// immediate children; the root itself is always expanded. SkipDirs overrides
// the skipped directory names (nil means KnownSkipDirs).
type Options struct {
	Recursive bool
	SkipDirs  []string
}

type frame struct {
	dir   string
	depth int
}

// Scan walks the tree under root and returns every discovery in deterministic
// depth-first order, lexical among siblings. A directory with a marker file is
// a leaf: it yields exactly one Discovery (valid or not) and is never expanded.
// A directory without one is expanded when it is the root or Recursive is set.
// Symlinked directories are followed once; revisiting a canonical path is a
// no-op, so link cycles terminate. Scan fails only when the root itself is
// unusable or ctx is done; everything below the root surfaces as Discovery
// records.
func Scan(ctx context.Context, root string, opts Options) ([]Discovery, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	skipDirs := opts.SkipDirs
	if skipDirs == nil {
		skipDirs = KnownSkipDirs
	}
	skip := make(map[string]bool, len(skipDirs))
	for _, name := range skipDirs {
		skip[name] = true
	}

	var found []Discovery
	visited := make(map[string]bool)
	// LIFO worklist; children are pushed in reverse name order so they pop
	// lexically, giving depth-first order without call-stack recursion.
	stack := []frame{{dir: root}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		canonical, err := filepath.EvalSymlinks(top.dir)
		if err != nil {
			found = append(found, Discovery{Root: Root{Dir: top.dir}, Err: fmt.Errorf("resolve directory: %w", err)})
			continue
		}
		if visited[canonical] {
			continue
		}
		visited[canonical] = true

		text, err := os.ReadFile(MarkerPath(top.dir))
		switch {
		case err == nil:
			found = append(found, discover(top.dir, string(text)))
			continue
		case !errors.Is(err, fs.ErrNotExist):
			found = append(found, Discovery{Root: Root{Dir: top.dir}, Err: fmt.Errorf("read marker: %w", err)})
			continue
		}

		if top.depth > 0 && !opts.Recursive {
			continue
		}
		entries, err := os.ReadDir(top.dir)
		if err != nil {
			found = append(found, Discovery{Root: Root{Dir: top.dir}, Err: fmt.Errorf("read directory: %w", err)})
			continue
		}
		for i := len(entries) - 1; i >= 0; i-- {
			entry := entries[i]
			if skip[entry.Name()] {
				continue
			}
			path := filepath.Join(top.dir, entry.Name())
			if !isDir(entry, path) {
				continue
			}
			stack = append(stack, frame{dir: path, depth: top.depth + 1})
		}
	}
	return found, nil
}

// isDir reports whether the entry is a directory, following symlinks the way
// the platform's own tools treat linked content folders.
func isDir(entry fs.DirEntry, path string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// discover classifies a directory that carries a marker file.
func discover(dir, text string) Discovery {
	m, err := kuid.Find(text)
	if err != nil {
		return Discovery{Root: Root{Dir: dir}, Err: err}
	}
	return Discovery{Root: Root{
		Dir:      dir,
		Identity: m.Identity,
		Username: extractUsername(text),
	}}
}
