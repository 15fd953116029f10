package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Removal tallies what a removal sweep freed. Values combine with Add as
// a tree is walked; the zero value is the identity.
type Removal struct {
	// Dirs is the number of directories removed.
	Dirs uint64
	// Bytes is the total size of the files removed.
	Bytes uint64
}

// Add returns the combined tally of two removals.
func (r Removal) Add(other Removal) Removal {
	return Removal{
		Dirs:  r.Dirs + other.Dirs,
		Bytes: r.Bytes + other.Bytes,
	}
}

// IsEmpty reports whether nothing was removed.
func (r Removal) IsEmpty() bool {
	return r.Dirs == 0 && r.Bytes == 0
}

// String renders the tally for user-facing output.
func (r Removal) String() string {
	switch {
	case r.Dirs > 0 && r.Bytes > 0:
		return fmt.Sprintf("Removed %d directories (%d bytes)", r.Dirs, r.Bytes)
	case r.Dirs > 0:
		return fmt.Sprintf("Removed %d directories", r.Dirs)
	case r.Bytes > 0:
		return fmt.Sprintf("Removed %d bytes", r.Bytes)
	default:
		return "No cache entries removed"
	}
}

// Reporter receives progress notifications during a removal sweep. It is
// consumed by the CLI/UI layer; implementations must be safe for
// concurrent use.
type Reporter interface {
	// OnRemove is called after one file or directory is removed.
	OnRemove()
	// OnComplete is called once after the whole sweep finishes.
	OnComplete()
}

// Remover deletes files or whole directory trees, producing a Removal and
// driving an optional Reporter.
type Remover struct {
	reporter Reporter
}

// NewRemover returns a Remover reporting to the given Reporter. A nil
// reporter disables progress notifications.
func NewRemover(reporter Reporter) *Remover {
	return &Remover{reporter: reporter}
}

// Remove deletes the file or directory tree at path. A nonexistent path
// yields an empty Removal, not an error. OnComplete fires once when the
// sweep succeeds.
func (rm *Remover) Remove(path string) (Removal, error) {
	removal, err := rm.removeTree(path)
	if err != nil {
		return removal, err
	}
	if rm.reporter != nil {
		rm.reporter.OnComplete()
	}
	return removal, nil
}

// removeTree removes path post-order: children first, their tallies
// summed, then the emptied directory itself.
func (rm *Remover) removeTree(path string) (Removal, error) {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Removal{}, nil
	}
	if err != nil {
		return Removal{}, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		size := uint64(info.Size())
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Removal{}, nil
			}
			return Removal{}, fmt.Errorf("remove %s: %w", path, err)
		}
		rm.removed()
		return Removal{Bytes: size}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return Removal{}, fmt.Errorf("read %s: %w", path, err)
	}

	var summary Removal
	for _, entry := range entries {
		child, err := rm.removeTree(filepath.Join(path, entry.Name()))
		summary = summary.Add(child)
		if err != nil {
			return summary, err
		}
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return summary, fmt.Errorf("remove %s: %w", path, err)
	}
	rm.removed()
	summary.Dirs++
	return summary, nil
}

func (rm *Remover) removed() {
	if rm.reporter != nil {
		rm.reporter.OnRemove()
	}
}

// RemoveAll deletes a file or directory tree without progress reporting.
func RemoveAll(path string) (Removal, error) {
	return (&Remover{}).removeTree(path)
}
