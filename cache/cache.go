package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/gemstall/gemstall/logging"
)

// markerName is the single file allowed at the cache root besides bucket
// directories. Its contents are always "*".
const markerName = ".gitignore"

// Bucket identifies a top-level cache category. Each bucket maps to a
// versioned directory name; the version suffix is bumped when the on-disk
// format changes, orphaning the previous directory for Prune to collect.
type Bucket int

const (
	// Ruby holds interpreter metadata cached by the wider toolchain.
	Ruby Bucket = iota
	// Gem holds downloaded gem archives.
	Gem
)

// String returns the bucket's on-disk directory name.
func (b Bucket) String() string {
	switch b {
	case Ruby:
		return "ruby-v0"
	case Gem:
		return "gem-v0"
	default:
		return fmt.Sprintf("bucket(%d)", int(b))
	}
}

// Buckets returns every recognized bucket.
func Buckets() []Bucket {
	return []Bucket{Ruby, Gem}
}

// Shard is a directory inside a bucket used to namespace entries. It is a
// pure path value and performs no I/O.
type Shard struct {
	path string
}

// Path returns the shard's directory path.
func (s Shard) Path() string {
	return s.path
}

// Entry returns an Entry for the given file inside this shard.
func (s Shard) Entry(file string) Entry {
	return Entry{path: filepath.Join(s.path, file)}
}

// Shard returns a nested shard inside this one.
func (s Shard) Shard(dir string) Shard {
	return Shard{path: filepath.Join(s.path, dir)}
}

// Entry is a concrete file location in the cache which may or may not
// exist yet. Every entry has a non-root parent directory by construction.
type Entry struct {
	path string
}

// NewEntry composes an entry from a directory and a file name.
func NewEntry(dir, file string) Entry {
	return Entry{path: filepath.Join(dir, file)}
}

// Path returns the entry's file path.
func (e Entry) Path() string {
	return e.path
}

// Dir returns the entry's parent directory.
func (e Entry) Dir() string {
	return filepath.Dir(e.path)
}

// Shard returns the shard owning this entry.
func (e Entry) Shard() Shard {
	return Shard{path: e.Dir()}
}

// WithFile returns a sibling entry in the same directory.
func (e Entry) WithFile(file string) Entry {
	return Entry{path: filepath.Join(e.Dir(), file)}
}

// tempRoot is the shared backing directory of an ephemeral cache. It is
// reference-counted across every Cache handle that was cloned from the
// original; the directory is deleted only when the last handle closes.
type tempRoot struct {
	path string
	refs atomic.Int64
}

func (t *tempRoot) release() error {
	if t.refs.Add(-1) > 0 {
		return nil
	}
	return os.RemoveAll(t.path)
}

// Cache owns the cache root. A persistent cache lives at a caller-supplied
// directory; an ephemeral cache is backed by a process-scoped temporary
// directory shared by refcount across cloned handles.
type Cache struct {
	root string
	temp *tempRoot
}

// New returns a persistent cache rooted at dir.
func New(dir string) *Cache {
	return &Cache{root: dir}
}

// NewEphemeral returns a cache backed by a fresh temporary directory. The
// directory is removed when the last handle referencing it is closed.
func NewEphemeral() (*Cache, error) {
	dir, err := os.MkdirTemp("", "gemstall-cache-")
	if err != nil {
		return nil, fmt.Errorf("create ephemeral cache: %w", err)
	}
	t := &tempRoot{path: dir}
	t.refs.Add(1)
	return &Cache{root: dir, temp: t}, nil
}

// Clone returns a new handle sharing this cache's root. For an ephemeral
// cache the backing directory stays alive until both handles are closed.
func (c *Cache) Clone() *Cache {
	if c.temp != nil {
		c.temp.refs.Add(1)
	}
	return &Cache{root: c.root, temp: c.temp}
}

// Close releases this handle. It deletes the backing temporary directory
// once no other handle references it; closing a persistent cache is a no-op.
func (c *Cache) Close() error {
	if c.temp == nil {
		return nil
	}
	t := c.temp
	c.temp = nil
	return t.release()
}

// IsEphemeral reports whether the cache is backed by a temporary directory.
func (c *Cache) IsEphemeral() bool {
	return c.temp != nil
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// BucketPath returns the directory for a bucket.
func (c *Cache) BucketPath(b Bucket) string {
	return filepath.Join(c.root, b.String())
}

// Shard computes a shard inside a bucket.
func (c *Cache) Shard(b Bucket, dir string) Shard {
	return Shard{path: filepath.Join(c.BucketPath(b), dir)}
}

// Entry computes an entry inside a bucket.
func (c *Cache) Entry(b Bucket, dir, file string) Entry {
	return NewEntry(filepath.Join(c.BucketPath(b), dir), file)
}

// Init creates the cache root if needed, writes the marker file, and
// canonicalizes the root path. It is idempotent: repeated calls never fail
// and never overwrite an existing marker's contents.
func (c *Cache) Init() error {
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return fmt.Errorf("create cache root: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(c.root, markerName), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	switch {
	case err == nil:
		if _, werr := f.WriteString("*"); werr != nil {
			f.Close()
			return fmt.Errorf("write cache marker: %w", werr)
		}
		if cerr := f.Close(); cerr != nil {
			return fmt.Errorf("write cache marker: %w", cerr)
		}
	case errors.Is(err, fs.ErrExist):
		// Marker already present; leave its contents alone.
	default:
		return fmt.Errorf("write cache marker: %w", err)
	}

	root, err := filepath.Abs(c.root)
	if err != nil {
		return fmt.Errorf("resolve cache root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	c.root = root
	return nil
}

// Clear wipes the whole cache, marker included, reporting progress through
// the given reporter.
func (c *Cache) Clear(reporter Reporter) (Removal, error) {
	removal, err := NewRemover(reporter).Remove(c.root)
	if err != nil {
		return removal, err
	}
	logrus.WithFields(logging.RemovalFields("cache_clear", removal.Dirs, removal.Bytes)).
		WithField("root", c.root).Debug("cache cleared")
	return removal, nil
}

// Prune removes stale top-level cache content: directories whose name does
// not match a recognized bucket (orphaned buckets from an earlier on-disk
// format) and any plain file other than the marker. It never descends into
// recognized buckets and aborts on the first I/O failure.
func (c *Cache) Prune() (Removal, error) {
	var summary Removal

	entries, err := os.ReadDir(c.root)
	if err != nil {
		return summary, fmt.Errorf("read cache root: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == markerName {
			continue
		}
		if entry.IsDir() && recognizedBucket(name) {
			continue
		}

		path := filepath.Join(c.root, name)
		logrus.WithFields(logrus.Fields{
			"action": "cache_prune",
			"path":   path,
		}).Debug("removing dangling cache entry")

		removed, err := RemoveAll(path)
		if err != nil {
			return summary, err
		}
		summary = summary.Add(removed)
	}

	logrus.WithFields(logging.RemovalFields("cache_prune", summary.Dirs, summary.Bytes)).
		WithField("root", c.root).Debug("cache pruned")
	return summary, nil
}

func recognizedBucket(name string) bool {
	for _, b := range Buckets() {
		if name == b.String() {
			return true
		}
	}
	return false
}
