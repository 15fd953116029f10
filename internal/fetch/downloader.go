// Package fetch downloads gem archives with two-level bounded concurrency
// and cache-aside semantics against the content-addressed disk cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gemstall/gemstall/cache"
	"github.com/gemstall/gemstall/logging"
	"github.com/gemstall/gemstall/manifest"
)

// sourceConcurrency caps how many lockfile sources are fetched at once.
// Fixed, independent of user configuration.
const sourceConcurrency = 10

// DefaultMaxConcurrent is the per-source download ceiling when the caller
// does not configure one.
const DefaultMaxConcurrent = 10

// Downloaded pairs a fetched gem archive with its originating spec. It is
// consumed exactly once by the installer.
type Downloaded struct {
	Spec     manifest.Spec
	Contents []byte
}

// Downloader fetches every gem in a lockfile, reusing cached archives and
// populating cache misses.
type Downloader struct {
	cache         *cache.Cache
	client        *http.Client
	logger        *logrus.Logger
	maxConcurrent int
	runID         string
}

// NewDownloader returns a Downloader writing through the given cache.
// maxConcurrent bounds per-source downloads; values below 1 fall back to
// DefaultMaxConcurrent.
func NewDownloader(c *cache.Cache, client *http.Client, logger *logrus.Logger, maxConcurrent int) *Downloader {
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Downloader{
		cache:         c,
		client:        client,
		logger:        logger,
		maxConcurrent: maxConcurrent,
		runID:         uuid.NewString(),
	}
}

// DownloadAll fetches every gem named by the lockfile. Results preserve
// the lockfile's source and spec order regardless of completion order.
// The first failing download cancels the remaining work and propagates.
func (d *Downloader) DownloadAll(ctx context.Context, lockfile *manifest.Lockfile) ([]Downloaded, error) {
	perSource := make([][]Downloaded, len(lockfile.Sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sourceConcurrency)
	for i, source := range lockfile.Sources {
		i, source := i, source
		g.Go(func() error {
			gems, err := d.downloadSource(ctx, source)
			if err != nil {
				return err
			}
			perSource[i] = gems
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Downloaded
	for _, gems := range perSource {
		all = append(all, gems...)
	}
	return all, nil
}

// downloadSource fetches every spec of one source with a sliding admission
// window: a queued download starts as soon as a slot frees up.
func (d *Downloader) downloadSource(ctx context.Context, source manifest.Source) ([]Downloaded, error) {
	out := make([]Downloaded, len(source.Specs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.maxConcurrent)
	for i, spec := range source.Specs {
		i, spec := i, spec
		g.Go(func() error {
			gem, err := d.downloadGem(ctx, source, spec)
			if err != nil {
				return err
			}
			out[i] = gem
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// downloadGem fetches one gem cache-aside: a cached archive is returned
// as-is, a miss downloads and populates the cache. Cache hits perform no
// integrity re-check; checksum validation is a placeholder.
func (d *Downloader) downloadGem(ctx context.Context, source manifest.Source, spec manifest.Spec) (Downloaded, error) {
	gemURL, err := source.GemURL(spec)
	if err != nil {
		return Downloaded{}, err
	}

	entry := d.cache.Entry(cache.Gem, "gems", cache.Digest(gemURL)+".gem")
	fields := logging.GemFields(d.runID, spec.Name, spec.Version, gemURL)

	contents, err := os.ReadFile(entry.Path())
	if err == nil {
		d.logger.WithFields(fields).Debug("reusing gem from cache")
		return Downloaded{Spec: spec, Contents: contents}, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return Downloaded{}, fmt.Errorf("read cached gem: %w", err)
	}

	contents, err = d.fetch(ctx, gemURL)
	if err != nil {
		return Downloaded{}, err
	}
	if err := writeEntry(entry, contents); err != nil {
		return Downloaded{}, err
	}
	d.logger.WithFields(fields).Debug("downloaded gem")
	return Downloaded{Spec: spec, Contents: contents}, nil
}

func (d *Downloader) fetch(ctx context.Context, gemURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gemURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", gemURL, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", gemURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download %s: unexpected status %s", gemURL, resp.Status)
	}

	contents, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", gemURL, err)
	}
	return contents, nil
}

// writeEntry populates a cache entry via temp-file-then-rename so a reader
// racing the writer sees either nothing or the complete archive.
func writeEntry(entry cache.Entry, contents []byte) error {
	dir := entry.Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache shard: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".gem-*")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(contents)
	if err == nil {
		// CreateTemp opens 0600; committed entries match the 0644 the rest
		// of the tree writes.
		err = tmp.Chmod(0o644)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write cache entry: %w", err)
	}

	if err := os.Rename(tmpName, entry.Path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}
