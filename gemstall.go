// Package gemstall is the installation backend of a RubyGems-style
// package manager. Given a resolved lockfile it downloads each pinned gem
// archive with bounded concurrency, caches it content-addressably on
// disk, and unpacks it into a Bundler-compatible install layout. Cache
// maintenance (clear, prune) lives in the cache subpackage.
package gemstall

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gemstall/gemstall/cache"
	"github.com/gemstall/gemstall/internal/fetch"
	"github.com/gemstall/gemstall/internal/install"
	"github.com/gemstall/gemstall/manifest"
)

// Options controls one install run.
type Options struct {
	// InstallRoot is the directory receiving specifications/ and gems/.
	// Empty means: ask the host Bundler.
	InstallRoot string
	// MaxConcurrentRequests bounds per-source downloads in flight.
	// Values below 1 use the default of 10.
	MaxConcurrentRequests int
	// Command names the invoking operation in request headers.
	Command string
	// Timeout applies per upstream request; zero uses the default.
	Timeout time.Duration
	// Logger receives structured progress logs; nil uses the logrus
	// standard logger.
	Logger *logrus.Logger
}

// FetchAndInstall downloads every gem named by the lockfile (reusing the
// cache where possible) and unpacks each archive into the install root.
// The first failing download or unpack aborts the run; archives cached by
// earlier successes stay valid for the next attempt.
func FetchAndInstall(ctx context.Context, lockfile *manifest.Lockfile, c *cache.Cache, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	if err := c.Init(); err != nil {
		return err
	}

	root := opts.InstallRoot
	if root == "" {
		resolved, err := install.ResolveBundlePath()
		if err != nil {
			return err
		}
		root = resolved
	}

	command := opts.Command
	if command == "" {
		command = "install"
	}

	client := fetch.NewClient(command, opts.Timeout)
	downloader := fetch.NewDownloader(c, client, logger, opts.MaxConcurrentRequests)
	gems, err := downloader.DownloadAll(ctx, lockfile)
	if err != nil {
		return err
	}

	installer := install.New(root, logger)
	for _, gem := range gems {
		if err := installer.Install(gem); err != nil {
			return err
		}
	}
	return nil
}
