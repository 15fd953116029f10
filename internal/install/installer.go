// Package install unpacks downloaded gem archives into a
// Bundler-compatible layout: the gemspec under <root>/specifications and
// the payload tree under <root>/gems/<name>-<version>.
package install

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gemstall/gemstall/internal/fetch"
)

// Installer writes unpacked gems under Root.
type Installer struct {
	root   string
	logger *logrus.Logger
}

// New returns an Installer targeting the given install root.
func New(root string, logger *logrus.Logger) *Installer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Installer{root: root, logger: logger}
}

// Install unpacks one downloaded gem. The outer archive is an uncompressed
// tar whose entries are matched by exact name:
//
//	metadata.gz  -> gunzip -> <root>/specifications/<name>-<version>.gemspec
//	data.tar.gz  -> gunzip -> inner tar -> <root>/gems/<name>-<version>/...
//
// Checksum and signature entries are recognized but not validated yet.
// Anything else is logged and skipped.
func (ins *Installer) Install(gem fetch.Downloaded) error {
	fullName := gem.Spec.FullName()
	ins.logger.WithFields(logrus.Fields{
		"gem":     gem.Spec.Name,
		"version": gem.Spec.Version,
	}).Debug("unpacking gem")

	archive := tar.NewReader(bytes.NewReader(gem.Contents))
	for {
		header, err := archive.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read gem archive for %s: %w", fullName, err)
		}

		switch header.Name {
		case "metadata.gz":
			if err := ins.writeGemspec(archive, fullName); err != nil {
				return err
			}
		case "data.tar.gz":
			if err := ins.unpackData(archive, fullName); err != nil {
				return err
			}
		case "checksums.yaml.gz":
			// TODO: validate these checksums against the payload.
		case "metadata.gz.sig", "data.tar.gz.sig", "checksums.yaml.gz.sig":
			// TODO: validate these signatures.
		default:
			ins.logger.WithFields(logrus.Fields{
				"gem":   fullName,
				"entry": header.Name,
			}).Info("skipping unknown gem entry")
		}
	}
}

// writeGemspec decompresses metadata.gz verbatim into the specifications
// directory.
func (ins *Installer) writeGemspec(r io.Reader, fullName string) error {
	dir := filepath.Join(ins.root, "specifications")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create specifications directory: %w", err)
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("decompress metadata for %s: %w", fullName, err)
	}
	defer gz.Close()

	dst, err := os.Create(filepath.Join(dir, fullName+".gemspec"))
	if err != nil {
		return fmt.Errorf("create gemspec for %s: %w", fullName, err)
	}

	_, err = io.Copy(dst, gz)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write gemspec for %s: %w", fullName, err)
	}
	return nil
}

// unpackData decompresses data.tar.gz and unpacks the inner tar under
// <root>/gems/<name>-<version>/, creating intermediate directories lazily
// per entry.
func (ins *Installer) unpackData(r io.Reader, fullName string) error {
	dataDir := filepath.Join(ins.root, "gems", fullName)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create gem data directory: %w", err)
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("decompress data for %s: %w", fullName, err)
	}
	defer gz.Close()

	inner := tar.NewReader(gz)
	for {
		header, err := inner.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read data archive for %s: %w", fullName, err)
		}

		dst, err := securePath(dataDir, header.Name)
		if err != nil {
			return fmt.Errorf("unpack %s: %w", fullName, err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", dst, err)
			}
		case tar.TypeReg:
			if err := writeFile(dst, inner, fs.FileMode(header.Mode)); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := writeSymlink(dataDir, dst, header.Linkname); err != nil {
				return fmt.Errorf("unpack %s: %w", fullName, err)
			}
		case tar.TypeLink:
			if err := writeHardLink(dataDir, dst, header.Linkname); err != nil {
				return fmt.Errorf("unpack %s: %w", fullName, err)
			}
		default:
			ins.logger.WithFields(logrus.Fields{
				"gem":   fullName,
				"entry": header.Name,
				"type":  header.Typeflag,
			}).Info("skipping unsupported archive entry type")
		}
	}
}

func writeFile(dst string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", dst, err)
	}

	perm := mode.Perm()
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	_, err = io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

func writeSymlink(root, dst, target string) error {
	// The resolved link target must stay inside the install root too.
	if filepath.IsAbs(target) {
		return fmt.Errorf("symlink target %q is absolute", target)
	}
	if _, err := securePath(root, filepath.Join(filepath.Dir(relPath(root, dst)), target)); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", dst, err)
	}
	if err := os.Symlink(target, dst); err != nil {
		return fmt.Errorf("create symlink %s: %w", dst, err)
	}
	return nil
}

func writeHardLink(root, dst, target string) error {
	// Hard link targets are named relative to the archive root.
	src, err := securePath(root, target)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", dst, err)
	}
	if err := os.Link(src, dst); err != nil {
		return fmt.Errorf("create hard link %s: %w", dst, err)
	}
	return nil
}

func relPath(root, dst string) string {
	rel, err := filepath.Rel(root, dst)
	if err != nil {
		return dst
	}
	return rel
}

// securePath joins an archive entry name to root, rejecting absolute names
// and any path escaping the root.
func securePath(root, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty archive entry name")
	}
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("archive entry %q is absolute", name)
	}

	dst := filepath.Join(root, filepath.FromSlash(name))
	if dst != root && !strings.HasPrefix(dst, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes install root", name)
	}
	return dst, nil
}
