package gemstall

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/gemstall/gemstall/cache"
	"github.com/gemstall/gemstall/manifest"
)

func gzipped(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		t.Fatalf("gzip write error: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close error: %v", err)
	}
	return buf.Bytes()
}

func tarred(t *testing.T, names []string, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, name := range names {
		payload := files[name]
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(payload))}); err != nil {
			t.Fatalf("tar header error: %v", err)
		}
		if _, err := tw.Write(payload); err != nil {
			t.Fatalf("tar write error: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close error: %v", err)
	}
	return buf.Bytes()
}

func syntheticGem(t *testing.T, gemspec, lib []byte) []byte {
	t.Helper()
	inner := tarred(t, []string{"lib/demo.rb"}, map[string][]byte{"lib/demo.rb": lib})
	return tarred(t,
		[]string{"metadata.gz", "data.tar.gz"},
		map[string][]byte{
			"metadata.gz": gzipped(t, gemspec),
			"data.tar.gz": gzipped(t, inner),
		})
}

func TestFetchAndInstall(t *testing.T) {
	gemspec := []byte("Gem::Specification.new\n")
	lib := []byte("module Demo\nend\n")
	gem := syntheticGem(t, gemspec, lib)

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/gems/demo-1.0.gem" {
			http.NotFound(w, r)
			return
		}
		w.Write(gem)
	}))
	defer server.Close()

	lockfile := &manifest.Lockfile{
		Sources: []manifest.Source{{
			Remote: server.URL + "/",
			Specs:  []manifest.Spec{{Name: "demo", Version: "1.0"}},
		}},
	}

	c := cache.New(filepath.Join(t.TempDir(), "cache"))
	installRoot := t.TempDir()

	if err := FetchAndInstall(context.Background(), lockfile, c, Options{InstallRoot: installRoot}); err != nil {
		t.Fatalf("install error: %v", err)
	}

	spec, err := os.ReadFile(filepath.Join(installRoot, "specifications", "demo-1.0.gemspec"))
	if err != nil {
		t.Fatalf("gemspec missing: %v", err)
	}
	if !bytes.Equal(spec, gemspec) {
		t.Fatalf("gemspec contents: %q", spec)
	}
	payload, err := os.ReadFile(filepath.Join(installRoot, "gems", "demo-1.0", "lib", "demo.rb"))
	if err != nil {
		t.Fatalf("payload missing: %v", err)
	}
	if !bytes.Equal(payload, lib) {
		t.Fatalf("payload contents: %q", payload)
	}

	if got := requests.Load(); got != 1 {
		t.Fatalf("first run requests: %d", got)
	}

	// A second run against the same lockfile installs entirely from cache.
	secondRoot := t.TempDir()
	if err := FetchAndInstall(context.Background(), lockfile, c, Options{InstallRoot: secondRoot}); err != nil {
		t.Fatalf("second install error: %v", err)
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("second run hit the network: %d total requests", got)
	}
	if _, err := os.Stat(filepath.Join(secondRoot, "gems", "demo-1.0", "lib", "demo.rb")); err != nil {
		t.Fatalf("second install incomplete: %v", err)
	}
}

func TestFetchAndInstallPropagatesDownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	lockfile := &manifest.Lockfile{
		Sources: []manifest.Source{{
			Remote: server.URL + "/",
			Specs:  []manifest.Spec{{Name: "demo", Version: "1.0"}},
		}},
	}

	c := cache.New(filepath.Join(t.TempDir(), "cache"))
	err := FetchAndInstall(context.Background(), lockfile, c, Options{InstallRoot: t.TempDir()})
	if err == nil {
		t.Fatal("expected download failure to propagate")
	}
}
