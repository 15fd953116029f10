// Package manifest defines the resolved lockfile document consumed by the
// install pipeline. Parsing the lockfile grammar is the job of an external
// collaborator; this package only models its output (sources with exact
// gem versions) and composes download URLs from it.
package manifest

import (
	"fmt"
	"net/url"
)

// Lockfile is a fully resolved manifest: every gem is pinned to an exact
// version and grouped under the source serving it.
type Lockfile struct {
	Sources []Source
}

// Source is one gem server section of the lockfile.
type Source struct {
	// Remote is the base URL of the gem server.
	Remote string
	// Specs are the gems pinned against this source.
	Specs []Spec
}

// Spec identifies one gem at an exact version.
type Spec struct {
	Name    string
	Version string
}

// FullName returns the canonical "<name>-<version>" identifier used in
// archive names and install paths.
func (s Spec) FullName() string {
	return s.Name + "-" + s.Version
}

// BadRemoteError reports a source remote (or the URL composed from it)
// that failed to parse.
type BadRemoteError struct {
	Remote string
	Err    error
}

func (e *BadRemoteError) Error() string {
	return fmt.Sprintf("invalid remote URL %q: %v", e.Remote, e.Err)
}

func (e *BadRemoteError) Unwrap() error {
	return e.Err
}

// GemURL composes the fully-qualified download URL for a spec served by
// this source: <remote>/gems/<name>-<version>.gem.
func (s Source) GemURL(spec Spec) (string, error) {
	base, err := url.Parse(s.Remote)
	if err != nil {
		return "", &BadRemoteError{Remote: s.Remote, Err: err}
	}
	if base.Scheme == "" || base.Host == "" {
		return "", &BadRemoteError{Remote: s.Remote, Err: fmt.Errorf("missing scheme or host")}
	}

	ref, err := url.Parse("gems/" + spec.FullName() + ".gem")
	if err != nil {
		return "", &BadRemoteError{Remote: s.Remote, Err: err}
	}
	return base.ResolveReference(ref).String(), nil
}
