package install

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoBundlePath indicates the host Bundler could not report an install
// directory. Distinct from generic I/O failures so callers can suggest
// checking the Ruby toolchain.
var ErrNoBundlePath = errors.New("could not read install directory from Bundler")

// ResolveBundlePath asks the host Bundler where gems should be installed.
func ResolveBundlePath() (string, error) {
	out, err := exec.Command("ruby", "-rbundler", "-e", "puts Bundler.bundle_path").Output()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoBundlePath, err)
	}

	path := strings.TrimSpace(string(out))
	if path == "" {
		return "", ErrNoBundlePath
	}
	return path, nil
}
