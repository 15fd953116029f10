package version

import "fmt"

// Version/Commit are injected at build time via -ldflags; the defaults are
// development placeholders.
var (
	Version = "0.1.0"
	Commit  = "dev"
)

// Full returns the complete version string.
func Full() string {
	return fmt.Sprintf("gemstall %s (%s)", Version, Commit)
}

// UserAgent returns the value sent in the User-Agent header of every gem
// server request.
func UserAgent() string {
	return "gemstall/" + Version
}
